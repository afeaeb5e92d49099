package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrIncompleteS3Config is returned when a required S3 setting is empty.
var ErrIncompleteS3Config = errors.New("incomplete S3 configuration")

type S3Config struct {
	Endpoint  string        `mapstructure:"endpoint"`
	Region    string        `mapstructure:"region"`
	Bucket    string        `mapstructure:"bucket"`
	KeyID     string        `mapstructure:"key_id"`
	AccessKey string        `mapstructure:"access_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// S3Store keeps objects in an S3 compatible bucket.
type S3Store struct {
	client  *s3.Client
	bucket  string
	timeout time.Duration
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.Endpoint == "" || cfg.Region == "" || cfg.Bucket == "" || cfg.KeyID == "" || cfg.AccessKey == "" {
		return nil, ErrIncompleteS3Config
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := s3.New(s3.Options{
		UsePathStyle: true,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Region:       cfg.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.KeyID, cfg.AccessKey, ""),
		),
	})

	return &S3Store{client: client, bucket: cfg.Bucket, timeout: cfg.Timeout}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	name, err := cleanKey(key)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body := &countingReader{r: r}
	uploader := manager.NewUploader(s.client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
		Body:   body,
	})
	if err != nil {
		var mu manager.MultiUploadFailure
		if errors.As(err, &mu) {
			return 0, fmt.Errorf("multi-upload failure (upload_id: %s): %w", mu.UploadID(), mu)
		}
		return 0, fmt.Errorf("upload failure: %w", err)
	}
	return body.n, nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	name, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	object, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer object.Body.Close()

	content, err := io.ReadAll(object.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object content: %w", err)
	}
	return content, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	name, err := cleanKey(key)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}
