package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kerem-kaynak/uvlhub/internal/storage"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	defaultJWTSecret = "uvlhub-development-secret"
)

var (
	ErrDefaultSecret = errors.New("jwt.secret must be set in production")
	ErrMissingBucket = errors.New("storage bucket is required for the selected backend")
)

type Config struct {
	Environment string `mapstructure:"environment" validate:"oneof=development production test"`
	Port        int    `mapstructure:"port" validate:"min=1,max=65535"`
	Domain      string `mapstructure:"domain" validate:"required"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	UploadsDir  string `mapstructure:"uploads_dir" validate:"required"`

	Database    DatabaseConfig    `mapstructure:"database"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Meilisearch MeilisearchConfig `mapstructure:"meilisearch"`
	Sendgrid    SendgridConfig    `mapstructure:"sendgrid"`
	Mail        MailConfig        `mapstructure:"mail"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	CORS        CORSConfig        `mapstructure:"cors"`

	// DotenvLoaded records whether a .env file was found.
	DotenvLoaded bool `mapstructure:"-"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	URL    string `mapstructure:"url" validate:"required"`
}

type StorageConfig struct {
	Backend string           `mapstructure:"backend" validate:"oneof=filesystem gcs s3"`
	GCS     GCSConfig        `mapstructure:"gcs"`
	S3      storage.S3Config `mapstructure:"s3"`
}

type GCSConfig struct {
	Bucket    string `mapstructure:"bucket"`
	ProjectID string `mapstructure:"project_id"`
	Prefix    string `mapstructure:"prefix"`
}

// MeilisearchConfig leaves quick search disabled when Host is empty.
type MeilisearchConfig struct {
	Host   string `mapstructure:"host" validate:"omitempty,url"`
	APIKey string `mapstructure:"api_key"`
}

// SendgridConfig leaves publication notices disabled when APIKey is empty.
type SendgridConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type MailConfig struct {
	From string `mapstructure:"from" validate:"required,email"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret" validate:"required,min=8"`
}

type CORSConfig struct {
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// Origins splits the comma separated allow-list.
func (c CORSConfig) Origins() []string {
	var out []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// BaseURL is the public root used in links sent to users.
func (c *Config) BaseURL() string {
	scheme := "http"
	if c.IsProduction() {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimSuffix(c.Domain, "/")
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvDevelopment)
	v.SetDefault("port", 8080)
	v.SetDefault("domain", "localhost:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("uploads_dir", "uploads")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")

	v.SetDefault("storage.backend", "filesystem")
	v.SetDefault("storage.gcs.bucket", "")
	v.SetDefault("storage.gcs.project_id", "")
	v.SetDefault("storage.gcs.prefix", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.key_id", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.timeout", "30s")

	v.SetDefault("meilisearch.host", "")
	v.SetDefault("meilisearch.api_key", "")
	v.SetDefault("sendgrid.api_key", "")
	v.SetDefault("mail.from", "noreply@uvlhub.io")
	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("cors.allowed_origins", "")
}

// Load reads .env, then the environment over an optional YAML file over
// defaults. Keys map to variables by upper-casing and replacing dots with
// underscores, so database.url is DATABASE_URL. An empty path looks for
// uvlhub.yaml in the working directory.
func Load(path string) (*Config, error) {
	dotenv := godotenv.Load() == nil

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("uvlhub")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.DotenvLoaded = dotenv

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.IsProduction() && c.JWT.Secret == defaultJWTSecret {
		return ErrDefaultSecret
	}

	switch c.Storage.Backend {
	case "gcs":
		if c.Storage.GCS.Bucket == "" {
			return fmt.Errorf("%w: gcs", ErrMissingBucket)
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("%w: s3", ErrMissingBucket)
		}
	}
	return nil
}
