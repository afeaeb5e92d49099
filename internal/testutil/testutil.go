// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"github.com/kerem-kaynak/uvlhub/internal/storage"
	"github.com/kerem-kaynak/uvlhub/internal/uvl"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ChatModel is a small valid UVL model.
const ChatModel = `namespace Chat

features
    Chat
        mandatory
            Connection
                alternative
                    "Peer 2 Peer"
                    Server
            Messages
                or
                    Text
                    Video
        optional
            "Data Storage"

constraints
    Video => Server
`

// NewDB opens a private in-memory database with the full schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	entity.HashCost = bcrypt.MinCost

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(entity.All()...))
	return db
}

// NewStore returns a filesystem store under a test directory.
func NewStore(t *testing.T) *storage.FilesystemStore {
	t.Helper()
	store, err := storage.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func NewStaging(t *testing.T) *storage.Staging {
	t.Helper()
	staging, err := storage.NewStaging(t.TempDir())
	require.NoError(t, err)
	return staging
}

func NewLogger() *zap.Logger {
	return zap.NewNop()
}

// CreateUser stores a user whose password is "password" and whose security
// answers are "one", "two" and "three".
func CreateUser(t *testing.T, db *gorm.DB, email string) *entity.User {
	t.Helper()
	user, err := entity.NewUser(email, "password", entity.SecurityAnswers{"one", "two", "three"})
	require.NoError(t, err)
	user.Name = "Ada"
	user.Surname = "Lovelace"
	require.NoError(t, db.Create(user).Error)
	return user
}

// DatasetOptions describes a dataset fixture.
type DatasetOptions struct {
	Title           string
	Description     string
	Tags            string
	PublicationType entity.PublicationType
	Published       bool
	Authors         []entity.Author
	// Files maps file names to UVL content. Files absent from storage are
	// listed in Missing.
	Files     map[string]string
	Missing   []string
	Features  int
	CreatedAt time.Time
}

// CreateDataset stores a dataset directly, bypassing the lifecycle, and
// writes its files to store.
func CreateDataset(t *testing.T, db *gorm.DB, store storage.Store, owner *entity.User, opts DatasetOptions) *entity.Dataset {
	t.Helper()

	if opts.Title == "" {
		opts.Title = "Dataset"
	}
	if opts.PublicationType == "" {
		opts.PublicationType = entity.PublicationNone
	}

	ds := &entity.Dataset{
		UserID: owner.ID,
		Status: entity.StatusDraft,
		Metadata: entity.DatasetMetadata{
			Title:           opts.Title,
			Description:     opts.Description,
			PublicationType: opts.PublicationType,
			Tags:            opts.Tags,
			Authors:         opts.Authors,
		},
	}
	if !opts.CreatedAt.IsZero() {
		ds.CreatedAt = opts.CreatedAt
	}

	names := make([]string, 0, len(opts.Files)+len(opts.Missing))
	for name := range opts.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	names = append(names, opts.Missing...)

	for _, name := range names {
		content := []byte(opts.Files[name])
		sum := sha256.Sum256(content)
		preview, err := uvl.ParseHierarchyString(string(content)).MarshalJSON()
		require.NoError(t, err)
		ds.FeatureModels = append(ds.FeatureModels, entity.FeatureModel{
			UVLFilename: name,
			Title:       name,
			Hierarchy:   datatypes.JSON(preview),
			Files: []entity.File{{
				Name:     name,
				Checksum: hex.EncodeToString(sum[:]),
				Size:     int64(len(content)),
			}},
		})
	}

	ds.Metadata.Metrics = entity.DatasetMetrics{
		NumberOfModels:   strconv.Itoa(len(ds.FeatureModels)),
		NumberOfFeatures: strconv.Itoa(opts.Features),
	}

	require.NoError(t, db.Create(ds).Error)

	for name, content := range opts.Files {
		_, err := store.Put(context.Background(), ds.StorageKey(name), bytes.NewReader([]byte(content)))
		require.NoError(t, err)
	}

	if opts.Published {
		doi := entity.DatasetDOI(ds.ID)
		require.NoError(t, db.Model(&ds.Metadata).Update("dataset_doi", doi).Error)
		require.NoError(t, db.Model(ds).Update("status", entity.StatusPublished).Error)
		ds.Metadata.DatasetDOI = &doi
		ds.Status = entity.StatusPublished
	}

	return ds
}
