package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/convert"
	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"github.com/kerem-kaynak/uvlhub/internal/testutil"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	entries := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		entries[f.Name] = string(content)
	}
	return entries
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type archiveFixture struct {
	archiver *Archiver
	make     func(opts testutil.DatasetOptions) *entity.Dataset
}

func newArchiveFixture(t *testing.T) *archiveFixture {
	t.Helper()
	db := testutil.NewDB(t)
	store := testutil.NewStore(t)
	owner := testutil.CreateUser(t, db, "owner@example.com")

	archiver := NewArchiver(store, testutil.NewLogger())
	archiver.TempDir = t.TempDir()

	return &archiveFixture{
		archiver: archiver,
		make: func(opts testutil.DatasetOptions) *entity.Dataset {
			return testutil.CreateDataset(t, db, store, owner, opts)
		},
	}
}

func TestDatasetArchive_AllFormats(t *testing.T) {
	f := newArchiveFixture(t)
	ds := f.make(testutil.DatasetOptions{
		Published: true,
		Files:     map[string]string{"chat.uvl": testutil.ChatModel},
	})

	for _, format := range convert.Formats {
		t.Run(string(format), func(t *testing.T) {
			archive, err := f.archiver.DatasetArchive(context.Background(), ds, format)
			require.NoError(t, err)
			defer archive.Cleanup()

			assert.Equal(t, DatasetArchiveName(ds), archive.Name)
			assert.Equal(t, 1, archive.Files)

			entries := readArchive(t, archive.Path)
			name := datasetFolder(ds) + "/" + format.Filename("chat.uvl")
			require.Contains(t, entries, name)
			if format == convert.UVL {
				assert.Equal(t, testutil.ChatModel, entries[name])
			} else {
				assert.NotEmpty(t, entries[name])
			}
		})
	}
}

func TestDatasetArchive_FailsWhole(t *testing.T) {
	f := newArchiveFixture(t)
	ds := f.make(testutil.DatasetOptions{
		Published: true,
		Files:     map[string]string{"chat.uvl": testutil.ChatModel},
		Missing:   []string{"gone.uvl"},
	})

	archive, err := f.archiver.DatasetArchive(context.Background(), ds, convert.DIMACS)
	require.Error(t, err)
	assert.Nil(t, archive)
	assert.True(t, apperr.Is(err, apperr.KindConversion))

	left, err := os.ReadDir(f.archiver.TempDir)
	require.NoError(t, err)
	assert.Empty(t, left, "temporary directory must be removed")
}

func TestBulkArchive_SkipsFailures(t *testing.T) {
	f := newArchiveFixture(t)
	good := f.make(testutil.DatasetOptions{
		Published: true,
		Files:     map[string]string{"chat.uvl": testutil.ChatModel},
		Missing:   []string{"lost.uvl"},
	})
	missing := f.make(testutil.DatasetOptions{Published: true, Missing: []string{"gone.uvl"}})
	empty := f.make(testutil.DatasetOptions{Published: true})

	archive, err := f.archiver.BulkArchive(context.Background(), []entity.Dataset{*good, *missing, *empty}, convert.SPLOT)
	require.NoError(t, err)
	defer archive.Cleanup()

	assert.Equal(t, BulkArchiveName, archive.Name)
	assert.Equal(t, 1, archive.Files)
	entries := readArchive(t, archive.Path)
	assert.Equal(t, []string{datasetFolder(good) + "/chat.uvl_splot.txt"}, keys(entries))
}

func TestBulkArchive_PlaceholderWhenNothingAdded(t *testing.T) {
	f := newArchiveFixture(t)
	missing := f.make(testutil.DatasetOptions{Published: true, Missing: []string{"gone.uvl"}})
	empty := f.make(testutil.DatasetOptions{Published: true})

	archive, err := f.archiver.BulkArchive(context.Background(), []entity.Dataset{*missing, *empty}, convert.UVL)
	require.NoError(t, err)

	assert.Zero(t, archive.Files)
	entries := readArchive(t, archive.Path)
	assert.Equal(t, map[string]string{placeholderName: placeholderText}, entries)

	dir := filepath.Dir(archive.Path)
	require.NoError(t, archive.Cleanup())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
