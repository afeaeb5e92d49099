package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/convert"
	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

const (
	BulkArchiveName = "all_datasets.zip"
	placeholderName = "README.txt"
	placeholderText = "No files were available for download in the selected format."
)

// Archive is a zip file staged in a private temporary directory.
type Archive struct {
	Path string
	Name string
	// Files is the number of dataset files written.
	Files int
	dir   string
}

// Cleanup removes the archive and its staging directory.
func (a *Archive) Cleanup() error {
	return os.RemoveAll(a.dir)
}

// Archiver bundles dataset files, converted on the fly, into zip archives.
// Archiving only reads dataset state.
type Archiver struct {
	converter *convert.Converter
	logger    *zap.Logger
	// TempDir is the parent of staging directories, the system default when
	// empty.
	TempDir string
	now     func() time.Time
}

func NewArchiver(source convert.Source, logger *zap.Logger) *Archiver {
	return &Archiver{converter: convert.NewConverter(source), logger: logger, now: time.Now}
}

func datasetFolder(ds *entity.Dataset) string {
	return fmt.Sprintf("dataset_%d", ds.ID)
}

func DatasetArchiveName(ds *entity.Dataset) string {
	return datasetFolder(ds) + ".zip"
}

// DatasetArchive builds the archive of one dataset. Any file that cannot be
// read or converted fails the whole archive.
func (a *Archiver) DatasetArchive(ctx context.Context, ds *entity.Dataset, format convert.Format) (*Archive, error) {
	return a.build(DatasetArchiveName(ds), func(zw *zip.Writer) (int, error) {
		added := 0
		for _, f := range ds.Files() {
			result, err := a.converter.ConvertFile(ctx, ds.StorageKey(f.Name), f.Name, format)
			if err != nil {
				a.logger.Error("Failed to convert dataset file",
					zap.Uint("dataset_id", ds.ID),
					zap.String("file", f.Name),
					zap.String("format", string(format)),
					zap.Error(err),
				)
				return added, err
			}
			if err := a.write(zw, datasetFolder(ds)+"/"+result.Filename, result.Content); err != nil {
				return added, err
			}
			added++
		}
		return added, nil
	})
}

// BulkArchive builds one archive over datasets. Files that cannot be read or
// converted are logged and skipped; when nothing is added the archive holds
// a placeholder entry.
func (a *Archiver) BulkArchive(ctx context.Context, datasets []entity.Dataset, format convert.Format) (*Archive, error) {
	return a.build(BulkArchiveName, func(zw *zip.Writer) (int, error) {
		added := 0
		for i := range datasets {
			ds := &datasets[i]
			files := ds.Files()
			if len(files) == 0 {
				continue
			}

			processed := 0
			for _, f := range files {
				result, err := a.converter.ConvertFile(ctx, ds.StorageKey(f.Name), f.Name, format)
				if err != nil {
					a.logger.Warn("Skipping dataset file",
						zap.Uint("dataset_id", ds.ID),
						zap.String("file", f.Name),
						zap.String("format", string(format)),
						zap.Error(err),
					)
					continue
				}
				if err := a.write(zw, datasetFolder(ds)+"/"+result.Filename, result.Content); err != nil {
					return added, err
				}
				processed++
				added++
			}

			if processed == 0 {
				a.logger.Warn("No files were processed for dataset", zap.Uint("dataset_id", ds.ID))
			}
		}

		if added == 0 {
			if err := a.write(zw, placeholderName, []byte(placeholderText)); err != nil {
				return added, err
			}
		}
		return added, nil
	})
}

// build stages name in a fresh directory. The directory is removed when
// fill or the zip container fails.
func (a *Archiver) build(name string, fill func(*zip.Writer) (int, error)) (archive *Archive, err error) {
	dir, err := os.MkdirTemp(a.TempDir, "uvlhub-download-*")
	if err != nil {
		return nil, apperr.NewInfrastructure("create archive directory", err)
	}
	defer func() {
		if err != nil {
			if rerr := os.RemoveAll(dir); rerr != nil {
				a.logger.Error("Failed to clean temporary files", zap.String("dir", dir), zap.Error(rerr))
			}
		}
	}()

	zipPath := filepath.Join(dir, name)
	//nolint:gosec // G304: path is inside our own temporary directory
	f, err := os.Create(zipPath)
	if err != nil {
		return nil, apperr.NewInfrastructure("create zip archive", err)
	}

	zw := zip.NewWriter(f)
	added, fillErr := fill(zw)
	closeErr := zw.Close()
	fileErr := f.Close()

	if fillErr != nil {
		return nil, fillErr
	}
	if closeErr != nil {
		return nil, apperr.NewInfrastructure("finish zip archive", closeErr)
	}
	if fileErr != nil {
		return nil, apperr.NewInfrastructure("close zip archive", fileErr)
	}

	return &Archive{Path: zipPath, Name: name, Files: added, dir: dir}, nil
}

func (a *Archiver) write(zw *zip.Writer, name string, content []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: a.now(),
	})
	if err != nil {
		return apperr.NewInfrastructure("add zip entry", err)
	}
	if _, err := w.Write(content); err != nil {
		return apperr.NewInfrastructure("write zip entry", err)
	}
	return nil
}
