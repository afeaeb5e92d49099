package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/convert"
	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"github.com/kerem-kaynak/uvlhub/internal/storage"
	"github.com/kerem-kaynak/uvlhub/internal/utils"
	"github.com/kerem-kaynak/uvlhub/internal/uvl"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	errNotOwner         = apperr.NewAuthorization("You are not the owner of this dataset")
	errAlreadyPublished = apperr.NewAuthorization("Dataset is already published")
)

// DatasetService drives a dataset from the staging area through draft to
// published.
type DatasetService struct {
	DB        *gorm.DB
	Logger    *zap.Logger
	Store     storage.Store
	Staging   *storage.Staging
	Depositor Depositor
	// Indexer and Mailer are optional; their failures never undo a publish.
	Indexer Indexer
	Mailer  Mailer
	// BaseURL prefixes dataset links in notices.
	BaseURL string
}

// preloadDataset loads everything a dataset view needs.
func preloadDataset(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Metadata.Authors").
		Preload("FeatureModels", func(db *gorm.DB) *gorm.DB { return db.Order("feature_models.id") }).
		Preload("FeatureModels.Authors").
		Preload("FeatureModels.Files", func(db *gorm.DB) *gorm.DB { return db.Order("files.id") })
}

func (s *DatasetService) Get(ctx context.Context, id uint) (*entity.Dataset, error) {
	var ds entity.Dataset
	if err := preloadDataset(s.DB.WithContext(ctx)).First(&ds, id).Error; err != nil {
		return nil, apperr.FromDB(err, "get dataset", "Dataset")
	}
	return &ds, nil
}

// GetVisible returns a dataset if requester may see it: published datasets
// are public, drafts only reach their owner. requester is 0 for anonymous
// visitors.
func (s *DatasetService) GetVisible(ctx context.Context, id, requester uint) (*entity.Dataset, error) {
	ds, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !utils.UserHasDatasetAccess(ds, requester) {
		return nil, apperr.NewNotFound("Dataset not found")
	}
	return ds, nil
}

func (s *DatasetService) CreateDraft(ctx context.Context, owner *entity.User, input DatasetInput) (*entity.Dataset, error) {
	trimDatasetInput(&input)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	pubType, err := parsePublicationType("publication_type", input.PublicationType)
	if err != nil {
		return nil, err
	}

	ds := &entity.Dataset{
		UserID: owner.ID,
		Status: entity.StatusDraft,
		Metadata: entity.DatasetMetadata{
			Title:           input.Title,
			Description:     input.Description,
			PublicationType: pubType,
			PublicationDOI:  input.PublicationDOI,
			Tags:            input.Tags,
			Authors:         datasetAuthors(owner, input.Authors),
		},
	}

	contents := make(map[string][]byte, len(input.FeatureModels))
	totalFeatures := 0
	for i, fmInput := range input.FeatureModels {
		field := fmt.Sprintf("feature_models[%d].uvl_filename", i)
		name := fmInput.UVLFilename

		if !convert.IsUVLFilename(name) {
			return nil, apperr.Validationf(field, "Only .uvl files are accepted.")
		}
		if _, dup := contents[name]; dup {
			return nil, apperr.Validationf(field, "File %s is listed twice.", name)
		}

		content, err := s.Staging.ReadFile(owner.ID, name)
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidFilename) {
			return nil, apperr.Validationf(field, "File %s was not uploaded.", name)
		}
		if err != nil {
			return nil, apperr.NewInfrastructure("read staged file", err)
		}
		contents[name] = content

		fm, features, err := buildFeatureModel(i, fmInput, content)
		if err != nil {
			return nil, err
		}
		totalFeatures += features
		ds.FeatureModels = append(ds.FeatureModels, *fm)
	}

	ds.Metadata.Metrics = entity.DatasetMetrics{
		NumberOfModels:   strconv.Itoa(len(ds.FeatureModels)),
		NumberOfFeatures: strconv.Itoa(totalFeatures),
	}

	var written []string
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ds).Error; err != nil {
			return apperr.FromDB(err, "create dataset", "Dataset")
		}
		for _, fm := range ds.FeatureModels {
			key := ds.StorageKey(fm.UVLFilename)
			if _, err := s.Store.Put(ctx, key, bytes.NewReader(contents[fm.UVLFilename])); err != nil {
				return apperr.NewInfrastructure("store dataset file", err)
			}
			written = append(written, key)
		}
		return nil
	})
	if err != nil {
		for _, key := range written {
			if derr := s.Store.Delete(ctx, key); derr != nil {
				s.Logger.Warn("Failed to remove orphaned dataset file", zap.String("key", key), zap.Error(derr))
			}
		}
		return nil, err
	}

	if err := s.Staging.Clear(owner.ID); err != nil {
		s.Logger.Warn("Failed to clear staging area", zap.Uint("user_id", owner.ID), zap.Error(err))
	}

	s.Logger.Info("Created dataset draft",
		zap.Uint("dataset_id", ds.ID),
		zap.Uint("user_id", owner.ID),
		zap.Int("feature_models", len(ds.FeatureModels)),
		zap.Int("features", totalFeatures),
	)
	return ds, nil
}

func buildFeatureModel(i int, input FeatureModelInput, content []byte) (*entity.FeatureModel, int, error) {
	pubType, err := parsePublicationType(fmt.Sprintf("feature_models[%d].publication_type", i), input.PublicationType)
	if err != nil {
		return nil, 0, err
	}

	hierarchy, err := uvl.ParseHierarchy(bytes.NewReader(content))
	if err != nil {
		return nil, 0, apperr.Validationf(fmt.Sprintf("feature_models[%d].uvl_filename", i), "File %s could not be read.", input.UVLFilename)
	}
	preview, err := hierarchy.MarshalJSON()
	if err != nil {
		return nil, 0, apperr.NewInfrastructure("encode hierarchy", err)
	}

	features := uvl.CountFeatures(string(content))
	sum := sha256.Sum256(content)

	title := input.Title
	if title == "" {
		title = input.UVLFilename
	}

	authors := make([]entity.Author, 0, len(input.Authors))
	for _, a := range input.Authors {
		authors = append(authors, entity.Author{Name: a.Name, Affiliation: a.Affiliation, ORCID: a.ORCID})
	}

	return &entity.FeatureModel{
		UVLFilename:     input.UVLFilename,
		Title:           title,
		Description:     input.Description,
		PublicationType: pubType,
		PublicationDOI:  input.PublicationDOI,
		Tags:            input.Tags,
		UVLVersion:      input.UVLVersion,
		Hierarchy:       datatypes.JSON(preview),
		Authors:         authors,
		Files: []entity.File{{
			Name:     input.UVLFilename,
			Checksum: hex.EncodeToString(sum[:]),
			Size:     int64(len(content)),
		}},
	}, features, nil
}

// datasetAuthors puts the owner first, followed by the listed co-authors.
func datasetAuthors(owner *entity.User, inputs []AuthorInput) []entity.Author {
	var authors []entity.Author
	if name := owner.AuthorName(); name != "" {
		authors = append(authors, entity.Author{Name: name, Affiliation: owner.Affiliation, ORCID: owner.ORCID})
	}
	for _, a := range inputs {
		authors = append(authors, entity.Author{Name: a.Name, Affiliation: a.Affiliation, ORCID: a.ORCID})
	}
	return authors
}

// GetEditable returns a draft that requester owns.
func (s *DatasetService) GetEditable(ctx context.Context, requester, datasetID uint) (*entity.Dataset, error) {
	ds, err := s.Get(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if !ds.OwnedBy(requester) {
		return nil, errNotOwner
	}
	if !ds.IsDraft() {
		return nil, errAlreadyPublished
	}
	return ds, nil
}

// EditDraft replaces the metadata of a draft owned by requester.
func (s *DatasetService) EditDraft(ctx context.Context, requester, datasetID uint, input EditInput) (*entity.Dataset, error) {
	ds, err := s.GetEditable(ctx, requester, datasetID)
	if err != nil {
		return nil, err
	}

	trimEditInput(&input)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	pubType, err := parsePublicationType("publication_type", input.PublicationType)
	if err != nil {
		return nil, err
	}

	md := &ds.Metadata
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"title":            input.Title,
			"description":      input.Description,
			"publication_type": pubType,
			"publication_doi":  input.PublicationDOI,
			"tags":             input.Tags,
		}
		if err := tx.Model(md).Updates(updates).Error; err != nil {
			return apperr.FromDB(err, "update dataset metadata", "Dataset")
		}

		if input.Authors != nil {
			authors := make([]entity.Author, 0, len(input.Authors))
			for _, a := range input.Authors {
				authors = append(authors, entity.Author{Name: a.Name, Affiliation: a.Affiliation, ORCID: a.ORCID})
			}
			if err := tx.Model(md).Association("Authors").Replace(authors); err != nil {
				return apperr.FromDB(err, "replace dataset authors", "Dataset")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, datasetID)
}

// Publish assigns the dataset DOI, registers the deposition and makes the
// dataset public. A DOI, once set, is never changed.
func (s *DatasetService) Publish(ctx context.Context, requester, datasetID uint) (*entity.Dataset, error) {
	ds, err := s.Get(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if !ds.OwnedBy(requester) {
		return nil, errNotOwner
	}
	if !ds.IsDraft() || ds.Metadata.DatasetDOI != nil {
		return nil, errAlreadyPublished
	}

	doi := entity.DatasetDOI(ds.ID)
	depositionID, err := s.Depositor.CreateDeposition(ctx, BuildDepositionMetadata(ds, doi))
	if err != nil {
		return nil, apperr.NewInfrastructure("register deposition", err)
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.DatasetMetadata{}).
			Where("dataset_id = ? AND dataset_doi IS NULL", ds.ID).
			Updates(map[string]interface{}{"dataset_doi": doi, "deposition_id": depositionID})
		if res.Error != nil {
			return apperr.FromDB(res.Error, "assign dataset doi", "Dataset")
		}
		if res.RowsAffected == 0 {
			return errAlreadyPublished
		}

		res = tx.Model(&entity.Dataset{}).
			Where("id = ? AND status = ?", ds.ID, entity.StatusDraft).
			Update("status", entity.StatusPublished)
		if res.Error != nil {
			return apperr.FromDB(res.Error, "publish dataset", "Dataset")
		}
		if res.RowsAffected == 0 {
			return errAlreadyPublished
		}
		return nil
	})
	if err != nil {
		s.Logger.Error("Deposition registered but dataset was not published",
			zap.String("reconciliation", "orphaned_deposition"),
			zap.Uint("deposition_id", depositionID),
			zap.Uint("dataset_id", ds.ID),
			zap.Error(err),
		)
		return nil, err
	}

	published, err := s.Get(ctx, ds.ID)
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Published dataset", zap.Uint("dataset_id", ds.ID), zap.String("doi", doi), zap.Uint("deposition_id", depositionID))
	s.afterPublish(ctx, published)
	return published, nil
}

func (s *DatasetService) afterPublish(ctx context.Context, ds *entity.Dataset) {
	if s.Indexer != nil {
		if err := s.Indexer.IndexDataset(ctx, ds); err != nil {
			s.Logger.Warn("Failed to index dataset", zap.Uint("dataset_id", ds.ID), zap.Error(err))
		}
	}

	if s.Mailer != nil {
		var owner entity.User
		if err := s.DB.WithContext(ctx).First(&owner, ds.UserID).Error; err != nil {
			s.Logger.Warn("Failed to load dataset owner", zap.Uint("dataset_id", ds.ID), zap.Error(err))
			return
		}
		link := strings.TrimRight(s.BaseURL, "/") + "/doi/" + ds.DOI() + "/"
		if err := s.Mailer.SendPublicationNotice(ctx, &owner, ds, link); err != nil {
			s.Logger.Warn("Failed to send publication notice", zap.Uint("dataset_id", ds.ID), zap.Error(err))
		}
	}
}

// DOIResolution is either a redirect to the current DOI or the dataset.
type DOIResolution struct {
	Redirect string
	Dataset  *entity.Dataset
}

func (s *DatasetService) ResolveDOI(ctx context.Context, doi string) (*DOIResolution, error) {
	doi = strings.Trim(doi, "/ ")

	var mapping entity.DOIMapping
	err := s.DB.WithContext(ctx).Where("dataset_doi_old = ?", doi).Take(&mapping).Error
	if err == nil {
		return &DOIResolution{Redirect: mapping.DatasetDOINew}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.FromDB(err, "find doi mapping", "DOI")
	}

	var ds entity.Dataset
	err = preloadDataset(s.DB.WithContext(ctx)).
		Joins("JOIN ds_meta_data ON ds_meta_data.dataset_id = datasets.id AND ds_meta_data.deleted_at IS NULL").
		Where("ds_meta_data.dataset_doi = ? AND datasets.status = ?", doi, entity.StatusPublished).
		First(&ds).Error
	if err != nil {
		return nil, apperr.FromDB(err, "resolve doi", "DOI")
	}
	return &DOIResolution{Dataset: &ds}, nil
}

// Synchronized lists the published datasets of a user, newest first.
func (s *DatasetService) Synchronized(ctx context.Context, userID uint) ([]entity.Dataset, error) {
	return s.listByStatus(ctx, userID, entity.StatusPublished)
}

// Unsynchronized lists the drafts of a user, newest first.
func (s *DatasetService) Unsynchronized(ctx context.Context, userID uint) ([]entity.Dataset, error) {
	return s.listByStatus(ctx, userID, entity.StatusDraft)
}

func (s *DatasetService) listByStatus(ctx context.Context, userID uint, status entity.DatasetStatus) ([]entity.Dataset, error) {
	var datasets []entity.Dataset
	err := preloadDataset(s.DB.WithContext(ctx)).
		Where("user_id = ? AND status = ?", userID, status).
		Order("created_at DESC, id DESC").
		Find(&datasets).Error
	if err != nil {
		return nil, apperr.FromDB(err, "list datasets", "Dataset")
	}
	return datasets, nil
}

// GetUnsynchronized returns a draft of userID. Other users' drafts and
// published datasets are reported as not found.
func (s *DatasetService) GetUnsynchronized(ctx context.Context, userID, datasetID uint) (*entity.Dataset, error) {
	var ds entity.Dataset
	err := preloadDataset(s.DB.WithContext(ctx)).
		Where("id = ? AND user_id = ? AND status = ?", datasetID, userID, entity.StatusDraft).
		First(&ds).Error
	if err != nil {
		return nil, apperr.FromDB(err, "get unsynchronized dataset", "Dataset")
	}
	return &ds, nil
}

// PublishedByUser lists a user's public datasets.
func (s *DatasetService) PublishedByUser(ctx context.Context, userID uint) (*entity.User, []entity.Dataset, error) {
	var user entity.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, nil, apperr.FromDB(err, "get user", "User")
	}
	datasets, err := s.Synchronized(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return &user, datasets, nil
}

// AllPublished lists every public dataset, oldest first.
func (s *DatasetService) AllPublished(ctx context.Context) ([]entity.Dataset, error) {
	var datasets []entity.Dataset
	err := preloadDataset(s.DB.WithContext(ctx)).
		Joins("JOIN ds_meta_data ON ds_meta_data.dataset_id = datasets.id AND ds_meta_data.deleted_at IS NULL").
		Where("datasets.status = ? AND ds_meta_data.dataset_doi IS NOT NULL", entity.StatusPublished).
		Order("datasets.created_at, datasets.id").
		Find(&datasets).Error
	if err != nil {
		return nil, apperr.FromDB(err, "list published datasets", "Dataset")
	}
	return datasets, nil
}

// GetFeatureModel returns a feature model of a dataset visible to requester.
func (s *DatasetService) GetFeatureModel(ctx context.Context, id, requester uint) (*entity.FeatureModel, error) {
	var fm entity.FeatureModel
	if err := s.DB.WithContext(ctx).First(&fm, id).Error; err != nil {
		return nil, apperr.FromDB(err, "get feature model", "Feature model")
	}
	if _, err := s.GetVisible(ctx, fm.DatasetID, requester); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NewNotFound("Feature model not found")
		}
		return nil, err
	}
	return &fm, nil
}

func parsePublicationType(field, value string) (entity.PublicationType, error) {
	if value == "" {
		return entity.PublicationNone, nil
	}
	pt, ok := entity.ParsePublicationType(value)
	if !ok {
		return "", apperr.Validationf(field, "Not a valid choice.")
	}
	return pt, nil
}

func trimAuthors(authors []AuthorInput) {
	for i := range authors {
		authors[i].Name = strings.TrimSpace(authors[i].Name)
		authors[i].Affiliation = strings.TrimSpace(authors[i].Affiliation)
		authors[i].ORCID = strings.TrimSpace(authors[i].ORCID)
	}
}

func trimDatasetInput(in *DatasetInput) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.PublicationType = strings.TrimSpace(in.PublicationType)
	in.PublicationDOI = strings.TrimSpace(in.PublicationDOI)
	in.Tags = strings.TrimSpace(in.Tags)
	trimAuthors(in.Authors)
	for i := range in.FeatureModels {
		fm := &in.FeatureModels[i]
		fm.UVLFilename = strings.TrimSpace(fm.UVLFilename)
		fm.Title = strings.TrimSpace(fm.Title)
		fm.Description = strings.TrimSpace(fm.Description)
		fm.PublicationType = strings.TrimSpace(fm.PublicationType)
		fm.PublicationDOI = strings.TrimSpace(fm.PublicationDOI)
		fm.Tags = strings.TrimSpace(fm.Tags)
		fm.UVLVersion = strings.TrimSpace(fm.UVLVersion)
		trimAuthors(fm.Authors)
	}
}

func trimEditInput(in *EditInput) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.PublicationType = strings.TrimSpace(in.PublicationType)
	in.PublicationDOI = strings.TrimSpace(in.PublicationDOI)
	in.Tags = strings.TrimSpace(in.Tags)
	trimAuthors(in.Authors)
}
