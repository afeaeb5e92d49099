package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const depositionKeyword = "uvlhub"

// Creator is an author as the deposit service expects it.
type Creator struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	ORCID       string `json:"orcid,omitempty"`
}

// DepositionMetadata is the descriptive record registered on publication.
type DepositionMetadata struct {
	Title           string                     `json:"title"`
	UploadType      string                     `json:"upload_type"`
	PublicationType *string                    `json:"publication_type"`
	Description     string                     `json:"description"`
	Creators        []Creator                  `json:"creators"`
	Keywords        []string                   `json:"keywords"`
	AccessRight     string                     `json:"access_right"`
	License         string                     `json:"license"`
	DOI             string                     `json:"doi,omitempty"`
	Models          map[string]json.RawMessage `json:"models,omitempty"`
}

// Depositor registers dataset metadata with an archival deposit service and
// returns the deposition id.
type Depositor interface {
	CreateDeposition(ctx context.Context, metadata DepositionMetadata) (uint, error)
}

// BuildDepositionMetadata describes ds, which must be loaded with its
// metadata, authors and feature models.
func BuildDepositionMetadata(ds *entity.Dataset, doi string) DepositionMetadata {
	md := ds.Metadata

	meta := DepositionMetadata{
		Title:       md.Title,
		UploadType:  "dataset",
		Description: md.Description,
		Creators:    make([]Creator, 0, len(md.Authors)),
		Keywords:    append(md.TagList(), depositionKeyword),
		AccessRight: "open",
		License:     "CC-BY-4.0",
		DOI:         doi,
	}

	if !md.PublicationType.IsNone() {
		external := md.PublicationType.External()
		meta.UploadType = "publication"
		meta.PublicationType = &external
	}

	for _, a := range md.Authors {
		meta.Creators = append(meta.Creators, Creator{Name: a.Name, Affiliation: a.Affiliation, ORCID: a.ORCID})
	}

	for _, fm := range ds.FeatureModels {
		if len(fm.Hierarchy) == 0 {
			continue
		}
		if meta.Models == nil {
			meta.Models = make(map[string]json.RawMessage)
		}
		stem := strings.TrimSuffix(fm.UVLFilename, path.Ext(fm.UVLFilename))
		meta.Models[stem] = json.RawMessage(fm.Hierarchy)
	}

	return meta
}

// Fakenodo is a local deposit service keeping depositions in the database.
type Fakenodo struct {
	db *gorm.DB
}

func NewFakenodo(db *gorm.DB) *Fakenodo {
	return &Fakenodo{db: db}
}

func (f *Fakenodo) CreateDeposition(ctx context.Context, metadata DepositionMetadata) (uint, error) {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to encode deposition metadata: %w", err)
	}

	deposition := entity.Deposition{Metadata: datatypes.JSON(raw)}
	if err := f.db.WithContext(ctx).Create(&deposition).Error; err != nil {
		return 0, apperr.FromDB(err, "create deposition", "deposition")
	}
	return deposition.ID, nil
}

func (f *Fakenodo) GetDeposition(ctx context.Context, id uint) (*entity.Deposition, error) {
	var deposition entity.Deposition
	if err := f.db.WithContext(ctx).First(&deposition, id).Error; err != nil {
		return nil, apperr.FromDB(err, "get deposition", "Deposition")
	}
	return &deposition, nil
}
