package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

const (
	SortNewest = "newest"
	SortOldest = "oldest"

	AnyPublicationType = "any"
)

// Bound is an optional non-negative range limit. It decodes from a JSON
// number, a numeric string, an empty string or null.
type Bound struct {
	Value int
	Set   bool
}

func (b *Bound) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = Bound{}
		return nil
	}

	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*b = Bound{}
			return nil
		}
	} else {
		raw = string(data)
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid bound %q", raw)
	}
	*b = Bound{Value: n, Set: true}
	return nil
}

// Criteria is an explore request. Sorting and PublicationType are nil when
// the request omitted them.
type Criteria struct {
	Query           string   `json:"query"`
	Sorting         *string  `json:"sorting"`
	PublicationType *string  `json:"publication_type"`
	Tags            []string `json:"tags"`
	MinFeatures     Bound    `json:"min_features"`
	MaxFeatures     Bound    `json:"max_features"`
	MinProducts     Bound    `json:"min_products"`
	MaxProducts     Bound    `json:"max_products"`
}

var ErrMissingCriteria = apperr.NewValidation(map[string][]string{
	"sorting":          {"This field is required."},
	"publication_type": {"This field is required."},
})

// Validate rejects incomplete requests, negative bounds and inverted ranges.
func (c *Criteria) Validate() error {
	if c.Sorting == nil || c.PublicationType == nil {
		return ErrMissingCriteria
	}

	fields := make(map[string][]string)
	checkRange := func(minName, maxName string, lo, hi Bound) {
		if lo.Set && lo.Value < 0 {
			fields[minName] = append(fields[minName], minName+" must be a non-negative integer")
		}
		if hi.Set && hi.Value < 0 {
			fields[maxName] = append(fields[maxName], maxName+" must be a non-negative integer")
		}
		if lo.Set && hi.Set && lo.Value > hi.Value {
			fields[minName] = append(fields[minName], minName+" cannot be greater than "+maxName)
		}
	}
	checkRange("min_features", "max_features", c.MinFeatures, c.MaxFeatures)
	checkRange("min_products", "max_products", c.MinProducts, c.MaxProducts)

	if len(fields) > 0 {
		return apperr.NewValidation(fields)
	}
	return nil
}

// SortKey falls back to newest for unknown values.
func (c *Criteria) SortKey() string {
	if c.Sorting != nil && *c.Sorting == SortOldest {
		return SortOldest
	}
	return SortNewest
}

var queryPunctuation = strings.NewReplacer(
	",", "", ".", "", `"`, "", ":", "", "'", "", "(", "", ")", "",
	"[", "", "]", "", "^", "", ";", "", "!", "", "¡", "", "¿", "", "?", "",
)

// NormalizeQuery strips diacritics and punctuation, lower-cases and splits
// the free text into terms.
func NormalizeQuery(query string) []string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, query)
	if err != nil {
		folded = query
	}
	folded = queryPunctuation.Replace(strings.ToLower(folded))
	return strings.Fields(folded)
}

// searchColumns are matched by every query term.
var searchColumns = []string{
	"ds_meta_data.title",
	"ds_meta_data.description",
	"authors.name",
	"authors.affiliation",
	"authors.orcid",
	"feature_models.uvl_filename",
	"feature_models.title",
	"feature_models.description",
	"feature_models.publication_doi",
	"feature_models.tags",
	"ds_meta_data.tags",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

func likeClause(column string) string {
	return "LOWER(" + column + `) LIKE ? ESCAPE '\'`
}

// ExploreService filters published datasets by metadata.
type ExploreService struct {
	db *gorm.DB
}

func NewExploreService(db *gorm.DB) *ExploreService {
	return &ExploreService{db: db}
}

// Filter returns the published datasets matching c. Terms are OR-ed across
// every searchable column; an empty query matches everything.
func (s *ExploreService) Filter(ctx context.Context, c Criteria) ([]entity.Dataset, error) {
	matching := s.db.WithContext(ctx).
		Model(&entity.Dataset{}).
		Select("datasets.id").
		Joins("JOIN ds_meta_data ON ds_meta_data.dataset_id = datasets.id AND ds_meta_data.deleted_at IS NULL").
		Joins("LEFT JOIN ds_meta_data_authors ON ds_meta_data_authors.dataset_metadata_id = ds_meta_data.id").
		Joins("LEFT JOIN authors ON authors.id = ds_meta_data_authors.author_id AND authors.deleted_at IS NULL").
		Joins("LEFT JOIN feature_models ON feature_models.dataset_id = datasets.id AND feature_models.deleted_at IS NULL").
		Where("ds_meta_data.dataset_doi IS NOT NULL").
		Where("datasets.status = ?", entity.StatusPublished)

	if terms := NormalizeQuery(c.Query); len(terms) > 0 {
		var parts []string
		var args []interface{}
		for _, term := range terms {
			pattern := containsPattern(term)
			for _, col := range searchColumns {
				parts = append(parts, likeClause(col))
				args = append(args, pattern)
			}
		}
		matching = matching.Where("("+strings.Join(parts, " OR ")+")", args...)
	}

	var tagParts []string
	var tagArgs []interface{}
	for _, tag := range c.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tagParts = append(tagParts, likeClause("ds_meta_data.tags"))
			tagArgs = append(tagArgs, containsPattern(tag))
		}
	}
	if len(tagParts) > 0 {
		matching = matching.Where("("+strings.Join(tagParts, " OR ")+")", tagArgs...)
	}

	if c.PublicationType != nil && !strings.EqualFold(*c.PublicationType, AnyPublicationType) {
		if pt, ok := entity.ParsePublicationType(*c.PublicationType); ok {
			matching = matching.Where("ds_meta_data.publication_type = ?", pt)
		}
	}

	const features = "CAST(NULLIF(ds_meta_data.metrics_number_of_features, '') AS INTEGER)"
	const models = "CAST(NULLIF(ds_meta_data.metrics_number_of_models, '') AS INTEGER)"
	if c.MinFeatures.Set {
		matching = matching.Where(features+" >= ?", c.MinFeatures.Value)
	}
	if c.MaxFeatures.Set {
		matching = matching.Where(features+" <= ?", c.MaxFeatures.Value)
	}
	if c.MinProducts.Set {
		matching = matching.Where(models+" >= ?", c.MinProducts.Value)
	}
	if c.MaxProducts.Set {
		matching = matching.Where(models+" <= ?", c.MaxProducts.Value)
	}

	order := "datasets.created_at DESC, datasets.id DESC"
	if c.SortKey() == SortOldest {
		order = "datasets.created_at ASC, datasets.id ASC"
	}

	var datasets []entity.Dataset
	err := preloadDataset(s.db.WithContext(ctx)).
		Where("datasets.id IN (?)", matching).
		Order(order).
		Find(&datasets).Error
	if err != nil {
		return nil, apperr.FromDB(err, "explore datasets", "Dataset")
	}
	return datasets, nil
}
