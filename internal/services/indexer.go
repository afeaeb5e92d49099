package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"github.com/kerem-kaynak/uvlhub/internal/utils"
	"github.com/meilisearch/meilisearch-go"
)

const SearchIndex = "datasets"

// Indexer keeps published datasets searchable.
type Indexer interface {
	IndexDataset(ctx context.Context, ds *entity.Dataset) error
	Search(ctx context.Context, query string) ([]interface{}, error)
}

type MeiliIndexer struct {
	client *meilisearch.Client
	index  string
}

func NewMeiliIndexer(client *meilisearch.Client) *MeiliIndexer {
	return &MeiliIndexer{client: client, index: SearchIndex}
}

func (m *MeiliIndexer) IndexDataset(_ context.Context, ds *entity.Dataset) error {
	_, err := m.client.Index(m.index).AddDocuments(utils.DatasetDocuments(ds))
	if err != nil {
		return fmt.Errorf("failed to index dataset: %w", err)
	}
	return nil
}

// Search runs a quick search. A "ds:" prefix restricts hits to datasets and
// "fm:" to feature models.
func (m *MeiliIndexer) Search(_ context.Context, query string) ([]interface{}, error) {
	var typeFilter string
	var actualQuery string

	switch {
	case strings.HasPrefix(query, "ds:"):
		typeFilter = "type = dataset"
		actualQuery = strings.TrimPrefix(query, "ds:")
	case strings.HasPrefix(query, "fm:"):
		typeFilter = "type = feature_model"
		actualQuery = strings.TrimPrefix(query, "fm:")
	default:
		typeFilter = "type IN [dataset, feature_model]"
		actualQuery = query
	}

	searchParams := &meilisearch.SearchRequest{
		Query:  strings.TrimSpace(actualQuery),
		Filter: typeFilter,
	}

	result, err := m.client.Index(m.index).Search(searchParams.Query, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to perform search: %w", err)
	}
	return result.Hits, nil
}
