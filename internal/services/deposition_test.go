package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"github.com/kerem-kaynak/uvlhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDepositionMetadata_NoPublication(t *testing.T) {
	ds := &entity.Dataset{Metadata: entity.DatasetMetadata{
		Title:           "Plain",
		PublicationType: entity.PublicationNone,
		Authors:         []entity.Author{{Name: "Lovelace, Ada", Affiliation: "Analytical Society"}},
	}}

	meta := BuildDepositionMetadata(ds, "")
	assert.Equal(t, "dataset", meta.UploadType)
	assert.Nil(t, meta.PublicationType)
	assert.Equal(t, []string{"uvlhub"}, meta.Keywords)
	assert.Equal(t, []Creator{{Name: "Lovelace, Ada", Affiliation: "Analytical Society"}}, meta.Creators)
	assert.Nil(t, meta.Models)

	raw, err := json.Marshal(meta)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"publication_type":null`)
	assert.NotContains(t, string(raw), `"doi"`)
}

func TestBuildDepositionMetadata_Publication(t *testing.T) {
	ds := &entity.Dataset{
		Metadata: entity.DatasetMetadata{
			Title:           "Cars",
			PublicationType: entity.PublicationConferencePaper,
			Tags:            "cars, automotive",
		},
		FeatureModels: []entity.FeatureModel{
			{UVLFilename: "engine.uvl", Hierarchy: []byte(`{"name":"Engine"}`)},
			{UVLFilename: "empty.uvl"},
		},
	}

	meta := BuildDepositionMetadata(ds, "10.1234/dataset3")
	assert.Equal(t, "publication", meta.UploadType)
	require.NotNil(t, meta.PublicationType)
	assert.Equal(t, "conferencepaper", *meta.PublicationType)
	assert.Equal(t, []string{"cars", "automotive", "uvlhub"}, meta.Keywords)
	assert.Equal(t, "10.1234/dataset3", meta.DOI)
	assert.Equal(t, map[string]json.RawMessage{"engine": json.RawMessage(`{"name":"Engine"}`)}, meta.Models)
}

func TestFakenodo(t *testing.T) {
	db := testutil.NewDB(t)
	fakenodo := NewFakenodo(db)
	ctx := context.Background()

	id, err := fakenodo.CreateDeposition(ctx, DepositionMetadata{Title: "Stored", UploadType: "dataset"})
	require.NoError(t, err)
	assert.NotZero(t, id)

	deposition, err := fakenodo.GetDeposition(ctx, id)
	require.NoError(t, err)

	var got DepositionMetadata
	require.NoError(t, json.Unmarshal(deposition.Metadata, &got))
	assert.Equal(t, "Stored", got.Title)

	_, err = fakenodo.GetDeposition(ctx, id+100)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
