package utils

import (
	"fmt"

	"github.com/kerem-kaynak/uvlhub/internal/entity"
)

func DatasetToDocument(dataset *entity.Dataset) map[string]interface{} {
	authors := make([]string, 0, len(dataset.Metadata.Authors))
	for _, a := range dataset.Metadata.Authors {
		authors = append(authors, a.Name)
	}

	return map[string]interface{}{
		"id":               fmt.Sprintf("dataset-%d", dataset.ID),
		"type":             "dataset",
		"name":             dataset.Metadata.Title,
		"description":      dataset.Metadata.Description,
		"tags":             dataset.Metadata.TagList(),
		"authors":          authors,
		"publication_type": dataset.Metadata.PublicationType.External(),
		"dataset_id":       dataset.ID,
		"dataset_doi":      dataset.DOI(),
	}
}

func FeatureModelToDocument(dataset *entity.Dataset, fm *entity.FeatureModel) map[string]interface{} {
	return map[string]interface{}{
		"id":           fmt.Sprintf("feature-model-%d", fm.ID),
		"type":         "feature_model",
		"name":         fm.Title,
		"description":  fm.Description,
		"uvl_filename": fm.UVLFilename,
		"tags":         entity.SplitTags(fm.Tags),
		"parent_id":    fmt.Sprintf("dataset-%d", dataset.ID),
		"dataset_id":   dataset.ID,
		"dataset_name": dataset.Metadata.Title,
		"dataset_doi":  dataset.DOI(),
	}
}

// DatasetDocuments lists the search documents of a published dataset.
func DatasetDocuments(dataset *entity.Dataset) []map[string]interface{} {
	docs := []map[string]interface{}{DatasetToDocument(dataset)}
	for i := range dataset.FeatureModels {
		docs = append(docs, FeatureModelToDocument(dataset, &dataset.FeatureModels[i]))
	}
	return docs
}
