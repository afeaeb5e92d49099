package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/kerem-kaynak/uvlhub/internal/entity"
)

type AuthorSummary struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
	ORCID       string `json:"orcid"`
}

// UserSummary is the public view of an account. It never carries the email.
type UserSummary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	Affiliation string `json:"affiliation"`
	ORCID       string `json:"orcid"`
}

func SummarizeUser(u *entity.User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Surname: u.Surname, Affiliation: u.Affiliation, ORCID: u.ORCID}
}

// DatasetSummary is the public JSON view of a dataset.
type DatasetSummary struct {
	ID                     uint            `json:"id"`
	Title                  string          `json:"title"`
	Description            string          `json:"description"`
	Status                 string          `json:"status"`
	Authors                []AuthorSummary `json:"authors"`
	PublicationType        string          `json:"publication_type"`
	PublicationDOI         string          `json:"publication_doi"`
	DatasetDOI             string          `json:"dataset_doi"`
	Tags                   []string        `json:"tags"`
	URL                    string          `json:"url"`
	DownloadURL            string          `json:"download"`
	CreatedAt              time.Time       `json:"created_at"`
	FilesCount             int             `json:"files_count"`
	TotalSizeInBytes       int64           `json:"total_size_in_bytes"`
	TotalSizeInHumanFormat string          `json:"total_size_in_human_format"`
	NumberOfModels         string          `json:"number_of_models"`
	NumberOfFeatures       string          `json:"number_of_features"`
}

func SummarizeDataset(ds *entity.Dataset, baseURL string) DatasetSummary {
	baseURL = strings.TrimRight(baseURL, "/")

	authors := make([]AuthorSummary, 0, len(ds.Metadata.Authors))
	for _, a := range ds.Metadata.Authors {
		authors = append(authors, AuthorSummary{Name: a.Name, Affiliation: a.Affiliation, ORCID: a.ORCID})
	}

	tags := ds.Metadata.TagList()
	if tags == nil {
		tags = []string{}
	}

	url := fmt.Sprintf("%s/dataset/unsynchronized/%d/", baseURL, ds.ID)
	if doi := ds.DOI(); doi != "" {
		url = fmt.Sprintf("%s/doi/%s/", baseURL, doi)
	}

	size := ds.TotalSize()
	return DatasetSummary{
		ID:                     ds.ID,
		Title:                  ds.Metadata.Title,
		Description:            ds.Metadata.Description,
		Status:                 string(ds.Status),
		Authors:                authors,
		PublicationType:        ds.Metadata.PublicationType.External(),
		PublicationDOI:         ds.Metadata.PublicationDOI,
		DatasetDOI:             ds.DOI(),
		Tags:                   tags,
		URL:                    url,
		DownloadURL:            fmt.Sprintf("%s/dataset/download/%d", baseURL, ds.ID),
		CreatedAt:              ds.CreatedAt,
		FilesCount:             len(ds.Files()),
		TotalSizeInBytes:       size,
		TotalSizeInHumanFormat: HumanSize(size),
		NumberOfModels:         ds.Metadata.Metrics.NumberOfModels,
		NumberOfFeatures:       ds.Metadata.Metrics.NumberOfFeatures,
	}
}

func SummarizeDatasets(datasets []entity.Dataset, baseURL string) []DatasetSummary {
	out := make([]DatasetSummary, 0, len(datasets))
	for i := range datasets {
		out = append(out, SummarizeDataset(&datasets[i], baseURL))
	}
	return out
}

// HumanSize formats a byte count in binary units.
func HumanSize(size int64) string {
	const unit = 1024
	switch {
	case size < unit:
		return fmt.Sprintf("%d bytes", size)
	case size < unit*unit:
		return fmt.Sprintf("%.2f KB", float64(size)/unit)
	case size < unit*unit*unit:
		return fmt.Sprintf("%.2f MB", float64(size)/(unit*unit))
	default:
		return fmt.Sprintf("%.2f GB", float64(size)/(unit*unit*unit))
	}
}
