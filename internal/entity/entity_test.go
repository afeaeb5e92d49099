package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	HashCost = bcrypt.MinCost
}

func TestNewUser_HashesSecrets(t *testing.T) {
	user, err := NewUser(" user@example.com ", "s3cret", SecurityAnswers{"Seville", "Ms. Ruiz", "chess"})
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", user.Email)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
	assert.NotEqual(t, "Seville", user.SecurityAnswer1)
	assert.True(t, user.CheckPassword("s3cret"))
	assert.False(t, user.CheckPassword("wrong"))
	assert.True(t, user.CheckSecurityAnswers(SecurityAnswers{"Seville", "Ms. Ruiz", "chess"}))
	assert.False(t, user.CheckSecurityAnswers(SecurityAnswers{"Seville", "Ms. Ruiz", "poker"}))
}

func TestNewUser_RequiresCredentials(t *testing.T) {
	_, err := NewUser("", "pw", SecurityAnswers{})
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = NewUser("a@b.c", "", SecurityAnswers{})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestUser_MissingAnswersNeverMatch(t *testing.T) {
	user, err := NewUser("a@b.c", "pw", SecurityAnswers{})
	require.NoError(t, err)

	assert.Empty(t, user.SecurityAnswer1)
	assert.False(t, user.CheckSecurityAnswers(SecurityAnswers{"", "", ""}))
}

func TestUser_ResetPassword(t *testing.T) {
	user, err := NewUser("a@b.c", "old", SecurityAnswers{})
	require.NoError(t, err)

	require.NoError(t, user.ResetPassword("new"))
	assert.True(t, user.CheckPassword("new"))
	assert.False(t, user.CheckPassword("old"))
}

func TestPublicationType(t *testing.T) {
	tests := []struct {
		in   string
		want PublicationType
	}{
		{"article", PublicationJournalArticle},
		{"JOURNAL_ARTICLE", PublicationJournalArticle},
		{"Thesis", PublicationThesis},
		{"softwaredocumentation", PublicationSoftwareDocumentation},
		{"none", PublicationNone},
		{"section", PublicationBookSection},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParsePublicationType(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := ParsePublicationType("invalid_type")
	assert.False(t, ok)

	assert.Equal(t, "article", PublicationJournalArticle.External())
	assert.Empty(t, PublicationType("BOGUS").External())
	assert.True(t, PublicationType("").IsNone())
	assert.Len(t, PublicationTypes(), 19)
}

func TestDataset_Helpers(t *testing.T) {
	doi := DatasetDOI(7)
	ds := Dataset{
		UserID: 3,
		Status: StatusPublished,
		Metadata: DatasetMetadata{
			DatasetDOI: &doi,
			Tags:       "uvl, ,feature models,",
		},
		FeatureModels: []FeatureModel{
			{Files: []File{{Name: "a.uvl", Size: 10}}},
			{Files: []File{{Name: "b.uvl", Size: 5}, {Name: "c.uvl", Size: 1}}},
		},
	}
	ds.ID = 7

	assert.Equal(t, "10.1234/dataset7", ds.DOI())
	assert.True(t, ds.IsPublished())
	assert.True(t, ds.OwnedBy(3))
	assert.Len(t, ds.Files(), 3)
	assert.Equal(t, int64(16), ds.TotalSize())
	assert.Equal(t, "user_3/dataset_7/a.uvl", ds.StorageKey("a.uvl"))
	assert.Equal(t, []string{"uvl", "feature models"}, ds.Metadata.TagList())

	draft := Dataset{Status: StatusDraft}
	assert.True(t, draft.IsDraft())
	assert.False(t, draft.IsPublished())
	assert.Empty(t, draft.DOI())
}
