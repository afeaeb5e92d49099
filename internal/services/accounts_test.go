package services

import (
	"context"
	"testing"
	"time"

	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"github.com/kerem-kaynak/uvlhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAccounts(t *testing.T) (*AccountService, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return NewAccountService(db, testutil.NewLogger()), db
}

func signupInput(email string) SignupInput {
	return SignupInput{
		Email:    email,
		Password: "secret123",
		Name:     "Grace",
		Surname:  "Hopper",
		Answer1:  "cobol",
		Answer2:  "navy",
		Answer3:  "bug",
	}
}

func TestSignup(t *testing.T) {
	svc, _ := newAccounts(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, signupInput("  Grace@Example.com "))
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", user.Email)
	assert.Equal(t, "Hopper, Grace", user.AuthorName())
	assert.NotEqual(t, "secret123", user.PasswordHash)

	_, err = svc.Signup(ctx, signupInput("grace@example.com"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, apperr.FieldsOf(err), "email")

	bad := signupInput("not-an-email")
	bad.Password = "123"
	_, err = svc.Signup(ctx, bad)
	require.Error(t, err)
	fields := apperr.FieldsOf(err)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newAccounts(t)
	ctx := context.Background()
	created, err := svc.Signup(ctx, signupInput("grace@example.com"))
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "GRACE@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	for _, tc := range []struct{ email, password string }{
		{"grace@example.com", "wrong"},
		{"nobody@example.com", "secret123"},
	} {
		_, err := svc.Authenticate(ctx, tc.email, tc.password)
		assert.True(t, apperr.Is(err, apperr.KindAuthorization), tc.email)
		assert.Equal(t, "Invalid email or password", apperr.Message(err))
	}
}

func TestResetPassword(t *testing.T) {
	svc, _ := newAccounts(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, signupInput("grace@example.com"))
	require.NoError(t, err)

	reset := ResetPasswordInput{
		Email:       "grace@example.com",
		Answer1:     "cobol",
		Answer2:     "navy",
		Answer3:     "wrong",
		NewPassword: "fresh-secret",
	}
	err = svc.ResetPassword(ctx, reset)
	require.Error(t, err)
	assert.Equal(t, errResetRejected, err)

	unknown := reset
	unknown.Email = "nobody@example.com"
	assert.Equal(t, errResetRejected, svc.ResetPassword(ctx, unknown))

	reset.Answer3 = "bug"
	require.NoError(t, svc.ResetPassword(ctx, reset))

	_, err = svc.Authenticate(ctx, "grace@example.com", "secret123")
	assert.Error(t, err)
	_, err = svc.Authenticate(ctx, "grace@example.com", "fresh-secret")
	assert.NoError(t, err)
}

func TestUpdateAnswers(t *testing.T) {
	svc, _ := newAccounts(t)
	ctx := context.Background()
	user, err := svc.Signup(ctx, signupInput("grace@example.com"))
	require.NoError(t, err)

	err = svc.UpdateAnswers(ctx, user.ID, AnswersInput{Answer1: "a"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, svc.UpdateAnswers(ctx, user.ID, AnswersInput{Answer1: "a", Answer2: "b", Answer3: "c"}))

	stored, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.CheckSecurityAnswers(entity.SecurityAnswers{"a", "b", "c"}))
	assert.False(t, stored.CheckSecurityAnswers(entity.SecurityAnswers{"cobol", "navy", "bug"}))

	err = svc.UpdateAnswers(ctx, 9999, AnswersInput{Answer1: "a", Answer2: "b", Answer3: "c"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSummary_Paginates(t *testing.T) {
	svc, db := newAccounts(t)
	ctx := context.Background()
	store := testutil.NewStore(t)
	owner := testutil.CreateUser(t, db, "owner@example.com")
	other := testutil.CreateUser(t, db, "other@example.com")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var newest *entity.Dataset
	for i := 0; i < 7; i++ {
		newest = testutil.CreateDataset(t, db, store, owner, testutil.DatasetOptions{
			Published: i%2 == 0,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	testutil.CreateDataset(t, db, store, other, testutil.DatasetOptions{Published: true})

	records := NewRecordService(db)
	_, err := records.RecordDownload(ctx, nil, newest.ID, "a")
	require.NoError(t, err)
	_, err = records.RecordView(ctx, nil, newest.ID, "a")
	require.NoError(t, err)
	_, err = records.RecordView(ctx, nil, newest.ID, "b")
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, owner.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), summary.TotalDatasets)
	assert.Equal(t, int64(4), summary.PublishedDatasets)
	assert.Equal(t, int64(3), summary.DraftDatasets)
	assert.Equal(t, int64(1), summary.Downloads)
	assert.Equal(t, int64(2), summary.Views)
	assert.Equal(t, 2, summary.Pages)
	assert.Equal(t, []TypeCount{{Type: entity.PublicationNone, Count: 7}}, summary.PublicationTypes)
	require.Len(t, summary.Datasets, SummaryPageSize)
	assert.Equal(t, newest.ID, summary.Datasets[0].ID)

	summary, err = svc.Summary(ctx, owner.ID, 2)
	require.NoError(t, err)
	assert.Len(t, summary.Datasets, 2)

	summary, err = svc.Summary(ctx, owner.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Page)
}
