package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/entity"
	"github.com/kerem-kaynak/uvlhub/internal/storage"
	"github.com/kerem-kaynak/uvlhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubDepositor struct {
	calls []DepositionMetadata
	err   error
}

func (d *stubDepositor) CreateDeposition(_ context.Context, metadata DepositionMetadata) (uint, error) {
	if d.err != nil {
		return 0, d.err
	}
	d.calls = append(d.calls, metadata)
	return uint(100 + len(d.calls)), nil
}

type stubIndexer struct {
	indexed []uint
	err     error
}

func (i *stubIndexer) IndexDataset(_ context.Context, ds *entity.Dataset) error {
	i.indexed = append(i.indexed, ds.ID)
	return i.err
}

func (i *stubIndexer) Search(context.Context, string) ([]interface{}, error) {
	return nil, nil
}

type stubMailer struct {
	sent []string
}

func (m *stubMailer) SendPublicationNotice(_ context.Context, owner *entity.User, _ *entity.Dataset, url string) error {
	m.sent = append(m.sent, owner.Email+" "+url)
	return nil
}

type lifecycleFixture struct {
	db        *gorm.DB
	store     *storage.FilesystemStore
	staging   *storage.Staging
	depositor *stubDepositor
	indexer   *stubIndexer
	mailer    *stubMailer
	svc       *DatasetService
	owner     *entity.User
	other     *entity.User
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		db:        testutil.NewDB(t),
		store:     testutil.NewStore(t),
		staging:   testutil.NewStaging(t),
		depositor: &stubDepositor{},
		indexer:   &stubIndexer{},
		mailer:    &stubMailer{},
	}
	f.svc = &DatasetService{
		DB:        f.db,
		Logger:    testutil.NewLogger(),
		Store:     f.store,
		Staging:   f.staging,
		Depositor: f.depositor,
		Indexer:   f.indexer,
		Mailer:    f.mailer,
		BaseURL:   "http://localhost:5000",
	}
	f.owner = testutil.CreateUser(t, f.db, "owner@example.com")
	f.other = testutil.CreateUser(t, f.db, "other@example.com")
	return f
}

func (f *lifecycleFixture) stage(t *testing.T, name, content string) {
	t.Helper()
	_, err := f.staging.Save(f.owner.ID, name, strings.NewReader(content))
	require.NoError(t, err)
}

func (f *lifecycleFixture) createDraft(t *testing.T) *entity.Dataset {
	t.Helper()
	f.stage(t, "chat.uvl", testutil.ChatModel)
	ds, err := f.svc.CreateDraft(context.Background(), f.owner, DatasetInput{
		Title:           "Chat models",
		Description:     "Messaging product line",
		PublicationType: "article",
		Tags:            "chat, messaging",
		FeatureModels:   []FeatureModelInput{{UVLFilename: "chat.uvl"}},
	})
	require.NoError(t, err)
	return ds
}

func TestCreateDraft(t *testing.T) {
	f := newLifecycleFixture(t)
	ds := f.createDraft(t)

	assert.Equal(t, entity.StatusDraft, ds.Status)
	assert.Nil(t, ds.Metadata.DatasetDOI)
	assert.Equal(t, entity.PublicationJournalArticle, ds.Metadata.PublicationType)
	assert.Equal(t, "1", ds.Metadata.Metrics.NumberOfModels)
	assert.Equal(t, "8", ds.Metadata.Metrics.NumberOfFeatures)

	require.Len(t, ds.Metadata.Authors, 1)
	assert.Equal(t, "Lovelace, Ada", ds.Metadata.Authors[0].Name)

	require.Len(t, ds.FeatureModels, 1)
	fm := ds.FeatureModels[0]
	require.Len(t, fm.Files, 1)
	assert.Equal(t, int64(len(testutil.ChatModel)), fm.Files[0].Size)
	assert.Len(t, fm.Files[0].Checksum, 64)

	var preview map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(fm.Hierarchy, &preview))
	assert.Contains(t, preview, "features")

	content, err := f.store.Get(context.Background(), ds.StorageKey("chat.uvl"))
	require.NoError(t, err)
	assert.Equal(t, testutil.ChatModel, string(content))

	assert.False(t, f.staging.Exists(f.owner.ID, "chat.uvl"))

	loaded, err := f.svc.Get(context.Background(), ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chat models", loaded.Metadata.Title)
	assert.Len(t, loaded.Files(), 1)
}

func TestCreateDraft_Validation(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.svc.CreateDraft(context.Background(), f.owner, DatasetInput{Title: "  "})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	fields := apperr.FieldsOf(err)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "feature_models")
}

func TestCreateDraft_RejectsUnstagedFiles(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.svc.CreateDraft(context.Background(), f.owner, DatasetInput{
		Title:         "Missing",
		FeatureModels: []FeatureModelInput{{UVLFilename: "ghost.uvl"}},
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperr.Status(err))
	assert.Contains(t, apperr.FieldsOf(err), "feature_models[0].uvl_filename")

	var count int64
	require.NoError(t, f.db.Model(&entity.Dataset{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateDraft_RejectsInvalidPublicationType(t *testing.T) {
	f := newLifecycleFixture(t)
	f.stage(t, "chat.uvl", testutil.ChatModel)

	_, err := f.svc.CreateDraft(context.Background(), f.owner, DatasetInput{
		Title:           "Chat",
		PublicationType: "poem",
		FeatureModels:   []FeatureModelInput{{UVLFilename: "chat.uvl"}},
	})
	require.Error(t, err)
	assert.Contains(t, apperr.FieldsOf(err), "publication_type")
}

func TestEditDraft(t *testing.T) {
	f := newLifecycleFixture(t)
	ds := f.createDraft(t)
	ctx := context.Background()

	updated, err := f.svc.EditDraft(ctx, f.owner.ID, ds.ID, EditInput{
		Title:          "Renamed",
		Description:    "New description",
		PublicationDOI: "10.5555/example",
		Authors:        []AuthorInput{{Name: "Turing, Alan", Affiliation: "Manchester"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Metadata.Title)
	assert.Equal(t, entity.PublicationNone, updated.Metadata.PublicationType)
	require.Len(t, updated.Metadata.Authors, 1)
	assert.Equal(t, "Turing, Alan", updated.Metadata.Authors[0].Name)
}

func TestEditDraft_Errors(t *testing.T) {
	f := newLifecycleFixture(t)
	ds := f.createDraft(t)
	ctx := context.Background()
	valid := EditInput{Title: "T", Description: "D"}

	tests := []struct {
		name      string
		requester uint
		input     EditInput
		kind      apperr.Kind
		field     string
	}{
		{"not owner", f.other.ID, valid, apperr.KindAuthorization, ""},
		{"empty title", f.owner.ID, EditInput{Description: "D"}, apperr.KindValidation, "title"},
		{"empty description", f.owner.ID, EditInput{Title: "T"}, apperr.KindValidation, "desc"},
		{"bad doi", f.owner.ID, EditInput{Title: "T", Description: "D", PublicationDOI: "not a doi"}, apperr.KindValidation, "publication_doi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.EditDraft(ctx, tt.requester, ds.ID, tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Equal(t, 400, apperr.Status(err))
			if tt.field != "" {
				assert.Contains(t, apperr.FieldsOf(err), tt.field)
			}
		})
	}

	_, err := f.svc.EditDraft(ctx, f.owner.ID, 9999, valid)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestEditDraft_RejectsPublished(t *testing.T) {
	f := newLifecycleFixture(t)
	ds := f.createDraft(t)
	ctx := context.Background()

	_, err := f.svc.Publish(ctx, f.owner.ID, ds.ID)
	require.NoError(t, err)

	_, err = f.svc.EditDraft(ctx, f.owner.ID, ds.ID, EditInput{Title: "T", Description: "D"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestPublish(t *testing.T) {
	f := newLifecycleFixture(t)
	ds := f.createDraft(t)
	ctx := context.Background()

	published, err := f.svc.Publish(ctx, f.owner.ID, ds.ID)
	require.NoError(t, err)

	doi := entity.DatasetDOI(ds.ID)
	assert.Equal(t, doi, published.DOI())
	assert.True(t, published.IsPublished())
	require.NotNil(t, published.Metadata.DepositionID)
	assert.Equal(t, uint(101), *published.Metadata.DepositionID)

	require.Len(t, f.depositor.calls, 1)
	meta := f.depositor.calls[0]
	assert.Equal(t, "publication", meta.UploadType)
	require.NotNil(t, meta.PublicationType)
	assert.Equal(t, "article", *meta.PublicationType)
	assert.Equal(t, []string{"chat", "messaging", "uvlhub"}, meta.Keywords)
	assert.Contains(t, meta.Models, "chat")

	assert.Equal(t, []uint{ds.ID}, f.indexer.indexed)
	assert.Equal(t, []string{"owner@example.com http://localhost:5000/doi/" + doi + "/"}, f.mailer.sent)

	_, err = f.svc.Publish(ctx, f.owner.ID, ds.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	assert.Equal(t, "Dataset is already published", apperr.Message(err))

	again, err := f.svc.Get(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, doi, again.DOI())
	assert.Len(t, f.depositor.calls, 1)
}

func TestPublish_NotOwner(t *testing.T) {
	f := newLifecycleFixture(t)
	ds := f.createDraft(t)

	_, err := f.svc.Publish(context.Background(), f.other.ID, ds.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	assert.Equal(t, 400, apperr.Status(err))
	assert.Empty(t, f.depositor.calls)
}

func TestPublish_DepositFailureKeepsDraft(t *testing.T) {
	f := newLifecycleFixture(t)
	ds := f.createDraft(t)
	f.depositor.err = errors.New("deposit service unavailable")

	_, err := f.svc.Publish(context.Background(), f.owner.ID, ds.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInfrastructure))

	loaded, err := f.svc.Get(context.Background(), ds.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsDraft())
	assert.Nil(t, loaded.Metadata.DatasetDOI)
}

func TestPublish_IndexFailureDoesNotFail(t *testing.T) {
	f := newLifecycleFixture(t)
	ds := f.createDraft(t)
	f.indexer.err = errors.New("index down")

	published, err := f.svc.Publish(context.Background(), f.owner.ID, ds.ID)
	require.NoError(t, err)
	assert.True(t, published.IsPublished())
}

func TestResolveDOI(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	ds := f.createDraft(t)
	doi := entity.DatasetDOI(ds.ID)

	_, err := f.svc.ResolveDOI(ctx, doi)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "drafts have no public DOI")

	draft, err := f.svc.GetUnsynchronized(ctx, f.owner.ID, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.ID, draft.ID)

	_, err = f.svc.GetUnsynchronized(ctx, f.other.ID, ds.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.Publish(ctx, f.owner.ID, ds.ID)
	require.NoError(t, err)

	res, err := f.svc.ResolveDOI(ctx, doi+"/")
	require.NoError(t, err)
	require.NotNil(t, res.Dataset)
	assert.Equal(t, ds.ID, res.Dataset.ID)
	assert.Empty(t, res.Redirect)

	require.NoError(t, f.db.Create(&entity.DOIMapping{DatasetDOIOld: "10.1234/old", DatasetDOINew: doi}).Error)
	res, err = f.svc.ResolveDOI(ctx, "10.1234/old")
	require.NoError(t, err)
	assert.Equal(t, doi, res.Redirect)
	assert.Nil(t, res.Dataset)

	_, err = f.svc.ResolveDOI(ctx, "10.1234/unknown")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSynchronizedAndUnsynchronized(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	draft := testutil.CreateDataset(t, f.db, f.store, f.owner, testutil.DatasetOptions{Title: "draft"})
	published := testutil.CreateDataset(t, f.db, f.store, f.owner, testutil.DatasetOptions{Title: "public", Published: true})
	testutil.CreateDataset(t, f.db, f.store, f.other, testutil.DatasetOptions{Title: "foreign", Published: true})

	synced, err := f.svc.Synchronized(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, synced, 1)
	assert.Equal(t, published.ID, synced[0].ID)

	unsynced, err := f.svc.Unsynchronized(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, draft.ID, unsynced[0].ID)

	user, datasets, err := f.svc.PublishedByUser(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, user.ID)
	assert.Len(t, datasets, 1)

	_, _, err = f.svc.PublishedByUser(ctx, 9999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetVisible(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	draft := testutil.CreateDataset(t, f.db, f.store, f.owner, testutil.DatasetOptions{})

	_, err := f.svc.GetVisible(ctx, draft.ID, f.owner.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetVisible(ctx, draft.ID, f.other.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.svc.GetVisible(ctx, draft.ID, 0)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
