package services

import (
	"context"
	"testing"

	"github.com/kerem-kaynak/uvlhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDownload_DeduplicatesByCookie(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner@example.com")
	ds := testutil.CreateDataset(t, db, testutil.NewStore(t), owner, testutil.DatasetOptions{Published: true})
	svc := NewRecordService(db)
	ctx := context.Background()

	cookie := NewVisitorCookie()
	created, err := svc.RecordDownload(ctx, nil, ds.ID, cookie)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.RecordDownload(ctx, nil, ds.ID, cookie)
	require.NoError(t, err)
	assert.False(t, created)

	n, err := svc.DownloadCount(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// A logged-in visitor with the same cookie is a different triple.
	created, err = svc.RecordDownload(ctx, &owner.ID, ds.ID, cookie)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.RecordDownload(ctx, nil, ds.ID, NewVisitorCookie())
	require.NoError(t, err)
	assert.True(t, created)

	n, err = svc.DownloadCount(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRecordView_DeduplicatesByCookie(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner@example.com")
	ds := testutil.CreateDataset(t, db, testutil.NewStore(t), owner, testutil.DatasetOptions{Published: true})
	svc := NewRecordService(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.RecordView(ctx, &owner.ID, ds.ID, "cookie")
		require.NoError(t, err)
	}

	n, err := svc.ViewCount(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNewVisitorCookie(t *testing.T) {
	a, b := NewVisitorCookie(), NewVisitorCookie()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
