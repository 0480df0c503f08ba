package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakvale/ledgermap/internal/common"
	"github.com/oakvale/ledgermap/internal/model"
)

func testSession(id string) *model.Session {
	return &model.Session{
		ID:           id,
		Filename:     "ledger.csv",
		UploadTime:   time.Now(),
		AccountCount: 2,
		Columns:      []string{"Account_Code", "Account_Description"},
		Accounts: []model.Account{
			{Code: "1010", Description: "Operating Cash", Type: "Asset"},
			{Code: "2010", Description: "Trade Payables", Type: "Liability"},
		},
		RawSample: []map[string]string{
			{"Account_Code": "1010", "Account_Description": "Operating Cash"},
		},
	}
}

func TestMemoryStoreSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	defer func() { _ = store.Close() }()

	id := NewSessionID()
	require.NoError(t, store.PutSession(ctx, testSession(id)))

	got, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ledger.csv", got.Filename)
	assert.Len(t, got.Accounts, 2)

	exists, err := store.ContainsSession(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.ContainsSession(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrSessionNotFound)

	require.NoError(t, store.DeleteSession(ctx, id))
	_, err = store.GetSession(ctx, id)
	assert.ErrorIs(t, err, common.ErrSessionNotFound)
}

func TestMemoryStoreBatches(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	defer func() { _ = store.Close() }()

	id := NewSessionID()
	status := &model.BatchStatus{
		Status:        model.BatchProcessing,
		StartTime:     time.Now(),
		TotalAccounts: 3,
		Results:       []model.MappingResult{},
	}
	require.NoError(t, store.PutBatch(ctx, id, status))

	got, err := store.GetBatch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.BatchProcessing, got.Status)

	status.Status = model.BatchCompleted
	status.ProcessedAccounts = 3
	require.NoError(t, store.PutBatch(ctx, id, status))

	got, err = store.GetBatch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.BatchCompleted, got.Status)
	assert.Equal(t, 3, got.ProcessedAccounts)

	_, err = store.GetBatch(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrSessionNotFound)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(20 * time.Millisecond)
	defer func() { _ = store.Close() }()

	id := NewSessionID()
	require.NoError(t, store.PutSession(ctx, testSession(id)))

	_, err := store.GetSession(ctx, id)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = store.GetSession(ctx, id)
	assert.ErrorIs(t, err, common.ErrSessionNotFound)

	exists, err := store.ContainsSession(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	defer func() { _ = store.Close() }()

	id := NewSessionID()
	require.NoError(t, store.PutSession(ctx, testSession(id)))

	time.Sleep(30 * time.Millisecond)

	_, err := store.GetSession(ctx, id)
	assert.NoError(t, err)
}

func TestNewSessionIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewSessionID()
		assert.NotEmpty(t, id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}
