//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/core"
)

func openMemoryStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), config.StoreConfig{
		Driver: "libsql",
		Path:   ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestOpenMemoryStore(t *testing.T) {
	store := openMemoryStore(t)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.CheckHealth(context.Background()))

	// Running migrations twice is a no-op.
	require.NoError(t, store.Migrate(context.Background()))

	version, err := store.userVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, SchemaVersion(), version)
}

func TestMigrateRejectsNewerSchema(t *testing.T) {
	store := openMemoryStore(t)
	_, err := store.DB.ExecContext(context.Background(), "PRAGMA user_version = 99")
	require.NoError(t, err)

	require.ErrorContains(t, store.Migrate(context.Background()), "newer than supported")
}

func TestAttemptJournalRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	attempts := []core.Attempt{
		{
			ID:           "a1",
			DocID:        "doc-1",
			DocType:      "LP_INTRODUCE_GOODS",
			ProductCount: 2,
			Outcome:      core.OutcomeSubmitted,
			StatusCode:   200,
			StartedAt:    base,
			FinishedAt:   base.Add(150 * time.Millisecond),
		},
		{
			ID:         "a2",
			DocID:      "doc-2",
			Outcome:    core.OutcomeRateLimited,
			Message:    "rate limit exceeded",
			StartedAt:  base.Add(time.Second),
			FinishedAt: base.Add(time.Second),
		},
		{
			ID:         "a3",
			DocID:      "doc-3",
			Outcome:    core.OutcomeTransportError,
			StatusCode: 503,
			Message:    "registry returned 503",
			StartedAt:  base.Add(2 * time.Second),
			FinishedAt: base.Add(2*time.Second + 40*time.Millisecond),
		},
	}
	for i := range attempts {
		require.NoError(t, store.RecordAttempt(ctx, &attempts[i]))
	}

	listed, err := store.ListAttempts(ctx, AttemptQuery{})
	require.NoError(t, err)
	require.Len(t, listed, 3)
	require.Equal(t, "a3", listed[0].ID)
	require.Equal(t, "a1", listed[2].ID)
	require.Equal(t, attempts[0], listed[2])
	require.Equal(t, 150*time.Millisecond, listed[2].Duration())

	limited, err := store.ListAttempts(ctx, AttemptQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, "a3", limited[0].ID)

	rateLimited, err := store.ListAttempts(ctx, AttemptQuery{Outcome: core.OutcomeRateLimited})
	require.NoError(t, err)
	require.Len(t, rateLimited, 1)
	require.Equal(t, "rate limit exceeded", rateLimited[0].Message)
	require.Zero(t, rateLimited[0].StatusCode)

	count, err := store.CountAttempts(ctx, AttemptQuery{Before: base.Add(1500 * time.Millisecond)})
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestPurgeAttempts(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, outcome := range []core.Outcome{core.OutcomeSubmitted, core.OutcomeRateLimited, core.OutcomeRateLimited} {
		require.NoError(t, store.RecordAttempt(ctx, &core.Attempt{
			ID:         string(rune('a' + i)),
			Outcome:    outcome,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	_, err := store.PurgeAttempts(ctx, AttemptQuery{})
	require.Error(t, err)

	removed, err := store.PurgeAttempts(ctx, AttemptQuery{Outcome: core.OutcomeRateLimited})
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	removed, err = store.PurgeAttempts(ctx, AttemptQuery{All: true})
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	count, err := store.CountAttempts(ctx, AttemptQuery{All: true})
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestRecordAttemptRequiresID(t *testing.T) {
	store := openMemoryStore(t)
	require.Error(t, store.RecordAttempt(context.Background(), &core.Attempt{Outcome: core.OutcomeSubmitted}))
	require.Error(t, store.RecordAttempt(context.Background(), nil))
}
