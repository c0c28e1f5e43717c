package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netweave.openmodal.org/internal/changelog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndCount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	log := changelog.New()
	log.Add("stop", "s1", map[string]any{"id": "s1", "name": "First"})
	log.Modify("stop", "s1", map[string]any{"name": "First"}, "s1", map[string]any{"name": "Renamed"})
	log.Remove("stop", "s1", map[string]any{"name": "Renamed"})

	require.NoError(t, store.AppendLog(ctx, log))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestEntriesForObject(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	log := changelog.New()
	log.Add("route", "r1", map[string]any{"id": "r1"})
	log.Add("route", "r2", map[string]any{"id": "r2"})
	log.Modify("route", "r1", map[string]any{"id": "r1"}, "r1_new", map[string]any{"id": "r1_new"})
	require.NoError(t, store.AppendLog(ctx, log))

	entries, err := store.EntriesForObject(ctx, "route", "r1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, changelog.EventAdd, entries[0].Event)
	assert.Equal(t, changelog.EventModify, entries[1].Event)
	assert.Equal(t, "r1_new", entries[1].NewID)

	entries, err = store.EntriesForObject(ctx, "route", "r2")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = store.EntriesForObject(ctx, "service", "r1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendPreservesPayloadColumns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	log := changelog.New()
	log.Add("service", "svc", map[string]any{"id": "svc", "name": "Line One"})
	require.NoError(t, store.AppendLog(ctx, log))

	entries, err := store.EntriesForObject(ctx, "service", "svc")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "{}", entries[0].OldAttributes)
	assert.Contains(t, entries[0].NewAttributes, "Line One")
	assert.Contains(t, entries[0].Diff, `"add"`)
	assert.False(t, entries[0].Timestamp.IsZero())
}
