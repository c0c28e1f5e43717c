package changelog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRecordsCreationWithIDMarker(t *testing.T) {
	log := New()
	log.Add("route", "bus_1", map[string]any{"mode": "bus", "name": "High Street"})

	entries := log.Entries()
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, EventAdd, entry.Event)
	assert.Equal(t, "route", entry.ObjectType)
	assert.Equal(t, "", entry.OldID)
	assert.Equal(t, "bus_1", entry.NewID)
	assert.Equal(t, "{}", entry.OldAttributes)
	assert.Contains(t, entry.NewAttributes, `"mode":"bus"`)
	assert.Contains(t, entry.Diff, `"path":"id"`)
	assert.Contains(t, entry.Diff, `"new":"bus_1"`)
}

func TestModifyRecordsAttributeDiff(t *testing.T) {
	log := New()
	log.Modify("stop", "s1",
		map[string]any{"name": "Old Name", "x": 1.0},
		"s1",
		map[string]any{"name": "New Name", "x": 1.0})

	entries := log.Entries()
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, EventModify, entry.Event)
	assert.Contains(t, entry.Diff, `"change":"change"`)
	assert.Contains(t, entry.Diff, `"path":"name"`)
	// Unchanged attributes do not appear in the diff.
	assert.NotContains(t, entry.Diff, `"path":"x"`)
}

func TestModifyWithIDChangeAddsIDDiffRow(t *testing.T) {
	log := New()
	log.Modify("route", "1", map[string]any{"mode": "bus"}, "2", map[string]any{"mode": "bus"})

	entry := log.Entries()[0]
	assert.Equal(t, "1", entry.OldID)
	assert.Equal(t, "2", entry.NewID)
	assert.Contains(t, entry.Diff, `"change":"change","path":"id"`)
}

func TestRemoveMirrorsAdd(t *testing.T) {
	log := New()
	log.Remove("service", "svc", map[string]any{"name": "Nightbus"})

	entry := log.Entries()[0]
	assert.Equal(t, EventRemove, entry.Event)
	assert.Equal(t, "svc", entry.OldID)
	assert.Equal(t, "", entry.NewID)
	assert.Equal(t, "{}", entry.NewAttributes)
	assert.Contains(t, entry.Diff, `"change":"remove","path":"id"`)
}

func TestBunchOperationsShareOneTimestamp(t *testing.T) {
	log := New()
	log.AddBunch("node",
		[]string{"a", "b", "c"},
		[]map[string]any{{"x": 1.0}, {"x": 2.0}, {"x": 3.0}})

	entries := log.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, entries[0].Timestamp, entries[1].Timestamp)
	assert.Equal(t, entries[1].Timestamp, entries[2].Timestamp)
}

func TestSimplifyBunchPreservesCollapsedLinks(t *testing.T) {
	log := New()
	log.SimplifyBunch("link", []SimplifyEvent{
		{
			OldIDs:        []string{"l1", "l2", "l3"},
			NewID:         "l1_l3",
			NewAttributes: map[string]any{"length": 120.0},
			DeletedNodes:  []string{"n2"},
		},
	})

	entry := log.Entries()[0]
	assert.Equal(t, EventSimplify, entry.Event)
	assert.Equal(t, "l1,l2,l3", entry.OldID)
	assert.Equal(t, "l1_l3", entry.NewID)
	assert.Contains(t, entry.Diff, `"remove","path":"node","old":"n2"`)
	assert.Contains(t, entry.NewAttributes, "120")
}

func TestSetOnAppendSeesEveryEntry(t *testing.T) {
	log := New()
	var seen []Event
	log.SetOnAppend(func(e Entry) { seen = append(seen, e.Event) })

	log.Add("stop", "s1", map[string]any{"name": "A"})
	log.RemoveBunch("stop", []string{"s1", "s2"}, nil)

	assert.Equal(t, []Event{EventAdd, EventRemove, EventRemove}, seen)

	log.SetOnAppend(nil)
	log.Add("stop", "s3", nil)
	assert.Len(t, seen, 3)
}

func TestMergeLogsOrdersByTimestampStably(t *testing.T) {
	base := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)

	a := New()
	ticksA := []time.Time{base, base.Add(2 * time.Second)}
	i := 0
	a.now = func() time.Time { t := ticksA[i]; i++; return t }
	a.Add("route", "a1", nil)
	a.Add("route", "a2", nil)

	b := New()
	ticksB := []time.Time{base.Add(time.Second)}
	j := 0
	b.now = func() time.Time { t := ticksB[j]; j++; return t }
	b.Add("route", "b1", nil)

	merged := a.MergeLogs(b)
	require.Equal(t, 3, merged.Len())

	ids := []string{merged.Entries()[0].NewID, merged.Entries()[1].NewID, merged.Entries()[2].NewID}
	assert.Equal(t, []string{"a1", "b1", "a2"}, ids)
}

func TestMergeLogsDoesNotMutateInputs(t *testing.T) {
	a := New()
	a.Add("route", "a1", nil)
	b := New()
	b.Add("route", "b1", nil)

	merged := a.MergeLogs(b)
	merged.Add("route", "c1", nil)

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}

func TestExportCSVWritesAllColumns(t *testing.T) {
	log := New()
	log.Add("stop", "s1", map[string]any{"name": "Central"})
	log.Modify("stop", "s1", map[string]any{"name": "Central"}, "s1", map[string]any{"name": "Central Station"})

	path := filepath.Join(t.TempDir(), "changelog.csv")
	require.NoError(t, log.ExportCSV(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	header := strings.Join(records[0], ",")
	assert.Equal(t, "timestamp,change_event,object_type,old_id,new_id,old_attributes,new_attributes,diff", header)
	assert.Equal(t, "add", records[1][1])
	assert.Equal(t, "modify", records[2][1])
}
