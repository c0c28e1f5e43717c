// Package changelog records every structural event applied to a schedule
// element graph as an append-only, timestamped log with computed diffs.
package changelog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/r3labs/diff/v3"
)

// Event classifies a log entry.
type Event string

const (
	EventAdd      Event = "add"
	EventModify   Event = "modify"
	EventRemove   Event = "remove"
	EventSimplify Event = "simplify"
)

// Entry is a single recorded structural event. Past entries are never
// mutated; the log only appends.
type Entry struct {
	Timestamp     time.Time `json:"timestamp"`
	Event         Event     `json:"change_event"`
	ObjectType    string    `json:"object_type"`
	OldID         string    `json:"old_id"`
	NewID         string    `json:"new_id"`
	OldAttributes string    `json:"old_attributes"`
	NewAttributes string    `json:"new_attributes"`
	Diff          string    `json:"diff"`
}

// DiffRow is one element of a computed structural diff between two
// attribute snapshots.
type DiffRow struct {
	Change string `json:"change"` // add | remove | change
	Path   string `json:"path"`
	Old    any    `json:"old,omitempty"`
	New    any    `json:"new,omitempty"`
}

// SimplifyEvent describes one topology simplification: a run of old link
// IDs collapsed into a single new link, with the data that was
// consolidated and the intermediate nodes that disappeared.
type SimplifyEvent struct {
	OldIDs        []string
	NewID         string
	NewAttributes map[string]any
	DeletedNodes  []string
}

// ChangeLog is an append-only ordered record of structural events.
type ChangeLog struct {
	entries  []Entry
	now      func() time.Time
	onAppend func(Entry)
}

// New creates an empty ChangeLog.
func New() *ChangeLog {
	return &ChangeLog{now: time.Now}
}

// SetOnAppend registers an observer invoked once for every entry
// appended from now on. A nil observer removes it. Entries merged in
// from another log do not trigger the observer.
func (l *ChangeLog) SetOnAppend(fn func(Entry)) {
	l.onAppend = fn
}

func (l *ChangeLog) append(e Entry) {
	l.entries = append(l.entries, e)
	if l.onAppend != nil {
		l.onAppend(e)
	}
}

// Entries returns a copy of the recorded entries in append order.
func (l *ChangeLog) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries.
func (l *ChangeLog) Len() int {
	return len(l.entries)
}

// Add records the creation of an object.
func (l *ChangeLog) Add(objectType, objectID string, attributes map[string]any) {
	l.AddBunch(objectType, []string{objectID}, []map[string]any{attributes})
}

// AddBunch records the creation of several objects at once.
func (l *ChangeLog) AddBunch(objectType string, ids []string, attributes []map[string]any) {
	timestamp := l.now()
	for i, id := range ids {
		var attrs map[string]any
		if i < len(attributes) {
			attrs = attributes[i]
		}
		rows := computeDiff(nil, attrs)
		rows = append(rows, DiffRow{Change: "add", Path: "id", New: id})
		l.append(Entry{
			Timestamp:     timestamp,
			Event:         EventAdd,
			ObjectType:    objectType,
			NewID:         id,
			OldAttributes: stringify(nil),
			NewAttributes: stringify(attrs),
			Diff:          stringifyDiff(rows),
		})
	}
}

// Modify records a change to an object, possibly including an ID change.
func (l *ChangeLog) Modify(objectType, oldID string, oldAttributes map[string]any, newID string, newAttributes map[string]any) {
	l.ModifyBunch(objectType, []string{oldID}, []map[string]any{oldAttributes}, []string{newID}, []map[string]any{newAttributes})
}

// ModifyBunch records changes to several objects at once.
func (l *ChangeLog) ModifyBunch(objectType string, oldIDs []string, oldAttributes []map[string]any, newIDs []string, newAttributes []map[string]any) {
	timestamp := l.now()
	for i, oldID := range oldIDs {
		newID := ""
		if i < len(newIDs) {
			newID = newIDs[i]
		}
		var oldAttrs, newAttrs map[string]any
		if i < len(oldAttributes) {
			oldAttrs = oldAttributes[i]
		}
		if i < len(newAttributes) {
			newAttrs = newAttributes[i]
		}
		rows := computeDiff(oldAttrs, newAttrs)
		if oldID != newID {
			switch {
			case oldID == "":
				rows = append(rows, DiffRow{Change: "add", Path: "id", New: newID})
			case newID == "":
				rows = append(rows, DiffRow{Change: "remove", Path: "id", Old: oldID})
			default:
				rows = append(rows, DiffRow{Change: "change", Path: "id", Old: oldID, New: newID})
			}
		}
		l.append(Entry{
			Timestamp:     timestamp,
			Event:         EventModify,
			ObjectType:    objectType,
			OldID:         oldID,
			NewID:         newID,
			OldAttributes: stringify(oldAttrs),
			NewAttributes: stringify(newAttrs),
			Diff:          stringifyDiff(rows),
		})
	}
}

// Remove records the deletion of an object.
func (l *ChangeLog) Remove(objectType, objectID string, attributes map[string]any) {
	l.RemoveBunch(objectType, []string{objectID}, []map[string]any{attributes})
}

// RemoveBunch records the deletion of several objects at once.
func (l *ChangeLog) RemoveBunch(objectType string, ids []string, attributes []map[string]any) {
	timestamp := l.now()
	for i, id := range ids {
		var attrs map[string]any
		if i < len(attributes) {
			attrs = attributes[i]
		}
		rows := computeDiff(attrs, nil)
		rows = append(rows, DiffRow{Change: "remove", Path: "id", Old: id})
		l.append(Entry{
			Timestamp:     timestamp,
			Event:         EventRemove,
			ObjectType:    objectType,
			OldID:         id,
			OldAttributes: stringify(attrs),
			NewAttributes: stringify(nil),
			Diff:          stringifyDiff(rows),
		})
	}
}

// SimplifyBunch records topology simplification events. These are neither
// pure adds, modifies nor removes: a run of old links is consolidated into
// a new link and the intermediate nodes vanish, so the whole collapse is
// preserved for audit.
func (l *ChangeLog) SimplifyBunch(objectType string, events []SimplifyEvent) {
	timestamp := l.now()
	for _, event := range events {
		rows := []DiffRow{
			{Change: "change", Path: "id", Old: strings.Join(event.OldIDs, ","), New: event.NewID},
		}
		for _, node := range event.DeletedNodes {
			rows = append(rows, DiffRow{Change: "remove", Path: "node", Old: node})
		}
		l.append(Entry{
			Timestamp:     timestamp,
			Event:         EventSimplify,
			ObjectType:    objectType,
			OldID:         strings.Join(event.OldIDs, ","),
			NewID:         event.NewID,
			OldAttributes: stringify(nil),
			NewAttributes: stringify(event.NewAttributes),
			Diff:          stringifyDiff(rows),
		})
	}
}

// MergeLogs produces a new log that is the row-wise union of both logs,
// ordered by timestamp. Entries with equal timestamps keep their original
// order, with the receiver's entries first.
func (l *ChangeLog) MergeLogs(other *ChangeLog) *ChangeLog {
	merged := New()
	merged.onAppend = l.onAppend
	merged.entries = make([]Entry, 0, len(l.entries)+len(other.entries))
	merged.entries = append(merged.entries, l.entries...)
	if other != nil {
		merged.entries = append(merged.entries, other.entries...)
	}
	sort.SliceStable(merged.entries, func(i, j int) bool {
		return merged.entries[i].Timestamp.Before(merged.entries[j].Timestamp)
	})
	return merged
}

// ExportCSV serializes the full log, including diffs, to a flat CSV file.
func (l *ChangeLog) ExportCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating change log export: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"timestamp", "change_event", "object_type", "old_id", "new_id", "old_attributes", "new_attributes", "diff"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing change log header: %w", err)
	}
	for _, e := range l.entries {
		record := []string{
			e.Timestamp.Format("2006-01-02 15:04:05"),
			string(e.Event),
			e.ObjectType,
			e.OldID,
			e.NewID,
			e.OldAttributes,
			e.NewAttributes,
			e.Diff,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing change log entry: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// computeDiff renders the structural difference between two attribute
// snapshots as diff rows. A nil snapshot stands for "object absent".
func computeDiff(old, new map[string]any) []DiffRow {
	if old == nil {
		old = map[string]any{}
	}
	if new == nil {
		new = map[string]any{}
	}
	changes, err := diff.Diff(old, new)
	if err != nil {
		// Diffing plain maps only fails on unsupported value kinds; fall
		// back to an opaque whole-object change.
		return []DiffRow{{Change: "change", Path: "", Old: old, New: new}}
	}
	rows := make([]DiffRow, 0, len(changes))
	for _, c := range changes {
		row := DiffRow{Path: strings.Join(c.Path, ".")}
		switch c.Type {
		case diff.CREATE:
			row.Change = "add"
			row.New = c.To
		case diff.DELETE:
			row.Change = "remove"
			row.Old = c.From
		default:
			row.Change = "change"
			row.Old = c.From
			row.New = c.To
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })
	return rows
}

func stringify(attrs map[string]any) string {
	if len(attrs) == 0 {
		return "{}"
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Sprintf("%v", attrs)
	}
	return string(b)
}

func stringifyDiff(rows []DiffRow) string {
	b, err := json.Marshal(rows)
	if err != nil {
		return fmt.Sprintf("%v", rows)
	}
	return string(b)
}
