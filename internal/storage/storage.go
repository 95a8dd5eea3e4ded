// Package storage is the per-table record stream and per-index key->ids map
// described in spec.md §3 ("Record", "Index") and §6 ("Record stream",
// "Index file"). Internal fields are exposed through the Record API as
// SlotID/IsLive rather than by magic field names, per spec.md §9's design
// note on __id__/__deleted__.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pieczasz/dbms/internal/dbmserr"
	"github.com/pieczasz/dbms/internal/value"
)

// Record is one stored row, plus its slot metadata. Fields absent from the
// original INSERT/UPDATE are simply missing from Values.
type Record struct {
	SlotID int
	IsLive bool
	Values map[string]value.Value
}

// Get returns the value stored for column, or value.Nil if absent.
func (r *Record) Get(column string) value.Value {
	if v, ok := r.Values[column]; ok {
		return v
	}
	return value.Nil
}

// Table is one table's record stream plus its secondary indexes.
type Table struct {
	mu      sync.RWMutex
	records []*Record // slot id == index into this slice
	indexes map[string]*Index
}

// NewTable creates an empty record stream with no indexes.
func NewTable() *Table {
	return &Table{indexes: make(map[string]*Index)}
}

// EnsureIndex creates an empty index on column if one does not already
// exist and returns it.
func (t *Table) EnsureIndex(column string) *Index {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ensureIndexLocked(column)
}

func (t *Table) ensureIndexLocked(column string) *Index {
	idx, ok := t.indexes[column]
	if !ok {
		idx = newIndex()
		t.indexes[column] = idx
	}
	return idx
}

// BackfillIndex populates the index on column from every live record,
// used after EnsureIndex creates an empty index for a column that already
// holds data (spec.md §4.5, "CREATE INDEX rebuilds the index from a full
// scan").
func (t *Table) BackfillIndex(column string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.ensureIndexLocked(column)
	idx.clear()
	for _, r := range t.records {
		if !r.IsLive {
			continue
		}
		if v, ok := r.Values[column]; ok {
			idx.add(v, r.SlotID)
		}
	}
}

// DropIndex removes the index on column, if any.
func (t *Table) DropIndex(column string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.indexes, column)
}

// Index returns the index on column, or (nil, false).
func (t *Table) Index(column string) (*Index, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.indexes[column]
	return idx, ok
}

// Insert appends a new live record and returns its assigned slot id.
func (t *Table) Insert(values map[string]value.Value) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot := len(t.records)
	rec := &Record{SlotID: slot, IsLive: true, Values: values}
	t.records = append(t.records, rec)

	for col, idx := range t.indexes {
		if v, ok := values[col]; ok {
			idx.add(v, slot)
		}
	}
	return slot
}

// Get returns the record at slot, or (nil, false) if the slot does not
// exist. A tombstoned record is still returned with IsLive == false, so
// callers that need "live only" must check IsLive.
func (t *Table) Get(slot int) (*Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if slot < 0 || slot >= len(t.records) {
		return nil, false
	}
	return t.records[slot], true
}

// Scan returns every live record in slot order.
func (t *Table) Scan() []*Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Record, 0, len(t.records))
	for _, r := range t.records {
		if r.IsLive {
			out = append(out, r)
		}
	}
	return out
}

// Update replaces the values of a live record in place, preserving its slot
// id, and updates every affected index from the previous value to the new
// one (spec.md §4.5, "UPDATE").
func (t *Table) Update(slot int, newValues map[string]value.Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if slot < 0 || slot >= len(t.records) || !t.records[slot].IsLive {
		return dbmserr.NewStorageError("", "no live record at slot %d", slot)
	}
	old := t.records[slot]

	for col, idx := range t.indexes {
		oldVal, hadOld := old.Values[col]
		newVal, hasNew := newValues[col]
		if hadOld {
			idx.remove(oldVal, slot)
		}
		if hasNew {
			idx.add(newVal, slot)
		}
	}

	t.records[slot] = &Record{SlotID: slot, IsLive: true, Values: newValues}
	return nil
}

// Delete tombstones the record at slot and removes its entries from every
// index (spec.md §4.5, "DELETE").
func (t *Table) Delete(slot int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if slot < 0 || slot >= len(t.records) || !t.records[slot].IsLive {
		return dbmserr.NewStorageError("", "no live record at slot %d", slot)
	}
	rec := t.records[slot]
	for col, idx := range t.indexes {
		if v, ok := rec.Values[col]; ok {
			idx.remove(v, slot)
		}
	}
	rec.IsLive = false
	return nil
}

// LiveCount returns the number of live records.
func (t *Table) LiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, r := range t.records {
		if r.IsLive {
			n++
		}
	}
	return n
}

// Vacuum compacts the record stream: tombstoned records are dropped, live
// records are renumbered densely from 0, and every index is rebuilt from
// the new layout (spec.md §3, "Lifecycles"; §6, "Record stream").
func (t *Table) Vacuum() {
	t.mu.Lock()
	defer t.mu.Unlock()

	compacted := make([]*Record, 0, len(t.records))
	for _, r := range t.records {
		if !r.IsLive {
			continue
		}
		compacted = append(compacted, &Record{SlotID: len(compacted), IsLive: true, Values: r.Values})
	}
	t.records = compacted

	for col, idx := range t.indexes {
		idx.clear()
		for _, r := range t.records {
			if v, ok := r.Values[col]; ok {
				idx.add(v, r.SlotID)
			}
		}
	}
}

// Index maps a column's values to the set of slot ids currently holding
// that value, supporting point lookup, range scan, full scan, and a unique-
// key count for optimizer cardinality estimates (spec.md §3, "Index").
type Index struct {
	entries map[value.Value]map[int]struct{}
}

func newIndex() *Index {
	return &Index{entries: make(map[value.Value]map[int]struct{})}
}

func (idx *Index) add(v value.Value, slot int) {
	ids, ok := idx.entries[v]
	if !ok {
		ids = make(map[int]struct{})
		idx.entries[v] = ids
	}
	ids[slot] = struct{}{}
}

func (idx *Index) remove(v value.Value, slot int) {
	ids, ok := idx.entries[v]
	if !ok {
		return
	}
	delete(ids, slot)
	if len(ids) == 0 {
		delete(idx.entries, v)
	}
}

func (idx *Index) clear() {
	idx.entries = make(map[value.Value]map[int]struct{})
}

// Lookup returns every slot id currently mapped to v.
func (idx *Index) Lookup(v value.Value) []int {
	ids, ok := idx.entries[v]
	if !ok {
		return nil
	}
	out := make([]int, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Range returns, sorted ascending, the slot ids of every entry whose value
// satisfies the inclusive/exclusive bounds. A nil bound is unbounded on that
// side.
func (idx *Index) Range(min, max *value.Value, minInclusive, maxInclusive bool) []int {
	var out []int
	for v, ids := range idx.entries {
		if min != nil {
			if v.Less(*min) || (!minInclusive && v.Equal(*min)) {
				continue
			}
		}
		if max != nil {
			if max.Less(v) || (!maxInclusive && v.Equal(*max)) {
				continue
			}
		}
		for id := range ids {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// All enumerates every slot id in the index, unordered by key.
func (idx *Index) All() []int {
	out := make([]int, 0)
	for _, ids := range idx.entries {
		for id := range ids {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// UniqueKeyCount returns the number of distinct key values currently
// present, used by the optimizer's selectivity table (spec.md §4.4).
func (idx *Index) UniqueKeyCount() int {
	return len(idx.entries)
}

// Manager owns every table's record stream, keyed by table name. It is the
// "Storage" collaborator named in spec.md §2.
type Manager struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{tables: make(map[string]*Table)}
}

// CreateTable allocates a fresh, empty record stream for name. Recovered
// locally if the table already has one, per spec.md §7's "on an INSERT, if
// reading the current record file raises ... the executor treats the table
// as empty" — CreateTable never errors: an existing stream for name is
// replaced by the new empty one, since the catalog is the source of truth
// for whether the table legitimately exists.
func (m *Manager) CreateTable(name string) *Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := NewTable()
	m.tables[name] = t
	return t
}

// Table returns the record stream for name, treating a missing stream as an
// empty table (spec.md §7, "Recovered locally").
func (m *Manager) Table(name string) *Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[name]
	if !ok {
		t = NewTable()
		m.tables[name] = t
	}
	return t
}

// DropTable discards a table's entire record stream and indexes.
func (m *Manager) DropTable(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, name)
}

// recordFile mirrors the on-disk record stream of spec.md §6: one JSON
// document per table, listing every record including tombstones so SlotID
// numbering survives a reload.
type recordFile struct {
	Records []*Record `json:"records"`
}

// Save writes every table's record stream to dir as "<table>.json".
func (m *Manager) Save(dir string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, t := range m.tables {
		t.mu.RLock()
		doc := recordFile{Records: t.records}
		b, err := json.MarshalIndent(doc, "", "  ")
		t.mu.RUnlock()
		if err != nil {
			return fmt.Errorf("storage: encode %q: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name+".json"), b, 0o644); err != nil {
			return fmt.Errorf("storage: write %q: %w", name, err)
		}
	}
	return nil
}

// LoadManager recovers a Manager from dir for the given table names,
// treating a missing or unreadable record file as an empty table per
// spec.md §7's recovery rule rather than failing the whole load.
func LoadManager(dir string, tableNames []string) *Manager {
	m := NewManager()
	for _, name := range tableNames {
		t := m.CreateTable(name)
		b, err := os.ReadFile(filepath.Join(dir, name+".json"))
		if err != nil {
			continue
		}
		var doc recordFile
		if err := json.Unmarshal(b, &doc); err != nil {
			continue
		}
		t.records = doc.Records
	}
	return m
}
