package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pieczasz/dbms/internal/value"
)

func TestInsertAssignsDenseSlotIDs(t *testing.T) {
	table := NewTable()
	s0 := table.Insert(map[string]value.Value{"id": value.OfInt(1)})
	s1 := table.Insert(map[string]value.Value{"id": value.OfInt(2)})
	assert.Equal(t, 0, s0)
	assert.Equal(t, 1, s1)
	assert.Equal(t, 2, table.LiveCount())
}

func TestInsertThenSelectRoundTrips(t *testing.T) {
	table := NewTable()
	slot := table.Insert(map[string]value.Value{"id": value.OfInt(1), "name": value.OfStr("John Doe")})

	rec, ok := table.Get(slot)
	require.True(t, ok)
	assert.True(t, rec.IsLive)
	assert.Equal(t, value.OfInt(1), rec.Get("id"))
	assert.Equal(t, value.OfStr("John Doe"), rec.Get("name"))
	assert.True(t, rec.Get("missing").IsAbsent())
}

func TestDeleteTombstonesWithoutReusingSlot(t *testing.T) {
	table := NewTable()
	slot := table.Insert(map[string]value.Value{"id": value.OfInt(1)})
	require.NoError(t, table.Delete(slot))

	rec, ok := table.Get(slot)
	require.True(t, ok)
	assert.False(t, rec.IsLive)
	assert.Equal(t, 0, table.LiveCount())

	next := table.Insert(map[string]value.Value{"id": value.OfInt(2)})
	assert.Greater(t, next, slot, "new id is strictly greater than any previously used id before a vacuum")
}

func TestDeleteOfAlreadyDeletedFails(t *testing.T) {
	table := NewTable()
	slot := table.Insert(map[string]value.Value{"id": value.OfInt(1)})
	require.NoError(t, table.Delete(slot))
	assert.Error(t, table.Delete(slot))
}

func TestUpdatePreservesSlotIDAndMovesIndexEntry(t *testing.T) {
	table := NewTable()
	idx := table.EnsureIndex("name")
	slot := table.Insert(map[string]value.Value{"id": value.OfInt(1), "name": value.OfStr("Jane")})

	require.NoError(t, table.Update(slot, map[string]value.Value{"id": value.OfInt(1), "name": value.OfStr("Janet")}))

	rec, ok := table.Get(slot)
	require.True(t, ok)
	assert.Equal(t, slot, rec.SlotID)
	assert.Equal(t, value.OfStr("Janet"), rec.Get("name"))

	assert.Empty(t, idx.Lookup(value.OfStr("Jane")))
	assert.Equal(t, []int{slot}, idx.Lookup(value.OfStr("Janet")))
}

func TestIndexLookupAndUniqueKeyCount(t *testing.T) {
	table := NewTable()
	idx := table.EnsureIndex("age")
	table.Insert(map[string]value.Value{"age": value.OfInt(20)})
	table.Insert(map[string]value.Value{"age": value.OfInt(22)})
	table.Insert(map[string]value.Value{"age": value.OfInt(20)})

	assert.Len(t, idx.Lookup(value.OfInt(20)), 2)
	assert.Equal(t, 2, idx.UniqueKeyCount())
}

func TestIndexRangeScan(t *testing.T) {
	table := NewTable()
	idx := table.EnsureIndex("age")
	table.Insert(map[string]value.Value{"age": value.OfInt(19)})
	table.Insert(map[string]value.Value{"age": value.OfInt(20)})
	table.Insert(map[string]value.Value{"age": value.OfInt(22)})

	min := value.OfInt(20)
	ids := idx.Range(&min, nil, true, true)
	assert.Len(t, ids, 2)
}

func TestVacuumCompactsAndRenumbersAndRebuildsIndex(t *testing.T) {
	table := NewTable()
	idx := table.EnsureIndex("id")
	s0 := table.Insert(map[string]value.Value{"id": value.OfInt(1)})
	table.Insert(map[string]value.Value{"id": value.OfInt(2)})
	require.NoError(t, table.Delete(s0))
	table.Insert(map[string]value.Value{"id": value.OfInt(3)})

	table.Vacuum()

	assert.Equal(t, 2, table.LiveCount())
	live := table.Scan()
	require.Len(t, live, 2)
	assert.Equal(t, 0, live[0].SlotID)
	assert.Equal(t, 1, live[1].SlotID)

	ids := idx.Lookup(value.OfInt(2))
	require.Len(t, ids, 1)
	assert.Equal(t, 0, ids[0])
}

func TestManagerTreatsMissingTableAsEmpty(t *testing.T) {
	m := NewManager()
	table := m.Table("ghost")
	assert.Empty(t, table.Scan())
}
