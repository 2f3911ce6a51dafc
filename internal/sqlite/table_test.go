package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yacnet/signupd/internal/store"
)

func TestTableStore_InsertAndGet(t *testing.T) {
	db := NewTestDB(t)
	slots := NewTableStore(db, "Slots")
	ctx := context.Background()

	etag, err := slots.Insert(ctx, &store.Entity{
		PartitionKey: "proj1",
		RowKey:       "slot1",
		Props:        map[string]any{"Task": "Serve lunch", "Capacity": 2},
	})
	require.NoError(t, err)
	require.NotEmpty(t, etag)

	got, err := slots.Get(ctx, "proj1", "slot1")
	require.NoError(t, err)
	require.Equal(t, etag, got.ETag)
	require.Equal(t, "Serve lunch", got.Props["Task"])
	// Numbers round-trip through JSON as float64
	require.Equal(t, float64(2), got.Props["Capacity"])

	_, err = slots.Get(ctx, "proj1", "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTableStore_InsertDuplicate(t *testing.T) {
	db := NewTestDB(t)
	slots := NewTableStore(db, "Slots")
	ctx := context.Background()

	ent := &store.Entity{PartitionKey: "proj1", RowKey: "slot1", Props: map[string]any{"Task": "x"}}
	_, err := slots.Insert(ctx, ent)
	require.NoError(t, err)

	_, err = slots.Insert(ctx, ent)
	require.ErrorIs(t, err, store.ErrEntityExists)
}

func TestTableStore_TablesAreIsolated(t *testing.T) {
	db := NewTestDB(t)
	slots := NewTableStore(db, "Slots")
	volunteers := NewTableStore(db, "SlotVolunteers")
	ctx := context.Background()

	_, err := slots.Insert(ctx, &store.Entity{
		PartitionKey: "proj1", RowKey: "k1", Props: map[string]any{"Task": "x"},
	})
	require.NoError(t, err)

	_, err = volunteers.Get(ctx, "proj1", "k1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTableStore_UpdateMerge(t *testing.T) {
	db := NewTestDB(t)
	slots := NewTableStore(db, "Slots")
	ctx := context.Background()

	etag, err := slots.Insert(ctx, &store.Entity{
		PartitionKey: "proj1",
		RowKey:       "slot1",
		Props:        map[string]any{"Task": "Serve lunch", "Status": "available"},
	})
	require.NoError(t, err)

	newETag, err := slots.Update(ctx, &store.Entity{
		PartitionKey: "proj1",
		RowKey:       "slot1",
		Props:        map[string]any{"Status": "filled"},
	}, store.Merge, etag)
	require.NoError(t, err)
	require.NotEqual(t, etag, newETag, "etag rotates on every write")

	got, err := slots.Get(ctx, "proj1", "slot1")
	require.NoError(t, err)
	require.Equal(t, "filled", got.Props["Status"])
	require.Equal(t, "Serve lunch", got.Props["Task"], "merge keeps unmentioned fields")
}

func TestTableStore_UpdateReplace(t *testing.T) {
	db := NewTestDB(t)
	slots := NewTableStore(db, "Slots")
	ctx := context.Background()

	etag, err := slots.Insert(ctx, &store.Entity{
		PartitionKey: "proj1",
		RowKey:       "slot1",
		Props:        map[string]any{"Task": "Serve lunch", "Status": "available"},
	})
	require.NoError(t, err)

	_, err = slots.Update(ctx, &store.Entity{
		PartitionKey: "proj1",
		RowKey:       "slot1",
		Props:        map[string]any{"Status": "held"},
	}, store.Replace, etag)
	require.NoError(t, err)

	got, err := slots.Get(ctx, "proj1", "slot1")
	require.NoError(t, err)
	require.Equal(t, "held", got.Props["Status"])
	_, hasTask := got.Props["Task"]
	require.False(t, hasTask, "replace drops unmentioned fields")
}

func TestTableStore_UpdateConditional(t *testing.T) {
	db := NewTestDB(t)
	slots := NewTableStore(db, "Slots")
	ctx := context.Background()

	etag, err := slots.Insert(ctx, &store.Entity{
		PartitionKey: "proj1",
		RowKey:       "slot1",
		Props:        map[string]any{"FilledCount": 0},
	})
	require.NoError(t, err)

	// First writer wins
	update := &store.Entity{
		PartitionKey: "proj1",
		RowKey:       "slot1",
		Props:        map[string]any{"FilledCount": 1},
	}
	_, err = slots.Update(ctx, update, store.Merge, etag)
	require.NoError(t, err)

	// Second writer holds a stale token and loses
	_, err = slots.Update(ctx, update, store.Merge, etag)
	require.ErrorIs(t, err, store.ErrPreconditionFailed)
	require.True(t, store.IsConflict(err))

	// Unconditional write still goes through
	_, err = slots.Update(ctx, update, store.Merge, "*")
	require.NoError(t, err)

	_, err = slots.Update(ctx, &store.Entity{
		PartitionKey: "proj1",
		RowKey:       "missing",
		Props:        map[string]any{"FilledCount": 1},
	}, store.Merge, "")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTableStore_Delete(t *testing.T) {
	db := NewTestDB(t)
	volunteers := NewTableStore(db, "SlotVolunteers")
	ctx := context.Background()

	etag, err := volunteers.Insert(ctx, &store.Entity{
		PartitionKey: "proj1|slot1",
		RowKey:       "v1",
		Props:        map[string]any{"Email": "ada@example.org"},
	})
	require.NoError(t, err)

	require.ErrorIs(t,
		volunteers.Delete(ctx, "proj1|slot1", "v1", "stale-token"),
		store.ErrPreconditionFailed)

	require.NoError(t, volunteers.Delete(ctx, "proj1|slot1", "v1", etag))
	require.ErrorIs(t,
		volunteers.Delete(ctx, "proj1|slot1", "v1", ""),
		store.ErrNotFound)
}

func TestTableStore_Query(t *testing.T) {
	db := NewTestDB(t)
	slots := NewTableStore(db, "Slots")
	ctx := context.Background()

	seed := []struct{ partition, row, status string }{
		{"proj1", "b", "available"},
		{"proj1", "a", "filled"},
		{"proj2", "c", "available"},
	}
	for _, s := range seed {
		_, err := slots.Insert(ctx, &store.Entity{
			PartitionKey: s.partition,
			RowKey:       s.row,
			Props:        map[string]any{"Status": s.status},
		})
		require.NoError(t, err)
	}

	ents, err := slots.Query(ctx, "proj1", store.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, ents, 2)
	require.Equal(t, "a", ents[0].RowKey, "partition scans are key-ordered")
	require.Equal(t, "b", ents[1].RowKey)

	all, err := slots.Query(ctx, "", store.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	open, err := slots.Query(ctx, "proj1", store.QueryOptions{
		Eq: map[string]string{"Status": "available"},
	})
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, "b", open[0].RowKey)
}
