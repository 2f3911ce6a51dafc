// Package memstore provides an in-memory store.Table with the same
// optimistic-concurrency semantics as the durable implementation. It backs
// unit and concurrency tests.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/yacnet/signupd/internal/store"
)

type entry struct {
	partition string
	row       string
	etag      string
	props     map[string]any
}

// Table is a mutex-guarded in-memory entity table.
type Table struct {
	mu      sync.Mutex
	entries []*entry

	// FailNextUpdate, when set, makes the next Update fail with the
	// given error instead of writing.
	FailNextUpdate error
	// FailQuery, when set, makes Query fail with the given error.
	FailQuery error
}

// New creates an empty table.
func New() *Table {
	return &Table{}
}

func (t *Table) find(partition, row string) (int, *entry) {
	for i, e := range t.entries {
		if e.partition == partition && e.row == row {
			return i, e
		}
	}
	return -1, nil
}

func (t *Table) Get(_ context.Context, partition, row string) (*store.Entity, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, e := t.find(partition, row)
	if e == nil {
		return nil, store.ErrNotFound
	}
	return e.toEntity(), nil
}

func (t *Table) Insert(_ context.Context, ent *store.Entity) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, e := t.find(ent.PartitionKey, ent.RowKey); e != nil {
		return "", store.ErrEntityExists
	}
	e := &entry{
		partition: ent.PartitionKey,
		row:       ent.RowKey,
		etag:      uuid.NewString(),
		props:     cloneProps(ent.Props),
	}
	t.entries = append(t.entries, e)
	return e.etag, nil
}

func (t *Table) Update(_ context.Context, ent *store.Entity, mode store.UpdateMode, ifMatch string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.FailNextUpdate; err != nil {
		t.FailNextUpdate = nil
		return "", err
	}

	_, e := t.find(ent.PartitionKey, ent.RowKey)
	if e == nil {
		return "", store.ErrNotFound
	}
	if ifMatch != "" && ifMatch != "*" && ifMatch != e.etag {
		return "", store.ErrPreconditionFailed
	}

	switch mode {
	case store.Replace:
		e.props = cloneProps(ent.Props)
	default:
		for k, v := range ent.Props {
			e.props[k] = v
		}
	}
	e.etag = uuid.NewString()
	return e.etag, nil
}

func (t *Table) Delete(_ context.Context, partition, row, ifMatch string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, e := t.find(partition, row)
	if e == nil {
		return store.ErrNotFound
	}
	if ifMatch != "" && ifMatch != "*" && ifMatch != e.etag {
		return store.ErrPreconditionFailed
	}
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	return nil
}

func (t *Table) Query(_ context.Context, partition string, opts store.QueryOptions) ([]store.Entity, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.FailQuery; err != nil {
		return nil, err
	}

	var out []store.Entity
	for _, e := range t.entries {
		if partition != "" && e.partition != partition {
			continue
		}
		if !matches(e.props, opts.Eq) {
			continue
		}
		out = append(out, *e.toEntity())
	}
	return out, nil
}

// Len reports the number of stored entities in a partition.
func (t *Table) Len(partition string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, e := range t.entries {
		if partition == "" || e.partition == partition {
			n++
		}
	}
	return n
}

func matches(props map[string]any, eq map[string]string) bool {
	for k, want := range eq {
		v, ok := props[k]
		if !ok || fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

func (e *entry) toEntity() *store.Entity {
	return &store.Entity{
		PartitionKey: e.partition,
		RowKey:       e.row,
		ETag:         e.etag,
		Props:        cloneProps(e.props),
	}
}

func cloneProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
