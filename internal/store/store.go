// Package store defines the keyed-entity store contract the coordinators
// run against: entities addressed by (partition key, row key), optimistic
// concurrency through an opaque etag, and partition-scoped queries.
package store

import "context"

// Entity is a schemaless record addressed by (PartitionKey, RowKey).
// Props holds the named fields; historical records may carry fields under
// legacy names or casings, which callers normalize on read.
type Entity struct {
	PartitionKey string
	RowKey       string
	// ETag is the opaque version token for the entity as last read.
	// Set by the store on Get and Query; ignored on writes (pass the
	// token explicitly as ifMatch instead).
	ETag  string
	Props map[string]any
}

// UpdateMode selects how Update applies Props to the stored entity.
type UpdateMode int

const (
	// Merge overlays the given Props onto the stored entity, leaving
	// unmentioned fields intact.
	Merge UpdateMode = iota
	// Replace discards the stored Props entirely.
	Replace
)

// Table is a client for one logical entity table.
//
// All conditional operations take an ifMatch token: the entity's etag from a
// prior read, or "*" (or empty) for an unconditional write. A conditional
// write against a stale token fails with ErrPreconditionFailed; that failure
// is the sole serialization point for concurrent mutations of one entity.
type Table interface {
	// Get fetches one entity. ErrNotFound if absent.
	Get(ctx context.Context, partition, row string) (*Entity, error)

	// Insert creates a new entity and returns its etag.
	// ErrEntityExists if the (partition, row) pair is already taken.
	Insert(ctx context.Context, ent *Entity) (string, error)

	// Update applies ent.Props to the stored entity per mode and returns
	// the new etag. ErrNotFound if absent, ErrPreconditionFailed if
	// ifMatch names a token the entity no longer carries.
	Update(ctx context.Context, ent *Entity, mode UpdateMode, ifMatch string) (string, error)

	// Delete removes an entity. ErrNotFound if absent,
	// ErrPreconditionFailed on a stale ifMatch.
	Delete(ctx context.Context, partition, row, ifMatch string) error

	// Query returns the entities of one partition in store order.
	// An empty partition scans the whole table. The result is a finite
	// snapshot; each call restarts the enumeration.
	Query(ctx context.Context, partition string, opts QueryOptions) ([]Entity, error)
}

// QueryOptions filters a Query.
type QueryOptions struct {
	// Eq keeps only entities whose named props equal the given values
	// (compared as strings).
	Eq map[string]string
}
