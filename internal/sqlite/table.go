package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/yacnet/signupd/internal/store"
)

// TableStore implements store.Table for one logical table in SQLite
type TableStore struct {
	db  *DB
	tbl string
}

// NewTableStore creates a client for the named logical table
func NewTableStore(db *DB, table string) *TableStore {
	return &TableStore{db: db, tbl: table}
}

// Get retrieves an entity by partition and row key
func (t *TableStore) Get(ctx context.Context, partition, row string) (*store.Entity, error) {
	query := `
		SELECT etag, props
		FROM entities
		WHERE tbl = ? AND partition_key = ? AND row_key = ?
	`

	var etag, raw string
	err := t.db.QueryRowContext(ctx, query, t.tbl, partition, row).Scan(&etag, &raw)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	props, err := decodeProps(raw)
	if err != nil {
		return nil, err
	}

	return &store.Entity{
		PartitionKey: partition,
		RowKey:       row,
		ETag:         etag,
		Props:        props,
	}, nil
}

// Insert creates a new entity and returns its etag
func (t *TableStore) Insert(ctx context.Context, ent *store.Entity) (string, error) {
	raw, err := encodeProps(ent.Props)
	if err != nil {
		return "", err
	}

	etag := uuid.NewString()
	query := `
		INSERT INTO entities (tbl, partition_key, row_key, etag, props)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err = t.db.ExecContext(ctx, query, t.tbl, ent.PartitionKey, ent.RowKey, etag, raw)
	if err != nil {
		if isUniqueViolation(err) {
			return "", store.ErrEntityExists
		}
		return "", fmt.Errorf("failed to insert entity: %w", err)
	}

	return etag, nil
}

// Update applies ent.Props per mode, gated on ifMatch when given.
// The etag-conditioned UPDATE is the serialization point: of two writers
// holding the same token, only one can match the stored etag.
func (t *TableStore) Update(ctx context.Context, ent *store.Entity, mode store.UpdateMode, ifMatch string) (string, error) {
	props := ent.Props
	if mode == store.Merge {
		current, err := t.Get(ctx, ent.PartitionKey, ent.RowKey)
		if err != nil {
			return "", err
		}
		if conditional(ifMatch) && current.ETag != ifMatch {
			return "", store.ErrPreconditionFailed
		}
		merged := current.Props
		for k, v := range ent.Props {
			merged[k] = v
		}
		props = merged
	}

	raw, err := encodeProps(props)
	if err != nil {
		return "", err
	}

	etag := uuid.NewString()
	query := `
		UPDATE entities
		SET etag = ?, props = ?, updated_at = CURRENT_TIMESTAMP
		WHERE tbl = ? AND partition_key = ? AND row_key = ?
	`
	args := []any{etag, raw, t.tbl, ent.PartitionKey, ent.RowKey}
	if conditional(ifMatch) {
		query += ` AND etag = ?`
		args = append(args, ifMatch)
	}

	result, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("failed to update entity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		exists, err := t.exists(ctx, ent.PartitionKey, ent.RowKey)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", store.ErrNotFound
		}
		// Entity exists but the etag moved on - lost the race
		return "", store.ErrPreconditionFailed
	}

	return etag, nil
}

// Delete removes an entity, gated on ifMatch when given
func (t *TableStore) Delete(ctx context.Context, partition, row, ifMatch string) error {
	query := `DELETE FROM entities WHERE tbl = ? AND partition_key = ? AND row_key = ?`
	args := []any{t.tbl, partition, row}
	if conditional(ifMatch) {
		query += ` AND etag = ?`
		args = append(args, ifMatch)
	}

	result, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		exists, err := t.exists(ctx, partition, row)
		if err != nil {
			return err
		}
		if !exists {
			return store.ErrNotFound
		}
		return store.ErrPreconditionFailed
	}

	return nil
}

// Query returns a partition's entities ordered by key. An empty partition
// scans the whole logical table.
func (t *TableStore) Query(ctx context.Context, partition string, opts store.QueryOptions) ([]store.Entity, error) {
	query := `
		SELECT partition_key, row_key, etag, props
		FROM entities
		WHERE tbl = ?
	`
	args := []any{t.tbl}
	if partition != "" {
		query += ` AND partition_key = ?`
		args = append(args, partition)
	}
	query += ` ORDER BY partition_key, row_key`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var entities []store.Entity
	for rows.Next() {
		var ent store.Entity
		var raw string
		if err := rows.Scan(&ent.PartitionKey, &ent.RowKey, &ent.ETag, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		props, err := decodeProps(raw)
		if err != nil {
			return nil, err
		}
		ent.Props = props
		if !matchesEq(ent.Props, opts.Eq) {
			continue
		}
		entities = append(entities, ent)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entity rows: %w", err)
	}

	return entities, nil
}

func (t *TableStore) exists(ctx context.Context, partition, row string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM entities WHERE tbl = ? AND partition_key = ? AND row_key = ?)`
	err := t.db.QueryRowContext(ctx, query, t.tbl, partition, row).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check entity existence: %w", err)
	}
	return exists, nil
}

func conditional(ifMatch string) bool {
	return ifMatch != "" && ifMatch != "*"
}

func matchesEq(props map[string]any, eq map[string]string) bool {
	for k, want := range eq {
		v, ok := props[k]
		if !ok || fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

func encodeProps(props map[string]any) (string, error) {
	raw, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("failed to encode entity props: %w", err)
	}
	return string(raw), nil
}

func decodeProps(raw string) (map[string]any, error) {
	props := make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		return nil, fmt.Errorf("failed to decode entity props: %w", err)
	}
	return props, nil
}
