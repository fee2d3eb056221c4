package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/querystore/internal/ir"
)

// Put inserts or replaces an entity and returns its key.
//
// An empty key name is allocated by the store's NameGenerator (UUIDv7 by
// default). Every property must be a supported scalar (see ir.KindOf).
func (s *Store) Put(ctx context.Context, e ir.Entity) (ir.Key, error) {
	key := e.Key
	if key.Kind == "" {
		return ir.Key{}, fmt.Errorf("put: entity kind must not be empty")
	}
	if key.Name == "" {
		key.Name = s.names.Generate()
	}

	propsJSON, typesJSON, err := marshalProperties(e.Properties)
	if err != nil {
		return ir.Key{}, fmt.Errorf("put %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (kind, name, key, props, types, seq)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM entities))
		ON CONFLICT(kind, name) DO UPDATE SET
			props = excluded.props,
			types = excluded.types,
			seq = excluded.seq
	`,
		key.Kind,
		key.Name,
		key.String(),
		propsJSON,
		typesJSON,
	)
	if err != nil {
		return ir.Key{}, fmt.Errorf("put %s: %w", key, err)
	}

	return key, nil
}

// Get retrieves the entity with the given key.
// Returns ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, key ir.Key) (ir.Entity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, props, types
		FROM entities
		WHERE key = ?
	`, key.String())

	e, err := scanEntity(row, false)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Entity{}, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return ir.Entity{}, fmt.Errorf("get %s: %w", key, err)
	}
	return e, nil
}

// Delete removes the entity with the given key.
// Returns ErrNotFound if it does not exist.
func (s *Store) Delete(ctx context.Context, key ir.Key) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE key = ?`, key.String())
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", key, ErrNotFound)
	}
	return nil
}

// Kinds returns every kind with at least one entity, in byte order.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) Kinds(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT kind
		FROM entities
		ORDER BY kind COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query kinds: %w", err)
	}
	defer rows.Close()

	kinds := []string{}
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return nil, fmt.Errorf("scan kind: %w", err)
		}
		kinds = append(kinds, kind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kinds: %w", err)
	}
	return kinds, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanEntity reads one entity. Keys-only rows carry just the key column
// and produce an entity with nil Properties.
func scanEntity(row scanner, keysOnly bool) (ir.Entity, error) {
	var keyStr string
	if keysOnly {
		if err := row.Scan(&keyStr); err != nil {
			return ir.Entity{}, err
		}
		key, err := ir.ParseKey(keyStr)
		if err != nil {
			return ir.Entity{}, err
		}
		return ir.Entity{Key: key}, nil
	}

	var propsJSON, typesJSON string
	if err := row.Scan(&keyStr, &propsJSON, &typesJSON); err != nil {
		return ir.Entity{}, err
	}
	key, err := ir.ParseKey(keyStr)
	if err != nil {
		return ir.Entity{}, err
	}
	props, err := unmarshalProperties(propsJSON, typesJSON)
	if err != nil {
		return ir.Entity{}, fmt.Errorf("entity %s: %w", key, err)
	}
	return ir.Entity{Key: key, Properties: props}, nil
}
