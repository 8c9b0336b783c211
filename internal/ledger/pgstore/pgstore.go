// Package pgstore provides a PostgreSQL implementation of ledger.Store.
// Sets are rows in set_members; records are JSONB documents in entry_records.
package pgstore

import (
	_ "embed"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var tracer = otel.Tracer("github.com/linnemanlabs/hermes/internal/ledger/pgstore")

//go:embed schema.sql
var schema string

// Store persists ledger state in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store. The pool stays owned by
// the caller.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Exists reports set membership.
func (s *Store) Exists(ctx context.Context, set, key string) (bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Exists", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM set_members WHERE set_name = $1 AND member = $2`,
		set, key,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("select member: %w", err)
	}
	return true, nil
}

// WriteRecord upserts the field map as a JSONB document.
func (s *Store) WriteRecord(ctx context.Context, key string, fields map[string]string) error {
	ctx, span := tracer.Start(ctx, "pgstore.WriteRecord", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	doc, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO entry_records (key, fields, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()`,
		key, doc,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// AddToSet inserts a membership row; re-adding an existing member is a no-op.
func (s *Store) AddToSet(ctx context.Context, set, key string) error {
	ctx, span := tracer.Start(ctx, "pgstore.AddToSet", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO set_members (set_name, member) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		set, key,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// ReadSet returns all members of the named set.
func (s *Store) ReadSet(ctx context.Context, set string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ReadSet", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT member FROM set_members WHERE set_name = $1`, set)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("select members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// ReadRecord fetches the field map stored under key; an unknown key yields
// an empty map.
func (s *Store) ReadRecord(ctx context.Context, key string) (map[string]string, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ReadRecord", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT fields FROM entry_records WHERE key = $1`, key,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return map[string]string{}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("select record: %w", err)
	}

	fields := map[string]string{}
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return fields, nil
}
