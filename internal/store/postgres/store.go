// Package postgres backs the generic record store with a single JSONB
// table, so every collection shares one schema and one migration.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/exrev201-arch/freshed-fulfillment/internal/store"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func Open(cfg DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

func (s *Store) Create(ctx context.Context, collection string, rec store.Record) (store.Record, error) {
	stored := make(store.Record, len(rec)+1)
	for k, v := range rec {
		stored[k] = v
	}
	id, _ := stored["id"].(string)
	if id == "" {
		id = uuid.NewString()
		stored["id"] = id
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record for %s: %w", collection, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (collection, id, data) VALUES ($1, $2, $3)`,
		collection, id, data,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create record in %s: %w", collection, err)
	}
	return stored, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Record, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM records WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record %s from %s: %w", id, collection, err)
	}
	return decodeRow(data)
}

func (s *Store) Find(ctx context.Context, collection string, q store.Query) ([]store.Record, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT data FROM records WHERE collection = $1`)
	args := []any{collection}

	// Filter fields and sort keys come from code, never from request
	// input, so interpolating the JSON path is safe.
	for field, value := range q.Filter {
		args = append(args, fmt.Sprint(value))
		fmt.Fprintf(&sb, ` AND data->>'%s' = $%d`, field, len(args))
	}
	if q.SortBy != "" {
		fmt.Fprintf(&sb, ` ORDER BY data->>'%s'`, q.SortBy)
		if q.SortDesc {
			sb.WriteString(` DESC`)
		}
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	records := make([]store.Record, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan record from %s: %w", collection, err)
		}
		rec, err := decodeRow(data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", collection, err)
	}
	return records, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, partial store.Record) (store.Record, error) {
	data, err := json.Marshal(partial)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal partial record for %s: %w", collection, err)
	}

	var merged []byte
	err = s.db.QueryRowContext(ctx,
		`UPDATE records SET data = data || $3::jsonb
		 WHERE collection = $1 AND id = $2
		 RETURNING data`,
		collection, id, data,
	).Scan(&merged)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to update record %s in %s: %w", id, collection, err)
	}
	return decodeRow(merged)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete record %s from %s: %w", id, collection, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for delete: %w", err)
	}
	if affected == 0 {
		return store.ErrRecordNotFound
	}
	return nil
}

func decodeRow(data []byte) (store.Record, error) {
	var rec store.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record data: %w", err)
	}
	return rec, nil
}
