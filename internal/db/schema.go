package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema es idempotente: el backend de desarrollo lo aplica en cada arranque.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		role           TEXT NOT NULL CHECK (role IN ('PATIENT', 'NURSE')),
		specialization TEXT NOT NULL DEFAULT '',
		avatar         TEXT NOT NULL DEFAULT '',
		available      BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id          TEXT PRIMARY KEY,
		sender_id   TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		body        TEXT NOT NULL,
		read        BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS chat_messages_pair_idx
		ON chat_messages (LEAST(sender_id, receiver_id), GREATEST(sender_id, receiver_id), created_at)`,
}

// EnsureSchema crea las tablas del chat si todavía no existen.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
