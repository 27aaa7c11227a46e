package db

import (
	"context"

	"github.com/pkg/errors"
)

const schema = `
CREATE SEQUENCE IF NOT EXISTS ticket_number_seq;

CREATE TABLE IF NOT EXISTS departments (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL,
	role          TEXT NOT NULL,
	department_id TEXT REFERENCES departments(id)
);

CREATE TABLE IF NOT EXISTS tickets (
	id                  TEXT PRIMARY KEY,
	number              TEXT NOT NULL UNIQUE DEFAULT ('CLM-' || lpad(nextval('ticket_number_seq')::text, 6, '0')),
	title               TEXT NOT NULL,
	description         TEXT NOT NULL,
	category            TEXT NOT NULL,
	priority            TEXT NOT NULL,
	status              TEXT NOT NULL DEFAULT 'new'
		CHECK (status IN ('new','in_progress','pending_review','resolved','closed','rejected')),
	created_by          TEXT NOT NULL,
	assigned_department TEXT REFERENCES departments(id),
	assigned_user       TEXT REFERENCES users(id),
	input_type          TEXT NOT NULL CHECK (input_type IN ('text','voice','file','combined')),
	original_content    JSONB NOT NULL,
	confidence_score    DOUBLE PRECISION NOT NULL CHECK (confidence_score >= 0 AND confidence_score <= 1),
	ai_summary          TEXT NOT NULL DEFAULT '',
	sla_deadline        TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	resolved_at         TIMESTAMPTZ,
	closed_at           TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS tickets_department_idx ON tickets (assigned_department);
CREATE INDEX IF NOT EXISTS tickets_created_at_idx ON tickets (created_at DESC);

CREATE TABLE IF NOT EXISTS attachments (
	id          TEXT PRIMARY KEY,
	ticket_id   TEXT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
	file_name   TEXT NOT NULL,
	file_type   TEXT NOT NULL,
	file_size   BIGINT NOT NULL,
	storage_url TEXT NOT NULL,
	analysis    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS activities (
	id          TEXT PRIMARY KEY,
	ticket_id   TEXT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
	actor_id    TEXT NOT NULL,
	type        TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	recipient_id TEXT NOT NULL,
	ticket_id    TEXT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
	title        TEXT NOT NULL,
	message      TEXT NOT NULL,
	type         TEXT NOT NULL,
	is_read      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS notifications_recipient_idx ON notifications (recipient_id, is_read);
`

// Migrate applies the schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schema)
	return errors.Wrap(err, "apply schema")
}
