package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

const createQuizTablesSQL = `
CREATE TABLE IF NOT EXISTS quizzes (
	id   TEXT PRIMARY KEY,
	data JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS invitations (
	token      TEXT PRIMARY KEY,
	quiz_id    TEXT NOT NULL REFERENCES quizzes (id),
	used       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS submissions (
	id           UUID PRIMARY KEY,
	token        TEXT NOT NULL REFERENCES invitations (token),
	quiz_id      TEXT NOT NULL REFERENCES quizzes (id),
	answers      JSONB NOT NULL,
	score        INT NOT NULL,
	total        INT NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS submissions_quiz_rank_idx
	ON submissions (quiz_id, score DESC, submitted_at);
`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createQuizTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`DROP TABLE IF EXISTS submissions; DROP TABLE IF EXISTS invitations; DROP TABLE IF EXISTS quizzes`)
			return err
		},
	)
}
