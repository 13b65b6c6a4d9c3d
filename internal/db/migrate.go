package db

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

type Migration struct {
	Version int64
	Name    string
	SQL     string
}

//go:embed migrations/0001_create_tables.sql
var createTablesSQL string

var migrations = []Migration{
	{Version: 1, Name: "create tables", SQL: createTablesSQL},
}

const migrationsTable = `CREATE TABLE IF NOT EXISTS migrations (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	version INTEGER NOT NULL UNIQUE
)`

// Migrate applies every pending migration inside a single transaction.
func Migrate(ctx context.Context, db Beginner, log logrus.FieldLogger) error {
	return WithTx(ctx, db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, migrationsTable); err != nil {
			return err
		}

		var current int64
		if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM migrations`).Scan(&current); err != nil {
			return err
		}

		todo := pending(current)
		if len(todo) == 0 {
			log.WithField("version", current).Info("schema up to date")
			return nil
		}
		for _, m := range todo {
			log.WithField("version", m.Version).Infof("running migration %q", m.Name)
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `INSERT INTO migrations (name, version) VALUES ($1, $2)`, m.Name, m.Version); err != nil {
				return err
			}
		}
		return nil
	})
}

// pending reports the migrations newer than version.
func pending(version int64) []Migration {
	var out []Migration
	for _, m := range migrations {
		if m.Version > version {
			out = append(out, m)
		}
	}
	return out
}
