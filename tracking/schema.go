package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const createCommandsTable = `
CREATE TABLE IF NOT EXISTS commands (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	original_cmd TEXT NOT NULL,
	rtk_cmd TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	saved_tokens INTEGER NOT NULL,
	savings_pct REAL NOT NULL
)`

const createTimestampIndex = `CREATE INDEX IF NOT EXISTS idx_timestamp ON commands(timestamp)`

const createWorkingDirIndex = `CREATE INDEX IF NOT EXISTS idx_working_dir ON commands(working_dir)`

// addedColumns were introduced after the first schema version. Databases
// created by older builds lack them.
var addedColumns = []string{
	`ALTER TABLE commands ADD COLUMN exec_time_ms INTEGER DEFAULT 0`,
	`ALTER TABLE commands ADD COLUMN working_dir TEXT DEFAULT ''`,
}

// migrate brings the schema up to date. It is idempotent and runs on every open.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createCommandsTable); err != nil {
		return fmt.Errorf("create commands table: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTimestampIndex); err != nil {
		return fmt.Errorf("create timestamp index: %w", err)
	}
	for _, stmt := range addedColumns {
		if _, err := db.ExecContext(ctx, stmt); err != nil && !isDuplicateColumn(err) {
			return fmt.Errorf("add column: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, createWorkingDirIndex); err != nil {
		return fmt.Errorf("create working_dir index: %w", err)
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}
