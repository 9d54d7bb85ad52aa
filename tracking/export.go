package tracking

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
)

var exportQuery = newScopedStatement(
	`SELECT id, timestamp, original_cmd, rtk_cmd, input_tokens, output_tokens,
	saved_tokens, savings_pct, COALESCE(exec_time_ms, 0), COALESCE(working_dir, '')
FROM commands`,
	` ORDER BY timestamp, id`)

// Export writes every record in scope to w as newline-delimited JSON,
// oldest first. It returns the number of records written.
func (t *Tracker) Export(ctx context.Context, w io.Writer, scope QueryScope) (int, error) {
	query, args := exportQuery.bind(scope)
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("tracking: export: %w", err)
	}
	defer rows.Close()

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	n := 0
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return n, fmt.Errorf("tracking: export: %w", err)
		}
		if err := enc.Encode(rec); err != nil {
			return n, fmt.Errorf("tracking: export: encode: %w", err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("tracking: export: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("tracking: export: write: %w", err)
	}
	return n, nil
}

func scanRecord(rows *sql.Rows) (CommandRecord, error) {
	var (
		rec CommandRecord
		ts  string
	)
	err := rows.Scan(&rec.ID, &ts, &rec.OriginalCmd, &rec.RtkCmd, &rec.InputTokens,
		&rec.OutputTokens, &rec.SavedTokens, &rec.SavingsPct, &rec.ExecTimeMs, &rec.WorkingDir)
	if err != nil {
		return rec, err
	}
	if rec.Timestamp, err = ParseTimestamp(ts); err != nil {
		return rec, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	return rec, nil
}
