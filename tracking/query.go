package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
)

const bucketSums = `COUNT(*),
	COALESCE(SUM(input_tokens), 0),
	COALESCE(SUM(output_tokens), 0),
	COALESCE(SUM(saved_tokens), 0),
	COALESCE(SUM(exec_time_ms), 0)`

var (
	totalsQuery = newScopedStatement(
		`SELECT `+bucketSums+` FROM commands`, ``)

	byCommandQuery = newScopedStatement(
		`SELECT rtk_cmd, COUNT(*), COALESCE(SUM(saved_tokens), 0),
	COALESCE(AVG(savings_pct), 0), COALESCE(AVG(exec_time_ms), 0)
FROM commands`,
		` GROUP BY rtk_cmd ORDER BY SUM(saved_tokens) DESC, rtk_cmd LIMIT ?`)

	byDayQuery = newScopedStatement(
		`SELECT DATE(timestamp) AS day, `+bucketSums+` FROM commands`,
		` GROUP BY day ORDER BY day DESC LIMIT ?`)

	byWeekQuery = newScopedStatement(
		`SELECT DATE(timestamp, 'weekday 0', '-6 days') AS week_start,
	DATE(timestamp, 'weekday 0') AS week_end, `+bucketSums+` FROM commands`,
		` GROUP BY week_start ORDER BY week_start DESC`)

	byMonthQuery = newScopedStatement(
		`SELECT strftime('%Y-%m', timestamp) AS month, `+bucketSums+` FROM commands`,
		` GROUP BY month ORDER BY month DESC`)

	recentQuery = newScopedStatement(
		`SELECT timestamp, rtk_cmd, saved_tokens, savings_pct FROM commands`,
		` ORDER BY timestamp DESC, id DESC LIMIT ?`)
)

// unlimited disables a LIMIT clause in SQLite.
const unlimited = -1

// GetSummary returns totals over every record in scope together with the
// topN commands by saved tokens and the last DaySummaryLimit days.
func (t *Tracker) GetSummary(ctx context.Context, scope QueryScope, topN int) (*Summary, error) {
	query, args := totalsQuery.bind(scope)
	var tot totalsRow
	if err := t.db.QueryRowContext(ctx, query, args...).Scan(tot.dest()...); err != nil {
		return nil, fmt.Errorf("tracking: summary: %w", err)
	}
	totals := tot.totals()

	byCommand, err := t.GetByCommand(ctx, scope, topN)
	if err != nil {
		return nil, err
	}
	byDay, err := t.GetByDay(ctx, scope)
	if err != nil {
		return nil, err
	}

	return &Summary{
		TotalCommands: totals.Commands,
		TotalInput:    totals.InputTokens,
		TotalOutput:   totals.OutputTokens,
		TotalSaved:    totals.SavedTokens,
		AvgSavingsPct: totals.SavingsPct,
		TotalTimeMs:   totals.TotalTimeMs,
		AvgTimeMs:     totals.AvgTimeMs,
		ByCommand:     byCommand,
		ByDay:         byDay,
	}, nil
}

// GetByCommand returns up to topN command labels ordered by total saved
// tokens, highest first. A negative topN yields no rows.
func (t *Tracker) GetByCommand(ctx context.Context, scope QueryScope, topN int) ([]CommandStats, error) {
	query, args := byCommandQuery.bind(scope, max(topN, 0))
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tracking: by command: %w", err)
	}
	defer rows.Close()

	result := []CommandStats{}
	for rows.Next() {
		var (
			cs      CommandStats
			avgTime float64
		)
		if err := rows.Scan(&cs.Command, &cs.Count, &cs.SavedTokens, &cs.AvgSavingsPct, &avgTime); err != nil {
			return nil, fmt.Errorf("tracking: by command: %w", err)
		}
		cs.AvgTimeMs = int64(avgTime)
		result = append(result, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracking: by command: %w", err)
	}
	return result, nil
}

// GetByDay returns the DaySummaryLimit most recent UTC days that have
// records, oldest first.
func (t *Tracker) GetByDay(ctx context.Context, scope QueryScope) ([]DayStats, error) {
	return t.days(ctx, scope, DaySummaryLimit)
}

// GetAllDays returns every UTC day that has records, oldest first.
func (t *Tracker) GetAllDays(ctx context.Context, scope QueryScope) ([]DayStats, error) {
	return t.days(ctx, scope, unlimited)
}

func (t *Tracker) days(ctx context.Context, scope QueryScope, limit int) ([]DayStats, error) {
	query, args := byDayQuery.bind(scope, limit)
	result, err := collect(ctx, t.db, query, args, func(rows *sql.Rows) (DayStats, error) {
		var (
			d   DayStats
			tot totalsRow
		)
		err := rows.Scan(append([]any{&d.Date}, tot.dest()...)...)
		d.Totals = tot.totals()
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("tracking: by day: %w", err)
	}
	slices.Reverse(result)
	return result, nil
}

// GetByWeek returns one bucket per Monday-to-Sunday week that has records,
// oldest first.
func (t *Tracker) GetByWeek(ctx context.Context, scope QueryScope) ([]WeekStats, error) {
	query, args := byWeekQuery.bind(scope)
	result, err := collect(ctx, t.db, query, args, func(rows *sql.Rows) (WeekStats, error) {
		var (
			w   WeekStats
			tot totalsRow
		)
		err := rows.Scan(append([]any{&w.WeekStart, &w.WeekEnd}, tot.dest()...)...)
		w.Totals = tot.totals()
		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("tracking: by week: %w", err)
	}
	slices.Reverse(result)
	return result, nil
}

// GetByMonth returns one bucket per calendar month that has records,
// oldest first.
func (t *Tracker) GetByMonth(ctx context.Context, scope QueryScope) ([]MonthStats, error) {
	query, args := byMonthQuery.bind(scope)
	result, err := collect(ctx, t.db, query, args, func(rows *sql.Rows) (MonthStats, error) {
		var (
			m   MonthStats
			tot totalsRow
		)
		err := rows.Scan(append([]any{&m.Month}, tot.dest()...)...)
		m.Totals = tot.totals()
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("tracking: by month: %w", err)
	}
	slices.Reverse(result)
	return result, nil
}

// GetRecent returns up to limit records, newest first.
func (t *Tracker) GetRecent(ctx context.Context, limit int, scope QueryScope) ([]RecentCommand, error) {
	query, args := recentQuery.bind(scope, max(limit, 0))
	result, err := collect(ctx, t.db, query, args, func(rows *sql.Rows) (RecentCommand, error) {
		var (
			rc RecentCommand
			ts string
		)
		if err := rows.Scan(&ts, &rc.RtkCmd, &rc.SavedTokens, &rc.SavingsPct); err != nil {
			return rc, err
		}
		parsed, err := ParseTimestamp(ts)
		if err != nil {
			return rc, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		rc.Timestamp = parsed
		return rc, nil
	})
	if err != nil {
		return nil, fmt.Errorf("tracking: recent: %w", err)
	}
	return result, nil
}

// totalsRow receives the bucketSums columns.
type totalsRow struct {
	commands, input, output, saved int
	timeMs                         int64
}

func (r *totalsRow) dest() []any {
	return []any{&r.commands, &r.input, &r.output, &r.saved, &r.timeMs}
}

func (r *totalsRow) totals() Totals {
	return newTotals(r.commands, r.input, r.output, r.saved, r.timeMs)
}

// collect runs query and maps every row with scan.
func collect[T any](ctx context.Context, db *sql.DB, query string, args []any, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
