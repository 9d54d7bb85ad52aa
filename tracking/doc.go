// Package tracking records the token savings of every rtk invocation in a
// local SQLite database and answers scoped aggregation queries over that
// history (totals, per command, per day, week and month, recent commands).
//
// Callers wrapping a tool use TimedExecution:
//
//	timer := tracking.Start()
//	raw, compact := run()
//	timer.Track(ctx, "git status", "rtk git status", raw, compact)
//
// Reporting code opens a Tracker and queries it with a QueryScope.
package tracking
