package tracking

import "time"

// HistoryDays is the retention window. Rows older than this are deleted
// after every insert.
const HistoryDays = 90

// TimestampLayout is the encoding of the timestamp column. It is fixed width,
// zero padded and always UTC, so lexical order of the stored text equals
// chronological order. Retention relies on this for its text comparison.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// DaySummaryLimit is the number of most recent day buckets returned by GetByDay.
const DaySummaryLimit = 30

// Entry is one tracked invocation as supplied by a caller of Record.
type Entry struct {
	OriginalCmd  string // e.g. "git status"
	RtkCmd       string // e.g. "rtk git status"
	InputTokens  int    // estimated tokens of the raw tool output
	OutputTokens int    // estimated tokens of the compacted output
	ExecTimeMs   int64
	WorkingDir   string // project root, or "" when unscoped
}

// CommandRecord is a persisted row of the commands table.
type CommandRecord struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	OriginalCmd  string    `json:"original_cmd"`
	RtkCmd       string    `json:"rtk_cmd"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	SavedTokens  int       `json:"saved_tokens"`
	SavingsPct   float64   `json:"savings_pct"`
	ExecTimeMs   int64     `json:"exec_time_ms"`
	WorkingDir   string    `json:"working_dir"`
}

// RecentCommand is the projection of a record returned by GetRecent.
type RecentCommand struct {
	Timestamp   time.Time `json:"timestamp"`
	RtkCmd      string    `json:"rtk_cmd"`
	SavedTokens int       `json:"saved_tokens"`
	SavingsPct  float64   `json:"savings_pct"`
}

// CommandStats aggregates all records sharing a tracked-command label.
type CommandStats struct {
	Command       string  `json:"command"`
	Count         int     `json:"count"`
	SavedTokens   int     `json:"saved_tokens"`
	AvgSavingsPct float64 `json:"avg_savings_pct"`
	AvgTimeMs     int64   `json:"avg_time_ms"`
}

// Totals holds the sums and derived ratios of one time bucket.
type Totals struct {
	Commands     int     `json:"commands"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	SavedTokens  int     `json:"saved_tokens"`
	SavingsPct   float64 `json:"savings_pct"`
	TotalTimeMs  int64   `json:"total_time_ms"`
	AvgTimeMs    int64   `json:"avg_time_ms"`
}

// DayStats is a per-UTC-day bucket.
type DayStats struct {
	Date string `json:"date"` // YYYY-MM-DD
	Totals
}

// WeekStats is a per-week bucket. Weeks end on Sunday.
type WeekStats struct {
	WeekStart string `json:"week_start"` // YYYY-MM-DD, a Monday
	WeekEnd   string `json:"week_end"`   // YYYY-MM-DD, a Sunday
	Totals
}

// MonthStats is a per-month bucket.
type MonthStats struct {
	Month string `json:"month"` // YYYY-MM
	Totals
}

// Summary is the aggregated view over every record in a scope.
type Summary struct {
	TotalCommands int            `json:"total_commands"`
	TotalInput    int            `json:"total_input"`
	TotalOutput   int            `json:"total_output"`
	TotalSaved    int            `json:"total_saved"`
	AvgSavingsPct float64        `json:"avg_savings_pct"`
	TotalTimeMs   int64          `json:"total_time_ms"`
	AvgTimeMs     int64          `json:"avg_time_ms"`
	ByCommand     []CommandStats `json:"by_command"`
	ByDay         []DayStats     `json:"by_day"` // last DaySummaryLimit days, oldest first
}

// SavedTokens returns input minus output, floored at zero.
func SavedTokens(input, output int) int {
	if output >= input {
		return 0
	}
	return input - output
}

// SavingsPct returns saved as a percentage of input, or 0 when input is 0.
func SavingsPct(saved, input int) float64 {
	if input <= 0 {
		return 0
	}
	return float64(saved) / float64(input) * 100
}

func avgTime(total int64, count int) int64 {
	if count <= 0 {
		return 0
	}
	return total / int64(count)
}

// newTotals derives the ratio fields of a bucket from its sums.
func newTotals(commands, input, output, saved int, totalTimeMs int64) Totals {
	return Totals{
		Commands:     commands,
		InputTokens:  input,
		OutputTokens: output,
		SavedTokens:  saved,
		SavingsPct:   SavingsPct(saved, input),
		TotalTimeMs:  totalTimeMs,
		AvgTimeMs:    avgTime(totalTimeMs, commands),
	}
}

// newCommandRecord computes the derived fields of e at time now.
func newCommandRecord(e Entry, now time.Time) CommandRecord {
	input := max(e.InputTokens, 0)
	output := max(e.OutputTokens, 0)
	saved := SavedTokens(input, output)
	return CommandRecord{
		Timestamp:    now.UTC(),
		OriginalCmd:  e.OriginalCmd,
		RtkCmd:       e.RtkCmd,
		InputTokens:  input,
		OutputTokens: output,
		SavedTokens:  saved,
		SavingsPct:   SavingsPct(saved, input),
		ExecTimeMs:   max(e.ExecTimeMs, 0),
		WorkingDir:   e.WorkingDir,
	}
}

// FormatTimestamp encodes t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp decodes a stored timestamp. Any RFC 3339 value is accepted,
// including the +00:00 offset form of older rows.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
