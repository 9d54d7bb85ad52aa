package tracking

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yoanbernabeu/rtk/project"
)

// TimedExecution measures one wrapped command and records it when done.
// Recording is best effort: failures are logged at debug level and never
// reach the caller.
type TimedExecution struct {
	start  time.Time
	logger *log.Logger
	open   func() (*Tracker, error)
	root   func() string
}

// Start begins timing a command.
func Start() *TimedExecution {
	te := &TimedExecution{
		start:  time.Now(),
		logger: log.Default().WithPrefix("tracking"),
		root:   project.DetectRoot,
	}
	te.open = func() (*Tracker, error) { return OpenDefault(WithLogger(te.logger)) }
	return te
}

// WithLogger sets the logger used to report recording failures.
func (te *TimedExecution) WithLogger(l *log.Logger) *TimedExecution {
	if l != nil {
		te.logger = l
	}
	return te
}

// Elapsed returns the time since Start.
func (te *TimedExecution) Elapsed() time.Duration {
	return time.Since(te.start)
}

// Track records the command with token counts estimated from the raw output
// (input) and the compacted output.
func (te *TimedExecution) Track(ctx context.Context, originalCmd, rtkCmd, input, output string) {
	te.record(ctx, Entry{
		OriginalCmd:  originalCmd,
		RtkCmd:       rtkCmd,
		InputTokens:  EstimateTokens(input),
		OutputTokens: EstimateTokens(output),
	})
}

// TrackPassthrough records a command whose output was streamed and not
// captured. Only timing is kept, so both token counts are zero.
func (te *TimedExecution) TrackPassthrough(ctx context.Context, originalCmd, rtkCmd string) {
	te.record(ctx, Entry{
		OriginalCmd: originalCmd,
		RtkCmd:      rtkCmd,
	})
}

func (te *TimedExecution) record(ctx context.Context, e Entry) {
	e.ExecTimeMs = te.Elapsed().Milliseconds()
	e.WorkingDir = te.root()

	t, err := te.open()
	if err != nil {
		te.logger.Debug("tracking unavailable", "err", err)
		return
	}
	defer t.Close()

	if err := t.Record(ctx, e); err != nil {
		te.logger.Debug("record failed", "cmd", e.RtkCmd, "err", err)
	}
}
