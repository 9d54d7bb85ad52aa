package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yoanbernabeu/rtk/config"
	"github.com/yoanbernabeu/rtk/tracking"
)

// ---- helpers ----

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

// setupDB points rtk at a fresh database and returns its path.
func setupDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")
	t.Setenv(config.EnvDatabasePath, dbPath)
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.yaml"))
	t.Setenv("RTK_LOG_LEVEL", "")
	return dbPath
}

func seed(t *testing.T, dbPath string, entries ...tracking.Entry) {
	t.Helper()
	tr, err := tracking.Open(dbPath, tracking.WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()
	for _, e := range entries {
		if err := tr.Record(context.Background(), e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout, _, err := runWithStderr(t, args...)
	return stdout, err
}

func runWithStderr(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(gainCmd)
	resetFlags(configInitCmd)
	var outBuf, errBuf bytes.Buffer
	rootCmd.SetOut(&outBuf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		log.SetDefault(log.New(io.Discard))
	})
	err = rootCmd.ExecuteContext(context.Background())
	return outBuf.String(), errBuf.String(), err
}

// ---- gain ----

func TestGain_JSONSummary(t *testing.T) {
	dbPath := setupDB(t)
	seed(t, dbPath,
		tracking.Entry{OriginalCmd: "git status", RtkCmd: "rtk git status", InputTokens: 400, OutputTokens: 100, ExecTimeMs: 20},
		tracking.Entry{OriginalCmd: "ls", RtkCmd: "rtk ls", InputTokens: 100, OutputTokens: 100, ExecTimeMs: 10},
	)

	out, err := run(t, "gain", "--format", "json")
	if err != nil {
		t.Fatalf("gain: %v", err)
	}
	var s tracking.Summary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if s.TotalCommands != 2 || s.TotalSaved != 300 {
		t.Errorf("summary = %+v", s)
	}
	if len(s.ByCommand) != 2 || s.ByCommand[0].Command != "rtk git status" {
		t.Errorf("ByCommand = %+v", s.ByCommand)
	}
	if len(s.ByDay) != 1 || s.ByDay[0].Date != time.Now().UTC().Format(time.DateOnly) {
		t.Errorf("ByDay = %+v", s.ByDay)
	}
}

func TestGain_TextSummary(t *testing.T) {
	dbPath := setupDB(t)
	seed(t, dbPath, tracking.Entry{OriginalCmd: "cargo test", RtkCmd: "rtk cargo test", InputTokens: 12000, OutputTokens: 2000})

	out, err := run(t, "gain")
	if err != nil {
		t.Fatalf("gain: %v", err)
	}
	for _, want := range []string{"Token Savings Report", "10,000", "rtk cargo test"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGain_EmptyDatabase(t *testing.T) {
	setupDB(t)
	out, err := run(t, "gain")
	if err != nil {
		t.Fatalf("gain: %v", err)
	}
	if !strings.Contains(out, noDataMessage) {
		t.Errorf("output = %q, want %q", out, noDataMessage)
	}
}

func TestGain_UnopenableDatabase(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvDatabasePath, filepath.Join(blocker, "history.db"))
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.yaml"))
	t.Setenv("RTK_LOG_LEVEL", "")

	out, stderr, err := runWithStderr(t, "gain")
	if err != nil {
		t.Fatalf("gain should not fail: %v", err)
	}
	if strings.TrimSpace(out) != noDataMessage {
		t.Errorf("output = %q, want %q", out, noDataMessage)
	}
	if !strings.Contains(stderr, "cannot open tracking database") {
		t.Errorf("stderr = %q, want a warning naming the open failure", stderr)
	}
}

func TestGain_MalformedConfigStillUsesEnvDatabase(t *testing.T) {
	dbPath := setupDB(t)
	if err := os.WriteFile(config.Path(), []byte("tracking: [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	seed(t, dbPath, tracking.Entry{OriginalCmd: "ls", RtkCmd: "rtk ls", InputTokens: 100, OutputTokens: 10})

	out, err := run(t, "gain", "--format", "json")
	if err != nil {
		t.Fatalf("gain: %v", err)
	}
	var s tracking.Summary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if s.TotalCommands != 1 {
		t.Errorf("TotalCommands = %d, want 1", s.TotalCommands)
	}
}

func TestGain_Export(t *testing.T) {
	dbPath := setupDB(t)
	seed(t, dbPath,
		tracking.Entry{OriginalCmd: "a", RtkCmd: "rtk a", InputTokens: 10, OutputTokens: 1},
		tracking.Entry{OriginalCmd: "b", RtkCmd: "rtk b", InputTokens: 10, OutputTokens: 2},
	)

	out, err := run(t, "gain", "--export")
	if err != nil {
		t.Fatalf("gain --export: %v", err)
	}
	var cmds []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var r tracking.CommandRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		cmds = append(cmds, r.RtkCmd)
	}
	if strings.Join(cmds, ",") != "rtk a,rtk b" {
		t.Errorf("exported %v", cmds)
	}
}

func TestGain_DailyToon(t *testing.T) {
	dbPath := setupDB(t)
	seed(t, dbPath, tracking.Entry{OriginalCmd: "a", RtkCmd: "rtk a", InputTokens: 10, OutputTokens: 1})

	out, err := run(t, "gain", "--daily", "--format", "toon")
	if err != nil {
		t.Fatalf("gain --daily: %v", err)
	}
	if !strings.Contains(out, time.Now().UTC().Format(time.DateOnly)) {
		t.Errorf("toon output missing today's date:\n%s", out)
	}
}

func TestGain_HistoryLimit(t *testing.T) {
	dbPath := setupDB(t)
	seed(t, dbPath,
		tracking.Entry{OriginalCmd: "a", RtkCmd: "rtk a"},
		tracking.Entry{OriginalCmd: "b", RtkCmd: "rtk b"},
		tracking.Entry{OriginalCmd: "c", RtkCmd: "rtk c"},
	)

	out, err := run(t, "gain", "--history", "--limit", "2", "--format", "json")
	if err != nil {
		t.Fatalf("gain --history: %v", err)
	}
	var recent []tracking.RecentCommand
	if err := json.Unmarshal([]byte(out), &recent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recent) != 2 || recent[0].RtkCmd != "rtk c" {
		t.Errorf("recent = %+v", recent)
	}
}

func TestGain_ProjectScope(t *testing.T) {
	dbPath := setupDB(t)
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	root, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatal(err)
	}
	seed(t, dbPath,
		tracking.Entry{RtkCmd: "rtk here", InputTokens: 10, WorkingDir: root},
		tracking.Entry{RtkCmd: "rtk elsewhere", InputTokens: 10, WorkingDir: "/somewhere/else"},
	)
	t.Chdir(root)

	out, err := run(t, "gain", "-p", "--format", "json")
	if err != nil {
		t.Fatalf("gain -p: %v", err)
	}
	var s tracking.Summary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.TotalCommands != 1 || s.ByCommand[0].Command != "rtk here" {
		t.Errorf("project summary = %+v", s)
	}
}

func TestGain_InvalidFormat(t *testing.T) {
	setupDB(t)
	if _, err := run(t, "gain", "--format", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestGain_MutuallyExclusiveViews(t *testing.T) {
	setupDB(t)
	if _, err := run(t, "gain", "--daily", "--weekly"); err == nil {
		t.Fatal("expected error for --daily with --weekly")
	}
}

// ---- proxy ----

func TestProxy_PropagatesExitCodeAndRecords(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	dbPath := setupDB(t)

	out, err := run(t, "proxy", "sh", "-c", "echo hello; exit 3")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 3 {
		t.Fatalf("err = %v, want ExitError{3}", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Errorf("stdout = %q, want hello", out)
	}

	tr, err := tracking.Open(dbPath, tracking.WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()
	recent, err := tr.GetRecent(context.Background(), 10, tracking.Global())
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("got %d records, want 1", len(recent))
	}
	if want := "rtk proxy sh -c echo hello; exit 3 (passthrough)"; recent[0].RtkCmd != want {
		t.Errorf("RtkCmd = %q, want %q", recent[0].RtkCmd, want)
	}
	if recent[0].SavedTokens != 0 {
		t.Errorf("SavedTokens = %d, want 0", recent[0].SavedTokens)
	}
}

func TestProxy_UnknownCommand(t *testing.T) {
	setupDB(t)
	_, err := run(t, "proxy", "rtk-definitely-not-a-command")
	var exitErr *ExitError
	if err == nil || errors.As(err, &exitErr) {
		t.Fatalf("err = %v, want a start failure", err)
	}
}

// ---- config ----

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	setupDB(t)
	path := config.Path()

	if _, err := run(t, "config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if _, err := run(t, "config", "init"); err == nil {
		t.Fatal("expected error when config exists")
	}
	if _, err := run(t, "config", "init", "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	dbPath := setupDB(t)
	out, err := run(t, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if !strings.Contains(out, dbPath) || !strings.Contains(out, config.Path()) {
		t.Errorf("output = %q", out)
	}
}

// ---- formatting ----

func TestFormatInt(t *testing.T) {
	cases := map[int]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -4200: "-4,200"}
	for n, want := range cases {
		if got := formatInt(n); got != want {
			t.Errorf("formatInt(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestFormatMs(t *testing.T) {
	cases := map[int64]string{0: "0ms", 850: "850ms", 1200: "1.2s", 184_000: "3m04s"}
	for ms, want := range cases {
		if got := formatMs(ms); got != want {
			t.Errorf("formatMs(%d) = %q, want %q", ms, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("rtk git status", 40); got != "rtk git status" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("abcdefgh", 5); got != "abcd…" {
		t.Errorf("truncate long = %q", got)
	}
}
