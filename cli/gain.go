package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/yoanbernabeu/rtk/config"
	"github.com/yoanbernabeu/rtk/project"
	"github.com/yoanbernabeu/rtk/tracking"
)

const noDataMessage = "No tracking data available."

var (
	gainProject bool
	gainDaily   bool
	gainWeekly  bool
	gainMonthly bool
	gainHistory bool
	gainExport  bool
	gainLimit   int
	gainTop     int
	gainFormat  string
)

var gainCmd = &cobra.Command{
	Use:   "gain",
	Short: "Show token savings achieved by rtk",
	Long: `Display the tokens saved by running commands through rtk instead of
passing their raw output to an LLM.

Every wrapped command records an entry in the local tracking database.
Records older than 90 days are pruned automatically. By default all
records are reported; --project restricts the report to the project
containing the current directory.`,
	Args: cobra.NoArgs,
	RunE: runGain,
}

func init() {
	rootCmd.AddCommand(gainCmd)
	gainCmd.Flags().BoolVarP(&gainProject, "project", "p", false, "Only include commands run inside the current project")
	gainCmd.Flags().BoolVar(&gainDaily, "daily", false, "Show a per-day breakdown of every recorded day")
	gainCmd.Flags().BoolVar(&gainWeekly, "weekly", false, "Show a per-week breakdown (Monday to Sunday)")
	gainCmd.Flags().BoolVar(&gainMonthly, "monthly", false, "Show a per-month breakdown")
	gainCmd.Flags().BoolVar(&gainHistory, "history", false, "Show the most recent commands")
	gainCmd.Flags().BoolVar(&gainExport, "export", false, "Write every record as newline-delimited JSON")
	gainCmd.Flags().IntVarP(&gainLimit, "limit", "l", 10, "Max commands shown with --history")
	gainCmd.Flags().IntVarP(&gainTop, "top", "n", 10, "Number of commands listed in the summary")
	gainCmd.Flags().StringVarP(&gainFormat, "format", "f", formatText, "Output format: text, json or toon")
	gainCmd.MarkFlagsMutuallyExclusive("daily", "weekly", "monthly", "history", "export")
}

func runGain(cmd *cobra.Command, args []string) error {
	if err := validateFormat(gainFormat); err != nil {
		return err
	}

	scope := tracking.Global()
	if gainProject {
		root := project.DetectRoot()
		if root == "" {
			return fmt.Errorf("--project: no project root found above the current directory (looked for %s)",
				strings.Join(project.Markers, ", "))
		}
		scope = tracking.Project(root)
	}

	out := cmd.OutOrStdout()
	logger := log.Default()

	tr, err := tracking.OpenDefault(tracking.WithLogger(logger.WithPrefix("tracking")))
	if err != nil {
		if explicitLocation() {
			logger.Warn("cannot open tracking database", "err", err)
		} else {
			logger.Debug("open tracking database", "err", err)
		}
		fmt.Fprintln(out, noDataMessage)
		return nil
	}
	defer tr.Close()

	if err := reportGain(cmd, tr, scope, out); err != nil {
		logger.Debug("query tracking database", "scope", scope, "err", err)
		fmt.Fprintln(out, noDataMessage)
	}
	return nil
}

// explicitLocation reports whether the user pointed rtk at a specific
// database or config file.
func explicitLocation() bool {
	return os.Getenv(config.EnvDatabasePath) != "" || os.Getenv(config.EnvConfigPath) != ""
}

func reportGain(cmd *cobra.Command, tr *tracking.Tracker, scope tracking.QueryScope, out io.Writer) error {
	ctx := cmd.Context()

	switch {
	case gainExport:
		_, err := tr.Export(ctx, out, scope)
		return err

	case gainHistory:
		recent, err := tr.GetRecent(ctx, gainLimit, scope)
		if err != nil {
			return err
		}
		return emit(out, gainFormat, recent, func(w io.Writer) { printRecent(w, recent) })

	case gainDaily:
		days, err := tr.GetAllDays(ctx, scope)
		if err != nil {
			return err
		}
		rows := make([]bucketRow, len(days))
		for i, d := range days {
			rows[i] = bucketRow{Label: d.Date, Totals: d.Totals}
		}
		return emit(out, gainFormat, days, func(w io.Writer) { printBuckets(w, "Daily savings", "Date", rows) })

	case gainWeekly:
		weeks, err := tr.GetByWeek(ctx, scope)
		if err != nil {
			return err
		}
		rows := make([]bucketRow, len(weeks))
		for i, wk := range weeks {
			rows[i] = bucketRow{Label: wk.WeekStart + " → " + wk.WeekEnd, Totals: wk.Totals}
		}
		return emit(out, gainFormat, weeks, func(w io.Writer) { printBuckets(w, "Weekly savings", "Week", rows) })

	case gainMonthly:
		months, err := tr.GetByMonth(ctx, scope)
		if err != nil {
			return err
		}
		rows := make([]bucketRow, len(months))
		for i, m := range months {
			rows[i] = bucketRow{Label: m.Month, Totals: m.Totals}
		}
		return emit(out, gainFormat, months, func(w io.Writer) { printBuckets(w, "Monthly savings", "Month", rows) })

	default:
		summary, err := tr.GetSummary(ctx, scope, gainTop)
		if err != nil {
			return err
		}
		return emit(out, gainFormat, summary, func(w io.Writer) { printSummary(w, summary, scope) })
	}
}

// ---- text rendering ----

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Width(22)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)
)

func printSummary(w io.Writer, s *tracking.Summary, scope tracking.QueryScope) {
	if s.TotalCommands == 0 {
		fmt.Fprintln(w, noDataMessage)
		fmt.Fprintln(w, "Run a command through rtk to start tracking token savings.")
		return
	}

	title := "rtk gain · Token Savings Report"
	if scope.IsProject() {
		title += dimStyle.Render("  (" + scope.Dir() + ")")
	}
	content := headerStyle.Render(title) + "\n\n"
	content += labelStyle.Render("Commands") + valueStyle.Render(formatInt(s.TotalCommands)) + "\n"
	content += labelStyle.Render("Input tokens") + valueStyle.Render(formatInt(s.TotalInput)) + "\n"
	content += labelStyle.Render("Output tokens") + valueStyle.Render(formatInt(s.TotalOutput)) + "\n"
	content += labelStyle.Render("Tokens saved") +
		valueStyle.Render(fmt.Sprintf("%s  ▲ %.1f%%", formatInt(s.TotalSaved), s.AvgSavingsPct)) + "\n"
	content += labelStyle.Render("Time") +
		valueStyle.Render(formatMs(s.TotalTimeMs)) +
		dimStyle.Render(fmt.Sprintf("  (avg %s)", formatMs(s.AvgTimeMs))) + "\n"

	fmt.Fprintln(w, boxStyle.Render(content))

	if len(s.ByCommand) > 0 {
		printCommandTable(w, s.ByCommand)
	}
}

func printCommandTable(w io.Writer, cmds []tracking.CommandStats) {
	colCmd := lipgloss.NewStyle().Width(32)
	colNum := lipgloss.NewStyle().Width(8)
	colSaved := lipgloss.NewStyle().Width(14)
	colPct := lipgloss.NewStyle().Width(10)
	colTime := lipgloss.NewStyle().Width(10)

	fmt.Fprintln(w, dimStyle.Render(
		colCmd.Render("Command")+
			colNum.Render("Runs")+
			colSaved.Render("Saved")+
			colPct.Render("Avg %")+
			colTime.Render("Avg time"),
	))
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("─", 74)))
	for _, c := range cmds {
		row := colCmd.Render(truncate(c.Command, 30)) +
			colNum.Render(formatInt(c.Count)) +
			colSaved.Render(formatInt(c.SavedTokens)) +
			colPct.Render(fmt.Sprintf("%.1f%%", c.AvgSavingsPct)) +
			colTime.Render(formatMs(c.AvgTimeMs))
		fmt.Fprintln(w, valueStyle.Render(row))
	}
}

// bucketRow is one line of a daily, weekly or monthly table.
type bucketRow struct {
	Label string
	tracking.Totals
}

func printBuckets(w io.Writer, title, labelHeader string, rows []bucketRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, noDataMessage)
		return
	}

	colLabel := lipgloss.NewStyle().Width(26)
	colNum := lipgloss.NewStyle().Width(10)
	colSaved := lipgloss.NewStyle().Width(14)
	colPct := lipgloss.NewStyle().Width(10)
	colTime := lipgloss.NewStyle().Width(10)

	fmt.Fprintln(w, headerStyle.Render(title))
	fmt.Fprintln(w, dimStyle.Render(
		colLabel.Render(labelHeader)+
			colNum.Render("Commands")+
			colSaved.Render("Saved")+
			colPct.Render("Savings")+
			colTime.Render("Avg time"),
	))
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("─", 70)))

	var total tracking.Totals
	for _, r := range rows {
		line := colLabel.Render(r.Label) +
			colNum.Render(formatInt(r.Commands)) +
			colSaved.Render(formatInt(r.SavedTokens)) +
			colPct.Render(fmt.Sprintf("%.1f%%", r.SavingsPct)) +
			colTime.Render(formatMs(r.AvgTimeMs))
		fmt.Fprintln(w, valueStyle.Render(line))
		total.Commands += r.Commands
		total.InputTokens += r.InputTokens
		total.SavedTokens += r.SavedTokens
	}
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("─", 70)))
	fmt.Fprintln(w, dimStyle.Render(
		colLabel.Render("Total")+
			colNum.Render(formatInt(total.Commands))+
			colSaved.Render(formatInt(total.SavedTokens))+
			colPct.Render(fmt.Sprintf("%.1f%%", tracking.SavingsPct(total.SavedTokens, total.InputTokens))),
	))
}

func printRecent(w io.Writer, recent []tracking.RecentCommand) {
	if len(recent) == 0 {
		fmt.Fprintln(w, noDataMessage)
		return
	}

	colTime := lipgloss.NewStyle().Width(18)
	colCmd := lipgloss.NewStyle().Width(40)
	colSaved := lipgloss.NewStyle().Width(12)
	colPct := lipgloss.NewStyle().Width(10)

	fmt.Fprintln(w, headerStyle.Render("Recent commands"))
	fmt.Fprintln(w, dimStyle.Render(
		colTime.Render("When (UTC)")+
			colCmd.Render("Command")+
			colSaved.Render("Saved")+
			colPct.Render("Savings"),
	))
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("─", 80)))
	for _, r := range recent {
		line := colTime.Render(r.Timestamp.Format("2006-01-02 15:04")) +
			colCmd.Render(truncate(r.RtkCmd, 38)) +
			colSaved.Render(formatInt(r.SavedTokens)) +
			colPct.Render(fmt.Sprintf("%.1f%%", r.SavingsPct))
		fmt.Fprintln(w, valueStyle.Render(line))
	}
}
