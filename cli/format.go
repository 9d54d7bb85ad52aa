package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alpkeskin/gotoon"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatToon = "toon"
)

func validateFormat(f string) error {
	switch f {
	case formatText, formatJSON, formatToon:
		return nil
	}
	return fmt.Errorf("invalid --format %q (want %s, %s or %s)", f, formatText, formatJSON, formatToon)
}

// emit writes v to w as JSON or TOON, or calls text for the human format.
func emit(w io.Writer, format string, v any, text func(io.Writer)) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatToon:
		out, err := encodeToon(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, out)
		return err
	default:
		text(w)
		return nil
	}
}

// encodeToon converts v to plain maps and slices through its JSON form so
// embedded structs and json tags are honoured, then encodes it as TOON.
func encodeToon(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("toon: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("toon: %w", err)
	}
	out, err := gotoon.Encode(generic)
	if err != nil {
		return "", fmt.Errorf("toon: %w", err)
	}
	return out, nil
}

// formatInt renders n with thousands separators.
func formatInt(n int) string {
	if n < 0 {
		return "-" + formatInt(-n)
	}
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// formatMs renders a millisecond duration as "850ms", "1.2s" or "3m04s".
func formatMs(ms int64) string {
	switch {
	case ms < 1000:
		return fmt.Sprintf("%dms", ms)
	case ms < 60_000:
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	default:
		return fmt.Sprintf("%dm%02ds", ms/60_000, (ms%60_000)/1000)
	}
}

// truncate shortens s to at most n runes, marking the cut with "…".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 1 {
		return s
	}
	return string(r[:n-1]) + "…"
}
