package tracking

import (
	"strings"
	"unicode/utf8"
)

// EstimateTokens approximates the LLM token count of text as one token per
// four characters, rounded up. Characters are Unicode code points.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// ArgsDisplay joins command arguments with single spaces for use in the
// original and rtk command labels.
func ArgsDisplay(args []string) string {
	return strings.Join(args, " ")
}
