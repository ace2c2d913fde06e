package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// tickerRe matches an uppercased market symbol: letters and digits,
// optionally with a single dot segment (e.g. "BRKM5", "XPML11").
var tickerRe = regexp.MustCompile(`^[A-Z0-9]{1,10}(\.[A-Z0-9]{1,4})?$`)

// SanitizeTickerAnswer normalizes and validates a user-supplied ticker
// symbol from an interactive prompt answer.
func SanitizeTickerAnswer(s string) (string, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(StripUnprintable(s)))
	if cleaned == "" {
		return "", nil
	}
	if !tickerRe.MatchString(cleaned) {
		return "", fmt.Errorf("'%s' is not a valid ticker symbol", cleaned)
	}
	return cleaned, nil
}

// StripUnprintable removes non-printable characters, allowing common whitespace
// like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}
