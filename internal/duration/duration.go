// Package duration parses composite human durations such as "1d 2h 30m".
package duration

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Day is not a time package constant.
const Day = 24 * time.Hour

var units = map[byte]time.Duration{
	'd': Day,
	'h': time.Hour,
	'm': time.Minute,
}

// Warning describes one token the parser skipped.
type Warning struct {
	Token  string `json:"token"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%q: %s", w.Token, w.Reason)
}

// Result is the outcome of Parse. Total is the sum of every token that parsed.
type Result struct {
	Total    time.Duration
	Warnings []Warning
}

// Valid reports whether the parsed total is usable as a lifetime.
func (r Result) Valid() bool {
	return r.Total > 0
}

// Parse reads whitespace separated <integer><unit> tokens, unit one of d, h, m.
// Repeated units accumulate ("1d 1d" is two days). Malformed tokens are reported
// as warnings and skipped; Parse itself never fails.
func Parse(text string) Result {
	var res Result

	for _, tok := range strings.Fields(text) {
		d, reason := parseToken(tok)
		if reason != "" {
			res.Warnings = append(res.Warnings, Warning{Token: tok, Reason: reason})
			continue
		}
		if res.Total > math.MaxInt64-d {
			res.Warnings = append(res.Warnings, Warning{Token: tok, Reason: "total out of range"})
			continue
		}
		res.Total += d
	}

	return res
}

func parseToken(tok string) (time.Duration, string) {
	if len(tok) < 2 {
		return 0, "expected <number><d|h|m>"
	}

	unit, ok := units[tok[len(tok)-1]]
	if !ok {
		return 0, fmt.Sprintf("unknown unit %q", tok[len(tok)-1:])
	}

	digits := tok[:len(tok)-1]
	if digits[0] == '-' || digits[0] == '+' {
		return 0, "magnitude must be a non-negative integer"
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, "magnitude is not an integer"
	}

	if n > int64(math.MaxInt64/unit) {
		return 0, "magnitude out of range"
	}

	return time.Duration(n) * unit, ""
}

// Format renders d in the same grammar Parse accepts, dropping seconds.
func Format(d time.Duration) string {
	if d < time.Minute {
		return "0m"
	}

	var parts []string
	if days := d / Day; days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
		d -= days * Day
	}
	if hours := d / time.Hour; hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
		d -= hours * time.Hour
	}
	if minutes := d / time.Minute; minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	return strings.Join(parts, " ")
}
