// Package strings holds small parsing helpers shared by configuration code.
package strings

import (
	"strings"
)

// SplitList parses a comma separated setting such as LEDGERS or
// KAFKA_BROKERS. Entries are trimmed, blanks dropped and repeats collapsed
// onto their first occurrence, so the first entry keeps its position.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return Unique(strings.Split(raw, ","))
}

// Unique trims each value and returns the non-empty ones in first-seen order.
func Unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
