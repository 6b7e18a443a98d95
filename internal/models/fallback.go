package models

import "strings"

// Tiers names the upstream models used when a requested name has no mapping
// and the upstream does not recognise it.
type Tiers struct {
	Flagship string
	Mid      string
	Small    string
}

var (
	flagshipHints = []string{"gpt-4", "claude-opus", "405b"}
	midHints      = []string{"claude", "gemini", "70b"}
)

// Fallback picks a tier from substrings of name, case-insensitively. Flagship
// hints are checked before mid hints; anything else gets the small model.
func Fallback(name string, tiers Tiers) string {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, flagshipHints):
		return tiers.Flagship
	case containsAny(lower, midHints):
		return tiers.Mid
	default:
		return tiers.Small
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
