// Package tags normalizes IP-asset tags before registration.
package tags

import "strings"

// MaxLength caps a single tag; longer tags are truncated on a rune boundary.
const MaxLength = 64

// Normalize trims, lowercases and deduplicates tags, dropping empties.
// Each input may itself be comma-separated. First occurrence order is kept.
func Normalize(raw []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, entry := range raw {
		for _, tag := range strings.Split(entry, ",") {
			tag = strings.ToLower(strings.Join(strings.Fields(tag), " "))
			if tag == "" {
				continue
			}
			if r := []rune(tag); len(r) > MaxLength {
				tag = strings.TrimSpace(string(r[:MaxLength]))
			}
			if !seen[tag] {
				seen[tag] = true
				result = append(result, tag)
			}
		}
	}
	return result
}

// Parse splits a comma-separated string into normalized tags.
func Parse(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	return Normalize([]string{input})
}
