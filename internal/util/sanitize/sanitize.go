// Package sanitize turns user-supplied file names and destination paths
// into safe object keys.
//
// It removes problematic characters:
//   - Directory components and traversal ("../", "C:\")
//   - Invisible Unicode characters (zero-width spaces, BOM, etc.)
//   - Control characters
//   - Runs of whitespace
package sanitize

import (
	"path"
	"regexp"
	"strings"
	"unicode"
)

// DefaultObjectName is used when nothing usable remains of a name.
const DefaultObjectName = "file"

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	underscoreRun = regexp.MustCompile(`_{2,}`)
)

// ObjectName returns the final path component of name, cleaned for use as
// the last segment of an object key.
func ObjectName(name string) string {
	// Browsers on Windows may send full paths.
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	name = cleanSegment(name)
	if name == "" || name == "." || name == ".." {
		return DefaultObjectName
	}
	return name
}

// Prefix cleans a destination path into a key prefix without leading or
// trailing slashes. Empty, "." and ".." segments are dropped.
func Prefix(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")

	var segments []string
	for _, seg := range strings.Split(p, "/") {
		seg = cleanSegment(seg)
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		segments = append(segments, seg)
	}
	return strings.Join(segments, "/")
}

// Key joins a cleaned prefix and object name.
func Key(prefix, name string) string {
	prefix = Prefix(prefix)
	name = ObjectName(name)
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func cleanSegment(s string) string {
	s = removeInvisibleChars(s)

	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case r == '#' || r == '?' || r == '%' || r == '"' || r == '<' || r == '>' || r == '|' || r == '*' || r == ':':
			return '_'
		}
		return r
	}, s)

	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), "_")
	s = underscoreRun.ReplaceAllString(s, "_")
	return s
}

// removeInvisibleChars removes zero-width and other invisible Unicode characters
func removeInvisibleChars(s string) string {
	invisibleChars := []string{
		"\u200B", // Zero-width space
		"\u200C", // Zero-width non-joiner
		"\u200D", // Zero-width joiner
		"\uFEFF", // Zero-width no-break space (BOM)
		"\u00AD", // Soft hyphen
		"\u2060", // Word joiner
		"\u180E", // Mongolian vowel separator
	}

	for _, char := range invisibleChars {
		s = strings.ReplaceAll(s, char, "")
	}

	return s
}
