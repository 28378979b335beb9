// Package paths provides object-key collision handling for upload sessions.
package paths

import (
	"fmt"
	"path"
)

// ResolveCollisions makes every key in keys unique, in place, and returns
// the number of keys that were renamed.
//
// The first occurrence of a key is kept. Later duplicates get a numeric
// suffix before the extension, skipping any suffix already taken:
//
//   - datasets/data.csv
//   - datasets/data_2.csv
//   - datasets/data_3.csv
//   - datasets/.env_2
//
// The result depends only on input order.
func ResolveCollisions(keys []string) ([]string, int) {
	if len(keys) == 0 {
		return keys, 0
	}

	taken := make(map[string]bool, len(keys))
	for _, k := range keys {
		taken[k] = true
	}

	seen := make(map[string]bool, len(keys))
	renamed := 0
	for i, k := range keys {
		if !seen[k] {
			seen[k] = true
			continue
		}

		base, ext := splitExt(k)
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s_%d%s", base, n, ext)
			if !taken[candidate] {
				keys[i] = candidate
				taken[candidate] = true
				seen[candidate] = true
				break
			}
		}
		renamed++
	}

	return keys, renamed
}

// splitExt splits key before its extension. A dot file such as ".env" has
// no extension.
func splitExt(key string) (base, ext string) {
	ext = path.Ext(key)
	if ext == path.Base(key) {
		return key, ""
	}
	return key[:len(key)-len(ext)], ext
}
