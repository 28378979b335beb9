//go:build !windows

package progress

import "os"

// enableVT is a no-op: Unix terminals interpret ANSI sequences natively.
func enableVT(*os.File) {}
