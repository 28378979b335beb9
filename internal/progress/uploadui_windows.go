//go:build windows

package progress

import (
	"os"

	"golang.org/x/sys/windows"
)

// enableVT switches the console to virtual terminal mode so mpb's escape
// sequences render.
func enableVT(f *os.File) {
	h := windows.Handle(f.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err == nil {
		_ = windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING)
	}
}
