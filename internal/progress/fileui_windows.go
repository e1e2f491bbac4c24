//go:build windows

package progress

import (
	"os"

	"golang.org/x/sys/windows"
)

// enableVT turns on virtual terminal processing so mpb's cursor movement
// renders in cmd.exe and older PowerShell hosts.
func enableVT(f *os.File) {
	h := windows.Handle(f.Fd())
	var mode uint32
	if windows.GetConsoleMode(h, &mode) != nil {
		return
	}
	_ = windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING)
}
