//go:build !windows

package progress

import "os"

func enableVT(*os.File) {}
