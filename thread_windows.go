//go:build windows

package quads

import "golang.org/x/sys/windows"

func currentThreadID() uint64 { return uint64(windows.GetCurrentThreadId()) }
