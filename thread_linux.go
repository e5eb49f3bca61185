//go:build linux

package quads

import "golang.org/x/sys/unix"

func currentThreadID() uint64 { return uint64(unix.Gettid()) } //nolint:gosec // tids are positive
