//go:build !linux && !windows

package quads

// currentThreadID returns 0 where no thread id is available, which turns
// the owner thread check off.
func currentThreadID() uint64 { return 0 }
