//go:build !windows

package services

import "os"

// IsElevated reports whether the process runs with administrative rights.
func IsElevated() bool {
	return os.Geteuid() == 0
}
