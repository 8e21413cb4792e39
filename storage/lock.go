package storage

import (
	"os"
	"syscall"
)

// processAlive sends signal 0 to pid. On platforms without signals this
// reports false and the lock is treated as stale.
func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}
