//go:build !unix && !windows

package lockedfile

import (
	"os"
	"sync"
)

// Platforms without file locks serialize within the process only.
var mu sync.Mutex

func lockFile(f *os.File) error {
	mu.Lock()
	return nil
}

func unlockFile(f *os.File) error {
	mu.Unlock()
	return nil
}
