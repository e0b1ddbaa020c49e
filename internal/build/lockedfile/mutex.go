// Package lockedfile provides inter-process mutual exclusion backed by
// advisory file locks.
package lockedfile

import (
	"fmt"
	"os"
)

// A Mutex provides mutual exclusion within and across processes by locking
// a well-known file. The file is created if it does not exist and is never
// removed.
type Mutex struct {
	Path string
}

// MutexAt returns a new Mutex with the given path.
func MutexAt(path string) *Mutex {
	if path == "" {
		panic("lockedfile.MutexAt: path must be non-empty")
	}
	return &Mutex{Path: path}
}

// Lock blocks until it holds the lock and returns a function that releases
// it.
func (mu *Mutex) Lock() (unlock func(), err error) {
	f, err := os.OpenFile(mu.Path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("locking %s: %w", mu.Path, err)
	}
	return func() {
		unlockFile(f)
		f.Close()
	}, nil
}
