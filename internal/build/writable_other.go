//go:build !unix

package build

import (
	"os"
)

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".hpkg-write-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
