package build

import (
	"io"
	"os"
	"path/filepath"

	"github.com/goplus/hpkg/internal/pkgid"
)

// preparePackageRoot creates dir and checks that it can be written to.
func preparePackageRoot(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &InstallError{Dir: dir, Err: err}
	}
	if err := checkWritable(dir); err != nil {
		return &InstallError{Dir: dir, Err: err}
	}
	return nil
}

// copyExports copies the files of src matched by patterns into dst,
// keeping their relative paths, bytes and permission bits.
func copyExports(src, dst string, patterns []string) ([]string, error) {
	files, err := pkgid.ExportedFiles(os.DirFS(src), patterns)
	if err != nil {
		return nil, &InstallError{Dir: dst, Err: err}
	}
	for _, name := range files {
		rel := filepath.FromSlash(name)
		if err := copyFile(filepath.Join(src, rel), filepath.Join(dst, rel)); err != nil {
			return nil, &InstallError{Dir: dst, Err: err}
		}
	}
	return files, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
