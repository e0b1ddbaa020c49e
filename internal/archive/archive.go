// Package archive writes a package tree to its output form.
package archive

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// compressor wraps a tarball stream in a compression format.
type compressor func(w io.Writer) (io.WriteCloser, error)

var compressors = []struct {
	suffixes []string
	wrap     compressor
}{
	{[]string{".tar.xz", ".txz"}, func(w io.Writer) (io.WriteCloser, error) {
		return xz.NewWriter(w)
	}},
	{[]string{".tar.zst", ".tzst"}, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w)
	}},
	{[]string{".tar.gz", ".tgz"}, func(w io.Writer) (io.WriteCloser, error) {
		return gzip.NewWriter(w), nil
	}},
	{[]string{".tar.lz4"}, func(w io.Writer) (io.WriteCloser, error) {
		return lz4.NewWriter(w), nil
	}},
}

// Write copies the tree at srcDir to dest. The suffix of dest picks the
// format: ".zip", ".tar.xz", ".tar.zst", ".tar.gz" and ".tar.lz4" (or their
// short forms) write archives, anything else a directory.
func Write(srcDir, dest string) error {
	if strings.HasSuffix(dest, ".zip") {
		return zipDir(srcDir, dest)
	}
	for _, c := range compressors {
		for _, suffix := range c.suffixes {
			if strings.HasSuffix(dest, suffix) {
				return tarDir(srcDir, dest, c.wrap)
			}
		}
	}
	return os.CopyFS(dest, os.DirFS(srcDir))
}

// zipDir creates a zip archive at dest from the contents of srcDir.
func zipDir(srcDir, dest string) (err error) {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer closeFile(f, &err)

	w := zip.NewWriter(f)
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	return walkFiles(srcDir, func(path, rel string, info fs.FileInfo) error {
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = rel
		header.Method = zip.Deflate

		writer, err := w.CreateHeader(header)
		if err != nil {
			return err
		}
		return copyFrom(writer, path)
	})
}

// tarDir creates a compressed tar archive at dest from the contents of
// srcDir.
func tarDir(srcDir, dest string, wrap compressor) (err error) {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer closeFile(f, &err)

	cw, err := wrap(f)
	if err != nil {
		return fmt.Errorf("creating %s writer: %w", filepath.Base(dest), err)
	}
	defer func() {
		if cerr := cw.Close(); err == nil {
			err = cerr
		}
	}()

	tw := tar.NewWriter(cw)
	defer func() {
		if cerr := tw.Close(); err == nil {
			err = cerr
		}
	}()

	return walkFiles(srcDir, func(path, rel string, info fs.FileInfo) error {
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = rel
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		return copyFrom(tw, path)
	})
}

// walkFiles calls fn for every regular file below root with its
// slash-separated relative name.
func walkFiles(root string, fn func(path, rel string, info fs.FileInfo) error) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return fn(path, filepath.ToSlash(rel), info)
	})
}

func copyFrom(w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(w, file)
	return err
}

func closeFile(f *os.File, err *error) {
	if cerr := f.Close(); *err == nil {
		*err = cerr
	}
}
