// Package fsext contains afero helpers used around the codebase.
package fsext

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// CopyFile copies src to dst byte-for-byte, carrying over the source's
// permission bits. A short write is reported as an error and the partial
// destination is removed.
func CopyFile(fsys afero.Fs, src, dst string) error {
	fi, err := fsys.Stat(src)
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("copy %s: not a regular file", src)
	}

	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := fsys.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}

	written, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && written != fi.Size() {
		err = fmt.Errorf("copy %s: short write (%d of %d bytes)", src, written, fi.Size())
	}
	if err != nil {
		_ = fsys.Remove(dst)
		return err
	}

	// MemMapFs ignores the OpenFile perm argument, so set the mode explicitly.
	return fsys.Chmod(dst, fi.Mode().Perm())
}

// Exists checks that the path names an existing regular file.
func Exists(fsys afero.Fs, path string) bool {
	fi, err := fsys.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
