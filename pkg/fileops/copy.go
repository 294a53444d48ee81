package fileops

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fmreloaded/modman/pkg/errors"
	"github.com/fmreloaded/modman/pkg/pathguard"
)

// DefaultMaxFileSize caps individual files copied by SafeCopy at 100 MB.
const DefaultMaxFileSize int64 = 100_000_000

// CopyOptions controls the security checks applied by SafeCopy.
type CopyOptions struct {
	// AllowedRoot, when non-empty, requires every destination path
	// (including each file of a directory tree) to stay inside it.
	AllowedRoot string
	// MaxFileSize caps individual file sizes. Zero means DefaultMaxFileSize.
	MaxFileSize int64
	// FollowSymlinks permits copying through symlinks. When false, a symlink
	// source is refused and symlinks inside directory trees are skipped.
	FollowSymlinks bool
}

func (o CopyOptions) maxSize() int64 {
	if o.MaxFileSize > 0 {
		return o.MaxFileSize
	}
	return DefaultMaxFileSize
}

// SafeCopy copies a file or directory tree from src to dst, merge-style for
// directories. Parent directories are created as needed. Returns errors with
// codes SYMLINK_REFUSED, FILE_TOO_LARGE, PATH_SECURITY or IO_FAILURE.
func SafeCopy(src, dst string, opts CopyOptions) error {
	info, err := os.Lstat(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "source path does not exist: %s", src)
	}

	if opts.AllowedRoot != "" {
		if _, err := pathguard.Validate(dst, opts.AllowedRoot); err != nil {
			return err
		}
	}

	if info.Mode()&os.ModeSymlink != 0 && !opts.FollowSymlinks {
		return errors.Newf(errors.ErrSymlinkRefused, "refusing to copy symlink: %s", src)
	}

	if opts.FollowSymlinks {
		if info, err = os.Stat(src); err != nil {
			return errors.Wrapf(err, errors.ErrIOFailure, "cannot stat %s", src)
		}
	}

	if info.IsDir() {
		return copyTree(src, dst, opts)
	}
	return copyFile(src, dst, info, opts.maxSize())
}

func copyTree(src, dst string, opts CopyOptions) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, errors.ErrIOFailure, "walking %s", src)
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return errors.Wrap(err, errors.ErrIOFailure, "relative path")
		}
		out := filepath.Join(dst, rel)

		if d.Type()&os.ModeSymlink != 0 && !opts.FollowSymlinks {
			// Symlinks inside trees are skipped rather than fatal, so one
			// stray link does not block the rest of the mod's files.
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if opts.AllowedRoot != "" {
			if _, err := pathguard.Validate(out, opts.AllowedRoot); err != nil {
				return err
			}
		}

		if d.IsDir() {
			if err := os.MkdirAll(out, 0755); err != nil {
				return errors.Wrapf(err, errors.ErrIOFailure, "mkdir %s", out)
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return errors.Wrapf(err, errors.ErrIOFailure, "stat %s", p)
		}
		return copyFile(p, out, info, opts.maxSize())
	})
}

// SameContent reports whether a and b are regular files with identical
// contents. Anything that is not a regular file compares false.
func SameContent(a, b string) (bool, error) {
	ia, err := os.Stat(a)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrIOFailure, "stat %s", a)
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrIOFailure, "stat %s", b)
	}
	if !ia.Mode().IsRegular() || !ib.Mode().IsRegular() || ia.Size() != ib.Size() {
		return false, nil
	}

	fa, err := os.Open(a)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrIOFailure, "open %s", a)
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrIOFailure, "open %s", b)
	}
	defer fb.Close()

	bufA := make([]byte, 32*1024)
	bufB := make([]byte, 32*1024)
	for {
		nA, errA := io.ReadFull(fa, bufA)
		nB, errB := io.ReadFull(fb, bufB)
		if !bytes.Equal(bufA[:nA], bufB[:nB]) {
			return false, nil
		}
		if errA == io.EOF || errA == io.ErrUnexpectedEOF {
			return errB == io.EOF || errB == io.ErrUnexpectedEOF, nil
		}
		if errA != nil {
			return false, errors.Wrapf(errA, errors.ErrIOFailure, "read %s", a)
		}
		if errB != nil {
			return false, errors.Wrapf(errB, errors.ErrIOFailure, "read %s", b)
		}
	}
}

func copyFile(src, dst string, info fs.FileInfo, maxSize int64) error {
	if info.Size() > maxSize {
		return errors.Newf(errors.ErrFileTooLarge,
			"file too large: %s (%d bytes exceeds %d byte limit)", src, info.Size(), maxSize)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "mkdir %s", filepath.Dir(dst))
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "open %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "create %s", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, errors.ErrIOFailure, "copy %s -> %s", src, dst)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "close %s", dst)
	}

	// Preserve modification time so backup recency stays meaningful.
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}
