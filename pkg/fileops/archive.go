package fileops

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"

	"github.com/fmreloaded/modman/pkg/errors"
)

// DefaultMaxArchiveSize caps the total uncompressed size of an extracted
// archive at 500 MB.
const DefaultMaxArchiveSize int64 = 500_000_000

// SafeExtractArchive extracts a zip, tar, tar.gz/tgz or tar.xz archive into
// destDir with two passes. Pass one walks every member, accumulating
// uncompressed sizes against maxTotal (code ARCHIVE_BOMB on overflow) and
// validating member names against absolute prefixes, drive-letter markers,
// parent-directory segments and destination escape (code ARCHIVE_FORMAT).
// Nothing is written unless pass one succeeds entirely; pass two then
// extracts every member. Symlink members are never materialized.
//
// maxTotal of zero means DefaultMaxArchiveSize.
func SafeExtractArchive(archivePath, destDir string, maxTotal int64) error {
	if maxTotal <= 0 {
		maxTotal = DefaultMaxArchiveSize
	}

	dest, err := filepath.Abs(destDir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidInput, "cannot resolve destination %s", destDir)
	}

	name := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(name, ".zip"):
		return extractZip(archivePath, dest, maxTotal)
	case strings.HasSuffix(name, ".tar"),
		strings.HasSuffix(name, ".tar.gz"),
		strings.HasSuffix(name, ".tgz"),
		strings.HasSuffix(name, ".tar.xz"):
		return extractTarball(archivePath, dest, maxTotal)
	default:
		return errors.Newf(errors.ErrArchiveFormat, "unsupported archive format: %s", archivePath)
	}
}

// validateMember rejects archive member names that could write outside dest.
func validateMember(member, dest string) error {
	if strings.HasPrefix(member, "/") || strings.HasPrefix(member, "\\") {
		return errors.Newf(errors.ErrArchiveFormat, "archive contains absolute path: %q", member)
	}
	if strings.Contains(member, ":") {
		return errors.Newf(errors.ErrArchiveFormat, "archive contains drive-letter path: %q", member)
	}
	for _, part := range strings.FieldsFunc(member, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return errors.Newf(errors.ErrArchiveFormat, "archive contains path traversal: %q", member)
		}
	}
	resolved := filepath.Clean(filepath.Join(dest, filepath.FromSlash(member)))
	if !isWithin(dest, resolved) {
		return errors.Newf(errors.ErrArchiveFormat,
			"archive member %q would extract outside destination", member)
	}
	return nil
}

func extractZip(archivePath, dest string, maxTotal int64) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Wrapf(err, errors.ErrArchiveFormat, "cannot open archive %s", archivePath)
	}
	defer r.Close()

	// Pass 1: validate every member before a single byte is written.
	var total int64
	for _, f := range r.File {
		total += int64(f.UncompressedSize64)
		if total > maxTotal {
			return errors.Newf(errors.ErrArchiveBomb,
				"archive too large: %d bytes exceeds limit of %d bytes", total, maxTotal)
		}
		if err := validateMember(f.Name, dest); err != nil {
			return err
		}
	}

	// Pass 2: extract. Written bytes stay budgeted in case header sizes lie.
	budget := maxTotal
	for _, f := range r.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return errors.Wrapf(err, errors.ErrIOFailure, "mkdir %s", target)
			}
			continue
		}
		if f.Mode()&os.ModeSymlink != 0 {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return errors.Wrapf(err, errors.ErrIOFailure, "open archive member %s", f.Name)
		}
		written, err := writeMember(target, rc, f.Mode().Perm(), budget)
		rc.Close()
		if err != nil {
			return err
		}
		budget -= written
	}
	return nil
}

func extractTarball(archivePath, dest string, maxTotal int64) error {
	// Pass 1: stream through the whole archive validating names and sizes.
	var total int64
	err := walkTarball(archivePath, func(hdr *tar.Header, _ *tar.Reader) error {
		if err := validateMember(hdr.Name, dest); err != nil {
			return err
		}
		if hdr.Typeflag == tar.TypeReg {
			total += hdr.Size
			if total > maxTotal {
				return errors.Newf(errors.ErrArchiveBomb,
					"archive too large: %d bytes exceeds limit of %d bytes", total, maxTotal)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Pass 2: extract directories and regular files.
	budget := maxTotal
	return walkTarball(archivePath, func(hdr *tar.Header, tr *tar.Reader) error {
		target := filepath.Join(dest, filepath.FromSlash(hdr.Name))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return errors.Wrapf(err, errors.ErrIOFailure, "mkdir %s", target)
			}
		case tar.TypeReg:
			written, err := writeMember(target, tr, os.FileMode(hdr.Mode).Perm(), budget)
			if err != nil {
				return err
			}
			budget -= written
		}
		return nil
	})
}

// walkTarball opens the archive with the right decompressor and calls fn for
// every content member, skipping PAX headers.
func walkTarball(archivePath string, fn func(*tar.Header, *tar.Reader) error) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "cannot open archive %s", archivePath)
	}
	defer f.Close()

	var r io.Reader = f
	name := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz"):
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, errors.ErrArchiveFormat, "bad gzip stream in %s", archivePath)
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(name, ".tar.xz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, errors.ErrArchiveFormat, "bad xz stream in %s", archivePath)
		}
		r = xzr
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, errors.ErrArchiveFormat, "reading tar header in %s", archivePath)
		}
		if hdr.Typeflag == tar.TypeXHeader || hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
}

// writeMember streams one archive member to disk, enforcing the remaining
// byte budget against archives whose headers understate member sizes.
func writeMember(target string, src io.Reader, perm os.FileMode, budget int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, errors.Wrapf(err, errors.ErrIOFailure, "mkdir %s", filepath.Dir(target))
	}
	if perm == 0 {
		perm = 0644
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrIOFailure, "create %s", target)
	}

	written, err := io.Copy(out, io.LimitReader(src, budget+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return written, errors.Wrapf(err, errors.ErrIOFailure, "write %s", target)
	}
	if written > budget {
		_ = os.Remove(target)
		return written, errors.New(errors.ErrArchiveBomb,
			"archive expanded past the declared size limit during extraction")
	}
	return written, nil
}
