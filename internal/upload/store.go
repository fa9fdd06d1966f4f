// Package upload stores post images on the local filesystem.
//
// Filenames are generated (xid + sniffed extension), never taken from the
// client, so uploads cannot collide with or overwrite each other and path
// traversal via the original filename is impossible.
package upload

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"github.com/blogwithme/blogwithme/internal/apperror"
)

// MaxImageSize is the upload cap: 5 MiB, matching the form-side limit.
const MaxImageSize = 5 << 20

// extensions maps accepted sniffed content types to the stored extension.
// The client's claimed Content-Type is ignored; only the first bytes of the
// file decide.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// Store writes and removes image files under a single directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates the upload directory if needed and returns a Store.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: creating directory %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the directory files are stored in, for the static file server.
func (s *Store) Dir() string {
	return s.dir
}

// Save validates and stores one uploaded image, returning the generated
// filename. size is the declared upload size; the copy is additionally
// capped so a lying client cannot exceed MaxImageSize.
func (s *Store) Save(r io.Reader, size int64) (string, error) {
	if size > MaxImageSize {
		return "", apperror.ValidationFailed("image", "image size must be less than 5MB")
	}

	// Sniff the content type from the first 512 bytes.
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("upload: reading image: %w", err)
	}
	head = head[:n]

	ext, ok := extensions[strings.ToLower(http.DetectContentType(head))]
	if !ok {
		return "", apperror.ValidationFailed("image", "only JPG, PNG, and GIF images are allowed")
	}

	filename := "blog_" + xid.New().String() + ext
	path := filepath.Join(s.dir, filename)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("upload: creating %s: %w", path, err)
	}

	_, err = f.Write(head)
	if err == nil {
		// +1 so an over-long stream is detected rather than silently cut.
		var written int64
		written, err = io.Copy(f, io.LimitReader(r, MaxImageSize-int64(len(head))+1))
		if err == nil && int64(len(head))+written > MaxImageSize {
			err = apperror.ValidationFailed("image", "image size must be less than 5MB")
		}
	}

	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("upload: closing %s: %w", path, closeErr)
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}

	return filename, nil
}

// Remove deletes a stored file. Best-effort: a missing file is fine (the
// post row is already gone or never had an image), and any other failure is
// logged rather than propagated — a stray file must not fail the mutation
// that triggered the cleanup.
func (s *Store) Remove(filename string) {
	if filename == "" {
		return
	}
	// The stored name is always our own generated one, but never follow a
	// path that escapes the upload dir.
	if filepath.Base(filename) != filename {
		s.logger.Warn("refusing to remove suspicious upload path", slog.String("filename", filename))
		return
	}

	path := filepath.Join(s.dir, filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Error("failed to remove upload",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
