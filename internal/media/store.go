// Package media stores uploaded showcase photos on local disk.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

// MaxUploadBytes bounds a single photo.
const MaxUploadBytes = 8 << 20

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// LocalStore keeps assets in a directory and hands out URL references
// under a public prefix.
type LocalStore struct {
	root   string
	prefix string
}

// NewLocalStore creates the directory when missing.
func NewLocalStore(root, prefix string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("media: create upload dir: %w", err)
	}
	return &LocalStore{root: root, prefix: "/" + strings.Trim(prefix, "/")}, nil
}

// Root returns the upload directory.
func (s *LocalStore) Root() string { return s.root }

// Prefix returns the URL path assets are served under.
func (s *LocalStore) Prefix() string { return s.prefix }

// Save writes r as a new asset and returns its reference. Only image types
// are accepted.
func (s *LocalStore) Save(ctx context.Context, r io.Reader) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("media: read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", shared.NewValidationError("file", "is empty")
	}
	ct, _, _ := mime.ParseMediaType(http.DetectContentType(head))
	ext, ok := allowedTypes[ct]
	if !ok {
		return "", shared.NewValidationError("file", "must be a JPEG, PNG, GIF or WebP image")
	}

	name := uuid.NewString() + ext
	f, err := os.OpenFile(filepath.Join(s.root, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("media: create asset: %w", err)
	}
	written, err := io.Copy(f, io.MultiReader(bytes.NewReader(head), io.LimitReader(r, MaxUploadBytes-int64(n)+1)))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > MaxUploadBytes {
		err = shared.NewValidationError("file", "exceeds 8 MiB")
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.root, name))
		return "", err
	}
	return path.Join(s.prefix, name), nil
}

// Delete removes the asset behind ref. Missing files are not an error.
func (s *LocalStore) Delete(_ context.Context, ref string) error {
	name, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("media: delete %s: %w", name, err)
	}
	return nil
}

// resolve maps a reference to a file name inside root. References outside
// the prefix or with path elements are rejected.
func (s *LocalStore) resolve(ref string) (string, error) {
	name := strings.TrimPrefix(ref, s.prefix+"/")
	if name == ref || name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("media: reference %q outside %s", ref, s.prefix)
	}
	return name, nil
}
