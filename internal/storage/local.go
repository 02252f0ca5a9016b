package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes objects under <dir>/<bucket>/ and serves them from
// <base>/attachments/<key>.
type LocalStore struct {
	root string
	base string
}

// NewLocalStore creates the bucket directory if needed.
func NewLocalStore(dir, bucket, publicBaseURL string) (*LocalStore, error) {
	root := filepath.Join(dir, bucket)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{root: root, base: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Path resolves key to a file path inside the bucket.
func (s *LocalStore) Path(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	p := filepath.Join(s.root, filepath.FromSlash(k))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return p, nil
}

// Put stores body under key. Without Overwrite an existing file yields
// ErrObjectExists. A short or failed copy removes the partial file.
func (s *LocalStore) Put(ctx context.Context, key, _ string, body io.Reader, size int64, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !opts.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(p, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return ErrObjectExists
	}
	if err != nil {
		return err
	}

	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && size >= 0 && n != size {
		err = fmt.Errorf("short write: %d of %d bytes", n, size)
	}
	if err != nil {
		_ = os.Remove(p)
		return fmt.Errorf("local put %q: %w", key, err)
	}
	return nil
}

// PublicURL returns the URL the API serves key from.
func (s *LocalStore) PublicURL(key string) string {
	return s.base + "/attachments/" + strings.TrimLeft(key, "/")
}

// Delete removes key. Missing objects are not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local delete %q: %w", key, err)
	}
	return nil
}
