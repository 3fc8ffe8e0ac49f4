package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const keyAlgorithm = "sha256"

// Local stores file bytes under root, keyed by SHA-256 digest.
type Local struct {
	root string
}

var _ Store = (*Local)(nil)

// NewLocal creates the directory tree under root if needed.
func NewLocal(root string) (*Local, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("files path is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute storage directory.
func (l *Local) Root() string {
	return l.root
}

// Put streams r to disk while hashing it. Identical content shares one key.
// A maxBytes of zero or less disables the size check.
func (l *Local) Put(ctx context.Context, r io.Reader, maxBytes int64) (Stored, error) {
	var zero Stored
	if l == nil {
		return zero, fmt.Errorf("file store is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(filepath.Join(l.root, "tmp"), "upload-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	discard := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), src)
	if err != nil {
		discard()
		return zero, err
	}
	if maxBytes > 0 && n > maxBytes {
		discard()
		return zero, ErrTooLarge
	}
	if err := tmp.Close(); err != nil {
		discard()
		return zero, err
	}

	digest := hex.EncodeToString(h.Sum(nil))
	stored := Stored{Digest: digest, Size: n, Key: keyFromDigest(digest)}
	dst := filepath.Join(l.root, filepath.FromSlash(stored.Key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		discard()
		return zero, err
	}

	if _, err := os.Stat(dst); err == nil {
		_ = os.Remove(tmpPath)
		return stored, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		discard()
		return zero, err
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		if _, statErr := os.Stat(dst); statErr == nil {
			_ = os.Remove(tmpPath)
			return stored, nil
		}
		discard()
		return zero, err
	}
	return stored, nil
}

// Open returns a reader for the bytes stored under key.
func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if l == nil {
		return nil, fmt.Errorf("file store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.pathFromKey(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes stored bytes. Missing files are ignored.
func (l *Local) Delete(ctx context.Context, key string) error {
	if l == nil {
		return fmt.Errorf("file store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := l.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func keyFromDigest(digest string) string {
	return fmt.Sprintf("%s/%s/%s/%s", keyAlgorithm, digest[0:2], digest[2:4], digest)
}

func (l *Local) pathFromKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("file key is required")
	}
	if !strings.HasPrefix(key, keyAlgorithm+"/") {
		return "", fmt.Errorf("invalid file key")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid file key")
	}
	return filepath.Join(l.root, clean), nil
}
