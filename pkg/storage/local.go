package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore persists objects on disk under a base directory and issues
// HMAC-signed download URLs served by the API itself. It is the development
// stand-in for the S3 store.
type LocalStore struct {
	baseDir   string
	publicURL string
	signer    *SignedURLSigner
}

// NewLocalStore ensures the base directory exists and returns a handle.
func NewLocalStore(baseDir, publicURL, secret string, ttl time.Duration) (*LocalStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStore{
		baseDir:   baseDir,
		publicURL: strings.TrimRight(publicURL, "/"),
		signer:    NewSignedURLSigner(secret, ttl),
	}, nil
}

// Put writes the object bytes under the given key.
func (s *LocalStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	path := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare uploads directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	return nil
}

// SignedURL returns a time-limited download URL for a stored object.
func (s *LocalStore) SignedURL(ctx context.Context, key string) (string, error) {
	token, _, err := s.signer.Generate(key)
	if err != nil {
		return "", fmt.Errorf("sign object url: %w", err)
	}
	return fmt.Sprintf("%s/files/%s?token=%s", s.publicURL, url.PathEscape(key), url.QueryEscape(token)), nil
}

// Open returns a read-only handle for a stored object after validating its
// download token.
func (s *LocalStore) Open(key, token string) (*os.File, error) {
	signedKey, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	if signedKey != key {
		return nil, fmt.Errorf("token does not match requested object")
	}
	file, err := os.Open(s.resolve(key))
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	return file, nil
}

// Delete removes a stored object if present.
func (s *LocalStore) Delete(key string) error {
	if err := os.Remove(s.resolve(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *LocalStore) resolve(key string) string {
	// Keys are flat; strip any path traversal before touching the filesystem.
	return filepath.Join(s.baseDir, filepath.Base(key))
}
