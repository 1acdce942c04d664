package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// NewsPrefix is the folder holding news/update images.
const NewsPrefix = "newsUpdate"

const defaultMaxUploadBytes int64 = 10 << 20

var (
	ErrUnsupportedType = errors.New("storage: unsupported file type")
	ErrTooLarge        = errors.New("storage: file exceeds upload limit")
	ErrInvalidKey      = errors.New("storage: invalid object key")
)

// Object describes a stored blob.
type Object struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// BlobStore persists uploaded files and resolves their public URL.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (Object, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Config controls the filesystem store.
type Config struct {
	Root           string
	PublicPath     string
	MaxUploadBytes int64
	AllowedTypes   []string
}

var _ BlobStore = (*FilesystemStore)(nil)

// FilesystemStore keeps blobs below a root directory that the HTTP server exposes at PublicPath.
type FilesystemStore struct {
	root       string
	publicPath string
	maxBytes   int64
	allowed    []string
}

// NewFilesystemStore ensures the root directory exists and returns a store rooted there.
func NewFilesystemStore(cfg Config) (*FilesystemStore, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, errors.New("storage: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure root directory: %w", err)
	}

	public := "/" + strings.Trim(strings.TrimSpace(cfg.PublicPath), "/")
	if public == "/" {
		public = "/media"
	}
	maxBytes := cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	allowed := cfg.AllowedTypes
	if len(allowed) == 0 {
		allowed = []string{"image/png", "image/jpeg"}
	}

	return &FilesystemStore{root: root, publicPath: public, maxBytes: maxBytes, allowed: allowed}, nil
}

// Root returns the directory served under PublicPath.
func (s *FilesystemStore) Root() string { return s.root }

// PublicPath returns the URL prefix blobs are served from.
func (s *FilesystemStore) PublicPath() string { return s.publicPath }

// Put stores the content of r at key after checking its size and detected type.
// An existing object at key is replaced.
func (s *FilesystemStore) Put(_ context.Context, key string, r io.Reader) (Object, error) {
	key, err := cleanKey(key)
	if err != nil {
		return Object{}, err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Object{}, fmt.Errorf("storage: read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return Object{}, ErrTooLarge
	}

	detected := mimetype.Detect(data)
	if !mimetype.EqualsAny(detected.String(), s.allowed...) {
		return Object{}, fmt.Errorf("%w: %s", ErrUnsupportedType, detected.String())
	}

	fullPath := s.absolute(key)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Object{}, fmt.Errorf("storage: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("storage: create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Object{}, fmt.Errorf("storage: write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Object{}, fmt.Errorf("storage: close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return Object{}, fmt.Errorf("storage: move file: %w", err)
	}

	return Object{
		Key:         key,
		URL:         s.URL(key),
		ContentType: detected.String(),
		Size:        int64(len(data)),
	}, nil
}

// Delete removes the blob at key. Missing blobs are not an error.
func (s *FilesystemStore) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(s.absolute(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}

// URL returns the public download URL for key.
func (s *FilesystemStore) URL(key string) string {
	key, err := cleanKey(key)
	if err != nil {
		return ""
	}
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return s.publicPath + "/" + strings.Join(segments, "/")
}

func (s *FilesystemStore) absolute(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// NewsImageKey returns the object key for an image uploaded to the news item newsID.
// Keys are scoped per item so equal file names never share a blob.
func NewsImageKey(newsID, name string) string {
	return NewsPrefix + "/" + SanitizeFileName(newsID) + "/" + SanitizeFileName(name)
}

// SanitizeFileName strips directory components and control characters from an uploaded file name.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "." || name == "/" || name == ".." || name == "" {
		return "upload"
	}
	return name
}

func cleanKey(key string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}
