package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"claimcheck/internal/fileutil"
	"claimcheck/internal/services"
)

// Filesystem stores evidence beneath a local root directory.
type Filesystem struct {
	root    string
	baseURL string
}

// NewFilesystem creates the root directory if needed.
func NewFilesystem(root, baseURL string) (*Filesystem, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "filesystem", "storage.root is required", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "filesystem", "create root", err)
	}
	return &Filesystem{root: root, baseURL: strings.TrimSpace(baseURL)}, nil
}

// Root returns the directory served under /evidence/.
func (f *Filesystem) Root() string {
	return f.root
}

func (f *Filesystem) Backend() string {
	return "filesystem"
}

func (f *Filesystem) Store(ctx context.Context, claimID string, category Category, filename string, data []byte) (string, error) {
	key, err := ObjectKey(claimID, category, filename)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrUpload, "storage", "filesystem put", key, err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(f.root, filepath.FromSlash(key)), data, 0o644); err != nil {
		return "", services.Wrap(services.ErrUpload, "storage", "filesystem put", key, err)
	}
	if f.baseURL == "" {
		return "file://" + filepath.ToSlash(filepath.Join(f.root, filepath.FromSlash(key))), nil
	}
	return publicURL(f.baseURL, key), nil
}

func (f *Filesystem) DeletePrefix(ctx context.Context, claimID string) (int, error) {
	prefix, err := claimPrefix(claimID)
	if err != nil {
		return 0, err
	}
	dir := filepath.Join(f.root, filepath.FromSlash(strings.TrimSuffix(prefix, "/")))
	count := 0
	walkErr := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return ctx.Err()
	})
	if errors.Is(walkErr, fs.ErrNotExist) {
		return 0, nil
	}
	if walkErr != nil {
		return 0, services.Wrap(services.ErrUpload, "storage", "filesystem delete", prefix, walkErr)
	}
	if err := os.RemoveAll(dir); err != nil {
		return 0, services.Wrap(services.ErrUpload, "storage", "filesystem delete", prefix, err)
	}
	return count, nil
}
