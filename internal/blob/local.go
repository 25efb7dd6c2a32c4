package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore lays blobs out as root/<owner>/<key>.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

func (l *LocalStore) path(ownerID, key string) (string, error) {
	if ownerID == "" || key == "" || strings.Contains(ownerID, "..") || strings.ContainsAny(ownerID, `/\`) {
		return "", ErrObjectNotFound
	}
	p := filepath.Join(l.root, ownerID, filepath.FromSlash(normalizeKey(key)))
	if !strings.HasPrefix(p, filepath.Join(l.root, ownerID)+string(os.PathSeparator)) {
		return "", ErrObjectNotFound
	}
	return p, nil
}

func (l *LocalStore) Open(_ context.Context, ownerID, key string) (Object, *ObjectInfo, error) {
	p, err := l.path(ownerID, key)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, ErrObjectNotFound
	}

	return f, &ObjectInfo{Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (l *LocalStore) Exists(_ context.Context, ownerID, key string) (bool, error) {
	p, err := l.path(ownerID, key)
	if err != nil {
		return false, nil
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}
	return !info.IsDir(), nil
}

func (l *LocalStore) Put(_ context.Context, ownerID, key string, r io.Reader, _ int64, _ string) error {
	p, err := l.path(ownerID, key)
	if err != nil {
		return fmt.Errorf("invalid storage key %q", key)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create owner directory: %w", err)
	}

	dst, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(p)
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
