package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes images to Dir and serves them under URLPrefix.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

func NewLocalStore(dir, urlPrefix string) *LocalStore {
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &LocalStore{Dir: dir, URLPrefix: urlPrefix}
}

func (s *LocalStore) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return s.URLPrefix + name, nil
}

func (s *LocalStore) Remove(_ context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.URLPrefix)
	if !ok || name == "" {
		return nil
	}
	// never follow a path out of Dir
	name = filepath.Base(name)

	err := os.Remove(filepath.Join(s.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
