package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type FSStore struct{ base string }

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base}, nil
}

func (s *FSStore) Put(key string, r io.Reader) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.base, key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return key, nil
}

// cleanKey keeps keys inside the base directory.
func cleanKey(key string) (string, error) {
	k := strings.TrimPrefix(filepath.Clean("/"+filepath.FromSlash(key)), string(filepath.Separator))
	if k == "" || k == "." {
		return "", errors.New("empty key")
	}
	return filepath.ToSlash(k), nil
}
