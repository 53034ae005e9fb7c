package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when an asset does not exist
var ErrNotFound = errors.New("asset not found")

// ErrInvalidPath is returned for names escaping the store root
var ErrInvalidPath = errors.New("invalid asset path")

// Store is where site assets live: bundled files on disk or a GCS bucket.
// Names are slash separated and relative to the store root.
type Store interface {
	// List returns every asset name under prefix
	List(ctx context.Context, prefix string) ([]string, error)
	// Open opens an asset for reading
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Create opens an asset for writing; Close commits it
	Create(ctx context.Context, name, contentType string) (io.WriteCloser, error)
	// URL returns a browser-reachable URL for the asset
	URL(ctx context.Context, name string) (string, error)
}

// LocalStore serves assets from a directory mounted under urlPrefix
type LocalStore struct {
	root      string
	urlPrefix string
}

// NewLocalStore creates a store rooted at dir whose URLs start with urlPrefix
func NewLocalStore(dir, urlPrefix string) *LocalStore {
	return &LocalStore{
		root:      filepath.Clean(dir),
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
	}
}

// Root returns the directory backing the store
func (s *LocalStore) Root() string {
	return s.root
}

// URLPrefix returns the path under which assets are served
func (s *LocalStore) URLPrefix() string {
	return s.urlPrefix
}

func (s *LocalStore) resolve(name string) (string, error) {
	clean := path.Clean("/" + name)
	full := filepath.Join(s.root, filepath.FromSlash(clean))
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, name)
	}
	return full, nil
}

// List returns asset names under prefix in lexical order
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	dir, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}

	var names []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", prefix, err)
	}

	sort.Strings(names)
	return names, nil
}

// Open opens an asset for reading
func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	full, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, err
}

// Create opens an asset for writing, creating parent directories
func (s *LocalStore) Create(_ context.Context, name, _ string) (io.WriteCloser, error) {
	full, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return os.Create(full)
}

// URL returns the served path of the asset
func (s *LocalStore) URL(_ context.Context, name string) (string, error) {
	if _, err := s.resolve(name); err != nil {
		return "", err
	}
	return s.urlPrefix + "/" + strings.TrimPrefix(name, "/"), nil
}
