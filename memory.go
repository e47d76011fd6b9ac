package propstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// Driver persists the flat form of a store: qualified keys ("namespace:key")
// mapped to encoded values. Implementations must be thread-safe.
type Driver interface {
	// Load returns every persisted entry. A backend that has never been
	// saved to returns an empty map and no error.
	Load(ctx context.Context) (map[string]string, error)

	// Save replaces the persisted entries with entries.
	Save(ctx context.Context, entries map[string]string) error
}

// Memory implements Driver with thread-safe in-memory storage.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory creates an in-memory Driver instance.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Load(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data), nil
}

func (m *Memory) Save(ctx context.Context, entries map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := maps.Clone(entries)
	if data == nil {
		data = make(map[string]string)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	return nil
}

// FileDriver persists to a single document on disk.
type FileDriver struct {
	Path   string
	Format Format
	// Options are applied when writing.
	Options DocumentOptions

	mu sync.Mutex
}

// NewFileDriver creates a FileDriver whose format follows the path's extension.
func NewFileDriver(path string, opts DocumentOptions) *FileDriver {
	return &FileDriver{Path: path, Format: FormatForPath(path), Options: opts}
}

func (f *FileDriver) Load(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.Open(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer func() { _ = fh.Close() }()

	entries, err := ReadDocument(fh, f.Format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	return entries, nil
}

// Save writes to a temporary file next to Path and renames it into place,
// so readers never see a partial document.
func (f *FileDriver) Save(ctx context.Context, entries map[string]string) (retErr error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create dirs: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := WriteDocument(tmp, entries, f.Format, f.Options); err != nil {
		return fmt.Errorf("write %s: %w", f.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("rename %s: %w", f.Path, err)
	}
	return nil
}
