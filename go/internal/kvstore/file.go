package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileStore keeps every entry in one JSON document on disk. Each write rewrites the file
// through a temp file and rename so a crash never leaves a torn document behind.
type FileStore struct {
	path   string
	mu     sync.Mutex
	values map[string]json.RawMessage
}

// OpenFileStore loads path if it exists, or starts empty.
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		path:   path,
		values: make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Debug().Str("path", path).Msg("store file does not exist yet, starting empty")
		return fs, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &fs.values); err != nil {
			return nil, fmt.Errorf("failed to parse store file %s: %w", path, err)
		}
	}

	log.Info().Str("path", path).Int("entries", len(fs.values)).Msg("opened file store")
	return fs, nil
}

func (f *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (f *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %s is not valid JSON", key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.values[key]
	v := make([]byte, len(value))
	copy(v, value)
	f.values[key] = v

	if err := f.flushLocked(); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

func (f *FileStore) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.values[key]
	if !had {
		return nil
	}
	delete(f.values, key)

	if err := f.flushLocked(); err != nil {
		f.values[key] = prev
		return err
	}
	return nil
}

func (f *FileStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.values[key]
	next, changed, err := fn(append([]byte(nil), prev...), had)
	if err != nil || !changed {
		return err
	}
	if !json.Valid(next) {
		return fmt.Errorf("value for %s is not valid JSON", key)
	}

	f.values[key] = append([]byte(nil), next...)
	if err := f.flushLocked(); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

func (f *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
