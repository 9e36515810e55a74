package ratings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all overrides in one JSON document on local disk.
// This is suitable for single-instance deployments.
type FileStore struct {
	mu       sync.Mutex
	filePath string
}

// NewFileStore creates a file-backed store. The file is created on the first Save.
func NewFileStore(filePath string) *FileStore {
	return &FileStore{filePath: filePath}
}

// Load reads the override file. A missing file is an empty store.
func (s *FileStore) Load(ctx context.Context) (map[string]Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) read() (map[string]Override, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Override{}, nil
		}
		return nil, fmt.Errorf("failed to read ratings file: %w", err)
	}
	if len(data) == 0 {
		return map[string]Override{}, nil
	}

	overrides := make(map[string]Override)
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse ratings file: %w", err)
	}
	for id, o := range overrides {
		o.ModelID = id
		overrides[id] = o
	}
	return overrides, nil
}

// Save rewrites the whole file with o inserted or replaced.
func (s *FileStore) Save(ctx context.Context, o Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	overrides, err := s.read()
	if err != nil {
		return err
	}
	overrides[o.ModelID] = o

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create ratings directory: %w", err)
	}

	data, err := json.MarshalIndent(overrides, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ratings: %w", err)
	}

	// Write atomically using temp file + rename
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ratings file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename ratings file: %w", err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}
