// Package history remembers which billing project an issue was last booked
// to, so later bookings of the same issue can fall back to it.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store maps issue ids to the billing project code last booked for them.
type Store interface {
	Get(issueID string) (string, bool)
	Set(issueID, projectCode string) error
}

// FileStore is a Store persisted as a JSON object. Every Get reads the file
// in full and every Set rewrites it in full. Concurrent processes sharing a
// file may lose updates.
type FileStore struct {
	Path string
	mu   sync.Mutex
}

// DefaultPath returns the history file location below the user's data home.
func DefaultPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "timebook", "projects.json"), nil
}

// NewFileStore returns a store backed by path. The file is created on the
// first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) load() (map[string]string, error) {
	mappings := make(map[string]string)
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return mappings, nil
		}
		return nil, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&mappings); err != nil {
		return nil, fmt.Errorf("failed to decode project history %s: %w", s.Path, err)
	}
	return mappings, nil
}

func (s *FileStore) save(mappings map[string]string) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".projects-*.json")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := json.NewEncoder(f).Encode(mappings); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.Path)
}

// Get returns the project code remembered for issueID. An unreadable file
// behaves like an empty one.
func (s *FileStore) Get(issueID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mappings, err := s.load()
	if err != nil {
		return "", false
	}
	code, ok := mappings[issueID]
	return code, ok
}

// Set remembers projectCode for issueID and rewrites the file.
func (s *FileStore) Set(issueID, projectCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mappings, err := s.load()
	if err != nil {
		return err
	}
	if mappings[issueID] == projectCode {
		return nil
	}
	mappings[issueID] = projectCode
	return s.save(mappings)
}

// MemoryStore is a Store that lives for the process only.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mappings: make(map[string]string)}
}

func (s *MemoryStore) Get(issueID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.mappings[issueID]
	return code, ok
}

func (s *MemoryStore) Set(issueID, projectCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[issueID] = projectCode
	return nil
}
