package infrastructure

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/yourusername/yt-grab-go/internal/domain"
)

// JSONHistoryStore implements domain.HistoryStore as a JSON array on disk.
// Appends are read-modify-write under an in-process mutex and a lock file
// shared with other processes; the new list replaces the old via rename.
// Existing elements are written back as they were read, never re-encoded.
type JSONHistoryStore struct {
	path     string
	mu       sync.Mutex
	fileLock *flock.Flock
}

// NewJSONHistoryStore creates a store backed by path. The file is created on
// first append.
func NewJSONHistoryStore(path string) (*JSONHistoryStore, error) {
	if path == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &JSONHistoryStore{
		path:     path,
		fileLock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the history file location
func (s *JSONHistoryStore) Path() string {
	return s.path
}

// Append adds a record to the end of the history. A corrupt history file is
// left untouched and reported as *domain.CorruptHistoryError.
func (s *JSONHistoryStore) Append(record domain.DownloadResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fileLock.Lock(); err != nil {
		return fmt.Errorf("failed to lock history: %w", err)
	}
	defer s.fileLock.Unlock()

	entries, _, err := s.read()
	if err != nil {
		return err
	}

	encoded, err := encodeJSON(record, "")
	if err != nil {
		return fmt.Errorf("failed to encode history record: %w", err)
	}

	return s.write(append(entries, encoded))
}

// ListAll returns every record in insertion order
func (s *JSONHistoryStore) ListAll() ([]domain.DownloadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fileLock.RLock(); err != nil {
		return nil, fmt.Errorf("failed to lock history: %w", err)
	}
	defer s.fileLock.Unlock()

	_, records, err := s.read()
	return records, err
}

// read loads the history as raw elements and as decoded records. A missing or
// blank file is an empty history; content that does not decode is corrupt.
func (s *JSONHistoryStore) read() ([]json.RawMessage, []domain.DownloadResult, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, []domain.DownloadResult{}, nil
		}
		return nil, nil, fmt.Errorf("failed to read history: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, []domain.DownloadResult{}, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, &domain.CorruptHistoryError{Path: s.path, Err: err}
	}

	records := make([]domain.DownloadResult, len(entries))
	for i, entry := range entries {
		if err := json.Unmarshal(entry, &records[i]); err != nil {
			return nil, nil, &domain.CorruptHistoryError{Path: s.path, Err: fmt.Errorf("entry %d: %w", i, err)}
		}
	}
	return entries, records, nil
}

// write replaces the history file with entries, one indented element each
func (s *JSONHistoryStore) write(entries []json.RawMessage) error {
	data, err := encodeJSON(entries, "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}

// encodeJSON marshals v without HTML escaping so that titles containing
// & < > keep the bytes they were read with. The result ends in a newline.
func encodeJSON(v interface{}, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
