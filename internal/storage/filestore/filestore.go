// Package filestore is an embedded document engine persisted as a single
// JSON file. Documents live in memory grouped by collection and are written
// back atomically on a timer and on Close.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("filestore is closed")

// Document is one stored record.
type Document = map[string]any

// Config holds configuration options for the Store
type Config struct {
	FilePath         string
	AutoSaveInterval time.Duration
	BackupCount      int // Number of backup files to keep
	Logger           zerolog.Logger
}

// DefaultConfig returns a default configuration
func DefaultConfig(filePath string) *Config {
	return &Config{
		FilePath:         filePath,
		AutoSaveInterval: 10 * time.Second,
		BackupCount:      3,
		Logger:           zerolog.Nop(),
	}
}

type Store struct {
	data         map[string][]Document // collection -> documents in insertion order
	file         string
	mu           sync.RWMutex
	saveMu       sync.Mutex // serializes writers of the file
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	config       *Config
	lastChecksum string
	closed       bool
}

// Open loads filePath (creating it if missing) with default configuration.
func Open(filePath string) (*Store, error) {
	return OpenWithConfig(DefaultConfig(filePath))
}

// OpenWithConfig loads the file and starts the autosave loop.
func OpenWithConfig(config *Config) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.FilePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	dir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	s := &Store{
		data:   make(map[string][]Document),
		file:   config.FilePath,
		config: config,
	}

	if _, err := os.Stat(config.FilePath); os.IsNotExist(err) {
		empty := []byte("{}")
		if err := s.replaceFile(empty, calculateChecksum(empty)); err != nil {
			return nil, fmt.Errorf("failed to create empty JSON file: %w", err)
		}
	} else if err == nil {
		if err := s.loadFromFile(); err != nil {
			return nil, fmt.Errorf("failed to load data from file: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to check file existence: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	if config.AutoSaveInterval > 0 {
		s.wg.Add(1)
		go s.autoSave(ctx)
	}

	return s, nil
}

// Find returns a copy of the first document in collection accepted by match.
func (s *Store) Find(collection string, match func(Document) bool) (Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}

	for _, doc := range s.data[collection] {
		if match(doc) {
			out, err := clone(doc)
			return out, err == nil, err
		}
	}
	return nil, false, nil
}

// Insert appends a copy of doc to collection.
func (s *Store) Insert(collection string, doc Document) error {
	stored, err := clone(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.data[collection] = append(s.data[collection], stored)
	return nil
}

// Update replaces the first document accepted by match with the result of
// apply. It reports whether a document was found.
func (s *Store) Update(collection string, match func(Document) bool, apply func(Document) (Document, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	docs := s.data[collection]
	for i, doc := range docs {
		if !match(doc) {
			continue
		}
		cur, err := clone(doc)
		if err != nil {
			return true, err
		}
		next, err := apply(cur)
		if err != nil {
			return true, err
		}
		if next, err = clone(next); err != nil {
			return true, err
		}
		docs[i] = next
		return true, nil
	}
	return false, nil
}

// Delete removes the first document accepted by match.
func (s *Store) Delete(collection string, match func(Document) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	docs := s.data[collection]
	for i, doc := range docs {
		if match(doc) {
			s.data[collection] = append(docs[:i:i], docs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// SaveToFile forces an immediate save to disk
func (s *Store) SaveToFile() error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return s.saveToFile()
}

// Close stops the autosave loop and writes the final state.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	return s.saveToFile()
}

// Stats returns statistics about the Store
func (s *Store) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.data))
	for name, docs := range s.data {
		counts[name] = len(docs)
	}
	return map[string]any{
		"collections": counts,
		"file_path":   s.file,
		"last_save":   s.lastChecksum != "",
	}
}

// saveToFile writes the collections when they changed since the last save.
func (s *Store) saveToFile() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	data, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode collections: %w", err)
	}

	sum := calculateChecksum(data)
	if sum == s.lastChecksum {
		return nil
	}
	if s.config.BackupCount > 0 {
		if err := s.rotateBackups(); err != nil {
			s.config.Logger.Warn().Err(err).Msg("Failed to create backup")
		}
	}
	if err := s.replaceFile(data, sum); err != nil {
		return err
	}
	s.lastChecksum = sum
	return nil
}

func (s *Store) loadFromFile() error {
	data, err := os.ReadFile(s.file)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.file, err)
	}

	var collections map[string][]Document
	if err := json.Unmarshal(data, &collections); err != nil {
		return fmt.Errorf("decode %s: %w", s.file, err)
	}
	if collections == nil {
		collections = make(map[string][]Document)
	}

	s.data = collections
	s.lastChecksum = calculateChecksum(data)
	return nil
}

// replaceFile swaps data in through a synced temp file and reads it back.
// sum is the checksum data must have on disk.
func (s *Store) replaceFile(data []byte, sum string) (err error) {
	tmp := s.file + ".tmp"
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.file); err != nil {
		return fmt.Errorf("replace %s: %w", s.file, err)
	}

	written, err := os.ReadFile(s.file)
	if err != nil {
		return fmt.Errorf("verify %s: %w", s.file, err)
	}
	if calculateChecksum(written) != sum {
		return fmt.Errorf("verify %s: checksum mismatch", s.file)
	}
	return nil
}

// rotateBackups copies the current file aside and keeps the newest
// BackupCount copies.
func (s *Store) rotateBackups() error {
	current, err := os.ReadFile(s.file)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	name := s.file + ".backup." + time.Now().Format("20060102_150405.000000000")
	if err := os.WriteFile(name, current, 0644); err != nil {
		return err
	}

	backups, err := filepath.Glob(s.file + ".backup.*")
	if err != nil || len(backups) <= s.config.BackupCount {
		return err
	}
	// names sort oldest first
	sort.Strings(backups)
	for _, old := range backups[:len(backups)-s.config.BackupCount] {
		os.Remove(old)
	}
	return nil
}

func (s *Store) autoSave(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.AutoSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.saveToFile(); err != nil {
				s.config.Logger.Error().Err(err).Msg("Auto-save failed")
			}
		}
	}
}

func calculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// clone deep-copies a document through JSON so stored state never aliases
// caller maps and always matches what a reload would produce.
func clone(doc Document) (Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("document is not JSON-serializable: %w", err)
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
