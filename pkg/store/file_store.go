package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"leasemail/pkg/domain"
)

const (
	contactsFileName = "contacts.json"
	historyDirName   = "email_histories"
)

// FileStore keeps contacts and histories as JSON files under a base directory.
type FileStore struct {
	basePath string
	mu       sync.Mutex
}

// NewFileStore creates the base and history directories if missing.
func NewFileStore(basePath string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(filepath.Join(basePath, historyDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// LoadContacts reads contacts.json.
func (f *FileStore) LoadContacts(ctx context.Context) (domain.Contacts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	contacts := domain.Contacts{}
	if err := readJSON(f.contactsPath(), &contacts); err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = domain.Contacts{}
	}
	return contacts, nil
}

// SaveContacts replaces contacts.json.
func (f *FileStore) SaveContacts(ctx context.Context, contacts domain.Contacts) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if contacts == nil {
		contacts = domain.Contacts{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeJSONAtomic(f.contactsPath(), contacts)
}

// LoadHistory reads the identity's history file.
func (f *FileStore) LoadHistory(ctx context.Context, identity string) (domain.History, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var history domain.History
	if err := readJSON(f.historyPath(identity), &history); err != nil {
		return nil, err
	}
	if history == nil {
		history = domain.History{}
	}
	return history, nil
}

// SaveHistory replaces the identity's history file.
func (f *FileStore) SaveHistory(ctx context.Context, identity string, history domain.History) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if history == nil {
		history = domain.History{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeJSONAtomic(f.historyPath(identity), history)
}

func (f *FileStore) Close() error { return nil }

func (f *FileStore) contactsPath() string {
	return filepath.Join(f.basePath, contactsFileName)
}

func (f *FileStore) historyPath(identity string) string {
	return filepath.Join(f.basePath, historyDirName, UserKey(identity)+".json")
}

// readJSON leaves out untouched when the file is missing or blank.
func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return corrupt(path, err)
	}
	return nil
}

// writeJSONAtomic writes to a temp file in the target directory and renames it
// over the target, so readers see either the old or the new table.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp for %s: %w", path, err)
	}
	return nil
}
