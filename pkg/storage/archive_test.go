package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"leasemail/pkg/domain"
)

func TestArchiveSavesDraftToFileStore(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	draft := domain.Draft{
		ID:           "d1",
		Member:       "jamie",
		ContactEmail: "dana@ortiz.com",
		Prompt:       "intro",
		Text:         "Subject: Hi",
		CreatedAt:    time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
	}

	key, err := NewArchive(fs).Save(context.Background(), "jamie:5104014506", draft)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(key, "drafts/jamie_5104014506-") || !strings.HasSuffix(key, "/20261017T093000-d1.json") {
		t.Fatalf("unexpected key %q", key)
	}
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("read archived draft: %v", err)
	}
	var got domain.Draft
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode archived draft: %v", err)
	}
	if got.Text != draft.Text || got.ContactEmail != draft.ContactEmail {
		t.Fatalf("archived draft mismatch: %+v", got)
	}
}

func TestFileStoreKeepsKeysInsideBase(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := fs.Put(context.Background(), "../../escape.txt", strings.NewReader("x"), 1, "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); err != nil {
		t.Fatalf("expected object under base dir: %v", err)
	}
	if err := fs.Put(context.Background(), " ", strings.NewReader("x"), 1, "text/plain"); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
