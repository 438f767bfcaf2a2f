package store

import (
	"context"
	"errors"
	"fmt"

	"leasemail/pkg/domain"
)

// ErrStorageCorrupt marks persisted data that exists but cannot be parsed.
var ErrStorageCorrupt = errors.New("storage corrupt")

// StorageCorruptError reports which record failed to parse.
type StorageCorruptError struct {
	Key string
	Err error
}

func (e *StorageCorruptError) Error() string {
	return fmt.Sprintf("storage corrupt: %s: %v", e.Key, e.Err)
}

func (e *StorageCorruptError) Unwrap() error { return e.Err }

func (e *StorageCorruptError) Is(target error) bool { return target == ErrStorageCorrupt }

func corrupt(key string, err error) error {
	return &StorageCorruptError{Key: key, Err: err}
}

// ContactStore persists the full contact table.
type ContactStore interface {
	// LoadContacts returns an empty map when nothing has been saved yet.
	LoadContacts(ctx context.Context) (domain.Contacts, error)
	// SaveContacts replaces the whole table.
	SaveContacts(ctx context.Context, contacts domain.Contacts) error
}

// ConversationStore persists per-user message history. Identities are free-form
// strings; implementations derive their storage key with UserKey.
type ConversationStore interface {
	LoadHistory(ctx context.Context, identity string) (domain.History, error)
	SaveHistory(ctx context.Context, identity string, history domain.History) error
}

// Store is a backend that holds both contacts and conversations.
type Store interface {
	ContactStore
	ConversationStore
	Close() error
}

// Upsert loads the table, sets email to contact and saves it back.
// Not transactional across concurrent callers.
func Upsert(ctx context.Context, cs ContactStore, email string, contact domain.Contact) error {
	contacts, err := cs.LoadContacts(ctx)
	if err != nil {
		return err
	}
	if contacts == nil {
		contacts = make(domain.Contacts)
	}
	contacts[email] = contact
	return cs.SaveContacts(ctx, contacts)
}

// ClearHistory replaces the identity's history with an empty sequence.
func ClearHistory(ctx context.Context, hs ConversationStore, identity string) error {
	return hs.SaveHistory(ctx, identity, domain.History{})
}

// AppendTurns loads the identity's history, appends turns and saves the result
// in a single write. The returned history is what was persisted.
func AppendTurns(ctx context.Context, hs ConversationStore, identity string, turns ...domain.Turn) (domain.History, error) {
	history, err := hs.LoadHistory(ctx, identity)
	if err != nil {
		return nil, err
	}
	next := make(domain.History, 0, len(history)+len(turns))
	next = append(next, history...)
	next = append(next, turns...)
	if err := hs.SaveHistory(ctx, identity, next); err != nil {
		return nil, err
	}
	return next, nil
}
