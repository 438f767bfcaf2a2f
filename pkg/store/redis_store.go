package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"leasemail/pkg/domain"
)

const (
	defaultRedisPrefix  = "leasemail"
	defaultRedisTimeout = 3 * time.Second
)

// RedisStore keeps contacts in a hash and each history as a JSON string.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisStore builds a Redis-backed store.
func NewRedisStore(addr, password, prefix string) (*RedisStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix:  prefix,
		timeout: defaultRedisTimeout,
	}, nil
}

// LoadContacts reads every field of the contacts hash.
func (s *RedisStore) LoadContacts(ctx context.Context) (domain.Contacts, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	key := s.contactsKey()
	raw, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	contacts := make(domain.Contacts, len(raw))
	for email, value := range raw {
		var c domain.Contact
		if err := json.Unmarshal([]byte(value), &c); err != nil {
			return nil, corrupt(key+"/"+email, err)
		}
		contacts[email] = c
	}
	return contacts, nil
}

// SaveContacts replaces the hash inside MULTI/EXEC.
func (s *RedisStore) SaveContacts(ctx context.Context, contacts domain.Contacts) error {
	values := make(map[string]any, len(contacts))
	for email, c := range contacts {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode contact %s: %w", email, err)
		}
		values[email] = string(data)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	key := s.contactsKey()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save contacts: %w", err)
	}
	return nil
}

// LoadHistory returns an empty history when the key is absent.
func (s *RedisStore) LoadHistory(ctx context.Context, identity string) (domain.History, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	key := s.historyKey(identity)
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.History{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	var history domain.History
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, corrupt(key, err)
	}
	if history == nil {
		history = domain.History{}
	}
	return history, nil
}

// SaveHistory overwrites the history key.
func (s *RedisStore) SaveHistory(ctx context.Context, identity string, history domain.History) error {
	if history == nil {
		history = domain.History{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Set(ctx, s.historyKey(identity), data, 0).Err(); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) contactsKey() string {
	return s.prefix + ":contacts"
}

func (s *RedisStore) historyKey(identity string) string {
	return s.prefix + ":history:" + UserKey(identity)
}
