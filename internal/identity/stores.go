package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryStore keeps the id in process memory.
type MemoryStore struct {
	mu sync.RWMutex
	id string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the held id or ErrNotFound.
func (s *MemoryStore) Load(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.id == "" {
		return "", ErrNotFound
	}
	return s.id, nil
}

// Save replaces the held id.
func (s *MemoryStore) Save(_ context.Context, id string) error {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
	return nil
}

// Delete forgets the held id.
func (s *MemoryStore) Delete(context.Context) error {
	s.mu.Lock()
	s.id = ""
	s.mu.Unlock()
	return nil
}

type fileRecord struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FileStore persists the id as a small JSON document, the terminal
// counterpart of a browser storage key.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore stores the id at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the id from disk. A missing or empty file yields ErrNotFound.
func (s *FileStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read identity file: %w", err)
	}
	var rec fileRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", fmt.Errorf("decode identity file %s: %w", s.path, err)
	}
	if rec.UserID == "" {
		return "", ErrNotFound
	}
	return rec.UserID, nil
}

// Save writes the id, creating parent directories as needed.
func (s *FileStore) Save(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create identity directory: %w", err)
	}
	raw, err := json.MarshalIndent(fileRecord{UserID: id, CreatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode identity file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write identity file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace identity file: %w", err)
	}
	return nil
}

// Delete removes the backing file.
func (s *FileStore) Delete(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove identity file: %w", err)
	}
	return nil
}

// RedisStore keeps one id per device key so that several gateway replicas
// hand the same browser the same id.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore scopes the store to deviceKey.
func NewRedisStore(client *redis.Client, deviceKey string) *RedisStore {
	return &RedisStore{client: client, key: "ndvi:identity:" + deviceKey}
}

// Load fetches the id stored for the device key.
func (s *RedisStore) Load(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return id, nil
}

// Save stores the id under the device key.
func (s *RedisStore) Save(ctx context.Context, id string) error {
	if err := s.client.Set(ctx, s.key, id, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Delete drops the device key.
func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.key, err)
	}
	return nil
}
