package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"card-assistant-backend/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

const statePrefix = "oauth_state:"

// StateStore keeps pending OAuth callbacks in Redis with a TTL.
type StateStore struct {
	client goredis.UniversalClient
}

var _ domain.OAuthStateStore = (*StateStore)(nil)

func NewStateStore(client goredis.UniversalClient) *StateStore {
	return &StateStore{client: client}
}

func (s *StateStore) SaveState(ctx context.Context, key string, state domain.OAuthState, ttl time.Duration) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.client.Set(ctx, statePrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// TakeState reads and deletes atomically so a callback can be consumed only once.
func (s *StateStore) TakeState(ctx context.Context, key string) (*domain.OAuthState, error) {
	raw, err := s.client.GetDel(ctx, statePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load state: %w", err)
	}
	var state domain.OAuthState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &state, nil
}

// MemoryStateStore is the fallback when Redis is not configured.
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]memoryState
	now     func() time.Time
}

type memoryState struct {
	state     domain.OAuthState
	expiresAt time.Time
}

var _ domain.OAuthStateStore = (*MemoryStateStore)(nil)

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{entries: make(map[string]memoryState), now: time.Now}
}

func (s *MemoryStateStore) SaveState(_ context.Context, key string, state domain.OAuthState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = memoryState{state: state, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStateStore) TakeState(_ context.Context, key string) (*domain.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	delete(s.entries, key)
	if s.now().After(e.expiresAt) {
		return nil, nil
	}
	return &e.state, nil
}
