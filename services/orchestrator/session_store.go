// File: services/orchestrator/session_store.go
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"voicedesk/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when no live session exists for a call id.
var ErrSessionNotFound = errors.New("call session not found")

// SessionStore is the pluggable keyed store behind the orchestrator. Lock
// returns an unlock func; the lease expires on its own so a stuck collaborator
// call can never deadlock the session.
type SessionStore interface {
	Get(ctx context.Context, callID string) (*models.CallSession, error)
	Set(ctx context.Context, session *models.CallSession, ttl time.Duration) error
	Delete(ctx context.Context, callID string) error
	Lock(ctx context.Context, callID string, lease time.Duration) (func(), error)
}

const (
	sessionKeyPrefix = "call:session:"
	lockKeyPrefix    = "call:lock:"
	lockPollInterval = 25 * time.Millisecond
)

// RedisSessionStore implements SessionStore, so the orchestrator can scale
// across instances: sessions are JSON blobs, locks are SetNX leases.
type RedisSessionStore struct {
	Client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{Client: client}
}

func (s *RedisSessionStore) Get(ctx context.Context, callID string) (*models.CallSession, error) {
	data, err := s.Client.Get(ctx, sessionKeyPrefix+callID).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", callID, err)
	}
	var session models.CallSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", callID, err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Set(ctx context.Context, session *models.CallSession, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	if err := s.Client.Set(ctx, sessionKeyPrefix+session.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session %s: %w", session.ID, err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, callID string) error {
	return s.Client.Del(ctx, sessionKeyPrefix+callID).Err()
}

// Lock acquires the per-session lease, polling until the context expires. The
// unlock func releases only if this holder still owns the lease.
func (s *RedisSessionStore) Lock(ctx context.Context, callID string, lease time.Duration) (func(), error) {
	key := lockKeyPrefix + callID
	token := uuid.New().String()

	for {
		ok, err := s.Client.SetNX(ctx, key, token, lease).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire session lock %s: %w", callID, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out acquiring session lock %s: %w", callID, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}

	unlock := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if val, err := s.Client.Get(releaseCtx, key).Result(); err == nil && val == token {
			s.Client.Del(releaseCtx, key)
		}
	}
	return unlock, nil
}

// MemorySessionStore is the in-process SessionStore used in tests and
// single-node deployments.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.CallSession
	locks    map[string]chan struct{}
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*models.CallSession),
		locks:    make(map[string]chan struct{}),
	}
}

func (s *MemorySessionStore) Get(ctx context.Context, callID string) (*models.CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[callID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	clone := *session
	clone.Conversation = append([]models.Turn(nil), session.Conversation...)
	return &clone, nil
}

func (s *MemorySessionStore) Set(ctx context.Context, session *models.CallSession, ttl time.Duration) error {
	clone := *session
	clone.Conversation = append([]models.Turn(nil), session.Conversation...)
	s.mu.Lock()
	s.sessions[session.ID] = &clone
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, callID string) error {
	s.mu.Lock()
	delete(s.sessions, callID)
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Lock(ctx context.Context, callID string, lease time.Duration) (func(), error) {
	s.mu.Lock()
	ch, ok := s.locks[callID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[callID] = ch
	}
	s.mu.Unlock()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out acquiring session lock %s: %w", callID, ctx.Err())
	}

	var once sync.Once
	unlock := func() {
		once.Do(func() { <-ch })
	}
	return unlock, nil
}
