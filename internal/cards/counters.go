package cards

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/ndvi-gateway/internal/models"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
)

// Counter names a cosmetic engagement counter.
type Counter string

const (
	CounterLikes  Counter = "likes"
	CounterShares Counter = "shares"
	CounterViews  Counter = "views"
)

// ParseCounter validates a counter name taken from a route.
func ParseCounter(raw string) (Counter, error) {
	switch Counter(raw) {
	case CounterLikes, CounterShares, CounterViews:
		return Counter(raw), nil
	case "like":
		return CounterLikes, nil
	case "share":
		return CounterShares, nil
	case "view":
		return CounterViews, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown counter %q", raw))
	}
}

// CounterStore keeps per-session counters. Values are local to the gateway
// and never reach the analysis backend.
type CounterStore interface {
	Increment(ctx context.Context, sessionID string, counter Counter) (models.CardCounters, error)
	Get(ctx context.Context, sessionIDs ...string) (map[string]models.CardCounters, error)
}

// MemoryCounters is the default CounterStore; counts vanish on restart.
type MemoryCounters struct {
	mu     sync.RWMutex
	counts map[string]models.CardCounters
}

// NewMemoryCounters returns an empty in-process store.
func NewMemoryCounters() *MemoryCounters {
	return &MemoryCounters{counts: make(map[string]models.CardCounters)}
}

// Increment bumps one counter and returns the new totals.
func (m *MemoryCounters) Increment(_ context.Context, sessionID string, counter Counter) (models.CardCounters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.counts[sessionID]
	switch counter {
	case CounterLikes:
		c.Likes++
	case CounterShares:
		c.Shares++
	case CounterViews:
		c.Views++
	default:
		return c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown counter %q", counter))
	}
	m.counts[sessionID] = c
	return c, nil
}

// Get returns counters for the given sessions; unknown ids map to zero.
func (m *MemoryCounters) Get(_ context.Context, sessionIDs ...string) (map[string]models.CardCounters, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]models.CardCounters, len(sessionIDs))
	for _, id := range sessionIDs {
		out[id] = m.counts[id]
	}
	return out, nil
}

const counterKeyPrefix = "ndvi:card:"

// RedisCounters keeps counters in one Redis hash per session so they
// survive gateway restarts.
type RedisCounters struct {
	client *redis.Client
}

// NewRedisCounters wraps an existing client.
func NewRedisCounters(client *redis.Client) *RedisCounters {
	return &RedisCounters{client: client}
}

// Increment bumps one counter and returns the new totals.
func (r *RedisCounters) Increment(ctx context.Context, sessionID string, counter Counter) (models.CardCounters, error) {
	if r.client == nil {
		return models.CardCounters{}, fmt.Errorf("redis counters: no client")
	}
	if _, err := ParseCounter(string(counter)); err != nil {
		return models.CardCounters{}, err
	}
	key := counterKeyPrefix + sessionID
	if err := r.client.HIncrBy(ctx, key, string(counter), 1).Err(); err != nil {
		return models.CardCounters{}, fmt.Errorf("redis hincrby %s: %w", key, err)
	}
	all, err := r.Get(ctx, sessionID)
	if err != nil {
		return models.CardCounters{}, err
	}
	return all[sessionID], nil
}

// Get reads counters for all sessions in one pipeline.
func (r *RedisCounters) Get(ctx context.Context, sessionIDs ...string) (map[string]models.CardCounters, error) {
	out := make(map[string]models.CardCounters, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return out, nil
	}
	if r.client == nil {
		return nil, fmt.Errorf("redis counters: no client")
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(sessionIDs))
	for i, id := range sessionIDs {
		cmds[i] = pipe.HGetAll(ctx, counterKeyPrefix+id)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis counters pipeline: %w", err)
	}
	for i, id := range sessionIDs {
		fields, err := cmds[i].Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("redis hgetall %s: %w", id, err)
		}
		out[id] = models.CardCounters{
			Likes:  parseCount(fields[string(CounterLikes)]),
			Shares: parseCount(fields[string(CounterShares)]),
			Views:  parseCount(fields[string(CounterViews)]),
		}
	}
	return out, nil
}

func parseCount(raw string) int64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
