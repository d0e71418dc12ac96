// Package revoke tracks tokens invalidated by logout before their natural
// expiry. Entries carry the token's own expiry so they self-expire; the
// Registry interface admits an external keyed cache for multi-instance
// deployments.
package revoke

import (
	"hash/fnv"
	"sync"
	"time"
)

// Registry is a keyed set of revoked tokens. Revoke is idempotent.
type Registry interface {
	Revoke(token string, expiresAt time.Time)
	IsRevoked(token string) bool
}

const shardCount = 32

// MemoryRegistry is a sharded in-memory Registry. Reads dominate the
// workload, so membership checks take a per-shard read lock rather than a
// single global one. A background sweeper purges entries whose embedded
// expiry has passed.
type MemoryRegistry struct {
	shards [shardCount]shard
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewMemoryRegistry builds a registry and starts its sweeper.
func NewMemoryRegistry(sweepInterval time.Duration) *MemoryRegistry {
	r := &MemoryRegistry{
		now:  time.Now,
		stop: make(chan struct{}),
	}
	for i := range r.shards {
		r.shards[i].entries = make(map[string]time.Time)
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	go r.sweepLoop(sweepInterval)
	return r
}

func (r *MemoryRegistry) shardFor(token string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return &r.shards[h.Sum32()%shardCount]
}

// Revoke inserts the raw token string into the revoked set. The entry lives
// until expiresAt, after which the sweeper may drop it; a second call for
// the same token is a no-op.
func (r *MemoryRegistry) Revoke(token string, expiresAt time.Time) {
	if token == "" {
		return
	}
	s := r.shardFor(token)
	s.mu.Lock()
	if _, ok := s.entries[token]; !ok {
		s.entries[token] = expiresAt
	}
	s.mu.Unlock()
}

// IsRevoked reports set membership. An entry whose expiry has passed is
// treated as absent even if the sweeper has not collected it yet.
func (r *MemoryRegistry) IsRevoked(token string) bool {
	if token == "" {
		return false
	}
	s := r.shardFor(token)
	s.mu.RLock()
	expiresAt, ok := s.entries[token]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if !expiresAt.IsZero() && r.now().After(expiresAt) {
		return false
	}
	return true
}

// Close stops the sweeper.
func (r *MemoryRegistry) Close() {
	r.once.Do(func() { close(r.stop) })
}

func (r *MemoryRegistry) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *MemoryRegistry) sweep() {
	now := r.now()
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for token, expiresAt := range s.entries {
			if !expiresAt.IsZero() && now.After(expiresAt) {
				delete(s.entries, token)
			}
		}
		s.mu.Unlock()
	}
}
