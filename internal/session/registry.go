package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const (
	DefaultMaxSessions = 1024
	DefaultSessionTTL  = 2 * time.Hour
)

// Registry holds in-memory sessions keyed by an opaque id. Sessions idle
// longer than the TTL, or pushed out by the size cap, are forgotten.
type Registry struct {
	llm  Caller
	log  *zap.Logger
	opts []Option

	mu    sync.Mutex
	cache *expirable.LRU[string, *Store]
}

// NewRegistry creates a registry. Non-positive size or ttl fall back to the
// defaults. opts are applied to every new Store.
func NewRegistry(llm Caller, size int, ttl time.Duration, log *zap.Logger, opts ...Option) *Registry {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{llm: llm, log: log.Named("session"), opts: opts}
	r.cache = expirable.NewLRU[string, *Store](size, func(id string, _ *Store) {
		r.log.Debug("session evicted", zap.String("session", id))
	}, ttl)
	return r
}

// Get returns the session for id and refreshes its TTL.
func (r *Registry) Get(id string) (*Store, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.cache.Get(id)
	if ok {
		r.cache.Add(id, st)
	}
	return st, ok
}

// Resolve returns the session for id, creating it when id is empty or
// unknown. created reports whether a new session was made; its id may
// differ from the one asked for.
func (r *Registry) Resolve(id string) (st *Store, created bool) {
	id = strings.TrimSpace(id)
	if st, ok := r.Get(id); ok {
		return st, false
	}
	if !validID(id) {
		id = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.cache.Get(id); ok {
		return st, false
	}
	opts := append([]Option{WithLogger(r.log)}, r.opts...)
	st = New(id, r.llm, opts...)
	r.cache.Add(id, st)
	r.log.Debug("session created", zap.String("session", id))
	return st, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}

// Purge drops every session.
func (r *Registry) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
