package server

import (
	"sort"
	"sync"
	"time"

	"github.com/alexanderramin/liminal/internal/intelligence"
)

const (
	defaultIdleTTL          = time.Hour
	defaultMaxConversations = 1000
)

type registryEntry struct {
	conv     *intelligence.Conversation
	lastUsed time.Time
	seq      uint64
}

// registry holds live conversations keyed by user and session. Entries idle
// longer than ttl are dropped, and past max the least recently used go
// first. A dropped session is resumed from storage on its next request, but
// any pending confirmation is lost.
type registry struct {
	ttl time.Duration
	max int
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
	seq     uint64
}

func newRegistry(ttl time.Duration, limit int, now func() time.Time) *registry {
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}
	if limit <= 0 {
		limit = defaultMaxConversations
	}
	return &registry{ttl: ttl, max: limit, now: now, entries: make(map[string]*registryEntry)}
}

func registryKey(userID, sessionID string) string {
	return userID + "/" + sessionID
}

// get returns the live conversation and marks it used.
func (r *registry) get(userID, sessionID string) *intelligence.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[registryKey(userID, sessionID)]
	if !ok {
		return nil
	}
	now := r.now()
	if now.Sub(e.lastUsed) > r.ttl {
		delete(r.entries, registryKey(userID, sessionID))
		return nil
	}
	r.touchLocked(e, now)
	return e.conv
}

// put stores conv unless another request got there first; stored reports
// whether conv is the one kept.
func (r *registry) put(conv *intelligence.Conversation) (kept *intelligence.Conversation, stored bool) {
	key := registryKey(conv.UserID, conv.SessionID)
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.entries[key]; ok && now.Sub(e.lastUsed) <= r.ttl {
		r.touchLocked(e, now)
		return e.conv, false
	}
	e := &registryEntry{conv: conv}
	r.touchLocked(e, now)
	r.entries[key] = e
	r.evictLocked(now)
	return conv, true
}

func (r *registry) touchLocked(e *registryEntry, now time.Time) {
	r.seq++
	e.lastUsed = now
	e.seq = r.seq
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *registry) evictLocked(now time.Time) {
	for key, e := range r.entries {
		if now.Sub(e.lastUsed) > r.ttl {
			delete(r.entries, key)
		}
	}
	if len(r.entries) <= r.max {
		return
	}

	keys := make([]string, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return r.entries[keys[i]].seq < r.entries[keys[j]].seq
	})
	for _, key := range keys[:len(keys)-r.max] {
		delete(r.entries, key)
	}
}
