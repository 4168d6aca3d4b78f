package llm

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"
)

// Cache stores generation responses keyed by request fingerprint. Kept
// as an interface so the in-process map can be swapped for a shared
// store without touching the orchestrator.
type Cache interface {
	Get(key string) (*Response, bool)
	Set(key string, resp *Response)
	EvictExpired()
}

type cacheEntry struct {
	resp     Response
	storedAt time.Time
}

// ResponseCache is a TTL-bounded in-process cache. Get and Set are
// individually safe for concurrent use; two concurrent misses may both
// reach the provider, which is tolerated rather than locked against.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewResponseCache builds a cache whose entries expire after ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the cached response if the entry has not
// reached its TTL. An entry at or past TTL is a miss and is dropped.
func (c *ResponseCache) Get(key string) (*Response, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}

	resp := entry.resp
	resp.Cached = true
	return &resp, true
}

// Set stores a response under key, stamping it with the current time.
func (c *ResponseCache) Set(key string, resp *Response) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{resp: *resp, storedAt: c.now()}
	c.mu.Unlock()
}

// EvictExpired drops every entry past its TTL.
func (c *ResponseCache) EvictExpired() {
	now := c.now()
	c.mu.Lock()
	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) >= c.ttl {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// Len reports the number of entries currently held, expired or not.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Fingerprint computes the deterministic cache key for a request:
// a SHA-256 digest over the conversation and every generation option.
// Identical logical requests collide across process runs; distinct
// conversations do not.
func Fingerprint(messages []Message, opts Options) string {
	h := sha256.New()

	for _, m := range messages {
		writeLenPrefixed(h, m.Role)
		writeLenPrefixed(h, m.Content)
	}
	writeLenPrefixed(h, opts.Model)

	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], uint32(opts.Temperature*1e6))
	binary.BigEndian.PutUint32(buf[4:], uint32(opts.MaxTokens))
	h.Write(buf[:])

	return hex.EncodeToString(h.Sum(nil))
}

// writeLenPrefixed writes a length header before each field so that
// adjacent fields can never be confused for one another.
func writeLenPrefixed(h interface{ Write([]byte) (int, error) }, s string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	_, _ = h.Write(n[:])
	_, _ = h.Write([]byte(s))
}
