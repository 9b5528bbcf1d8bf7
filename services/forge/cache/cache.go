// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

// Package cache provides a content-hash-keyed, on-disk cache of LLM
// responses so identical skeleton-batch or worker-generation requests
// don't re-spend LLM budget across runs or retries. Adapted from the
// reference HotPathPrecomputer's wrap-a-backing-store-with-stat-counters
// shape, swapping the in-memory min-heap for a persistent badger store
// since an LLM response is worth surviving a process restart.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
)

// ResponseCache caches arbitrary JSON-serializable values keyed by a
// caller-supplied prompt fingerprint.
type ResponseCache struct {
	db *badger.DB

	hits   int64
	misses int64
	writes int64
}

// Open opens (creating if absent) a badger store rooted at dir. An empty
// dir means "no cache" — callers should check for this and skip
// construction entirely rather than calling Open("").
func Open(dir string) (*ResponseCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", dir, err)
	}
	return &ResponseCache{db: db}, nil
}

func (c *ResponseCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Key derives a stable cache key from arbitrary parts (provider, tier,
// system prompt, user prompt, ...), hashed so the on-disk key is short and
// never leaks the raw prompt into log output.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte{0}) // separator to avoid "ab"+"c" == "a"+"bc" collisions
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get looks up key and unmarshals the cached value into dst. The second
// return value is false on a cache miss (dst is left untouched).
func (c *ResponseCache) Get(key string, dst any) (bool, error) {
	if c == nil || c.db == nil {
		return false, nil
	}
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte(nil), val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		atomic.AddInt64(&c.misses, 1)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: get: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("cache: unmarshal cached value: %w", err)
	}
	atomic.AddInt64(&c.hits, 1)
	return true, nil
}

// Set stores value under key, overwriting any prior entry.
func (c *ResponseCache) Set(key string, value any) error {
	if c == nil || c.db == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal value: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	})
	if err != nil {
		return fmt.Errorf("cache: set: %w", err)
	}
	atomic.AddInt64(&c.writes, 1)
	return nil
}

// Stats reports cumulative hit/miss/write counts for diagnostics.
type Stats struct {
	Hits   int64
	Misses int64
	Writes int64
}

func (c *ResponseCache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
		Writes: atomic.LoadInt64(&c.writes),
	}
}
