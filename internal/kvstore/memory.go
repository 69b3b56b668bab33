package kvstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store implementation for tests and offline
// development, mirroring the subset of Redis semantics the rest of the
// module relies on (TTL expiry, atomic hash increment, cursor scan).
type MemoryStore struct {
	mu      sync.Mutex
	strs    map[string]memEntry
	hashes  map[string]map[string]string
	hashTTL map[string]time.Time
}

type memEntry struct {
	value   string
	expires time.Time // zero means no expiry
}

// NewMemoryStore returns a ready-to-use MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		strs:    make(map[string]memEntry),
		hashes:  make(map[string]map[string]string),
		hashTTL: make(map[string]time.Time),
	}
}

func expired(t time.Time) bool {
	return !t.IsZero() && time.Now().After(t)
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.strs[key]
	if !ok || expired(e.expires) {
		delete(s.strs, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.strs[key] = memEntry{value: value, expires: exp}
	return nil
}

func (s *MemoryStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.strs, key)
	delete(s.hashes, key)
	delete(s.hashTTL, key)
	return nil
}

func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Now().Add(ttl)
	if e, ok := s.strs[key]; ok {
		e.expires = exp
		s.strs[key] = e
	}
	if _, ok := s.hashes[key]; ok {
		s.hashTTL[key] = exp
	}
	return nil
}

func (s *MemoryStore) hashLocked(key string) map[string]string {
	if t, ok := s.hashTTL[key]; ok && expired(t) {
		delete(s.hashes, key)
		delete(s.hashTTL, key)
	}
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string)
		s.hashes[key] = h
	}
	return h
}

func (s *MemoryStore) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.hashLocked(key)
	var cur int64
	if v, ok := h[field]; ok {
		cur, _ = strconv.ParseInt(v, 10, 64)
	}
	cur += delta
	h[field] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (s *MemoryStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.hashLocked(key)
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) HDel(ctx context.Context, key string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.hashLocked(key)
	for _, f := range fields {
		delete(h, f)
	}
	return nil
}

func (s *MemoryStore) Scan(ctx context.Context, cursor uint64, pattern string, batchSize int64) ([]string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]string, 0, len(s.strs)+len(s.hashes))
	seen := make(map[string]struct{})
	for k, e := range s.strs {
		if expired(e.expires) {
			continue
		}
		if _, ok := seen[k]; !ok {
			all = append(all, k)
			seen[k] = struct{}{}
		}
	}
	for k, t := range s.hashTTL {
		if expired(t) {
			continue
		}
		if _, ok := seen[k]; !ok {
			all = append(all, k)
			seen[k] = struct{}{}
		}
	}
	for k := range s.hashes {
		if _, ok := s.hashTTL[k]; ok {
			continue
		}
		if _, ok := seen[k]; !ok {
			all = append(all, k)
			seen[k] = struct{}{}
		}
	}
	sort.Strings(all)

	matched := make([]string, 0, len(all))
	for _, k := range all {
		if matchPattern(pattern, k) {
			matched = append(matched, k)
		}
	}

	if batchSize <= 0 {
		batchSize = int64(len(matched))
	}
	start := int(cursor)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + int(batchSize)
	if end > len(matched) {
		end = len(matched)
	}
	next := uint64(0)
	if end < len(matched) {
		next = uint64(end)
	}
	return matched[start:end], next, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// matchPattern implements the small subset of glob syntax used by callers:
// "*" as a wildcard, matched against literal prefix/suffix/substring.
func matchPattern(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == key
	}
	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(key, parts[0]) {
		return false
	}
	rest := key[len(parts[0]):]
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		idx := strings.Index(rest, p)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(p):]
	}
	if last := parts[len(parts)-1]; last != "" {
		return strings.HasSuffix(key, last)
	}
	return true
}
