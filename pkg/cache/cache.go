// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache implements the routing decision cache: an LRU index
// with adaptive TTL, probabilistic early expiration, and event-driven
// invalidation.
package cache

import (
	"math"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/projectrouter/core/pkg/rerrors"
	"github.com/projectrouter/core/pkg/routing"
)

// Key identifies a cache slot, derived from the normalized query text
// and the sorted set of enabled project names in effect when the
// decision was made.
type Key struct {
	NormalizedQuery string
	ProjectSetKey   string
}

var collapseWhitespace = regexp.MustCompile(`\s+`)

// Normalize lowercases, collapses whitespace, and strips trailing
// punctuation so that queries differing only cosmetically share a key.
func Normalize(query string) string {
	s := strings.ToLower(strings.TrimSpace(query))
	s = collapseWhitespace.ReplaceAllString(s, " ")
	return strings.TrimRight(s, ".,!?;: ")
}

// NewKey builds a Key from a raw query and the enabled project set.
func NewKey(query string, enabledProjects []string) Key {
	sorted := append([]string(nil), enabledProjects...)
	sort.Strings(sorted)
	return Key{
		NormalizedQuery: Normalize(query),
		ProjectSetKey:   strings.Join(sorted, ","),
	}
}

// Entry is one cached routing decision plus the bookkeeping the
// invalidation strategies need.
type Entry struct {
	Decision     routing.Decision
	CreatedAt    time.Time
	LastAccess   time.Time
	AccessCount  int
	BaseTTL      time.Duration
	AdaptiveTTL  time.Duration
	Dependencies map[string]struct{}
	OriginalQuery string
}

func (e *Entry) expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.AdaptiveTTL
}

// Stats mirrors the cache's running counters plus their derived rates.
type Stats struct {
	TotalQueries int64
	Hits         int64
	Misses       int64
	Entries      int
	Evictions    int64
	HitRate      float64
	MissRate     float64
}

// Config controls the cache's size and timing behavior.
type Config struct {
	MaxEntries          int
	BaseTTL             time.Duration
	HotMultiplier       float64
	WarmMultiplier      float64
	ColdMultiplier      float64
	XFetchBeta          float64
	SimilarityThreshold float64

	// AdaptiveTTLEnabled toggles hot/warm/cold TTL scaling; when false,
	// every entry uses BaseTTL regardless of access count or age.
	AdaptiveTTLEnabled bool
	// ProbabilisticExpirationEnabled toggles the XFetch early-expiration
	// check; when false, an entry is only stale once its TTL elapses.
	ProbabilisticExpirationEnabled bool
	// EventDrivenInvalidationEnabled gates InvalidateProject,
	// InvalidateCapability, and InvalidatePattern: when false, each
	// returns a CacheInvalidationError instead of removing entries.
	EventDrivenInvalidationEnabled bool
}

const (
	hotAccessThreshold  = 10
	warmAccessThreshold = 3
)

// Cache is the routing decision cache.
type Cache struct {
	mu  sync.Mutex
	cfg Config
	lru *lru.Cache[Key, *Entry]

	// dependents indexes each dependency token (capability or project
	// name) to the set of cache keys that reference it, owned here so
	// invalidation never needs a separate manager with a back-reference
	// to the cache.
	dependents map[string]map[Key]struct{}

	totalQueries int64
	hits         int64
	misses       int64
	evictions    int64
}

// New builds a Cache. cfg's zero values are replaced with sane defaults.
func New(cfg Config) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.BaseTTL <= 0 {
		cfg.BaseTTL = 5 * time.Minute
	}
	if cfg.HotMultiplier <= 0 {
		cfg.HotMultiplier = 3.0
	}
	if cfg.WarmMultiplier <= 0 {
		cfg.WarmMultiplier = 1.0
	}
	if cfg.ColdMultiplier <= 0 {
		cfg.ColdMultiplier = 0.5
	}
	if cfg.XFetchBeta <= 0 {
		cfg.XFetchBeta = 1.0
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.85
	}

	c := &Cache{
		cfg:        cfg,
		dependents: make(map[string]map[Key]struct{}),
	}

	backing, _ := lru.NewWithEvict[Key, *Entry](cfg.MaxEntries, func(key Key, entry *Entry) {
		c.evictions++
		c.removeDependencies(key, entry)
	})
	c.lru = backing
	return c
}

// Get looks up query under the given enabled-project context. On an
// exact, unexpired hit it promotes the entry to MRU and returns it. On
// an exact miss it falls back to a fuzzy Jaccard-similarity match among
// other unexpired entries sharing the same project context.
func (c *Cache) Get(query string, enabledProjects []string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalQueries++
	now := time.Now()
	key := NewKey(query, enabledProjects)

	if entry, ok := c.lru.Get(key); ok {
		if entry.expired(now) {
			c.lru.Remove(key)
			c.removeDependencies(key, entry)
			c.misses++
			return nil, false
		}
		if c.isStaleEarly(entry, now) {
			c.misses++
			return nil, false
		}
		c.touch(entry, now)
		c.hits++
		return entry, true
	}

	if entry, ok := c.fuzzyMatch(key, query, now); ok {
		c.touch(entry, now)
		c.hits++
		return entry, true
	}

	c.misses++
	return nil, false
}

func (c *Cache) fuzzyMatch(key Key, query string, now time.Time) (*Entry, bool) {
	queryWords := wordSet(Normalize(query))

	var best *Entry
	var bestKey Key
	bestScore := 0.0

	for _, k := range c.lru.Keys() {
		if k.ProjectSetKey != key.ProjectSetKey {
			continue
		}
		entry, ok := c.lru.Peek(k)
		if !ok || entry.expired(now) {
			continue
		}
		score := jaccard(queryWords, wordSet(entry.OriginalQuery))
		if score < c.cfg.SimilarityThreshold {
			continue
		}
		if score > bestScore || (score == bestScore && best != nil && entry.LastAccess.After(best.LastAccess)) {
			best, bestKey, bestScore = entry, k, score
		}
	}

	if best == nil {
		return nil, false
	}
	c.lru.Get(bestKey)
	return best, true
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// isStaleEarly implements the XFetch probabilistic early-expiration
// check: −β·ln(U)·(expiry−now) < (now−last_access).
func (c *Cache) isStaleEarly(e *Entry, now time.Time) bool {
	if !c.cfg.ProbabilisticExpirationEnabled {
		return false
	}
	expiry := e.CreatedAt.Add(e.AdaptiveTTL)
	remaining := expiry.Sub(now)
	if remaining <= 0 {
		return true
	}
	u := rand.Float64()
	if u <= 0 {
		u = 1e-9
	}
	threshold := -c.cfg.XFetchBeta * math.Log(u) * remaining.Seconds()
	sinceAccess := now.Sub(e.LastAccess).Seconds()
	return threshold < sinceAccess
}

func (c *Cache) touch(e *Entry, now time.Time) {
	e.AccessCount++
	e.LastAccess = now
	e.AdaptiveTTL = c.adaptiveTTL(e, now)
}

func (c *Cache) adaptiveTTL(e *Entry, now time.Time) time.Duration {
	base := e.BaseTTL
	if !c.cfg.AdaptiveTTLEnabled {
		return base
	}
	switch {
	case e.AccessCount >= hotAccessThreshold:
		return time.Duration(float64(base) * c.cfg.HotMultiplier)
	case e.AccessCount >= warmAccessThreshold:
		return time.Duration(float64(base) * c.cfg.WarmMultiplier)
	case now.Sub(e.CreatedAt) > base/10:
		return time.Duration(float64(base) * c.cfg.ColdMultiplier)
	default:
		return base
	}
}

// Put inserts or replaces the cached decision for query under
// enabledProjects, registering dependencies for later invalidation.
func (c *Cache) Put(query string, enabledProjects []string, decision routing.Decision, dependencies []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := NewKey(query, enabledProjects)
	now := time.Now()

	deps := make(map[string]struct{}, len(dependencies))
	for _, d := range dependencies {
		deps[d] = struct{}{}
	}

	entry := &Entry{
		Decision:      decision,
		CreatedAt:     now,
		LastAccess:    now,
		AccessCount:   0,
		BaseTTL:       c.cfg.BaseTTL,
		AdaptiveTTL:   c.cfg.BaseTTL,
		Dependencies:  deps,
		OriginalQuery: Normalize(query),
	}

	c.lru.Add(key, entry)
	c.registerDependencies(key, entry)
}

func (c *Cache) registerDependencies(key Key, entry *Entry) {
	for dep := range entry.Dependencies {
		set, ok := c.dependents[dep]
		if !ok {
			set = make(map[Key]struct{})
			c.dependents[dep] = set
		}
		set[key] = struct{}{}
	}
}

func (c *Cache) removeDependencies(key Key, entry *Entry) {
	for dep := range entry.Dependencies {
		if set, ok := c.dependents[dep]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(c.dependents, dep)
			}
		}
	}
}

// InvalidateProject removes every entry whose dependency set includes
// project, returning the removed keys. It returns a
// CacheInvalidationError, removing nothing, when event-driven
// invalidation is disabled by configuration.
func (c *Cache) InvalidateProject(project string) ([]Key, error) {
	if !c.cfg.EventDrivenInvalidationEnabled {
		return nil, rerrors.CacheInvalidation("cache", "event-driven invalidation requested but disabled")
	}
	return c.invalidateDependency(project), nil
}

// InvalidateCapability removes every entry whose dependency set
// includes capability, returning the removed keys. It returns a
// CacheInvalidationError, removing nothing, when event-driven
// invalidation is disabled by configuration.
func (c *Cache) InvalidateCapability(capability string) ([]Key, error) {
	if !c.cfg.EventDrivenInvalidationEnabled {
		return nil, rerrors.CacheInvalidation("cache", "event-driven invalidation requested but disabled")
	}
	return c.invalidateDependency(capability), nil
}

func (c *Cache) invalidateDependency(token string) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, ok := c.dependents[token]
	if !ok {
		return nil
	}
	removed := make([]Key, 0, len(set))
	for key := range set {
		if entry, ok := c.lru.Peek(key); ok {
			c.lru.Remove(key)
			c.removeDependencies(key, entry)
			removed = append(removed, key)
		}
	}
	return removed
}

// InvalidatePattern removes every entry whose normalized query starts
// with prefix, returning the removed keys. It returns a
// CacheInvalidationError, removing nothing, when event-driven
// invalidation is disabled by configuration.
func (c *Cache) InvalidatePattern(prefix string) ([]Key, error) {
	if !c.cfg.EventDrivenInvalidationEnabled {
		return nil, rerrors.CacheInvalidation("cache", "event-driven invalidation requested but disabled")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []Key
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key.NormalizedQuery, prefix) {
			if entry, ok := c.lru.Peek(key); ok {
				c.lru.Remove(key)
				c.removeDependencies(key, entry)
				removed = append(removed, key)
			}
		}
	}
	return removed, nil
}

// Stats reports the cache's running counters and derived rates.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		TotalQueries: c.totalQueries,
		Hits:         c.hits,
		Misses:       c.misses,
		Entries:      c.lru.Len(),
		Evictions:    c.evictions,
	}
	if s.TotalQueries > 0 {
		s.HitRate = float64(s.Hits) / float64(s.TotalQueries)
		s.MissRate = float64(s.Misses) / float64(s.TotalQueries)
	}
	return s
}
