package cache

import (
	"testing"
	"time"

	"github.com/projectrouter/core/pkg/rerrors"
	"github.com/projectrouter/core/pkg/routing"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Refund my Order!! ": "refund my order",
		"What's my balance?":   "what's my balance",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCache_PutGetExactHit(t *testing.T) {
	c := New(Config{BaseTTL: time.Minute})
	decision := routing.Decision{ProjectName: "billing", Confidence: 0.9}

	c.Put("refund my order", []string{"billing", "support"}, decision, []string{"billing"})

	entry, ok := c.Get("refund my order", []string{"billing", "support"})
	if !ok {
		t.Fatal("Get() miss, want hit")
	}
	if entry.Decision.ProjectName != "billing" {
		t.Errorf("Get() decision = %+v, want billing", entry.Decision)
	}
	if entry.AccessCount != 1 {
		t.Errorf("AccessCount = %d, want 1", entry.AccessCount)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 0 {
		t.Errorf("Stats() = %+v, want 1 hit 0 miss", stats)
	}
}

func TestCache_ExpiredEntryIsMiss(t *testing.T) {
	c := New(Config{BaseTTL: time.Millisecond})
	c.Put("refund", []string{"billing"}, routing.Decision{ProjectName: "billing"}, nil)

	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("refund", []string{"billing"}); ok {
		t.Fatal("Get() hit for expired entry, want miss")
	}
}

func TestCache_FuzzyMatchBySimilarity(t *testing.T) {
	c := New(Config{BaseTTL: time.Minute, SimilarityThreshold: 0.5})
	c.Put("refund my recent order", []string{"billing"}, routing.Decision{ProjectName: "billing"}, nil)

	entry, ok := c.Get("refund my order please", []string{"billing"})
	if !ok {
		t.Fatal("Get() miss, want fuzzy hit")
	}
	if entry.Decision.ProjectName != "billing" {
		t.Errorf("fuzzy Get() decision = %+v, want billing", entry.Decision)
	}
}

func TestCache_InvalidateProjectRemovesDependents(t *testing.T) {
	c := New(Config{BaseTTL: time.Minute, EventDrivenInvalidationEnabled: true})
	c.Put("refund", []string{"billing"}, routing.Decision{ProjectName: "billing"}, []string{"billing", "refund-capability"})
	c.Put("unrelated", []string{"billing"}, routing.Decision{ProjectName: "billing"}, []string{"other"})

	removed, err := c.InvalidateProject("billing")
	if err != nil {
		t.Fatalf("InvalidateProject() error = %v, want nil", err)
	}
	if len(removed) != 1 {
		t.Fatalf("InvalidateProject() removed %d keys, want 1", len(removed))
	}

	if _, ok := c.Get("refund", []string{"billing"}); ok {
		t.Error("Get() hit for invalidated entry")
	}
	if _, ok := c.Get("unrelated", []string{"billing"}); !ok {
		t.Error("Get() miss for unrelated entry that should remain cached")
	}
}

func TestCache_InvalidateProjectDisabledReturnsError(t *testing.T) {
	c := New(Config{BaseTTL: time.Minute})
	c.Put("refund", []string{"billing"}, routing.Decision{ProjectName: "billing"}, []string{"billing"})

	removed, err := c.InvalidateProject("billing")
	if err == nil {
		t.Fatal("InvalidateProject() error = nil, want CacheInvalidationError when disabled")
	}
	if !rerrors.Is(err, rerrors.KindCacheInvalidation) {
		t.Errorf("InvalidateProject() error kind = %v, want cache_invalidation", err)
	}
	if removed != nil {
		t.Errorf("InvalidateProject() removed = %v, want nil", removed)
	}
	if _, ok := c.Get("refund", []string{"billing"}); !ok {
		t.Error("Get() miss for entry that should remain cached when invalidation is disabled")
	}
}

func TestCache_AdaptiveTTLDisabledKeepsBaseTTL(t *testing.T) {
	c := New(Config{BaseTTL: time.Minute, HotMultiplier: 10})
	c.Put("refund", []string{"billing"}, routing.Decision{ProjectName: "billing"}, nil)

	for i := 0; i < hotAccessThreshold; i++ {
		c.Get("refund", []string{"billing"})
	}
	entry, ok := c.lru.Peek(NewKey("refund", []string{"billing"}))
	if !ok {
		t.Fatal("entry missing after repeated Get()")
	}
	if entry.AdaptiveTTL != time.Minute {
		t.Errorf("AdaptiveTTL = %v, want unchanged BaseTTL of %v with adaptive TTL disabled", entry.AdaptiveTTL, time.Minute)
	}
}

func TestCache_EvictionAtCapacity(t *testing.T) {
	c := New(Config{BaseTTL: time.Minute, MaxEntries: 1})
	c.Put("first query", []string{"billing"}, routing.Decision{ProjectName: "billing"}, nil)
	c.Put("second query", []string{"billing"}, routing.Decision{ProjectName: "billing"}, nil)

	stats := c.Stats()
	if stats.Entries != 1 {
		t.Errorf("Stats().Entries = %d, want 1", stats.Entries)
	}
	if stats.Evictions != 1 {
		t.Errorf("Stats().Evictions = %d, want 1", stats.Evictions)
	}
}
