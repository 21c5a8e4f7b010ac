package router

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectrouter/core/pkg/analytics"
	"github.com/projectrouter/core/pkg/cache"
	"github.com/projectrouter/core/pkg/feedback"
	"github.com/projectrouter/core/pkg/project"
	"github.com/projectrouter/core/pkg/routing"
)

type stubExecutor struct{}

func (stubExecutor) Execute(ctx context.Context, query string) (string, error) { return "ok", nil }

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Call(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubLLM) ModelName() string { return "stub" }

// discoverRegistry writes a project.yaml per name into a fresh temp
// directory and discovers it, the same way production code populates
// a Registry before handing it to a Router.
func discoverRegistry(t *testing.T, names ...string) *project.Registry {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		body := "name: " + name + "\ndescription: desc for " + name + "\n"
		if err := os.WriteFile(filepath.Join(dir, "project.yaml"), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	reg := project.NewRegistry(nil)
	if _, err := reg.Discover(root, func(name, dir string) (project.Executor, error) {
		return stubExecutor{}, nil
	}); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	return reg
}

func TestRouter_NoProjectEnabledReturnsRoutingError(t *testing.T) {
	reg := project.NewRegistry(nil)
	r := New(reg, nil, nil, nil, nil, nil, nil)

	_, err := r.Route(context.Background(), routing.Query{Text: "hi"})
	require.Error(t, err, "expected RoutingError when no project is enabled")
}

func TestRouter_ManualModeBypassesEverything(t *testing.T) {
	reg := discoverRegistry(t, "billing")
	an := analytics.New("", 10)
	r := New(reg, nil, nil, nil, an, nil, nil)
	r.SetManual("billing")

	decision, err := r.Route(context.Background(), routing.Query{Text: "anything"})
	require.NoError(t, err)
	assert.Equal(t, "billing", decision.ProjectName)
	assert.Equal(t, 1.0, decision.Confidence)
	assert.Equal(t, "manual selection", decision.Reasoning)

	summary := an.Summary(time.Time{}, time.Time{})
	assert.Equal(t, 1, summary.ManualCount, "manual selection must be recorded in analytics")
}

func TestRouter_SingleEnabledProjectShortcut(t *testing.T) {
	reg := discoverRegistry(t, "billing")
	r := New(reg, nil, nil, nil, nil, nil, nil)

	decision, err := r.Route(context.Background(), routing.Query{Text: "q"})
	require.NoError(t, err)
	assert.Equal(t, "billing", decision.ProjectName)
	assert.Equal(t, "only one available", decision.Reasoning)
}

func TestRouter_CacheHitMarksFromCacheWithSuffix(t *testing.T) {
	reg := discoverRegistry(t, "billing", "support")

	c := cache.New(cache.Config{})
	c.Put("q", []string{"billing", "support"}, routing.Decision{ProjectName: "billing", Confidence: 0.9, Reasoning: "cached"}, []string{"billing"})

	r := New(reg, c, nil, nil, nil, nil, nil)
	decision, err := r.Route(context.Background(), routing.Query{Text: "q"})
	require.NoError(t, err)
	assert.True(t, decision.FromCache)
	assert.True(t, strings.HasSuffix(decision.Reasoning, "(from cache)"), "reasoning = %q", decision.Reasoning)
}

func TestRouter_LLMSelectionParsedAndCached(t *testing.T) {
	reg := discoverRegistry(t, "billing", "support")

	llm := &stubLLM{response: "PROJECT: support\nCONFIDENCE: 0.8\nREASONING: password reset\nALTERNATIVES: none"}
	c := cache.New(cache.Config{})
	r := New(reg, c, nil, nil, nil, llm, nil)

	decision, err := r.Route(context.Background(), routing.Query{Text: "reset my password"})
	require.NoError(t, err)
	assert.Equal(t, "support", decision.ProjectName)
	assert.Equal(t, 0.8, decision.Confidence)

	_, ok := c.Get("reset my password", []string{"billing", "support"})
	assert.True(t, ok, "expected decision to be cached after LLM routing")
}

func TestRouter_InvalidSelectionFallsBack(t *testing.T) {
	reg := discoverRegistry(t, "billing", "support")

	llm := &stubLLM{response: "PROJECT: nonexistent\nCONFIDENCE: 0.9\nREASONING: x\nALTERNATIVES: none"}
	r := New(reg, nil, nil, nil, nil, llm, nil)

	decision, err := r.Route(context.Background(), routing.Query{Text: "q"})
	require.NoError(t, err)
	assert.Equal(t, 0.3, decision.Confidence)
	assert.Contains(t, decision.Reasoning, "fallback")
}

func TestRouter_TransportFailureDegradesToFallback(t *testing.T) {
	reg := discoverRegistry(t, "billing", "support")

	llm := &stubLLM{err: errors.New("connection refused")}
	an := analytics.New("", 10)
	r := New(reg, nil, nil, nil, an, llm, nil)

	decision, err := r.Route(context.Background(), routing.Query{Text: "q"})
	require.NoError(t, err, "router must never raise on transport failure when a project is enabled")
	assert.Equal(t, 0.5, decision.Confidence)
	assert.Contains(t, decision.Reasoning, "connection refused")

	summary := an.Summary(time.Time{}, time.Time{})
	assert.Equal(t, 1, summary.Failures, "degraded fallback should be recorded as a failure")
}

func TestRouter_FeedbackAdjustmentAppliedBeforeContextBoost(t *testing.T) {
	reg := discoverRegistry(t, "billing", "support")

	fb := feedback.New("", 1, 10)
	fb.Record("what is my balance", "support", 0.6, feedback.VerdictIncorrect, "billing", "")

	llm := &stubLLM{response: "PROJECT: support\nCONFIDENCE: 0.6\nREASONING: initial guess\nALTERNATIVES: none"}
	r := New(reg, nil, nil, fb, nil, llm, nil)

	decision, err := r.Route(context.Background(), routing.Query{Text: "what is my balance"})
	require.NoError(t, err)
	assert.Equal(t, "billing", decision.ProjectName, "learned correction should be applied")
	assert.Contains(t, decision.Reasoning, "Original:")
}
