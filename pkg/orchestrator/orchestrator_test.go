package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/projectrouter/core/pkg/analytics"
	"github.com/projectrouter/core/pkg/project"
	"github.com/projectrouter/core/pkg/rerrors"
)

type stubProvider struct {
	responses []string
	calls     int
	err       error
}

func (s *stubProvider) Call(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		return "", nil
	}
	return s.responses[idx], nil
}

func (s *stubProvider) ModelName() string { return "stub" }

type stubExecutor struct {
	result string
	err    error
}

func (e *stubExecutor) Execute(ctx context.Context, query string) (string, error) {
	return e.result, e.err
}

func TestAnalyze_ParsesMultiProjectPlan(t *testing.T) {
	provider := &stubProvider{responses: []string{
		"MULTI_PROJECT: yes\nbilling: what is my balance\nsupport: reset my password",
	}}
	projects := []ProjectDescriptor{{Name: "billing"}, {Name: "support"}}

	plan, err := analyze(context.Background(), provider, "q", projects)
	if err != nil {
		t.Fatalf("analyze() error = %v, want nil", err)
	}
	if !plan.IsMultiProject {
		t.Fatal("expected IsMultiProject=true")
	}
	if len(plan.SubQueries) != 2 {
		t.Fatalf("len(SubQueries) = %d, want 2", len(plan.SubQueries))
	}
}

func TestAnalyze_DiscardsUnknownProject(t *testing.T) {
	provider := &stubProvider{responses: []string{
		"MULTI_PROJECT: yes\nbilling: balance\nghost: unknown project line",
	}}
	projects := []ProjectDescriptor{{Name: "billing"}}

	plan, err := analyze(context.Background(), provider, "q", projects)
	if err != nil {
		t.Fatalf("analyze() error = %v, want nil", err)
	}
	if plan.IsMultiProject {
		t.Error("expected IsMultiProject=false when only one valid sub-query remains")
	}
	if len(plan.SubQueries) != 1 {
		t.Fatalf("len(SubQueries) = %d, want 1 (ghost line discarded)", len(plan.SubQueries))
	}
}

func TestAnalyze_TransportFailureYieldsSingleProjectPlanAndError(t *testing.T) {
	provider := &stubProvider{err: errors.New("boom")}
	plan, err := analyze(context.Background(), provider, "q", []ProjectDescriptor{{Name: "billing"}})
	if plan.IsMultiProject {
		t.Error("expected IsMultiProject=false on transport failure")
	}
	if err == nil {
		t.Fatal("expected an OrchestrationError on transport failure")
	}
	if !rerrors.Is(err, rerrors.KindOrchestration) {
		t.Errorf("error kind = %v, want orchestration", err)
	}
}

func TestAnalyze_DeclaredMultiProjectWithNoParsedSubQueryYieldsError(t *testing.T) {
	provider := &stubProvider{responses: []string{"MULTI_PROJECT: yes\nnot a valid line at all"}}
	plan, err := analyze(context.Background(), provider, "q", []ProjectDescriptor{{Name: "billing"}})
	if plan.IsMultiProject {
		t.Error("expected IsMultiProject=false when no sub-query could be parsed")
	}
	if err == nil {
		t.Fatal("expected an OrchestrationError when MULTI_PROJECT: yes yields no sub-query")
	}
	if !rerrors.Is(err, rerrors.KindOrchestration) {
		t.Errorf("error kind = %v, want orchestration", err)
	}
}

func TestDetectDependencies_BackwardEdgeOnSharedWords(t *testing.T) {
	subs := []SubQuery{
		{Index: 0, Text: "find the invoice for march"},
		{Index: 1, Text: "email the invoice march to customer"},
	}
	detectDependencies(subs)
	if len(subs[1].DependsOn) != 1 || subs[1].DependsOn[0] != 0 {
		t.Errorf("DependsOn = %v, want [0]", subs[1].DependsOn)
	}
	if len(subs[0].DependsOn) != 0 {
		t.Error("earlier sub-query must never depend on a later one")
	}
}

func TestBuildStages_LayersByDependency(t *testing.T) {
	subs := []SubQuery{
		{Index: 0},
		{Index: 1, DependsOn: []int{0}},
		{Index: 2},
	}
	stages, warnings := buildStages(subs)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(stages) != 2 {
		t.Fatalf("len(stages) = %d, want 2", len(stages))
	}
}

func TestRunStages_FailedSubQueryDoesNotBlockOthers(t *testing.T) {
	plan := Plan{SubQueries: []SubQuery{
		{Index: 0, ProjectName: "billing", Text: "q1", State: StatePending},
		{Index: 1, ProjectName: "support", Text: "q2", State: StatePending},
	}}

	resolver := func(name string) (project.Executor, bool) {
		if name == "billing" {
			return &stubExecutor{err: errors.New("down")}, true
		}
		return &stubExecutor{result: "ok"}, true
	}

	runStages(context.Background(), &plan, resolver, 2)

	if plan.SubQueries[0].State != StateFailed {
		t.Errorf("sub-query 0 state = %s, want failed", plan.SubQueries[0].State)
	}
	if plan.SubQueries[1].State != StateCompleted {
		t.Errorf("sub-query 1 state = %s, want completed", plan.SubQueries[1].State)
	}
}

func TestSynthesize_FallsBackOnLLMFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("down")}
	subs := []SubQuery{{ProjectName: "billing", Result: "42", State: StateCompleted}}

	answer, fellBack := synthesize(context.Background(), provider, "q", subs)
	if !fellBack {
		t.Error("expected fellBack=true")
	}
	if !strings.Contains(answer, "**billing**: 42") {
		t.Errorf("fallback answer = %q, want it to contain project result", answer)
	}
}

func TestOrchestrator_RunEndToEnd(t *testing.T) {
	provider := &stubProvider{responses: []string{
		"MULTI_PROJECT: yes\nbilling: what is my balance\nsupport: reset my password",
		"Combined: your balance is 42 and your password was reset.",
	}}
	an := analytics.New("", 10)
	o := New(Config{MaxParallel: 2}, provider, an, nil)

	projects := []ProjectDescriptor{{Name: "billing"}, {Name: "support"}}
	plan, err := o.Analyze(context.Background(), "multi question", projects)
	if err != nil {
		t.Fatalf("Analyze() error = %v, want nil", err)
	}
	if !plan.IsMultiProject {
		t.Fatal("expected multi-project plan")
	}

	resolver := func(name string) (project.Executor, bool) {
		return &stubExecutor{result: name + "-result"}, true
	}
	result := o.Run(context.Background(), "multi question", plan, resolver)

	if !result.Success {
		t.Error("expected Success=true")
	}
	if len(result.IndividualResults) != 2 {
		t.Fatalf("len(IndividualResults) = %d, want 2", len(result.IndividualResults))
	}
	for _, sq := range result.IndividualResults {
		if sq.State != StateCompleted {
			t.Errorf("sub-query %d state = %s, want completed", sq.Index, sq.State)
		}
	}

	summary := an.Summary(time.Time{}, time.Time{})
	if summary.TotalQueries != 3 {
		t.Errorf("TotalQueries = %d, want 3 (2 sub-queries + 1 top-level)", summary.TotalQueries)
	}
}
