package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type stubExecutor struct{}

func (stubExecutor) Execute(ctx context.Context, query string) (string, error) {
	return "ok: " + query, nil
}

func writeProjectManifest(t *testing.T, dir, name, yamlBody string) {
	t.Helper()
	projDir := filepath.Join(dir, name)
	if err := os.MkdirAll(projDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(projDir, "project.yaml"), []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscover_SkipsBadAndHiddenDirectories(t *testing.T) {
	root := t.TempDir()

	writeProjectManifest(t, root, "billing", `
name: billing
description: billing project
version: "1.0"
capabilities:
  - name: refund
    description: process refunds
`)
	writeProjectManifest(t, root, "broken", `not: [valid: yaml`)

	if err := os.Mkdir(filepath.Join(root, ".hidden"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry(nil)
	loaded, err := reg.Discover(root, func(name, dir string) (Executor, error) {
		return stubExecutor{}, nil
	})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("Discover() loaded %d projects, want 1", len(loaded))
	}
	if loaded[0].Name != "billing" {
		t.Errorf("Discover() loaded %q, want billing", loaded[0].Name)
	}
}

func TestRegistry_EnableDisable(t *testing.T) {
	root := t.TempDir()
	writeProjectManifest(t, root, "alpha", "name: alpha\ndescription: a\n")
	writeProjectManifest(t, root, "beta", "name: beta\ndescription: b\n")

	reg := NewRegistry(nil)
	if _, err := reg.Discover(root, nil); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if names := reg.EnabledNames(); len(names) != 2 {
		t.Fatalf("EnabledNames() = %v, want 2 entries", names)
	}

	if err := reg.Disable("alpha"); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	names := reg.EnabledNames()
	if len(names) != 1 || names[0] != "beta" {
		t.Errorf("EnabledNames() after disable = %v, want [beta]", names)
	}

	if err := reg.Enable("alpha"); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if len(reg.EnabledNames()) != 2 {
		t.Errorf("EnabledNames() after re-enable should have 2 entries")
	}
}

func TestRegistry_EnableUnknownProject(t *testing.T) {
	reg := NewRegistry(nil)
	if err := reg.Enable("ghost"); err == nil {
		t.Fatal("Enable() error = nil, want error for unknown project")
	}
}
