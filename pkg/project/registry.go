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

package project

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/projectrouter/core/pkg/registry"
	"gopkg.in/yaml.v3"
)

// skipDirs are subdirectories discover() never treats as a project.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"vendor":       true,
}

// manifest is the on-disk shape of a project's project.yaml. It does not
// carry an Executor — Discover builds one per project through the
// ExecutorFactory its caller passes in, since executor wiring is
// specific to the host application.
type manifest struct {
	Name         string             `yaml:"name"`
	Description  string             `yaml:"description"`
	Version      string             `yaml:"version"`
	Capabilities []manifestCapability `yaml:"capabilities"`
}

type manifestCapability struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

// Registry discovers projects from disk and exposes their immutable
// metadata plus a per-project enabled flag.
type Registry struct {
	base   *registry.BaseRegistry[*Project]
	logger *slog.Logger
}

// NewRegistry builds an empty Registry. Use Discover to populate it.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		base:   registry.NewBaseRegistry[*Project](),
		logger: logger,
	}
}

// ExecutorFactory builds the Executor for a discovered project, given
// its name and the directory it was discovered in.
type ExecutorFactory func(name, dir string) (Executor, error)

// Discover scans root for project subdirectories, each expected to
// contain a project.yaml. A subdirectory that is hidden or in the deny
// list is skipped silently; one whose manifest is missing, fails to
// parse, has no name, or whose executor cannot be built is logged and
// skipped. Discovery never aborts wholesale on a single bad project.
func (r *Registry) Discover(root string, executorFactory ExecutorFactory) ([]*Project, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read projects dir %s: %w", root, err)
	}

	var loaded []*Project
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || skipDirs[name] {
			continue
		}

		dir := filepath.Join(root, name)
		manifestPath := filepath.Join(dir, "project.yaml")

		raw, err := os.ReadFile(manifestPath)
		if err != nil {
			r.logger.Warn("skipping project directory: no project.yaml", "dir", dir, "error", err)
			continue
		}

		var m manifest
		if err := yaml.Unmarshal(raw, &m); err != nil {
			r.logger.Warn("skipping project directory: invalid project.yaml", "dir", dir, "error", err)
			continue
		}
		if m.Name == "" {
			r.logger.Warn("skipping project directory: manifest has no name", "dir", dir)
			continue
		}

		var executor Executor
		if executorFactory != nil {
			executor, err = executorFactory(m.Name, dir)
			if err != nil {
				r.logger.Warn("skipping project directory: executor construction failed", "dir", dir, "error", err)
				continue
			}
		}

		caps := make([]Capability, 0, len(m.Capabilities))
		for _, c := range m.Capabilities {
			caps = append(caps, Capability{Name: c.Name, Description: c.Description, Tags: c.Tags})
		}

		p := New(m.Name, m.Description, m.Version, caps, executor)
		if err := r.base.Register(m.Name, p); err != nil {
			r.logger.Warn("skipping project directory: duplicate project name", "dir", dir, "error", err)
			continue
		}
		loaded = append(loaded, p)
	}

	return loaded, nil
}

// Get returns the named project, if registered.
func (r *Registry) Get(name string) (*Project, bool) {
	return r.base.Get(name)
}

// List returns every registered project, enabled or not.
func (r *Registry) List() []*Project {
	return r.base.List()
}

// ListEnabled returns every currently enabled project, sorted by name
// for deterministic cache-key derivation.
func (r *Registry) ListEnabled() []*Project {
	all := r.base.List()
	enabled := make([]*Project, 0, len(all))
	for _, p := range all {
		if p.Enabled() {
			enabled = append(enabled, p)
		}
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i].Name < enabled[j].Name })
	return enabled
}

// EnabledNames returns the sorted names of currently enabled projects.
func (r *Registry) EnabledNames() []string {
	enabled := r.ListEnabled()
	names := make([]string, len(enabled))
	for i, p := range enabled {
		names[i] = p.Name
	}
	return names
}

// Enable atomically enables the named project.
func (r *Registry) Enable(name string) error {
	p, ok := r.base.Get(name)
	if !ok {
		return fmt.Errorf("project %q not found", name)
	}
	p.SetEnabled(true)
	return nil
}

// Disable atomically disables the named project.
func (r *Registry) Disable(name string) error {
	p, ok := r.base.Get(name)
	if !ok {
		return fmt.Errorf("project %q not found", name)
	}
	p.SetEnabled(false)
	return nil
}
