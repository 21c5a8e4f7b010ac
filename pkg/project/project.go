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

// Package project discovers and tracks the set of routable projects.
//
// A Project is loaded once from disk and never mutated afterward except
// for its enabled flag, which the Router observes atomically.
package project

import (
	"context"
	"sync/atomic"
)

// Capability describes one thing a project can do, surfaced to the
// router's prompt composition so the model can choose between projects.
type Capability struct {
	Name        string
	Description string
	Tags        []string
}

// Executor runs a query end-to-end against a single project. The core
// never implements Executor itself — it is supplied by the surrounding
// system per project.
type Executor interface {
	Execute(ctx context.Context, query string) (string, error)
}

// Project is an immutable handle to a routable capability group, plus
// a runtime-mutable enabled flag.
type Project struct {
	Name         string
	Description  string
	Version      string
	Capabilities []Capability
	Executor     Executor

	enabled atomic.Bool
}

// New constructs a Project, enabled by default.
func New(name, description, version string, capabilities []Capability, executor Executor) *Project {
	p := &Project{
		Name:         name,
		Description:  description,
		Version:      version,
		Capabilities: capabilities,
		Executor:     executor,
	}
	p.enabled.Store(true)
	return p
}

// Enabled reports the project's current enabled state.
func (p *Project) Enabled() bool { return p.enabled.Load() }

// SetEnabled atomically changes the project's enabled state.
func (p *Project) SetEnabled(v bool) { p.enabled.Store(v) }
