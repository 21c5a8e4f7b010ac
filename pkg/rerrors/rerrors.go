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

// Package rerrors defines the typed error kinds shared across the routing
// and orchestration core.
//
// Only ConfigError (at construction) and RoutingError (no enabled
// projects) are meant to reach a caller; every other kind is caught and
// degraded to a fallback inside the component where it occurs.
package rerrors

import (
	"errors"
	"fmt"
)

// Kind identifies which class of failure an Error represents.
type Kind string

const (
	KindConfig            Kind = "config"
	KindTransport         Kind = "transport"
	KindProvider          Kind = "provider"
	KindRouting           Kind = "routing"
	KindOrchestration     Kind = "orchestration"
	KindCacheInvalidation Kind = "cache_invalidation"
)

// Error is a typed error carrying a Kind, a component name, and an
// optional wrapped cause.
type Error struct {
	Kind      Kind
	Component string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Component, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, component, message string, err error) *Error {
	return &Error{Kind: kind, Component: component, Message: message, Err: err}
}

// Config reports a missing/invalid configuration, raised only at
// construction time.
func Config(component, message string, err error) *Error {
	return newErr(KindConfig, component, message, err)
}

// Transport reports an LLM HTTP/network failure.
func Transport(component, message string, err error) *Error {
	return newErr(KindTransport, component, message, err)
}

// Provider reports a malformed/non-2xx LLM response.
func Provider(component, message string, err error) *Error {
	return newErr(KindProvider, component, message, err)
}

// Routing reports that no project is enabled.
func Routing(component, message string) *Error {
	return newErr(KindRouting, component, message, nil)
}

// Orchestration reports an analysis parse failure when orchestration was
// explicitly requested.
func Orchestration(component, message string, err error) *Error {
	return newErr(KindOrchestration, component, message, err)
}

// CacheInvalidation reports that advanced invalidation was requested but
// is disabled by configuration.
func CacheInvalidation(component, message string) *Error {
	return newErr(KindCacheInvalidation, component, message, nil)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
