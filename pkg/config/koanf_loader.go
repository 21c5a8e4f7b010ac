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

package config

import (
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// Path is the YAML config file to load.
	Path string

	// Watch enables fsnotify-based hot reload of Path. Off by default.
	// It is the only switch Load consults; routing.config.watch in the
	// loaded document does not turn watching on or off.
	Watch bool

	// OnChange is invoked with the freshly reloaded config after a
	// watched file changes. Only consulted when Watch is true.
	OnChange func(*Config) error

	// Logger receives watcher diagnostics. Defaults to a discarding
	// logger if nil.
	Logger *slog.Logger
}

// Loader loads and, optionally, watches a YAML configuration file.
type Loader struct {
	koanf    *koanf.Koanf
	options  LoaderOptions
	parser   *yaml.YAML
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	logger   *slog.Logger
}

// NewLoader builds a Loader for the given options.
func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		koanf:    koanf.New("."),
		options:  opts,
		parser:   yaml.Parser(),
		stopChan: make(chan struct{}),
		logger:   logger,
	}, nil
}

// Load reads the config file, expands environment variables, applies
// defaults, and validates the result. If Watch is set, it also starts a
// background fsnotify watcher that repeats this pipeline on every
// write event and reports the result via OnChange.
func (l *Loader) Load() (*Config, error) {
	if err := l.koanf.Load(file.Provider(l.options.Path), l.parser); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", l.options.Path, err)
	}

	if err := l.expandEnvVarsInKoanf(); err != nil {
		return nil, fmt.Errorf("expand environment variables: %w", err)
	}

	cfg, err := l.unmarshalAndProcess()
	if err != nil {
		return nil, err
	}

	if l.options.Watch {
		if err := l.startWatch(); err != nil {
			return nil, fmt.Errorf("start config watcher: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) unmarshalAndProcess() (*Config, error) {
	cfg := &Config{}
	if err := l.koanf.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (l *Loader) expandEnvVarsInKoanf() error {
	rawMap := l.koanf.Raw()

	expandedMap := ExpandEnvVarsInData(rawMap)
	expandedMapData, ok := expandedMap.(map[string]interface{})
	if !ok {
		return fmt.Errorf("unexpected type after env var expansion")
	}

	newKoanf := koanf.New(".")
	if err := newKoanf.Load(confmap.Provider(expandedMapData, "."), nil); err != nil {
		return fmt.Errorf("load expanded config: %w", err)
	}
	l.koanf = newKoanf
	return nil
}

func (l *Loader) startWatch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(l.options.Path); err != nil {
		watcher.Close()
		return err
	}
	l.watcher = watcher

	go func() {
		for {
			select {
			case <-l.stopChan:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				l.reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("config watcher error", "error", err)
			}
		}
	}()

	return nil
}

func (l *Loader) reload() {
	fresh := koanf.New(".")
	if err := fresh.Load(file.Provider(l.options.Path), l.parser); err != nil {
		l.logger.Warn("reload config failed", "error", err)
		return
	}
	l.koanf = fresh

	if err := l.expandEnvVarsInKoanf(); err != nil {
		l.logger.Warn("reload env expansion failed", "error", err)
		return
	}

	cfg, err := l.unmarshalAndProcess()
	if err != nil {
		l.logger.Warn("reloaded config invalid", "error", err)
		return
	}

	if l.options.OnChange != nil {
		if err := l.options.OnChange(cfg); err != nil {
			l.logger.Warn("config change callback failed", "error", err)
			return
		}
	}
	l.logger.Info("configuration reloaded", "path", l.options.Path)
}

// Stop halts the background watcher, if any. Safe to call even when
// Watch was never enabled.
func (l *Loader) Stop() {
	select {
	case <-l.stopChan:
		return
	default:
		close(l.stopChan)
	}
	if l.watcher != nil {
		l.watcher.Close()
	}
}

// SetOnChange replaces the reload callback.
func (l *Loader) SetOnChange(callback func(*Config) error) {
	l.options.OnChange = callback
}

// LoadConfig is a convenience wrapper that loads a config file once
// without watching.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := LoadConfigWithLoader(LoaderOptions{Path: path})
	return cfg, err
}

// LoadConfigWithLoader loads a config file and returns the Loader that
// produced it, for callers that want to enable watching afterward.
func LoadConfigWithLoader(opts LoaderOptions) (*Config, *Loader, error) {
	loader, err := NewLoader(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("create loader: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, loader, nil
}
