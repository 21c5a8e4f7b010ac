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

import "fmt"

// Config is the root configuration document for the routing and
// orchestration core, loaded from a single YAML file.
type Config struct {
	Logger  LoggerConfig  `yaml:"logger,omitempty"`
	Routing RoutingConfig `yaml:"routing,omitempty"`
	Models  ModelsConfig  `yaml:"models,omitempty"`
	API     APIConfig     `yaml:"api,omitempty"`
}

// RoutingConfig groups every tunable of the routing and orchestration
// pipeline.
type RoutingConfig struct {
	ProjectsDir         string                    `yaml:"projects_dir,omitempty"`
	Cache               CacheConfig               `yaml:"cache,omitempty"`
	AdvancedInvalidation AdvancedInvalidationConfig `yaml:"advanced_invalidation,omitempty"`
	SemanticAnalysis    SemanticAnalysisConfig    `yaml:"semantic_analysis,omitempty"`
	Feedback            FeedbackConfig            `yaml:"feedback,omitempty"`
	Orchestration       OrchestrationConfig       `yaml:"orchestration,omitempty"`
	Analytics           AnalyticsConfig           `yaml:"analytics,omitempty"`
	Config              ConfigWatchConfig         `yaml:"config,omitempty"`
	RequestTimeoutSeconds int                     `yaml:"request_timeout_seconds,omitempty"`
}

// CacheConfig controls the routing decision cache.
type CacheConfig struct {
	Enabled              bool    `yaml:"enabled,omitempty"`
	MaxEntries           int     `yaml:"max_entries,omitempty"`
	BaseTTLSeconds       int     `yaml:"base_ttl_seconds,omitempty"`
	HotMultiplier        float64 `yaml:"hot_multiplier,omitempty"`
	WarmMultiplier       float64 `yaml:"warm_multiplier,omitempty"`
	ColdMultiplier       float64 `yaml:"cold_multiplier,omitempty"`
	XFetchBeta           float64 `yaml:"xfetch_beta,omitempty"`
	SimilarityThreshold  float64 `yaml:"similarity_threshold,omitempty"`
}

// AdvancedInvalidationConfig toggles each advanced cache-invalidation
// strategy independently. Enabled is the master switch: when false, no
// sub-strategy runs regardless of its own flag.
type AdvancedInvalidationConfig struct {
	Enabled                 bool `yaml:"enabled,omitempty"`
	AdaptiveTTL             bool `yaml:"adaptive_ttl,omitempty"`
	ProbabilisticExpiration bool `yaml:"probabilistic_expiration,omitempty"`
	EventDriven             bool `yaml:"event_driven,omitempty"`
}

// SemanticAnalysisConfig controls conversation-context clustering.
type SemanticAnalysisConfig struct {
	Enabled                  bool    `yaml:"enabled,omitempty"`
	EmbedderBaseURL          string  `yaml:"embedder_base_url,omitempty"`
	EmbedderModel            string  `yaml:"embedder_model,omitempty"`
	MaxClusters              int     `yaml:"max_clusters,omitempty"`
	CentroidAlpha            float64 `yaml:"centroid_alpha,omitempty"`
	TopicSimilarityThreshold float64 `yaml:"topic_similarity_threshold,omitempty"`
	SimilarityThreshold      float64 `yaml:"similarity_threshold,omitempty"`
	MaxContextHistory        int     `yaml:"max_context_history,omitempty"`
}

// FeedbackConfig controls learned-pattern feedback.
type FeedbackConfig struct {
	Enabled          bool    `yaml:"enabled,omitempty"`
	StorePath        string  `yaml:"store_path,omitempty"`
	LearningThreshold float64 `yaml:"learning_threshold,omitempty"`
}

// OrchestrationConfig controls multi-project decomposition.
type OrchestrationConfig struct {
	Enabled     bool `yaml:"enabled,omitempty"`
	MaxParallel int  `yaml:"max_parallel,omitempty"`
}

// AnalyticsConfig controls routing-decision history and aggregation.
type AnalyticsConfig struct {
	Enabled    bool   `yaml:"enabled,omitempty"`
	MaxHistory int    `yaml:"max_history,omitempty"`
	StorePath  string `yaml:"store_path,omitempty"`
}

// ConfigWatchConfig holds routing.config.watch as parsed from the file.
// Neither Loader nor routerd reads it; hot reload is started only by
// LoaderOptions.Watch.
type ConfigWatchConfig struct {
	Watch bool `yaml:"watch,omitempty"`
}

// ModelsConfig names the LLM used for classification decisions,
// distinct from any project's own executor model.
type ModelsConfig struct {
	Classifier LLMProviderConfig `yaml:"classifier,omitempty"`
}

// APIConfig holds provider credentials keyed by provider name, shared by
// every project whose project.yaml references that provider.
type APIConfig struct {
	Providers map[string]LLMProviderConfig `yaml:"providers,omitempty"`
}

// SetDefaults fills in every unset field with its documented default.
func (c *Config) SetDefaults() {
	c.Logger.SetDefaults()

	if c.Routing.ProjectsDir == "" {
		c.Routing.ProjectsDir = "./projects"
	}
	if c.Routing.RequestTimeoutSeconds == 0 {
		c.Routing.RequestTimeoutSeconds = 300
	}

	cache := &c.Routing.Cache
	if cache.MaxEntries == 0 {
		cache.MaxEntries = 1000
	}
	if cache.BaseTTLSeconds == 0 {
		cache.BaseTTLSeconds = 300
	}
	if cache.HotMultiplier == 0 {
		cache.HotMultiplier = 3.0
	}
	if cache.WarmMultiplier == 0 {
		cache.WarmMultiplier = 1.0
	}
	if cache.ColdMultiplier == 0 {
		cache.ColdMultiplier = 0.5
	}
	if cache.XFetchBeta == 0 {
		cache.XFetchBeta = 1.0
	}
	if cache.SimilarityThreshold == 0 {
		cache.SimilarityThreshold = 0.85
	}

	sem := &c.Routing.SemanticAnalysis
	if sem.MaxClusters == 0 {
		sem.MaxClusters = 5
	}
	if sem.CentroidAlpha == 0 {
		sem.CentroidAlpha = 0.3
	}
	if sem.TopicSimilarityThreshold == 0 {
		sem.TopicSimilarityThreshold = 0.6
	}
	if sem.SimilarityThreshold == 0 {
		sem.SimilarityThreshold = 0.75
	}
	if sem.MaxContextHistory == 0 {
		sem.MaxContextHistory = 50
	}

	fb := &c.Routing.Feedback
	if fb.StorePath == "" {
		fb.StorePath = "./data/feedback.json"
	}
	if fb.LearningThreshold == 0 {
		fb.LearningThreshold = 0.7
	}

	orch := &c.Routing.Orchestration
	if orch.MaxParallel == 0 {
		orch.MaxParallel = 3
	}

	an := &c.Routing.Analytics
	if an.MaxHistory == 0 {
		an.MaxHistory = 1000
	}
	if an.StorePath == "" {
		an.StorePath = "./data/analytics.json"
	}

	c.Models.Classifier.SetDefaults()

	for name, p := range c.API.Providers {
		p.SetDefaults()
		c.API.Providers[name] = p
	}
}

// Validate checks the configuration for internal consistency after
// defaults have been applied.
func (c *Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if c.Routing.Cache.SimilarityThreshold < 0 || c.Routing.Cache.SimilarityThreshold > 1 {
		return fmt.Errorf("routing.cache.similarity_threshold must be between 0 and 1")
	}
	if c.Routing.SemanticAnalysis.TopicSimilarityThreshold < 0 || c.Routing.SemanticAnalysis.TopicSimilarityThreshold > 1 {
		return fmt.Errorf("routing.semantic_analysis.topic_similarity_threshold must be between 0 and 1")
	}
	if c.Routing.SemanticAnalysis.SimilarityThreshold < 0 || c.Routing.SemanticAnalysis.SimilarityThreshold > 1 {
		return fmt.Errorf("routing.semantic_analysis.similarity_threshold must be between 0 and 1")
	}
	if c.Routing.Orchestration.MaxParallel < 1 {
		return fmt.Errorf("routing.orchestration.max_parallel must be at least 1")
	}
	// max_history=0 is a valid boundary: analytics records are accepted
	// but immediately discarded rather than retained. SetDefaults runs
	// first in Loader.Load and replaces 0 with 1000, so a config file
	// cannot reach this boundary through the loader.
	if c.Routing.Analytics.MaxHistory < 0 {
		return fmt.Errorf("routing.analytics.max_history must not be negative")
	}
	if err := c.Models.Classifier.Validate(); err != nil {
		return fmt.Errorf("models.classifier: %w", err)
	}
	for name, p := range c.API.Providers {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("api.providers.%s: %w", name, err)
		}
	}
	return nil
}
