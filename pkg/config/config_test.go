package config

import "testing"

func TestLoggerConfig_SetDefaults(t *testing.T) {
	var c LoggerConfig
	c.SetDefaults()
	if c.Level != "info" {
		t.Errorf("Level = %q, want info", c.Level)
	}
	if c.Format != "simple" {
		t.Errorf("Format = %q, want simple", c.Format)
	}
}

func TestLoggerConfig_ValidateRejectsUnknownLevel(t *testing.T) {
	c := LoggerConfig{Level: "trace"}
	if err := c.Validate(); err == nil {
		t.Error("expected Validate to reject an unrecognized log level")
	}
}

func TestLoggerConfig_ValidateAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error"} {
		c := LoggerConfig{Level: level}
		if err := c.Validate(); err != nil {
			t.Errorf("Validate() for level %q = %v, want nil", level, err)
		}
	}
}

func TestLLMProviderConfig_SetDefaultsFillsModelForProvider(t *testing.T) {
	c := LLMProviderConfig{Provider: LLMProviderOllama}
	c.SetDefaults()
	if c.Model != "llama3.2" {
		t.Errorf("Model = %q, want llama3.2", c.Model)
	}
	if c.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, want 2048", c.MaxTokens)
	}
	if c.TimeoutSeconds != 60 {
		t.Errorf("TimeoutSeconds = %d, want 60", c.TimeoutSeconds)
	}
	if c.Temperature == nil || *c.Temperature != 0.2 {
		t.Error("expected default temperature of 0.2")
	}
}

func TestLLMProviderConfig_ValidateRequiresBaseURLForOllama(t *testing.T) {
	c := LLMProviderConfig{Provider: LLMProviderOllama}
	if err := c.Validate(); err == nil {
		t.Error("expected Validate to require base_url for ollama")
	}
	c.BaseURL = "http://localhost:11434"
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil once base_url is set", err)
	}
}

func TestLLMProviderConfig_ValidateRequiresAPIKeyForHostedProviders(t *testing.T) {
	c := LLMProviderConfig{Provider: LLMProviderAnthropic}
	if err := c.Validate(); err == nil {
		t.Error("expected Validate to require api_key for anthropic")
	}
	c.APIKey = "sk-test"
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil once api_key is set", err)
	}
}

func TestLLMProviderConfig_ValidateRejectsOutOfRangeTemperature(t *testing.T) {
	temp := 3.0
	c := LLMProviderConfig{Provider: LLMProviderAnthropic, APIKey: "k", Temperature: &temp}
	if err := c.Validate(); err == nil {
		t.Error("expected Validate to reject a temperature above 2")
	}
}

func TestConfig_SetDefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.API.Providers = map[string]LLMProviderConfig{
		"docs": {Provider: LLMProviderAnthropic, APIKey: "k"},
	}
	cfg.Models.Classifier = LLMProviderConfig{Provider: LLMProviderAnthropic, APIKey: "k"}
	cfg.SetDefaults()

	if cfg.Routing.ProjectsDir != "./projects" {
		t.Errorf("ProjectsDir = %q, want ./projects", cfg.Routing.ProjectsDir)
	}
	if cfg.Routing.Orchestration.MaxParallel != 3 {
		t.Errorf("MaxParallel = %d, want 3", cfg.Routing.Orchestration.MaxParallel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil after SetDefaults", err)
	}
}

func TestConfig_ValidateRejectsInvalidMaxParallel(t *testing.T) {
	var cfg Config
	cfg.Models.Classifier = LLMProviderConfig{Provider: LLMProviderAnthropic, APIKey: "k"}
	cfg.Routing.Orchestration.MaxParallel = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate to reject max_parallel < 1")
	}
}

func TestConfig_ValidateAcceptsZeroMaxHistory(t *testing.T) {
	var cfg Config
	cfg.Models.Classifier = LLMProviderConfig{Provider: LLMProviderAnthropic, APIKey: "k"}
	cfg.Routing.Orchestration.MaxParallel = 1
	cfg.Routing.Analytics.MaxHistory = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil: max_history=0 is a valid boundary", err)
	}
}

func TestConfig_ValidateRejectsNegativeMaxHistory(t *testing.T) {
	var cfg Config
	cfg.Models.Classifier = LLMProviderConfig{Provider: LLMProviderAnthropic, APIKey: "k"}
	cfg.Routing.Orchestration.MaxParallel = 1
	cfg.Routing.Analytics.MaxHistory = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate to reject a negative max_history")
	}
}
