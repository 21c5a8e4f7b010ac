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

package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/projectrouter/core/internal/httpclient"
	"github.com/projectrouter/core/pkg/config"
	"github.com/projectrouter/core/pkg/rerrors"
)

const anthropicEndpoint = "https://api.anthropic.com/v1/messages"

type anthropicProvider struct {
	cfg       config.LLMProviderConfig
	transport *httpclient.Client
	endpoint  string
}

func newAnthropicProvider(cfg config.LLMProviderConfig, transport *httpclient.Client) *anthropicProvider {
	endpoint := anthropicEndpoint
	if cfg.BaseURL != "" {
		endpoint = cfg.BaseURL + "/v1/messages"
	}
	return &anthropicProvider{cfg: cfg, transport: transport, endpoint: endpoint}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (p *anthropicProvider) ModelName() string { return p.cfg.Model }

func (p *anthropicProvider) Call(ctx context.Context, prompt string) (string, error) {
	reqBody := anthropicRequest{
		Model:       p.cfg.Model,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: *p.cfg.Temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", rerrors.Provider("llmclient.anthropic", "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", rerrors.Transport("llmclient.anthropic", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.transport.Do(httpReq)
	if err != nil {
		return "", rerrors.Transport("llmclient.anthropic", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", rerrors.Transport("llmclient.anthropic", "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", rerrors.Provider("llmclient.anthropic", fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)), nil)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", rerrors.Provider("llmclient.anthropic", "malformed response body", err)
	}
	if parsed.Error != nil {
		return "", rerrors.Provider("llmclient.anthropic", parsed.Error.Message, nil)
	}
	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", rerrors.Provider("llmclient.anthropic", "response contained no text block", nil)
}
