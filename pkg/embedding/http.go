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

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/projectrouter/core/internal/httpclient"
	"github.com/projectrouter/core/pkg/rerrors"
)

// HTTPEmbedder calls an OpenAI-compatible /embeddings endpoint, the
// same wire shape exposed by OpenAI itself and by Ollama's
// compatibility surface.
type HTTPEmbedder struct {
	endpoint  string
	apiKey    string
	model     string
	dimension int
	transport *httpclient.Client
}

// NewHTTPEmbedder builds an embedder backed by an HTTP endpoint.
// dimension is the embedding length the backend is known to return; it
// is reported via Dimension() without requiring a round trip.
func NewHTTPEmbedder(endpoint, apiKey, model string, dimension int, transport *httpclient.Client) *HTTPEmbedder {
	if transport == nil {
		transport = httpclient.New()
	}
	return &HTTPEmbedder{endpoint: endpoint, apiKey: apiKey, model: model, dimension: dimension, transport: transport}
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embeddingRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, rerrors.Provider("embedding.http", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, rerrors.Transport("embedding.http", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.transport.Do(req)
	if err != nil {
		return nil, rerrors.Transport("embedding.http", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rerrors.Transport("embedding.http", "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, rerrors.Provider("embedding.http", fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)), nil)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, rerrors.Provider("embedding.http", "malformed response body", err)
	}
	if len(parsed.Data) == 0 {
		return nil, rerrors.Provider("embedding.http", "response contained no embeddings", nil)
	}
	return parsed.Data[0].Embedding, nil
}

func (e *HTTPEmbedder) Dimension() int { return e.dimension }
func (e *HTTPEmbedder) Model() string  { return e.model }
func (e *HTTPEmbedder) Close() error   { return nil }
