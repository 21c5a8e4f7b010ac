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
	"context"
	"hash/fnv"
	"math"
	"strings"
)

const hashedDimension = 128

// Hashed is a deterministic hashed-bag-of-words embedder used when no
// real embedding backend is configured. Same input always produces the
// same vector, which is all semantic clustering requires to be
// internally consistent within one process; it does not capture real
// semantic similarity across distinct wordings.
type Hashed struct{}

// NewHashed builds the fallback embedder.
func NewHashed() *Hashed { return &Hashed{} }

func (h *Hashed) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, hashedDimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		hasher := fnv.New32a()
		hasher.Write([]byte(word))
		bucket := hasher.Sum32() % hashedDimension
		vec[bucket]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec, nil
}

func (h *Hashed) Dimension() int { return hashedDimension }
func (h *Hashed) Model() string  { return "hashed-bag-of-words" }
func (h *Hashed) Close() error   { return nil }
