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

package orchestrator

// buildStages performs repeated Kahn-style layering over sub-query
// dependencies: each stage contains every sub-query whose unresolved
// dependencies are empty. If no sub-query is ready (a pathological
// cycle that should not occur given detectDependencies' backward-only
// edges), every remaining index is placed into one final stage and a
// warning is returned.
func buildStages(subs []SubQuery) ([][]int, []string) {
	remaining := make(map[int]struct{}, len(subs))
	for _, sq := range subs {
		remaining[sq.Index] = struct{}{}
	}

	resolved := make(map[int]struct{})
	var stages [][]int
	var warnings []string

	for len(remaining) > 0 {
		var stage []int
		for idx := range remaining {
			ready := true
			for _, dep := range subs[idx].DependsOn {
				if _, done := resolved[dep]; !done {
					ready = false
					break
				}
			}
			if ready {
				stage = append(stage, idx)
			}
		}

		if len(stage) == 0 {
			// Pathological cycle: dump everything remaining into one
			// final stage rather than deadlocking.
			for idx := range remaining {
				stage = append(stage, idx)
			}
			warnings = append(warnings, "dependency cycle detected, remaining sub-queries scheduled in one stage")
		}

		sortInts(stage)
		for _, idx := range stage {
			delete(remaining, idx)
			resolved[idx] = struct{}{}
		}
		stages = append(stages, stage)
	}

	return stages, warnings
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
