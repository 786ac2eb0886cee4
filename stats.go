// Copyright 2015 Google Inc. All rights reserved
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package interp

// execStats holds the zeroed-per-run counters the execution driver
// (§4.9) maintains: loop iterations taken, commands emitted, intrinsic
// calls dispatched, and errors raised. Grounded on kati's statsT
// (stats.go), pared down from a timing/tracing table (kati tracks
// per-Make-function call counts and durations for a `-kati_stats` report
// consumed by nothing in this spec) to the plain run counters §4.9 and
// §8's testable properties actually need.
//
// Per spec.md §9 ("Global/static process state"), these counters live on
// the Interpreter instance, not in package-level state: starting a new
// interpreter resets them.
type execStats struct {
	LoopIterations int
	CommandsEmitted int
	IntrinsicCalls int
	ErrorsRaised   int
}

func (s *execStats) onCommand()   { s.CommandsEmitted++ }
func (s *execStats) onIntrinsic() { s.IntrinsicCalls++ }
func (s *execStats) onError()     { s.ErrorsRaised++ }
func (s *execStats) onLoopIter()  { s.LoopIterations++ }
