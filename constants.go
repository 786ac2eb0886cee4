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

// arduinoConstants lists the pre-declared global constants of §6.3,
// installed into frame 0 before Phase 1 of the execution driver runs.
// Grounded on kati's bootstrap.go, which seeds its global Vars table with
// built-ins (MAKE, CURDIR, ...) before parsing begins.
var arduinoConstants = []struct {
	name string
	val  int32
}{
	{"HIGH", 1},
	{"LOW", 0},
	{"INPUT", 0},
	{"OUTPUT", 1},
	{"INPUT_PULLUP", 2},
	{"LED_BUILTIN", 2},
	{"A0", 36},
	{"A1", 39},
	{"A2", 34},
	{"A3", 35},
	{"A4", 32},
	{"A5", 33},
}

func installArduinoConstants(s *Scope) {
	for _, c := range arduinoConstants {
		s.Declare(c.name, Variable{
			Name:     c.name,
			Value:    I32Value(c.val),
			TypeName: "int",
			Const:    true,
			Global:   true,
		})
	}
}
