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

import "sync"

// symtab interns decoded AST strings (identifiers, literals, operators)
// so repeated occurrences across a tree share one backing string, same
// idea as kati's symtab.go applied to the compact AST's string table
// (§4.1) instead of Makefile tokens.
type symtabT struct {
	mu sync.Mutex
	m  map[string]string
}

var symtab = &symtabT{
	m: make(map[string]string),
}

func intern(s string) string {
	symtab.mu.Lock()
	v, ok := symtab.m[s]
	if ok {
		symtab.mu.Unlock()
		return v
	}
	symtab.m[s] = s
	symtab.mu.Unlock()
	return s
}
