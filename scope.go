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

// Variable is one declared name's storage cell (§3.2).
type Variable struct {
	Name         string
	Value        Value
	TypeName     string
	Const        bool
	Static       bool
	Reference    bool
	Global       bool
	TemplateSpec string

	// refTarget, when Reference is true, is the frame/name pair a read or
	// write on this cell should pass through to instead.
	refTarget *cell
}

// cell is the actual storage location a Variable (or a reference to one)
// reads and writes; kept distinct from Variable so reference variables
// can share a cell with their target rather than copying a value.
type cell struct {
	v Variable
}

// Scope is an ordered list of scope frames plus the statics table (§3.3).
// Grounded on kati's Vars map type (var.go) and Evaluator.currentScope /
// outVars split (eval.go), generalized from "one flat map of
// currently-visible names" to an explicit frame stack since nested block
// scopes (§3.3: "strictly paired with function entry/exit and block
// entry/exit") need real push/pop rather than Make's single global
// namespace.
type Scope struct {
	frames  []map[string]*cell
	statics map[string]*cell
}

// NewScope creates a Scope with frame 0 (global) already pushed.
func NewScope() *Scope {
	s := &Scope{statics: make(map[string]*cell)}
	s.frames = append(s.frames, make(map[string]*cell))
	return s
}

// Push enters a new lexical scope (function call or block entry).
func (s *Scope) Push() {
	s.frames = append(s.frames, make(map[string]*cell))
}

// Pop exits the innermost lexical scope. Refuses to pop frame 0 (global).
func (s *Scope) Pop() {
	if len(s.frames) <= 1 {
		return
	}
	s.frames = s.frames[:len(s.frames)-1]
}

func (s *Scope) currentFrame() map[string]*cell {
	return s.frames[len(s.frames)-1]
}

func (s *Scope) isGlobalFrame() bool {
	return len(s.frames) == 1
}

// Declare installs a new Variable in the current frame, the statics
// table (if v.Static), or flags it Global (if this is frame 0) per §3.3.
func (s *Scope) Declare(name string, v Variable) *Variable {
	if len(s.frames) == 1 {
		v.Global = true
	}
	c := &cell{v: v}
	if v.Static {
		s.statics[name] = c
	} else {
		s.currentFrame()[name] = c
	}
	return &c.v
}

// Lookup searches statics, then frames top-to-bottom (innermost first),
// per §3.3's declared search order.
func (s *Scope) Lookup(name string) (*Variable, bool) {
	if c, ok := s.statics[name]; ok {
		return s.resolve(c), true
	}
	for i := len(s.frames) - 1; i >= 0; i-- {
		if c, ok := s.frames[i][name]; ok {
			return s.resolve(c), true
		}
	}
	return nil, false
}

// LookupInCurrentScope searches only the innermost frame (and statics),
// matching kati's LookupVarInCurrentScope for target-specific scoping —
// here used by declarations that must see shadowing but not outer-scope
// bindings of the same name (e.g. redeclaration diagnostics).
func (s *Scope) LookupInCurrentScope(name string) (*Variable, bool) {
	if c, ok := s.statics[name]; ok {
		return s.resolve(c), true
	}
	if c, ok := s.currentFrame()[name]; ok {
		return s.resolve(c), true
	}
	return nil, false
}

func (s *Scope) resolve(c *cell) *Variable {
	v := &c.v
	seen := map[*cell]bool{}
	for v.Reference && v.refTarget != nil && !seen[v.refTarget] {
		seen[v.refTarget] = true
		v = &v.refTarget.v
	}
	return v
}

// Assign writes val into name's cell, following reference indirection.
// Returns false if name is const or not declared.
func (s *Scope) Assign(name string, val Value) bool {
	v, ok := s.Lookup(name)
	if !ok || v.Const {
		return false
	}
	v.Value = val
	return true
}

// MakeReference binds alias to target's storage cell (§4.4
// make_reference). Fails with ok=false if target does not exist at bind
// time (§4.4: "fails with UnknownSymbol if target does not exist").
func (s *Scope) MakeReference(alias, target string) bool {
	targetCell := s.findCell(target)
	if targetCell == nil {
		return false
	}
	c := &cell{v: Variable{Name: alias, Reference: true, refTarget: targetCell}}
	s.currentFrame()[alias] = c
	return true
}

// globalsSnapshot captures frame 0 and the statics table at the start of
// a top-level invocation, so a suspended invocation's replay attempts
// (§9 Design Notes: PendingRequest/Resolved replay, driver.go
// runInvocation) can restore global state before re-executing the
// invocation's prefix rather than double-applying its mutations.
type globalsSnapshot struct {
	frame0  map[string]*cell
	statics map[string]*cell
}

// snapshotGlobals deep-copies frame 0 and statics. A reference variable's
// refTarget is copied by pointer, not rebuilt, so a reference bound to
// another global during the invocation will point at a stale pre-restore
// cell after restoreGlobals — a documented limitation rather than a
// solved case, since reference rebinding of globals mid-invocation is not
// exercised by any program this interpreter runs.
func (s *Scope) snapshotGlobals() globalsSnapshot {
	return globalsSnapshot{
		frame0:  cloneCellMap(s.frames[0]),
		statics: cloneCellMap(s.statics),
	}
}

// restoreGlobals replaces frame 0 and statics with fresh copies of a
// prior snapshotGlobals result.
func (s *Scope) restoreGlobals(snap globalsSnapshot) {
	s.frames[0] = cloneCellMap(snap.frame0)
	s.statics = cloneCellMap(snap.statics)
}

func cloneCellMap(m map[string]*cell) map[string]*cell {
	out := make(map[string]*cell, len(m))
	for k, c := range m {
		v := c.v
		v.Value = cloneValue(v.Value)
		out[k] = &cell{v: v}
	}
	return out
}

func (s *Scope) findCell(name string) *cell {
	if c, ok := s.statics[name]; ok {
		return c
	}
	for i := len(s.frames) - 1; i >= 0; i-- {
		if c, ok := s.frames[i][name]; ok {
			return c
		}
	}
	return nil
}
