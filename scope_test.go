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

import "testing"

func TestScopeDeclareLookup(t *testing.T) {
	s := NewScope()
	s.Declare("x", Variable{Name: "x", Value: I32Value(1)})
	v, ok := s.Lookup("x")
	if !ok || v.Value.I32 != 1 {
		t.Fatalf("Lookup(x) = %+v, %v", v, ok)
	}
}

func TestScopePushPopShadowing(t *testing.T) {
	s := NewScope()
	s.Declare("x", Variable{Name: "x", Value: I32Value(1)})
	s.Push()
	s.Declare("x", Variable{Name: "x", Value: I32Value(2)})
	if v, _ := s.Lookup("x"); v.Value.I32 != 2 {
		t.Errorf("inner x = %d, want 2", v.Value.I32)
	}
	s.Pop()
	if v, _ := s.Lookup("x"); v.Value.I32 != 1 {
		t.Errorf("outer x after pop = %d, want 1", v.Value.I32)
	}
}

func TestScopeCannotPopGlobalFrame(t *testing.T) {
	s := NewScope()
	s.Declare("x", Variable{Name: "x", Value: I32Value(7)})
	s.Pop() // no-op: frame 0 is global
	if v, ok := s.Lookup("x"); !ok || v.Value.I32 != 7 {
		t.Error("popping the global frame should be a no-op")
	}
	if !s.isGlobalFrame() {
		t.Error("expected to still be at the global frame")
	}
}

func TestScopeGlobalFlagSetOnFrameZero(t *testing.T) {
	s := NewScope()
	v := s.Declare("g", Variable{Name: "g", Value: I32Value(1)})
	if !v.Global {
		t.Error("declaration at frame 0 should be flagged Global")
	}
	s.Push()
	v2 := s.Declare("l", Variable{Name: "l", Value: I32Value(1)})
	if v2.Global {
		t.Error("declaration inside a pushed frame should not be flagged Global")
	}
}

func TestScopeStaticsSurviveAcrossFrames(t *testing.T) {
	s := NewScope()
	s.Push()
	s.Declare("counter", Variable{Name: "counter", Value: I32Value(0), Static: true})
	s.Assign("counter", I32Value(1))
	s.Pop()
	s.Push()
	v, ok := s.Lookup("counter")
	if !ok || v.Value.I32 != 1 {
		t.Errorf("static should retain its value across frame pop/push: %+v, %v", v, ok)
	}
}

func TestScopeAssignConstFails(t *testing.T) {
	s := NewScope()
	s.Declare("k", Variable{Name: "k", Value: I32Value(5), Const: true})
	if s.Assign("k", I32Value(9)) {
		t.Error("assigning to a const variable should fail")
	}
	if v, _ := s.Lookup("k"); v.Value.I32 != 5 {
		t.Error("const value should be unchanged after a failed assign")
	}
}

func TestScopeAssignUndeclaredFails(t *testing.T) {
	s := NewScope()
	if s.Assign("nope", I32Value(1)) {
		t.Error("assigning to an undeclared name should fail")
	}
}

func TestScopeMakeReferenceAliases(t *testing.T) {
	s := NewScope()
	s.Declare("target", Variable{Name: "target", Value: I32Value(10)})
	if !s.MakeReference("alias", "target") {
		t.Fatal("MakeReference should succeed when target exists")
	}
	s.Assign("alias", I32Value(99))
	if v, _ := s.Lookup("target"); v.Value.I32 != 99 {
		t.Error("writing through a reference should mutate the aliased target")
	}
	s.Assign("target", I32Value(1))
	if v, _ := s.Lookup("alias"); v.Value.I32 != 1 {
		t.Error("writing the target should be visible through the alias")
	}
}

func TestScopeMakeReferenceFailsOnMissingTarget(t *testing.T) {
	s := NewScope()
	if s.MakeReference("alias", "nonexistent") {
		t.Error("MakeReference should fail when the target does not exist at bind time")
	}
}

func TestScopeSnapshotRestoreGlobals(t *testing.T) {
	s := NewScope()
	s.Declare("g", Variable{Name: "g", Value: I32Value(1)})
	s.Push()
	s.Declare("st", Variable{Name: "st", Value: I32Value(10), Static: true})
	s.Pop()

	snap := s.snapshotGlobals()

	s.Assign("g", I32Value(2))
	s.Assign("st", I32Value(20))
	if v, _ := s.Lookup("g"); v.Value.I32 != 2 {
		t.Fatalf("g after mutation = %d, want 2", v.Value.I32)
	}

	s.restoreGlobals(snap)
	if v, _ := s.Lookup("g"); v.Value.I32 != 1 {
		t.Errorf("g after restore = %d, want 1", v.Value.I32)
	}
	if v, _ := s.Lookup("st"); v.Value.I32 != 10 {
		t.Errorf("st after restore = %d, want 10", v.Value.I32)
	}

	// Mutating post-restore must not reach back into the snapshot.
	s.Assign("g", I32Value(99))
	s.restoreGlobals(snap)
	if v, _ := s.Lookup("g"); v.Value.I32 != 1 {
		t.Errorf("g after second restore = %d, want 1 (snapshot must be immutable)", v.Value.I32)
	}
}

func TestScopeSnapshotGlobalsDeepCopiesArrays(t *testing.T) {
	s := NewScope()
	arr := ArrayValue(&Array{ElemType: "int", Dims: []int{2}, Elems: []Value{I32Value(1), I32Value(2)}})
	s.Declare("a", Variable{Name: "a", Value: arr})

	snap := s.snapshotGlobals()

	v, _ := s.Lookup("a")
	v.Value.Array.Elems[0] = I32Value(100)

	s.restoreGlobals(snap)
	if v, _ := s.Lookup("a"); v.Value.Array.Elems[0].I32 != 1 {
		t.Errorf("array elem after restore = %d, want 1 (snapshot must be independent of live array)", v.Value.Array.Elems[0].I32)
	}
}

func TestScopeLookupInCurrentScope(t *testing.T) {
	s := NewScope()
	s.Declare("outer", Variable{Name: "outer", Value: I32Value(1)})
	s.Push()
	if _, ok := s.LookupInCurrentScope("outer"); ok {
		t.Error("LookupInCurrentScope should not see the outer frame's bindings")
	}
	s.Declare("inner", Variable{Name: "inner", Value: I32Value(2)})
	if _, ok := s.LookupInCurrentScope("inner"); !ok {
		t.Error("LookupInCurrentScope should see the current frame's own bindings")
	}
}
