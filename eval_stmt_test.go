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

func TestVisitVarDeclEmitsVarSetAndDeclares(t *testing.T) {
	ip := newTestInterpreter(t)
	sink := &collectingSink{}
	ip.sink = sink

	if err := ip.visitStmt(varDecl("x", "int", numLit(5))); err != nil {
		t.Fatalf("visitStmt(varDecl): %v", err)
	}
	v, ok := ip.scope.Lookup("x")
	if !ok || v.Value.CoerceInt() != 5 {
		t.Fatalf("x after declaration = %+v, %v, want 5", v, ok)
	}
	if len(sink.commands) != 1 || sink.commands[0].Type != CmdVarSet {
		t.Fatalf("expected one VAR_SET command, got %v", sink.typesOf())
	}
}

func TestVisitVarDeclConstModifier(t *testing.T) {
	ip := newTestInterpreter(t)
	ip.sink = &collectingSink{}
	if err := ip.visitStmt(varDecl("k", "const int", numLit(1))); err != nil {
		t.Fatalf("visitStmt: %v", err)
	}
	v, _ := ip.scope.Lookup("k")
	if !v.Const {
		t.Error("expected 'const int' type string to set Const")
	}
	if ip.scope.Assign("k", I32Value(2)) {
		t.Error("assigning to a const-declared variable should fail")
	}
}

func TestVisitVarDeclDefaultInitializes(t *testing.T) {
	ip := newTestInterpreter(t)
	ip.sink = &collectingSink{}
	if err := ip.visitStmt(varDecl("y", "double", nil)); err != nil {
		t.Fatalf("visitStmt: %v", err)
	}
	v, _ := ip.scope.Lookup("y")
	if v.Value.Tag != TagF64 || v.Value.F64 != 0 {
		t.Errorf("default-initialized double = %+v, want f64 zero", v.Value)
	}
}

func TestVisitIfEmitsBranchTaken(t *testing.T) {
	ip := newTestInterpreter(t)
	sink := &collectingSink{}
	ip.sink = sink
	ip.scope.Declare("taken", Variable{Name: "taken", Value: I32Value(0)})

	n := &Node{Kind: NIf, Children: []*Node{
		numLit(1),
		exprStmt(assign(ident("taken"), numLit(1))),
		nil,
	}}
	if err := ip.visitStmt(n); err != nil {
		t.Fatalf("visitStmt(if): %v", err)
	}
	v, _ := ip.scope.Lookup("taken")
	if v.Value.CoerceInt() != 1 {
		t.Error("then-branch should have executed")
	}
	if len(sink.commands) != 1 || sink.commands[0].Type != CmdIfStatement {
		t.Fatalf("expected one IF_STATEMENT command, got %v", sink.typesOf())
	}
}

func TestVisitWhileLoopCap(t *testing.T) {
	ip := newTestInterpreter(t) // MaxLoopIterations: 5
	sink := &collectingSink{}
	ip.sink = sink
	ip.scope.Declare("count", Variable{Name: "count", Value: I32Value(0)})

	// while (true) count = count + 1;  -- infinite without the cap.
	n := &Node{Kind: NWhile, Children: []*Node{
		numLit(1),
		exprStmt(assign(ident("count"), binOp("+", ident("count"), numLit(1)))),
	}}
	if err := ip.visitStmt(n); err != nil {
		t.Fatalf("visitStmt(while): %v", err)
	}
	v, _ := ip.scope.Lookup("count")
	if v.Value.CoerceInt() != 5 {
		t.Errorf("count after capped while loop = %d, want 5", v.Value.CoerceInt())
	}
	found := false
	for _, c := range sink.commands {
		if c.Type == CmdLoopEndComplete {
			found = true
		}
	}
	if !found {
		t.Error("expected a LOOP_END_COMPLETE command once the iteration cap is hit")
	}
}

func TestVisitForLoopBreak(t *testing.T) {
	ip := newTestInterpreter(t)
	ip.sink = &collectingSink{}
	ip.scope.Declare("sum", Variable{Name: "sum", Value: I32Value(0)})

	// for (int i = 0; i < 100; i = i + 1) { if (i == 2) break; sum += i; }
	forNode := &Node{Kind: NFor, Children: []*Node{
		varDecl("i", "int", numLit(0)),
		binOp("<", ident("i"), numLit(100)),
		assign(ident("i"), binOp("+", ident("i"), numLit(1))),
		compound(
			&Node{Kind: NIf, Children: []*Node{
				binOp("==", ident("i"), numLit(2)),
				&Node{Kind: NBreak},
				nil,
			}},
			exprStmt(assign(ident("sum"), binOp("+", ident("sum"), ident("i")))),
		),
	}}
	if err := ip.visitStmt(forNode); err != nil {
		t.Fatalf("visitStmt(for): %v", err)
	}
	v, _ := ip.scope.Lookup("sum")
	if v.Value.CoerceInt() != 1 { // 0 + 1, then breaks before adding 2
		t.Errorf("sum = %d, want 1 (0+1, broke at i==2)", v.Value.CoerceInt())
	}
}

func TestVisitSwitchFallthrough(t *testing.T) {
	ip := newTestInterpreter(t)
	ip.sink = &collectingSink{}
	ip.scope.Declare("hits", Variable{Name: "hits", Value: I32Value(0)})

	// switch(1) { case 1: hits++; case 2: hits++; break; case 3: hits = 100; }
	sw := &Node{Kind: NSwitch, Children: []*Node{
		numLit(1),
		compound(
			&Node{Kind: NCase, Children: []*Node{numLit(1), exprStmt(&Node{Kind: NPostfix, Op: "++", Children: []*Node{ident("hits")}})}},
			&Node{Kind: NCase, Children: []*Node{numLit(2), exprStmt(&Node{Kind: NPostfix, Op: "++", Children: []*Node{ident("hits")}}), &Node{Kind: NBreak}}},
			&Node{Kind: NCase, Children: []*Node{numLit(3), exprStmt(assign(ident("hits"), numLit(100)))}},
		),
	}}
	if err := ip.visitStmt(sw); err != nil {
		t.Fatalf("visitStmt(switch): %v", err)
	}
	v, _ := ip.scope.Lookup("hits")
	if v.Value.CoerceInt() != 2 {
		t.Errorf("hits = %d, want 2 (case 1 falls through into case 2, then breaks)", v.Value.CoerceInt())
	}
}

func TestVisitSwitchDefaultCase(t *testing.T) {
	ip := newTestInterpreter(t)
	ip.sink = &collectingSink{}
	ip.scope.Declare("which", Variable{Name: "which", Value: I32Value(-1)})

	sw := &Node{Kind: NSwitch, Children: []*Node{
		numLit(42),
		compound(
			&Node{Kind: NCase, Children: []*Node{numLit(1), exprStmt(assign(ident("which"), numLit(1))), &Node{Kind: NBreak}}},
			// a default case stores a nil label placeholder as its first
			// child (the decoder's convention for "no case expression").
			&Node{Kind: NCase, Children: []*Node{nil, exprStmt(assign(ident("which"), numLit(0))), &Node{Kind: NBreak}}},
		),
	}}
	if err := ip.visitStmt(sw); err != nil {
		t.Fatalf("visitStmt(switch): %v", err)
	}
	v, _ := ip.scope.Lookup("which")
	if v.Value.CoerceInt() != 0 {
		t.Errorf("which = %d, want 0 (default case taken)", v.Value.CoerceInt())
	}
}

func TestVisitReturnUnwindsCompound(t *testing.T) {
	ip := newTestInterpreter(t)
	ip.sink = &collectingSink{}
	ip.scope.Declare("reached", Variable{Name: "reached", Value: I32Value(0)})

	body := compound(
		&Node{Kind: NReturn, Children: []*Node{numLit(9)}},
		exprStmt(assign(ident("reached"), numLit(1))),
	)
	err := ip.visitStmt(body)
	rs, ok := err.(*returnSignal)
	if !ok || rs.value.CoerceInt() != 9 {
		t.Fatalf("expected a returnSignal carrying 9, got %v", err)
	}
	v, _ := ip.scope.Lookup("reached")
	if v.Value.CoerceInt() != 0 {
		t.Error("statement after return should not execute")
	}
}

func TestEvalExprStmtRecoversRuntimeError(t *testing.T) {
	ip := newTestInterpreter(t)
	sink := &collectingSink{}
	ip.sink = sink

	v, err := ip.evalExprStmt(binOp("/", numLit(1), numLit(0)))
	if err != nil {
		t.Fatalf("evalExprStmt should recover a runtime error, got err=%v", err)
	}
	if !v.IsVoid() {
		t.Errorf("recovered result = %+v, want void", v)
	}
	if len(sink.commands) != 1 || sink.commands[0].Type != CmdError {
		t.Fatalf("expected one ERROR command, got %v", sink.typesOf())
	}
}

func TestAssignToArrayElement(t *testing.T) {
	ip := newTestInterpreter(t)
	arr := &Array{ElemType: "int", Dims: []int{2}, Elems: []Value{I32Value(0), I32Value(0)}}
	ip.scope.Declare("arr", Variable{Name: "arr", Value: ArrayValue(arr)})

	target := &Node{Kind: NArrayAccess, Children: []*Node{ident("arr"), numLit(1)}}
	if err := ip.assignTo(target, I32Value(55)); err != nil {
		t.Fatalf("assignTo(array): %v", err)
	}
	if arr.Elems[1].I32 != 55 {
		t.Errorf("arr[1] = %d, want 55", arr.Elems[1].I32)
	}
}

func TestAssignToStructMember(t *testing.T) {
	ip := newTestInterpreter(t)
	ip.scope.Declare("p", Variable{Name: "p", Value: StructValue(map[string]Value{"x": I32Value(1)})})

	target := &Node{Kind: NMember, Str: "x", Children: []*Node{ident("p")}}
	if err := ip.assignTo(target, I32Value(9)); err != nil {
		t.Fatalf("assignTo(member): %v", err)
	}
	v, _ := ip.scope.Lookup("p")
	if v.Value.Struct["x"].I32 != 9 {
		t.Errorf("p.x = %+v, want 9", v.Value.Struct["x"])
	}
}

func TestParseTypeModifiers(t *testing.T) {
	isConst, isStatic, isRef := parseTypeModifiers("const int&")
	if !isConst || isStatic || !isRef {
		t.Errorf("parseTypeModifiers(const int&) = %v %v %v", isConst, isStatic, isRef)
	}
	isConst, isStatic, isRef = parseTypeModifiers("static int")
	if isConst || !isStatic || isRef {
		t.Errorf("parseTypeModifiers(static int) = %v %v %v", isConst, isStatic, isRef)
	}
}
