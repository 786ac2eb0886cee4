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

func TestLoadRoundTrip(t *testing.T) {
	tree := program(
		funcDef("setup", compound(
			exprStmt(call("pinMode", numLit(13), ident("OUTPUT"))),
		)),
		funcDef("loop", compound(
			exprStmt(call("digitalWrite", numLit(13), ident("HIGH"))),
		)),
	)
	buf := newASTBuilder().build(tree)

	got, err := Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Root.Kind != NProgram {
		t.Fatalf("root kind = %v, want NProgram", got.Root.Kind)
	}
	if len(got.Root.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(got.Root.Children))
	}
	setupFn := got.Root.Children[0]
	if setupFn.Kind != NFuncDef || setupFn.Str != "setup" {
		t.Errorf("first decl = %+v, want NFuncDef setup", setupFn)
	}
	body := funcBody(setupFn)
	if body == nil || len(body.Children) != 1 {
		t.Fatalf("setup body = %+v", body)
	}
	callNode := body.Children[0].Children[0]
	if callNode.Kind != NCall || callNode.child(0).Str != "pinMode" {
		t.Errorf("decoded call = %+v", callNode)
	}
	if callNode.child(1).NumVal != 13 {
		t.Errorf("decoded literal arg = %d, want 13", callNode.child(1).NumVal)
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	buf := newASTBuilder().build(program(funcDef("loop", compound())))
	buf[0] ^= 0xFF
	if _, err := Load(buf); err == nil {
		t.Fatal("expected an error for corrupted magic")
	} else if _, ok := err.(*ASTFormatError); !ok {
		t.Errorf("expected *ASTFormatError, got %T: %v", err, err)
	}
}

func TestLoadRejectsTruncatedBuffer(t *testing.T) {
	buf := newASTBuilder().build(program(funcDef("loop", compound())))
	if _, err := Load(buf[:6]); err == nil {
		t.Fatal("expected an error for truncated header")
	} else if _, ok := err.(*ASTTruncatedError); !ok {
		t.Errorf("expected *ASTTruncatedError, got %T: %v", err, err)
	}
}

func TestLoadRejectsPreprocessorNode(t *testing.T) {
	tree := program(&Node{Kind: NPreprocessorDirective})
	buf := newASTBuilder().build(tree)
	if _, err := Load(buf); err == nil {
		t.Fatal("expected an error for a preprocessor-directive node")
	} else if fe, ok := err.(*ASTFormatError); !ok || fe.Reason == "" {
		t.Errorf("expected a descriptive *ASTFormatError, got %T: %v", err, err)
	}
}

func TestCollectFuncNames(t *testing.T) {
	tree := &Tree{Root: program(
		funcDef("setup", compound(exprStmt(call("pinMode")))),
		funcDef("loop", compound()),
	)}
	names := tree.collectFuncNames()
	if _, ok := names["setup"]; !ok {
		t.Error("expected setup in collected names")
	}
	if _, ok := names["loop"]; !ok {
		t.Error("expected loop in collected names")
	}
	if _, ok := names["missing"]; ok {
		t.Error("did not expect an unregistered name")
	}
}
