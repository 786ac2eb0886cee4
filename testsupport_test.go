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

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// newTestInterpreter builds an Interpreter with its runtime state wired up
// but no decoded tree, for unit tests that construct Node trees by hand and
// drive evalExpr/visitStmt/callIntrinsic directly rather than going through
// the compact binary loader (exercised separately in loader_test.go).
func newTestInterpreter(t *testing.T) *Interpreter {
	t.Helper()
	ip := &Interpreter{
		opts:            Options{MaxLoopIterations: 5},
		scope:           NewScope(),
		seed:            1,
		libraries:       newLibraryRegistry(),
		funcNames:       make(map[string]*Node),
		queuedResponses: make(map[string]Value),
		state:           StateRunning,
		allocCounter:    999,
		mallocCounter:   1999,
	}
	installArduinoConstants(ip.scope)
	return ip
}

// collectingSink records every Command it receives, in order, for
// assertions against the §6.4 command catalogue.
type collectingSink struct {
	commands []*Command
}

func (s *collectingSink) OnCommand(c *Command) { s.commands = append(s.commands, c) }

func (s *collectingSink) typesOf() []CommandType {
	types := make([]CommandType, len(s.commands))
	for i, c := range s.commands {
		types[i] = c.Type
	}
	return types
}

// --- Minimal Node builders, mirroring the shapes the compact AST decoder
// (loader.go) would have produced for the same source construct. ---

func numLit(i int32) *Node  { return &Node{Kind: NNumber, ValType: VTI32, NumVal: int64(i)} }
func fnumLit(f float64) *Node {
	return &Node{Kind: NNumber, ValType: VTF64, NumFloat: f}
}
func strLit(s string) *Node { return &Node{Kind: NString, Str: s} }
func ident(name string) *Node { return &Node{Kind: NIdentifier, Str: name} }

func binOp(op string, l, r *Node) *Node {
	return &Node{Kind: NBinary, Op: op, Children: []*Node{l, r}}
}

func assign(target, rhs *Node) *Node {
	return &Node{Kind: NAssign, Op: "=", Children: []*Node{target, rhs}}
}

func call(name string, args ...*Node) *Node {
	return &Node{Kind: NCall, Children: append([]*Node{ident(name)}, args...)}
}

func exprStmt(e *Node) *Node { return &Node{Kind: NExprStmt, Children: []*Node{e}} }

func compound(stmts ...*Node) *Node { return &Node{Kind: NCompoundStmt, Children: stmts} }

func varDecl(name, typeName string, init *Node) *Node {
	n := &Node{Kind: NVarDecl, Str: name, TypeName: typeName}
	if init != nil {
		n.Children = []*Node{init}
	}
	return n
}

// astBuilder encodes Node trees into the §4.1 compact binary AST format,
// mirroring the writer side of loader.go's reader so tests can exercise
// Load() and the full New()/Start() driver without a real upstream AST
// compiler. Grounded on kati's serialize.go dumpbuf writer, which this
// loader's reader was itself grounded on.
type astBuilder struct {
	strings []string
	index   map[string]uint32
}

func newASTBuilder() *astBuilder {
	return &astBuilder{index: make(map[string]uint32)}
}

func (b *astBuilder) strIndex(s string) uint32 {
	if idx, ok := b.index[s]; ok {
		return idx
	}
	idx := uint32(len(b.strings))
	b.strings = append(b.strings, s)
	b.index[s] = idx
	return idx
}

func (b *astBuilder) build(root *Node) []byte {
	var nodeBuf []byte
	count := 0
	b.encodeNode(root, &nodeBuf, &count)

	var out []byte
	out = append(out, le32(astMagic)...)
	out = append(out, le16(astVersion)...)
	out = append(out, le16(0)...) // flags

	out = append(out, le32(uint32(count))...)

	var strBuf []byte
	strBuf = append(strBuf, le32(uint32(len(b.strings)))...)
	for _, s := range b.strings {
		strBuf = append(strBuf, le16(uint16(len(s)))...)
		strBuf = append(strBuf, s...)
		strBuf = append(strBuf, 0)
	}
	out = append(out, le32(uint32(len(strBuf)))...)
	out = append(out, strBuf...)
	out = append(out, nodeBuf...)
	return out
}

func (b *astBuilder) encodeNode(n *Node, out *[]byte, count *int) {
	*count++
	*out = append(*out, byte(n.Kind))
	*out = append(*out, n.Flags)

	payload := b.encodePayload(n)
	*out = append(*out, le16(uint16(len(payload)))...)
	*out = append(*out, payload...)
	*out = append(*out, le16(uint16(len(n.Children)))...)
	for _, c := range n.Children {
		b.encodeNode(c, out, count)
	}
}

func (b *astBuilder) encodePayload(n *Node) []byte {
	switch n.Kind {
	case NNumber:
		var p []byte
		p = append(p, byte(n.ValType))
		switch n.ValType {
		case VTVoid:
		case VTBool:
			if n.NumVal != 0 {
				p = append(p, 1)
			} else {
				p = append(p, 0)
			}
		case VTI32, VTU32:
			p = append(p, le32(uint32(int32(n.NumVal)))...)
		case VTF64:
			p = append(p, le64(math.Float64bits(n.NumFloat))...)
		case VTString:
			idx := b.strIndex(n.Str)
			p = append(p, le32(idx)...)
		}
		return p
	case NIdentifier, NString, NChar, NWideChar, NWideString, NConstSymbol:
		idx := b.strIndex(n.Str)
		return le32(idx)
	case NBinary, NUnary, NAssign, NPostfix:
		idx := b.strIndex(n.Op)
		return le32(idx)
	case NTypeScalar, NTypeStruct, NTypeUnion, NTypeEnum, NTypeRef, NVarDecl:
		if n.TypeName == "" {
			return nil
		}
		idx := b.strIndex(n.TypeName)
		return le32(idx)
	}
	return nil
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// funcDef builds a top-level NFuncDef node for name with the given body.
func funcDef(name string, body *Node) *Node {
	return &Node{Kind: NFuncDef, Str: name, Children: []*Node{body}}
}

func program(decls ...*Node) *Node {
	return &Node{Kind: NProgram, Children: decls}
}

// diffStrings reports a human-readable diff between two command-stream
// transcripts, so a mismatch is easy to read instead of printing two
// long raw strings. No test in this package calls it. Grounded on kati's
// run_test.go, which compares kati's and GNU make's output the same way.
func diffStrings(t *testing.T, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(want, got, false)
	t.Errorf("mismatch:\n%s", dmp.DiffPrettyText(diffs))
}
