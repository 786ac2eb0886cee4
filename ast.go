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

// NodeKind tags every node of the compact AST (§3.4). Grounded on kati's
// per-struct AST (ast.go: AssignAST, MaybeRuleAST, IfAST, ...) generalized
// from "one Go type per kind with its own eval method" to "one Go type
// (Node) with a Kind tag and a single dispatching visitor", since the
// compact AST loader (§4.1) decodes a flat kind byte per node rather than
// reconstructing distinct Go types per kind.
type NodeKind uint8

const (
	NProgram NodeKind = iota
	NCompoundStmt
	NExprStmt

	// Declarations.
	NVarDecl
	NFuncDef
	NFuncDecl
	NTypedef
	NStructDecl
	NUnionDecl
	NEnumDecl
	NEnumMember
	NTemplateParam
	NCtorDecl
	NMemberFuncDecl

	// Declarators.
	NDeclaratorPlain
	NDeclaratorArray
	NDeclaratorPointer
	NDeclaratorFuncPtr

	// Type nodes.
	NTypeScalar
	NTypeStruct
	NTypeUnion
	NTypeEnum
	NTypeRef

	// Statements.
	NIf
	NWhile
	NDoWhile
	NFor
	NRangeFor
	NSwitch
	NCase
	NBreak
	NContinue
	NReturn
	NEmptyStmt

	// Expressions.
	NBinary
	NUnary
	NPostfix
	NTernary
	NComma
	NAssign
	NCall
	NCtorCall
	NNew
	NMember
	NArrow
	NArrayAccess
	NNamespaceAccess
	NCastC
	NCastFunctional
	NCastCpp
	NDesignatedInit
	NRange
	NArrayInit
	NLambda

	// Literals.
	NNumber
	NString
	NChar
	NWideChar
	NWideString
	NConstSymbol
	NIdentifier

	// Misc.
	NErrorNode
	NComment
	NPreprocessorDirective
)

// ValueType is the payload tag for number-literal nodes (§4.1).
type ValueType uint8

const (
	VTVoid   ValueType = 0x00
	VTBool   ValueType = 0x01
	VTI8     ValueType = 0x02
	VTU8     ValueType = 0x03
	VTI16    ValueType = 0x04
	VTU16    ValueType = 0x05
	VTI32    ValueType = 0x06
	VTU32    ValueType = 0x07
	VTI64    ValueType = 0x08
	VTU64    ValueType = 0x09
	VTF32    ValueType = 0x0A
	VTF64    ValueType = 0x0B
	VTString ValueType = 0x0C
)

// Node is one node of the decoded AST tree (§3.4). Every internal node
// owns its children; the tree is acyclic.
type Node struct {
	Kind     NodeKind
	Flags    uint8
	Children []*Node

	// Payload, populated per Kind (§4.1):
	//  - number literals: ValType + NumVal (int) / NumFloat (float64)
	//  - identifiers/strings: Str (resolved from the string table)
	//  - binary/unary/operator-bearing nodes: Op
	//  - type nodes: TypeName
	ValType  ValueType
	NumVal   int64
	NumFloat float64
	Str      string
	Op       string
	TypeName string

	// Index is this node's pre-order position, used as a stand-in source
	// position (§7: the compact AST carries no line/column spans) and as
	// the correlation key for error reporting.
	Index int
}

func (n *Node) child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

func (n *Node) pos() SourcePos { return SourcePos{NodeIndex: n.Index} }

// Tree is a decoded compact AST plus its string table (§4.1 output).
type Tree struct {
	Root    *Node
	Strings []string
}

// findFunc returns the top-level NFuncDef whose name matches. The
// execution driver (§4.9) finds `setup`/`loop` through the
// collectFuncNames map instead.
func (t *Tree) findFunc(name string) *Node {
	if t == nil || t.Root == nil {
		return nil
	}
	for _, decl := range t.Root.Children {
		if decl.Kind != NFuncDef {
			continue
		}
		if decl.Str == name {
			return decl
		}
	}
	return nil
}

// funcBody returns a NFuncDef node's compound-statement body, if any.
func funcBody(n *Node) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Kind == NCompoundStmt {
			return c
		}
	}
	return nil
}

// funcParams returns a NFuncDef/NFuncDecl node's parameter declarator
// children, i.e. every child before the body.
func funcParams(n *Node) []*Node {
	if n == nil {
		return nil
	}
	var params []*Node
	for _, c := range n.Children {
		if c.Kind == NCompoundStmt {
			break
		}
		params = append(params, c)
	}
	return params
}

// collectFuncNames implements §4.9 Phase 1: a first pass over top-level
// declarations collecting user function names, so calls can be resolved
// to user functions before intrinsics/library methods (§4.7 dispatch
// order) even if the call appears lexically before the definition.
func (t *Tree) collectFuncNames() map[string]*Node {
	names := make(map[string]*Node)
	if t == nil || t.Root == nil {
		return names
	}
	for _, decl := range t.Root.Children {
		if decl.Kind == NFuncDef || decl.Kind == NFuncDecl {
			names[decl.Str] = decl
		}
	}
	return names
}
