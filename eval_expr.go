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

import "strings"

// evalExpr is the single dispatching expression visitor of §4.5. Grounded
// on kati's Evalable.Eval (expr.go), generalized from per-type virtual
// methods (literal/varref/funcall AST types each implementing Eval) to one
// switch over Node.Kind, matching the compact AST's flat node-kind tag
// (§4.1) rather than reconstructed Go types per node.
func (ip *Interpreter) evalExpr(n *Node) (Value, error) {
	if n == nil {
		return VoidValue(), nil
	}
	switch n.Kind {
	case NNumber:
		return ip.evalNumberLiteral(n), nil
	case NString:
		return StringValue(n.Str), nil
	case NChar, NWideChar:
		if len(n.Str) == 0 {
			return I32Value(0), nil
		}
		return I32Value(int32(n.Str[0])), nil
	case NWideString:
		return StringValue(n.Str), nil
	case NIdentifier:
		return ip.evalIdentifier(n)
	case NConstSymbol:
		return ip.evalIdentifier(n)
	case NBinary:
		return ip.evalBinary(n)
	case NUnary:
		return ip.evalUnary(n)
	case NPostfix:
		return ip.evalPostfix(n)
	case NTernary:
		return ip.evalTernary(n)
	case NComma:
		var v Value
		for _, c := range n.Children {
			val, err := ip.evalExpr(c)
			if err != nil {
				return VoidValue(), err
			}
			v = val
		}
		return v, nil
	case NAssign:
		return ip.evalAssign(n)
	case NCall:
		return ip.evalCall(n)
	case NCtorCall, NNew:
		return ip.evalNew(n)
	case NMember:
		return ip.evalMember(n, false)
	case NArrow:
		return ip.evalMember(n, true)
	case NArrayAccess:
		return ip.evalArrayAccess(n)
	case NNamespaceAccess:
		return ip.evalIdentifier(n)
	case NCastC, NCastFunctional, NCastCpp:
		return ip.evalCast(n)
	case NArrayInit, NDesignatedInit:
		return ip.evalArrayInit(n)
	case NRange:
		return VoidValue(), nil
	case NLambda:
		return VoidValue(), nil
	case NErrorNode:
		return VoidValue(), nil
	}
	return VoidValue(), nil
}

func (ip *Interpreter) evalNumberLiteral(n *Node) Value {
	switch n.ValType {
	case VTVoid:
		return VoidValue()
	case VTBool:
		return BoolValue(n.NumVal != 0)
	case VTF32, VTF64:
		return F64Value(n.NumFloat)
	case VTString:
		idx := int(n.NumVal)
		if idx >= 0 && idx < len(ip.tree.Strings) {
			return StringValue(ip.tree.Strings[idx])
		}
		return StringValue("")
	default:
		return I32Value(int32(n.NumVal))
	}
}

// evalIdentifier implements §4.5's identifier rule: lookup, diagnosing
// UnknownSymbol if missing. Pre-declared Arduino constants are installed
// into frame 0 before execution starts (constants.go), so they resolve
// through the same lookup path as user globals.
func (ip *Interpreter) evalIdentifier(n *Node) (Value, error) {
	v, ok := ip.scope.Lookup(n.Str)
	if !ok {
		return VoidValue(), newError(ErrUnknownSymbol, n.pos(), "unknown symbol %q", n.Str)
	}
	return v.Value, nil
}

func (ip *Interpreter) evalBinary(n *Node) (Value, error) {
	switch n.Op {
	case "&&":
		l, err := ip.evalExpr(n.child(0))
		if err != nil {
			return VoidValue(), err
		}
		if !l.CoerceBool() {
			return BoolValue(false), nil
		}
		r, err := ip.evalExpr(n.child(1))
		if err != nil {
			return VoidValue(), err
		}
		return BoolValue(r.CoerceBool()), nil
	case "||":
		l, err := ip.evalExpr(n.child(0))
		if err != nil {
			return VoidValue(), err
		}
		if l.CoerceBool() {
			return BoolValue(true), nil
		}
		r, err := ip.evalExpr(n.child(1))
		if err != nil {
			return VoidValue(), err
		}
		return BoolValue(r.CoerceBool()), nil
	}

	l, err := ip.evalExpr(n.child(0))
	if err != nil {
		return VoidValue(), err
	}
	r, err := ip.evalExpr(n.child(1))
	if err != nil {
		return VoidValue(), err
	}
	return ip.applyBinaryOp(n.Op, l, r, n.pos())
}

func (ip *Interpreter) applyBinaryOp(op string, l, r Value, pos SourcePos) (Value, error) {
	switch op {
	case "+":
		if l.Tag == TagString || r.Tag == TagString || l.Tag == TagStringObject || r.Tag == TagStringObject {
			b := getBuf()
			b.WriteString(l.CoerceString())
			b.WriteString(r.CoerceString())
			s := b.String()
			b.release()
			return StringValue(s), nil
		}
		return F64Value(l.CoerceDouble() + r.CoerceDouble()), nil
	case "-":
		return F64Value(l.CoerceDouble() - r.CoerceDouble()), nil
	case "*":
		return F64Value(l.CoerceDouble() * r.CoerceDouble()), nil
	case "/":
		rv := r.CoerceDouble()
		if rv == 0 {
			return VoidValue(), newError(ErrDivisionByZero, pos, "division by zero")
		}
		return F64Value(l.CoerceDouble() / rv), nil
	case "%":
		ri := r.CoerceInt()
		if ri == 0 {
			return VoidValue(), newError(ErrDivisionByZero, pos, "division by zero")
		}
		return I32Value(l.CoerceInt() % ri), nil
	case "&":
		return I32Value(l.CoerceInt() & r.CoerceInt()), nil
	case "|":
		return I32Value(l.CoerceInt() | r.CoerceInt()), nil
	case "^":
		return I32Value(l.CoerceInt() ^ r.CoerceInt()), nil
	case "<<":
		return I32Value(l.CoerceInt() << uint(r.CoerceInt())), nil
	case ">>":
		return I32Value(l.CoerceInt() >> uint(r.CoerceInt())), nil
	case "==":
		return BoolValue(ValuesEqual(l, r)), nil
	case "!=":
		return BoolValue(!ValuesEqual(l, r)), nil
	case "<":
		return BoolValue(l.CoerceDouble() < r.CoerceDouble()), nil
	case "<=":
		return BoolValue(l.CoerceDouble() <= r.CoerceDouble()), nil
	case ">":
		return BoolValue(l.CoerceDouble() > r.CoerceDouble()), nil
	case ">=":
		return BoolValue(l.CoerceDouble() >= r.CoerceDouble()), nil
	}
	return VoidValue(), newError(ErrType, pos, "unsupported binary operator %q", op)
}

func (ip *Interpreter) evalUnary(n *Node) (Value, error) {
	switch n.Op {
	case "&":
		return ip.evalAddressOf(n.child(0))
	case "*":
		v, err := ip.evalExpr(n.child(0))
		if err != nil {
			return VoidValue(), err
		}
		if v.Tag != TagPointer || v.Ptr.Target == nil {
			return VoidValue(), newError(ErrNullPointer, n.pos(), "dereference of null pointer")
		}
		return *v.Ptr.Target, nil
	case "++", "--":
		return ip.evalIncDec(n.child(0), n.Op == "++", true)
	}
	v, err := ip.evalExpr(n.child(0))
	if err != nil {
		return VoidValue(), err
	}
	switch n.Op {
	case "+":
		return F64Value(v.CoerceDouble()), nil
	case "-":
		return F64Value(-v.CoerceDouble()), nil
	case "!":
		return BoolValue(!v.CoerceBool()), nil
	case "~":
		return I32Value(^v.CoerceInt()), nil
	}
	return VoidValue(), newError(ErrType, n.pos(), "unsupported unary operator %q", n.Op)
}

func (ip *Interpreter) evalPostfix(n *Node) (Value, error) {
	return ip.evalIncDec(n.child(0), n.Op == "++", false)
}

// evalIncDec implements prefix/postfix ++/-- (§4.5): both require an
// l-value. prefix returns the updated value; postfix returns the prior one.
func (ip *Interpreter) evalIncDec(target *Node, inc, prefix bool) (Value, error) {
	old, err := ip.evalExpr(target)
	if err != nil {
		return VoidValue(), err
	}
	delta := -1.0
	if inc {
		delta = 1.0
	}
	var updated Value
	if old.Tag == TagF64 {
		updated = F64Value(old.F64 + delta)
	} else {
		updated = I32Value(old.CoerceInt() + int32(delta))
	}
	if err := ip.assignTo(target, updated); err != nil {
		return VoidValue(), err
	}
	if prefix {
		return updated, nil
	}
	return old, nil
}

func (ip *Interpreter) evalTernary(n *Node) (Value, error) {
	cond, err := ip.evalExpr(n.child(0))
	if err != nil {
		return VoidValue(), err
	}
	if cond.CoerceBool() {
		return ip.evalExpr(n.child(1))
	}
	return ip.evalExpr(n.child(2))
}

// evalAssign implements assignment-as-expression (§4.5: "assignment ...
// returns the assigned value") and compound assignment (§4.5: "evaluated
// as x = x op y").
func (ip *Interpreter) evalAssign(n *Node) (Value, error) {
	target := n.child(0)
	rhs := n.child(1)
	rv, err := ip.evalExpr(rhs)
	if err != nil {
		return VoidValue(), err
	}
	if n.Op != "" && n.Op != "=" {
		op := n.Op[:len(n.Op)-1]
		cur, err := ip.evalExpr(target)
		if err != nil {
			return VoidValue(), err
		}
		rv, err = ip.applyBinaryOp(op, cur, rv, n.pos())
		if err != nil {
			return VoidValue(), err
		}
	}
	if err := ip.assignTo(target, rv); err != nil {
		return VoidValue(), err
	}
	return rv, nil
}

func (ip *Interpreter) evalAddressOf(target *Node) (Value, error) {
	if target.Kind != NIdentifier {
		return VoidValue(), newError(ErrType, target.pos(), "cannot take address of non-identifier")
	}
	v, ok := ip.scope.Lookup(target.Str)
	if !ok {
		return VoidValue(), newError(ErrUnknownSymbol, target.pos(), "unknown symbol %q", target.Str)
	}
	val := v.Value
	return PointerValue(Pointer{Target: &val, TargetType: v.TypeName, Indirection: 1}), nil
}

// evalMember implements §4.5's member-access rule: struct field read when
// the receiver is a struct, else a composite-key fallback (`obj_field`)
// simulating a pseudo-object (§9's composite-key simulation strategy).
// `->` requires a pointer and dereferences first.
func (ip *Interpreter) evalMember(n *Node, arrow bool) (Value, error) {
	recv := n.child(0)
	rv, err := ip.evalExpr(recv)
	if err != nil {
		return VoidValue(), err
	}
	if arrow {
		if rv.Tag != TagPointer || rv.Ptr.Target == nil {
			return VoidValue(), newError(ErrNullPointer, n.pos(), "member access through null pointer")
		}
		rv = *rv.Ptr.Target
	}
	if rv.Tag == TagStruct {
		if fv, ok := rv.Struct[n.Str]; ok {
			return fv, nil
		}
		return VoidValue(), nil
	}
	if recv.Kind == NIdentifier {
		key := recv.Str + "_" + n.Str
		if v, ok := ip.scope.Lookup(key); ok {
			return v.Value, nil
		}
	}
	return VoidValue(), nil
}

func (ip *Interpreter) evalArrayAccess(n *Node) (Value, error) {
	arr, err := ip.evalExpr(n.child(0))
	if err != nil {
		return VoidValue(), err
	}
	idxs := make([]int, 0, len(n.Children)-1)
	for _, c := range n.Children[1:] {
		iv, err := ip.evalExpr(c)
		if err != nil {
			return VoidValue(), err
		}
		idxs = append(idxs, int(iv.CoerceInt()))
	}
	if arr.Tag != TagArray || arr.Array == nil {
		return VoidValue(), newError(ErrType, n.pos(), "array access on non-array value")
	}
	v, ok := arr.Array.Get(idxs...)
	if !ok {
		return VoidValue(), newError(ErrBounds, n.pos(), "array index out of bounds")
	}
	return v, nil
}

func (ip *Interpreter) evalCast(n *Node) (Value, error) {
	v, err := ip.evalExpr(n.child(0))
	if err != nil {
		return VoidValue(), err
	}
	return ConvertTo(v, n.TypeName), nil
}

func (ip *Interpreter) evalNew(n *Node) (Value, error) {
	return ip.newAllocation(n.TypeName), nil
}

func (ip *Interpreter) evalArrayInit(n *Node) (Value, error) {
	elems := make([]Value, 0, len(n.Children))
	for _, c := range n.Children {
		v, err := ip.evalExpr(c)
		if err != nil {
			return VoidValue(), err
		}
		elems = append(elems, v)
	}
	return ArrayValue(&Array{ElemType: n.TypeName, Dims: []int{len(elems)}, Elems: elems}), nil
}

// evalCall implements §4.5/§4.7 call dispatch: identifier callee resolves
// user function → core intrinsic → UnknownFunction; member-access callee
// tries the library registry first, then falls back to a qualified
// `obj.method` intrinsic lookup.
func (ip *Interpreter) evalCall(n *Node) (Value, error) {
	callee := n.child(0)
	args := make([]Value, 0, len(n.Children)-1)
	for _, c := range n.Children[1:] {
		v, err := ip.evalExpr(c)
		if err != nil {
			return VoidValue(), err
		}
		args = append(args, v)
	}

	switch callee.Kind {
	case NIdentifier:
		if fn, ok := ip.funcNames[callee.Str]; ok {
			return ip.callUserFunction(fn, args)
		}
		return ip.callIntrinsic(callee.Str, args, n)
	case NMember, NArrow:
		recv := callee.child(0)
		if recv.Kind == NIdentifier {
			if v, handled, err := ip.callLibraryMethod(recv.Str, callee.Str, args, n); handled || err != nil {
				return v, err
			}
			return ip.callIntrinsic(recv.Str+"."+callee.Str, args, n)
		}
	case NNamespaceAccess:
		if obj, method, ok := splitQualified(strings.ReplaceAll(callee.Str, "::", ".")); ok {
			if v, handled, err := ip.callLibraryMethod(obj, method, args, n); handled || err != nil {
				return v, err
			}
		}
		return ip.callIntrinsic(callee.Str, args, n)
	}
	return VoidValue(), newError(ErrUnknownFunction, n.pos(), "unknown function")
}

func mathMapF(v, fromLow, fromHigh, toLow, toHigh float64) float64 {
	if fromHigh == fromLow {
		return toLow
	}
	return (v-fromLow)*(toHigh-toLow)/(fromHigh-fromLow) + toLow
}

func clampF(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
