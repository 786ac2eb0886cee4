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
	"strconv"
	"strings"
)

// errBreak and errContinue are sentinel control-flow signals threaded
// through visitStmt's error return, mirroring kati's approach of using a
// distinguished error type (errTarget) for non-fatal control transfers
// rather than a second return channel.
var (
	errBreak    = &controlSignal{"break"}
	errContinue = &controlSignal{"continue"}
)

type controlSignal struct{ name string }

func (c *controlSignal) Error() string { return c.name }

// returnSignal unwinds the visitor stack up to the enclosing function
// call (§4.6 return), carrying the returned value.
type returnSignal struct{ value Value }

func (r *returnSignal) Error() string { return "return" }

type switchFrame struct {
	value       Value
	fallthrough_ bool
	matched     bool
}

// visitStmt is the single dispatching statement visitor of §4.6.
func (ip *Interpreter) visitStmt(n *Node) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case NCompoundStmt:
		ip.scope.Push()
		defer ip.scope.Pop()
		for _, c := range n.Children {
			if err := ip.visitStmt(c); err != nil {
				return err
			}
		}
		return nil
	case NExprStmt:
		_, err := ip.evalExprStmt(n.child(0))
		return err
	case NVarDecl:
		return ip.visitVarDecl(n)
	case NIf:
		return ip.visitIf(n)
	case NWhile:
		return ip.visitWhile(n)
	case NDoWhile:
		return ip.visitDoWhile(n)
	case NFor:
		return ip.visitFor(n)
	case NRangeFor:
		return ip.visitRangeFor(n)
	case NSwitch:
		return ip.visitSwitch(n)
	case NCase:
		return ip.visitCaseBody(n)
	case NBreak:
		ip.emit(CmdBreakStatement, func(c *Command) { c.SetString("message", "break") })
		return errBreak
	case NContinue:
		ip.emit(CmdContinueStatement, func(c *Command) { c.SetString("message", "continue") })
		return errContinue
	case NReturn:
		var v Value
		if len(n.Children) > 0 {
			rv, err := ip.evalExpr(n.child(0))
			if err != nil {
				ip.reportError(err, n)
				v = VoidValue()
			} else {
				v = rv
			}
		}
		return &returnSignal{value: v}
	case NEmptyStmt, NTypedef, NStructDecl, NUnionDecl, NEnumDecl, NFuncDecl, NComment:
		return nil
	case NFuncDef:
		return nil
	}
	return nil
}

// evalExprStmt evaluates a top-level expression-statement, converting a
// recoverable evaluation error into an emitted ERROR command with void
// result rather than propagating it (§7: "expression evaluation failures
// ... emit an ERROR command and yield void; execution continues").
func (ip *Interpreter) evalExprStmt(n *Node) (Value, error) {
	v, err := ip.evalExpr(n)
	if err == nil {
		return v, nil
	}
	if isControlErr(err) {
		return VoidValue(), err
	}
	ip.reportError(err, n)
	return VoidValue(), nil
}

func isControlErr(err error) bool {
	switch err.(type) {
	case *controlSignal, *returnSignal:
		return true
	}
	return false
}

func (ip *Interpreter) reportError(err error, n *Node) {
	kind := ErrRuntime
	if re, ok := err.(*RuntimeError); ok {
		kind = re.Kind
	}
	msg := err.Error()
	if n != nil {
		msg = "at node " + strconv.Itoa(n.Index) + ": " + msg
	}
	ip.stats.onError()
	ip.emit(CmdError, func(c *Command) {
		c.SetString("errorType", string(kind))
		c.SetString("message", msg)
	})
}

// visitVarDecl implements §4.6's variable-declaration rule: parse type
// modifiers, evaluate or default-initialize, enforce a soft memory budget,
// bind a reference immediately if declared as one, and always emit a
// VAR_SET (even for default-initialized declarations), to match the
// reference emission stream.
func (ip *Interpreter) visitVarDecl(n *Node) error {
	isConst, isStatic, isRef := parseTypeModifiers(n.TypeName)

	if isRef {
		target := n.Str
		if len(n.Children) > 0 && n.child(0).Kind == NIdentifier {
			target = n.child(0).Str
		}
		if !ip.scope.MakeReference(n.Str, target) {
			ip.reportError(newError(ErrUnknownSymbol, n.pos(), "reference target %q not found", target), n)
			return nil
		}
		v, _ := ip.scope.Lookup(n.Str)
		ip.emitVarSet(n.Str, v.Value, isConst)
		return nil
	}

	var val Value
	if len(n.Children) > 0 {
		ev, err := ip.evalExprStmt(n.child(0))
		if err != nil {
			return err
		}
		val = ConvertTo(ev, n.TypeName)
	} else {
		val = DefaultFor(n.TypeName)
	}

	if !ip.checkMemoryBudget(val) {
		ip.reportError(newError(ErrMemory, n.pos(), "memory budget exceeded declaring %q", n.Str), n)
		if !ip.opts.SafeMode() {
			return nil
		}
		val = VoidValue()
	}

	ip.scope.Declare(n.Str, Variable{
		Name:     n.Str,
		Value:    val,
		TypeName: n.TypeName,
		Const:    isConst,
		Static:   isStatic,
	})
	ip.libraries.bindInstance(n.Str, n.TypeName)
	ip.emitVarSet(n.Str, val, isConst)
	return nil
}

func (ip *Interpreter) emitVarSet(name string, v Value, isConst bool) {
	ip.emit(CmdVarSet, func(c *Command) {
		c.Set("variable", FString(name))
		c.Set("value", FieldFromValue(v))
		if isConst {
			c.SetBool("isConst", true)
		}
	})
}

// parseTypeModifiers implements §9's deferred-precision policy: the
// declared-type string may contain `const`, `static`, `&` anywhere, so a
// substring scan (not a structured parse) is sufficient and matches what
// the upstream AST writer guarantees.
func parseTypeModifiers(typeName string) (isConst, isStatic, isRef bool) {
	return strings.Contains(typeName, "const"),
		strings.Contains(typeName, "static"),
		strings.Contains(typeName, "&")
}

func (ip *Interpreter) checkMemoryBudget(v Value) bool {
	sz := int64(SizeOf(v))
	if ip.memUsed+sz > ip.opts.memoryBudget() {
		return false
	}
	ip.memUsed += sz
	return true
}

// assignTo implements §4.6's assignment-target rule: identifier, array
// element (single- or multi-dim), member access, or pointer dereference
// (tracked under a synthetic `*p` composite key per §9).
func (ip *Interpreter) assignTo(target *Node, v Value) error {
	switch target.Kind {
	case NIdentifier:
		if !ip.scope.Assign(target.Str, v) {
			return newError(ErrUnknownSymbol, target.pos(), "assignment to unknown or const symbol %q", target.Str)
		}
		return nil
	case NArrayAccess:
		arrv, err := ip.evalExpr(target.child(0))
		if err != nil {
			return err
		}
		if arrv.Tag != TagArray || arrv.Array == nil {
			return newError(ErrType, target.pos(), "array assignment on non-array value")
		}
		idxs := make([]int, 0, len(target.Children)-1)
		for _, c := range target.Children[1:] {
			iv, err := ip.evalExpr(c)
			if err != nil {
				return err
			}
			idxs = append(idxs, int(iv.CoerceInt()))
		}
		if !arrv.Array.Set(v, idxs...) {
			return newError(ErrBounds, target.pos(), "array index out of bounds")
		}
		return nil
	case NMember, NArrow:
		recv := target.child(0)
		rv, err := ip.evalExpr(recv)
		if err != nil {
			return err
		}
		if target.Kind == NArrow {
			if rv.Tag != TagPointer || rv.Ptr.Target == nil {
				return newError(ErrNullPointer, target.pos(), "member assignment through null pointer")
			}
			*rv.Ptr.Target = assignField(*rv.Ptr.Target, target.Str, v)
			return nil
		}
		if rv.Tag == TagStruct && recv.Kind == NIdentifier {
			sv, _ := ip.scope.Lookup(recv.Str)
			sv.Value = assignField(sv.Value, target.Str, v)
			return nil
		}
		if recv.Kind == NIdentifier {
			key := recv.Str + "_" + target.Str
			if !ip.scope.Assign(key, v) {
				ip.scope.Declare(key, Variable{Name: key, Value: v})
			}
			return nil
		}
		return newError(ErrType, target.pos(), "unsupported member assignment target")
	case NUnary:
		if target.Op == "*" {
			key := "*" + ip.derefKey(target.child(0))
			if !ip.scope.Assign(key, v) {
				ip.scope.Declare(key, Variable{Name: key, Value: v})
			}
			inner, err := ip.evalExpr(target.child(0))
			if err == nil && inner.Tag == TagPointer && inner.Ptr.Target != nil {
				*inner.Ptr.Target = v
			}
			return nil
		}
	}
	return newError(ErrType, target.pos(), "invalid assignment target")
}

func (ip *Interpreter) derefKey(n *Node) string {
	if n.Kind == NIdentifier {
		return n.Str
	}
	return "tmp"
}

func assignField(v Value, field string, fv Value) Value {
	if v.Tag != TagStruct {
		v = StructValue(map[string]Value{})
	}
	if v.Struct == nil {
		v.Struct = map[string]Value{}
	}
	v.Struct[field] = fv
	return v
}

func (ip *Interpreter) visitIf(n *Node) error {
	cond, err := ip.evalExprStmt(n.child(0))
	if err != nil {
		return err
	}
	result := cond.CoerceBool()
	branch := "else"
	if result {
		branch = "then"
	}
	ip.emit(CmdIfStatement, func(c *Command) {
		c.Set("condition", FieldFromValue(cond))
		c.SetBool("result", result)
		c.SetString("branch", branch)
	})
	if result {
		return ip.visitStmt(n.child(1))
	}
	if n.child(2) != nil {
		return ip.visitStmt(n.child(2))
	}
	return nil
}

// loopBudget returns the configured iteration cap (§4.9), applied
// uniformly to while/do-while/for loops in addition to the top-level
// loop() iteration count.
func (ip *Interpreter) loopBudget() int {
	return ip.opts.maxLoopIterations()
}

func (ip *Interpreter) visitWhile(n *Node) error {
	i := 0
	for {
		cond, err := ip.evalExprStmt(n.child(0))
		if err != nil {
			return err
		}
		if !cond.CoerceBool() {
			return nil
		}
		i++
		if i > ip.loopBudget() {
			ip.emit(CmdLoopEndComplete, func(c *Command) {
				c.SetI32("iterations", int32(i-1))
				c.SetBool("limitReached", true)
				c.SetString("message", "loop iteration cap reached")
			})
			return nil
		}
		ip.emit(CmdLoopStart, func(c *Command) { c.SetString("message", "Starting loop iteration "+strconv.Itoa(i)) })
		if err := ip.runLoopBody(n.child(1)); err != nil {
			if err == errBreak {
				ip.emitLoopEnd(i, false)
				return nil
			}
			if err != errContinue {
				return err
			}
		}
		ip.emitLoopEnd(i, false)
	}
}

func (ip *Interpreter) visitDoWhile(n *Node) error {
	i := 0
	for {
		i++
		ip.emit(CmdLoopStart, func(c *Command) { c.SetString("message", "Starting loop iteration "+strconv.Itoa(i)) })
		brk := false
		if err := ip.runLoopBody(n.child(0)); err != nil {
			if err == errBreak {
				brk = true
			} else if err != errContinue {
				return err
			}
		}
		ip.emitLoopEnd(i, false)
		if brk {
			return nil
		}
		if i >= ip.loopBudget() {
			ip.emit(CmdLoopEndComplete, func(c *Command) {
				c.SetI32("iterations", int32(i))
				c.SetBool("limitReached", true)
				c.SetString("message", "loop iteration cap reached")
			})
			return nil
		}
		cond, err := ip.evalExprStmt(n.child(1))
		if err != nil {
			return err
		}
		if !cond.CoerceBool() {
			return nil
		}
	}
}

// visitFor implements §4.6's for-loop rule: push a scope for the declared
// loop variable, pop it on exit.
func (ip *Interpreter) visitFor(n *Node) error {
	ip.scope.Push()
	defer ip.scope.Pop()
	if n.child(0) != nil {
		if err := ip.visitStmt(n.child(0)); err != nil {
			return err
		}
	}
	i := 0
	for {
		if n.child(1) != nil {
			cond, err := ip.evalExprStmt(n.child(1))
			if err != nil {
				return err
			}
			if !cond.CoerceBool() {
				return nil
			}
		}
		i++
		if i > ip.loopBudget() {
			ip.emit(CmdLoopEndComplete, func(c *Command) {
				c.SetI32("iterations", int32(i-1))
				c.SetBool("limitReached", true)
				c.SetString("message", "loop iteration cap reached")
			})
			return nil
		}
		ip.emit(CmdLoopStart, func(c *Command) { c.SetString("message", "Starting loop iteration "+strconv.Itoa(i)) })
		brk := false
		if err := ip.runLoopBody(n.child(3)); err != nil {
			if err == errBreak {
				brk = true
			} else if err != errContinue {
				return err
			}
		}
		ip.emitLoopEnd(i, false)
		if brk {
			return nil
		}
		if n.child(2) != nil {
			if _, err := ip.evalExprStmt(n.child(2)); err != nil {
				return err
			}
		}
	}
}

// visitRangeFor implements §4.6's range-for rule over the iterable kinds
// enumerated there: string (chars), int/double (0..n-1, capped at 1000),
// array (elements), string-object (chars), or a single-element fallback.
func (ip *Interpreter) visitRangeFor(n *Node) error {
	iterable, err := ip.evalExprStmt(n.child(1))
	if err != nil {
		return err
	}
	varName := n.Str
	items := ip.rangeItems(iterable)
	for i, item := range items {
		ip.scope.Push()
		ip.scope.Declare(varName, Variable{Name: varName, Value: item})
		err := ip.runLoopBody(n.child(2))
		ip.scope.Pop()
		if err != nil {
			if err == errBreak {
				break
			}
			if err != errContinue {
				return err
			}
		}
		_ = i
	}
	return nil
}

func (ip *Interpreter) rangeItems(v Value) []Value {
	const cap_ = 1000
	switch v.Tag {
	case TagString:
		items := make([]Value, 0, len(v.Str))
		for i := 0; i < len(v.Str); i++ {
			items = append(items, I32Value(int32(v.Str[i])))
		}
		return items
	case TagStringObject:
		if v.SObj == nil {
			return nil
		}
		items := make([]Value, 0, len(v.SObj.Data))
		for i := 0; i < len(v.SObj.Data); i++ {
			items = append(items, I32Value(int32(v.SObj.Data[i])))
		}
		return items
	case TagI32:
		n := int(v.I32)
		if n > cap_ {
			n = cap_
		}
		items := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			items = append(items, I32Value(int32(i)))
		}
		return items
	case TagF64:
		n := int(v.F64)
		if n > cap_ {
			n = cap_
		}
		items := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			items = append(items, I32Value(int32(i)))
		}
		return items
	case TagArray:
		if v.Array == nil {
			return nil
		}
		return append([]Value(nil), v.Array.Elems...)
	default:
		return []Value{v}
	}
}

// runLoopBody wraps a loop body visit with the per-iteration loop-stats
// counter (§4.6: break/continue flags are reset per iteration; pause/step
// only take effect between top-level invocations, see driver.go).
func (ip *Interpreter) runLoopBody(body *Node) error {
	ip.stats.onLoopIter()
	return ip.visitStmt(body)
}

func (ip *Interpreter) emitLoopEnd(iteration int, limitReached bool) {
	ip.emit(CmdLoopEnd, func(c *Command) {
		c.SetI32("iterations", int32(iteration))
		c.SetBool("limitReached", limitReached)
		c.SetString("message", "loop iteration complete")
	})
}

// visitSwitch implements §4.6's switch/case rule: evaluate the
// discriminant, store it, visit the body so each NCase compares its label
// using §4.2 equality, enabling fallthrough on match until a break clears it.
func (ip *Interpreter) visitSwitch(n *Node) error {
	disc, err := ip.evalExprStmt(n.child(0))
	if err != nil {
		return err
	}
	ip.emit(CmdSwitchStatement, func(c *Command) { c.Set("discriminant", FieldFromValue(disc)) })
	ip.switchStack = append(ip.switchStack, switchFrame{value: disc})
	defer func() { ip.switchStack = ip.switchStack[:len(ip.switchStack)-1] }()

	body := n.child(1)
	if body == nil {
		return nil
	}
	for _, c := range body.Children {
		if c.Kind != NCase {
			if ip.currentSwitch().fallthrough_ {
				if err := ip.visitStmt(c); err != nil {
					if err == errBreak {
						ip.currentSwitch().fallthrough_ = false
						return nil
					}
					return err
				}
			}
			continue
		}
		if err := ip.visitCaseBody(c); err != nil {
			if err == errBreak {
				return nil
			}
			return err
		}
	}
	return nil
}

func (ip *Interpreter) currentSwitch() *switchFrame {
	return &ip.switchStack[len(ip.switchStack)-1]
}

func (ip *Interpreter) visitCaseBody(n *Node) error {
	sf := ip.currentSwitch()
	matched := sf.fallthrough_
	isDefault := len(n.Children) == 0 || n.child(0) == nil
	var label Value
	bodyStart := 0
	if !isDefault {
		lv, err := ip.evalExpr(n.child(0))
		if err != nil {
			return err
		}
		label = lv
		bodyStart = 1
		if !matched {
			matched = ValuesEqual(sf.value, label)
		}
		ip.emit(CmdSwitchCase, func(c *Command) {
			c.Set("caseValue", FieldFromValue(label))
			c.SetBool("matched", matched)
		})
	} else {
		matched = true
	}
	if matched {
		sf.fallthrough_ = true
	}
	if !matched {
		return nil
	}
	for _, c := range n.Children[bodyStart:] {
		if err := ip.visitStmt(c); err != nil {
			return err
		}
	}
	return nil
}

