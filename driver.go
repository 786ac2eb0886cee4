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

import "strconv"

const interpVersion = "1.0.0"

// errSuspended unwinds the visitor stack up to runInvocation when a
// request intrinsic (§4.7) has no cached answer yet, without a worker
// goroutine to park: the current invocation attempt simply aborts, and
// the interpreter returns to the host WAITING_FOR_RESPONSE (§4.8).
var errSuspended = &controlSignal{"suspended"}

// drive runs the §4.9 phase state machine (Phase 1: collect function
// names; Phase 2: setup(); Phase 3: loop(), capped) to the next
// suspension point or to completion, entirely synchronously. It is called
// from Start, ResumeRun, Step, Tick, and HandleResponse/resolveAndResume
// — never from a dedicated goroutine (§5: "the interpreter never creates
// threads") — so re-entering it after a request intrinsic resolves is
// just another ordinary call.
func (ip *Interpreter) drive() {
	for {
		switch ip.phase {
		case phaseNotStarted:
			ip.emit(CmdVersionInfo, func(c *Command) {
				c.SetString("component", "ast-interpreter")
				c.SetString("version", interpVersion)
				c.SetString("status", "ok")
			})
			ip.emit(CmdProgramStart, msg("Program started"))
			ip.funcNames = ip.tree.collectFuncNames()
			ip.phase = phaseSetup

		case phaseSetup:
			if ip.pauseCheckpoint() {
				return
			}
			setupFn, ok := ip.funcNames["setup"]
			if !ok {
				ip.phase = phaseLoopInit
				continue
			}
			done, err := ip.runInvocation(func() error {
				ip.emit(CmdSetupStart, msg("Starting setup()"))
				if err := ip.runTopLevel(funcBody(setupFn)); err != nil {
					return err
				}
				ip.emit(CmdSetupEnd, msg("setup() complete"))
				return nil
			})
			if !done {
				return
			}
			if err != nil {
				ip.finishWithError(err)
				return
			}
			ip.phase = phaseLoopInit
			if ip.stepCheckpoint() {
				return
			}

		case phaseLoopInit:
			if _, ok := ip.funcNames["loop"]; !ok {
				ip.emit(CmdProgramEnd, msg("Program completed"))
				ip.phase = phaseDone
				ip.setState(StateComplete)
				return
			}
			ip.emit(CmdLoopStart, msg("Starting loop() execution"))
			ip.loopIter = 0
			ip.phase = phaseLoop

		case phaseLoop:
			if ip.pauseCheckpoint() {
				return
			}
			loopFn := ip.funcNames["loop"]
			max := ip.loopBudget()
			i := ip.loopIter + 1
			done, err := ip.runInvocation(func() error {
				ip.emit(CmdLoopStart, msg("Starting loop iteration "+strconv.Itoa(i)))
				return ip.runTopLevel(funcBody(loopFn))
			})
			if !done {
				return
			}
			ip.loopIter = i
			if err != nil {
				ip.finishWithError(err)
				return
			}
			if i == max {
				ip.emit(CmdLoopEndComplete, func(c *Command) {
					c.SetI32("iterations", int32(i))
					c.SetBool("limitReached", true)
					c.SetString("message", "loop iteration cap reached")
				})
				ip.emit(CmdProgramEnd, msg("Program completed after "+strconv.Itoa(i)+" loop iterations (limit reached)"))
				ip.emit(CmdProgramEnd, msg("Program execution stopped"))
				ip.phase = phaseDone
				ip.setState(StateComplete)
				return
			}
			ip.emitLoopEnd(i, false)
			if ip.stepCheckpoint() {
				return
			}

		case phaseDone:
			return
		}
	}
}

// pauseCheckpoint is consulted at the top of phaseSetup/phaseLoop, before
// starting the next top-level invocation: a pending Pause() takes effect
// here rather than mid-invocation, since §5 reserves mid-invocation
// suspension for request intrinsics alone.
func (ip *Interpreter) pauseCheckpoint() bool {
	if ip.pauseRequested {
		ip.setState(StatePaused)
		return true
	}
	return false
}

// stepCheckpoint is consulted right after one invocation completes: a
// pending Step() re-pauses immediately rather than continuing to the
// next one.
func (ip *Interpreter) stepCheckpoint() bool {
	if ip.stepRequested {
		ip.stepRequested = false
		ip.setState(StateStepping)
		return true
	}
	return false
}

func (ip *Interpreter) finishWithError(err error) {
	ip.finalErr = err
	ip.phase = phaseDone
	ip.setState(StateError)
}

// runInvocation wraps one top-level invocation (one setup() call, or one
// loop() iteration) so it can be attempted more than once: the first
// attempt snapshots all state a replay would need to reproduce
// (allocCounter/mallocCounter/reqCounter/randCounter and global/static
// scope bindings, via Scope.snapshotGlobals) and resets the per-attempt
// trackers; every later attempt (because a request intrinsic suspended
// partway through last time) restores that snapshot before re-running fn,
// so the replayed prefix reaches the exact same frontier deterministically
// (§9 Design Notes: PendingRequest/Resolved replay).
//
// done is false exactly when fn returned because of errSuspended: the
// invocation is left in progress (inInvocation stays true) and the caller
// must return control to the host. done is true on both normal completion
// and a genuine (non-suspension) error.
func (ip *Interpreter) runInvocation(fn func() error) (done bool, err error) {
	if !ip.inInvocation {
		ip.invocationClockMs = ip.nowMs()
		ip.snapAlloc = ip.allocCounter
		ip.snapMalloc = ip.mallocCounter
		ip.snapReqCounter = ip.reqCounter
		ip.snapRand = ip.randCounter
		ip.snapGlobals = ip.scope.snapshotGlobals()
		ip.emitCursor = 0
		ip.resolvedResponses = nil
		ip.inInvocation = true
	} else {
		ip.allocCounter = ip.snapAlloc
		ip.mallocCounter = ip.snapMalloc
		ip.reqCounter = ip.snapReqCounter
		ip.randCounter = ip.snapRand
		ip.scope.restoreGlobals(ip.snapGlobals)
	}
	ip.emitProgress = 0
	ip.replayCursor = 0

	err = fn()
	if cs, ok := err.(*controlSignal); ok && cs.name == "suspended" {
		return false, nil
	}
	ip.inInvocation = false
	return true, err
}

// runTopLevel executes a setup()/loop() body in a fresh scope, recovering
// a break/continue/return that escapes all the way out (§7: "diagnosed
// but recovered by clearing the flag") without counting toward the
// recursion cap the way a user function call does. A suspension signal
// (errSuspended) propagates unchanged so runInvocation can recognize it.
func (ip *Interpreter) runTopLevel(body *Node) error {
	ip.scope.Push()
	defer ip.scope.Pop()
	err := ip.visitStmt(body)
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case *returnSignal:
		return nil
	case *controlSignal:
		if e.name == "suspended" {
			return err
		}
		ip.reportError(newError(ErrRuntime, SourcePos{}, "%s outside loop", e.name), nil)
		return nil
	default:
		return err
	}
}

// callUserFunction implements the §4.9 recursion cap (depth ≤ 100): a
// breach raises StackOverflowError, recovered like any other expression
// error by the caller's evalExprStmt: the run continues with a void
// result rather than aborting, whether or not Options.Safe is set.
func (ip *Interpreter) callUserFunction(fn *Node, args []Value) (Value, error) {
	ip.depth++
	defer func() { ip.depth-- }()
	if ip.depth > 100 {
		return VoidValue(), newError(ErrStackOverflow, fn.pos(), "stack overflow calling %q", fn.Str)
	}

	ip.scope.Push()
	defer ip.scope.Pop()
	for i, p := range funcParams(fn) {
		var v Value
		if i < len(args) {
			v = ConvertTo(args[i], p.TypeName)
		} else {
			v = DefaultFor(p.TypeName)
		}
		ip.scope.Declare(p.Str, Variable{Name: p.Str, Value: v, TypeName: p.TypeName})
	}

	err := ip.visitStmt(funcBody(fn))
	if err == nil {
		return VoidValue(), nil
	}
	switch e := err.(type) {
	case *returnSignal:
		return e.value, nil
	case *controlSignal:
		if e.name == "suspended" {
			return VoidValue(), err
		}
		return VoidValue(), newError(ErrRuntime, fn.pos(), "%s outside loop", e.name)
	default:
		return VoidValue(), err
	}
}
