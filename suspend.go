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
	"time"
)

// execState is one of the §4.8 state machine's states.
type execState int

const (
	StateIdle execState = iota
	StateRunning
	StatePaused
	StateStepping
	StateWaitingForResponse
	StateComplete
	StateError
)

func (s execState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	case StateStepping:
		return "STEPPING"
	case StateWaitingForResponse:
		return "WAITING_FOR_RESPONSE"
	case StateComplete:
		return "COMPLETE"
	case StateError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// driverPhase names which top-level invocation (§4.9) the driver is
// currently at. Persisted on the Interpreter (not a local variable of a
// goroutine) so Start/HandleResponse/Tick/ResumeRun can all re-enter
// drive() synchronously at exactly the right point (§5: "the interpreter
// never creates threads").
type driverPhase int

const (
	phaseNotStarted driverPhase = iota
	phaseSetup
	phaseLoopInit
	phaseLoop
	phaseDone
)

// nextRequestID builds a request-id in the §6.5 format
// `{operation}_{monotonic_ms}_{nonce}`. The timestamp component is frozen
// per invocation (invocationClockMs, set once by runInvocation) rather
// than sampled live, so every replay attempt of one suspended invocation
// generates byte-identical ids for the same call-site occurrence.
func (ip *Interpreter) nextRequestID(opName string) string {
	ip.reqCounter++
	return opName + "_" + strconv.FormatInt(ip.invocationClockMs, 10) + "_" + strconv.FormatInt(ip.reqCounter, 10)
}

func (ip *Interpreter) setState(s execState) {
	ip.mu.Lock()
	ip.state = s
	ip.mu.Unlock()
}

// State returns the interpreter's current state (§4.8).
func (ip *Interpreter) State() execState {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	return ip.state
}

// PendingRequest returns the request-id and operation name the
// interpreter is currently WAITING_FOR_RESPONSE on, if any.
func (ip *Interpreter) PendingRequest() (requestID, opName string) {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	return ip.pendingRequestID, ip.pendingOpName
}

// suspendForRequest implements the §4.8 request-intrinsic suspension
// sequence without spawning a goroutine. Go has no first-class
// continuation to block and resume, so the call site this suspends from
// is not reached by jumping back into it directly: instead, resolving the
// pending request (resolveAndResume, below) re-enters the invocation from
// its start (runInvocation, driver.go) and replays forward. A request
// already answered earlier in this same invocation is recognized
// positionally, via replayCursor against resolvedResponses, and returns
// its cached value immediately without suspending again; emitCommand's
// own emitCursor keeps the replayed *_REQUEST command from reaching the
// sink a second time.
func (ip *Interpreter) suspendForRequest(opName string, buildCmd func(requestID string) *Command) (Value, bool) {
	reqID := ip.nextRequestID(opName)
	if ip.replayCursor < len(ip.resolvedResponses) {
		v := ip.resolvedResponses[ip.replayCursor]
		ip.replayCursor++
		ip.emitCommand(buildCmd(reqID))
		return v, true
	}
	if cached, ok := ip.queuedResponses[reqID]; ok {
		delete(ip.queuedResponses, reqID)
		ip.resolvedResponses = append(ip.resolvedResponses, cached)
		ip.replayCursor++
		ip.emitCommand(buildCmd(reqID))
		return cached, true
	}
	ip.emitCommand(buildCmd(reqID))
	ip.pendingRequestID = reqID
	ip.pendingOpName = opName
	ip.setState(StateWaitingForResponse)
	return VoidValue(), false
}

// Start implements §4.8's IDLE→RUNNING transition: emits VERSION_INFO
// then PROGRAM_START and drives Phase 1/2/3 synchronously up to the first
// suspension point or to completion. Idempotent once running, per §6.2.
func (ip *Interpreter) Start() bool {
	if ip.State() != StateIdle {
		return false
	}
	ip.startTime = time.Now()
	ip.setState(StateRunning)
	ip.phase = phaseNotStarted
	ip.drive()
	return true
}

// Stop cancels the current run from any state, discards queued responses
// and in-progress invocation tracking, and returns to IDLE (§4.8
// cancellation). There is no worker to drain and nothing to block on: the
// synchronous driver only ever runs inside a call from the host (Start,
// ResumeRun, Step, Tick, HandleResponse), so by the time Stop() runs, any
// prior drive() call has already returned control here.
func (ip *Interpreter) Stop() {
	if ip.State() == StateIdle {
		return
	}
	ip.phase = phaseNotStarted
	ip.inInvocation = false
	ip.loopIter = 0
	ip.replayCursor = 0
	ip.resolvedResponses = nil
	ip.queuedResponses = make(map[string]Value)
	ip.pendingRequestID = ""
	ip.pendingOpName = ""
	ip.pauseRequested = false
	ip.stepRequested = false
	ip.setState(StateIdle)
}

// Pause requests that the next invocation boundary (between setup() and
// loop(), or between loop() iterations) transition to PAUSED instead of
// starting the next invocation. Per §5, request-intrinsic suspension is
// the only thing that can interrupt a top-level invocation mid-flight;
// pause/step are coarser, host-driven scheduling that only takes effect
// between invocations.
func (ip *Interpreter) Pause() {
	ip.pauseRequested = true
}

// ResumeRun continues a PAUSED or STEPPING interpreter.
func (ip *Interpreter) ResumeRun() {
	st := ip.State()
	if st != StatePaused && st != StateStepping {
		return
	}
	ip.pauseRequested = false
	ip.setState(StateRunning)
	ip.drive()
}

// Step runs exactly one more top-level invocation, then re-pauses.
func (ip *Interpreter) Step() {
	if ip.State() == StateIdle {
		ip.Start()
		return
	}
	ip.stepRequested = true
	if ip.State() == StatePaused {
		ip.setState(StateRunning)
		ip.drive()
	}
}

// Tick performs one step of the driver (§4.9/§6.2): if a response is
// already queued for the pending request, deliver it and drive to the
// next suspension point or completion; otherwise this is a no-op.
func (ip *Interpreter) Tick() {
	if ip.State() != StateWaitingForResponse {
		return
	}
	if v, ok := ip.queuedResponses[ip.pendingRequestID]; ok {
		delete(ip.queuedResponses, ip.pendingRequestID)
		ip.resolveAndResume(v)
	}
}

// HandleResponse (aka resume_with_value, §6.2) delivers a host-supplied
// value for requestID. A match with the current wait resumes immediately;
// a mismatch is queued for later delivery and silently dropped if it
// never matches a live request before the run ends (§4.8).
func (ip *Interpreter) HandleResponse(requestID string, value Value) {
	ip.mu.Lock()
	matches := ip.state == StateWaitingForResponse && requestID == ip.pendingRequestID
	ip.mu.Unlock()
	if !matches {
		ip.queuedResponses[requestID] = value
		return
	}
	ip.resolveAndResume(value)
}

// ResumeWithValue is the §6.2-named alias for HandleResponse.
func (ip *Interpreter) ResumeWithValue(requestID string, value Value) {
	ip.HandleResponse(requestID, value)
}

// resolveAndResume records value as the answer for the currently pending
// request, in encounter order, then re-enters the driver. There is no
// suspended goroutine stack to resume: drive() re-runs runInvocation for
// the current phase, which replays the invocation from its start and
// returns the cached answer the moment it reaches this same request
// (suspendForRequest above), continuing forward from there.
func (ip *Interpreter) resolveAndResume(value Value) {
	ip.resolvedResponses = append(ip.resolvedResponses, value)
	ip.pendingRequestID = ""
	ip.pendingOpName = ""
	ip.setState(StateRunning)
	ip.drive()
}
