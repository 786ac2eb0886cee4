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

// Package interp decodes the compact Arduino-dialect AST format and
// interprets it, emitting a deterministic command stream for a
// host-driven hardware simulator to consume.
package interp

import (
	"sync"
	"time"
)

// Options configures a new Interpreter (§6.2 create(ast_bytes, options)).
// Grounded on kati's top-level flag struct (cmdline.go), generalized from
// flag.FlagSet-backed globals to a plain struct passed at construction,
// since an embedded interpreter has no process-wide command line of its
// own (see SPEC_FULL.md's ambient-stack section for the CLI harness that
// does parse flags into one of these).
type Options struct {
	Verbose           bool
	Debug             bool
	StepDelay         time.Duration // advisory; not enforced by the core
	MaxLoopIterations int           // default 1000
	RequestTimeout    time.Duration // advisory; not enforced by the core
	EnableSerial      bool
	EnablePins        bool

	// Seed makes random() reproducible across runs (§9 Open Question:
	// the source's random() depends on an unseeded host PRNG; this spec
	// exposes a seed option instead of defaulting to wall-clock entropy).
	Seed int64

	// Safe toggles safe-mode recovery on a declaration's memory-budget
	// breach (§7). A stack-depth breach is recovered into an ERROR
	// command and a void result whatever Safe says. Defaults to true:
	// unset Options is the safe default.
	Safe *bool

	// MemoryBudgetBytes bounds the running total tracked by the statement
	// visitor's declaration path (§4.6). Zero means "use the default".
	MemoryBudgetBytes int64
}

const defaultMemoryBudget = 1 << 16 // 64 KiB, a generous default for an MCU-scale sketch

func (o Options) maxLoopIterations() int {
	if o.MaxLoopIterations <= 0 {
		return 1000
	}
	return o.MaxLoopIterations
}

func (o Options) memoryBudget() int64 {
	if o.MemoryBudgetBytes <= 0 {
		return defaultMemoryBudget
	}
	return o.MemoryBudgetBytes
}

func (o Options) SafeMode() bool {
	if o.Safe == nil {
		return true
	}
	return *o.Safe
}

// Interpreter is the host-facing execution engine (C9, §6.2). One
// Interpreter owns one decoded AST and all of its mutable run state;
// nothing here is package-level (§9: "Global/static process state ...
// per-instance, not global").
type Interpreter struct {
	tree *Tree
	opts Options
	sink Sink

	scope     *Scope
	stats     execStats
	libraries *libraryRegistry
	funcNames map[string]*Node

	depth       int
	memUsed     int64
	switchStack []switchFrame

	allocCounter  int32
	mallocCounter int32
	reqCounter    int64
	startTime     time.Time

	// seed and randCounter drive evalRandom's per-call deterministic PRNG
	// (intrinsics.go): each random() call reseeds from (seed, randCounter)
	// instead of drawing from one continuously-advancing stream, so a
	// replayed invocation (see runInvocation, driver.go) reproduces the
	// exact same draws just by resetting randCounter to its snapshot.
	seed        int64
	randCounter int64

	mu               sync.Mutex
	state            execState
	pendingRequestID string
	pendingOpName    string
	queuedResponses  map[string]Value

	// phase/loopIter identify which top-level invocation (setup(), or
	// which loop() iteration) the driver is at; inInvocation and the
	// snap* fields below let a suspended invocation be replayed from its
	// start on resume without a worker goroutine (§5, §9 Design Notes).
	phase        driverPhase
	loopIter     int
	inInvocation bool

	invocationClockMs int64
	snapAlloc         int32
	snapMalloc        int32
	snapReqCounter    int64
	snapRand          int64
	snapGlobals       globalsSnapshot

	// replayCursor/resolvedResponses track, within the current
	// invocation's attempts, which request intrinsics already have an
	// answer; emitCursor/emitProgress do the same for the command stream
	// so a replay attempt's already-delivered prefix is never re-sent to
	// the sink (suspend.go suspendForRequest, emitCommand below).
	replayCursor      int
	resolvedResponses []Value
	emitCursor        int
	emitProgress      int

	pauseRequested bool
	stepRequested  bool
	finalErr       error
}

// New decodes astBytes and constructs an Interpreter ready to Start
// (§6.2 create). Arduino constants are pre-declared into the global scope
// immediately so they are visible to any top-level initializer.
func New(astBytes []byte, opts Options) (*Interpreter, error) {
	tree, err := Load(astBytes)
	if err != nil {
		return nil, err
	}
	seed := opts.Seed
	if seed == 0 {
		seed = 1
	}
	ip := &Interpreter{
		tree:            tree,
		opts:            opts,
		scope:           NewScope(),
		seed:            seed,
		libraries:       newLibraryRegistry(),
		queuedResponses: make(map[string]Value),
		state:           StateIdle,
		phase:           phaseNotStarted,
		allocCounter:    999,  // pre-incremented by newAllocation, so first label is 1000 (§4.7)
		mallocCounter:   1999, // pre-incremented by mallocAllocation, so first label is 2000 (§4.7)
	}
	installArduinoConstants(ip.scope)
	SetVerbose(opts.Verbose)
	return ip, nil
}

// OnCommand registers the sink that receives every emitted record (§6.2).
func (ip *Interpreter) OnCommand(sink Sink) { ip.sink = sink }

func (ip *Interpreter) nowMs() int64 {
	if ip.startTime.IsZero() {
		return 0
	}
	return time.Since(ip.startTime).Milliseconds()
}

func (ip *Interpreter) newCommand(t CommandType) *Command {
	return NewCommand(t, ip.nowMs())
}

// emit builds, configures, and delivers one command, in one call, so
// every emission site also bumps the stats counter (§4.9 stats) exactly
// once (§8 property 5's byte-identical-serialization guarantee depends on
// every command actually reaching the sink in emission order).
func (ip *Interpreter) emit(t CommandType, configure func(c *Command)) {
	c := ip.newCommand(t)
	if configure != nil {
		configure(c)
	}
	ip.emitCommand(c)
}

// emitCommand delivers c to the sink, unless it falls within a replay
// attempt's already-delivered prefix: emitProgress/emitCursor (reset and
// advanced by runInvocation, driver.go) count command-emission call sites
// within the current top-level invocation, so a replay that re-executes
// statements whose commands already reached the host is suppressed
// exactly up to the point the previous attempt reached, and only the new
// tail is actually delivered.
func (ip *Interpreter) emitCommand(c *Command) {
	ip.emitProgress++
	if ip.emitProgress <= ip.emitCursor {
		return
	}
	ip.emitCursor = ip.emitProgress
	ip.stats.onCommand()
	if ip.sink != nil {
		ip.sink.OnCommand(c)
	}
	logf("emit %s", c.Type)
}

func msg(text string) func(c *Command) {
	return func(c *Command) { c.SetString("message", text) }
}
