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
	"strings"
	"testing"
)

// buildSuspendingProgram returns a program whose setup() suspends on a
// single digitalRead() and has no loop(), so only one suspend/resume
// round-trip is needed to reach completion.
func buildSuspendingProgram() []byte {
	tree := program(
		funcDef("setup", compound(
			varDecl("v", "int", call("digitalRead", numLit(2))),
		)),
	)
	return newASTBuilder().build(tree)
}

func TestStartSuspendsOnRequestIntrinsic(t *testing.T) {
	ip, err := New(buildSuspendingProgram(), Options{Seed: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sink := &collectingSink{}
	ip.OnCommand(sink)

	if !ip.Start() {
		t.Fatal("Start() should succeed from IDLE")
	}
	if ip.State() != StateWaitingForResponse {
		t.Fatalf("state after Start() = %v, want WAITING_FOR_RESPONSE", ip.State())
	}
	reqID, opName := ip.PendingRequest()
	if opName != "digitalRead" {
		t.Errorf("pending op = %q, want digitalRead", opName)
	}
	if !strings.HasPrefix(reqID, "digitalRead_") {
		t.Errorf("request id = %q, want digitalRead_<ts>_<nonce> format", reqID)
	}

	found := false
	for _, c := range sink.commands {
		if c.Type == CmdDigitalReadRequest {
			found = true
		}
	}
	if !found {
		t.Error("expected a DIGITAL_READ_REQUEST command before suspending")
	}
}

func TestHandleResponseResumesAndCompletes(t *testing.T) {
	ip, err := New(buildSuspendingProgram(), Options{Seed: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sink := &collectingSink{}
	ip.OnCommand(sink)
	ip.Start()

	reqID, _ := ip.PendingRequest()
	ip.HandleResponse(reqID, I32Value(1))

	if ip.State() != StateComplete {
		t.Fatalf("state after resuming to completion = %v, want COMPLETE", ip.State())
	}
	// v is local to setup()'s body, whose frame is popped by completion,
	// so its resumed value is read from the VAR_SET it emitted.
	varSet := false
	for _, c := range sink.commands {
		if c.Type == CmdVarSet && c.fields["variable"].str == "v" && c.fields["value"].i32 == 1 {
			varSet = true
		}
	}
	if !varSet {
		t.Errorf("expected a VAR_SET of v to 1 after resumption, got %v", sink.typesOf())
	}

	programEnds := 0
	for _, c := range sink.commands {
		if c.Type == CmdProgramEnd {
			programEnds++
		}
	}
	if programEnds != 1 {
		t.Errorf("PROGRAM_END count = %d, want 1 (no loop() means a single clean end)", programEnds)
	}
}

func TestHandleResponseMismatchIsQueued(t *testing.T) {
	ip, err := New(buildSuspendingProgram(), Options{Seed: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ip.OnCommand(&collectingSink{})
	ip.Start()

	ip.HandleResponse("not-the-pending-request", I32Value(42))
	if ip.State() != StateWaitingForResponse {
		t.Fatalf("a mismatched response must not resume the pending request; state = %v", ip.State())
	}
	if q, ok := ip.queuedResponses["not-the-pending-request"]; !ok || q.CoerceInt() != 42 {
		t.Errorf("mismatched response queue entry = %+v, %v, want 42", q, ok)
	}

	reqID, _ := ip.PendingRequest()
	ip.HandleResponse(reqID, I32Value(7))
	if ip.State() != StateComplete {
		t.Fatalf("state after the correct response = %v, want COMPLETE", ip.State())
	}
}

func TestStopCancelsAndReturnsToIdle(t *testing.T) {
	ip, err := New(buildSuspendingProgram(), Options{Seed: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ip.OnCommand(&collectingSink{})
	ip.Start()
	if ip.State() != StateWaitingForResponse {
		t.Fatalf("state = %v, want WAITING_FOR_RESPONSE before Stop", ip.State())
	}
	ip.Stop()
	if ip.State() != StateIdle {
		t.Errorf("state after Stop() = %v, want IDLE", ip.State())
	}
}

func TestStartIsIdempotentOnceRunning(t *testing.T) {
	ip, err := New(buildSuspendingProgram(), Options{Seed: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ip.OnCommand(&collectingSink{})
	ip.Start()
	if ip.Start() {
		t.Error("a second Start() call while already running should return false")
	}
}
