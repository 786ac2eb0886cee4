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

func TestCallIntrinsicPinMode(t *testing.T) {
	ip := newTestInterpreter(t)
	sink := &collectingSink{}
	ip.sink = sink

	_, err := ip.callIntrinsic("pinMode", []Value{I32Value(13), I32Value(1)}, &Node{})
	if err != nil {
		t.Fatalf("pinMode: %v", err)
	}
	if len(sink.commands) != 1 || sink.commands[0].Type != CmdPinMode {
		t.Fatalf("expected one PIN_MODE command, got %v", sink.typesOf())
	}
}

func TestCallIntrinsicMapAndConstrain(t *testing.T) {
	ip := newTestInterpreter(t)
	v, err := ip.callIntrinsic("map", []Value{I32Value(5), I32Value(0), I32Value(10), I32Value(0), I32Value(100)}, &Node{})
	if err != nil || v.CoerceInt() != 50 {
		t.Fatalf("map(5,0,10,0,100) = %+v, %v, want 50", v, err)
	}
	v, err = ip.callIntrinsic("constrain", []Value{F64Value(15), F64Value(0), F64Value(10)}, &Node{})
	if err != nil || v.CoerceDouble() != 10 {
		t.Fatalf("constrain(15,0,10) = %+v, %v, want 10", v, err)
	}
}

func TestCallIntrinsicSqrtNegativeFails(t *testing.T) {
	ip := newTestInterpreter(t)
	_, err := ip.callIntrinsic("sqrt", []Value{F64Value(-1)}, &Node{})
	re, ok := err.(*RuntimeError)
	if !ok || re.Kind != ErrType {
		t.Errorf("sqrt(-1) err = %v, want TypeError", err)
	}
}

func TestCallIntrinsicCtypePredicates(t *testing.T) {
	ip := newTestInterpreter(t)
	v, _ := ip.callIntrinsic("isDigit", []Value{StringValue("5")}, &Node{})
	if v.CoerceInt() != 1 {
		t.Error("isDigit('5') should be true")
	}
	v, _ = ip.callIntrinsic("isAlpha", []Value{StringValue("5")}, &Node{})
	if v.CoerceInt() != 0 {
		t.Error("isAlpha('5') should be false")
	}
}

func TestCallIntrinsicUnknownFunction(t *testing.T) {
	ip := newTestInterpreter(t)
	_, err := ip.callIntrinsic("definitelyNotARealFunction", nil, &Node{})
	re, ok := err.(*RuntimeError)
	if !ok || re.Kind != ErrUnknownFunction {
		t.Errorf("err = %v, want UnknownFunction", err)
	}
}

func TestNewAllocationCountersStartAtSpecLabels(t *testing.T) {
	ip := newTestInterpreter(t)
	v := ip.newAllocation("int")
	if v.Ptr.Label != "&allocated_1000" {
		t.Errorf("first new T label = %s, want &allocated_1000", v.Ptr.Label)
	}
	v2 := ip.newAllocation("int")
	if v2.Ptr.Label != "&allocated_1001" {
		t.Errorf("second new T label = %s, want &allocated_1001", v2.Ptr.Label)
	}

	m := ip.mallocAllocation(16)
	if m.Ptr.Label != "&malloc_2000_size_16" {
		t.Errorf("first malloc label = %s, want &malloc_2000_size_16", m.Ptr.Label)
	}
}

func TestEvalRandomDeterministicWithSeed(t *testing.T) {
	ip1 := newTestInterpreter(t)
	ip2 := newTestInterpreter(t)
	for i := 0; i < 5; i++ {
		v1 := ip1.evalRandom([]Value{I32Value(100)})
		v2 := ip2.evalRandom([]Value{I32Value(100)})
		if v1.I32 != v2.I32 {
			t.Fatalf("two interpreters seeded identically should produce identical random() sequences: %d != %d", v1.I32, v2.I32)
		}
		if v1.I32 < 0 || v1.I32 >= 100 {
			t.Fatalf("random(100) = %d, out of [0,100)", v1.I32)
		}
	}
}

func TestEvalRandomRange(t *testing.T) {
	ip := newTestInterpreter(t)
	for i := 0; i < 20; i++ {
		v := ip.evalRandom([]Value{I32Value(10), I32Value(20)})
		if v.I32 < 10 || v.I32 >= 20 {
			t.Fatalf("random(10,20) = %d, out of [10,20)", v.I32)
		}
	}
}

func TestSplitQualified(t *testing.T) {
	obj, method, ok := splitQualified("Serial.println")
	if !ok || obj != "Serial" || method != "println" {
		t.Errorf("splitQualified(Serial.println) = %q %q %v", obj, method, ok)
	}
	if _, _, ok := splitQualified("noqualifier"); ok {
		t.Error("splitQualified should fail on a name with no '.'")
	}
}

func TestCallIntrinsicDeleteFreeAreNoOps(t *testing.T) {
	ip := newTestInterpreter(t)
	sink := &collectingSink{}
	ip.sink = sink
	if _, err := ip.callIntrinsic("delete", []Value{PointerValue(Pointer{Label: "&allocated_1000"})}, &Node{}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(sink.commands) != 1 || sink.commands[0].Type != CmdFunctionCall {
		t.Fatalf("expected a FUNCTION_CALL debug trace for delete, got %v", sink.typesOf())
	}
}
