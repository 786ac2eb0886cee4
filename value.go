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
	"fmt"
	"strconv"
	"strings"
)

// Tag identifies which variant of Value is populated, mirroring kati's
// split between simpleVar/recursiveVar/targetSpecificVar (var.go) but
// collapsed into one tagged struct since the runtime value model here
// (§3.1) is a closed set of variants rather than an open interface.
type Tag int

const (
	TagVoid Tag = iota
	TagBool
	TagI32
	TagF64
	TagString
	TagStruct
	TagArray
	TagStringObject
	TagPointer
)

func (t Tag) String() string {
	switch t {
	case TagVoid:
		return "void"
	case TagBool:
		return "bool"
	case TagI32:
		return "i32"
	case TagF64:
		return "f64"
	case TagString:
		return "string"
	case TagStruct:
		return "struct"
	case TagArray:
		return "array"
	case TagStringObject:
		return "string-object"
	case TagPointer:
		return "pointer"
	}
	return "unknown"
}

// Pointer is the payload of a TagPointer value (§3.1): an optional
// reference to another value, a target-type name, and an indirection
// level. Empty (Target == nil) models a null pointer.
type Pointer struct {
	Target      *Value
	TargetType  string
	Indirection int
	// Label is used for synthetic pointers produced by the memory-sim
	// intrinsics (`new`/`malloc`, §4.7), e.g. "&allocated_1000".
	Label string
}

// Array is the payload of a TagArray value: a typed, 1..N dimensional,
// row-major flat store.
type Array struct {
	ElemType string
	Dims     []int
	Elems    []Value
}

func (a *Array) flatIndex(idx []int) (int, bool) {
	if len(idx) != len(a.Dims) {
		return 0, false
	}
	off := 0
	for i, d := range a.Dims {
		if idx[i] < 0 || idx[i] >= d {
			return 0, false
		}
		off = off*d + idx[i]
	}
	return off, true
}

// Get reads element at idx (row-major). ok is false on an out-of-bounds
// access (§3.1: array access out of [0,size) must be diagnosed).
func (a *Array) Get(idx ...int) (Value, bool) {
	off, ok := a.flatIndex(idx)
	if !ok || off < 0 || off >= len(a.Elems) {
		return Value{}, false
	}
	return a.Elems[off], true
}

// Set writes element at idx. ok is false on an out-of-bounds access.
func (a *Array) Set(v Value, idx ...int) bool {
	off, ok := a.flatIndex(idx)
	if !ok || off < 0 || off >= len(a.Elems) {
		return false
	}
	a.Elems[off] = v
	return true
}

// StringObject is the payload of an Arduino String value; kept distinct
// from TagString so assignment/mutation semantics can differ from the
// immutable literal string variant, per §3.1. It has no methods of its
// own: evalCall routes a member call on a String variable (s.length())
// to the library registry and then callIntrinsic, and neither handles
// String methods.
type StringObject struct {
	Data string
}

// Value is the tagged runtime value variant of §3.1. It is a plain
// struct rather than an interface (unlike kati's Value interface in
// expr.go) because the set of variants is closed and fixed by the spec;
// a struct with only the active field populated avoids one allocation
// and indirection per literal, matching the "tagged enum" strategy
// spec.md §9 recommends for ports of a dynamically-typed source value.
type Value struct {
	Tag    Tag
	Bool   bool
	I32    int32
	F64    float64
	Str    string
	Struct map[string]Value
	Array  *Array
	SObj   *StringObject
	Ptr    Pointer
}

func VoidValue() Value               { return Value{Tag: TagVoid} }
func BoolValue(b bool) Value         { return Value{Tag: TagBool, Bool: b} }
func I32Value(i int32) Value         { return Value{Tag: TagI32, I32: i} }
func F64Value(f float64) Value       { return Value{Tag: TagF64, F64: f} }
func StringValue(s string) Value     { return Value{Tag: TagString, Str: s} }
func StructValue(f map[string]Value) Value {
	return Value{Tag: TagStruct, Struct: f}
}
func ArrayValue(a *Array) Value           { return Value{Tag: TagArray, Array: a} }
func StringObjectValue(s string) Value    { return Value{Tag: TagStringObject, SObj: &StringObject{Data: s}} }
func PointerValue(p Pointer) Value        { return Value{Tag: TagPointer, Ptr: p} }
func NullPointerValue(targetType string) Value {
	return Value{Tag: TagPointer, Ptr: Pointer{TargetType: targetType}}
}

func (v Value) IsVoid() bool { return v.Tag == TagVoid }

// cloneValue deep-copies the mutable payloads of v (array elements,
// struct fields, string-object data) so a cloned global binding can be
// mutated independently of its source. Used by Scope.snapshotGlobals to
// give each replay attempt of a suspended invocation (§9 Design Notes) an
// isolated copy of global/static state to restore between attempts.
func cloneValue(v Value) Value {
	switch v.Tag {
	case TagArray:
		if v.Array == nil {
			return v
		}
		elems := make([]Value, len(v.Array.Elems))
		for i, e := range v.Array.Elems {
			elems[i] = cloneValue(e)
		}
		return ArrayValue(&Array{
			ElemType: v.Array.ElemType,
			Dims:     append([]int(nil), v.Array.Dims...),
			Elems:    elems,
		})
	case TagStruct:
		if v.Struct == nil {
			return v
		}
		m := make(map[string]Value, len(v.Struct))
		for k, fv := range v.Struct {
			m[k] = cloneValue(fv)
		}
		return StructValue(m)
	case TagStringObject:
		if v.SObj == nil {
			return v
		}
		return StringObjectValue(v.SObj.Data)
	default:
		return v
	}
}

// CoerceBool applies the §3.1 boolean coercion rule: numeric zero / empty
// string / void => false; otherwise true.
func (v Value) CoerceBool() bool {
	switch v.Tag {
	case TagVoid:
		return false
	case TagBool:
		return v.Bool
	case TagI32:
		return v.I32 != 0
	case TagF64:
		return v.F64 != 0
	case TagString:
		return v.Str != ""
	case TagStringObject:
		return v.SObj != nil && v.SObj.Data != ""
	case TagPointer:
		return v.Ptr.Target != nil
	case TagArray:
		return v.Array != nil && len(v.Array.Elems) > 0
	case TagStruct:
		return len(v.Struct) > 0
	}
	return false
}

// CoerceInt widens/truncates v to the canonical i32 width (§3.1).
func (v Value) CoerceInt() int32 {
	switch v.Tag {
	case TagBool:
		if v.Bool {
			return 1
		}
		return 0
	case TagI32:
		return v.I32
	case TagF64:
		return int32(v.F64)
	case TagString:
		return parseIntOrZero(v.Str)
	case TagStringObject:
		if v.SObj == nil {
			return 0
		}
		return parseIntOrZero(v.SObj.Data)
	}
	return 0
}

// CoerceDouble widens v to the canonical f64 width (§3.1).
func (v Value) CoerceDouble() float64 {
	switch v.Tag {
	case TagBool:
		if v.Bool {
			return 1
		}
		return 0
	case TagI32:
		return float64(v.I32)
	case TagF64:
		return v.F64
	case TagString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0
		}
		return f
	case TagStringObject:
		if v.SObj == nil {
			return 0
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v.SObj.Data), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// CoerceString renders v as its textual form, used by string
// concatenation and Serial.print-family intrinsics.
func (v Value) CoerceString() string {
	switch v.Tag {
	case TagVoid:
		return ""
	case TagBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case TagI32:
		return strconv.FormatInt(int64(v.I32), 10)
	case TagF64:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case TagString:
		return v.Str
	case TagStringObject:
		if v.SObj == nil {
			return ""
		}
		return v.SObj.Data
	case TagPointer:
		if v.Ptr.Label != "" {
			return v.Ptr.Label
		}
		if v.Ptr.Target == nil {
			return "0x0"
		}
		return fmt.Sprintf("0x%x", v.Ptr.Indirection)
	}
	return ""
}

func parseIntOrZero(s string) int32 {
	s = strings.TrimSpace(s)
	// Arduino's atoi-like parse reads a leading numeric prefix; fall back
	// to the first run of digits (with optional sign) rather than
	// requiring the whole string to be numeric.
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return 0
	}
	n, err := strconv.ParseInt(s[:i], 10, 32)
	if err != nil {
		return 0
	}
	return int32(n)
}

// DefaultFor returns the zero value for a declared type name (§4.2
// default_for): 0 / 0.0 / false / "" / void as appropriate.
func DefaultFor(typeName string) Value {
	switch canonicalType(typeName) {
	case "bool":
		return BoolValue(false)
	case "float", "double":
		return F64Value(0)
	case "string", "String":
		return StringObjectValue("")
	case "void":
		return VoidValue()
	default:
		return I32Value(0)
	}
}

// canonicalType strips the const/static/&/template noise §3.2 and §9
// allow to appear anywhere in a declared type string, leaving the bare
// type keyword used to pick a default value or coercion path.
func canonicalType(typeName string) string {
	t := typeName
	for _, noise := range []string{"const", "static", "&", "unsigned", "*"} {
		t = strings.ReplaceAll(t, noise, "")
	}
	t = strings.TrimSpace(t)
	if i := strings.IndexByte(t, '<'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	switch t {
	case "byte", "char", "int", "long", "short":
		return "int"
	case "float", "double":
		return "double"
	}
	return t
}

// ConvertTo performs the §4.2 convert_to rule: widening, narrowing with
// well-defined truncation, string<->numeric parsing (invalid parse => 0),
// and struct/pointer passthrough.
func ConvertTo(v Value, typeName string) Value {
	switch canonicalType(typeName) {
	case "bool":
		return BoolValue(v.CoerceBool())
	case "int":
		return I32Value(v.CoerceInt())
	case "double":
		return F64Value(v.CoerceDouble())
	case "string", "String":
		return StringObjectValue(v.CoerceString())
	case "void":
		return VoidValue()
	default:
		if v.Tag == TagStruct || v.Tag == TagPointer || v.Tag == TagArray {
			return v
		}
		return v
	}
}

// ValuesEqual implements the §4.2 equality rule: strict tag match
// compares natively; cross-tag numeric comparison promotes both sides to
// f64; any other mismatched-tag comparison is false.
func ValuesEqual(a, b Value) bool {
	if a.Tag == b.Tag {
		switch a.Tag {
		case TagVoid:
			return true
		case TagBool:
			return a.Bool == b.Bool
		case TagI32:
			return a.I32 == b.I32
		case TagF64:
			return a.F64 == b.F64
		case TagString:
			return a.Str == b.Str
		case TagStringObject:
			as, bs := "", ""
			if a.SObj != nil {
				as = a.SObj.Data
			}
			if b.SObj != nil {
				bs = b.SObj.Data
			}
			return as == bs
		case TagPointer:
			return a.Ptr.Target == b.Ptr.Target && a.Ptr.Label == b.Ptr.Label
		}
		return false
	}
	if isNumericTag(a.Tag) && isNumericTag(b.Tag) {
		return a.CoerceDouble() == b.CoerceDouble()
	}
	return false
}

func isNumericTag(t Tag) bool {
	return t == TagI32 || t == TagF64 || t == TagBool
}

// SizeOf computes sizeof semantics from the value's runtime tag (§4.5),
// not from its declared type. Strings use byte length + 1 for the
// trailing NUL (Open Question #1 in DESIGN.md: byte count, not code
// points).
func SizeOf(v Value) int32 {
	switch v.Tag {
	case TagBool:
		return 1
	case TagI32:
		return 4
	case TagF64:
		return 8
	case TagString:
		return int32(len(v.Str) + 1)
	case TagStringObject:
		if v.SObj == nil {
			return 1
		}
		return int32(len(v.SObj.Data) + 1)
	case TagPointer:
		return 4
	case TagArray:
		if v.Array == nil {
			return 0
		}
		return int32(len(v.Array.Elems)) * SizeOf(elemDefault(v.Array.ElemType))
	}
	return 0
}

func elemDefault(elemType string) Value { return DefaultFor(elemType) }

// TypeOf computes the runtime type name used by the `typeof` intrinsic,
// again from the value's tag rather than a declared type (§4.5).
func TypeOf(v Value) string {
	return v.Tag.String()
}
