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
	"sort"
	"strconv"
)

// CommandType is the type tag of a Command record (§3.5, catalogue §6.4).
type CommandType string

const (
	CmdVersionInfo          CommandType = "VERSION_INFO"
	CmdProgramStart         CommandType = "PROGRAM_START"
	CmdProgramEnd           CommandType = "PROGRAM_END"
	CmdSetupStart           CommandType = "SETUP_START"
	CmdSetupEnd             CommandType = "SETUP_END"
	CmdLoopStart            CommandType = "LOOP_START"
	CmdLoopEnd              CommandType = "LOOP_END"
	CmdLoopEndComplete      CommandType = "LOOP_END_COMPLETE"
	CmdFunctionCall         CommandType = "FUNCTION_CALL"
	CmdVarSet               CommandType = "VAR_SET"
	CmdPinMode              CommandType = "PIN_MODE"
	CmdDigitalWrite         CommandType = "DIGITAL_WRITE"
	CmdAnalogWrite          CommandType = "ANALOG_WRITE"
	CmdDelay                CommandType = "DELAY"
	CmdDelayMicroseconds    CommandType = "DELAY_MICROSECONDS"
	CmdAnalogReadRequest    CommandType = "ANALOG_READ_REQUEST"
	CmdDigitalReadRequest   CommandType = "DIGITAL_READ_REQUEST"
	CmdMillisRequest        CommandType = "MILLIS_REQUEST"
	CmdMicrosRequest        CommandType = "MICROS_REQUEST"
	CmdSerialRequest        CommandType = "SERIAL_REQUEST"
	CmdIfStatement          CommandType = "IF_STATEMENT"
	CmdSwitchStatement      CommandType = "SWITCH_STATEMENT"
	CmdSwitchCase           CommandType = "SWITCH_CASE"
	CmdBreakStatement       CommandType = "BREAK_STATEMENT"
	CmdContinueStatement    CommandType = "CONTINUE_STATEMENT"
	CmdError                CommandType = "ERROR"
)

// canonicalFieldOrder lists, per command type, the field emission order
// required by §6.4 so two implementations serialize byte-identically.
// Every entry lists "type" (always first) and "timestamp", whose
// position varies by command.
var canonicalFieldOrder = map[CommandType][]string{
	CmdVersionInfo:        {"type", "component", "version", "status", "timestamp"},
	CmdProgramStart:       {"type", "timestamp", "message"},
	CmdProgramEnd:         {"type", "timestamp", "message"},
	CmdSetupStart:         {"type", "timestamp", "message"},
	CmdSetupEnd:           {"type", "timestamp", "message"},
	CmdLoopStart:          {"type", "timestamp", "message"},
	CmdLoopEnd:            {"type", "iterations", "limitReached", "message", "timestamp"},
	CmdLoopEndComplete:    {"type", "iterations", "limitReached", "message", "timestamp"},
	// CmdFunctionCall's order depends on which optional field is present
	// (the generic/begin/println variants of §6.4); see functionCallOrder.
	CmdVarSet:             {"type", "variable", "value", "isConst", "timestamp"},
	CmdPinMode:            {"type", "pin", "mode", "timestamp"},
	CmdDigitalWrite:       {"type", "pin", "value", "timestamp"},
	CmdAnalogWrite:        {"type", "pin", "value", "timestamp"},
	CmdDelay:              {"type", "duration", "actualDelay", "timestamp"},
	CmdDelayMicroseconds:  {"type", "duration", "timestamp"},
	CmdAnalogReadRequest:  {"type", "pin", "requestId", "timestamp"},
	CmdDigitalReadRequest: {"type", "pin", "requestId", "timestamp"},
	CmdMillisRequest:      {"type", "requestId", "timestamp"},
	CmdMicrosRequest:      {"type", "requestId", "timestamp"},
	CmdSerialRequest:      {"type", "operation", "terminator", "requestId", "message", "timestamp"},
	CmdIfStatement:        {"type", "condition", "result", "branch", "timestamp"},
	CmdSwitchStatement:    {"type", "discriminant", "timestamp"},
	CmdSwitchCase:         {"type", "caseValue", "matched", "timestamp"},
	CmdBreakStatement:     {"type", "message", "timestamp"},
	CmdContinueStatement:  {"type", "message", "timestamp"},
	CmdError:              {"type", "errorType", "message", "timestamp"},
}

// FieldValue is one of the field payload kinds allowed by §4.3: void,
// bool, i32, i64, f64, string, or an array of scalars.
type FieldValue struct {
	kind  fieldKind
	b     bool
	i32   int32
	i64   int64
	f64   float64
	str   string
	array []FieldValue
}

type fieldKind int

const (
	fieldVoid fieldKind = iota
	fieldBool
	fieldI32
	fieldI64
	fieldF64
	fieldString
	fieldArray
)

func FVoid() FieldValue          { return FieldValue{kind: fieldVoid} }
func FBool(b bool) FieldValue    { return FieldValue{kind: fieldBool, b: b} }
func FI32(i int32) FieldValue    { return FieldValue{kind: fieldI32, i32: i} }
func FI64(i int64) FieldValue    { return FieldValue{kind: fieldI64, i64: i} }
func FF64(f float64) FieldValue  { return FieldValue{kind: fieldF64, f64: f} }
func FString(s string) FieldValue { return FieldValue{kind: fieldString, str: s} }
func FArray(vs ...FieldValue) FieldValue {
	return FieldValue{kind: fieldArray, array: vs}
}

// FieldFromValue converts an interpreter Value (§3.1) into the command
// field representation used for VAR_SET and FUNCTION_CALL arguments.
func FieldFromValue(v Value) FieldValue {
	switch v.Tag {
	case TagVoid:
		return FVoid()
	case TagBool:
		return FBool(v.Bool)
	case TagI32:
		return FI32(v.I32)
	case TagF64:
		return FF64(v.F64)
	case TagString:
		return FString(v.Str)
	case TagStringObject:
		if v.SObj == nil {
			return FString("")
		}
		return FString(v.SObj.Data)
	default:
		return FString(v.CoerceString())
	}
}

func (fv FieldValue) encode(buf *strBuilder) {
	switch fv.kind {
	case fieldVoid:
		buf.WriteString("null")
	case fieldBool:
		if fv.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case fieldI32:
		buf.WriteString(strconv.FormatInt(int64(fv.i32), 10))
	case fieldI64:
		buf.WriteString(strconv.FormatInt(fv.i64, 10))
	case fieldF64:
		buf.WriteString(strconv.FormatFloat(fv.f64, 'f', 10, 64))
	case fieldString:
		buf.WriteByte('"')
		escapeInto(buf, fv.str)
		buf.WriteByte('"')
	case fieldArray:
		buf.WriteByte('[')
		for i, e := range fv.array {
			if i > 0 {
				buf.WriteByte(',')
			}
			e.encode(buf)
		}
		buf.WriteByte(']')
	}
}

// escapeInto escapes '"', '\\', '\n', '\r', '\t' per §4.3/§6.4. Grounded
// on kati's shellutil-style quoting idea (dropped as a file; the escaping
// rule itself is reused inline here since our payload is JSON-like text,
// not a shell command line).
func escapeInto(buf *strBuilder, s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteByte(c)
		}
	}
}

// Command is a (type-tag, ordered field map, timestamp) triple (§3.5).
// Grounded on kati's serializableVar/dumpbuf pattern (serialize.go),
// adapted from a binary gob/dumpbuf encoding to the JSON-like textual
// one §4.3/§6.4 require, and from a fixed struct to a flexible ordered
// field map so each command type can carry its own field set.
type Command struct {
	Type      CommandType
	Timestamp int64
	fields    map[string]FieldValue
	order     []string // insertion order, for unknown/extra fields
}

// NewCommand creates a Command with its type and timestamp (monotonic
// milliseconds since process start) already set, per §4.3 new(type_tag).
func NewCommand(t CommandType, timestampMs int64) *Command {
	return &Command{
		Type:      t,
		Timestamp: timestampMs,
		fields:    make(map[string]FieldValue),
	}
}

// Set adds or overwrites a field (§4.3 set(key,value)).
func (c *Command) Set(key string, v FieldValue) *Command {
	if _, ok := c.fields[key]; !ok {
		c.order = append(c.order, key)
	}
	c.fields[key] = v
	return c
}

func (c *Command) SetString(key, v string) *Command { return c.Set(key, FString(v)) }
func (c *Command) SetI32(key string, v int32) *Command { return c.Set(key, FI32(v)) }
func (c *Command) SetBool(key string, v bool) *Command { return c.Set(key, FBool(v)) }
func (c *Command) SetF64(key string, v float64) *Command { return c.Set(key, FF64(v)) }

func (c *Command) Has(key string) bool {
	_, ok := c.fields[key]
	return ok
}

// functionCallOrder picks the canonical field order among the three
// FUNCTION_CALL variants in §6.4 (generic, Serial.begin, Serial.println),
// keyed on which variant-specific field the caller populated.
func (c *Command) functionCallOrder() []string {
	switch {
	case c.Has("baudRate"):
		return []string{"type", "function", "arguments", "baudRate", "timestamp", "message"}
	case c.Has("data"):
		return []string{"type", "function", "arguments", "data", "timestamp", "message"}
	default:
		return []string{"type", "function", "arguments", "message", "iteration", "completed", "timestamp"}
	}
}

// Serialize renders the command to its canonical byte form: fields in
// the canonical order for c.Type, any unknown fields appended afterward
// in insertion order, per §3.5/§4.3. Two Commands with identical type,
// fields, and values always serialize identically (§8 property 5).
func (c *Command) Serialize() string {
	var buf strBuilder
	buf.WriteByte('{')
	order, known := canonicalFieldOrder[c.Type]
	if c.Type == CmdFunctionCall {
		order, known = c.functionCallOrder(), true
	}
	written := make(map[string]bool, len(c.fields))
	first := true
	writeField := func(key string) {
		if key == "type" {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			buf.WriteString(`"type":"`)
			buf.WriteString(string(c.Type))
			buf.WriteByte('"')
			written["type"] = true
			return
		}
		if key == "timestamp" {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			buf.WriteString(`"timestamp":`)
			buf.WriteString(strconv.FormatInt(c.Timestamp, 10))
			written["timestamp"] = true
			return
		}
		fv, ok := c.fields[key]
		if !ok {
			return
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteByte('"')
		buf.WriteString(key)
		buf.WriteString(`":`)
		fv.encode(&buf)
		written[key] = true
	}
	if known {
		for _, key := range order {
			writeField(key)
		}
	} else {
		writeField("type")
		writeField("timestamp")
	}
	// Unknown/extra fields: insertion order, after the canonical ones.
	for _, key := range c.order {
		if written[key] {
			continue
		}
		writeField(key)
	}
	buf.WriteByte('}')
	return buf.String()
}

// strBuilder is a tiny pooled-free byte builder; kept separate from
// strings.Builder only so escapeInto/encode can stay allocation-light
// without importing bytes.Buffer everywhere. Grounded on kati's `buffer`
// type in buf.go (same idea: append-only []byte with String()).
type strBuilder struct {
	buf []byte
}

func (b *strBuilder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}
func (b *strBuilder) WriteString(s string) (int, error) {
	b.buf = append(b.buf, s...)
	return len(s), nil
}
func (b *strBuilder) String() string { return string(b.buf) }

// Sink receives every emitted Command, in emission order (§6.2 on_command).
type Sink interface {
	OnCommand(c *Command)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(c *Command)

func (f SinkFunc) OnCommand(c *Command) { f(c) }

// sortedFieldKeys returns the names of c's fields in sorted order,
// independent of map iteration order.
func (c *Command) sortedFieldKeys() []string {
	keys := make([]string, 0, len(c.fields))
	for k := range c.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
