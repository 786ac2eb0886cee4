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
	"encoding/binary"
	"math"
)

const (
	astMagic        uint32 = 0x50545341 // "ASTP"
	astVersion      uint16 = 0x0100
	astHeaderSize          = 16
)

// Load decodes a compact AST byte buffer (§4.1) into a typed Tree. It
// rejects wrong magic, unknown major version, a zero node count, a
// string-table offset past the buffer, a node whose payload overruns the
// buffer, and any node tagged as a preprocessor directive.
//
// Grounded on kati's binary dump/load pair in serialize.go (dumpbuf's
// little-endian Int/Str/Bytes/Byte writers) mirrored here as a reader,
// and on symtab.go's string interning, reused as the decoded string
// table's backing store (decode once, index by int thereafter).
func Load(buf []byte) (*Tree, error) {
	r := &astReader{buf: buf}

	magic, ok := r.u32()
	if !ok {
		return nil, &ASTTruncatedError{Reason: "header: short read on magic"}
	}
	if magic != astMagic {
		return nil, &ASTFormatError{Reason: "bad magic"}
	}
	version, ok := r.u16()
	if !ok {
		return nil, &ASTTruncatedError{Reason: "header: short read on version"}
	}
	if version != astVersion {
		return nil, &ASTFormatError{Reason: "unsupported version"}
	}
	_, ok = r.u16() // flags, unused by the interpreter
	if !ok {
		return nil, &ASTTruncatedError{Reason: "header: short read on flags"}
	}
	nodeCount, ok := r.u32()
	if !ok {
		return nil, &ASTTruncatedError{Reason: "header: short read on node_count"}
	}
	if nodeCount == 0 {
		return nil, &ASTFormatError{Reason: "node_count is zero"}
	}
	stringTableSize, ok := r.u32()
	if !ok {
		return nil, &ASTTruncatedError{Reason: "header: short read on string_table_size"}
	}
	if r.pos+int(stringTableSize) > len(r.buf) {
		return nil, &ASTFormatError{Reason: "string table offset past buffer"}
	}

	strs, err := r.readStringTable()
	if err != nil {
		return nil, err
	}

	idx := 0
	root, err := r.readNode(strs, &idx, int(nodeCount))
	if err != nil {
		return nil, err
	}
	return &Tree{Root: root, Strings: strs}, nil
}

type astReader struct {
	buf []byte
	pos int
}

func (r *astReader) u16() (uint16, bool) {
	if r.pos+2 > len(r.buf) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, true
}

func (r *astReader) u32() (uint32, bool) {
	if r.pos+4 > len(r.buf) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, true
}

func (r *astReader) u64() (uint64, bool) {
	if r.pos+8 > len(r.buf) {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, true
}

func (r *astReader) u8() (uint8, bool) {
	if r.pos+1 > len(r.buf) {
		return 0, false
	}
	v := r.buf[r.pos]
	r.pos++
	return v, true
}

func (r *astReader) bytes(n int) ([]byte, bool) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, false
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, true
}

func (r *astReader) readStringTable() ([]string, error) {
	count, ok := r.u32()
	if !ok {
		return nil, &ASTTruncatedError{Reason: "string table: short read on count"}
	}
	strs := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		length, ok := r.u16()
		if !ok {
			return nil, &ASTTruncatedError{Reason: "string table: short read on entry length"}
		}
		data, ok := r.bytes(int(length))
		if !ok {
			return nil, &ASTTruncatedError{Reason: "string table: entry overruns buffer"}
		}
		nul, ok := r.u8()
		if !ok || nul != 0 {
			return nil, &ASTFormatError{Reason: "string table: missing NUL terminator"}
		}
		strs = append(strs, intern(string(data)))
	}
	return strs, nil
}

func (r *astReader) stringAt(strs []string, idx uint32) (string, bool) {
	if int(idx) >= len(strs) {
		return "", false
	}
	return strs[idx], true
}

// readNode decodes one node and its subtree in pre-order, matching the
// writer's pre-order walk (§4.1): kind, flags, payload size, payload,
// child_count, then recursively child_count children.
func (r *astReader) readNode(strs []string, idx *int, budget int) (*Node, error) {
	if *idx >= budget {
		return nil, &ASTFormatError{Reason: "node table: more nodes decoded than node_count declares"}
	}
	kindByte, ok := r.u8()
	if !ok {
		return nil, &ASTTruncatedError{Reason: "node: short read on kind"}
	}
	kind := NodeKind(kindByte)
	if kind == NPreprocessorDirective {
		return nil, &ASTFormatError{Reason: "preprocessor directive node found in AST"}
	}
	flags, ok := r.u8()
	if !ok {
		return nil, &ASTTruncatedError{Reason: "node: short read on flags"}
	}
	payloadSize, ok := r.u16()
	if !ok {
		return nil, &ASTTruncatedError{Reason: "node: short read on payload size"}
	}
	payload, ok := r.bytes(int(payloadSize))
	if !ok {
		return nil, &ASTFormatError{Reason: "node payload overruns buffer"}
	}
	childCount, ok := r.u16()
	if !ok {
		return nil, &ASTTruncatedError{Reason: "node: short read on child_count"}
	}

	n := &Node{Kind: kind, Flags: flags, Index: *idx}
	*idx++
	if err := decodePayload(n, kind, payload, strs); err != nil {
		return nil, err
	}

	n.Children = make([]*Node, 0, childCount)
	for i := uint16(0); i < childCount; i++ {
		child, err := r.readNode(strs, idx, budget)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// decodePayload interprets a node's payload bytes per its kind (§4.1):
// number literals carry a ValueType byte then raw little-endian value
// bytes; identifiers/strings/operators/type names carry a u32 string
// table index; everything else has no payload beyond children.
func decodePayload(n *Node, kind NodeKind, payload []byte, strs []string) error {
	switch kind {
	case NNumber:
		if len(payload) < 1 {
			return &ASTFormatError{Reason: "number literal: missing ValueType byte"}
		}
		n.ValType = ValueType(payload[0])
		rest := payload[1:]
		return decodeNumberValue(n, rest)
	case NIdentifier, NString, NChar, NWideChar, NWideString, NConstSymbol:
		idx, ok := decodeStringIndex(payload)
		if !ok {
			return &ASTFormatError{Reason: "string-indexed node: bad payload size"}
		}
		s, ok := stringAtIndex(strs, idx)
		if !ok {
			return &ASTFormatError{Reason: "string-indexed node: index out of range"}
		}
		n.Str = s
	case NBinary, NUnary, NAssign, NPostfix:
		idx, ok := decodeStringIndex(payload)
		if !ok {
			return &ASTFormatError{Reason: "operator node: bad payload size"}
		}
		s, ok := stringAtIndex(strs, idx)
		if !ok {
			return &ASTFormatError{Reason: "operator node: index out of range"}
		}
		n.Op = s
	case NTypeScalar, NTypeStruct, NTypeUnion, NTypeEnum, NTypeRef, NVarDecl:
		if len(payload) == 0 {
			return nil
		}
		idx, ok := decodeStringIndex(payload)
		if !ok {
			return &ASTFormatError{Reason: "type node: bad payload size"}
		}
		s, ok := stringAtIndex(strs, idx)
		if !ok {
			return &ASTFormatError{Reason: "type node: index out of range"}
		}
		n.TypeName = s
	}
	return nil
}

func decodeStringIndex(payload []byte) (uint32, bool) {
	if len(payload) != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(payload), true
}

func stringAtIndex(strs []string, idx uint32) (string, bool) {
	if int(idx) >= len(strs) {
		return "", false
	}
	return strs[idx], true
}

// decodeNumberValue widens/narrows a literal's raw bytes per §4.1: 8/16/32
// bit integers widen to i32, 64-bit integers narrow to i32 (with
// overflow left to wrap, consistent with §3.1's i32 wraparound
// invariant), f32 widens to f64.
func decodeNumberValue(n *Node, raw []byte) error {
	switch n.ValType {
	case VTVoid:
		return nil
	case VTBool:
		if len(raw) < 1 {
			return &ASTFormatError{Reason: "bool literal: short payload"}
		}
		if raw[0] != 0 {
			n.NumVal = 1
		}
		return nil
	case VTI8, VTU8:
		if len(raw) < 1 {
			return &ASTFormatError{Reason: "8-bit literal: short payload"}
		}
		n.NumVal = int64(int8(raw[0]))
		if n.ValType == VTU8 {
			n.NumVal = int64(raw[0])
		}
		return nil
	case VTI16, VTU16:
		if len(raw) < 2 {
			return &ASTFormatError{Reason: "16-bit literal: short payload"}
		}
		u := binary.LittleEndian.Uint16(raw)
		if n.ValType == VTI16 {
			n.NumVal = int64(int16(u))
		} else {
			n.NumVal = int64(u)
		}
		return nil
	case VTI32, VTU32:
		if len(raw) < 4 {
			return &ASTFormatError{Reason: "32-bit literal: short payload"}
		}
		u := binary.LittleEndian.Uint32(raw)
		if n.ValType == VTI32 {
			n.NumVal = int64(int32(u))
		} else {
			n.NumVal = int64(int32(u)) // collapses to i32 per §3.1
		}
		return nil
	case VTI64, VTU64:
		if len(raw) < 8 {
			return &ASTFormatError{Reason: "64-bit literal: short payload"}
		}
		u := binary.LittleEndian.Uint64(raw)
		n.NumVal = int64(int32(int64(u))) // narrow to i32, diagnostic omitted at decode time
		return nil
	case VTF32:
		if len(raw) < 4 {
			return &ASTFormatError{Reason: "f32 literal: short payload"}
		}
		bits := binary.LittleEndian.Uint32(raw)
		n.NumFloat = float64(math.Float32frombits(bits))
		return nil
	case VTF64:
		if len(raw) < 8 {
			return &ASTFormatError{Reason: "f64 literal: short payload"}
		}
		bits := binary.LittleEndian.Uint64(raw)
		n.NumFloat = math.Float64frombits(bits)
		return nil
	case VTString:
		idx, ok := decodeStringIndex(raw)
		if !ok {
			return &ASTFormatError{Reason: "string literal payload: bad size"}
		}
		n.NumVal = int64(idx)
		return nil
	}
	return &ASTFormatError{Reason: "unknown ValueType in number literal"}
}
