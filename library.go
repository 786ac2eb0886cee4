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

// libraryMethodKind distinguishes the three method categories §4.7
// describes for a registered library class.
type libraryMethodKind int

const (
	methodInternal libraryMethodKind = iota // computed locally, no command
	methodExternal                          // always emits a library command
	methodStatic                            // callable via Class::method
)

type libraryMethod struct {
	kind libraryMethodKind
	fn   func(ip *Interpreter, recv *Value, args []Value) Value
}

// libraryClass is one registered class's method table, keyed by bare
// method name (receiver-qualified dispatch is resolved by callLibraryMethod).
type libraryClass struct {
	name    string
	methods map[string]libraryMethod
}

// libraryRegistry holds every known library class plus the instance→class
// binding recorded when a variable is declared with a recognized class
// type name. Grounded on kati's funcMap registration pattern (func.go:
// a name-keyed table of builtin implementations consulted before falling
// through to a user rule), generalized from "flat function table" to
// "per-class method table" since §4.7 groups library methods by receiver.
type libraryRegistry struct {
	classes   map[string]*libraryClass
	instances map[string]string // variable name -> class name
}

func newLibraryRegistry() *libraryRegistry {
	r := &libraryRegistry{
		classes:   make(map[string]*libraryClass),
		instances: make(map[string]string),
	}
	r.registerNeoPixel()
	return r
}

// registerNeoPixel grounds §4.7's example library ("Adafruit_NeoPixel::
// numPixels, getBrightness, Color(r,g,b) returns packed 0xRRGGBB") with a
// minimal but functioning class: internal methods computed from the
// instance's own struct fields, external methods (show/setPixelColor)
// that emit a command for the host-side simulator to render.
func (r *libraryRegistry) registerNeoPixel() {
	c := &libraryClass{name: "Adafruit_NeoPixel", methods: map[string]libraryMethod{
		"numPixels": {kind: methodInternal, fn: func(ip *Interpreter, recv *Value, args []Value) Value {
			if recv != nil && recv.Tag == TagStruct {
				if n, ok := recv.Struct["numPixels"]; ok {
					return n
				}
			}
			return I32Value(0)
		}},
		"getBrightness": {kind: methodInternal, fn: func(ip *Interpreter, recv *Value, args []Value) Value {
			if recv != nil && recv.Tag == TagStruct {
				if n, ok := recv.Struct["brightness"]; ok {
					return n
				}
			}
			return I32Value(0)
		}},
		"Color": {kind: methodStatic, fn: func(ip *Interpreter, recv *Value, args []Value) Value {
			r := arg(args, 0).CoerceInt() & 0xFF
			g := arg(args, 1).CoerceInt() & 0xFF
			b := arg(args, 2).CoerceInt() & 0xFF
			return I32Value((r << 16) | (g << 8) | b)
		}},
		"begin": {kind: methodExternal},
		"show":  {kind: methodExternal},
		"setPixelColor": {kind: methodExternal},
		"setBrightness": {kind: methodExternal},
		"clear":         {kind: methodExternal},
	}}
	r.classes[c.name] = c
}

// bindInstance records that varName was declared with a type string
// containing a registered class name, so later `varName.method(...)` calls
// route through the library registry instead of falling to a plain
// intrinsic lookup.
func (r *libraryRegistry) bindInstance(varName, typeName string) {
	for name := range r.classes {
		if strings.Contains(typeName, name) {
			r.instances[varName] = name
			return
		}
	}
}

// callLibraryMethod implements §4.7's library-registry dispatch: a known
// instance routes to its class's method table; an unrecognized receiver
// falls through (handled=false) so the caller tries the plain intrinsic
// table with the qualified name `obj.method`.
func (ip *Interpreter) callLibraryMethod(obj, method string, args []Value, n *Node) (Value, bool, error) {
	className, ok := ip.libraries.instances[obj]
	if !ok {
		className, ok = obj, ip.libraries.classes[obj] != nil // Class::method static call
	}
	if !ok {
		return VoidValue(), false, nil
	}
	class := ip.libraries.classes[className]
	m, ok := class.methods[method]
	if !ok {
		return VoidValue(), false, nil
	}

	var recv *Value
	if v, ok := ip.scope.Lookup(obj); ok {
		recv = &v.Value
	}

	switch m.kind {
	case methodInternal, methodStatic:
		if m.fn == nil {
			return VoidValue(), true, newError(ErrUnknownFunction, n.pos(), "library method %s::%s not implemented", className, method)
		}
		return m.fn(ip, recv, args), true, nil
	case methodExternal:
		ip.emit(CmdFunctionCall, func(c *Command) {
			c.SetString("function", className+"."+method)
			c.Set("arguments", argsField(args))
			c.SetString("message", className+"."+method)
		})
		if m.fn != nil {
			return m.fn(ip, recv, args), true, nil
		}
		return VoidValue(), true, nil
	}
	return VoidValue(), true, nil
}
