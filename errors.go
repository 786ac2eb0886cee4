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

	"github.com/pkg/errors"
)

// ErrorKind is one of the stable error kinds from spec.md §7, used as the
// errorType field of an ERROR command.
type ErrorKind string

const (
	ErrParse           ErrorKind = "ParseError"
	ErrUnknownSymbol   ErrorKind = "UnknownSymbol"
	ErrUnknownFunction ErrorKind = "UnknownFunction"
	ErrType            ErrorKind = "TypeError"
	ErrBounds          ErrorKind = "BoundsError"
	ErrNullPointer     ErrorKind = "NullPointerError"
	ErrStackOverflow   ErrorKind = "StackOverflowError"
	ErrMemory          ErrorKind = "MemoryError"
	ErrDivisionByZero  ErrorKind = "DivisionByZero"
	ErrPreprocessor    ErrorKind = "PreprocessorError"
	ErrRuntime         ErrorKind = "RuntimeError"
)

// SourcePos is a loose position marker carried by the compact AST; the
// loader has no line/column info, only node identity, so we key on that.
type SourcePos struct {
	NodeIndex int
}

// RuntimeError is an error raised during interpretation that is tagged
// with one of the stable error kinds from §7 so it can be reported as an
// ERROR command's errorType field.
//
// Modeled on kati's EvalError (eval.go), generalized from a file:line
// position (not available here; the AST carries no source spans) to a
// node-indexed one, and wrapped with github.com/pkg/errors so causes
// survive through the evaluator's call stack.
type RuntimeError struct {
	Kind ErrorKind
	Pos  SourcePos
	Err  error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// newError builds a RuntimeError of the given kind at pos, using
// errors.Errorf so the formatted message carries a stack trace.
func newError(kind ErrorKind, pos SourcePos, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{
		Kind: kind,
		Pos:  pos,
		Err:  errors.Errorf(format, args...),
	}
}

// ASTFormatError is returned by the compact AST loader on malformed input
// (§4.1): bad magic, unsupported version, truncated buffers, or a node
// tagged as a preprocessor directive.
type ASTFormatError struct {
	Reason string
}

func (e *ASTFormatError) Error() string { return "ASTFormatError: " + e.Reason }

// ASTTruncatedError is returned by the compact AST loader when the byte
// buffer ends before a declared field or node has been fully read.
type ASTTruncatedError struct {
	Reason string
}

func (e *ASTTruncatedError) Error() string { return "ASTTruncatedError: " + e.Reason }
