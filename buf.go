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

import "sync"

// bufPool recycles small growable byte buffers used by the `+`
// operator's string concatenation in eval_expr.go, avoiding an
// allocation per expression evaluation. Grounded
// on kati's evalBuffer/wordBuffer pooling in buf.go, pared down to the
// single growable-[]byte concern (no word-splitting writer: the AST is
// already tokenized, so there is nothing here resembling Make's
// space-separated value model).
var bufPool = sync.Pool{
	New: func() interface{} { return new(pooledBuf) },
}

type pooledBuf struct {
	buf []byte
}

func getBuf() *pooledBuf {
	b := bufPool.Get().(*pooledBuf)
	b.buf = b.buf[:0]
	return b
}

func (b *pooledBuf) release() {
	if cap(b.buf) > 4096 {
		return
	}
	bufPool.Put(b)
}

func (b *pooledBuf) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

func (b *pooledBuf) WriteByte(c byte) {
	b.buf = append(b.buf, c)
}

func (b *pooledBuf) String() string { return string(b.buf) }
