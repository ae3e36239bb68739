/*
Copyright 2011-2024 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package transform

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	kc "github.com/corewave-labs/kanzicore"
)

func TestROLZCodec1ANSRoundtripMatchHeavy(t *testing.T) {
	tr, err := NewROLZCodec()
	require.NoError(t, err)

	in := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 300)
	roundtrip(t, tr, in)
}

func TestROLZCodec1ANSRoundtripLiteralHeavy(t *testing.T) {
	tr, err := NewROLZCodec()
	require.NoError(t, err)

	in := make([]byte, 4096)

	for i := range in {
		h := uint32(i) + 0x9E3779B9
		h ^= h << 13
		h ^= h >> 17
		h ^= h << 5
		in[i] = byte(h >> 8)
	}

	roundtrip(t, tr, in)
}

func TestROLZCodec1ANSDistinctBuffer(t *testing.T) {
	tr, err := NewROLZCodec()
	require.NoError(t, err)
	distinctBufferRefusal(t, tr, 256)
}

func TestROLZCodec2CMRoundtripViaContext(t *testing.T) {
	ctx := &kc.Context{Transform: "ROLZX"}
	tr, err := NewROLZCodecWithCtx(ctx)
	require.NoError(t, err)

	in := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 300)
	roundtrip(t, tr, in)
}

func TestROLZCodec2CMRoundtripMixed(t *testing.T) {
	ctx := &kc.Context{Transform: "ROLZX"}
	tr, err := NewROLZCodecWithCtx(ctx)
	require.NoError(t, err)

	var in []byte
	in = append(in, bytes.Repeat([]byte("ACGTACGTACGTACGT"), 80)...)
	in = append(in, bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 80)...)
	roundtrip(t, tr, in)
}

func TestROLZCodec2CMDistinctBuffer(t *testing.T) {
	ctx := &kc.Context{Transform: "ROLZX"}
	tr, err := NewROLZCodecWithCtx(ctx)
	require.NoError(t, err)
	distinctBufferRefusal(t, tr, 256)
}

func TestROLZTooSmallRefuses(t *testing.T) {
	tr, err := NewROLZCodec()
	require.NoError(t, err)

	in := make([]byte, 32)
	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)
	require.False(t, ok)
}
