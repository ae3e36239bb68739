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
	"testing"

	"github.com/stretchr/testify/require"

	kc "github.com/corewave-labs/kanzicore"
)

// rgbaLikeBlock simulates a fixed 4-byte pixel stride (e.g. RGBA) with
// a slow gradient per channel, which an FSD stride-4 XOR nearly zeroes
// out, so FSD should reliably prefer it over the raw baseline.
func rgbaLikeBlock(n int) []byte {
	base := [4]byte{10, 80, 150, 220}
	buf := make([]byte, n)

	for i := range buf {
		buf[i] = base[i%4] + byte(i/400)
	}

	return buf
}

func TestFSDRoundtrip(t *testing.T) {
	tr, err := NewFSDCodec()
	require.NoError(t, err)
	roundtrip(t, tr, rgbaLikeBlock(4096))
}

func TestFSDSetsContextDataType(t *testing.T) {
	ctx := &kc.Context{}
	tr, err := NewFSDCodecWithCtx(ctx)
	require.NoError(t, err)

	in := rgbaLikeBlock(4096)
	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)

	if ok {
		require.Equal(t, kc.DTMultimedia, ctx.DataType)
	}
}

func TestFSDTooSmallRefuses(t *testing.T) {
	tr, err := NewFSDCodec()
	require.NoError(t, err)

	in := rgbaLikeBlock(256)
	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFSDDistinctBuffer(t *testing.T) {
	tr, err := NewFSDCodec()
	require.NoError(t, err)
	distinctBufferRefusal(t, tr, 2048)
}

func TestFSDRandomDataRefuses(t *testing.T) {
	tr, err := NewFSDCodec()
	require.NoError(t, err)

	in := make([]byte, 4096)

	for i := range in {
		// Pseudo-random lowercase letters (murmur3 finalizer per index):
		// no fixed-stride correlation, and XOR at any stride spreads the
		// 26 letters over a wider alphabet, so no stride beats the raw
		// baseline.
		h := uint32(i) * 0x9E3779B1

		h ^= h >> 16
		h *= 0x85EBCA6B
		h ^= h >> 13
		h *= 0xC2B2AE35
		h ^= h >> 16
		in[i] = 'a' + byte((h>>8)%26)
	}

	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)
	require.False(t, ok)
}
