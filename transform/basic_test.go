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

func TestNullTransformRoundtrip(t *testing.T) {
	tr, err := NewNullTransform()
	require.NoError(t, err)
	roundtrip(t, tr, []byte("anything goes through unchanged"))
}

func TestNullTransformDistinctBuffer(t *testing.T) {
	tr, err := NewNullTransform()
	require.NoError(t, err)
	distinctBufferRefusal(t, tr, 32)
}

// scenario 1: b = "aaaaaaaaaa" (10 x 'a'), plan RLT: forward must
// either refuse (too small) or produce a <=7-byte encoding that
// decodes exactly to the input.
func TestRLTTenAs(t *testing.T) {
	tr, err := NewRLT()
	require.NoError(t, err)

	in := bytes.Repeat([]byte{'a'}, 10)
	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)

	if !ok {
		return
	}

	require.LessOrEqual(t, dst.Index, 7)

	decBuf := make([]byte, len(in))
	enc := &kc.Slice{Buf: encBuf, Index: 0, Length: dst.Index}
	out := &kc.Slice{Buf: decBuf, Index: 0, Length: len(decBuf)}
	ok, err = tr.Inverse(enc, out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, decBuf[:out.Index])
}

func TestRLTLongerRunsRoundtrip(t *testing.T) {
	tr, err := NewRLT()
	require.NoError(t, err)

	in := append(bytes.Repeat([]byte{'x'}, 400), []byte("tail of distinct bytes follow up here")...)
	roundtrip(t, tr, in)
}

func TestRLTDistinctBuffer(t *testing.T) {
	tr, err := NewRLT()
	require.NoError(t, err)
	distinctBufferRefusal(t, tr, 64)
}

// scenario 2: b = 1024 bytes of 0x00, plan ZRLT: inverse rebuilds
// 1024 zeros.
func TestZRLTThousandTwentyFourZeros(t *testing.T) {
	tr, err := NewZRLT()
	require.NoError(t, err)

	in := make([]byte, 1024)
	roundtrip(t, tr, in)
}

func TestZRLTMixedRoundtrip(t *testing.T) {
	tr, err := NewZRLT()
	require.NoError(t, err)

	in := make([]byte, 512)

	for i := 100; i < 110; i++ {
		in[i] = byte(i)
	}

	roundtrip(t, tr, in)
}

func TestZRLTDistinctBuffer(t *testing.T) {
	tr, err := NewZRLT()
	require.NoError(t, err)
	distinctBufferRefusal(t, tr, 64)
}

func TestSRTRoundtrip(t *testing.T) {
	tr, err := NewSRT()
	require.NoError(t, err)

	in := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 20)
	roundtrip(t, tr, in)
}

func TestSRTDistinctBuffer(t *testing.T) {
	tr, err := NewSRT()
	require.NoError(t, err)
	distinctBufferRefusal(t, tr, 64)
}

func TestSBRTModesRoundtrip(t *testing.T) {
	in := bytes.Repeat([]byte("mississippi river banks are muddy after rain"), 30)

	for _, mode := range []int{SBRTModeMTF, SBRTModeRank, SBRTModeTimestamp} {
		tr, err := NewSBRT(mode)
		require.NoError(t, err)
		roundtrip(t, tr, in)
	}
}

func TestSBRTWithCtxDefaultsToMTF(t *testing.T) {
	tr, err := NewSBRTWithCtx(nil)
	require.NoError(t, err)
	require.Equal(t, SBRTModeMTF, tr.mode)
}

func TestSBRTWithCtxHonorsMode(t *testing.T) {
	ctx := &kc.Context{SBRTMode: SBRTModeRank}
	tr, err := NewSBRTWithCtx(ctx)
	require.NoError(t, err)
	require.Equal(t, SBRTModeRank, tr.mode)
}

func TestSBRTInvalidMode(t *testing.T) {
	_, err := NewSBRT(99)
	require.Error(t, err)
}
