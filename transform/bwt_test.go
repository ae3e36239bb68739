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

// scenario 3: b = "mississippi\0" (12 bytes), plan BWT: the BWT is
// "ipssmpissii" once the primary index (5) is accounted for.
func TestBWTMississippi(t *testing.T) {
	tr, err := NewBWT()
	require.NoError(t, err)

	in := append([]byte("mississippi"), 0)
	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, len(in), dst.Index)
	require.Equal(t, uint32(5), tr.PrimaryIndex(0))

	decBuf := make([]byte, len(in))
	enc := &kc.Slice{Buf: encBuf, Index: 0, Length: dst.Index}
	out := &kc.Slice{Buf: decBuf, Index: 0, Length: len(decBuf)}

	ok, err = tr.Inverse(enc, out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, decBuf[:out.Index])
}

func TestBWTRoundtripSmall(t *testing.T) {
	tr, err := NewBWT()
	require.NoError(t, err)

	in := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 50)
	roundtrip(t, tr, in)
}

func TestBWTRoundtripMultiChunk(t *testing.T) {
	ctxFwd := &kc.Context{}
	tr, err := NewBWTWithCtx(ctxFwd)
	require.NoError(t, err)

	in := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 300000)
	require.Greater(t, len(in), 3<<22, "must exceed 12 MiB for GetBWTChunks to round up to 2+ chunks")

	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)
	require.True(t, ok)
	require.Greater(t, GetBWTChunks(len(in)), 1)

	decTr, err := NewBWT()
	require.NoError(t, err)

	for c := 0; c < GetBWTChunks(len(in)); c++ {
		require.True(t, decTr.SetPrimaryIndex(c, tr.PrimaryIndex(c)))
	}

	decBuf := make([]byte, len(in))
	enc := &kc.Slice{Buf: encBuf, Index: 0, Length: dst.Index}
	out := &kc.Slice{Buf: decBuf, Index: 0, Length: len(decBuf)}

	ok, err = decTr.Inverse(enc, out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, decBuf[:out.Index])
}

func TestBWTDistinctBuffer(t *testing.T) {
	tr, err := NewBWT()
	require.NoError(t, err)
	distinctBufferRefusal(t, tr, 64)
}

func TestBWTSRoundtrip(t *testing.T) {
	tr, err := NewBWTS()
	require.NoError(t, err)

	in := bytes.Repeat([]byte("banana banana banana bandana "), 30)
	roundtrip(t, tr, in)
}

func TestBWTSDistinctBuffer(t *testing.T) {
	tr, err := NewBWTS()
	require.NoError(t, err)
	distinctBufferRefusal(t, tr, 64)
}
