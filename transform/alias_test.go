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

func TestAliasDigramRoundtrip(t *testing.T) {
	tr, err := NewAliasCodec()
	require.NoError(t, err)

	in := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog, again and again. "), 40)
	roundtrip(t, tr, in)
}

func dnaBlock(n int) []byte {
	bases := []byte("ACGT")
	out := make([]byte, n)

	for i := range out {
		out[i] = bases[i%len(bases)]
	}

	return out
}

func TestAliasSmallAlphabetRoundtrip(t *testing.T) {
	tr, err := NewAliasCodec()
	require.NoError(t, err)

	roundtrip(t, tr, dnaBlock(4096))
}

func TestAliasPackOnlyDNAHonoursDataType(t *testing.T) {
	ctx := &kc.Context{PackOnlyDNA: true, DataType: kc.DTDNA}
	tr, err := NewAliasCodecWithCtx(ctx)
	require.NoError(t, err)

	roundtrip(t, tr, dnaBlock(4096))
}

func TestAliasPackOnlyDNARefusesNonDNA(t *testing.T) {
	ctx := &kc.Context{PackOnlyDNA: true, DataType: kc.DTUndefined}
	tr, err := NewAliasCodecWithCtx(ctx)
	require.NoError(t, err)

	in := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog, again and again. "), 40)
	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAliasTooSmallRefuses(t *testing.T) {
	tr, err := NewAliasCodec()
	require.NoError(t, err)

	in := dnaBlock(64)
	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAliasDistinctBuffer(t *testing.T) {
	tr, err := NewAliasCodec()
	require.NoError(t, err)
	distinctBufferRefusal(t, tr, 2048)
}

func TestAliasFullAlphabetRefuses(t *testing.T) {
	tr, err := NewAliasCodec()
	require.NoError(t, err)

	in := make([]byte, 4096)

	for i := range in {
		in[i] = byte(i)
	}

	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)
	require.False(t, ok, "every byte value present leaves no unused alias slots")
}
