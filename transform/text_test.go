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

const englishSample = "The quick brown fox jumps over the lazy dog. " +
	"Pack my box with five dozen liquor jugs, and then the quick fox ran away again. " +
	"This is plain English prose used to exercise the text codec's static dictionary matching. "

func englishBlock(n int) []byte {
	return bytes.Repeat([]byte(englishSample), n/len(englishSample)+1)[:n]
}

func TestTextCodecVariant1Roundtrip(t *testing.T) {
	tr, err := NewTextCodec()
	require.NoError(t, err)

	in := englishBlock(64 * 1024)
	roundtrip(t, tr, in)
}

func TestTextCodecVariant2Roundtrip(t *testing.T) {
	ctx := &kc.Context{Entropy: "ANS0"}
	tr, err := NewTextCodecWithCtx(ctx)
	require.NoError(t, err)

	in := englishBlock(64 * 1024)
	roundtrip(t, tr, in)
}

func TestTextCodecTooSmallRefuses(t *testing.T) {
	tr, err := NewTextCodec()
	require.NoError(t, err)

	in := []byte("too short to bother with")
	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTextCodecDistinctBuffer(t *testing.T) {
	tr, err := NewTextCodec()
	require.NoError(t, err)
	distinctBufferRefusal(t, tr, 2048)
}

// scenario 4: a 64 KiB English-text block through TEXT+BWT+MTFT+ZRLT
// decodes back to the exact source.
func TestTextBWTMTFTZRLTPipeline(t *testing.T) {
	plan, err := GetType("TEXT+BWT+MTFT+ZRLT")
	require.NoError(t, err)

	ctx := &kc.Context{}
	seq, err := New(ctx, plan)
	require.NoError(t, err)

	in := englishBlock(64 * 1024)
	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, seq.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := seq.Forward(src, dst)
	require.NoError(t, err)
	require.True(t, ok)

	skipFlags := seq.SkipFlags()

	decSeq, err := New(&kc.Context{}, plan)
	require.NoError(t, err)
	decSeq.SetSkipFlags(skipFlags)

	decBuf := make([]byte, len(in))
	enc := &kc.Slice{Buf: encBuf, Index: 0, Length: dst.Index}
	out := &kc.Slice{Buf: decBuf, Index: 0, Length: len(decBuf)}

	ok, err = decSeq.Inverse(enc, out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, decBuf[:out.Index])
}
