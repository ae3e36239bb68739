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
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	kc "github.com/corewave-labs/kanzicore"
)

func runSequenceRoundtrip(t *testing.T, plan uint64, in []byte) {
	t.Helper()

	seq, err := New(&kc.Context{}, plan)
	require.NoError(t, err)

	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, seq.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := seq.Forward(src, dst)
	require.NoError(t, err)

	if !ok {
		return
	}

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

func TestSequenceRoundtripVariousPlans(t *testing.T) {
	in := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 300)

	plans := []string{
		"BWT+MTFT+ZRLT",
		"BWTS+RANK+ZRLT",
		"RLT+ZRLT",
		"TEXT+LZX",
		"LZP",
		"ROLZ",
		"ROLZX",
	}

	for _, name := range plans {
		plan, err := GetType(name)
		require.NoError(t, err)
		runSequenceRoundtrip(t, plan, in)
	}
}

// "Skip-through equivalence": when every step in the chain refuses,
// skipFlags end up all-1s and Inverse must reduce to a straight copy.
func TestSequenceSkipThroughEquivalence(t *testing.T) {
	// Every one of UTF (min 1024), EXE (min 4096) and MM/FSD (min
	// 1024) refuses outright on a 2-byte block.
	in := []byte("xx")

	plan, err := GetType("UTF+EXE+MM")
	require.NoError(t, err)

	seq, err := New(&kc.Context{}, plan)
	require.NoError(t, err)

	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, seq.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := seq.Forward(src, dst)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, byte(0xFF), seq.SkipFlags(), "every step refused, so every bit stays set")

	decBuf := make([]byte, len(in))
	enc := &kc.Slice{Buf: encBuf, Index: 0, Length: dst.Index}
	out := &kc.Slice{Buf: decBuf, Index: 0, Length: len(decBuf)}

	decOk, err := seq.Inverse(enc, out)
	require.NoError(t, err)
	require.True(t, decOk)
	require.Equal(t, in, decBuf[:out.Index])
}

func TestSequenceDistinctBuffer(t *testing.T) {
	plan, err := GetType("RLT+ZRLT")
	require.NoError(t, err)
	seq, err := New(&kc.Context{}, plan)
	require.NoError(t, err)

	n := 256
	buf := make([]byte, n+64)
	src := &kc.Slice{Buf: buf, Index: 0, Length: n}
	dst := &kc.Slice{Buf: buf, Index: 0, Length: len(buf)}

	ok, _ := seq.Forward(src, dst)
	require.False(t, ok)
}

// A Context.Log set to a real logger must see a "step applied"/"step
// refused" line per transform in the plan, not just the no-op default.
func TestSequenceLogsStepBoundaries(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	ctx := &kc.Context{Log: &log}
	plan, err := GetType("RLT+ZRLT")
	require.NoError(t, err)

	seq, err := New(ctx, plan)
	require.NoError(t, err)

	in := bytes.Repeat([]byte("a"), 64)
	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, seq.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := seq.Forward(src, dst)
	require.NoError(t, err)
	require.True(t, ok)

	out := buf.String()
	require.NotEmpty(t, out, "a non-nil Context.Log must produce step-boundary log lines")
	require.True(t,
		strings.Contains(out, "step applied") || strings.Contains(out, "step refused"),
		"expected a step-boundary message, got: %s", out)
}

func TestSequenceRejectsTooManyTransforms(t *testing.T) {
	tr, err := NewNullTransform()
	require.NoError(t, err)

	transforms := make([]kc.Transform, 9)

	for i := range transforms {
		transforms[i] = tr
	}

	_, err = NewSequence(transforms)
	require.Error(t, err)
}
