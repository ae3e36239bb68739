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

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	kc "github.com/corewave-labs/kanzicore"
	"github.com/corewave-labs/kanzicore/internal"
)

// scenario 6: a 4 KiB DNA block run through PACK(DNA)+BWT+SRT, with
// the block's data type classified as DNA upfront (as a
// DataTypeDetector pass ahead of the pipeline would), round-trips and
// honours ctx.PackOnlyDNA throughout.
func TestDNAPipelinePackBWTSRT(t *testing.T) {
	in := dnaBlock(4096)

	var freqs [256]int
	internal.ComputeHistogram(in, freqs[:], true, false)
	dt := internal.DetectSimpleType(len(in), freqs[:])
	require.Equal(t, kc.DTDNA, dt, "synthetic ACGT block must classify as DNA")

	ctx := &kc.Context{DataType: dt, PackOnlyDNA: true}

	plan, err := GetType("PACK+BWT+SRT")
	require.NoError(t, err)

	seq, err := New(ctx, plan)
	require.NoError(t, err)

	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, seq.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := seq.Forward(src, dst)
	require.NoError(t, err)
	require.True(t, ok)

	skipFlags := seq.SkipFlags()

	decCtx := &kc.Context{DataType: dt, PackOnlyDNA: true}
	decSeq, err := New(decCtx, plan)
	require.NoError(t, err)
	decSeq.SetSkipFlags(skipFlags)

	decBuf := make([]byte, len(in))
	enc := &kc.Slice{Buf: encBuf, Index: 0, Length: dst.Index}
	out := &kc.Slice{Buf: decBuf, Index: 0, Length: len(decBuf)}

	ok, err = decSeq.Inverse(enc, out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, decBuf[:out.Index])

	// None of the PACK/BWT/SRT steps touch Context fields beyond
	// DataType and PackOnlyDNA, so the encode- and decode-side
	// contexts must still agree structurally once both sides are done.
	if diff := cmp.Diff(ctx, decCtx); diff != "" {
		t.Errorf("encode/decode Context diverged (-enc +dec):\n%s", diff)
	}
}
