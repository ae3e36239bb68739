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

// roundtrip runs t.Forward then t.Inverse over in and asserts the
// result matches in exactly, or that Forward refused outright.
func roundtrip(t *testing.T, tr kc.Transform, in []byte) {
	t.Helper()

	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)

	if !ok {
		return
	}

	require.Equal(t, len(in), src.Index, "src.Index must advance by the full input on success")

	decBuf := make([]byte, len(in))
	enc := &kc.Slice{Buf: encBuf, Index: 0, Length: dst.Index}
	out := &kc.Slice{Buf: decBuf, Index: 0, Length: len(decBuf)}

	ok, err = tr.Inverse(enc, out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, decBuf[:out.Index])
}

func distinctBufferRefusal(t *testing.T, tr kc.Transform, n int) {
	t.Helper()

	buf := make([]byte, n+64)

	for i := range buf[:n] {
		buf[i] = byte(i)
	}

	src := &kc.Slice{Buf: buf, Index: 0, Length: n}
	dst := &kc.Slice{Buf: buf, Index: 0, Length: len(buf)}

	ok, _ := tr.Forward(src, dst)
	require.False(t, ok, "forward on aliased buffers must refuse")
}
