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

func TestUTFRoundtrip(t *testing.T) {
	tr, err := NewUTFCodec()
	require.NoError(t, err)

	in := bytes.Repeat([]byte("你好世界, hello world! "), 60)
	require.GreaterOrEqual(t, len(in), 1024)
	roundtrip(t, tr, in)
}

func TestUTFSetsContextDataType(t *testing.T) {
	ctx := &kc.Context{}
	tr, err := NewUTFCodecWithCtx(ctx)
	require.NoError(t, err)

	in := bytes.Repeat([]byte("你好世界, hello world! "), 60)
	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)

	if ok {
		require.Equal(t, kc.DTUTF8, ctx.DataType)
	}
}

func TestUTFTooSmallRefuses(t *testing.T) {
	tr, err := NewUTFCodec()
	require.NoError(t, err)

	in := []byte("too short")
	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUTFDistinctBuffer(t *testing.T) {
	tr, err := NewUTFCodec()
	require.NoError(t, err)
	distinctBufferRefusal(t, tr, 2048)
}

func TestUTFInvalidUTF8Refuses(t *testing.T) {
	tr, err := NewUTFCodec()
	require.NoError(t, err)

	in := bytes.Repeat([]byte{0xFF, 0xFE, 0x80, 0x81}, 300)
	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)
	require.False(t, ok)
}
