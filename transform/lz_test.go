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

func TestLZXRoundtrip(t *testing.T) {
	tr, err := NewLZXCodec()
	require.NoError(t, err)

	in := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)
	roundtrip(t, tr, in)
}

func TestLZXExtraModeRoundtrip(t *testing.T) {
	ctx := &kc.Context{Extra: true}
	tr, err := NewLZXCodecWithCtx(ctx)
	require.NoError(t, err)

	in := bytes.Repeat([]byte("ACGTACGTACGTACGTTTTGCA"), 500)
	roundtrip(t, tr, in)
}

func TestLZXDistinctBuffer(t *testing.T) {
	tr, err := NewLZXCodec()
	require.NoError(t, err)
	distinctBufferRefusal(t, tr, 64)
}

func TestLZPRoundtrip(t *testing.T) {
	tr, err := NewLZPCodec()
	require.NoError(t, err)

	in := bytes.Repeat([]byte("mississippi river banks are muddy after the rain falls"), 100)
	roundtrip(t, tr, in)
}

func TestLZPDistinctBuffer(t *testing.T) {
	tr, err := NewLZPCodec()
	require.NoError(t, err)
	distinctBufferRefusal(t, tr, 256)
}

func TestLZCodecDispatchesToLZPViaContext(t *testing.T) {
	ctx := &kc.Context{Transform: "LZP"}
	tr, err := NewLZCodecWithCtx(ctx)
	require.NoError(t, err)

	in := bytes.Repeat([]byte("mississippi river banks are muddy after the rain falls"), 100)
	roundtrip(t, tr, in)
}

func TestLZCodecDefaultsToLZX(t *testing.T) {
	tr, err := NewLZCodecWithCtx(nil)
	require.NoError(t, err)

	in := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)
	roundtrip(t, tr, in)
}
