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
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	kc "github.com/corewave-labs/kanzicore"
)

// buildELFX86Block synthesizes a minimal ELF64 little-endian header
// (e_machine = EM_X86_64) followed by a single PROGBITS section
// header describing a ".text"-like region filled with CALL rel32
// instructions, enough to drive EXECodec's header-based detection
// path down the X86 branch and clear its 16-match acceptance floor.
func buildELFX86Block(n int) []byte {
	buf := make([]byte, n)

	// e_ident: magic + ELFCLASS64 + little-endian.
	copy(buf[0:4], []byte{0x7F, 'E', 'L', 'F'})
	buf[4] = 2
	buf[5] = 1

	binary.LittleEndian.PutUint16(buf[18:], 0x3E) // e_machine = EM_X86_64
	binary.LittleEndian.PutUint64(buf[0x28:], 64) // e_shoff
	binary.LittleEndian.PutUint16(buf[0x3A:], 64) // e_shentsize
	binary.LittleEndian.PutUint16(buf[0x3C:], 1)  // e_shnum

	const shOff = 64
	const codeStart = 128
	codeEnd := n - 4 // detectExeType trims the last 4 bytes off its view

	binary.LittleEndian.PutUint32(buf[shOff+4:], 1)                        // sh_type = SHT_PROGBITS
	binary.LittleEndian.PutUint64(buf[shOff+0x18:], uint64(codeStart))     // sh_offset
	binary.LittleEndian.PutUint64(buf[shOff+0x20:], uint64(codeEnd-codeStart)) // sh_size

	for i := codeStart; i < n; i++ {
		buf[i] = 0x90 // NOP filler
	}

	for p := codeStart; p+5 <= codeEnd; p += 64 {
		buf[p] = 0xE8   // CALL rel32
		buf[p+1] = 0x10 // offset low byte
		buf[p+2] = 0x00
		buf[p+3] = 0x00
		buf[p+4] = 0x00 // sign byte: 0 means forward offset
	}

	return buf
}

// scenario 5: a 32 KiB ELF prefix detects via ELF_MAGIC, keeps the
// header verbatim, rewrites >=16 CALL addresses and round-trips.
func TestEXEDetectsELFAndRoundtrips(t *testing.T) {
	in := buildELFX86Block(32 * 1024)

	tr, err := NewEXECodec()
	require.NoError(t, err)

	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)
	require.True(t, ok, "forward must detect the synthetic ELF/X86 block")
	require.Equal(t, byte(exeX86), encBuf[0], "mode byte must mark the block as X86")

	headerLen := int(binary.LittleEndian.Uint32(encBuf[1:]))
	require.Equal(t, 128, headerLen)
	require.Equal(t, in[:headerLen], encBuf[9:9+headerLen], "header and section table must be copied verbatim")

	decBuf := make([]byte, len(in))
	enc := &kc.Slice{Buf: encBuf, Index: 0, Length: dst.Index}
	out := &kc.Slice{Buf: decBuf, Index: 0, Length: len(decBuf)}

	ok, err = tr.Inverse(enc, out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, decBuf[:out.Index])
}

func TestEXESetsContextDataType(t *testing.T) {
	in := buildELFX86Block(32 * 1024)
	ctx := &kc.Context{}

	tr, err := NewEXECodecWithCtx(ctx)
	require.NoError(t, err)

	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, kc.DTEXE, ctx.DataType)
}

func TestEXETooSmallRefuses(t *testing.T) {
	tr, err := NewEXECodec()
	require.NoError(t, err)

	in := make([]byte, 128)
	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEXEDistinctBuffer(t *testing.T) {
	tr, err := NewEXECodec()
	require.NoError(t, err)
	distinctBufferRefusal(t, tr, 4096)
}

func TestEXENonCodeDataRefuses(t *testing.T) {
	tr, err := NewEXECodec()
	require.NoError(t, err)

	in := make([]byte, 8192)

	for i := range in {
		in[i] = byte(i % 251)
	}

	src := &kc.Slice{Buf: in, Index: 0, Length: len(in)}
	encBuf := make([]byte, tr.MaxEncodedLen(len(in)))
	dst := &kc.Slice{Buf: encBuf, Index: 0, Length: len(encBuf)}

	ok, err := tr.Forward(src, dst)
	require.NoError(t, err)
	require.False(t, ok)
}
