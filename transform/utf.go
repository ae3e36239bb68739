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

// UTFCodec is a one-pass UTF-8 codec: it builds a frequency-sorted
// table of the distinct code points in the block and replaces each
// occurrence with a 1 or 2 byte alias, shrinking runs of multi-byte
// code points (CJK text, emoji-heavy text, ...) before entropy coding.
package transform

import (
	"sort"

	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
)

const utfMinBlockSize = 1024

var utfSizes = []int{1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 2, 2, 3, 4}

type utfSymStat struct {
	sym  int32
	freq int32
}

type sortUTFByFreq []*utfSymStat

func (s sortUTFByFreq) Len() int { return len(s) }
func (s sortUTFByFreq) Less(i, j int) bool {
	if r := s[i].freq - s[j].freq; r != 0 {
		return r < 0
	}

	return s[i].sym < s[j].sym
}
func (s sortUTFByFreq) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

type utfSymbol struct {
	value  [4]byte
	length uint8
}

// UTFCodec is a one-pass UTF8 codec that replaces code points with
// frequency-ranked aliases.
type UTFCodec struct {
	ctx *kc.Context
}

// NewUTFCodec creates a new UTFCodec with no context.
func NewUTFCodec() (*UTFCodec, error) {
	return &UTFCodec{}, nil
}

// NewUTFCodecWithCtx creates a new UTFCodec bound to ctx.
func NewUTFCodecWithCtx(ctx *kc.Context) (*UTFCodec, error) {
	return &UTFCodec{ctx: ctx}, nil
}

// Forward replaces UTF-8 code points in src with frequency-ranked
// aliases, writing the alias table followed by the aliased stream to
// dst.
func (t *UTFCodec) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, nil
	}

	if src.Length < utfMinBlockSize {
		return false, nil
	}

	if n := t.MaxEncodedLen(src.Length); dst.Length < n {
		return false, nil
	}

	srcBuf := src.Bytes()
	count := src.Length
	mustValidate := true

	if t.ctx != nil {
		dt := t.ctx.DataType

		if dt != kc.DTUndefined && dt != kc.DTUTF8 {
			return false, nil
		}

		mustValidate = dt != kc.DTUTF8
	}

	start := 0

	for start < 4 && utfSizes[srcBuf[start]>>4] == 0 {
		start++
	}

	if mustValidate && !validateUTF(srcBuf[start:count-4]) {
		return false, nil
	}

	aliasMap := make([]int32, 1<<22)
	symb := [32768]*utfSymStat{}
	n := 0

	for i := start; i < count-4; {
		var val uint32
		s := packUTF(srcBuf[i:], &val)

		if s == 0 {
			return false, nil
		}

		if aliasMap[val] == 0 {
			symb[n] = &utfSymStat{sym: int32(val)}
			n++

			if n >= 32768 {
				return false, nil
			}
		}

		aliasMap[val]++
		i += s
	}

	if n == 0 {
		return false, nil
	}

	dstBuf := dst.Buf[dst.Index:]
	dstEnd := count - (count / 10)

	if 3*n+6 >= dstEnd {
		return false, nil
	}

	for i := 0; i < n; i++ {
		symb[i].freq = aliasMap[symb[i].sym]
	}

	sort.Sort(sortUTFByFreq(symb[0:n]))
	dstIdx := 2
	dstBuf[dstIdx] = byte(n >> 8)
	dstIdx++
	dstBuf[dstIdx] = byte(n)
	dstIdx++
	estimate := dstIdx + 6

	for i := 0; i < n; i++ {
		r := n - 1 - i
		s := symb[r].sym

		dstBuf[dstIdx] = byte(s >> 16)
		dstBuf[dstIdx+1] = byte(s >> 8)
		dstBuf[dstIdx+2] = byte(s)
		dstIdx += 3

		if i < 128 {
			estimate += int(symb[r].freq)
			aliasMap[s] = int32(i)
		} else {
			estimate += 2 * int(symb[r].freq)
			aliasMap[s] = 0x10080 | int32((i<<1)&0xFF00) | int32(i&0x7F)
		}
	}

	if estimate >= dstEnd {
		return false, nil
	}

	for i := 0; i < start; {
		dstBuf[dstIdx] = srcBuf[i]
		i++
		dstIdx++
	}

	srcIdx := start

	for srcIdx < count-4 {
		var val uint32
		srcIdx += packUTF(srcBuf[srcIdx:], &val)
		alias := aliasMap[val]
		dstBuf[dstIdx] = byte(alias)
		dstIdx++
		dstBuf[dstIdx] = byte(alias >> 8)
		dstIdx += int(alias >> 16)
	}

	dstBuf[0] = byte(start)
	dstBuf[1] = byte(srcIdx - (count - 4))

	for srcIdx < count {
		dstBuf[dstIdx] = srcBuf[srcIdx]
		srcIdx++
		dstIdx++
	}

	if dstIdx >= dstEnd {
		return false, nil
	}

	src.Index += srcIdx
	dst.Index += dstIdx

	if t.ctx != nil {
		t.ctx.DataType = kc.DTUTF8
	}

	return true, nil
}

// Inverse reverses Forward.
func (t *UTFCodec) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if src.Length < 4 {
		return false, errors.New("utf: corrupt stream, block too small")
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("utf: input and output buffers must be distinct")
	}

	srcBuf := src.Bytes()
	count := src.Length
	start := int(srcBuf[0])
	adjust := int(srcBuf[1])
	n := (int(srcBuf[2]) << 8) + int(srcBuf[3])

	if n >= 32768 || 3*n >= count {
		return false, errors.New("utf: corrupt stream, invalid alias table size")
	}

	isLegacy := t.ctx != nil && t.ctx.BSVersion > 0 && t.ctx.BSVersion < 4
	m := [32768]utfSymbol{}
	srcIdx := 4

	for i := 0; i < n; i++ {
		s := (uint32(srcBuf[srcIdx]) << 16) | (uint32(srcBuf[srcIdx+1]) << 8) | uint32(srcBuf[srcIdx+2])

		var sl int

		if isLegacy {
			sl = unpackUTF0(s, m[i].value[:])
		} else {
			sl = unpackUTF1(s, m[i].value[:])
		}

		if sl == 0 {
			return false, errors.New("utf: corrupt stream, invalid alias table entry")
		}

		m[i].length = uint8(sl)
		srcIdx += 3
	}

	dstBuf := dst.Buf[dst.Index:]
	dstIdx := 0
	srcEnd := count - 4 + adjust

	for i := 0; i < start; i++ {
		dstBuf[dstIdx] = srcBuf[srcIdx]
		srcIdx++
		dstIdx++
	}

	for srcIdx < srcEnd {
		alias := int(srcBuf[srcIdx])
		srcIdx++

		if alias >= 128 {
			alias = (int(srcBuf[srcIdx]) << 7) + (alias & 0x7F)
			srcIdx++
		}

		s := m[alias]
		copy(dstBuf[dstIdx:], s.value[:4])
		dstIdx += int(s.length)
	}

	for i := srcEnd; i < count; i++ {
		dstBuf[dstIdx] = srcBuf[srcIdx]
		srcIdx++
		dstIdx++
	}

	src.Index += srcIdx
	dst.Index += dstIdx
	return true, nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *UTFCodec) MaxEncodedLen(srcLen int) int {
	return srcLen + 8192
}

func validateUTF(block []byte) bool {
	var freqs0 [256]int
	var freqs [256][256]int
	freqs1 := freqs[0:256]
	count := len(block)
	end4 := count & -4
	prv := byte(0)

	for i := 0; i < end4; i += 4 {
		cur0 := block[i]
		cur1 := block[i+1]
		cur2 := block[i+2]
		cur3 := block[i+3]
		freqs0[cur0]++
		freqs0[cur1]++
		freqs0[cur2]++
		freqs0[cur3]++
		freqs1[prv][cur0]++
		freqs1[cur0][cur1]++
		freqs1[cur1][cur2]++
		freqs1[cur2][cur3]++
		prv = cur3
	}

	for i := end4; i < count; i++ {
		cur := block[i]
		freqs0[cur]++
		freqs1[prv][cur]++
		prv = cur
	}

	// Unicode 14 Standard - UTF-8 Table 3.7
	if freqs0[0xC0] > 0 || freqs0[0xC1] > 0 {
		return false
	}

	for i := 0xF5; i <= 0xFF; i++ {
		if freqs0[i] > 0 {
			return false
		}
	}

	sum := 0

	for i := 0; i < 256; i++ {
		if (i < 0xA0 || i > 0xBF) && freqs[0xE0][i] > 0 {
			return false
		}

		if (i < 0x80 || i > 0x9F) && freqs[0xED][i] > 0 {
			return false
		}

		if (i < 0x90 || i > 0xBF) && freqs[0xF0][i] > 0 {
			return false
		}

		if (i < 0x80 || i > 0xBF) && freqs[0xF4][i] > 0 {
			return false
		}

		if i >= 0x80 && i <= 0xBF {
			sum += freqs0[i]
		}
	}

	return sum >= count/4
}

func packUTF(in []byte, out *uint32) int {
	s := utfSizes[uint8(in[0])>>4]

	switch s {
	case 1:
		*out = uint32(in[0])
	case 2:
		*out = (1 << 19) | (uint32(in[0]) << 8) | uint32(in[1])
	case 3:
		*out = (2 << 19) | ((uint32(in[0]) & 0x0F) << 12) | ((uint32(in[1]) & 0x3F) << 6) | (uint32(in[2]) & 0x3F)
	case 4:
		*out = (4 << 19) | ((uint32(in[0]) & 0x07) << 18) | ((uint32(in[1]) & 0x3F) << 12) | ((uint32(in[2]) & 0x3F) << 6) | (uint32(in[3]) & 0x3F)
	default:
		*out = 0
		s = 0
	}

	return s
}

func unpackUTF0(in uint32, out []byte) int {
	s := int(in>>21) + 1

	switch s {
	case 1:
		out[0] = byte(in)
	case 2:
		out[0] = byte(in >> 8)
		out[1] = byte(in)
	case 3:
		out[0] = byte(((in >> 12) & 0x0F) | 0xE0)
		out[1] = byte(((in >> 6) & 0x3F) | 0x80)
		out[2] = byte((in & 0x3F) | 0x80)
	case 4:
		out[0] = byte(((in >> 18) & 0x07) | 0xF0)
		out[1] = byte(((in >> 12) & 0x3F) | 0x80)
		out[2] = byte(((in >> 6) & 0x3F) | 0x80)
		out[3] = byte((in & 0x3F) | 0x80)
	default:
		s = 0
	}

	return s
}

// unpackUTF1 is the bitstream-v4-and-later symbol encoding.
func unpackUTF1(in uint32, out []byte) int {
	var s int
	sz := in >> 19

	switch {
	case sz == 0:
		out[0] = byte(in)
		s = 1
	case sz == 1:
		out[0] = byte(in >> 8)
		out[1] = byte(in)
		s = 2
	case sz == 2:
		out[0] = byte(((in >> 12) & 0x0F) | 0xE0)
		out[1] = byte(((in >> 6) & 0x3F) | 0x80)
		out[2] = byte((in & 0x3F) | 0x80)
		s = 3
	case sz >= 4 && sz <= 7:
		out[0] = byte(((in >> 18) & 0x07) | 0xF0)
		out[1] = byte(((in >> 12) & 0x3F) | 0x80)
		out[2] = byte(((in >> 6) & 0x3F) | 0x80)
		out[3] = byte((in & 0x3F) | 0x80)
		s = 4
	default:
		s = 0
	}

	return s
}
