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

// AliasCodec replaces symbols with shorter aliases whenever the
// block's alphabet leaves free byte slots: a small-alphabet block
// (<=16 distinct bytes) is bit-packed 2 or 4 symbols per byte, while a
// block with a handful of very frequent 2-byte digrams gets those
// digrams remapped onto unused single bytes. Its PACK-only mode
// refuses every block not classified as DNA (spec.md's PACK/DNA split).
package transform

import (
	"encoding/binary"
	"sort"

	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
	"github.com/corewave-labs/kanzicore/internal"
)

const aliasMinBlockSize = 1024

type aliasSymStat struct {
	val  int
	freq int
}

type sortAliasByFreq []*aliasSymStat

func (s sortAliasByFreq) Len() int { return len(s) }
func (s sortAliasByFreq) Less(i, j int) bool {
	if r := s[j].freq - s[i].freq; r != 0 {
		return r < 0
	}

	return s[j].val < s[i].val
}
func (s sortAliasByFreq) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

// AliasCodec replaces 1 or 2-byte symbols with shorter aliases
// whenever the block's alphabet leaves unused byte values.
type AliasCodec struct {
	ctx         *kc.Context
	packOnlyDNA bool
}

// NewAliasCodec creates a new AliasCodec with no context.
func NewAliasCodec() (*AliasCodec, error) {
	return &AliasCodec{}, nil
}

// NewAliasCodecWithCtx creates a new AliasCodec bound to ctx.
// ctx.PackOnlyDNA makes Forward refuse any block whose data type is not DNA.
func NewAliasCodecWithCtx(ctx *kc.Context) (*AliasCodec, error) {
	t := &AliasCodec{ctx: ctx}

	if ctx != nil {
		t.packOnlyDNA = ctx.PackOnlyDNA
	}

	return t, nil
}

// Forward replaces symbols in src with shorter aliases, writing a
// small header describing the mapping followed by the aliased stream
// to dst.
func (t *AliasCodec) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, nil
	}

	if n := t.MaxEncodedLen(src.Length); dst.Length < n {
		return false, nil
	}

	if src.Length < aliasMinBlockSize {
		return false, nil
	}

	dt := kc.DTUndefined

	if t.ctx != nil {
		dt = t.ctx.DataType
	}

	if dt == kc.DTMultimedia || dt == kc.DTUTF8 || dt == kc.DTEXE || dt == kc.DTBin {
		return false, nil
	}

	if t.packOnlyDNA && dt != kc.DTDNA {
		return false, nil
	}

	srcBuf := src.Bytes()
	count := src.Length
	var freqs0 [256]int
	internal.ComputeHistogram(srcBuf, freqs0[:], true, false)
	n0 := 0
	var absent [256]int

	for i := range &freqs0 {
		if freqs0[i] == 0 {
			absent[n0] = i
			n0++
		}
	}

	if n0 < 16 {
		return false, nil
	}

	var srcIdx, dstIdx int
	dstBuf := dst.Buf[dst.Index:]

	if n0 >= 240 {
		dstBuf[0] = byte(n0)

		if n0 == 255 {
			dstBuf[1] = srcBuf[0]
			binary.LittleEndian.PutUint32(dstBuf[2:], uint32(count))
			srcIdx = count
			dstIdx = 6
		} else {
			var map8 [256]byte
			srcIdx = 0
			dstIdx = 1
			j := 0

			for i := range freqs0 {
				if freqs0[i] != 0 {
					dstBuf[dstIdx] = byte(i)
					dstIdx++
					map8[i] = byte(j)
					j++
				}
			}

			if n0 >= 252 {
				c3 := count & 3
				dstBuf[dstIdx] = byte(c3)
				dstIdx++
				copy(dstBuf[dstIdx:], srcBuf[srcIdx:srcIdx+c3])
				srcIdx += c3
				dstIdx += c3

				for srcIdx < count {
					dstBuf[dstIdx] = (map8[int(srcBuf[srcIdx+0])] << 6) | (map8[int(srcBuf[srcIdx+1])] << 4) |
						(map8[int(srcBuf[srcIdx+2])] << 2) | map8[int(srcBuf[srcIdx+3])]
					srcIdx += 4
					dstIdx++
				}
			} else {
				dstBuf[dstIdx] = byte(count & 1)
				dstIdx++

				if count&1 != 0 {
					dstBuf[dstIdx] = srcBuf[srcIdx]
					srcIdx++
					dstIdx++
				}

				for srcIdx < count {
					dstBuf[dstIdx] = (map8[int(srcBuf[srcIdx])] << 4) | map8[int(srcBuf[srcIdx+1])]
					srcIdx += 2
					dstIdx++
				}
			}
		}
	} else {
		symb := [65536]*aliasSymStat{}
		n1 := 0

		{
			var freqs1 [65536]int
			internal.ComputeHistogram(srcBuf, freqs1[:], false, false)

			for i := range &freqs1 {
				if freqs1[i] == 0 {
					continue
				}

				symb[n1] = &aliasSymStat{val: i, freq: freqs1[i]}
				n1++
			}
		}

		if n0 > n1 {
			n0 = n1

			if n0 < 16 {
				return false, nil
			}
		}

		sort.Sort(sortAliasByFreq(symb[0:n1]))
		var map16 [65536]int16

		for i := range &map16 {
			map16[i] = int16(0x100 | (i >> 8))
		}

		savings := 0
		dstBuf[0] = byte(n0)
		srcIdx = 0
		dstIdx = 1

		for i := 0; i < n0; i++ {
			savings += symb[i].freq
			idx := symb[i].val
			map16[idx] = int16(0x200 | absent[i])
			dstBuf[dstIdx] = byte(idx >> 8)
			dstBuf[dstIdx+1] = byte(idx)
			dstBuf[dstIdx+2] = byte(absent[i])
			dstIdx += 3
		}

		if savings*20 < count {
			return false, nil
		}

		srcEnd := count - 1

		for srcIdx < srcEnd {
			alias := map16[(int(srcBuf[srcIdx])<<8)|int(srcBuf[srcIdx+1])]
			dstBuf[dstIdx] = byte(alias)
			srcIdx += int(alias >> 8)
			dstIdx++
		}

		if srcIdx != count {
			dstBuf[dstIdx] = srcBuf[srcIdx]
			srcIdx++
			dstIdx++
		}
	}

	if dstIdx >= count {
		return false, nil
	}

	src.Index += srcIdx
	dst.Index += dstIdx
	return true, nil
}

// Inverse reverses Forward.
func (t *AliasCodec) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if src.Length < 2 {
		return false, errors.New("alias: corrupt stream, block too small")
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("alias: input and output buffers must be distinct")
	}

	srcBuf := src.Bytes()
	n := int(srcBuf[0])

	if n < 16 {
		return false, errors.New("alias: corrupt stream, invalid slot count")
	}

	var srcIdx int
	dstIdx := 0
	count := src.Length
	dstBuf := dst.Buf[dst.Index:]

	if n >= 240 {
		n = 256 - n
		srcIdx = 1

		if n == 1 {
			val := srcBuf[1]
			oSize := int(binary.LittleEndian.Uint32(srcBuf[2:]))

			if oSize > len(dstBuf) {
				return false, errors.New("alias: corrupt stream, invalid output size")
			}

			for i := range dstBuf[0:oSize] {
				dstBuf[i] = val
			}

			srcIdx = count
			dstIdx = oSize
		} else {
			var idx2symb [16]byte

			for i := 0; i < n; i++ {
				idx2symb[i] = srcBuf[srcIdx]
				srcIdx++
			}

			adjust := int(srcBuf[srcIdx])
			srcIdx++

			if adjust < 0 || adjust > 3 {
				return false, errors.New("alias: corrupt stream, invalid adjust value")
			}

			if n <= 4 {
				var decodeMap [256]uint32

				for i := 0; i < 256; i++ {
					var val uint32
					val = uint32(idx2symb[(i>>0)&0x03])
					val <<= 8
					val |= uint32(idx2symb[(i>>2)&0x03])
					val <<= 8
					val |= uint32(idx2symb[(i>>4)&0x03])
					val <<= 8
					val |= uint32(idx2symb[(i>>6)&0x03])
					decodeMap[i] = val
				}

				copy(dstBuf[dstIdx:], srcBuf[srcIdx:srcIdx+adjust])
				srcIdx += adjust
				dstIdx += adjust

				for srcIdx < count {
					binary.LittleEndian.PutUint32(dstBuf[dstIdx:], decodeMap[int(srcBuf[srcIdx])])
					srcIdx++
					dstIdx += 4
				}
			} else {
				var decodeMap [256]uint16

				for i := 0; i < 256; i++ {
					val := uint16(idx2symb[i&0x0F])
					val <<= 8
					val |= uint16(idx2symb[i>>4])
					decodeMap[i] = val
				}

				if adjust != 0 {
					dstBuf[dstIdx] = srcBuf[srcIdx]
					srcIdx++
					dstIdx++
				}

				for srcIdx < count {
					val := decodeMap[int(srcBuf[srcIdx])]
					srcIdx++
					binary.LittleEndian.PutUint16(dstBuf[dstIdx:], val)
					dstIdx += 2
				}
			}
		}
	} else {
		var map16 [256]int
		srcIdx = 1

		for i := range &map16 {
			map16[i] = 0x10000 | int(i)
		}

		for i := 0; i < n; i++ {
			map16[int(srcBuf[srcIdx+2])] = 0x20000 | int(srcBuf[srcIdx]) | (int(srcBuf[srcIdx+1]) << 8)
			srcIdx += 3
		}

		srcEnd := count

		for srcIdx < srcEnd {
			val := map16[int(srcBuf[srcIdx])]
			srcIdx++
			dstBuf[dstIdx] = byte(val)
			dstBuf[dstIdx+1] = byte(val >> 8)
			dstIdx += val >> 16
		}
	}

	src.Index += srcIdx
	dst.Index += dstIdx
	return true, nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *AliasCodec) MaxEncodedLen(srcLen int) int {
	return srcLen + 1024
}
