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
	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
	"github.com/corewave-labs/kanzicore/internal"
)

// textCodec2 is wire variant 2: dictionary references are framed by
// the high bit of the leading byte (0x80|...), used when the
// downstream entropy coder does not care about byte order, so the
// alphabet disturbance from using high-bit values is free.
type textCodec2 struct {
	ctx            *kc.Context
	dictMap        []*dictEntry
	dictList       []dictEntry
	staticDictSize int
	dictSize       int
	logHashSize    uint
	hashMask       int32
	isCRLF         bool
	bsVersion      int
}

func newTextCodec2(ctx *kc.Context) (*textCodec2, error) {
	t := &textCodec2{ctx: ctx, bsVersion: 6}
	log := uint32(13)

	if ctx != nil {
		if ctx.BlockSize >= 32 {
			log, _ = internal.Log2(uint32(ctx.BlockSize / 32))
			log = min(log, 24)
			log = max(log, 13)
		}

		if ctx.Entropy == "TPAQX" {
			log++
		}

		if ctx.BSVersion != 0 {
			t.bsVersion = ctx.BSVersion
		}
	}

	t.logHashSize = uint(log)
	t.dictSize = 1 << 13
	t.hashMask = int32(1<<t.logHashSize) - 1
	t.staticDictSize = tcStaticDictWords
	return t, nil
}

func (t *textCodec2) reset(count int) {
	if count >= 1024 {
		log, _ := internal.Log2(uint32(count / 128))
		log = min(log, 18)
		log = max(log, 13)
		t.dictSize = 1 << log
	}

	if len(t.dictMap) < 1<<t.logHashSize {
		t.dictMap = make([]*dictEntry, 1<<t.logHashSize)
	} else {
		for i := range t.dictMap {
			t.dictMap[i] = nil
		}
	}

	if len(t.dictList) < t.dictSize {
		t.dictList = make([]dictEntry, t.dictSize)
		size := min(len(tcStaticDictionary), t.dictSize)
		copy(t.dictList, tcStaticDictionary[0:size])
	}

	for i := 0; i < t.staticDictSize; i++ {
		e := t.dictList[i]
		t.dictMap[e.hash&t.hashMask] = &e
	}

	for i := t.staticDictSize; i < t.dictSize; i++ {
		t.dictList[i] = dictEntry{ptr: nil, hash: 0, data: int32(i)}
	}
}

func (t *textCodec2) Forward(src, dst *kc.Slice) (bool, error) {
	count := src.Length

	if dst.Length < t.MaxEncodedLen(count) {
		return false, nil
	}

	if t.ctx != nil {
		dt := t.ctx.DataType

		if dt != kc.DTUndefined && dt != kc.DTText && dt != kc.DTBin {
			return false, nil
		}
	}

	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]

	var freqs0 [256]int
	mode := computeTextStats(srcBuf, freqs0[:], false)

	if mode&tcMaskNotText != 0 {
		if t.ctx != nil {
			t.ctx.DataType = kc.DataType(mode & tcMaskDT)
		}

		t.ctx.Logger().Debug().Msg("text: classifier rejected block as non-text")
		return false, nil
	}

	if t.ctx != nil {
		t.ctx.DataType = kc.DTText
	}

	t.ctx.Logger().Debug().Bool("crlf", mode&tcMaskCRLF != 0).Msg("text: classifier accepted block as text")

	t.reset(count)
	srcEnd := count
	dstEnd := t.MaxEncodedLen(count)
	dstEnd3 := dstEnd - 3
	emitAnchor := 0
	words := t.staticDictSize

	t.isCRLF = mode&tcMaskCRLF != 0
	dstBuf[0] = mode
	srcIdx := 0
	dstIdx := 1

	for srcIdx < srcEnd && srcBuf[srcIdx] == ' ' {
		dstBuf[dstIdx] = ' '
		srcIdx++
		dstIdx++
		emitAnchor++
	}

	var failed bool
	delimAnchor := srcIdx

	if isText(srcBuf[srcIdx]) {
		delimAnchor = srcIdx - 1
	}

	for srcIdx < srcEnd {
		if isText(srcBuf[srcIdx]) {
			srcIdx++
			continue
		}

		if srcIdx > delimAnchor+2 && isDelimiter(srcBuf[srcIdx]) {
			length := int32(srcIdx - delimAnchor - 1)

			if length <= tcMaxWordLength {
				val := srcBuf[delimAnchor+1]
				h1 := tcHash1
				h1 = h1*tcHash1 ^ int32(val)*tcHash2
				h2 := tcHash1
				h2 = h2*tcHash1 ^ (int32(val)^0x20)*tcHash2

				for i := delimAnchor + 2; i < srcIdx; i++ {
					h := int32(srcBuf[i]) * tcHash2
					h1 = h1*tcHash1 ^ h
					h2 = h2*tcHash1 ^ h
				}

				var pe *dictEntry
				pe1 := t.dictMap[h1&t.hashMask]

				if pe1 != nil && pe1.hash == h1 && pe1.data>>24 == length {
					pe = pe1
				} else if pe2 := t.dictMap[h2&t.hashMask]; pe2 != nil && pe2.hash == h2 && pe2.data>>24 == length {
					pe = pe2
				}

				if pe != nil && !sameWords(pe.ptr[1:length], srcBuf[delimAnchor+2:]) {
					pe = nil
				}

				if pe == nil {
					if (length > 3 || (length == 3 && words < tcThreshold2)) && pe1 == nil {
						pe = &t.dictList[words]

						if int(pe.data&tcMaskLength) >= t.staticDictSize {
							t.dictMap[pe.hash&t.hashMask] = nil
							pe.ptr = srcBuf[delimAnchor+1:]
							pe.hash = h1
							pe.data = (length << 24) | int32(words)
						}

						t.dictMap[h1&t.hashMask] = pe
						words++

						if words >= t.dictSize {
							if !t.expandDictionary() {
								words = t.staticDictSize
							}
						}
					}
				} else {
					if emitAnchor != delimAnchor || srcBuf[delimAnchor] != ' ' {
						dstIdx += t.emitSymbols(srcBuf[emitAnchor:delimAnchor+1], dstBuf[dstIdx:dstEnd])
					}

					if dstIdx >= dstEnd3 {
						failed = true
						break
					}

					if pe != pe1 {
						dstBuf[dstIdx] = tcMaskFlipCase
						dstIdx++
					}

					dstIdx += emitWordIndex2(dstBuf[dstIdx:dstIdx+3], int(pe.data&tcMaskLength))
					emitAnchor = delimAnchor + 1 + int(pe.data>>24)
				}
			}
		}

		delimAnchor = srcIdx
		srcIdx++
	}

	if !failed {
		dstIdx += t.emitSymbols(srcBuf[emitAnchor:srcEnd], dstBuf[dstIdx:dstEnd])

		if dstIdx > dstEnd {
			failed = true
		}
	}

	if failed {
		return false, nil
	}

	if srcIdx != srcEnd {
		return false, errors.New("text: internal inconsistency, did not consume full block")
	}

	src.Index += srcIdx
	dst.Index += dstIdx
	return true, nil
}

func (t *textCodec2) expandDictionary() bool {
	if t.dictSize >= tcMaxDictSize {
		return false
	}

	t.dictList = append(t.dictList, make([]dictEntry, t.dictSize)...)

	for i := t.dictSize; i < t.dictSize*2; i++ {
		t.dictList[i] = dictEntry{ptr: nil, hash: 0, data: int32(i)}
	}

	t.dictSize <<= 1
	return true
}

func (t *textCodec2) emitSymbols(src, dst []byte) int {
	dstIdx := 0
	dstEnd := len(dst)

	for _, cur := range src {
		switch cur {
		case tcEscapeToken1:
			if dstIdx+1 >= dstEnd {
				return dstEnd + 1
			}

			dstBuf2(dst, &dstIdx, tcEscapeToken1)
			dstBuf2(dst, &dstIdx, tcEscapeToken1)

		case CR:
			if !t.isCRLF {
				if dstIdx >= dstEnd {
					return dstEnd + 1
				}

				dstBuf2(dst, &dstIdx, cur)
			}

		default:
			if cur >= 0x80 {
				if dstIdx >= dstEnd {
					return dstEnd + 1
				}

				dstBuf2(dst, &dstIdx, tcEscapeToken1)
			}

			if dstIdx >= dstEnd {
				return dstEnd + 1
			}

			dstBuf2(dst, &dstIdx, cur)
		}
	}

	return dstIdx
}

func dstBuf2(dst []byte, idx *int, v byte) {
	dst[*idx] = v
	*idx++
}

func emitWordIndex2(dst []byte, wIdx int) int {
	wIdx++

	if wIdx >= tcThreshold3 {
		if wIdx >= tcThreshold4 {
			dst[0] = byte(0xF0 | (wIdx >> 16))
			dst[1] = byte(wIdx >> 8)
			dst[2] = byte(wIdx)
			return 3
		}

		dst[0] = byte(0xC0 | (wIdx >> 8))
		dst[1] = byte(wIdx)
		return 2
	}

	dst[0] = byte(0x80 | wIdx)
	return 1
}

func (t *textCodec2) Inverse(src, dst *kc.Slice) (bool, error) {
	t.reset(dst.Length)
	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]
	words := t.staticDictSize
	wordRun := false
	t.isCRLF = srcBuf[0]&tcMaskCRLF != 0
	srcIdx := 1
	dstIdx := 0
	srcEnd := src.Length
	dstEnd := dst.Length
	oldEncoding := t.bsVersion != 0 && t.bsVersion < 6
	delimAnchor := srcIdx

	if isText(srcBuf[srcIdx]) {
		delimAnchor = srcIdx - 1
	}

	for srcIdx < srcEnd && dstIdx < dstEnd {
		cur := srcBuf[srcIdx]

		if isText(cur) {
			dstBuf[dstIdx] = cur
			srcIdx++
			dstIdx++
			continue
		}

		if srcIdx > delimAnchor+3 && isDelimiter(cur) {
			length := int32(srcIdx - delimAnchor - 1)

			if length <= tcMaxWordLength {
				h1 := tcHash1
				h1 = h1*tcHash1 ^ int32(srcBuf[delimAnchor+1])*tcHash2
				h1 = h1*tcHash1 ^ int32(srcBuf[delimAnchor+2])*tcHash2

				for i := delimAnchor + 3; i < srcIdx; i++ {
					h1 = h1*tcHash1 ^ int32(srcBuf[i])*tcHash2
				}

				var pe *dictEntry
				pe1 := t.dictMap[h1&t.hashMask]

				if pe1 != nil && pe1.hash == h1 && pe1.data>>24 == length && sameWords(pe1.ptr[1:length], srcBuf[delimAnchor+2:]) {
					pe = pe1
				}

				if pe == nil {
					if (length > 3 || words < tcThreshold2) && pe1 == nil {
						pe = &t.dictList[words]

						if int(pe.data&tcMaskLength) >= t.staticDictSize {
							t.dictMap[pe.hash&t.hashMask] = nil
							pe.ptr = srcBuf[delimAnchor+1:]
							pe.hash = h1
							pe.data = (length << 24) | int32(words)
						}

						t.dictMap[h1&t.hashMask] = pe
						words++

						if words >= t.dictSize {
							if !t.expandDictionary() {
								words = t.staticDictSize
							}
						}
					}
				}
			}
		}

		srcIdx++
		flipMask := byte(0)

		if cur >= 128 {
			var idx int

			if oldEncoding {
				idx = int(cur & 0x1F)
				flipMask = cur & 0x20

				if cur&0x40 != 0 {
					idx2 := int(srcBuf[srcIdx])
					srcIdx++

					if idx2 >= 128 {
						idx = (idx << 7) | (idx2 & 0x7F)
						idx2 = int(srcBuf[srcIdx])
						srcIdx++
					}

					idx = (idx << 7) | idx2

					if idx >= t.dictSize {
						return false, errors.New("text: corrupt stream, invalid dictionary index")
					}
				}
			} else {
				if cur == tcMaskFlipCase {
					flipMask = 0x20
					cur = srcBuf[srcIdx]
					srcIdx++
				}

				idx = int(cur) & 0x7F

				if idx >= 64 {
					if idx >= 112 {
						idx = ((idx & 0x0F) << 16) | (int(srcBuf[srcIdx]) << 8) | int(srcBuf[srcIdx+1])
						srcIdx += 2
					} else {
						idx = ((idx & 0x1F) << 8) | int(srcBuf[srcIdx])
						srcIdx++
					}

					if idx > t.dictSize {
						return false, errors.New("text: corrupt stream, invalid dictionary index")
					}
				} else if idx == 0 {
					return false, errors.New("text: corrupt stream, invalid dictionary index")
				}

				idx--
			}

			pe := &t.dictList[idx]
			length := int(pe.data>>24) & 0xFF

			if length > 1 {
				if wordRun {
					dstBuf[dstIdx] = ' '
					dstIdx++
				}

				wordRun = true
				delimAnchor = srcIdx
			} else {
				wordRun = false
				delimAnchor = srcIdx - 1
			}

			if pe.ptr == nil || dstIdx+length >= dstEnd {
				return false, errors.New("text: corrupt stream, invalid dictionary entry")
			}

			copy(dstBuf[dstIdx:], pe.ptr[0:length])
			dstBuf[dstIdx] ^= flipMask
			dstIdx += length
		} else {
			if cur == tcEscapeToken1 {
				dstBuf[dstIdx] = srcBuf[srcIdx]
				srcIdx++
				dstIdx++
			} else {
				if t.isCRLF && cur == LF {
					dstBuf[dstIdx] = CR
					dstIdx++

					if dstIdx >= dstEnd {
						return false, errors.New("text: corrupt stream, output overflow")
					}
				}

				dstBuf[dstIdx] = cur
				dstIdx++
			}

			wordRun = false
			delimAnchor = srcIdx - 1
		}
	}

	if srcIdx != srcEnd {
		return false, errors.New("text: corrupt stream, truncated input")
	}

	src.Index += srcIdx
	dst.Index += dstIdx
	return true, nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *textCodec2) MaxEncodedLen(srcLen int) int {
	return srcLen
}
