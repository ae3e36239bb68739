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

// LZCodec is a heavily modified LZ4: a bigger window, a bigger hash
// map, 3+n*8 bit literal lengths and 17 or 24 bit match lengths, with
// repeat-offset slots for the last two match distances. LZCodec
// dispatches between the plain LZ variant, the "extra" LZX variant
// (wider hash, longer min match on DNA input), and LZP, a
// hash-context match predictor used when Context.Transform names it
// explicitly.
package transform

import (
	"encoding/binary"
	"math/bits"

	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
)

const (
	lzHashSeed       = 0x1E35A7BD
	lzHashLog1       = 17
	lzHashShift1     = 40 - lzHashLog1
	lzHashMask1      = (1 << lzHashLog1) - 1
	lzHashLog2       = 21
	lzHashShift2     = 48 - lzHashLog2
	lzHashMask2      = (1 << lzHashLog2) - 1
	lzMaxDistance1   = (1 << 17) - 2
	lzMaxDistance2   = (1 << 24) - 2
	lzMinMatch1      = 5
	lzMinMatch2      = 9
	lzMaxMatch       = 65535 + 254 + 15 + lzMinMatch1
	lzMinBlockLength = 24
	lzMinMatchMinDist = 1 << 16

	lzpHashSeed        = 0x7FEB352D
	lzpHashLog         = 16
	lzpHashShift       = 32 - lzpHashLog
	lzpMinMatch        = 96
	lzpMatchFlag       = 0xFC
	lzpMinBlockLength  = 128
)

// LZCodec dispatches to LZX (default) or LZP depending on
// ctx.Transform.
type LZCodec struct {
	delegate kc.Transform
	ctx      *kc.Context
}

// NewLZCodec creates a new LZCodec with no context (LZX).
func NewLZCodec() (*LZCodec, error) {
	d, err := NewLZXCodec()
	return &LZCodec{delegate: d}, err
}

// NewLZCodecWithCtx creates a new LZCodec bound to ctx.
func NewLZCodecWithCtx(ctx *kc.Context) (*LZCodec, error) {
	if ctx != nil && ctx.Transform == "LZP" {
		d, err := NewLZPCodecWithCtx(ctx)
		return &LZCodec{delegate: d, ctx: ctx}, err
	}

	d, err := NewLZXCodecWithCtx(ctx)
	return &LZCodec{delegate: d, ctx: ctx}, err
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *LZCodec) MaxEncodedLen(srcLen int) int {
	return t.delegate.MaxEncodedLen(srcLen)
}

// Forward applies the function to src and writes the result to dst.
func (t *LZCodec) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("lz: input and output buffers must be distinct")
	}

	return t.delegate.Forward(src, dst)
}

// Inverse reverses Forward.
func (t *LZCodec) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("lz: input and output buffers must be distinct")
	}

	ok, err := t.delegate.Inverse(src, dst)

	if err != nil {
		t.ctx.Logger().Error().Err(err).Msg("lz: inverse corrupt stream")
	}

	return ok, err
}

// LZXCodec is the plain LZ77 codec. extra selects the wider LZX hash
// table and is carried alongside the min-match/distance choices in
// the block's flag byte.
type LZXCodec struct {
	ctx          *kc.Context
	hashes       []int32
	mLenBuf      []byte
	mBuf         []byte
	tkBuf        []byte
	extra        bool
	bsVersion    int
}

// NewLZXCodec creates a new LZXCodec with no context.
func NewLZXCodec() (*LZXCodec, error) {
	return &LZXCodec{bsVersion: 3}, nil
}

// NewLZXCodecWithCtx creates a new LZXCodec bound to ctx.
func NewLZXCodecWithCtx(ctx *kc.Context) (*LZXCodec, error) {
	t := &LZXCodec{ctx: ctx, bsVersion: 3}

	if ctx != nil {
		t.extra = ctx.Extra

		if ctx.BSVersion != 0 {
			t.bsVersion = ctx.BSVersion
		}
	}

	return t, nil
}

func emitLengthLZ(block []byte, length int) int {
	if length < 254 {
		block[0] = byte(length)
		return 1
	}

	if length < 65536+254 {
		length -= 254
		block[0] = byte(254)
		block[1] = byte(length >> 8)
		block[2] = byte(length)
		return 3
	}

	length -= 255
	block[0] = byte(255)
	block[1] = byte(length >> 16)
	block[2] = byte(length >> 8)
	block[3] = byte(length)
	return 4
}

func readLengthLZ(block []byte) (int, int) {
	res := int(block[0])
	idx := 1

	if res < 254 {
		return res, idx
	}

	if res == 254 {
		res += int(block[idx]) << 8
		res += int(block[idx+1])
		return res, idx + 2
	}

	res += int(block[idx]) << 16
	res += int(block[idx+1]) << 8
	res += int(block[idx+2])
	return res, idx + 3
}

func emitLiteralsLZ(src, dst []byte) {
	for i := 0; i < len(src); i += 8 {
		copy(dst[i:], src[i:i+8])
	}
}

func (t *LZXCodec) hash(p []byte) uint32 {
	if t.extra {
		return uint32((binary.LittleEndian.Uint64(p)*lzHashSeed)>>lzHashShift2) & lzHashMask2
	}

	return uint32((binary.LittleEndian.Uint64(p)*lzHashSeed)>>lzHashShift1) & lzHashMask1
}

// Forward applies the function to src and writes the result to dst.
func (t *LZXCodec) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	count := src.Length

	if dst.Length < t.MaxEncodedLen(count) {
		return false, nil
	}

	if count < lzMinBlockLength {
		return false, nil
	}

	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]

	if len(t.hashes) == 0 {
		if t.extra {
			t.hashes = make([]int32, 1<<lzHashLog2)
		} else {
			t.hashes = make([]int32, 1<<lzHashLog1)
		}
	} else {
		for i := range t.hashes {
			t.hashes[i] = 0
		}
	}

	minBufSize := count / 5

	if minBufSize < 256 {
		minBufSize = 256
	}

	if len(t.mLenBuf) < minBufSize {
		t.mLenBuf = make([]byte, minBufSize)
	}

	if len(t.mBuf) < minBufSize {
		t.mBuf = make([]byte, minBufSize)
	}

	if len(t.tkBuf) < minBufSize {
		t.tkBuf = make([]byte, minBufSize)
	}

	srcEnd := count - 16 - 1
	maxDist := lzMaxDistance2
	dThreshold := 1 << 16
	dstBuf[12] = 1

	if srcEnd < 4*lzMaxDistance1 {
		maxDist = lzMaxDistance1
		dThreshold = lzMaxDistance1 + 1
		dstBuf[12] = 0
	}

	minMatch := lzMinMatch1

	if t.ctx != nil && t.ctx.DataType == kc.DTDNA {
		minMatch = lzMinMatch2
		dstBuf[12] |= 2
	}

	srcIdx := 0
	dstIdx := 13
	anchor := 0
	mLenIdx := 0
	mIdx := 0
	tkIdx := 0
	repd0 := count
	repd1 := 0

	for srcIdx < srcEnd {
		var minRef int

		if srcIdx < maxDist {
			minRef = 0
		} else {
			minRef = srcIdx - maxDist
		}

		h0 := t.hash(srcBuf[srcIdx:])
		ref := srcIdx + 1 - repd0
		bestLen := 0

		if ref > minRef {
			if binary.LittleEndian.Uint32(srcBuf[srcIdx+1:]) == binary.LittleEndian.Uint32(srcBuf[ref:]) {
				maxMatch := srcEnd - srcIdx - 5

				if maxMatch > lzMaxMatch {
					maxMatch = lzMaxMatch
				}

				bestLen = 4 + findMatchLZX(srcBuf, srcIdx+5, ref+4, maxMatch)
			}
		}

		if bestLen < minMatch {
			ref = int(t.hashes[h0])
			t.hashes[h0] = int32(srcIdx)

			if ref <= minRef {
				srcIdx++
				continue
			}

			if binary.LittleEndian.Uint32(srcBuf[srcIdx:]) == binary.LittleEndian.Uint32(srcBuf[ref:]) {
				maxMatch := srcEnd - srcIdx - 4

				if maxMatch > lzMaxMatch {
					maxMatch = lzMaxMatch
				}

				bestLen = 4 + findMatchLZX(srcBuf, srcIdx+4, ref+4, maxMatch)
			}
		} else {
			srcIdx++
			t.hashes[h0] = int32(srcIdx)
		}

		if bestLen < minMatch || (bestLen == minMatch && srcIdx-ref >= lzMinMatchMinDist && srcIdx-ref != repd0) {
			srcIdx++
			continue
		}

		if ref != srcIdx-repd0 {
			h1 := t.hash(srcBuf[srcIdx+1:])
			ref1 := int(t.hashes[h1])
			t.hashes[h1] = int32(srcIdx + 1)

			if ref1 > minRef+1 {
				maxMatch := srcEnd - srcIdx - 1

				if maxMatch > lzMaxMatch {
					maxMatch = lzMaxMatch
				}

				bestLen1 := findMatchLZX(srcBuf, srcIdx+1, ref1, maxMatch)

				if bestLen1 > bestLen || (bestLen1 == bestLen && srcIdx+1-ref1 < srcIdx-ref) {
					ref = ref1
					bestLen = bestLen1
					srcIdx++
				}
			}
		}

		d := srcIdx - ref
		var dist int

		if d == repd0 {
			dist = 0
		} else {
			if d == repd1 {
				dist = 1
			} else {
				dist = d + 1
			}

			repd1 = repd0
			repd0 = d
		}

		mLen := bestLen - minMatch
		var token int

		if dist > 65535 {
			token = 0x10
		} else {
			token = 0
		}

		if mLen < 15 {
			token += mLen
		} else {
			token += 15
		}

		if anchor == srcIdx {
			t.tkBuf[tkIdx] = byte(token)
			tkIdx++
		} else {
			litLen := srcIdx - anchor

			if litLen >= 7 {
				if litLen >= 1<<24 {
					return false, errors.New("lz: too many literals")
				}

				t.tkBuf[tkIdx] = byte((7 << 5) | token)
				tkIdx++
				dstIdx += emitLengthLZ(dstBuf[dstIdx:], litLen-7)
			} else {
				t.tkBuf[tkIdx] = byte((litLen << 5) | token)
				tkIdx++
			}

			emitLiteralsLZ(srcBuf[anchor:anchor+litLen], dstBuf[dstIdx:])
			dstIdx += litLen
		}

		if mLen >= 15 {
			mLenIdx += emitLengthLZ(t.mLenBuf[mLenIdx:], mLen-15)
		}

		if dist >= dThreshold {
			t.mBuf[mIdx] = byte(dist >> 16)
			mIdx++
		}

		t.mBuf[mIdx] = byte(dist >> 8)
		t.mBuf[mIdx+1] = byte(dist)
		mIdx += 2

		if mIdx >= len(t.mBuf)-8 {
			extraBuf1 := make([]byte, len(t.mBuf))
			t.mBuf = append(t.mBuf, extraBuf1...)

			if mLenIdx >= len(t.mLenBuf)-8 {
				extraBuf2 := make([]byte, len(t.mLenBuf))
				t.mLenBuf = append(t.mLenBuf, extraBuf2...)
			}
		}

		anchor = srcIdx + bestLen
		srcIdx++

		for srcIdx < anchor {
			t.hashes[t.hash(srcBuf[srcIdx:])] = int32(srcIdx)
			srcIdx++
		}
	}

	litLen := count - anchor

	if dstIdx+litLen+tkIdx+mIdx >= count {
		return false, nil
	}

	if litLen >= 7 {
		t.tkBuf[tkIdx] = byte(7 << 5)
		tkIdx++
		dstIdx += emitLengthLZ(dstBuf[dstIdx:], litLen-7)
	} else {
		t.tkBuf[tkIdx] = byte(litLen << 5)
		tkIdx++
	}

	copy(dstBuf[dstIdx:], srcBuf[anchor:anchor+litLen])
	dstIdx += litLen

	binary.LittleEndian.PutUint32(dstBuf[0:], uint32(dstIdx))
	binary.LittleEndian.PutUint32(dstBuf[4:], uint32(tkIdx))
	binary.LittleEndian.PutUint32(dstBuf[8:], uint32(mIdx))
	copy(dstBuf[dstIdx:], t.tkBuf[0:tkIdx])
	dstIdx += tkIdx
	copy(dstBuf[dstIdx:], t.mBuf[0:mIdx])
	dstIdx += mIdx
	copy(dstBuf[dstIdx:], t.mLenBuf[0:mLenIdx])
	dstIdx += mLenIdx

	src.Index += count
	dst.Index += dstIdx
	return true, nil
}

func findMatchLZX(src []byte, srcIdx, ref, maxMatch int) int {
	bestLen := 0

	for bestLen+4 <= maxMatch {
		diff := binary.LittleEndian.Uint32(src[srcIdx+bestLen:]) ^ binary.LittleEndian.Uint32(src[ref+bestLen:])

		if diff != 0 {
			bestLen += bits.TrailingZeros32(diff) >> 3
			break
		}

		bestLen += 4
	}

	return bestLen
}

// Inverse reverses Forward.
func (t *LZXCodec) Inverse(src, dst *kc.Slice) (bool, error) {
	if t.bsVersion < 3 {
		return t.inverseV2(src, dst)
	}

	return t.inverseV3(src, dst)
}

func (t *LZXCodec) inverseV3(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	count := src.Length

	if count < 13 {
		return false, errors.New("lz: corrupt stream, block too small")
	}

	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]

	tkIdx := int(binary.LittleEndian.Uint32(srcBuf[0:]))
	mIdx := tkIdx + int(binary.LittleEndian.Uint32(srcBuf[4:]))
	mLenIdx := mIdx + int(binary.LittleEndian.Uint32(srcBuf[8:]))

	if mLenIdx > count {
		return false, errors.New("lz: corrupt stream, invalid section lengths")
	}

	srcEnd := tkIdx - 13
	dstEnd := dst.Length - 16
	maxDist := lzMaxDistance2

	if srcBuf[12]&1 == 0 {
		maxDist = lzMaxDistance1
	}

	minMatch := lzMinMatch1

	if srcBuf[12]&2 != 0 {
		minMatch = lzMinMatch2
	}

	srcIdx := 13
	dstIdx := 0
	repd0 := 0
	repd1 := 0

	for {
		token := int(srcBuf[tkIdx])
		tkIdx++

		if token >= 32 {
			litLen := token >> 5

			if litLen == 7 {
				ll, delta := readLengthLZ(srcBuf[srcIdx:])
				litLen += ll
				srcIdx += delta
			}

			if dstIdx+litLen >= dstEnd {
				copy(dstBuf[dstIdx:], srcBuf[srcIdx:srcIdx+litLen])
			} else {
				emitLiteralsLZ(srcBuf[srcIdx:srcIdx+litLen], dstBuf[dstIdx:])
			}

			srcIdx += litLen
			dstIdx += litLen

			if srcIdx >= srcEnd {
				break
			}
		}

		mLen := token & 0x0F

		if mLen == 15 {
			ll, delta := readLengthLZ(srcBuf[mLenIdx:])
			mLen += ll
			mLenIdx += delta
		}

		mLen += minMatch
		mEnd := dstIdx + mLen

		dist := (int(srcBuf[mIdx]) << 8) | int(srcBuf[mIdx+1])
		mIdx += 2

		if token&0x10 != 0 {
			if maxDist == lzMaxDistance1 {
				dist += 65536
			} else {
				dist = (dist << 8) | int(srcBuf[mIdx])
				mIdx++
			}
		}

		if dist == 0 {
			dist = repd0
		} else {
			if dist == 1 {
				dist = repd1
			} else {
				dist--
			}

			repd1 = repd0
			repd0 = dist
		}

		if dstIdx < dist || dist > maxDist || mEnd > dstEnd+16 {
			return false, errors.Errorf("lz: corrupt stream, invalid distance %d", dist)
		}

		ref := dstIdx - dist

		if dist >= 16 {
			for {
				copy(dstBuf[dstIdx:], dstBuf[ref:ref+16])
				ref += 16
				dstIdx += 16

				if dstIdx >= mEnd {
					break
				}
			}
		} else {
			for i := 0; i < mLen; i++ {
				dstBuf[dstIdx+i] = dstBuf[ref+i]
			}
		}

		dstIdx = mEnd
	}

	if srcIdx != srcEnd+13 {
		return false, errors.New("lz: corrupt stream, truncated literals")
	}

	src.Index += mIdx
	dst.Index += dstIdx
	return true, nil
}

func (t *LZXCodec) inverseV2(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	count := src.Length
	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]

	tkIdx := int(binary.LittleEndian.Uint32(srcBuf[0:]))
	mIdx := tkIdx + int(binary.LittleEndian.Uint32(srcBuf[4:]))

	if tkIdx > count || mIdx > count {
		return false, errors.New("lz: corrupt stream, invalid section lengths")
	}

	srcEnd := tkIdx - 9
	dstEnd := dst.Length - 16
	maxDist := lzMaxDistance2

	if srcBuf[8] == 0 {
		maxDist = lzMaxDistance1
	}

	srcIdx := 9
	dstIdx := 0
	repd := 0

	for {
		token := int(srcBuf[tkIdx])
		tkIdx++

		if token >= 32 {
			litLen := token >> 5

			if litLen == 7 {
				ll, delta := readLengthLZ(srcBuf[srcIdx:])
				litLen += ll
				srcIdx += delta
			}

			if dstIdx+litLen >= dstEnd {
				copy(dstBuf[dstIdx:], srcBuf[srcIdx:srcIdx+litLen])
			} else {
				emitLiteralsLZ(srcBuf[srcIdx:srcIdx+litLen], dstBuf[dstIdx:])
			}

			srcIdx += litLen
			dstIdx += litLen

			if srcIdx >= srcEnd {
				break
			}
		}

		mLen := token & 0x0F

		if mLen == 15 {
			ll, delta := readLengthLZ(srcBuf[mIdx:])
			mLen += ll
			mIdx += delta
		}

		mLen += 5
		mEnd := dstIdx + mLen

		d := (int(srcBuf[mIdx]) << 8) | int(srcBuf[mIdx+1])
		mIdx += 2

		if token&0x10 != 0 {
			if maxDist == lzMaxDistance1 {
				d += 65536
			} else {
				d = (d << 8) | int(srcBuf[mIdx])
				mIdx++
			}
		}

		var dist int

		if d == 0 {
			dist = repd
		} else {
			dist = d - 1
			repd = dist
		}

		if dstIdx < dist || dist > maxDist || mEnd > dstEnd+16 {
			return false, errors.Errorf("lz: corrupt stream, invalid distance %d", dist)
		}

		ref := dstIdx - dist

		if dist >= 16 {
			for {
				copy(dstBuf[dstIdx:], dstBuf[ref:ref+16])
				ref += 16
				dstIdx += 16

				if dstIdx >= mEnd {
					break
				}
			}
		} else {
			for i := 0; i < mLen; i++ {
				dstBuf[dstIdx+i] = dstBuf[ref+i]
			}
		}

		dstIdx = mEnd
	}

	if srcIdx != srcEnd+9 {
		return false, errors.New("lz: corrupt stream, truncated literals")
	}

	src.Index += mIdx
	dst.Index += dstIdx
	return true, nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *LZXCodec) MaxEncodedLen(srcLen int) int {
	if srcLen <= 1024 {
		return srcLen + 16
	}

	return srcLen + srcLen/64
}

// LZPCodec is a Lempel-Ziv-Predict codec: a 64K table indexed by a
// 4-byte sliding context hash predicts the next match; hits are
// flagged by a sentinel byte, escaped when it collides with a literal.
type LZPCodec struct {
	hashes []int32
}

// NewLZPCodec creates a new LZPCodec with no context.
func NewLZPCodec() (*LZPCodec, error) {
	return &LZPCodec{}, nil
}

// NewLZPCodecWithCtx creates a new LZPCodec bound to ctx. The context
// carries no LZP-specific settings; the signature exists to satisfy
// the factory's uniform constructor shape.
func NewLZPCodecWithCtx(_ *kc.Context) (*LZPCodec, error) {
	return &LZPCodec{}, nil
}

// Forward applies the function to src and writes the result to dst.
func (t *LZPCodec) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	count := src.Length

	if dst.Length < t.MaxEncodedLen(count) {
		return false, nil
	}

	if count < lzpMinBlockLength {
		return false, nil
	}

	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]
	srcEnd := count
	dstEnd := dst.Length - 4

	if len(t.hashes) == 0 {
		t.hashes = make([]int32, 1<<lzpHashLog)
	} else {
		for i := range t.hashes {
			t.hashes[i] = 0
		}
	}

	dstBuf[0] = srcBuf[0]
	dstBuf[1] = srcBuf[1]
	dstBuf[2] = srcBuf[2]
	dstBuf[3] = srcBuf[3]
	ctx := binary.LittleEndian.Uint32(srcBuf[:])
	srcIdx := 4
	dstIdx := 4
	minRef := 4

	for srcIdx < srcEnd-lzpMinMatch && dstIdx < dstEnd {
		h := (lzpHashSeed * ctx) >> lzpHashShift
		ref := int(t.hashes[h])
		t.hashes[h] = int32(srcIdx)
		bestLen := 0

		if ref > minRef && binary.LittleEndian.Uint32(srcBuf[srcIdx+lzpMinMatch-4:]) == binary.LittleEndian.Uint32(srcBuf[ref+lzpMinMatch-4:]) {
			bestLen = t.findMatch(srcBuf, srcIdx, ref, srcEnd-srcIdx)
		}

		if bestLen < lzpMinMatch {
			val := uint32(srcBuf[srcIdx])
			ctx = (ctx << 8) | val
			dstBuf[dstIdx] = srcBuf[srcIdx]
			srcIdx++
			dstIdx++

			if ref != 0 {
				if val == lzpMatchFlag {
					dstBuf[dstIdx] = byte(0xFF)
					dstIdx++
				}

				if minRef < bestLen {
					minRef = srcIdx + bestLen
				}
			}

			continue
		}

		srcIdx += bestLen
		ctx = binary.LittleEndian.Uint32(srcBuf[srcIdx-4:])
		dstBuf[dstIdx] = lzpMatchFlag
		dstIdx++
		bestLen -= lzpMinMatch

		for bestLen >= 254 {
			bestLen -= 254
			dstBuf[dstIdx] = 0xFE
			dstIdx++

			if dstIdx >= dstEnd {
				break
			}
		}

		dstBuf[dstIdx] = byte(bestLen)
		dstIdx++
	}

	for srcIdx < srcEnd && dstIdx < dstEnd {
		h := (lzpHashSeed * ctx) >> lzpHashShift
		ref := t.hashes[h]
		t.hashes[h] = int32(srcIdx)
		val := uint32(srcBuf[srcIdx])
		ctx = (ctx << 8) | val
		dstBuf[dstIdx] = srcBuf[srcIdx]
		srcIdx++
		dstIdx++

		if ref != 0 && val == lzpMatchFlag && dstIdx < dstEnd {
			dstBuf[dstIdx] = 0xFF
			dstIdx++
		}
	}

	if srcIdx != count || dstIdx >= count-(count>>6) {
		return false, nil
	}

	src.Index += srcIdx
	dst.Index += dstIdx
	return true, nil
}

// Inverse reverses Forward.
func (t *LZPCodec) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if src.Length < 4 {
		return false, errors.New("lzp: corrupt stream, block too small")
	}

	if len(t.hashes) == 0 {
		t.hashes = make([]int32, 1<<lzpHashLog)
	} else {
		for i := range t.hashes {
			t.hashes[i] = 0
		}
	}

	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]
	srcEnd := src.Length
	dstBuf[0] = srcBuf[0]
	dstBuf[1] = srcBuf[1]
	dstBuf[2] = srcBuf[2]
	dstBuf[3] = srcBuf[3]
	ctx := binary.LittleEndian.Uint32(dstBuf[:])
	srcIdx := 4
	dstIdx := 4
	truncated := false

	for srcIdx < srcEnd {
		h := (lzpHashSeed * ctx) >> lzpHashShift
		ref := int(t.hashes[h])
		t.hashes[h] = int32(dstIdx)

		if ref == 0 || srcBuf[srcIdx] != lzpMatchFlag {
			dstBuf[dstIdx] = srcBuf[srcIdx]
			ctx = (ctx << 8) | uint32(dstBuf[dstIdx])
			srcIdx++
			dstIdx++
			continue
		}

		srcIdx++

		if srcBuf[srcIdx] == 0xFF {
			dstBuf[dstIdx] = lzpMatchFlag
			ctx = (ctx << 8) | uint32(lzpMatchFlag)
			srcIdx++
			dstIdx++
			continue
		}

		mLen := lzpMinMatch

		for srcIdx < srcEnd && srcBuf[srcIdx] == 0xFE {
			srcIdx++
			mLen += 254
		}

		if srcIdx >= srcEnd {
			truncated = true
			break
		}

		mLen += int(srcBuf[srcIdx])
		srcIdx++

		for i := 0; i < mLen; i++ {
			dstBuf[dstIdx+i] = dstBuf[ref+i]
		}

		dstIdx += mLen
		ctx = binary.LittleEndian.Uint32(dstBuf[dstIdx-4:])
	}

	if truncated || srcIdx != srcEnd {
		return false, errors.New("lzp: corrupt stream, truncated input")
	}

	src.Index += srcIdx
	dst.Index += dstIdx
	return true, nil
}

func (t *LZPCodec) findMatch(src []byte, srcIdx, ref, maxMatch int) int {
	bestLen := 0

	for bestLen+8 <= maxMatch {
		diff := binary.LittleEndian.Uint64(src[srcIdx+bestLen:]) ^ binary.LittleEndian.Uint64(src[ref+bestLen:])

		if diff != 0 {
			bestLen += bits.TrailingZeros64(diff) >> 3
			break
		}

		bestLen += 8
	}

	return bestLen
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *LZPCodec) MaxEncodedLen(srcLen int) int {
	if srcLen <= 1024 {
		return srcLen + 16
	}

	return srcLen + srcLen/64
}
