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

// FSDCodec (Fixed Step Delta) decorrelates values separated by a
// constant stride: it samples a handful of candidate strides (1, 2, 3,
// 4, 8, 16 bytes) plus stride 0 (raw), picks whichever minimizes
// order-0 entropy on a sample, then re-encodes the whole block as
// either zigzag-encoded deltas or an XOR against the byte `stride`
// positions back. Well suited to multimedia formats (BMP/WAV/PNM) with
// fixed-width pixel/sample strides.
package transform

import (
	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
	"github.com/corewave-labs/kanzicore/internal"
)

const (
	fsdMinBlockLength = 1024
	fsdEscapeToken    = 0xFF
	fsdDeltaCoding    = byte(0)
	fsdXorCoding      = byte(1)
)

var fsdZigzag1 = [256]byte{
	253, 251, 249, 247, 245, 243, 241, 239,
	237, 235, 233, 231, 229, 227, 225, 223,
	221, 219, 217, 215, 213, 211, 209, 207,
	205, 203, 201, 199, 197, 195, 193, 191,
	189, 187, 185, 183, 181, 179, 177, 175,
	173, 171, 169, 167, 165, 163, 161, 159,
	157, 155, 153, 151, 149, 147, 145, 143,
	141, 139, 137, 135, 133, 131, 129, 127,
	125, 123, 121, 119, 117, 115, 113, 111,
	109, 107, 105, 103, 101, 99, 97, 95,
	93, 91, 89, 87, 85, 83, 81, 79,
	77, 75, 73, 71, 69, 67, 65, 63,
	61, 59, 57, 55, 53, 51, 49, 47,
	45, 43, 41, 39, 37, 35, 33, 31,
	29, 27, 25, 23, 21, 19, 17, 15,
	13, 11, 9, 7, 5, 3, 1, 0,
	2, 4, 6, 8, 10, 12, 14, 16,
	18, 20, 22, 24, 26, 28, 30, 32,
	34, 36, 38, 40, 42, 44, 46, 48,
	50, 52, 54, 56, 58, 60, 62, 64,
	66, 68, 70, 72, 74, 76, 78, 80,
	82, 84, 86, 88, 90, 92, 94, 96,
	98, 100, 102, 104, 106, 108, 110, 112,
	114, 116, 118, 120, 122, 124, 126, 128,
	130, 132, 134, 136, 138, 140, 142, 144,
	146, 148, 150, 152, 154, 156, 158, 160,
	162, 164, 166, 168, 170, 172, 174, 176,
	178, 180, 182, 184, 186, 188, 190, 192,
	194, 196, 198, 200, 202, 204, 206, 208,
	210, 212, 214, 216, 218, 220, 222, 224,
	226, 228, 230, 232, 234, 236, 238, 240,
	242, 244, 246, 248, 250, 252, 254, 255,
}

var fsdZigzag2 = [256]int{
	0, -1, 1, -2, 2, -3, 3, -4,
	4, -5, 5, -6, 6, -7, 7, -8,
	8, -9, 9, -10, 10, -11, 11, -12,
	12, -13, 13, -14, 14, -15, 15, -16,
	16, -17, 17, -18, 18, -19, 19, -20,
	20, -21, 21, -22, 22, -23, 23, -24,
	24, -25, 25, -26, 26, -27, 27, -28,
	28, -29, 29, -30, 30, -31, 31, -32,
	32, -33, 33, -34, 34, -35, 35, -36,
	36, -37, 37, -38, 38, -39, 39, -40,
	40, -41, 41, -42, 42, -43, 43, -44,
	44, -45, 45, -46, 46, -47, 47, -48,
	48, -49, 49, -50, 50, -51, 51, -52,
	52, -53, 53, -54, 54, -55, 55, -56,
	56, -57, 57, -58, 58, -59, 59, -60,
	60, -61, 61, -62, 62, -63, 63, -64,
	64, -65, 65, -66, 66, -67, 67, -68,
	68, -69, 69, -70, 70, -71, 71, -72,
	72, -73, 73, -74, 74, -75, 75, -76,
	76, -77, 77, -78, 78, -79, 79, -80,
	80, -81, 81, -82, 82, -83, 83, -84,
	84, -85, 85, -86, 86, -87, 87, -88,
	88, -89, 89, -90, 90, -91, 91, -92,
	92, -93, 93, -94, 94, -95, 95, -96,
	96, -97, 97, -98, 98, -99, 99, -100,
	100, -101, 101, -102, 102, -103, 103, -104,
	104, -105, 105, -106, 106, -107, 107, -108,
	108, -109, 109, -110, 110, -111, 111, -112,
	112, -113, 113, -114, 114, -115, 115, -116,
	116, -117, 117, -118, 118, -119, 119, -120,
	120, -121, 121, -122, 122, -123, 123, -124,
	124, -125, 125, -126, 126, -127, 127, -128,
}

// FSDCodec decorrelates values separated by a constant stride and
// encodes the residuals.
type FSDCodec struct {
	ctx *kc.Context
}

// NewFSDCodec creates a new FSDCodec with no context.
func NewFSDCodec() (*FSDCodec, error) {
	return &FSDCodec{}, nil
}

// NewFSDCodecWithCtx creates a new FSDCodec bound to ctx.
func NewFSDCodecWithCtx(ctx *kc.Context) (*FSDCodec, error) {
	return &FSDCodec{ctx: ctx}, nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *FSDCodec) MaxEncodedLen(srcLen int) int {
	padding := srcLen >> 4

	if padding < 32 {
		padding = 32
	}

	return srcLen + padding
}

// Forward decorrelates src by the best-scoring fixed stride, writing
// mode+stride followed by the residual stream to dst.
func (t *FSDCodec) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, nil
	}

	count := src.Length

	if n := t.MaxEncodedLen(count); dst.Length < n {
		return false, nil
	}

	if count < fsdMinBlockLength {
		return false, nil
	}

	if t.ctx != nil {
		dt := t.ctx.DataType

		if dt != kc.DTUndefined && dt != kc.DTMultimedia && dt != kc.DTBin {
			return false, nil
		}
	}

	srcBuf := src.Bytes()
	magic := internal.DetectMagic(srcBuf)

	switch magic {
	case internal.BMPMagic, internal.RIFFMagic, internal.PBMMagic, internal.PGMMagic, internal.PPMMagic, internal.NoMagic:
	default:
		return false, nil
	}

	count5 := count / 5
	count10 := count / 10
	in0 := srcBuf[0*count5:]
	in1 := srcBuf[2*count5:]
	in2 := srcBuf[4*count5:]
	var histo [7][256]int

	for i := count10; i < count5; i++ {
		b0 := in0[i]
		histo[0][b0]++
		histo[1][b0^in0[i-1]]++
		histo[2][b0^in0[i-2]]++
		histo[3][b0^in0[i-3]]++
		histo[4][b0^in0[i-4]]++
		histo[5][b0^in0[i-8]]++
		histo[6][b0^in0[i-16]]++
		b1 := in1[i]
		histo[0][b1]++
		histo[1][b1^in1[i-1]]++
		histo[2][b1^in1[i-2]]++
		histo[3][b1^in1[i-3]]++
		histo[4][b1^in1[i-4]]++
		histo[5][b1^in1[i-8]]++
		histo[6][b1^in1[i-16]]++
		b2 := in2[i]
		histo[0][b2]++
		histo[1][b2^in2[i-1]]++
		histo[2][b2^in2[i-2]]++
		histo[3][b2^in2[i-3]]++
		histo[4][b2^in2[i-4]]++
		histo[5][b2^in2[i-8]]++
		histo[6][b2^in2[i-16]]++
	}

	var ent [7]int
	minIdx := 0

	for i := range ent {
		ent[i] = internal.ComputeFirstOrderEntropy1024(3*count10, histo[i][:])

		if ent[i] < ent[minIdx] {
			minIdx = i
		}
	}

	if ent[minIdx] >= ent[0] {
		if t.ctx != nil {
			t.ctx.DataType = internal.DetectSimpleType(3*count10, histo[0][:])
		}

		return false, nil
	}

	if t.ctx != nil {
		t.ctx.DataType = kc.DTMultimedia
	}

	distances := []int{0, 1, 2, 3, 4, 8, 16}
	dist := distances[minIdx]
	largeDeltas := 0

	for i := 2 * count5; i < 3*count5; i++ {
		delta := int32(srcBuf[i]) - int32(srcBuf[i-dist])

		if delta < -127 || delta > 127 {
			largeDeltas++
		}
	}

	mode := fsdDeltaCoding

	if largeDeltas > (count5 >> 5) {
		mode = fsdXorCoding
	}

	dstBuf := dst.Buf[dst.Index:]
	dstEnd := t.MaxEncodedLen(count)
	dstBuf[0] = mode
	dstBuf[1] = byte(dist)
	srcIdx := 0
	dstIdx := 2

	for i := 0; i < dist; i++ {
		dstBuf[dstIdx] = srcBuf[srcIdx]
		dstIdx++
		srcIdx++
	}

	if mode == fsdDeltaCoding {
		for srcIdx < count && dstIdx < dstEnd-1 {
			delta := 127 + int32(srcBuf[srcIdx]) - int32(srcBuf[srcIdx-dist])

			if delta >= 0 && delta < 255 {
				dstBuf[dstIdx] = fsdZigzag1[delta]
				srcIdx++
				dstIdx++
				continue
			}

			dstBuf[dstIdx] = fsdEscapeToken
			dstBuf[dstIdx+1] = srcBuf[srcIdx] ^ srcBuf[srcIdx-dist]
			srcIdx++
			dstIdx += 2
		}
	} else {
		for srcIdx < count {
			dstBuf[dstIdx] = srcBuf[srcIdx] ^ srcBuf[srcIdx-dist]
			srcIdx++
			dstIdx++
		}
	}

	if srcIdx != count {
		return false, nil
	}

	for i := range histo[0] {
		histo[0][i] = 0
	}

	out1 := dstBuf[1*count5 : 1*count5+count10]
	out2 := dstBuf[3*count5 : 3*count5+count10]

	for i := 0; i < count10; i++ {
		histo[0][out1[i]]++
		histo[0][out2[i]]++
	}

	if entropy := internal.ComputeFirstOrderEntropy1024(count5, histo[0][:]); entropy >= ent[0] {
		return false, nil
	}

	src.Index += srcIdx
	dst.Index += dstIdx
	return true, nil
}

// Inverse reverses Forward.
func (t *FSDCodec) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("fsd: input and output buffers must be distinct")
	}

	srcBuf := src.Bytes()
	mode := srcBuf[0]
	dist := int(srcBuf[1])

	if dist < 1 || (dist > 4 && dist != 8 && dist != 16) {
		return false, errors.New("fsd: corrupt stream, invalid stride")
	}

	dstBuf := dst.Buf[dst.Index:]
	srcEnd := src.Length
	dstEnd := len(dstBuf)
	srcIdx := 2
	dstIdx := 0

	for i := 0; i < dist; i++ {
		dstBuf[dstIdx] = srcBuf[srcIdx]
		dstIdx++
		srcIdx++
	}

	if mode == fsdDeltaCoding {
		for srcIdx < srcEnd && dstIdx < dstEnd {
			if srcBuf[srcIdx] != fsdEscapeToken {
				dstBuf[dstIdx] = byte(int(dstBuf[dstIdx-dist]) + fsdZigzag2[srcBuf[srcIdx]])
				srcIdx++
				dstIdx++
				continue
			}

			srcIdx++
			dstBuf[dstIdx] = srcBuf[srcIdx] ^ dstBuf[dstIdx-dist]
			srcIdx++
			dstIdx++
		}
	} else {
		for srcIdx < srcEnd {
			dstBuf[dstIdx] = srcBuf[srcIdx] ^ dstBuf[dstIdx-dist]
			dstIdx++
			srcIdx++
		}
	}

	if srcIdx != srcEnd {
		return false, errors.New("fsd: corrupt stream, output buffer too small")
	}

	src.Index += srcIdx
	dst.Index += dstIdx
	return true, nil
}
