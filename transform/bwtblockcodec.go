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

// BWTBlockCodec wraps BWT with a header carrying its 1 or 8 primary
// indexes. Each index is serialized independently behind its own mode
// byte: bits 6-7 hold sizeBytes-1, bits 0-5 the index's top 6 bits,
// and sizeBytes-1 further big-endian bytes carry the rest.
package transform

import (
	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
)

const bwtBlockMaxHeaderSize = bwtNbChunks * 4

// BWTBlockCodec encapsulates a BWT and its primary-index header.
type BWTBlockCodec struct {
	bwt *BWT
}

// NewBWTBlockCodec creates a new BWTBlockCodec with no context.
func NewBWTBlockCodec() (*BWTBlockCodec, error) {
	bwt, err := NewBWT()

	if err != nil {
		return nil, err
	}

	return &BWTBlockCodec{bwt: bwt}, nil
}

// NewBWTBlockCodecWithCtx creates a new BWTBlockCodec bound to ctx.
func NewBWTBlockCodecWithCtx(ctx *kc.Context) (*BWTBlockCodec, error) {
	bwt, err := NewBWTWithCtx(ctx)

	if err != nil {
		return nil, err
	}

	return &BWTBlockCodec{bwt: bwt}, nil
}

func primaryIndexSize(p uint32) int {
	size := 1

	for v := p >> 6; v != 0; v >>= 8 {
		size++
	}

	return size
}

// Forward runs the BWT and prepends the primary-index header.
func (t *BWTBlockCodec) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("bwtBlockCodec: input and output buffers must be distinct")
	}

	blockSize := src.Length
	chunks := GetBWTChunks(blockSize)
	headerMax := bwtBlockMaxHeaderSize

	if dst.Length < headerMax+blockSize {
		return false, errors.New("bwtBlockCodec: output buffer too small for header")
	}

	inner := &kc.Slice{Buf: dst.Buf, Index: dst.Index + headerMax, Length: dst.Length - headerMax}

	if ok, err := t.bwt.Forward(src, inner); !ok || err != nil {
		return ok, err
	}

	encodedLen := inner.Index - (dst.Index + headerMax)

	var header [bwtBlockMaxHeaderSize]byte
	hIdx := 0

	for i := 0; i < chunks; i++ {
		p := t.bwt.PrimaryIndex(i)
		sizeBytes := primaryIndexSize(p)
		top6 := byte((p >> uint((sizeBytes-1)*8)) & 0x3F)
		header[hIdx] = byte((sizeBytes-1)<<6) | top6
		hIdx++

		for shift := (sizeBytes - 2) * 8; shift >= 0; shift -= 8 {
			header[hIdx] = byte(p >> uint(shift))
			hIdx++
		}
	}

	copy(dst.Buf[dst.Index+hIdx:dst.Index+hIdx+encodedLen], dst.Buf[dst.Index+headerMax:dst.Index+headerMax+encodedLen])
	copy(dst.Buf[dst.Index:dst.Index+hIdx], header[:hIdx])

	dst.Index += hIdx + encodedLen
	return true, nil
}

// Inverse reads the primary-index header and runs the BWT inverse.
func (t *BWTBlockCodec) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("bwtBlockCodec: input and output buffers must be distinct")
	}

	srcBuf := src.Bytes()
	blockSize := dst.Length
	chunks := GetBWTChunks(blockSize)

	idx := 0

	for i := 0; i < chunks; i++ {
		if idx >= len(srcBuf) {
			err := errors.New("bwtBlockCodec: corrupt stream, truncated header")
			t.bwt.ctx.Logger().Error().Int("chunk", i).Err(err).Msg("bwtBlockCodec: inverse corrupt header")
			return false, err
		}

		mode := srcBuf[idx]
		idx++
		sizeBytes := int(mode>>6) + 1
		p := uint32(mode & 0x3F)

		if idx+sizeBytes-1 > len(srcBuf) {
			err := errors.New("bwtBlockCodec: corrupt stream, truncated primary index")
			t.bwt.ctx.Logger().Error().Int("chunk", i).Err(err).Msg("bwtBlockCodec: inverse corrupt primary index")
			return false, err
		}

		for j := 0; j < sizeBytes-1; j++ {
			p = (p << 8) | uint32(srcBuf[idx])
			idx++
		}

		if !t.bwt.SetPrimaryIndex(i, p) {
			err := errors.New("bwtBlockCodec: corrupt stream, invalid primary index")
			t.bwt.ctx.Logger().Error().Int("chunk", i).Err(err).Msg("bwtBlockCodec: inverse invalid primary index")
			return false, err
		}
	}

	inner := &kc.Slice{Buf: src.Buf, Index: src.Index + idx, Length: src.Length - idx}

	ok, err := t.bwt.Inverse(inner, dst)

	if err != nil {
		t.bwt.ctx.Logger().Error().Err(err).Msg("bwtBlockCodec: inverse corrupt stream")
	}

	return ok, err
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *BWTBlockCodec) MaxEncodedLen(srcLen int) int {
	return srcLen + bwtBlockMaxHeaderSize
}
