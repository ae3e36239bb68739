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

// SBRT (Sort By Rank Transform) is a family of list-update transforms
// used after a BWT to reduce output variance before entropy coding.
// SBR(alpha) = (1-alpha)*(t-w1(x,t)) + alpha*(t-w2(x,t)), where x is a
// symbol, t the current access time, and wk(x,t) the k-th most recent
// access time to x (see Schulz, "Two new families of list update
// algorithms"). This implements SBR(0) (Move-To-Front), SBR(1/2)
// (Rank) and SBR(1) (Timestamp).
package transform

import (
	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
)

// SBRT modes.
const (
	SBRTModeMTF       = 1
	SBRTModeRank      = 2
	SBRTModeTimestamp = 3
)

const sbrtMaxHeaderSize = 8 * 4

// SBRT is a sort-by-rank transform parameterized by mode.
type SBRT struct {
	mode  int
	mask1 int
	mask2 int
	shift uint
}

func newSBRT(mode int) (*SBRT, error) {
	if mode != SBRTModeMTF && mode != SBRTModeRank && mode != SBRTModeTimestamp {
		return nil, errors.Errorf("sbrt: invalid mode %d", mode)
	}

	t := &SBRT{mode: mode}

	if mode == SBRTModeTimestamp {
		t.mask1 = 0
	} else {
		t.mask1 = -1
	}

	if mode == SBRTModeMTF {
		t.mask2 = 0
	} else {
		t.mask2 = -1
	}

	if mode == SBRTModeRank {
		t.shift = 1
	}

	return t, nil
}

// NewSBRT creates a new SBRT in the given mode.
func NewSBRT(mode int) (*SBRT, error) {
	return newSBRT(mode)
}

// NewSBRTWithCtx creates a new SBRT, taking its mode from ctx.SBRTMode
// (defaulting to MTF when unset).
func NewSBRTWithCtx(ctx *kc.Context) (*SBRT, error) {
	mode := SBRTModeMTF

	if ctx != nil && ctx.SBRTMode != 0 {
		mode = ctx.SBRTMode
	}

	return newSBRT(mode)
}

// Forward replaces each byte of src by its current rank in the
// move-up list and writes the rank stream to dst.
func (t *SBRT) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, nil
	}

	if n := t.MaxEncodedLen(src.Length); dst.Length < n {
		return false, nil
	}

	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]
	count := src.Length
	var s2r, r2s [256]uint8

	for i := range s2r {
		s2r[i] = uint8(i)
		r2s[i] = uint8(i)
	}

	m1, m2, sh := t.mask1, t.mask2, t.shift
	var p, q [256]int

	for i := 0; i < count; i++ {
		c := srcBuf[i]
		r := s2r[c]
		dstBuf[i] = r
		qc := ((i & m1) + (p[c] & m2)) >> sh
		p[c] = i
		q[c] = qc

		for r > 0 && q[r2s[r-1]] <= qc {
			tsym := r2s[r-1]
			r2s[r], s2r[tsym] = tsym, r
			r--
		}

		r2s[r] = c
		s2r[c] = r
	}

	src.Index += count
	dst.Index += count
	return true, nil
}

// Inverse reverses Forward.
func (t *SBRT) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("sbrt: input and output buffers must be distinct")
	}

	count := src.Length

	if count > dst.Length {
		return false, errors.Errorf("sbrt: block size %d exceeds output buffer length %d", count, dst.Length)
	}

	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]
	var r2s [256]uint8

	for i := range r2s {
		r2s[i] = uint8(i)
	}

	m1, m2, sh := t.mask1, t.mask2, t.shift
	var p, q [256]int

	for i := 0; i < count; i++ {
		r := srcBuf[i]
		c := r2s[r]
		dstBuf[i] = c
		qc := ((i & m1) + (p[c] & m2)) >> sh
		p[c] = i
		q[c] = qc

		for r > 0 && q[r2s[r-1]] <= qc {
			r2s[r] = r2s[r-1]
			r--
		}

		r2s[r] = c
	}

	src.Index += count
	dst.Index += count
	return true, nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *SBRT) MaxEncodedLen(srcLen int) int {
	return srcLen + sbrtMaxHeaderSize
}
