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

// ZRLT is a zero-run-length transform (Wheeler's ZLE): only runs of
// zero bytes are encoded, as a sequence of bits (one per output byte,
// MSB implied) spelling the run length; non-zero bytes are emitted as
// value+1, with 0xFE/0xFF escaped via a leading 0xFF. Well suited to
// post-BWT/MTFT data, which is dominated by zero runs.
package transform

import (
	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
	"github.com/corewave-labs/kanzicore/internal"
)

// ZRLT is a zero-run-length transform.
type ZRLT struct{}

// NewZRLT creates a new ZRLT.
func NewZRLT() (*ZRLT, error) {
	return &ZRLT{}, nil
}

// NewZRLTWithCtx creates a new ZRLT; the context is unused.
func NewZRLTWithCtx(_ *kc.Context) (*ZRLT, error) {
	return &ZRLT{}, nil
}

// Forward encodes zero runs in src into dst.
func (t *ZRLT) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 || dst.Length == 0 {
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
	srcEnd := uint(src.Length)
	dstEnd := uint(src.Length)
	srcIdx, dstIdx := uint(0), uint(0)
	ok := true

	for srcIdx < srcEnd {
		if srcBuf[srcIdx] == 0 {
			runStart := srcIdx - 1
			srcIdx++

			for srcIdx+1 < srcEnd && srcBuf[srcIdx]|srcBuf[srcIdx+1] == 0 {
				srcIdx += 2
			}

			for srcIdx < srcEnd && srcBuf[srcIdx] == 0 {
				srcIdx++
			}

			runLength := srcIdx - runStart
			log2 := internal.Log2NoCheck(uint32(runLength))

			if dstIdx >= dstEnd-uint(log2) {
				ok = false
				break
			}

			for log2 > 0 {
				log2--
				dstBuf[dstIdx] = byte((runLength >> log2) & 1)
				dstIdx++
			}

			continue
		}

		if srcBuf[srcIdx] >= 0xFE {
			if dstIdx >= dstEnd-1 {
				ok = false
				break
			}

			dstBuf[dstIdx] = 0xFF
			dstIdx++
			dstBuf[dstIdx] = srcBuf[srcIdx] - 0xFE
		} else {
			if dstIdx >= dstEnd {
				ok = false
				break
			}

			dstBuf[dstIdx] = srcBuf[srcIdx] + 1
		}

		srcIdx++
		dstIdx++
	}

	if srcIdx != srcEnd || !ok {
		return false, nil
	}

	src.Index += int(srcIdx)
	dst.Index += int(dstIdx)
	return true, nil
}

// Inverse reverses Forward.
func (t *ZRLT) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 || dst.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("zrlt: input and output buffers must be distinct")
	}

	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]
	srcEnd, dstEnd := uint(src.Length), uint(len(dstBuf))
	srcIdx, dstIdx := uint(0), uint(0)
	runLength := uint(0)
	var err error

loop:
	for {
		if srcBuf[srcIdx] <= 1 {
			runLength = 1

			for srcBuf[srcIdx] <= 1 {
				runLength += runLength + uint(srcBuf[srcIdx])
				srcIdx++

				if srcIdx >= srcEnd {
					break loop
				}
			}

			runLength--

			if runLength >= dstEnd-dstIdx {
				break
			}

			for runLength > 0 {
				runLength--
				dstBuf[dstIdx] = 0
				dstIdx++
			}
		}

		if srcBuf[srcIdx] == 0xFF {
			srcIdx++

			if srcIdx >= srcEnd {
				break
			}

			dstBuf[dstIdx] = 0xFE + srcBuf[srcIdx]
		} else {
			dstBuf[dstIdx] = srcBuf[srcIdx] - 1
		}

		srcIdx++
		dstIdx++

		if srcIdx >= srcEnd || dstIdx >= dstEnd {
			break
		}
	}

	if runLength > 0 {
		runLength--

		if runLength > dstEnd-dstIdx {
			err = errors.New("zrlt: corrupt stream, output buffer too small for trailing run")
		} else {
			for runLength > 0 {
				runLength--
				dstBuf[dstIdx] = 0
				dstIdx++
			}
		}
	}

	if srcIdx < srcEnd {
		err = errors.New("zrlt: corrupt stream, trailing input bytes")
	}

	if err != nil {
		return false, err
	}

	src.Index += int(srcIdx)
	dst.Index += int(dstIdx)
	return true, nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *ZRLT) MaxEncodedLen(srcLen int) int {
	return srcLen
}
