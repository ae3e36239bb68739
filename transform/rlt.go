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

// RLT is an escaped run-length transform:
//
//	runLenEncode1 = 224 => runLenEncode2 = 31*224 = 6944
//	4    <= runLen < 224+3       -> 1 byte
//	227  <= runLen < 6944+3      -> 2 bytes
//	6947 <= runLen <= 65535+6946 -> 3 bytes
package transform

import (
	"strings"

	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
	"github.com/corewave-labs/kanzicore/internal"
)

const (
	rltRunLenEncode1  = 224
	rltRunLenEncode2  = 31 * rltRunLenEncode1
	rltRunThreshold   = 3
	rltMaxRun         = 0xFFFF + rltRunLenEncode2 + rltRunThreshold - 1
	rltMaxRun4        = rltMaxRun - 4
	rltMinBlockLength = 16
	rltDefaultEscape  = 0xFB
)

// RLT is a run-length transform with an escape symbol chosen per
// block from its least-frequent byte.
type RLT struct {
	ctx *kc.Context
}

// NewRLT creates a new RLT with no context.
func NewRLT() (*RLT, error) {
	return &RLT{}, nil
}

// NewRLTWithCtx creates a new RLT bound to ctx.
func NewRLTWithCtx(ctx *kc.Context) (*RLT, error) {
	return &RLT{ctx: ctx}, nil
}

// Forward run-length encodes src into dst.
func (t *RLT) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if src.Length < rltMinBlockLength {
		return false, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, nil
	}

	if n := t.MaxEncodedLen(src.Length); dst.Length < n {
		return false, nil
	}

	srcBuf := src.Bytes()
	dt := kc.DTUndefined
	findBestEscape := true

	if t.ctx != nil {
		dt = t.ctx.DataType

		if dt == kc.DTDNA || dt == kc.DTBase64 || dt == kc.DTUTF8 {
			return false, nil
		}

		if entropyType := strings.ToUpper(t.ctx.Entropy); entropyType == "NONE" || entropyType == "ANS0" ||
			entropyType == "HUFFMAN" || entropyType == "RANGE" {
			findBestEscape = false
		}
	}

	escape := byte(rltDefaultEscape)

	if findBestEscape {
		var freqs [256]int
		internal.ComputeHistogram(srcBuf, freqs[:], true, false)

		if dt == kc.DTUndefined {
			dt = internal.DetectSimpleType(src.Length, freqs[:])

			if t.ctx != nil && dt != kc.DTUndefined {
				t.ctx.DataType = dt
			}

			if dt == kc.DTDNA || dt == kc.DTBase64 || dt == kc.DTUTF8 {
				return false, nil
			}
		}

		minIdx := 0

		if freqs[minIdx] > 0 {
			for i, f := range &freqs {
				if f < freqs[minIdx] {
					minIdx = i

					if f == 0 {
						break
					}
				}
			}
		}

		escape = byte(minIdx)
	}

	srcIdx, dstIdx := 0, 0
	srcEnd := src.Length
	srcEnd4 := srcEnd - 4
	dstBuf := dst.Buf[dst.Index:]
	dstEnd := len(dstBuf)
	run := 0

	prev := srcBuf[srcIdx]
	srcIdx++
	dstBuf[dstIdx] = escape
	dstIdx++
	dstBuf[dstIdx] = prev
	dstIdx++

	if prev == escape {
		dstBuf[dstIdx] = 0
		dstIdx++
	}

	ok := true

	for {
		if prev == srcBuf[srcIdx] {
			srcIdx++
			run++

			if prev == srcBuf[srcIdx] {
				srcIdx++
				run++

				if prev == srcBuf[srcIdx] {
					srcIdx++
					run++

					if prev == srcBuf[srcIdx] {
						srcIdx++
						run++

						if run < rltMaxRun4 && srcIdx < srcEnd4 {
							continue
						}
					}
				}
			}
		}

		if run > rltRunThreshold {
			if dstIdx+6 >= dstEnd {
				ok = false
				break
			}

			dstBuf[dstIdx] = prev
			dstIdx++

			if prev == escape {
				dstBuf[dstIdx] = 0
				dstIdx++
			}

			dstBuf[dstIdx] = escape
			dstIdx++
			dstIdx += emitRunLength(dstBuf[dstIdx:dstEnd], run)
		} else if prev != escape {
			if dstIdx+run >= dstEnd {
				ok = false
				break
			}

			for run > 0 {
				dstBuf[dstIdx] = prev
				dstIdx++
				run--
			}
		} else {
			if dstIdx+2*run >= dstEnd {
				ok = false
				break
			}

			for run > 0 {
				dstBuf[dstIdx] = escape
				dstBuf[dstIdx+1] = 0
				dstIdx += 2
				run--
			}
		}

		prev = srcBuf[srcIdx]
		srcIdx++
		run = 1

		if srcIdx >= srcEnd4 {
			break
		}
	}

	if ok {
		if prev != escape {
			if dstIdx+run < dstEnd {
				for run > 0 {
					dstBuf[dstIdx] = prev
					dstIdx++
					run--
				}
			}
		} else {
			if dstIdx+2*run < dstEnd {
				for run > 0 {
					dstBuf[dstIdx] = escape
					dstBuf[dstIdx+1] = 0
					dstIdx += 2
					run--
				}
			}
		}

		for srcIdx < srcEnd && dstIdx < dstEnd {
			if srcBuf[srcIdx] == escape {
				if dstIdx+2 >= dstEnd {
					break
				}

				dstBuf[dstIdx] = escape
				dstBuf[dstIdx+1] = 0
				dstIdx += 2
				srcIdx++
				continue
			}

			dstBuf[dstIdx] = srcBuf[srcIdx]
			srcIdx++
			dstIdx++
		}

		if srcIdx != srcEnd || dstIdx >= srcIdx {
			ok = false
		}
	}

	if !ok {
		return false, nil
	}

	src.Index += srcIdx
	dst.Index += dstIdx
	return true, nil
}

func emitRunLength(dst []byte, run int) int {
	run -= rltRunThreshold

	if run < rltRunLenEncode1 {
		dst[0] = byte(run)
		return 1
	}

	var dstIdx int

	if run < rltRunLenEncode2 {
		run -= rltRunLenEncode1
		dst[0] = byte(rltRunLenEncode1 + (run >> 8))
		dstIdx = 1
	} else {
		run -= rltRunLenEncode2
		dst[0] = 0xFF
		dst[1] = byte(run >> 8)
		dstIdx = 2
	}

	dst[dstIdx] = byte(run)
	return dstIdx + 1
}

// Inverse reverses Forward.
func (t *RLT) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("rlt: input and output buffers must be distinct")
	}

	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]
	srcIdx, dstIdx := 0, 0
	srcEnd := src.Length
	dstEnd := len(dstBuf)
	escape := srcBuf[srcIdx]
	srcIdx++

	if srcBuf[srcIdx] == escape {
		srcIdx++

		if srcIdx < srcEnd && srcBuf[srcIdx] != 0 {
			return false, errors.New("rlt: corrupt stream, cannot start with a run")
		}

		srcIdx++
		dstBuf[dstIdx] = escape
		dstIdx++
	}

	var err error

	for srcIdx < srcEnd {
		if srcBuf[srcIdx] != escape {
			if dstIdx >= dstEnd {
				err = errors.New("rlt: corrupt stream, output buffer exhausted")
				break
			}

			dstBuf[dstIdx] = srcBuf[srcIdx]
			srcIdx++
			dstIdx++
			continue
		}

		srcIdx++

		if srcIdx >= srcEnd {
			err = errors.New("rlt: corrupt stream, truncated escape")
			break
		}

		run := int(srcBuf[srcIdx])
		srcIdx++

		if run == 0 {
			if dstIdx >= dstEnd {
				err = errors.New("rlt: corrupt stream, output buffer exhausted")
				break
			}

			dstBuf[dstIdx] = escape
			dstIdx++
			continue
		}

		if run == 0xFF {
			if srcIdx+1 >= srcEnd {
				err = errors.New("rlt: corrupt stream, truncated run length")
				break
			}

			run = (int(srcBuf[srcIdx]) << 8) | int(srcBuf[srcIdx+1])
			srcIdx += 2
			run += rltRunLenEncode2
		} else if run >= rltRunLenEncode1 {
			if srcIdx >= srcEnd {
				err = errors.New("rlt: corrupt stream, truncated run length")
				break
			}

			run = ((run - rltRunLenEncode1) << 8) | int(srcBuf[srcIdx])
			run += rltRunLenEncode1
			srcIdx++
		}

		run += rltRunThreshold - 1

		if run > rltMaxRun || dstIdx+run >= dstEnd {
			err = errors.New("rlt: corrupt stream, invalid run length")
			break
		}

		val := dstBuf[dstIdx-1]
		d := dstBuf[dstIdx : dstIdx+run]

		for i := range d {
			d[i] = val
		}

		dstIdx += run
	}

	if err == nil && srcIdx != srcEnd {
		err = errors.New("rlt: corrupt stream, trailing bytes")
	}

	if err != nil {
		return false, err
	}

	src.Index += srcIdx
	dst.Index += dstIdx
	return true, nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *RLT) MaxEncodedLen(srcLen int) int {
	if srcLen <= 512 {
		return srcLen + 32
	}

	return srcLen
}
