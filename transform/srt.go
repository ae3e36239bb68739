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

// SRT (Sorted Rank Transform) is typically run right after a BWT to
// reduce the variance of the output before entropy coding: each byte
// is replaced by its current rank in a frequency-sorted symbol table,
// and the symbol is moved to rank 0 (ties broken by ascending value).
package transform

import (
	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
)

const srtMaxHeaderSize = 4 * 256

// SRT is a sorted-rank transform.
type SRT struct{}

// NewSRT creates a new SRT.
func NewSRT() (*SRT, error) {
	return &SRT{}, nil
}

// NewSRTWithCtx creates a new SRT; the context is unused.
func NewSRTWithCtx(_ *kc.Context) (*SRT, error) {
	return &SRT{}, nil
}

// Forward applies the sorted-rank transform to src, writing the
// header (a variable-width order-0 frequency table) followed by the
// rank stream to dst.
func (t *SRT) Forward(src, dst *kc.Slice) (bool, error) {
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
	count := src.Length
	var s2r, r2s [256]byte
	var freqs [256]int32

	for i, b := 0, 0; i < count; {
		c := srcBuf[i]

		if freqs[c] == 0 {
			r2s[b] = c
			s2r[c] = byte(b)
			b++
		}

		j := i + 1

		for j < count && srcBuf[j] == c {
			j++
		}

		freqs[c] += int32(j - i)
		i = j
	}

	var symbols [256]byte
	nbSymbols := preprocessSRT(freqs[:], symbols[:])
	var buckets [256]int

	for i, bucketPos := 0, 0; i < nbSymbols; i++ {
		c := symbols[i]
		buckets[c] = bucketPos
		bucketPos += int(freqs[c])
	}

	dstBuf := dst.Buf[dst.Index:]
	headerSize := encodeSRTHeader(freqs[:], dstBuf)
	body := dstBuf[headerSize:]

	for i := 0; i < count; {
		c := srcBuf[i]
		r := s2r[c]
		p := buckets[c]
		body[p] = r
		p++

		if r > 0 {
			for {
				tsym := r2s[r-1]
				r2s[r], s2r[tsym] = tsym, r

				if r == 1 {
					break
				}

				r--
			}

			r2s[0] = c
			s2r[c] = 0
		}

		i++

		for i < count && srcBuf[i] == c {
			body[p] = 0
			p++
			i++
		}

		buckets[c] = p
	}

	src.Index += count
	dst.Index += count + headerSize
	return true, nil
}

func preprocessSRT(freqs []int32, symbols []byte) int {
	nbSymbols := 0

	for i := range freqs {
		if freqs[i] == 0 {
			continue
		}

		symbols[nbSymbols] = byte(i)
		nbSymbols++
	}

	h := 4

	for h < nbSymbols {
		h = h*3 + 1
	}

	for {
		h /= 3

		for i := h; i < nbSymbols; i++ {
			tsym := symbols[i]
			var b int

			for b = i - h; b >= 0 && (freqs[symbols[b]] < freqs[tsym] || (tsym < symbols[b] && freqs[tsym] == freqs[symbols[b]])); b -= h {
				symbols[b+h] = symbols[b]
			}

			symbols[b+h] = tsym
		}

		if h == 1 {
			break
		}
	}

	return nbSymbols
}

// Inverse reverses Forward. The decoded block has one byte per rank
// byte after the header, so dst.Length only needs to be at least that
// large; any space beyond it is left untouched.
func (t *SRT) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("srt: input and output buffers must be distinct")
	}

	srcBuf := src.Bytes()
	var freqs [256]int32
	headerSize := decodeSRTHeader(srcBuf, freqs[:])

	if headerSize > len(srcBuf) {
		return false, errors.New("srt: corrupt header")
	}

	body := srcBuf[headerSize:]
	var symbols [256]byte
	nbSymbols := preprocessSRT(freqs[:], symbols[:])
	var buckets, bucketEnds [256]int
	var r2s [256]byte

	for i, bucketPos := 0, 0; i < nbSymbols; i++ {
		c := symbols[i]

		if bucketPos >= len(body) {
			return false, errors.New("srt: corrupt stream, truncated body")
		}

		r2s[body[bucketPos]] = c
		buckets[c] = bucketPos + 1
		bucketPos += int(freqs[c])
		bucketEnds[c] = bucketPos
	}

	if len(body) > dst.Length {
		return false, errors.New("srt: corrupt stream, output buffer too small")
	}

	dstBuf := dst.Buf[dst.Index : dst.Index+len(body)]
	c := r2s[0]

	for i := range dstBuf {
		dstBuf[i] = c

		if buckets[c] < bucketEnds[c] {
			r := body[buckets[c]]
			buckets[c]++

			if r == 0 {
				continue
			}

			s := 0

			for s+4 < int(r) {
				r2s[s] = r2s[s+1]
				r2s[s+1] = r2s[s+2]
				r2s[s+2] = r2s[s+3]
				r2s[s+3] = r2s[s+4]
				s += 4
			}

			for s < int(r) {
				r2s[s] = r2s[s+1]
				s++
			}

			r2s[r] = c
			c = r2s[0]
		} else {
			if nbSymbols == 1 {
				continue
			}

			nbSymbols--

			for s := 0; s < nbSymbols; s++ {
				r2s[s] = r2s[s+1]
			}

			c = r2s[0]
		}
	}

	src.Index += len(body) + headerSize
	dst.Index += len(body)
	return true, nil
}

func encodeSRTHeader(freqs []int32, dst []byte) int {
	n := 0

	for _, f := range freqs {
		for f >= 128 {
			dst[n] = byte(0x80 | (f & 0x7F))
			n++
			f >>= 7
		}

		dst[n] = byte(f)
		n++
	}

	return n
}

func decodeSRTHeader(src []byte, freqs []int32) int {
	n := 0

	for i := range freqs {
		val := int32(src[n])
		n++

		if val < 128 {
			freqs[i] = val
			continue
		}

		res := val & 0x7F
		val = int32(src[n])
		n++
		res |= (val & 0x7F) << 7

		if val >= 128 {
			val = int32(src[n])
			n++
			res |= (val & 0x7F) << 14

			if val >= 128 {
				val = int32(src[n])
				n++
				res |= (val & 0x7F) << 21
			}
		}

		freqs[i] = res
	}

	return n
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *SRT) MaxEncodedLen(srcLen int) int {
	return srcLen + srtMaxHeaderSize
}
