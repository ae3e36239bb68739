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
	"encoding/binary"

	"github.com/pkg/errors"
)

// ansLogRange/ansScale/ansRansL are the order-0 rANS parameters used by
// rolzCodec1 to entropy-code its literal, token and match-index
// streams. This is a self-contained byte-wise rANS coder grounded in
// the teacher's ANSRangeCodec.go reciprocal-normalization scheme, but
// without its generic bitstream abstraction or multi-stream
// interleaving: one state, one pass, a flat 256-entry frequency table
// written directly into the stream instead of the teacher's compacted
// alphabet header. See DESIGN.md for the tradeoff.
const (
	ansLogRange = 12
	ansScale    = 1 << ansLogRange
	ansRansL    = 1 << 16
)

type ansModel struct {
	freq    [256]uint32
	cumFreq [257]uint32
	symLut  [ansScale]byte
}

func newAnsModel(freq *[256]uint32) *ansModel {
	m := &ansModel{freq: *freq}
	sum := uint32(0)

	for i := 0; i < 256; i++ {
		m.cumFreq[i] = sum
		sum += m.freq[i]

		for s := m.cumFreq[i]; s < sum; s++ {
			m.symLut[s] = byte(i)
		}
	}

	m.cumFreq[256] = sum
	return m
}

// normalizeAnsFrequencies scales a histogram to sum exactly to
// ansScale, rounding every present symbol up to at least 1 occurrence
// and absorbing the rounding error on the most frequent symbol.
func normalizeAnsFrequencies(hist *[256]int, count int) [256]uint32 {
	var freq [256]uint32

	if count == 0 {
		return freq
	}

	best, bestCount := 0, -1
	sum := 0

	for i := 0; i < 256; i++ {
		if hist[i] == 0 {
			continue
		}

		f := (hist[i] * ansScale) / count

		if f == 0 {
			f = 1
		}

		freq[i] = uint32(f)
		sum += f

		if hist[i] > bestCount {
			bestCount = hist[i]
			best = i
		}
	}

	diff := ansScale - sum

	if diff != 0 {
		nv := int(freq[best]) + diff

		if nv < 1 {
			nv = 1
		}

		freq[best] = uint32(nv)
	}

	return freq
}

// ansEncode entropy-codes block with an order-0 static model, writing
// a self-describing stream: decoded length, the 256-entry frequency
// table and the rANS payload. Returns nil for an empty block.
func ansEncode(block []byte) []byte {
	if len(block) == 0 {
		return nil
	}

	var hist [256]int

	for _, b := range block {
		hist[b]++
	}

	freq := normalizeAnsFrequencies(&hist, len(block))
	m := newAnsModel(&freq)

	cap := len(block)*2 + 4096
	buf := make([]byte, cap)
	idx := cap
	x := uint32(ansRansL)

	for i := len(block) - 1; i >= 0; i-- {
		s := block[i]
		f := m.freq[s]
		start := m.cumFreq[s]
		xMax := ((ansRansL >> ansLogRange) << 8) * f

		for x >= xMax {
			idx--
			buf[idx] = byte(x)
			x >>= 8
		}

		x = ((x / f) << ansLogRange) + (x % f) + start
	}

	idx -= 4
	binary.BigEndian.PutUint32(buf[idx:], x)
	payload := buf[idx:]

	out := make([]byte, 4+2+1024+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(block)))

	for i := 0; i < 256; i++ {
		binary.BigEndian.PutUint16(out[4+2*i:], uint16(freq[i]))
	}

	copy(out[4+512:], payload)
	return out[:4+512+len(payload)]
}

// ansDecode reverses ansEncode, writing exactly n decoded bytes (the
// length recorded by the encoder) into a fresh slice.
func ansDecode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}

	if len(src) < 4+512+4 {
		return nil, errors.New("rolz: corrupt ANS stream, truncated header")
	}

	n := int(binary.BigEndian.Uint32(src))
	var freq [256]uint32
	sum := uint32(0)

	for i := 0; i < 256; i++ {
		freq[i] = uint32(binary.BigEndian.Uint16(src[4+2*i:]))
		sum += freq[i]
	}

	if sum != ansScale {
		return nil, errors.New("rolz: corrupt ANS stream, invalid frequency table")
	}

	m := newAnsModel(&freq)
	pos := 4 + 512
	x := binary.BigEndian.Uint32(src[pos:])
	pos += 4

	out := make([]byte, n)
	mask := uint32(ansScale - 1)

	for i := 0; i < n; i++ {
		slot := x & mask
		s := m.symLut[slot]
		out[i] = s
		f := m.freq[s]
		start := m.cumFreq[s]
		x = f*(x>>ansLogRange) + slot - start

		for x < ansRansL {
			if pos >= len(src) {
				return nil, errors.New("rolz: corrupt ANS stream, truncated payload")
			}

			x = (x << 8) | uint32(src[pos])
			pos++
		}
	}

	return out, nil
}
