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

// TextCodec is a one-pass dictionary codec: runs of lowercase text are
// hashed, matched against a static ~1024-word English dictionary plus
// a dynamic dictionary grown from the block itself, and replaced by a
// short reference. Two wire variants trade off how much they disturb
// the byte alphabet, chosen by the downstream entropy coder named in
// Context.Entropy: variant 1 (escape-token framed) when the coder is
// order-sensitive, variant 2 (high-bit framed) when it isn't.
package transform

import (
	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
	"github.com/corewave-labs/kanzicore/internal"
)

const (
	// LF is the line feed symbol.
	LF = byte(0x0A)
	// CR is the carriage return symbol.
	CR = byte(0x0D)

	tcThreshold1     = 128
	tcThreshold2     = tcThreshold1 * tcThreshold1
	tcThreshold3     = 64
	tcThreshold4     = tcThreshold3 * 128
	tcMaxDictSize    = 1 << 19
	tcMaxWordLength  = 31
	tcLogHashesSize  = 24
	tcMinBlockSize   = 1024
	tcMaxBlockSize   = 1 << 30
	tcEscapeToken1   = byte(0x0F)
	tcEscapeToken2   = byte(0x0E)
	tcMaskFlipCase   = 0x80
	tcMaskNotText    = 0x80
	tcMaskCRLF       = 0x40
	tcMaskXMLHTML    = 0x20
	tcMaskDT         = 0x0F
	tcMaskLength     = 0x0007FFFF
	tcHash1          = int32(2146121005)
	tcHash2          = int32(-2073254261)
)

type dictEntry struct {
	hash int32
	data int32
	ptr  []byte
}

var (
	tcStaticDictionary = [1024]dictEntry{}
	tcStaticDictWords  = createDictionary(tcDictEn1024, tcStaticDictionary[:], 1024, 0)
	tcDelimiterChars   = initDelimiterChars()
)

// TextCodec dispatches to the wire variant selected by ctx.Entropy.
type TextCodec struct {
	delegate kc.Transform
}

// NewTextCodec creates a new TextCodec with no context (variant 1).
func NewTextCodec() (*TextCodec, error) {
	d, err := newTextCodec1(nil)
	return &TextCodec{delegate: d}, err
}

// NewTextCodecWithCtx creates a new TextCodec bound to ctx, selecting
// variant 2 when ctx.Entropy names an order-insensitive coder.
func NewTextCodecWithCtx(ctx *kc.Context) (*TextCodec, error) {
	if ctx != nil && isOrderInsensitive(ctx.Entropy) {
		d, err := newTextCodec2(ctx)
		return &TextCodec{delegate: d}, err
	}

	d, err := newTextCodec1(ctx)
	return &TextCodec{delegate: d}, err
}

func isOrderInsensitive(entropy string) bool {
	switch entropy {
	case "HUFFMAN", "ANS0", "RANGE", "NONE":
		return true
	default:
		return false
	}
}

// Forward applies the function to src and writes the result to dst.
func (t *TextCodec) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if src.Length < tcMinBlockSize || src.Length > tcMaxBlockSize {
		return false, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("text: input and output buffers must be distinct")
	}

	return t.delegate.Forward(src, dst)
}

// Inverse reverses Forward.
func (t *TextCodec) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if src.Length > tcMaxBlockSize {
		return false, errors.New("text: block too large")
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("text: input and output buffers must be distinct")
	}

	return t.delegate.Inverse(src, dst)
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *TextCodec) MaxEncodedLen(srcLen int) int {
	return t.delegate.MaxEncodedLen(srcLen)
}

// computeTextStats analyzes block and returns the mode byte (see the
// tcMask* constants).
func computeTextStats(block []byte, freqs0 []int, strict bool) byte {
	if !strict && internal.DetectMagic(block) != internal.NoMagic {
		return tcMaskNotText
	}

	freqs1 := make([][256]int, 256)
	count := len(block)
	end4 := count & -4
	prv := byte(0)

	for i := 0; i < end4; i += 4 {
		cur0 := block[i]
		cur1 := block[i+1]
		cur2 := block[i+2]
		cur3 := block[i+3]
		freqs0[cur0]++
		freqs0[cur1]++
		freqs0[cur2]++
		freqs0[cur3]++
		freqs1[prv][cur0]++
		freqs1[cur0][cur1]++
		freqs1[cur1][cur2]++
		freqs1[cur2][cur3]++
		prv = cur3
	}

	for i := end4; i < count; i++ {
		cur := block[i]
		freqs0[cur]++
		freqs1[prv][cur]++
		prv = cur
	}

	nbTextChars := freqs0[CR] + freqs0[LF]
	nbASCII := 0

	for i := 0; i < 128; i++ {
		if isText(byte(i)) {
			nbTextChars += freqs0[i]
		}

		nbASCII += freqs0[i]
	}

	nbBinChars := count - nbASCII
	notText := false

	if nbBinChars > (count >> 2) {
		notText = true
	} else {
		notText = nbTextChars < (count / 4)

		if strict {
			notText = notText || ((freqs0[0] >= (count / 100)) || ((nbASCII / 95) < (count / 100)))
		} else {
			notText = notText || (freqs0[32] < (count / 50))
		}
	}

	res := byte(0)

	if notText {
		return res | detectTextType(freqs0, freqs1, count)
	}

	if nbBinChars <= count-count/10 {
		f1 := freqs0['<']
		f2 := freqs0['>']
		f3 := freqs1['&']['a'] + freqs1['&']['g'] + freqs1['&']['l'] + freqs1['&']['q']
		minFreq := (count - nbBinChars) >> 9

		if minFreq < 2 {
			minFreq = 2
		}

		if f1 >= minFreq && f2 >= minFreq && f3 > 0 {
			if f1 < f2 {
				if f1 >= f2-f2/100 {
					res |= tcMaskXMLHTML
				}
			} else if f2 < f1 {
				if f2 >= f1-f1/100 {
					res |= tcMaskXMLHTML
				}
			} else {
				res |= tcMaskXMLHTML
			}
		}
	}

	if freqs0[CR] != 0 && freqs0[CR] == freqs0[LF] {
		isCRLF := true

		for i := 0; i < 256; i++ {
			if i != int(LF) && freqs1[CR][i] != 0 {
				isCRLF = false
				break
			}

			if i != int(CR) && freqs1[i][LF] != 0 {
				isCRLF = false
				break
			}
		}

		if isCRLF {
			res |= tcMaskCRLF
		}
	}

	return res
}

func detectTextType(freqs0 []int, freqs [][256]int, count int) byte {
	if dt := internal.DetectSimpleType(count, freqs0); dt != kc.DTUndefined {
		return tcMaskNotText | byte(dt)
	}

	sum := freqs0[0xC0] + freqs0[0xC1]

	for _, f := range freqs0[0xF5:] {
		sum += f
	}

	if sum != 0 {
		return tcMaskNotText
	}

	sum2 := 0

	for i := 0; i < 256; i++ {
		if i < 0xA0 || i > 0xBF {
			sum += freqs[0xE0][i]
		}

		if i < 0x80 || i > 0x9F {
			sum += freqs[0xED][i]
		}

		if i < 0x90 || i > 0xBF {
			sum += freqs[0xF0][i]
		}

		if i < 0x80 || i > 0x8F {
			sum += freqs[0xF4][i]
		}

		if i < 0x80 || i > 0xBF {
			for j := 0xC2; j <= 0xDF; j++ {
				sum += freqs[j][i]
			}

			for j := 0xE1; j <= 0xEC; j++ {
				sum += freqs[j][i]
			}

			sum += freqs[0xF1][i]
			sum += freqs[0xF2][i]
			sum += freqs[0xF3][i]
			sum += freqs[0xEE][i]
			sum += freqs[0xEF][i]
		} else {
			sum2 += freqs0[i]
		}

		if sum != 0 {
			return tcMaskNotText
		}
	}

	if sum2 >= count/8 {
		return tcMaskNotText | byte(kc.DTUTF8)
	}

	return tcMaskNotText
}

func sameWords(buf1, buf2 []byte) bool {
	for i := range buf1 {
		if buf1[i] != buf2[i] {
			return false
		}
	}

	return true
}

func initDelimiterChars() []bool {
	var res [256]bool

	for i := range &res {
		if i >= ' ' && i <= '/' {
			res[i] = true
			continue
		}

		if i >= ':' && i <= '?' {
			res[i] = true
			continue
		}

		switch i {
		case '\n', '\r', '\t', '_', '|', '{', '}', '[', ']':
			res[i] = true
		}
	}

	return res[:]
}

func createDictionary(words []byte, dict []dictEntry, maxWords, startWord int) int {
	anchor := 0
	h := tcHash1
	nbWords := startWord
	n := 0

	for i := range words {
		if !isText(words[i]) {
			continue
		}

		words[n] = words[i]
		n++
	}

	words = words[0:n]

	for i := 0; i < len(words) && nbWords < maxWords; i++ {
		if isUpperCase(words[i]) {
			if i > anchor {
				dict[nbWords] = dictEntry{ptr: words[anchor:], hash: h, data: int32(((i - anchor) << 24) | nbWords)}
				nbWords++
				anchor = i
				h = tcHash1
			}

			words[i] ^= 0x20
		}

		h = h*tcHash1 ^ int32(words[i])*tcHash2
	}

	if nbWords < maxWords {
		dict[nbWords] = dictEntry{ptr: words[anchor:], hash: h, data: int32(((len(words) - anchor) << 24) | nbWords)}
		nbWords++
	}

	return nbWords
}

func isText(val byte) bool {
	return isLowerCase(val | 0x20)
}

func isLowerCase(val byte) bool {
	return val >= 'a' && val <= 'z'
}

func isUpperCase(val byte) bool {
	return val >= 'A' && val <= 'Z'
}

func isDelimiter(val byte) bool {
	return tcDelimiterChars[val]
}
