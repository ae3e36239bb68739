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

// ROLZCodec is a reduced-offset LZ: instead of an arbitrary
// backward distance, a match references one of the logPosChecks most
// recent positions that share the current 2-byte context, by a small
// index rather than a full offset. ROLZCodec dispatches between two
// entropy back ends named by spec.md: Variant 1 ("ANS"), which routes
// its literal/token/match streams through an order-0 rANS coder, and
// Variant 2 ("CM"), a small adaptive binary range coder operating
// directly on the bitstream, selected when ctx.Transform names ROLZX.
package transform

import (
	"encoding/binary"

	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
)

const (
	rolzHashSize      = 1 << 16
	rolzHashSeed      = int32(200002979)
	rolzMinMatch      = 4
	rolzMaxMatch      = 65535 + rolzMinMatch
	rolzMinBlockSize  = 64
	rolzMaxBlockSize  = 1 << 30
	rolzLogPosChecks1 = 4
	rolzLogPosChecks2 = 5
)

// ROLZCodec dispatches to the ANS variant (default) or the CM variant
// (ctx.Transform names ROLZX).
type ROLZCodec struct {
	delegate kc.Transform
	ctx      *kc.Context
}

// NewROLZCodec creates a new ROLZCodec with no context (ANS variant).
func NewROLZCodec() (*ROLZCodec, error) {
	d, err := newRolzCodec1(nil)
	return &ROLZCodec{delegate: d}, err
}

// NewROLZCodecWithCtx creates a new ROLZCodec bound to ctx.
func NewROLZCodecWithCtx(ctx *kc.Context) (*ROLZCodec, error) {
	if ctx != nil && ctx.Transform == "ROLZX" {
		d, err := newRolzCodec2(ctx)
		return &ROLZCodec{delegate: d, ctx: ctx}, err
	}

	d, err := newRolzCodec1(ctx)
	return &ROLZCodec{delegate: d, ctx: ctx}, err
}

// Forward applies the function to src and writes the result to dst.
func (t *ROLZCodec) Forward(src, dst *kc.Slice) (bool, error) {
	return t.delegate.Forward(src, dst)
}

// Inverse reverses Forward.
func (t *ROLZCodec) Inverse(src, dst *kc.Slice) (bool, error) {
	ok, err := t.delegate.Inverse(src, dst)

	if err != nil {
		t.ctx.Logger().Error().Err(err).Msg("rolz: inverse corrupt stream")
	}

	return ok, err
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *ROLZCodec) MaxEncodedLen(srcLen int) int {
	return t.delegate.MaxEncodedLen(srcLen)
}

func rolzLogPosChecks(ctx *kc.Context) uint {
	if ctx != nil && ctx.Extra {
		return rolzLogPosChecks2
	}

	return rolzLogPosChecks1
}

// rolzMatchFinder maintains, per 2-byte context, the logPosChecks most
// recent positions sharing that context. Both Forward and Inverse
// drive it through the same sequence of insert calls so the decoder's
// view of "candidate position for slot N" matches the encoder's.
type rolzMatchFinder struct {
	logPosChecks uint
	posChecks    int
	minMatch     int
	buckets      [][]int32
}

func newRolzMatchFinder(logPosChecks uint, minMatch int) *rolzMatchFinder {
	return &rolzMatchFinder{
		logPosChecks: logPosChecks,
		posChecks:    1 << logPosChecks,
		minMatch:     minMatch,
		buckets:      make([][]int32, rolzHashSize),
	}
}

func (m *rolzMatchFinder) key(buf []byte, i int) int32 {
	h := (int32(buf[i-2]) << 8) | int32(buf[i-1])
	h = (h * rolzHashSeed)
	return (h >> 8) & (rolzHashSize - 1)
}

func (m *rolzMatchFinder) bucket(buf []byte, i int) []int32 {
	return m.buckets[m.key(buf, i)]
}

func (m *rolzMatchFinder) insert(buf []byte, i int) {
	k := m.key(buf, i)
	b := m.buckets[k]
	b = append(b, 0)
	copy(b[1:], b)
	b[0] = int32(i)

	if len(b) > m.posChecks {
		b = b[:m.posChecks]
	}

	m.buckets[k] = b
}

// findMatch returns the longest match against a candidate in the
// bucket for position i's context, and the slot (0 = most recent) it
// came from.
func (m *rolzMatchFinder) findMatch(buf []byte, i int) (int, int) {
	bucket := m.bucket(buf, i)
	maxLen := len(buf) - i

	if maxLen > rolzMaxMatch {
		maxLen = rolzMaxMatch
	}

	bestLen, bestSlot := 0, -1

	for slot, p := range bucket {
		pos := int(p)
		l := 0

		for l < maxLen && buf[pos+l] == buf[i+l] {
			l++
		}

		if l > bestLen {
			bestLen = l
			bestSlot = slot
		}
	}

	return bestLen, bestSlot
}

func rolzMinMatchFor(ctx *kc.Context) int {
	if ctx == nil {
		return rolzMinMatch
	}

	switch ctx.DataType {
	case kc.DTEXE:
		return 3
	case kc.DTDNA:
		return 7
	case kc.DTMultimedia:
		return 4
	default:
		return rolzMinMatch
	}
}

// appendVarint/readVarint pack a non-negative int as 7-bit groups with
// the continuation flag in each byte's top bit, the same scheme the
// CM variant's emitLengthBits uses bit by bit.
func appendVarint(buf []byte, v int) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7

		if v != 0 {
			b |= 0x80
		}

		buf = append(buf, b)

		if v == 0 {
			break
		}
	}

	return buf
}

func readVarint(buf []byte, pos int) (int, int, error) {
	v := 0
	shift := uint(0)

	for {
		if pos >= len(buf) {
			return 0, 0, errors.New("rolz: corrupt stream, truncated varint")
		}

		b := buf[pos]
		pos++
		v |= int(b&0x7F) << shift

		if b&0x80 == 0 {
			break
		}

		shift += 7
	}

	return v, pos, nil
}

// rolzCodec1 is the ANS variant: match finding feeds three streams
// (control tokens, literal bytes, match length/slot pairs), each
// entropy-coded independently by the order-0 rANS coder in ans.go.
type rolzCodec1 struct {
	ctx          *kc.Context
	logPosChecks uint
	minMatch     int
}

func newRolzCodec1(ctx *kc.Context) (*rolzCodec1, error) {
	return &rolzCodec1{ctx: ctx, logPosChecks: rolzLogPosChecks(ctx), minMatch: rolzMinMatchFor(ctx)}, nil
}

func (t *rolzCodec1) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length < rolzMinBlockSize || src.Length > rolzMaxBlockSize {
		return false, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("rolz: input and output buffers must be distinct")
	}

	srcBuf := src.Bytes()
	n := len(srcBuf)
	mf := newRolzMatchFinder(t.logPosChecks, t.minMatch)

	var tokens, literals, matches []byte
	i := 0

	for i < n {
		bestLen, bestSlot := 0, -1

		if i >= 2 {
			bestLen, bestSlot = mf.findMatch(srcBuf, i)
		}

		if bestLen >= t.minMatch {
			tokens = append(tokens, 1)
			matches = appendVarint(matches, bestLen-t.minMatch)
			matches = append(matches, byte(bestSlot))

			for k := 0; k < bestLen; k++ {
				mf.insert(srcBuf, i+k)
			}

			i += bestLen
		} else {
			tokens = append(tokens, 0)
			literals = append(literals, srcBuf[i])

			if i >= 2 {
				mf.insert(srcBuf, i)
			}

			i++
		}
	}

	tokensEnc := ansEncode(tokens)
	literalsEnc := ansEncode(literals)
	matchesEnc := ansEncode(matches)

	flags := byte(t.logPosChecks<<4) | byte(t.minMatch&0x0F)
	total := 4 + 1 + 3*4 + len(tokensEnc) + len(literalsEnc) + len(matchesEnc)

	if total >= n || total > dst.Length {
		return false, nil
	}

	out := dst.Buf[dst.Index:]
	binary.BigEndian.PutUint32(out, uint32(n))
	out[4] = flags
	idx := 5

	for _, enc := range [][]byte{tokensEnc, literalsEnc, matchesEnc} {
		binary.BigEndian.PutUint32(out[idx:], uint32(len(enc)))
		idx += 4
		copy(out[idx:], enc)
		idx += len(enc)
	}

	dst.Index += idx
	src.Index += n
	return true, nil
}

func (t *rolzCodec1) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	srcBuf := src.Bytes()

	if len(srcBuf) < 5+12 {
		return false, errors.New("rolz: corrupt stream, truncated header")
	}

	n := int(binary.BigEndian.Uint32(srcBuf))
	flags := srcBuf[4]
	logPosChecks := uint(flags >> 4)
	minMatch := int(flags & 0x0F)

	if n > dst.Length {
		return false, errors.New("rolz: corrupt stream, decoded size exceeds buffer")
	}

	idx := 5
	streams := make([][]byte, 3)

	for s := 0; s < 3; s++ {
		if idx+4 > len(srcBuf) {
			return false, errors.New("rolz: corrupt stream, truncated stream header")
		}

		l := int(binary.BigEndian.Uint32(srcBuf[idx:]))
		idx += 4

		if idx+l > len(srcBuf) {
			return false, errors.New("rolz: corrupt stream, truncated stream payload")
		}

		streams[s] = srcBuf[idx : idx+l]
		idx += l
	}

	tokens, err := ansDecode(streams[0])

	if err != nil {
		return false, err
	}

	literals, err := ansDecode(streams[1])

	if err != nil {
		return false, err
	}

	matches, err := ansDecode(streams[2])

	if err != nil {
		return false, err
	}

	mf := newRolzMatchFinder(logPosChecks, minMatch)
	out := dst.Buf[dst.Index : dst.Index+n]
	litPos, matchPos := 0, 0
	i := 0

	for _, tok := range tokens {
		if i >= n {
			break
		}

		if tok == 0 {
			if litPos >= len(literals) {
				return false, errors.New("rolz: corrupt stream, literal stream exhausted")
			}

			out[i] = literals[litPos]
			litPos++

			if i >= 2 {
				mf.insert(out, i)
			}

			i++
			continue
		}

		length, next, err := readVarint(matches, matchPos)

		if err != nil {
			return false, err
		}

		matchPos = next

		if matchPos >= len(matches) {
			return false, errors.New("rolz: corrupt stream, truncated match slot")
		}

		slot := int(matches[matchPos])
		matchPos++
		length += minMatch

		if i < 2 {
			return false, errors.New("rolz: corrupt stream, match before context established")
		}

		bucket := mf.bucket(out, i)

		if slot >= len(bucket) {
			return false, errors.New("rolz: corrupt stream, invalid match slot")
		}

		pos := int(bucket[slot])

		if pos+length > i || i+length > n {
			return false, errors.New("rolz: corrupt stream, match out of range")
		}

		for k := 0; k < length; k++ {
			out[i+k] = out[pos+k]
			mf.insert(out, i+k)
		}

		i += length
	}

	if i != n {
		return false, errors.New("rolz: corrupt stream, decoded length mismatch")
	}

	dst.Index += n
	src.Index += len(srcBuf)
	return true, nil
}

func (t *rolzCodec1) MaxEncodedLen(srcLen int) int {
	if srcLen <= 512 {
		return srcLen + 64
	}

	return srcLen + srcLen/8 + 4096
}

// rolzCodec2 is the CM variant: match finding feeds a single adaptive
// binary range coder directly, using two probability contexts (a
// literal/match flag plus an 8-bit literal tree, both indexed by the
// previous decoded byte, per spec.md's "(litOrMatchContext,
// previousByte, bitPosition)" description) instead of three separate
// streams.
type rolzCodec2 struct {
	logPosChecks uint
	minMatch     int
}

func newRolzCodec2(ctx *kc.Context) (*rolzCodec2, error) {
	return &rolzCodec2{logPosChecks: rolzLogPosChecks(ctx), minMatch: rolzMinMatchFor(ctx)}, nil
}

type rolzProbs struct {
	flag [256]uint16
	lit  [256][256]uint16
	len  [256]uint16
	idx  [32]uint16
}

func newRolzProbs() *rolzProbs {
	p := &rolzProbs{}

	for i := range p.flag {
		p.flag[i] = rcProbInit
	}

	for i := range p.lit {
		for j := range p.lit[i] {
			p.lit[i][j] = rcProbInit
		}
	}

	for i := range p.len {
		p.len[i] = rcProbInit
	}

	for i := range p.idx {
		p.idx[i] = rcProbInit
	}

	return p
}

func (t *rolzCodec2) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length < rolzMinBlockSize || src.Length > rolzMaxBlockSize {
		return false, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("rolz: input and output buffers must be distinct")
	}

	srcBuf := src.Bytes()
	n := len(srcBuf)
	mf := newRolzMatchFinder(t.logPosChecks, t.minMatch)
	enc := newRcEncoder()
	probs := newRolzProbs()
	prevByte := byte(0)
	i := 0

	for i < n {
		if i >= 2 {
			bestLen, bestSlot := mf.findMatch(srcBuf, i)

			if bestLen >= t.minMatch {
				enc.encodeBit(&probs.flag[prevByte], 1)
				emitLengthBits(enc, probs.len[:], bestLen-t.minMatch)
				bitTreeEncode(enc, probs.idx[:], int(t.logPosChecks), bestSlot)

				for k := 0; k < bestLen; k++ {
					mf.insert(srcBuf, i+k)
				}

				prevByte = srcBuf[i+bestLen-1]
				i += bestLen
				continue
			}
		}

		enc.encodeBit(&probs.flag[prevByte], 0)
		bitTreeEncode(enc, probs.lit[prevByte][:], 8, int(srcBuf[i]))

		if i >= 2 {
			mf.insert(srcBuf, i)
		}

		prevByte = srcBuf[i]
		i++
	}

	payload := enc.finish()
	total := 4 + len(payload)

	if total >= n || total > dst.Length {
		return false, nil
	}

	out := dst.Buf[dst.Index:]
	binary.BigEndian.PutUint32(out, uint32(n))
	copy(out[4:], payload)
	dst.Index += total
	src.Index += n
	return true, nil
}

func (t *rolzCodec2) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	srcBuf := src.Bytes()

	if len(srcBuf) < 4 {
		return false, errors.New("rolz: corrupt stream, truncated header")
	}

	n := int(binary.BigEndian.Uint32(srcBuf))

	if n > dst.Length {
		return false, errors.New("rolz: corrupt stream, decoded size exceeds buffer")
	}

	dec := newRcDecoder(srcBuf[4:])
	probs := newRolzProbs()
	mf := newRolzMatchFinder(t.logPosChecks, t.minMatch)
	out := dst.Buf[dst.Index : dst.Index+n]
	prevByte := byte(0)
	i := 0

	for i < n {
		flag := dec.decodeBit(&probs.flag[prevByte])

		if flag == 1 {
			if i < 2 {
				return false, errors.New("rolz: corrupt stream, match before context established")
			}

			length := readLengthBits(dec, probs.len[:]) + t.minMatch
			slot := bitTreeDecode(dec, probs.idx[:], int(t.logPosChecks))
			bucket := mf.bucket(out, i)

			if slot >= len(bucket) {
				return false, errors.New("rolz: corrupt stream, invalid match slot")
			}

			pos := int(bucket[slot])

			if pos+length > i || i+length > n {
				return false, errors.New("rolz: corrupt stream, match out of range")
			}

			for k := 0; k < length; k++ {
				out[i+k] = out[pos+k]
				mf.insert(out, i+k)
			}

			prevByte = out[i+length-1]
			i += length
			continue
		}

		b := bitTreeDecode(dec, probs.lit[prevByte][:], 8)
		out[i] = byte(b)

		if i >= 2 {
			mf.insert(out, i)
		}

		prevByte = out[i]
		i++
	}

	dst.Index += n
	src.Index += len(srcBuf)
	return true, nil
}

func (t *rolzCodec2) MaxEncodedLen(srcLen int) int {
	if srcLen <= 16384 {
		return srcLen + 1024
	}

	return srcLen + srcLen/32
}
