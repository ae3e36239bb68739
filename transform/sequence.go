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

// Sequence runs a 1-to-8 transform chain forward or backward. On
// Forward, a transform's refusal leaves the running buffer untouched
// and sets that step's skip bit; Inverse consults skipFlags to bypass
// the same steps. The caller is responsible for persisting skipFlags
// alongside the block and restoring it (SetSkipFlags) before Inverse.
package transform

import (
	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
)

const sequenceSkipMask = 0xFF

// Sequence chains 1 to 8 transforms into a single Transform.
type Sequence struct {
	transforms []kc.Transform
	skipFlags  byte
	ctx        *kc.Context
}

// NewSequence creates a Sequence running transforms in order, with no
// step tracing (equivalent to NewSequenceWithCtx(nil, transforms)).
func NewSequence(transforms []kc.Transform) (*Sequence, error) {
	return NewSequenceWithCtx(nil, transforms)
}

// NewSequenceWithCtx is NewSequence with a Context to log step
// boundaries against (see Context.Log).
func NewSequenceWithCtx(ctx *kc.Context, transforms []kc.Transform) (*Sequence, error) {
	if transforms == nil {
		return nil, errors.New("sequence: nil transforms")
	}

	if len(transforms) == 0 || len(transforms) > 8 {
		return nil, errors.New("sequence: only 1 to 8 transforms allowed")
	}

	return &Sequence{transforms: transforms, skipFlags: 0, ctx: ctx}, nil
}

// Forward runs every transform in order, swapping the running buffer
// between two equally-sized scratch buffers. A transform that refuses
// leaves the running buffer as the previous step left it and sets its
// bit in skipFlags.
func (s *Sequence) Forward(src, dst *kc.Slice) (bool, error) {
	s.skipFlags = sequenceSkipMask

	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("sequence: input and output buffers must be distinct")
	}

	required := s.MaxEncodedLen(src.Length)

	if dst.Length < required {
		return false, errors.Errorf("sequence: output buffer too small - size: %d, required: %d", dst.Length, required)
	}

	scratch := [2][]byte{make([]byte, required), make([]byte, required)}
	curBuf := src.Bytes()
	length := src.Length
	next := 0

	for i, t := range s.transforms {
		in := &kc.Slice{Buf: curBuf, Index: 0, Length: length}
		out := &kc.Slice{Buf: scratch[next], Index: 0, Length: len(scratch[next])}
		ok, err := t.Forward(in, out)

		if err != nil {
			s.ctx.Logger().Error().Int("step", i).Err(err).Msg("sequence: forward step errored")
			return false, err
		}

		if !ok {
			s.ctx.Logger().Debug().Int("step", i).Msg("sequence: step refused")
			continue
		}

		s.ctx.Logger().Debug().Int("step", i).Msg("sequence: step applied")
		s.skipFlags &^= 1 << uint(7-i)
		length = out.Index
		curBuf = scratch[next]
		next = 1 - next
	}

	copy(dst.Buf[dst.Index:], curBuf[:length])
	dst.Index += length
	src.Index += src.Length
	return true, nil
}

// Inverse reverses Forward, skipping steps flagged in skipFlags.
func (s *Sequence) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("sequence: input and output buffers must be distinct")
	}

	if s.skipFlags == sequenceSkipMask {
		copy(dst.Buf[dst.Index:], src.Bytes())
		dst.Index += src.Length
		src.Index += src.Length
		return true, nil
	}

	scratchSize := dst.Length
	scratch := [2][]byte{make([]byte, scratchSize), make([]byte, scratchSize)}
	curBuf := src.Bytes()
	length := src.Length
	next := 0

	for i := len(s.transforms) - 1; i >= 0; i-- {
		if s.skipFlags&(1<<uint(7-i)) != 0 {
			continue
		}

		in := &kc.Slice{Buf: curBuf, Index: 0, Length: length}
		out := &kc.Slice{Buf: scratch[next], Index: 0, Length: len(scratch[next])}
		ok, err := s.transforms[i].Inverse(in, out)

		if err != nil {
			s.ctx.Logger().Error().Int("step", i).Err(err).Msg("sequence: inverse step errored")
			return false, err
		}

		if !ok {
			err := errors.New("sequence: inverse transform step failed")
			s.ctx.Logger().Error().Int("step", i).Msg("sequence: inverse step failed")
			return false, err
		}

		s.ctx.Logger().Debug().Int("step", i).Msg("sequence: inverse step applied")
		length = out.Index
		curBuf = scratch[next]
		next = 1 - next
	}

	copy(dst.Buf[dst.Index:], curBuf[:length])
	dst.Index += length
	src.Index += src.Length
	return true, nil
}

// MaxEncodedLen returns the max size required across every step of
// the chain: each step's own worst-case growth, applied to the
// largest requirement seen so far.
func (s *Sequence) MaxEncodedLen(srcLen int) int {
	required := srcLen

	for _, t := range s.transforms {
		if r := t.MaxEncodedLen(required); r > required {
			required = r
		}
	}

	return required
}

// Len returns the number of transforms in the sequence.
func (s *Sequence) Len() int {
	return len(s.transforms)
}

// SkipFlags returns the flags set by the last Forward call, one bit
// per step (bit set means "skipped").
func (s *Sequence) SkipFlags() byte {
	return s.skipFlags
}

// SetSkipFlags restores skip flags ahead of an Inverse call, e.g.
// after reading them back from a block header.
func (s *Sequence) SetSkipFlags(flags byte) {
	s.skipFlags = flags
}
