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

// Package kanzicore implements the reversible byte-transform pipeline
// at the core of a Kanzi-style lossless compressor: a library of
// independent transforms (BWT, LZ family, ROLZ family, TEXT, EXE, ...)
// plus the Sequence/Factory machinery that chains them into a single
// plan and reverses that exact chain on decode.
//
// Entropy coding, bitstream framing and container/file formats are
// external collaborators; this package only depends on their abstract
// shapes where a transform must read or write a context value they
// produce (e.g. the name of the downstream entropy coder).
package kanzicore

import (
	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog"
)

// DataType tags the statistical shape of a block, set by a detector
// (classifier codec or explicit caller) and consumed by gating
// transforms downstream in a plan.
type DataType int

const (
	DTUndefined DataType = iota
	DTText
	DTMultimedia
	DTDNA
	DTEXE
	DTBin
	DTUTF8
	DTNumeric
	DTBase64
	DTSmallAlphabet
	// DTX86 is an X86-specific tag kept apart from DTEXE; the teacher's
	// DataType enum does not carry it, spec.md's does. No transform in
	// this module sets it: the EXE codec tags X86 and ARM64 blocks
	// alike as DTEXE.
	DTX86
)

func (d DataType) String() string {
	switch d {
	case DTUndefined:
		return "UNDEFINED"
	case DTText:
		return "TEXT"
	case DTMultimedia:
		return "MULTIMEDIA"
	case DTDNA:
		return "DNA"
	case DTEXE:
		return "EXE"
	case DTBin:
		return "BIN"
	case DTUTF8:
		return "UTF8"
	case DTNumeric:
		return "NUMERIC"
	case DTBase64:
		return "BASE64"
	case DTSmallAlphabet:
		return "SMALL_ALPHABET"
	case DTX86:
		return "X86"
	default:
		return "UNKNOWN"
	}
}

// Slice is a borrowed, mutable view over a shared byte buffer. Forward
// and inverse transforms consume Length bytes starting at Index and
// must advance Index past what they consumed or produced.
//
// Invariant: 0 <= Index <= Index+Length <= len(Buf).
type Slice struct {
	Buf    []byte
	Index  int
	Length int
}

// End returns the exclusive end offset of the slice's active window.
func (s *Slice) End() int {
	return s.Index + s.Length
}

// Bytes returns the active window of the slice.
func (s *Slice) Bytes() []byte {
	return s.Buf[s.Index : s.Index+s.Length]
}

// SameBuffer reports whether two slices alias the same backing array,
// the condition every transform must refuse on (the distinct-buffer
// invariant).
func SameBuffer(a, b *Slice) bool {
	if len(a.Buf) == 0 || len(b.Buf) == 0 {
		return false
	}

	return &a.Buf[0] == &b.Buf[0]
}

// Context carries the typed configuration and cross-stage signalling
// a plan's transforms share. It replaces the teacher's
// map[string]interface{} per spec.md's own design note: a typed
// config struct is the natural replacement for a map-of-any, which is
// an artefact of the source language.
type Context struct {
	// DataType is set by detectors and consumed by gating transforms;
	// the zero value DTUndefined means "not yet classified".
	DataType DataType

	// BSVersion selects among historical wire-format variants (2, 3, 4, ...).
	// Zero means "current".
	BSVersion int

	// BlockSize is the actual byte count of the block being processed,
	// used by several transforms to size hash tables up front.
	BlockSize int

	// Entropy names the downstream entropy coder ("NONE", "ANS0",
	// "HUFFMAN", "RANGE", "CM", ...). It changes the TEXT codec's wire
	// variant (see transform.TextCodec).
	Entropy string

	// Transform is the plan name this context was built for, e.g.
	// "BWT+MTFT+ZRLT".
	Transform string

	// PackOnlyDNA restricts the Alias codec's PACK variant to DNA input.
	PackOnlyDNA bool

	// SBRTMode selects which sort-by-rank variant transform.NewSBRTWithCtx
	// builds (transform.SBRTModeMTF/Rank/Timestamp). Zero means
	// "unset", read by NewSBRTWithCtx as MTF.
	SBRTMode int

	// Extra requests stronger/slower LZ or TEXT hashing.
	Extra bool

	// Jobs is a worker count carried for callers; no transform in this
	// library reads it. BWT's parallel inverse depends on Pool alone.
	Jobs int

	// Pool is the worker group used for BWT's parallel inverse chunk
	// dispatch. Nil means "run the chunks serially in this goroutine".
	Pool *errgroup.Group

	// Log is an optional structured logger for step tracing and
	// corruption diagnostics. A nil Log is treated as zerolog.Nop():
	// library consumers pay nothing unless they opt in.
	Log *zerolog.Logger
}

// Logger returns a usable logger, defaulting to a no-op one so
// callers never need a nil check before logging.
func (c *Context) Logger() *zerolog.Logger {
	if c == nil || c.Log == nil {
		nop := zerolog.Nop()
		return &nop
	}

	return c.Log
}

// Transform is the uniform contract every byte transform implements
// (spec.md §4.1). Forward reports false, with a nil error, to mean
// "refused: does not apply / would not compress" — refusal is
// ordinary control flow, never an error. Inverse reports a non-nil
// error for block-format corruption (spec.md §7 kind 2). Caller
// misuse does not panic: given in-place buffers, Forward refuses (some
// transforms also return an error) and Inverse returns an error; an
// oversized block is refused, and the factory returns an error for a
// bad plan.
type Transform interface {
	// Forward reads src.Length bytes from src.Buf[src.Index:], writes
	// the transformed form to dst.Buf[dst.Index:], and advances both
	// Index fields on success. Returns false (nil error) on refusal.
	Forward(src, dst *Slice) (bool, error)

	// Inverse is the symmetric reversal of a successful Forward call.
	Inverse(src, dst *Slice) (bool, error)

	// MaxEncodedLen returns an upper bound on Forward's output size
	// for an input of the given length.
	MaxEncodedLen(srcLen int) int
}
