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

// BWT computes the Burrows-Wheeler transform of a block with no
// sentinel byte: the forward direction sorts the block's cyclic
// rotations and emits the preceding byte of each; the inverse walks
// the LF chain recovered from the output's byte histogram. Large
// blocks split the chain into up to 8 independently walkable chunks,
// one primary index each, dispatched to a worker pool.
package transform

import (
	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
)

const (
	bwtMaxBlockSize = 1 << 30
	bwtNbChunks     = 8
)

// GetBWTChunks returns the number of primary indexes a block of size
// size is partitioned into: 1 below 8 MiB, otherwise one per 8 MiB of
// block, capped at 8.
func GetBWTChunks(size int) int {
	if size < (1 << 23) {
		return 1
	}

	v := (size + (1 << 22)) >> 23

	if v > bwtNbChunks {
		v = bwtNbChunks
	}

	return v
}

// BWT is the Burrows-Wheeler transform.
type BWT struct {
	ctx            *kc.Context
	sorter         *SuffixSorter
	sa             []int32
	invSA          []int32
	lf             []int32
	primaryIndexes [bwtNbChunks]uint32
}

// NewBWT creates a new BWT with no context.
func NewBWT() (*BWT, error) {
	return &BWT{sorter: NewSuffixSorter()}, nil
}

// NewBWTWithCtx creates a new BWT bound to ctx. ctx.Pool, when set,
// drives the parallel chunked inverse for blocks split into multiple
// chunks.
func NewBWTWithCtx(ctx *kc.Context) (*BWT, error) {
	return &BWT{ctx: ctx, sorter: NewSuffixSorter()}, nil
}

// PrimaryIndex returns the n-th chunk's primary index.
func (t *BWT) PrimaryIndex(n int) uint32 {
	if n < 0 || n >= bwtNbChunks {
		return 0
	}

	return t.primaryIndexes[n]
}

// SetPrimaryIndex sets the n-th chunk's primary index, as read back
// from a BWTBlockCodec header before calling Inverse.
func (t *BWT) SetPrimaryIndex(n int, primaryIndex uint32) bool {
	if n < 0 || n >= bwtNbChunks {
		return false
	}

	t.primaryIndexes[n] = primaryIndex
	return true
}

// Forward computes the BWT of src, writing it to dst. Block size is
// bounded by bwtMaxBlockSize; the suffix array and its inverse are
// reused across calls to amortize allocation.
func (t *BWT) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, nil
	}

	n := src.Length

	if n > bwtMaxBlockSize {
		return false, nil
	}

	if dst.Length < t.MaxEncodedLen(n) {
		return false, nil
	}

	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]

	if cap(t.sa) < n {
		t.sa = make([]int32, n)
	}

	if cap(t.invSA) < n {
		t.invSA = make([]int32, n)
	}

	sa := t.sa[:n]
	invSA := t.invSA[:n]
	t.sorter.ComputeSuffixArray(srcBuf, sa)

	for i := 0; i < n; i++ {
		p := int(sa[i])

		if p == 0 {
			dstBuf[i] = srcBuf[n-1]
		} else {
			dstBuf[i] = srcBuf[p-1]
		}

		invSA[sa[i]] = int32(i)
	}

	chunks := GetBWTChunks(n)
	step := (n + chunks - 1) / chunks

	for c := 0; c < chunks; c++ {
		t.primaryIndexes[c] = uint32(invSA[c*step])
	}

	for c := chunks; c < bwtNbChunks; c++ {
		t.primaryIndexes[c] = 0
	}

	src.Index += n
	dst.Index += n
	return true, nil
}

// Inverse reverses Forward, given the primary indexes previously set
// via SetPrimaryIndex.
func (t *BWT) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	n := src.Length

	if kc.SameBuffer(src, dst) {
		return false, errors.New("bwt: input and output buffers must be distinct")
	}

	if dst.Length < n {
		return false, errors.New("bwt: destination buffer too small")
	}

	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]

	chunks := GetBWTChunks(n)
	step := (n + chunks - 1) / chunks

	for c := 0; c < chunks; c++ {
		if int(t.primaryIndexes[c]) >= n {
			return false, errors.Errorf("bwt: corrupt stream, primary index %d out of range", c)
		}
	}

	var buckets [256]int32

	for i := 0; i < n; i++ {
		buckets[srcBuf[i]]++
	}

	sum := int32(0)

	for c := 0; c < 256; c++ {
		buckets[c], sum = sum, sum+buckets[c]
	}

	if cap(t.lf) < n {
		t.lf = make([]int32, n)
	}

	lf := t.lf[:n]

	for i := 0; i < n; i++ {
		c := srcBuf[i]
		lf[i] = buckets[c]
		buckets[c]++
	}

	decodeSegment := func(seg int) {
		segStart := seg * step
		segLen := step

		if seg == chunks-1 {
			segLen = n - segStart
		}

		row := int32(t.primaryIndexes[(seg+1)%chunks])
		pos := segStart + segLen - 1

		for k := 0; k < segLen; k++ {
			dstBuf[pos] = srcBuf[row]
			row = lf[row]
			pos--
		}
	}

	if chunks > 1 && t.ctx != nil && t.ctx.Pool != nil {
		g := t.ctx.Pool

		for seg := 0; seg < chunks; seg++ {
			seg := seg
			g.Go(func() error {
				decodeSegment(seg)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return false, err
		}
	} else {
		for seg := 0; seg < chunks; seg++ {
			decodeSegment(seg)
		}
	}

	src.Index += n
	dst.Index += n
	return true, nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *BWT) MaxEncodedLen(srcLen int) int {
	return srcLen
}
