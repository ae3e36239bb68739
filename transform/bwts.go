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

// BWTS is the bijective variant of the Burrows-Wheeler transform: no
// primary index is needed since every byte string is both a valid
// input and a valid output. Forward walks the Lyndon-word
// decomposition of the block's rotation order; inverse walks a
// last-to-first chain built from the output's byte histogram.
package transform

import (
	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
)

const bwtsMaxBlockSize = 1 << 30

// BWTS is the bijective Burrows-Wheeler transform.
type BWTS struct {
	sorter *SuffixSorter
	sa     []int32
	isa    []int32
}

// NewBWTS creates a new BWTS with no context.
func NewBWTS() (*BWTS, error) {
	return &BWTS{sorter: NewSuffixSorter()}, nil
}

// NewBWTSWithCtx creates a new BWTS bound to ctx. The context carries
// no BWTS-specific settings; the signature exists to satisfy the
// factory's uniform constructor shape.
func NewBWTSWithCtx(_ *kc.Context) (*BWTS, error) {
	return &BWTS{sorter: NewSuffixSorter()}, nil
}

// Forward computes the bijective BWT of src, writing it to dst.
func (t *BWTS) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, nil
	}

	count := src.Length

	if count > bwtsMaxBlockSize {
		return false, nil
	}

	if dst.Length < t.MaxEncodedLen(count) {
		return false, nil
	}

	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]

	if count < 2 {
		if count == 1 {
			dstBuf[0] = srcBuf[0]
		}

		src.Index += count
		dst.Index += count
		return true, nil
	}

	if cap(t.sa) < count {
		t.sa = make([]int32, count)
	}

	if cap(t.isa) < count {
		t.isa = make([]int32, count)
	}

	sa := t.sa[:count]
	isa := t.isa[:count]
	t.sorter.ComputeSuffixArray(srcBuf, sa)

	for i := range isa {
		isa[sa[i]] = int32(i)
	}

	min := isa[0]
	idxMin := int32(0)
	count32 := int32(count)

	for i := int32(1); i < count32 && min > 0; i++ {
		if isa[i] >= min {
			continue
		}

		refRank := t.moveLyndonWordHead(sa, isa, srcBuf, count32, idxMin, i-idxMin, min)

		for j := i - 1; j > idxMin; j-- {
			testRank := isa[j]
			startRank := testRank

			for testRank < count32-1 {
				nextRankStart := sa[testRank+1]

				if j > nextRankStart || srcBuf[j] != srcBuf[nextRankStart] || refRank < isa[nextRankStart+1] {
					break
				}

				sa[testRank] = nextRankStart
				isa[nextRankStart] = testRank
				testRank++
			}

			sa[testRank] = int32(j)
			isa[j] = testRank
			refRank = testRank

			if startRank == testRank {
				break
			}
		}

		min = isa[i]
		idxMin = i
	}

	min = count32

	for i := 0; i < count; i++ {
		if isa[i] >= min {
			dstBuf[isa[i]] = srcBuf[i-1]
			continue
		}

		if min < count32 {
			dstBuf[min] = srcBuf[i-1]
		}

		min = isa[i]
	}

	dstBuf[0] = srcBuf[count-1]

	src.Index += count
	dst.Index += count
	return true, nil
}

func (t *BWTS) moveLyndonWordHead(sa, isa []int32, data []byte, count, start, size, rank int32) int32 {
	end := start + size

	for rank+1 < count {
		nextStart0 := sa[rank+1]

		if nextStart0 <= end {
			break
		}

		nextStart := nextStart0
		k := int32(0)

		for k < size && nextStart < count && data[start+k] == data[nextStart] {
			k++
			nextStart++
		}

		if k == size && rank < isa[nextStart] {
			break
		}

		if k < size && nextStart < count && data[start+k] < data[nextStart] {
			break
		}

		sa[rank] = nextStart0
		isa[nextStart0] = rank
		rank++
	}

	sa[rank] = start
	isa[start] = rank
	return rank
}

// Inverse reverses Forward.
func (t *BWTS) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("bwts: input and output buffers must be distinct")
	}

	count := src.Length

	if count > bwtsMaxBlockSize {
		return false, errors.Errorf("bwts: block size %d exceeds max %d", count, bwtsMaxBlockSize)
	}

	if dst.Length < count {
		return false, errors.New("bwts: destination buffer too small")
	}

	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]

	if count < 2 {
		if count == 1 {
			dstBuf[0] = srcBuf[0]
		}

		src.Index += count
		dst.Index += count
		return true, nil
	}

	if cap(t.sa) < count {
		t.sa = make([]int32, count)
	}

	lf := t.sa[:count]
	var buckets [256]int32

	for i := 0; i < count; i++ {
		buckets[srcBuf[i]]++
	}

	sum := int32(0)

	for i := range &buckets {
		sum += buckets[i]
		buckets[i] = sum - buckets[i]
	}

	for i := 0; i < count; i++ {
		lf[i] = buckets[srcBuf[i]]
		buckets[srcBuf[i]]++
	}

	for i, j := 0, count-1; j >= 0; i++ {
		if lf[i] < 0 {
			continue
		}

		p := int32(i)

		for {
			dstBuf[j] = srcBuf[p]
			j--
			nxt := lf[p]
			lf[p] = -1
			p = nxt

			if lf[p] < 0 {
				break
			}
		}
	}

	src.Index += count
	dst.Index += count
	return true, nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *BWTS) MaxEncodedLen(srcLen int) int {
	return srcLen
}
