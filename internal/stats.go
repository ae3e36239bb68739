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

// Package internal holds support tables and heuristics shared by the
// byte transforms: fast integer log2, order-0/order-1 histograms,
// simple-type classification and a squash/stretch pair used by the
// ROLZ codec's binary arithmetic coder.
package internal

import (
	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
)

var (
	// log2Table holds int(log2(x)) for x in [1..256], stored at index x-1.
	log2Table = [...]uint32{
		0, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 3, 3, 3, 3, 4,
		4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 5,
		5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
		5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 6,
		6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
		6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
		6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
		6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 7,
		7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
		7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
		7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
		7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
		7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
		7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
		7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
		7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 8,
	}

	// log2x4096 holds 4096*log2(x) for x in [0..256).
	log2x4096 = [...]uint32{
		0, 0, 4096, 6492, 8192, 9511, 10588, 11499, 12288, 12984,
		13607, 14170, 14684, 15157, 15595, 16003, 16384, 16742, 17080, 17400,
		17703, 17991, 18266, 18529, 18780, 19021, 19253, 19476, 19691, 19898,
		20099, 20292, 20480, 20662, 20838, 21010, 21176, 21338, 21496, 21649,
		21799, 21945, 22087, 22226, 22362, 22495, 22625, 22752, 22876, 22998,
		23117, 23234, 23349, 23462, 23572, 23680, 23787, 23892, 23994, 24095,
		24195, 24292, 24388, 24483, 24576, 24668, 24758, 24847, 24934, 25021,
		25106, 25189, 25272, 25354, 25434, 25513, 25592, 25669, 25745, 25820,
		25895, 25968, 26041, 26112, 26183, 26253, 26322, 26390, 26458, 26525,
		26591, 26656, 26721, 26784, 26848, 26910, 26972, 27033, 27094, 27154,
		27213, 27272, 27330, 27388, 27445, 27502, 27558, 27613, 27668, 27722,
		27776, 27830, 27883, 27935, 27988, 28039, 28090, 28141, 28191, 28241,
		28291, 28340, 28388, 28437, 28484, 28532, 28579, 28626, 28672, 28718,
		28764, 28809, 28854, 28898, 28943, 28987, 29030, 29074, 29117, 29159,
		29202, 29244, 29285, 29327, 29368, 29409, 29450, 29490, 29530, 29570,
		29609, 29649, 29688, 29726, 29765, 29803, 29841, 29879, 29916, 29954,
		29991, 30027, 30064, 30100, 30137, 30172, 30208, 30244, 30279, 30314,
		30349, 30384, 30418, 30452, 30486, 30520, 30554, 30587, 30621, 30654,
		30687, 30719, 30752, 30784, 30817, 30849, 30880, 30912, 30944, 30975,
		31006, 31037, 31068, 31099, 31129, 31160, 31190, 31220, 31250, 31280,
		31309, 31339, 31368, 31397, 31426, 31455, 31484, 31513, 31541, 31569,
		31598, 31626, 31654, 31681, 31709, 31737, 31764, 31791, 31818, 31846,
		31872, 31899, 31926, 31952, 31979, 32005, 32031, 32058, 32084, 32109,
		32135, 32161, 32186, 32212, 32237, 32262, 32287, 32312, 32337, 32362,
		32387, 32411, 32436, 32460, 32484, 32508, 32533, 32557, 32580, 32604,
		32628, 32651, 32675, 32698, 32722, 32745, 32768,
	}

	// invExp is 65536/(1+exp(-alpha*x)) with alpha ~= 0.54, used to build Squash.
	invExp = [33]int{
		0, 8, 22, 47, 88, 160, 283, 492,
		848, 1451, 2459, 4117, 6766, 10819, 16608, 24127,
		32768, 41409, 48928, 54717, 58770, 61419, 63077, 64085,
		64688, 65044, 65253, 65376, 65448, 65489, 65514, 65528,
		65536,
	}

	base64Symbols  = []byte(`ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/`)
	numericSymbols = []byte(`0123456789+-*/=,.:; `)
	dnaSymbols     = []byte(`acgntuACGNTU"`)

	// Squash is p = 1/(1+exp(-d)), d scaled by 8 bits, p scaled by 12 bits.
	squashTable [4096]int

	// Stretch is the inverse of Squash.
	stretchTable [4096]int
)

func init() {
	for x := -2047; x <= 2047; x++ {
		w := x & 127
		y := (x >> 7) + 16
		squashTable[x+2047] = (invExp[y]*(128-w) + invExp[y+1]*w) >> 11
	}

	squashTable[4095] = 4095
	pi := 0

	for x := -2047; x <= 2047; x++ {
		i := Squash(x)

		for pi <= i {
			stretchTable[pi] = x
			pi++
		}
	}

	stretchTable[4095] = 2047
}

// Squash returns p = 1/(1+exp(-d)), used by the ROLZ CM binary coder.
func Squash(d int) int {
	if d >= 2048 {
		return 4095
	}

	if d <= -2048 {
		return 0
	}

	return squashTable[d+2047]
}

// Stretch is the inverse of Squash.
func Stretch(p int) int {
	return stretchTable[p]
}

// Log2 returns a fast, integer-rounded value of log2(x). x must be non-zero.
func Log2(x uint32) (uint32, error) {
	if x == 0 {
		return 0, errors.New("internal: cannot compute log2 of zero")
	}

	return Log2NoCheck(x), nil
}

// Log2NoCheck is Log2 without the zero check.
func Log2NoCheck(x uint32) uint32 {
	var res uint32

	if x >= 1<<16 {
		x >>= 16
		res = 16
	}

	if x >= 1<<8 {
		x >>= 8
		res += 8
	}

	return res + log2Table[x-1]
}

// Log2ScaledBy1024 returns 1024*log2(x), accurate to within ~0.1%.
func Log2ScaledBy1024(x uint32) (uint32, error) {
	if x == 0 {
		return 0, errors.New("internal: cannot compute log2 of zero")
	}

	if x < 256 {
		return (log2x4096[x] + 2) >> 2, nil
	}

	log := Log2NoCheck(x)

	if x&(x-1) == 0 {
		return log << 10, nil
	}

	return ((log - 7) * 1024) + ((log2x4096[x>>(log-7)] + 2) >> 2), nil
}

// ComputeFirstOrderEntropy1024 computes the order-0 entropy of a block,
// scaled by 1024, from histo (which must have capacity >= 256), the
// block's order-0 frequencies as computed by the caller.
func ComputeFirstOrderEntropy1024(blockLen int, histo []int) int {
	if blockLen == 0 {
		return 0
	}

	sum := uint64(0)
	logLength1024, _ := Log2ScaledBy1024(uint32(blockLen))

	for i := 0; i < 256; i++ {
		if histo[i] == 0 {
			continue
		}

		log1024, _ := Log2ScaledBy1024(uint32(histo[i]))
		sum += (uint64(histo[i]) * uint64(logLength1024-log1024)) >> 3
	}

	return int(sum / uint64(blockLen))
}

// ComputeHistogram fills freqs with the order-0 or order-1 histogram of
// block. When withTotal is set, an order-0 histogram stores the block
// length at index 256, and an order-1 histogram uses 257-wide rows,
// each keeping its row total at index 256.
func ComputeHistogram(block []byte, freqs []int, isOrder0, withTotal bool) {
	if isOrder0 {
		if withTotal {
			freqs[256] = len(block)
		}

		end16 := len(block) & -16

		for i := 0; i < end16; i += 16 {
			d := block[i : i+16]

			for _, b := range d {
				freqs[b]++
			}
		}

		for i := end16; i < len(block); i++ {
			freqs[block[i]]++
		}

		return
	}

	// Order 1.
	length := len(block)
	quarter := length >> 2
	n0, n1, n2, n3 := 0, quarter, 2*quarter, 3*quarter

	if withTotal {
		if length < 32 {
			prv := uint(0)

			for i := 0; i < length; i++ {
				freqs[prv+uint(block[i])]++
				freqs[prv+256]++
				prv = 257 * uint(block[i])
			}

			return
		}

		prv0, prv1, prv2, prv3 := uint(0), 257*uint(block[n1-1]), 257*uint(block[n2-1]), 257*uint(block[n3-1])

		for n0 < quarter {
			cur0, cur1, cur2, cur3 := uint(block[n0]), uint(block[n1]), uint(block[n2]), uint(block[n3])
			freqs[prv0+cur0]++
			freqs[prv0+256]++
			freqs[prv1+cur1]++
			freqs[prv1+256]++
			freqs[prv2+cur2]++
			freqs[prv2+256]++
			freqs[prv3+cur3]++
			freqs[prv3+256]++
			prv0, prv1, prv2, prv3 = 257*cur0, 257*cur1, 257*cur2, 257*cur3
			n0++
			n1++
			n2++
			n3++
		}

		for ; n3 < length; n3++ {
			freqs[prv3+uint(block[n3])]++
			freqs[prv3+256]++
			prv3 = 257 * uint(block[n3])
		}

		return
	}

	if length < 32 {
		prv := uint(0)

		for i := 0; i < length; i++ {
			freqs[prv+uint(block[i])]++
			prv = 256 * uint(block[i])
		}

		return
	}

	prv0, prv1, prv2, prv3 := uint(0), 256*uint(block[n1-1]), 256*uint(block[n2-1]), 256*uint(block[n3-1])

	for n0 < quarter {
		cur0, cur1, cur2, cur3 := uint(block[n0]), uint(block[n1]), uint(block[n2]), uint(block[n3])
		freqs[prv0+cur0]++
		freqs[prv1+cur1]++
		freqs[prv2+cur2]++
		freqs[prv3+cur3]++
		prv0, prv1, prv2, prv3 = cur0<<8, cur1<<8, cur2<<8, cur3<<8
		n0++
		n1++
		n2++
		n3++
	}

	for ; n3 < length; n3++ {
		freqs[prv3+uint(block[n3])]++
		prv3 = uint(block[n3]) << 8
	}
}

// DetectSimpleType classifies a block from its order-0 histogram into
// one of DNA, NUMERIC, BASE64, BIN, SMALL_ALPHABET, or UNDEFINED if
// none of the simple heuristics match.
func DetectSimpleType(count int, freqs0 []int) kc.DataType {
	if count == 0 {
		return kc.DTUndefined
	}

	sum := 0

	for i := 0; i < 12; i++ {
		sum += freqs0[dnaSymbols[i]]
	}

	if sum > count-count/12 {
		return kc.DTDNA
	}

	sum = 0

	for i := 0; i < 20; i++ {
		sum += freqs0[numericSymbols[i]]
	}

	if sum == count {
		return kc.DTNumeric
	}

	sum = 0

	for i := 0; i < 64; i++ {
		sum += freqs0[base64Symbols[i]]
	}

	if sum+freqs0[0x3D] == count {
		return kc.DTBase64
	}

	sum = 0

	for i := 0; i < 256; i++ {
		if freqs0[i] > 0 {
			sum++
		}
	}

	if sum == 256 {
		return kc.DTBin
	}

	if sum <= 4 {
		return kc.DTSmallAlphabet
	}

	return kc.DTUndefined
}

// ComputeJobsPerTask splits jobs workers across tasks as evenly as
// possible, returning the per-task allocation in jobsPerTask.
func ComputeJobsPerTask(jobsPerTask []uint, jobs, tasks uint) ([]uint, error) {
	if tasks == 0 {
		return jobsPerTask, errors.New("internal: zero tasks requested")
	}

	if jobs == 0 {
		return jobsPerTask, errors.New("internal: zero jobs requested")
	}

	var q, r uint

	if jobs <= tasks {
		q, r = 1, 0
	} else {
		q = jobs / tasks
		r = jobs - q*tasks
	}

	for i := range jobsPerTask {
		jobsPerTask[i] = q
	}

	for n := uint(0); r != 0; r-- {
		jobsPerTask[n]++
		n++

		if n == tasks {
			n = 0
		}
	}

	return jobsPerTask, nil
}
