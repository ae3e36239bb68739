/*
Copyright 2011-2025 Frederic Langlet
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

// EXECodec rewrites relative CALL/JMP/B/BL targets in X86 or ARM64
// machine code into absolute addresses, which entropy-codes better
// because a program's call targets cluster far more than their
// encoded relative offsets do. It detects its input's format (PE/ELF/
// Mach-O header, falling back to an instruction-histogram heuristic)
// and only transforms the code section it locates.
//
// Two wire formats exist: the current one (header byte selects X86 or
// ARM64, decoded by inverseX86/inverseARM) and a legacy X86-only
// format (bsVersion < 3, decoded by inverseV2). Forward only ever
// produces the current format; inverseV2 exists solely to decode
// blocks written by old bitstreams.
package transform

import (
	"encoding/binary"

	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
	"github.com/corewave-labs/kanzicore/internal"
)

const (
	exeX86MaskJump       = 0xFE
	exeX86InstructionJmp = 0xE8
	exeX86InstructionJcc = 0x80
	exeX86TwoBytePrefix  = 0x0F
	exeX86MaskJcc        = 0xF0
	exeX86Escape         = 0x9B
	exeNotExe            = 0x80
	exeX86               = 0x40
	exeARM64             = 0x20
	exeMaskDT            = 0x0F
	exeX86AddrMask       = (1 << 24) - 1
	exeMaskAddress       = 0xF0F0F0F0
	exeARMBAddrMask      = (1 << 26) - 1
	exeARMBOpcodeMask    = 0xFFFFFFFF ^ exeARMBAddrMask
	exeARMBAddrSgnMask   = 1 << 25
	exeARMOpcodeB        = 0x14000000
	exeARMOpcodeBL       = 0x94000000
	exeARMCBRegBits      = 5
	exeARMCBAddrMask     = 0x00FFFFE0
	exeARMCBAddrSgnMask  = 1 << 18
	exeARMCBOpcodeMask   = 0x7F000000
	exeARMOpcodeCBZ      = 0x34000000
	exeARMOpcodeCBNZ     = 0x35000000
	exeWinPE             = 0x00004550
	exeWinX86Arch        = 0x014C
	exeWinAMD64Arch      = 0x8664
	exeWinARM64Arch      = 0xAA64
	exeELFX86Arch        = 0x03
	exeELFAMD64Arch      = 0x3E
	exeELFARM64Arch      = 0xB7
	exeMacAMD64Arch      = 0x01000007
	exeMacARM64Arch      = 0x0100000C
	exeMacMHExecute      = 0x02
	exeMacLCSegment      = 0x01
	exeMacLCSegment64    = 0x19
	exeMinBlockSize      = 4096
	exeMaxBlockSize      = (1 << (26 + 2)) - 1
)

// EXECodec rewrites relative jump/call addresses in X86 or ARM64 code
// to absolute addresses.
type EXECodec struct {
	ctx      *kc.Context
	isLegacy bool
}

// NewEXECodec creates a new EXECodec with no context (current format).
func NewEXECodec() (*EXECodec, error) {
	return &EXECodec{}, nil
}

// NewEXECodecWithCtx creates a new EXECodec bound to ctx. ctx.BSVersion
// in [1,2] selects the legacy wire format for Inverse.
func NewEXECodecWithCtx(ctx *kc.Context) (*EXECodec, error) {
	t := &EXECodec{ctx: ctx}

	if ctx != nil && ctx.BSVersion > 0 {
		t.isLegacy = ctx.BSVersion < 3
	}

	return t, nil
}

// Forward detects X86/ARM64 code in src and rewrites relative jump
// targets to absolute addresses.
func (t *EXECodec) Forward(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 || dst.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, nil
	}

	count := src.Length

	if count < exeMinBlockSize || count > exeMaxBlockSize {
		return false, nil
	}

	if n := t.MaxEncodedLen(count); dst.Length < n {
		return false, nil
	}

	if t.ctx != nil {
		dt := t.ctx.DataType

		if dt != kc.DTUndefined && dt != kc.DTEXE && dt != kc.DTBin {
			return false, nil
		}
	}

	srcBuf := src.Bytes()
	codeStart := 0
	codeEnd := count - 8
	mode := detectExeType(srcBuf[:codeEnd+4], &codeStart, &codeEnd)

	if mode&exeNotExe != 0 {
		if t.ctx != nil {
			t.ctx.DataType = kc.DataType(mode & exeMaskDT)
		}

		t.ctx.Logger().Debug().Str("datatype", kc.DataType(mode&exeMaskDT).String()).Msg("exe: classifier found no executable code")
		return false, nil
	}

	mode &= ^byte(exeMaskDT)

	if t.ctx != nil {
		t.ctx.DataType = kc.DTEXE
	}

	t.ctx.Logger().Debug().Uint8("mode", mode).Msg("exe: classifier detected executable code")

	if mode == exeX86 {
		return t.forwardX86(src, dst, codeStart, codeEnd)
	}

	if mode == exeARM64 {
		return t.forwardARM(src, dst, codeStart, codeEnd)
	}

	return false, nil
}

func (t *EXECodec) forwardX86(src, dst *kc.Slice, codeStart, codeEnd int) (bool, error) {
	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]
	srcIdx := codeStart
	dstIdx := 9
	matches := 0
	dstEnd := len(dstBuf) - 5
	dstBuf[0] = exeX86

	if codeStart > len(srcBuf) || codeEnd > len(srcBuf) {
		return false, nil
	}

	if codeStart > 0 {
		copy(dstBuf[dstIdx:], srcBuf[0:codeStart])
		dstIdx += codeStart
	}

	for srcIdx < codeEnd && dstIdx < dstEnd {
		if srcBuf[srcIdx] == exeX86TwoBytePrefix {
			dstBuf[dstIdx] = srcBuf[srcIdx]
			srcIdx++
			dstIdx++

			if srcBuf[srcIdx]&exeX86MaskJcc != exeX86InstructionJcc {
				if srcBuf[srcIdx] == exeX86Escape {
					dstBuf[dstIdx] = exeX86Escape
					dstIdx++
				}

				dstBuf[dstIdx] = srcBuf[srcIdx]
				srcIdx++
				dstIdx++
				continue
			}
		} else if srcBuf[srcIdx]&exeX86MaskJump != exeX86InstructionJmp {
			if srcBuf[srcIdx] == exeX86Escape {
				dstBuf[dstIdx] = exeX86Escape
				dstIdx++
			}

			dstBuf[dstIdx] = srcBuf[srcIdx]
			srcIdx++
			dstIdx++
			continue
		}

		sgn := srcBuf[srcIdx+4]
		offset := int(binary.LittleEndian.Uint32(srcBuf[srcIdx+1:]))

		if (sgn != 0 && sgn != 0xFF) || offset == 0xFF000000 {
			dstBuf[dstIdx] = exeX86Escape
			dstBuf[dstIdx+1] = srcBuf[srcIdx]
			srcIdx++
			dstIdx += 2
			continue
		}

		addr := srcIdx

		if sgn == 0 {
			addr += offset
		} else {
			addr -= -offset & exeX86AddrMask
		}

		dstBuf[dstIdx] = srcBuf[srcIdx]
		binary.BigEndian.PutUint32(dstBuf[dstIdx+1:], uint32(addr^exeMaskAddress))
		srcIdx += 5
		dstIdx += 5
		matches++
	}

	if matches < 16 {
		return false, nil
	}

	count := src.Length

	if srcIdx < codeEnd || dstIdx+(count-srcIdx) > dstEnd {
		return false, nil
	}

	binary.LittleEndian.PutUint32(dstBuf[1:], uint32(codeStart))
	binary.LittleEndian.PutUint32(dstBuf[5:], uint32(dstIdx))
	copy(dstBuf[dstIdx:], srcBuf[srcIdx:count])
	dstIdx += count - srcIdx

	if dstIdx > count+(count/50) {
		return false, nil
	}

	src.Index += count
	dst.Index += dstIdx
	return true, nil
}

func (t *EXECodec) forwardARM(src, dst *kc.Slice, codeStart, codeEnd int) (bool, error) {
	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]
	srcIdx := codeStart
	dstIdx := 9
	matches := 0
	dstEnd := len(dstBuf) - 8
	dstBuf[0] = exeARM64

	if codeStart > len(srcBuf) || codeEnd > len(srcBuf) {
		return false, nil
	}

	if codeStart > 0 {
		copy(dstBuf[dstIdx:], srcBuf[0:codeStart])
		dstIdx += codeStart
	}

	for srcIdx < codeEnd && dstIdx < dstEnd {
		instr := int(binary.LittleEndian.Uint32(srcBuf[srcIdx:]))
		opcode1 := instr & exeARMBOpcodeMask
		isBL := opcode1 == exeARMOpcodeB || opcode1 == exeARMOpcodeBL

		if !isBL {
			copy(dstBuf[dstIdx:], srcBuf[srcIdx:srcIdx+4])
			srcIdx += 4
			dstIdx += 4
			continue
		}

		var addr, val int

		offset := int(int32(instr & exeARMBAddrMask))

		if instr&exeARMBAddrSgnMask == 0 {
			addr = srcIdx + 4*offset
		} else {
			addr = srcIdx - 4*int(int32(-offset&exeARMBAddrMask))
		}

		if addr < 0 {
			addr = 0
		}

		val = opcode1 | (addr >> 2)

		if addr == 0 {
			binary.LittleEndian.PutUint32(dstBuf[dstIdx:], uint32(val))
			copy(dstBuf[dstIdx+4:], srcBuf[srcIdx:srcIdx+4])
			srcIdx += 4
			dstIdx += 8
			continue
		}

		binary.LittleEndian.PutUint32(dstBuf[dstIdx:], uint32(val))
		srcIdx += 4
		dstIdx += 4
		matches++
	}

	if matches < 16 {
		return false, nil
	}

	count := src.Length

	if srcIdx < codeEnd || dstIdx+(count-srcIdx) > dstEnd {
		return false, nil
	}

	binary.LittleEndian.PutUint32(dstBuf[1:], uint32(codeStart))
	binary.LittleEndian.PutUint32(dstBuf[5:], uint32(dstIdx))
	copy(dstBuf[dstIdx:], srcBuf[srcIdx:count])
	dstIdx += count - srcIdx

	if dstIdx > count+(count/50) {
		return false, nil
	}

	src.Index += count
	dst.Index += dstIdx
	return true, nil
}

// Inverse reverses Forward.
func (t *EXECodec) Inverse(src, dst *kc.Slice) (bool, error) {
	if src.Length == 0 || dst.Length == 0 {
		return true, nil
	}

	if kc.SameBuffer(src, dst) {
		return false, errors.New("exe: input and output buffers must be distinct")
	}

	if t.isLegacy {
		return t.inverseV2(src, dst)
	}

	if src.Length < 9 {
		return false, errors.New("exe: corrupt stream, block too small")
	}

	srcBuf := src.Bytes()
	mode := srcBuf[0]

	if mode == exeX86 {
		return t.inverseX86(src, dst)
	}

	if mode == exeARM64 {
		return t.inverseARM(src, dst)
	}

	return false, errors.New("exe: corrupt stream, unknown binary type")
}

func (t *EXECodec) inverseX86(src, dst *kc.Slice) (bool, error) {
	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]
	srcIdx := 9
	dstIdx := 0
	codeStart := int(binary.LittleEndian.Uint32(srcBuf[1:]))
	codeEnd := int(binary.LittleEndian.Uint32(srcBuf[5:]))

	if codeStart+srcIdx > len(srcBuf) || codeStart+dstIdx > len(dstBuf) || codeEnd > len(srcBuf) {
		return false, errors.New("exe: corrupt stream, invalid code section bounds")
	}

	if codeStart > 0 {
		copy(dstBuf[dstIdx:], srcBuf[srcIdx:srcIdx+codeStart])
		dstIdx += codeStart
		srcIdx += codeStart
	}

	for srcIdx < codeEnd {
		if srcBuf[srcIdx] == exeX86TwoBytePrefix {
			dstBuf[dstIdx] = srcBuf[srcIdx]
			srcIdx++
			dstIdx++

			if srcBuf[srcIdx]&exeX86MaskJcc != exeX86InstructionJcc {
				if srcBuf[srcIdx] == exeX86Escape {
					srcIdx++
				}

				dstBuf[dstIdx] = srcBuf[srcIdx]
				srcIdx++
				dstIdx++
				continue
			}
		} else if srcBuf[srcIdx]&exeX86MaskJump != exeX86InstructionJmp {
			if srcBuf[srcIdx] == exeX86Escape {
				srcIdx++
			}

			dstBuf[dstIdx] = srcBuf[srcIdx]
			srcIdx++
			dstIdx++
			continue
		}

		addr := int(binary.BigEndian.Uint32(srcBuf[srcIdx+1:])) ^ exeMaskAddress
		offset := addr - dstIdx
		dstBuf[dstIdx] = srcBuf[srcIdx]
		srcIdx++
		dstIdx++

		if offset >= 0 {
			binary.LittleEndian.PutUint32(dstBuf[dstIdx:], uint32(offset))
		} else {
			binary.LittleEndian.PutUint32(dstBuf[dstIdx:], uint32(-(-offset & exeX86AddrMask)))
		}

		srcIdx += 4
		dstIdx += 4
	}

	count := src.Length

	if srcIdx < count {
		copy(dstBuf[dstIdx:], srcBuf[srcIdx:count])
		dstIdx += count - srcIdx
	}

	src.Index += count
	dst.Index += dstIdx
	return true, nil
}

// inverseV2 decodes the legacy (bsVersion < 3) X86-only wire format:
// addresses are sign/nibble-escaped inline rather than behind a
// dedicated header, and 0xF5 marks "not an encoded address" rather
// than the current format's 0x9B escape.
func (t *EXECodec) inverseV2(src, dst *kc.Slice) (bool, error) {
	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]
	count := src.Length
	srcIdx := 0
	dstIdx := 0
	end := count - 8

	for srcIdx < end {
		dstBuf[dstIdx] = srcBuf[srcIdx]
		dstIdx++
		srcIdx++

		if srcBuf[srcIdx-1]&exeX86MaskJump != exeX86InstructionJmp {
			continue
		}

		if srcBuf[srcIdx] == 0xF5 {
			srcIdx++
			continue
		}

		sgn := srcBuf[srcIdx] - 1

		if sgn != 0 && sgn != 0xFF {
			continue
		}

		addr := (0xD5 ^ int32(srcBuf[srcIdx+3])) |
			((0xD5 ^ int32(srcBuf[srcIdx+2])) << 8) |
			((0xD5 ^ int32(srcBuf[srcIdx+1])) << 16) |
			((0xFF & int32(sgn)) << 24)

		addr -= int32(dstIdx)
		dstBuf[dstIdx] = byte(addr)
		dstBuf[dstIdx+1] = byte(addr >> 8)
		dstBuf[dstIdx+2] = byte(addr >> 16)
		dstBuf[dstIdx+3] = sgn
		srcIdx += 4
		dstIdx += 4
	}

	for srcIdx < count {
		dstBuf[dstIdx] = srcBuf[srcIdx]
		dstIdx++
		srcIdx++
	}

	src.Index += srcIdx
	dst.Index += dstIdx
	return true, nil
}

func (t *EXECodec) inverseARM(src, dst *kc.Slice) (bool, error) {
	srcBuf := src.Bytes()
	dstBuf := dst.Buf[dst.Index:]
	srcIdx := 9
	dstIdx := 0
	codeStart := int(binary.LittleEndian.Uint32(srcBuf[1:]))
	codeEnd := int(binary.LittleEndian.Uint32(srcBuf[5:]))

	if codeStart+srcIdx > len(srcBuf) || codeStart+dstIdx > len(dstBuf) || codeEnd > len(srcBuf) {
		return false, errors.New("exe: corrupt stream, invalid code section bounds")
	}

	if codeStart > 0 {
		copy(dstBuf[dstIdx:], srcBuf[srcIdx:srcIdx+codeStart])
		dstIdx += codeStart
		srcIdx += codeStart
	}

	for srcIdx < codeEnd {
		instr := int(binary.LittleEndian.Uint32(srcBuf[srcIdx:]))
		opcode1 := instr & exeARMBOpcodeMask
		isBL := opcode1 == exeARMOpcodeB || opcode1 == exeARMOpcodeBL

		if !isBL {
			copy(dstBuf[dstIdx:], srcBuf[srcIdx:srcIdx+4])
			srcIdx += 4
			dstIdx += 4
			continue
		}

		addr := (instr & exeARMBAddrMask) << 2
		offset := (addr - dstIdx) >> 2
		val := opcode1 | (offset & exeARMBAddrMask)

		if addr == 0 {
			copy(dstBuf[dstIdx:], srcBuf[srcIdx+4:srcIdx+8])
			srcIdx += 8
			dstIdx += 4
			continue
		}

		binary.LittleEndian.PutUint32(dstBuf[dstIdx:], uint32(val))
		srcIdx += 4
		dstIdx += 4
	}

	count := src.Length

	if srcIdx < count {
		copy(dstBuf[dstIdx:], srcBuf[srcIdx:count])
		dstIdx += count - srcIdx
	}

	src.Index += count
	dst.Index += dstIdx
	return true, nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer.
func (t *EXECodec) MaxEncodedLen(srcLen int) int {
	if srcLen <= 256 {
		return srcLen + 32
	}

	return srcLen + srcLen/8
}

func detectExeType(src []byte, codeStart, codeEnd *int) byte {
	magic := internal.DetectMagic(src)
	arch := 0

	if parseExeHeader(src, magic, &arch, codeStart, codeEnd) {
		if arch == exeELFX86Arch || arch == exeELFAMD64Arch {
			return exeX86
		}

		if arch == exeWinX86Arch || arch == exeWinAMD64Arch {
			return exeX86
		}

		if arch == exeMacAMD64Arch {
			return exeX86
		}

		if arch == exeELFARM64Arch || arch == exeWinARM64Arch {
			return exeARM64
		}

		if arch == exeMacARM64Arch {
			return exeARM64
		}
	}

	jumpsX86 := 0
	jumpsARM64 := 0
	count := *codeEnd - *codeStart
	var histo [256]int

	for i := *codeStart; i < *codeEnd; i++ {
		histo[src[i]]++

		if src[i]&exeX86MaskJump == exeX86InstructionJmp {
			if src[i+4] == 0 || src[i+4] == 0xFF {
				jumpsX86++
				continue
			}
		} else if src[i] == exeX86TwoBytePrefix {
			i++

			if src[i] == 0x38 || src[i] == 0x3A {
				i++
			}

			if src[i]&exeX86MaskJcc == exeX86InstructionJcc {
				jumpsX86++
				continue
			}
		}

		if i&3 != 0 {
			continue
		}

		instr := binary.LittleEndian.Uint32(src[i:])
		opcode1 := instr & exeARMBOpcodeMask
		opcode2 := instr & exeARMCBOpcodeMask

		if opcode1 == exeARMOpcodeB || opcode1 == exeARMOpcodeBL || opcode2 == exeARMOpcodeCBZ || opcode2 == exeARMOpcodeCBNZ {
			jumpsARM64++
		}
	}

	dt := internal.DetectSimpleType(count, histo[:])

	if dt != kc.DTBin {
		return exeNotExe | byte(dt)
	}

	smallVals := 0

	for _, h := range histo[0:16] {
		smallVals += h
	}

	if histo[0] < count/10 || smallVals > count/2 || histo[255] < count/100 {
		return exeNotExe | byte(dt)
	}

	if jumpsX86 >= count/200 && histo[255] >= count/50 {
		return exeX86
	}

	if jumpsARM64 >= count/200 {
		return exeARM64
	}

	return exeNotExe | byte(dt)
}

// parseExeHeader locates the code (text) section of a recognized
// PE/ELF/Mach-O header, returning false when the header is unknown or
// truncated.
func parseExeHeader(src []byte, magic uint, arch, codeStart, codeEnd *int) bool {
	count := len(src)

	switch magic {
	case internal.WINMagic:
		if count >= 64 {
			posPE := int(binary.LittleEndian.Uint32(src[60:]))

			if posPE > 0 && posPE <= count-48 && int(binary.LittleEndian.Uint32(src[posPE:])) == exeWinPE {
				*codeStart = min(int(binary.LittleEndian.Uint32(src[posPE+44:])), count)
				*codeEnd = min(*codeStart+int(binary.LittleEndian.Uint32(src[posPE+28:])), count)
				*arch = int(binary.LittleEndian.Uint16(src[posPE+4:]))
			}

			return true
		}

	case internal.ELFMagic:
		isLittleEndian := src[5] == 1

		if count >= 64 {
			*codeStart = 0

			if isLittleEndian {
				if src[4] == 2 {
					nbEntries := int(binary.LittleEndian.Uint16(src[0x3C:]))
					szEntry := int(binary.LittleEndian.Uint16(src[0x3A:]))
					posSection := int(binary.LittleEndian.Uint64(src[0x28:]))

					for i := 0; i < nbEntries; i++ {
						startEntry := posSection + i*szEntry

						if startEntry+0x28 >= count {
							return false
						}

						typeSection := int(binary.LittleEndian.Uint32(src[startEntry+4:]))
						offSection := int(binary.LittleEndian.Uint64(src[startEntry+0x18:]))
						lenSection := int(binary.LittleEndian.Uint64(src[startEntry+0x20:]))

						if typeSection == 1 && lenSection >= 64 {
							if *codeStart == 0 {
								*codeStart = offSection
							}

							*codeEnd = offSection + lenSection
						}
					}
				} else {
					nbEntries := int(binary.LittleEndian.Uint16(src[0x30:]))
					szEntry := int(binary.LittleEndian.Uint16(src[0x2E:]))
					posSection := int(binary.LittleEndian.Uint32(src[0x20:]))

					for i := 0; i < nbEntries; i++ {
						startEntry := posSection + i*szEntry

						if startEntry+0x18 >= count {
							return false
						}

						typeSection := int(binary.LittleEndian.Uint32(src[startEntry+4:]))
						offSection := int(binary.LittleEndian.Uint32(src[startEntry+0x10:]))
						lenSection := int(binary.LittleEndian.Uint32(src[startEntry+0x14:]))

						if typeSection == 1 && lenSection >= 64 {
							if *codeStart == 0 {
								*codeStart = offSection
							}

							*codeEnd = offSection + lenSection
						}
					}
				}

				*arch = int(binary.LittleEndian.Uint16(src[18:]))
			} else {
				if src[4] == 2 {
					nbEntries := int(binary.BigEndian.Uint16(src[0x3C:]))
					szEntry := int(binary.BigEndian.Uint16(src[0x3A:]))
					posSection := int(binary.BigEndian.Uint64(src[0x28:]))

					for i := 0; i < nbEntries; i++ {
						startEntry := posSection + i*szEntry

						if startEntry+0x28 >= count {
							return false
						}

						typeSection := int(binary.BigEndian.Uint32(src[startEntry+4:]))
						offSection := int(binary.BigEndian.Uint64(src[startEntry+0x18:]))
						lenSection := int(binary.BigEndian.Uint64(src[startEntry+0x20:]))

						if typeSection == 1 && lenSection >= 64 {
							if *codeStart == 0 {
								*codeStart = offSection
							}

							*codeEnd = offSection + lenSection
						}
					}
				} else {
					nbEntries := int(binary.BigEndian.Uint16(src[0x30:]))
					szEntry := int(binary.BigEndian.Uint16(src[0x2E:]))
					posSection := int(binary.BigEndian.Uint32(src[0x20:]))

					for i := 0; i < nbEntries; i++ {
						startEntry := posSection + i*szEntry

						if startEntry+0x18 >= count {
							return false
						}

						typeSection := int(binary.BigEndian.Uint32(src[startEntry+4:]))
						offSection := int(binary.BigEndian.Uint32(src[startEntry+0x10:]))
						lenSection := int(binary.BigEndian.Uint32(src[startEntry+0x14:]))

						if typeSection == 1 && lenSection >= 64 {
							if *codeStart == 0 {
								*codeStart = offSection
							}

							*codeEnd = offSection + lenSection
						}
					}
				}

				*arch = int(binary.BigEndian.Uint16(src[18:]))
			}

			*codeStart = min(*codeStart, count)
			*codeEnd = min(*codeEnd, count)
			return true
		}

	case internal.MACMagic32, internal.MACCigam32, internal.MACMagic64, internal.MACCigam64:
		is64Bits := magic == internal.MACMagic64 || magic == internal.MACCigam64
		*codeStart = 0

		if count >= 64 {
			mode := binary.LittleEndian.Uint32(src[12:])

			if mode != exeMacMHExecute {
				return false
			}

			*arch = int(binary.LittleEndian.Uint32(src[4:]))
			nbCmds := int(binary.LittleEndian.Uint32(src[0x10:]))
			cmd := 0
			pos := 0x1C

			if is64Bits {
				pos = 0x20
			}

			for cmd < nbCmds {
				ldCmd := int(binary.LittleEndian.Uint32(src[pos:]))
				szCmd := int(binary.LittleEndian.Uint32(src[pos+4:]))
				szSegHdr := 0x38

				if is64Bits {
					szSegHdr = 0x48
				}

				if ldCmd == exeMacLCSegment || ldCmd == exeMacLCSegment64 {
					if pos+14 >= count {
						return false
					}

					nameSegment := binary.BigEndian.Uint64(src[pos+8:]) >> 16

					if nameSegment == 0x5F5F54455854 {
						posSection := pos + szSegHdr

						if posSection+0x34 >= count {
							return false
						}

						nameSection := binary.BigEndian.Uint64(src[posSection:]) >> 16

						if nameSection == 0x5F5F74657874 {
							if is64Bits {
								*codeStart = int(int32(binary.LittleEndian.Uint64(src[posSection+0x30:])))
								*codeEnd = *codeStart + int(int32(binary.LittleEndian.Uint32(src[posSection+0x28:])))
								break
							}

							*codeStart = int(int32(binary.LittleEndian.Uint32(src[posSection+0x2C:])))
							*codeEnd = *codeStart + int(int32(binary.LittleEndian.Uint32(src[posSection+0x28:])))
							break
						}
					}
				}

				cmd++
				pos += szCmd
			}

			*codeStart = min(*codeStart, count)
			*codeEnd = min(*codeEnd, count)
			return true
		}
	}

	return false
}
