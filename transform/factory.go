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

// TransformFactory parses a '+'-joined transform name into a packed
// 48-bit plan (8 slots of 6 bits each) and instantiates the matching
// Sequence. Each slot is one of the XxxType constants below; NoneType
// in a non-leading slot is a hole and is skipped.
package transform

import (
	"strings"

	"github.com/pkg/errors"

	kc "github.com/corewave-labs/kanzicore"
)

const (
	bffOneShift = 6
	bffMaxShift = (8 - 1) * bffOneShift
	bffMask     = (1 << bffOneShift) - 1
)

// Transform type tokens, packed 6 bits per slot into the plan.
const (
	NoneType  = uint64(0)
	BWTType   = uint64(1)
	BWTSType  = uint64(2)
	LZType    = uint64(3)
	RLTType   = uint64(5)
	ZRLTType  = uint64(6)
	MTFTType  = uint64(7)
	RankType  = uint64(8)
	EXEType   = uint64(9)
	TextType  = uint64(10)
	ROLZType  = uint64(11)
	ROLZXType = uint64(12)
	SRTType   = uint64(13)
	LZPType   = uint64(14)
	MMType    = uint64(15)
	LZXType   = uint64(16)
	UTFType   = uint64(17)
	PackType  = uint64(18)
)

// New builds the Sequence named by a packed transform plan.
func New(ctx *kc.Context, functionType uint64) (*Sequence, error) {
	nbtr := 0

	for s := bffMaxShift; s >= 0; s -= bffOneShift {
		if (functionType>>uint(s))&bffMask != NoneType {
			nbtr++
		}
	}

	if nbtr == 0 {
		nbtr = 1
	}

	transforms := make([]kc.Transform, nbtr)
	nbtr = 0

	for i := range transforms {
		t := (functionType >> uint(bffMaxShift-bffOneShift*i)) & bffMask

		if t != NoneType || i == 0 {
			tr, err := newToken(ctx, t)

			if err != nil {
				return nil, err
			}

			transforms[nbtr] = tr
		}

		nbtr++
	}

	return NewSequenceWithCtx(ctx, transforms)
}

func newToken(ctx *kc.Context, functionType uint64) (kc.Transform, error) {
	switch functionType {
	case TextType:
		return NewTextCodecWithCtx(ctx)

	case ROLZType:
		if ctx != nil {
			ctx.Transform = "ROLZ"
		}

		return NewROLZCodecWithCtx(ctx)

	case ROLZXType:
		if ctx != nil {
			ctx.Transform = "ROLZX"
		}

		return NewROLZCodecWithCtx(ctx)

	case BWTType:
		return NewBWTBlockCodecWithCtx(ctx)

	case BWTSType:
		return NewBWTSWithCtx(ctx)

	case LZType:
		if ctx != nil {
			ctx.Transform = "LZ"
		}

		return NewLZCodecWithCtx(ctx)

	case LZXType:
		if ctx != nil {
			ctx.Transform = "LZX"
		}

		return NewLZCodecWithCtx(ctx)

	case LZPType:
		if ctx != nil {
			ctx.Transform = "LZP"
		}

		return NewLZCodecWithCtx(ctx)

	case UTFType:
		return NewUTFCodecWithCtx(ctx)

	case MMType:
		return NewFSDCodecWithCtx(ctx)

	case PackType:
		return NewAliasCodecWithCtx(ctx)

	case SRTType:
		return NewSRTWithCtx(ctx)

	case RankType:
		if ctx != nil {
			ctx.SBRTMode = SBRTModeRank
		}

		return NewSBRTWithCtx(ctx)

	case MTFTType:
		if ctx != nil {
			ctx.SBRTMode = SBRTModeMTF
		}

		return NewSBRTWithCtx(ctx)

	case ZRLTType:
		return NewZRLTWithCtx(ctx)

	case RLTType:
		return NewRLTWithCtx(ctx)

	case EXEType:
		return NewEXECodecWithCtx(ctx)

	case NoneType:
		return NewNullTransformWithCtx(ctx)

	default:
		return nil, errors.Errorf("transform: unknown transform type '%d'", functionType)
	}
}

// GetName turns a packed plan back into its '+'-joined name.
func GetName(functionType uint64) (string, error) {
	var s string

	for i := uint(0); i < 8; i++ {
		t := (functionType >> uint(bffMaxShift-bffOneShift*i)) & bffMask

		if t == NoneType {
			continue
		}

		name, err := tokenName(t)

		if err != nil {
			return "", err
		}

		if len(s) != 0 {
			s += "+"
		}

		s += name
	}

	if len(s) == 0 {
		name, err := tokenName(NoneType)

		if err != nil {
			return "", err
		}

		s += name
	}

	return s, nil
}

func tokenName(functionType uint64) (string, error) {
	switch functionType {
	case TextType:
		return "TEXT", nil
	case ROLZType:
		return "ROLZ", nil
	case ROLZXType:
		return "ROLZX", nil
	case BWTType:
		return "BWT", nil
	case BWTSType:
		return "BWTS", nil
	case LZType:
		return "LZ", nil
	case LZXType:
		return "LZX", nil
	case LZPType:
		return "LZP", nil
	case UTFType:
		return "UTF", nil
	case EXEType:
		return "EXE", nil
	case MMType:
		return "MM", nil
	case ZRLTType:
		return "ZRLT", nil
	case RLTType:
		return "RLT", nil
	case SRTType:
		return "SRT", nil
	case RankType:
		return "RANK", nil
	case MTFTType:
		return "MTFT", nil
	case PackType:
		return "PACK", nil
	case NoneType:
		return "NONE", nil
	default:
		return "", errors.Errorf("transform: unknown transform type '%d'", functionType)
	}
}

// GetType turns a '+'-joined transform name into its packed plan.
func GetType(name string) (uint64, error) {
	if strings.IndexByte(name, '+') < 0 {
		res, err := tokenType(name)

		if err != nil {
			return 0, err
		}

		return res << uint(bffMaxShift), nil
	}

	tokens := strings.Split(name, "+")

	if len(tokens) == 0 {
		return 0, errors.Errorf("transform: unknown transform name '%s'", name)
	}

	if len(tokens) > 8 {
		return 0, errors.Errorf("transform: only 8 transforms allowed: '%s'", name)
	}

	res := uint64(0)
	shift := bffMaxShift

	for _, token := range tokens {
		tkType, err := tokenType(token)

		if err != nil {
			return 0, err
		}

		if tkType != NoneType {
			res |= tkType << uint(shift)
			shift -= bffOneShift
		}
	}

	return res, nil
}

func tokenType(name string) (uint64, error) {
	switch strings.ToUpper(name) {
	case "TEXT":
		return TextType, nil
	case "BWT":
		return BWTType, nil
	case "BWTS":
		return BWTSType, nil
	case "ROLZ":
		return ROLZType, nil
	case "ROLZX":
		return ROLZXType, nil
	case "LZ":
		return LZType, nil
	case "LZX":
		return LZXType, nil
	case "LZP":
		return LZPType, nil
	case "UTF":
		return UTFType, nil
	case "MM":
		return MMType, nil
	case "SRT":
		return SRTType, nil
	case "RANK":
		return RankType, nil
	case "MTFT":
		return MTFTType, nil
	case "ZRLT":
		return ZRLTType, nil
	case "RLT":
		return RLTType, nil
	case "EXE":
		return EXEType, nil
	case "PACK", "DNA":
		return PackType, nil
	case "NONE":
		return NoneType, nil
	default:
		return 0, errors.Errorf("transform: unknown transform name '%s'", name)
	}
}
