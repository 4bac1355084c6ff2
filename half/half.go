// Package half provides IEEE 754 binary16 half-precision conversion.
//
// The composite image codec can store color channels as half floats to
// halve the transport size of partial images. Depth values are never
// stored as half; the z-buffer merge needs full float32 precision.
//
// Layout of a half value:
//   - 1 bit sign
//   - 5 bits exponent (bias of 15)
//   - 10 bits mantissa (implicit leading 1 for normalized values)
package half

import (
	"encoding/binary"
	"math"
)

// Half is an IEEE 754 binary16 value stored in its raw bit pattern.
type Half uint16

const (
	signBit      = 0x8000
	exponentMask = 0x7C00
	mantissaMask = 0x03FF
	exponentBias = 15
	maxExponent  = 31
)

// Size is the encoded size of a Half in bytes.
const Size = 2

// Common values.
var (
	Zero   = Half(0x0000)
	One    = Half(0x3C00)
	Inf    = Half(0x7C00)
	NegInf = Half(0xFC00)
	NaN    = Half(0x7E00)
	Max    = Half(0x7BFF)
)

// FromFloat32 converts f to a Half using round-to-nearest-even.
// Values above the half range become infinity; values below the smallest
// subnormal become a signed zero.
func FromFloat32(f float32) Half {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & signBit)
	exp := int((bits >> 23) & 0xFF)
	mant := bits & 0x007FFFFF

	switch exp {
	case 0xFF:
		if mant == 0 {
			return Half(sign | exponentMask)
		}
		return Half(sign | exponentMask | uint16(mant>>13) | 0x0200)
	case 0:
		return Half(sign)
	}

	exp = exp - 127 + exponentBias
	if exp >= maxExponent {
		return Half(sign | exponentMask)
	}
	if exp < -10 {
		return Half(sign)
	}

	if exp <= 0 {
		mant |= 0x00800000
		shift := uint(14 - exp)
		hm := mant >> shift
		round := (mant >> (shift - 1)) & 1
		sticky := mant & ((1 << (shift - 1)) - 1)
		if round != 0 && (sticky != 0 || hm&1 != 0) {
			hm++
		}
		return Half(sign | uint16(hm))
	}

	hm := mant >> 13
	round := (mant >> 12) & 1
	sticky := mant & 0x0FFF
	if round != 0 && (sticky != 0 || hm&1 != 0) {
		hm++
		if hm > mantissaMask {
			hm = 0
			exp++
			if exp >= maxExponent {
				return Half(sign | exponentMask)
			}
		}
	}
	return Half(sign | uint16(exp<<10) | uint16(hm))
}

// Float32 converts h to a float32. The conversion is exact.
func (h Half) Float32() float32 {
	sign := uint32(h&signBit) << 16
	exp := int((h >> 10) & 0x1F)
	mant := uint32(h & mantissaMask)

	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		for mant&0x0400 == 0 {
			mant <<= 1
			exp--
		}
		exp++
		mant &= mantissaMask
	case maxExponent:
		if mant == 0 {
			return math.Float32frombits(sign | 0x7F800000)
		}
		return math.Float32frombits(sign | 0x7F800000 | mant<<13 | 0x00400000)
	}
	exp = exp - exponentBias + 127
	return math.Float32frombits(sign | uint32(exp)<<23 | mant<<13)
}

// Bits returns the raw bit pattern.
func (h Half) Bits() uint16 { return uint16(h) }

// FromBits builds a Half from a raw bit pattern.
func FromBits(b uint16) Half { return Half(b) }

// IsFinite reports whether h is neither infinite nor NaN.
func (h Half) IsFinite() bool { return h&exponentMask != exponentMask }

// PutFloat32s encodes src as little-endian halves into dst, which must hold
// at least len(src)*Size bytes.
func PutFloat32s(dst []byte, src []float32) {
	for i, v := range src {
		binary.LittleEndian.PutUint16(dst[i*Size:], uint16(FromFloat32(v)))
	}
}

// Float32s decodes little-endian halves from src into dst. src must hold at
// least len(dst)*Size bytes.
func Float32s(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = Half(binary.LittleEndian.Uint16(src[i*Size:])).Float32()
	}
}
