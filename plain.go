// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package mpcint

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

var two256 = new(big.Int).Lsh(big.NewInt(1), 256)

// MinInt returns the minimum signed value of the given width, -2^(bits-1).
func MinInt(bits uint) *big.Int {
	return new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), bits-1))
}

// MaxInt returns the maximum signed value of the given width, 2^(bits-1)-1.
func MaxInt(bits uint) *big.Int {
	v := new(big.Int).Lsh(big.NewInt(1), bits-1)
	return v.Sub(v, big.NewInt(1))
}

// ToWords returns the two's-complement pattern of v as four little-endian
// 64-bit words sign-extended to 256 bits. v must fit in bits signed bits.
func ToWords(v *big.Int, bits uint) (uint256.Int, error) {
	if v == nil {
		return uint256.Int{}, fmt.Errorf("%w: nil value", ErrOutOfRange)
	}
	if v.Cmp(MinInt(bits)) < 0 || v.Cmp(MaxInt(bits)) > 0 {
		return uint256.Int{}, fmt.Errorf("%w: %s does not fit int%d", ErrOutOfRange, v, bits)
	}
	u := new(big.Int).Set(v)
	if u.Sign() < 0 {
		u.Add(u, two256)
	}
	z, overflow := uint256.FromBig(u)
	if overflow {
		return uint256.Int{}, fmt.Errorf("%w: %s", ErrOutOfRange, v)
	}
	return *z, nil
}

// signExtend copies the sign of bit bits-1 of z into every higher bit.
func signExtend(z uint256.Int, bits uint) uint256.Int {
	if bits >= 256 {
		return z
	}
	limb := (bits - 1) / 64
	negative := z[limb]>>((bits-1)%64)&1 == 1
	for i := limb + 1; i < 4; i++ {
		if negative {
			z[i] = ^uint64(0)
		} else {
			z[i] = 0
		}
	}
	return z
}

// FromWords interprets z, sign-extended from bits, as a signed integer.
func FromWords(z uint256.Int, bits uint) *big.Int {
	z = signExtend(z, bits)
	if z.Sign() < 0 {
		mag := new(uint256.Int).Neg(&z).ToBig()
		return mag.Neg(mag)
	}
	return z.ToBig()
}

// signedDiv divides two sign-extended plaintexts, truncating toward zero.
// Division by zero yields zero; MIN / -1 wraps to MIN once truncated back to
// the operand width.
func signedDiv(x, y uint256.Int) uint256.Int {
	if y.IsZero() {
		return uint256.Int{}
	}
	var q uint256.Int
	q.SDiv(&x, &y)
	return q
}
