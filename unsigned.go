// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// This file implements unsigned multi-limb arithmetic on 64-bit ALU words:
// carry and borrow detection through unsigned comparison, cross-limb shifts
// and widening multiplication from 32-bit halves. The signed composites
// reuse it for every operation where two's-complement identity holds.

package mpcint

// u128 is a 128-bit value as two 64-bit limbs, value = hi<<64 | lo.
type u128 struct {
	hi, lo Handle
}

// u256 is a 256-bit value as two 128-bit limbs.
type u256 struct {
	hi, lo u128
}

// arith128 performs unsigned 128-bit arithmetic.
type arith128 struct {
	w     words
	preds *BoolEvaluator
}

func newArith128(alu ALU) *arith128 {
	return &arith128{
		w:     words{alu: alu, typ: Uint64},
		preds: NewBoolEvaluator(alu),
	}
}

func (a *arith128) constant(hi, lo uint64) (u128, error) {
	h, err := a.w.constant(hi)
	if err != nil {
		return u128{}, err
	}
	l, err := a.w.constant(lo)
	if err != nil {
		return u128{}, err
	}
	return u128{hi: h, lo: l}, nil
}

// addWord returns x + y mod 2^64 and whether the sum wrapped.
func (a *arith128) addWord(x, y Handle) (sum Handle, carry Bool, err error) {
	if sum, err = a.w.binary(OpAdd, x, y); err != nil {
		return
	}
	carry, err = a.w.compare(OpLt, sum, x)
	return
}

// add returns x + y mod 2^128 and the carry out of bit 127.
func (a *arith128) add(x, y u128) (u128, Bool, error) {
	lo, c0, err := a.addWord(x.lo, y.lo)
	if err != nil {
		return u128{}, Bool{}, err
	}
	t, c1, err := a.addWord(x.hi, y.hi)
	if err != nil {
		return u128{}, Bool{}, err
	}
	carry, err := a.w.fromBool(c0)
	if err != nil {
		return u128{}, Bool{}, err
	}
	hi, c2, err := a.addWord(t, carry)
	if err != nil {
		return u128{}, Bool{}, err
	}
	cout, err := a.preds.Or(c1, c2)
	if err != nil {
		return u128{}, Bool{}, err
	}
	return u128{hi: hi, lo: lo}, cout, nil
}

// sub returns x - y mod 2^128 and whether the subtraction borrowed.
func (a *arith128) sub(x, y u128) (u128, Bool, error) {
	lo, err := a.w.binary(OpSub, x.lo, y.lo)
	if err != nil {
		return u128{}, Bool{}, err
	}
	b0, err := a.w.compare(OpLt, x.lo, y.lo)
	if err != nil {
		return u128{}, Bool{}, err
	}
	t, err := a.w.binary(OpSub, x.hi, y.hi)
	if err != nil {
		return u128{}, Bool{}, err
	}
	b1, err := a.w.compare(OpLt, x.hi, y.hi)
	if err != nil {
		return u128{}, Bool{}, err
	}
	borrow, err := a.w.fromBool(b0)
	if err != nil {
		return u128{}, Bool{}, err
	}
	hi, err := a.w.binary(OpSub, t, borrow)
	if err != nil {
		return u128{}, Bool{}, err
	}
	b2, err := a.w.compare(OpLt, t, borrow)
	if err != nil {
		return u128{}, Bool{}, err
	}
	bout, err := a.preds.Or(b1, b2)
	if err != nil {
		return u128{}, Bool{}, err
	}
	return u128{hi: hi, lo: lo}, bout, nil
}

func (a *arith128) limbwise(op Op, x, y u128) (u128, error) {
	hi, err := a.w.binary(op, x.hi, y.hi)
	if err != nil {
		return u128{}, err
	}
	lo, err := a.w.binary(op, x.lo, y.lo)
	if err != nil {
		return u128{}, err
	}
	return u128{hi: hi, lo: lo}, nil
}

func (a *arith128) not(x u128) (u128, error) {
	hi, err := a.w.not(x.hi)
	if err != nil {
		return u128{}, err
	}
	lo, err := a.w.not(x.lo)
	if err != nil {
		return u128{}, err
	}
	return u128{hi: hi, lo: lo}, nil
}

// neg returns ^x + 1.
func (a *arith128) neg(x u128) (u128, error) {
	nx, err := a.not(x)
	if err != nil {
		return u128{}, err
	}
	one, err := a.constant(0, 1)
	if err != nil {
		return u128{}, err
	}
	r, _, err := a.add(nx, one)
	return r, err
}

func (a *arith128) mux(pred Bool, x, y u128) (u128, error) {
	hi, err := a.w.mux(pred, x.hi, y.hi)
	if err != nil {
		return u128{}, err
	}
	lo, err := a.w.mux(pred, x.lo, y.lo)
	if err != nil {
		return u128{}, err
	}
	return u128{hi: hi, lo: lo}, nil
}

func (a *arith128) eq(x, y u128) (Bool, error) {
	hi, err := a.w.compare(OpEq, x.hi, y.hi)
	if err != nil {
		return Bool{}, err
	}
	lo, err := a.w.compare(OpEq, x.lo, y.lo)
	if err != nil {
		return Bool{}, err
	}
	return a.preds.And(hi, lo)
}

func (a *arith128) ne(x, y u128) (Bool, error) {
	hi, err := a.w.compare(OpNe, x.hi, y.hi)
	if err != nil {
		return Bool{}, err
	}
	lo, err := a.w.compare(OpNe, x.lo, y.lo)
	if err != nil {
		return Bool{}, err
	}
	return a.preds.Or(hi, lo)
}

// lt returns x < y as unsigned 128-bit values.
func (a *arith128) lt(x, y u128) (Bool, error) {
	hiLt, err := a.w.compare(OpLt, x.hi, y.hi)
	if err != nil {
		return Bool{}, err
	}
	hiEq, err := a.w.compare(OpEq, x.hi, y.hi)
	if err != nil {
		return Bool{}, err
	}
	loLt, err := a.w.compare(OpLt, x.lo, y.lo)
	if err != nil {
		return Bool{}, err
	}
	return a.preds.Mux(hiEq, loLt, hiLt)
}

// shl returns x << n for a public n, carrying bits across limbs.
func (a *arith128) shl(x u128, n uint) (u128, error) {
	switch {
	case n == 0:
		return x, nil
	case n >= 128:
		return a.constant(0, 0)
	case n >= 64:
		hi, err := a.w.shl(x.lo, n-64)
		if err != nil {
			return u128{}, err
		}
		lo, err := a.w.constant(0)
		if err != nil {
			return u128{}, err
		}
		return u128{hi: hi, lo: lo}, nil
	}
	hi, err := a.w.shl(x.hi, n)
	if err != nil {
		return u128{}, err
	}
	carried, err := a.w.shr(x.lo, 64-n)
	if err != nil {
		return u128{}, err
	}
	if hi, err = a.w.binary(OpOr, hi, carried); err != nil {
		return u128{}, err
	}
	lo, err := a.w.shl(x.lo, n)
	if err != nil {
		return u128{}, err
	}
	return u128{hi: hi, lo: lo}, nil
}

// shr returns the logical right shift x >> n for a public n.
func (a *arith128) shr(x u128, n uint) (u128, error) {
	switch {
	case n == 0:
		return x, nil
	case n >= 128:
		return a.constant(0, 0)
	case n >= 64:
		lo, err := a.w.shr(x.hi, n-64)
		if err != nil {
			return u128{}, err
		}
		hi, err := a.w.constant(0)
		if err != nil {
			return u128{}, err
		}
		return u128{hi: hi, lo: lo}, nil
	}
	lo, err := a.w.shr(x.lo, n)
	if err != nil {
		return u128{}, err
	}
	carried, err := a.w.shl(x.hi, 64-n)
	if err != nil {
		return u128{}, err
	}
	if lo, err = a.w.binary(OpOr, lo, carried); err != nil {
		return u128{}, err
	}
	hi, err := a.w.shr(x.hi, n)
	if err != nil {
		return u128{}, err
	}
	return u128{hi: hi, lo: lo}, nil
}

// mulWord returns the full 128-bit product of two 64-bit words, built from
// four 32x32 partial products that each fit in one word.
func (a *arith128) mulWord(x, y Handle) (u128, error) {
	const low32 = 0xFFFFFFFF

	x0, err := a.w.binaryPublic(OpAnd, x, low32)
	if err != nil {
		return u128{}, err
	}
	x1, err := a.w.shr(x, 32)
	if err != nil {
		return u128{}, err
	}
	y0, err := a.w.binaryPublic(OpAnd, y, low32)
	if err != nil {
		return u128{}, err
	}
	y1, err := a.w.shr(y, 32)
	if err != nil {
		return u128{}, err
	}

	p00, err := a.w.binary(OpMul, x0, y0)
	if err != nil {
		return u128{}, err
	}
	p01, err := a.w.binary(OpMul, x0, y1)
	if err != nil {
		return u128{}, err
	}
	p10, err := a.w.binary(OpMul, x1, y0)
	if err != nil {
		return u128{}, err
	}
	p11, err := a.w.binary(OpMul, x1, y1)
	if err != nil {
		return u128{}, err
	}

	// mid may overflow one word; the lost bit is worth 2^96.
	mid, midCarry, err := a.addWord(p01, p10)
	if err != nil {
		return u128{}, err
	}
	midLo, err := a.w.shl(mid, 32)
	if err != nil {
		return u128{}, err
	}
	lo, loCarry, err := a.addWord(p00, midLo)
	if err != nil {
		return u128{}, err
	}

	midHi, err := a.w.shr(mid, 32)
	if err != nil {
		return u128{}, err
	}
	hi, err := a.w.binary(OpAdd, p11, midHi)
	if err != nil {
		return u128{}, err
	}
	bit96, err := a.w.constant(1 << 32)
	if err != nil {
		return u128{}, err
	}
	zero, err := a.w.constant(0)
	if err != nil {
		return u128{}, err
	}
	overflow, err := a.w.mux(midCarry, bit96, zero)
	if err != nil {
		return u128{}, err
	}
	if hi, err = a.w.binary(OpAdd, hi, overflow); err != nil {
		return u128{}, err
	}
	carry, err := a.w.fromBool(loCarry)
	if err != nil {
		return u128{}, err
	}
	if hi, err = a.w.binary(OpAdd, hi, carry); err != nil {
		return u128{}, err
	}
	return u128{hi: hi, lo: lo}, nil
}

// mul returns x * y mod 2^128.
func (a *arith128) mul(x, y u128) (u128, error) {
	p, err := a.mulWord(x.lo, y.lo)
	if err != nil {
		return u128{}, err
	}
	c1, err := a.w.binary(OpMul, x.lo, y.hi)
	if err != nil {
		return u128{}, err
	}
	c2, err := a.w.binary(OpMul, x.hi, y.lo)
	if err != nil {
		return u128{}, err
	}
	hi, err := a.w.binary(OpAdd, p.hi, c1)
	if err != nil {
		return u128{}, err
	}
	if hi, err = a.w.binary(OpAdd, hi, c2); err != nil {
		return u128{}, err
	}
	return u128{hi: hi, lo: p.lo}, nil
}

// mulWide returns the full 256-bit product of two 128-bit values.
func (a *arith128) mulWide(x, y u128) (u256, error) {
	p00, err := a.mulWord(x.lo, y.lo)
	if err != nil {
		return u256{}, err
	}
	p01, err := a.mulWord(x.lo, y.hi)
	if err != nil {
		return u256{}, err
	}
	p10, err := a.mulWord(x.hi, y.lo)
	if err != nil {
		return u256{}, err
	}
	p11, err := a.mulWord(x.hi, y.hi)
	if err != nil {
		return u256{}, err
	}
	zero, err := a.w.constant(0)
	if err != nil {
		return u256{}, err
	}

	// Cross products land at bit 64: their low words carry into the low
	// half, their high words into the high half.
	lo, c1, err := a.add(p00, u128{hi: p01.lo, lo: zero})
	if err != nil {
		return u256{}, err
	}
	lo, c2, err := a.add(lo, u128{hi: p10.lo, lo: zero})
	if err != nil {
		return u256{}, err
	}
	hi, _, err := a.add(p11, u128{hi: zero, lo: p01.hi})
	if err != nil {
		return u256{}, err
	}
	if hi, _, err = a.add(hi, u128{hi: zero, lo: p10.hi}); err != nil {
		return u256{}, err
	}
	for _, c := range []Bool{c1, c2} {
		bit, err := a.w.fromBool(c)
		if err != nil {
			return u256{}, err
		}
		if hi, _, err = a.add(hi, u128{hi: zero, lo: bit}); err != nil {
			return u256{}, err
		}
	}
	return u256{hi: hi, lo: lo}, nil
}

// arith256 performs unsigned 256-bit arithmetic on 128-bit limbs.
type arith256 struct {
	u     *arith128
	preds *BoolEvaluator
}

func newArith256(alu ALU) *arith256 {
	return &arith256{
		u:     newArith128(alu),
		preds: NewBoolEvaluator(alu),
	}
}

func (a *arith256) constant(w [4]uint64) (u256, error) {
	hi, err := a.u.constant(w[3], w[2])
	if err != nil {
		return u256{}, err
	}
	lo, err := a.u.constant(w[1], w[0])
	if err != nil {
		return u256{}, err
	}
	return u256{hi: hi, lo: lo}, nil
}

func (a *arith256) limbwise(op Op, x, y u256) (u256, error) {
	hi, err := a.u.limbwise(op, x.hi, y.hi)
	if err != nil {
		return u256{}, err
	}
	lo, err := a.u.limbwise(op, x.lo, y.lo)
	if err != nil {
		return u256{}, err
	}
	return u256{hi: hi, lo: lo}, nil
}

func (a *arith256) not(x u256) (u256, error) {
	hi, err := a.u.not(x.hi)
	if err != nil {
		return u256{}, err
	}
	lo, err := a.u.not(x.lo)
	if err != nil {
		return u256{}, err
	}
	return u256{hi: hi, lo: lo}, nil
}

func (a *arith256) mux(pred Bool, x, y u256) (u256, error) {
	hi, err := a.u.mux(pred, x.hi, y.hi)
	if err != nil {
		return u256{}, err
	}
	lo, err := a.u.mux(pred, x.lo, y.lo)
	if err != nil {
		return u256{}, err
	}
	return u256{hi: hi, lo: lo}, nil
}

func (a *arith256) eq(x, y u256) (Bool, error) {
	hi, err := a.u.eq(x.hi, y.hi)
	if err != nil {
		return Bool{}, err
	}
	lo, err := a.u.eq(x.lo, y.lo)
	if err != nil {
		return Bool{}, err
	}
	return a.preds.And(hi, lo)
}

func (a *arith256) ne(x, y u256) (Bool, error) {
	hi, err := a.u.ne(x.hi, y.hi)
	if err != nil {
		return Bool{}, err
	}
	lo, err := a.u.ne(x.lo, y.lo)
	if err != nil {
		return Bool{}, err
	}
	return a.preds.Or(hi, lo)
}

// mul returns x * y mod 2^256.
func (a *arith256) mul(x, y u256) (u256, error) {
	p, err := a.u.mulWide(x.lo, y.lo)
	if err != nil {
		return u256{}, err
	}
	c1, err := a.u.mul(x.lo, y.hi)
	if err != nil {
		return u256{}, err
	}
	c2, err := a.u.mul(x.hi, y.lo)
	if err != nil {
		return u256{}, err
	}
	hi, _, err := a.u.add(p.hi, c1)
	if err != nil {
		return u256{}, err
	}
	if hi, _, err = a.u.add(hi, c2); err != nil {
		return u256{}, err
	}
	return u256{hi: hi, lo: p.lo}, nil
}

// shl returns x << n for a public n, carrying bits across limbs.
func (a *arith256) shl(x u256, n uint) (u256, error) {
	switch {
	case n == 0:
		return x, nil
	case n >= 256:
		return a.constant([4]uint64{})
	case n >= 128:
		hi, err := a.u.shl(x.lo, n-128)
		if err != nil {
			return u256{}, err
		}
		lo, err := a.u.constant(0, 0)
		if err != nil {
			return u256{}, err
		}
		return u256{hi: hi, lo: lo}, nil
	}
	hi, err := a.u.shl(x.hi, n)
	if err != nil {
		return u256{}, err
	}
	carried, err := a.u.shr(x.lo, 128-n)
	if err != nil {
		return u256{}, err
	}
	if hi, err = a.u.limbwise(OpOr, hi, carried); err != nil {
		return u256{}, err
	}
	lo, err := a.u.shl(x.lo, n)
	if err != nil {
		return u256{}, err
	}
	return u256{hi: hi, lo: lo}, nil
}

// shr returns the logical right shift x >> n for a public n.
func (a *arith256) shr(x u256, n uint) (u256, error) {
	switch {
	case n == 0:
		return x, nil
	case n >= 256:
		return a.constant([4]uint64{})
	case n >= 128:
		lo, err := a.u.shr(x.hi, n-128)
		if err != nil {
			return u256{}, err
		}
		hi, err := a.u.constant(0, 0)
		if err != nil {
			return u256{}, err
		}
		return u256{hi: hi, lo: lo}, nil
	}
	lo, err := a.u.shr(x.lo, n)
	if err != nil {
		return u256{}, err
	}
	carried, err := a.u.shl(x.hi, 128-n)
	if err != nil {
		return u256{}, err
	}
	if lo, err = a.u.limbwise(OpOr, lo, carried); err != nil {
		return u256{}, err
	}
	hi, err := a.u.shr(x.hi, n)
	if err != nil {
		return u256{}, err
	}
	return u256{hi: hi, lo: lo}, nil
}
