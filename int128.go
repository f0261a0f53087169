// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// This file implements signed 128-bit words as a pair of 64-bit limbs. The
// high limb is signed and alone carries the sign of the value; the low limb
// is an unsigned bit pattern and is always compared and shifted as such.

package mpcint

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// Int128 is a secret signed 128-bit word.
type Int128 struct {
	v u128
}

// Ciphertext128 is the network form of a 128-bit word, one ciphertext per limb.
type Ciphertext128 struct {
	High Ciphertext
	Low  Ciphertext
}

// InputTicket128 is a signed external input of a 128-bit word.
type InputTicket128 struct {
	High InputTicket
	Low  InputTicket
}

// OutputBundle128 is a 128-bit word exported to the network and to a user.
type OutputBundle128 struct {
	Ciphertext     Ciphertext128
	UserCiphertext Ciphertext128
}

// Evaluator128 implements signed 128-bit operations.
type Evaluator128 struct {
	hi    *Evaluator[int64]
	u     *arith128
	preds *BoolEvaluator
}

// NewEvaluator128 creates a 128-bit evaluator over alu.
func NewEvaluator128(alu ALU) *Evaluator128 {
	return &Evaluator128{
		hi:    NewEvaluator[int64](alu),
		u:     newArith128(alu),
		preds: NewBoolEvaluator(alu),
	}
}

func (e *Evaluator128) high(x Int128) Int[int64] {
	return Int[int64]{handle: x.v.hi}
}

func (e *Evaluator128) wrap(v u128, err error) (Int128, error) {
	if err != nil {
		return Int128{}, err
	}
	return Int128{v: v}, nil
}

// Add returns a + b. The carry out of the low limbs is the unsigned
// comparison sum < a.low and is folded into the high limb with a mux.
func (e *Evaluator128) Add(a, b Int128) (Int128, error) {
	lo, err := e.u.w.binary(OpAdd, a.v.lo, b.v.lo)
	if err != nil {
		return Int128{}, err
	}
	carry, err := e.u.w.compare(OpLt, lo, a.v.lo)
	if err != nil {
		return Int128{}, err
	}
	hi, err := e.hi.Add(e.high(a), e.high(b))
	if err != nil {
		return Int128{}, err
	}
	hi1, err := e.u.w.binaryPublic(OpAdd, hi.handle, 1)
	if err != nil {
		return Int128{}, err
	}
	h, err := e.u.w.mux(carry, hi1, hi.handle)
	if err != nil {
		return Int128{}, err
	}
	return Int128{v: u128{hi: h, lo: lo}}, nil
}

// Sub returns a - b, borrowing from the high limb when a.low < b.low.
func (e *Evaluator128) Sub(a, b Int128) (Int128, error) {
	lo, err := e.u.w.binary(OpSub, a.v.lo, b.v.lo)
	if err != nil {
		return Int128{}, err
	}
	borrow, err := e.u.w.compare(OpLt, a.v.lo, b.v.lo)
	if err != nil {
		return Int128{}, err
	}
	hi, err := e.hi.Sub(e.high(a), e.high(b))
	if err != nil {
		return Int128{}, err
	}
	hi1, err := e.u.w.binaryPublic(OpSub, hi.handle, 1)
	if err != nil {
		return Int128{}, err
	}
	h, err := e.u.w.mux(borrow, hi1, hi.handle)
	if err != nil {
		return Int128{}, err
	}
	return Int128{v: u128{hi: h, lo: lo}}, nil
}

// Not returns ^a
func (e *Evaluator128) Not(a Int128) (Int128, error) {
	return e.wrap(e.u.not(a.v))
}

// Neg returns -a as ^a + 1. Negating the minimum value yields the minimum.
func (e *Evaluator128) Neg(a Int128) (Int128, error) {
	na, err := e.Not(a)
	if err != nil {
		return Int128{}, err
	}
	one, err := e.u.constant(0, 1)
	if err != nil {
		return Int128{}, err
	}
	return e.Add(na, Int128{v: one})
}

// IsNegative returns a < 0, read from the high limb.
func (e *Evaluator128) IsNegative(a Int128) (Bool, error) {
	return e.hi.IsNegative(e.high(a))
}

func (e *Evaluator128) abs(a Int128, neg Bool) (Int128, error) {
	na, err := e.Neg(a)
	if err != nil {
		return Int128{}, err
	}
	return e.Mux(neg, na, a)
}

// Mul returns a * b. Magnitudes are multiplied as unsigned 128-bit values
// and the product is negated when exactly one operand is negative.
func (e *Evaluator128) Mul(a, b Int128) (Int128, error) {
	aNeg, err := e.IsNegative(a)
	if err != nil {
		return Int128{}, err
	}
	bNeg, err := e.IsNegative(b)
	if err != nil {
		return Int128{}, err
	}
	absA, err := e.abs(a, aNeg)
	if err != nil {
		return Int128{}, err
	}
	absB, err := e.abs(b, bNeg)
	if err != nil {
		return Int128{}, err
	}
	p, err := e.u.mul(absA.v, absB.v)
	if err != nil {
		return Int128{}, err
	}
	flip, err := e.preds.Xor(aNeg, bNeg)
	if err != nil {
		return Int128{}, err
	}
	negP, err := e.Neg(Int128{v: p})
	if err != nil {
		return Int128{}, err
	}
	return e.Mux(flip, negP, Int128{v: p})
}

// Div returns a / b truncated toward zero. Both operands are revealed and
// the quotient is computed in the clear, then injected back as a public
// value. Division by zero returns 0 and MIN / -1 returns MIN.
func (e *Evaluator128) Div(a, b Int128) (Int128, error) {
	x, err := e.reveal(a)
	if err != nil {
		return Int128{}, err
	}
	y, err := e.reveal(b)
	if err != nil {
		return Int128{}, err
	}
	log.Debug("Revealed operands for division", "bits", 128)
	q := signedDiv(signExtend(x, 128), signExtend(y, 128))
	return e.wrap(e.u.constant(q[1], q[0]))
}

// And returns a & b
func (e *Evaluator128) And(a, b Int128) (Int128, error) {
	return e.wrap(e.u.limbwise(OpAnd, a.v, b.v))
}

// Or returns a | b
func (e *Evaluator128) Or(a, b Int128) (Int128, error) {
	return e.wrap(e.u.limbwise(OpOr, a.v, b.v))
}

// Xor returns a ^ b
func (e *Evaluator128) Xor(a, b Int128) (Int128, error) {
	return e.wrap(e.u.limbwise(OpXor, a.v, b.v))
}

// Eq returns a == b, the AND of both limb equalities.
func (e *Evaluator128) Eq(a, b Int128) (Bool, error) {
	return e.u.eq(a.v, b.v)
}

// Ne returns a != b, the OR of both limb inequalities.
func (e *Evaluator128) Ne(a, b Int128) (Bool, error) {
	return e.u.ne(a.v, b.v)
}

// compare orders a and b by their signed high limbs and breaks ties with
// the unsigned order of the low limbs.
func (e *Evaluator128) compare(a, b Int128, signed func(x, y Int[int64]) (Bool, error), low Op) (Bool, error) {
	hiCmp, err := signed(e.high(a), e.high(b))
	if err != nil {
		return Bool{}, err
	}
	hiEq, err := e.u.w.compare(OpEq, a.v.hi, b.v.hi)
	if err != nil {
		return Bool{}, err
	}
	loCmp, err := e.u.w.compare(low, a.v.lo, b.v.lo)
	if err != nil {
		return Bool{}, err
	}
	return e.preds.Mux(hiEq, loCmp, hiCmp)
}

// Gt returns a > b (signed).
func (e *Evaluator128) Gt(a, b Int128) (Bool, error) {
	return e.compare(a, b, e.hi.Gt, OpGt)
}

// Lt returns a < b (signed).
func (e *Evaluator128) Lt(a, b Int128) (Bool, error) {
	return e.compare(a, b, e.hi.Lt, OpLt)
}

// Ge returns a >= b (signed).
func (e *Evaluator128) Ge(a, b Int128) (Bool, error) {
	return e.compare(a, b, e.hi.Gt, OpGe)
}

// Le returns a <= b (signed).
func (e *Evaluator128) Le(a, b Int128) (Bool, error) {
	return e.compare(a, b, e.hi.Lt, OpLe)
}

// Min returns the smaller of a and b.
func (e *Evaluator128) Min(a, b Int128) (Int128, error) {
	lt, err := e.Lt(a, b)
	if err != nil {
		return Int128{}, err
	}
	return e.Mux(lt, a, b)
}

// Max returns the larger of a and b.
func (e *Evaluator128) Max(a, b Int128) (Int128, error) {
	gt, err := e.Gt(a, b)
	if err != nil {
		return Int128{}, err
	}
	return e.Mux(gt, a, b)
}

// Mux returns a if pred is true, b otherwise.
func (e *Evaluator128) Mux(pred Bool, a, b Int128) (Int128, error) {
	return e.wrap(e.u.mux(pred, a.v, b.v))
}

// Shl returns a << n, carrying bits from the low limb into the high limb.
func (e *Evaluator128) Shl(a Int128, n uint) (Int128, error) {
	return e.wrap(e.u.shl(a.v, n))
}

// Shr returns the arithmetic right shift a >> n. Only the sign bit of a is
// revealed, once, to choose the fill of the vacated high bits.
func (e *Evaluator128) Shr(a Int128, n uint) (Int128, error) {
	if n == 0 {
		return a, nil
	}
	negative, err := e.hi.revealSign(a.v.hi)
	if err != nil {
		return Int128{}, err
	}
	return e.wrap(e.shr(a.v, n, negative))
}

// shr shifts x right by n with a sign already known to the caller.
func (e *Evaluator128) shr(x u128, n uint, negative bool) (u128, error) {
	var fill uint64
	if negative {
		fill = ^uint64(0)
	}
	switch {
	case n == 0:
		return x, nil
	case n >= 128:
		return e.u.constant(fill, fill)
	case n >= 64:
		lo, err := e.u.w.shr(x.hi, n-64)
		if err != nil {
			return u128{}, err
		}
		if negative && n > 64 {
			if lo, err = e.u.w.binaryPublic(OpOr, lo, fillMask(Uint64, n-64)); err != nil {
				return u128{}, err
			}
		}
		hi, err := e.u.w.constant(fill)
		if err != nil {
			return u128{}, err
		}
		return u128{hi: hi, lo: lo}, nil
	}
	r, err := e.u.shr(x, n)
	if err != nil {
		return u128{}, err
	}
	if negative {
		if r.hi, err = e.u.w.binaryPublic(OpOr, r.hi, fillMask(Uint64, n)); err != nil {
			return u128{}, err
		}
	}
	return r, nil
}

// Validate checks both limbs of an input ticket. The import fails if either
// limb fails.
func (e *Evaluator128) Validate(it InputTicket128) (Int128, error) {
	hi, err := e.u.w.alu.ValidateCiphertext(Uint64, it.High.Ciphertext, it.High.Signature)
	if err != nil {
		return Int128{}, fmt.Errorf("validate int128 high: %w", err)
	}
	lo, err := e.u.w.alu.ValidateCiphertext(Uint64, it.Low.Ciphertext, it.Low.Signature)
	if err != nil {
		return Int128{}, fmt.Errorf("validate int128 low: %w", err)
	}
	return Int128{v: u128{hi: hi, lo: lo}}, nil
}

// Onboard imports a network ciphertext.
func (e *Evaluator128) Onboard(ct Ciphertext128) (Int128, error) {
	hi, err := e.u.w.alu.OnBoard(Uint64, ct.High)
	if err != nil {
		return Int128{}, fmt.Errorf("onboard int128 high: %w", err)
	}
	lo, err := e.u.w.alu.OnBoard(Uint64, ct.Low)
	if err != nil {
		return Int128{}, fmt.Errorf("onboard int128 low: %w", err)
	}
	return Int128{v: u128{hi: hi, lo: lo}}, nil
}

// Offboard exports a to the network's encryption domain.
func (e *Evaluator128) Offboard(a Int128) (Ciphertext128, error) {
	hi, err := e.u.w.alu.OffBoard(Uint64, a.v.hi)
	if err != nil {
		return Ciphertext128{}, fmt.Errorf("offboard int128 high: %w", err)
	}
	lo, err := e.u.w.alu.OffBoard(Uint64, a.v.lo)
	if err != nil {
		return Ciphertext128{}, fmt.Errorf("offboard int128 low: %w", err)
	}
	return Ciphertext128{High: hi, Low: lo}, nil
}

// OffboardToUser exports a re-encrypted for user.
func (e *Evaluator128) OffboardToUser(a Int128, user common.Address) (Ciphertext128, error) {
	hi, err := e.u.w.alu.OffBoardToUser(Uint64, a.v.hi, user)
	if err != nil {
		return Ciphertext128{}, fmt.Errorf("offboard int128 high to %s: %w", user, err)
	}
	lo, err := e.u.w.alu.OffBoardToUser(Uint64, a.v.lo, user)
	if err != nil {
		return Ciphertext128{}, fmt.Errorf("offboard int128 low to %s: %w", user, err)
	}
	return Ciphertext128{High: hi, Low: lo}, nil
}

// OffboardCombined exports a both to the network domain and to user.
func (e *Evaluator128) OffboardCombined(a Int128, user common.Address) (OutputBundle128, error) {
	ct, err := e.Offboard(a)
	if err != nil {
		return OutputBundle128{}, err
	}
	uct, err := e.OffboardToUser(a, user)
	if err != nil {
		return OutputBundle128{}, err
	}
	return OutputBundle128{Ciphertext: ct, UserCiphertext: uct}, nil
}

// SetPublic injects a known value in [-2^127, 2^127).
func (e *Evaluator128) SetPublic(v *big.Int) (Int128, error) {
	z, err := ToWords(v, 128)
	if err != nil {
		return Int128{}, err
	}
	return e.wrap(e.u.constant(z[1], z[0]))
}

// Decrypt reveals a as (high << 64) | low.
func (e *Evaluator128) Decrypt(a Int128) (*big.Int, error) {
	z, err := e.reveal(a)
	if err != nil {
		return nil, err
	}
	return FromWords(z, 128), nil
}

func (e *Evaluator128) reveal(a Int128) (uint256.Int, error) {
	hi, err := e.u.w.decrypt(a.v.hi)
	if err != nil {
		return uint256.Int{}, err
	}
	lo, err := e.u.w.decrypt(a.v.lo)
	if err != nil {
		return uint256.Int{}, err
	}
	return uint256.Int{lo, hi, 0, 0}, nil
}
