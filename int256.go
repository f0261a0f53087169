// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package mpcint

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// Int256 is a secret signed 256-bit word: a signed 128-bit high limb over
// an unsigned 128-bit low limb.
type Int256 struct {
	v u256
}

// Ciphertext256 is the network form of a 256-bit word.
type Ciphertext256 struct {
	High Ciphertext128
	Low  Ciphertext128
}

// InputTicket256 is a signed external input of a 256-bit word.
type InputTicket256 struct {
	High InputTicket128
	Low  InputTicket128
}

// OutputBundle256 is a 256-bit word exported to the network and to a user.
type OutputBundle256 struct {
	Ciphertext     Ciphertext256
	UserCiphertext Ciphertext256
}

// Evaluator256 implements signed 256-bit operations.
type Evaluator256 struct {
	hi    *Evaluator128
	u     *arith256
	preds *BoolEvaluator
}

// NewEvaluator256 creates a 256-bit evaluator over alu.
func NewEvaluator256(alu ALU) *Evaluator256 {
	return &Evaluator256{
		hi:    NewEvaluator128(alu),
		u:     newArith256(alu),
		preds: NewBoolEvaluator(alu),
	}
}

func high(x Int256) Int128 {
	return Int128{v: x.v.hi}
}

func (e *Evaluator256) wrap(v u256, err error) (Int256, error) {
	if err != nil {
		return Int256{}, err
	}
	return Int256{v: v}, nil
}

func (e *Evaluator256) one128() (Int128, error) {
	v, err := e.u.u.constant(0, 1)
	if err != nil {
		return Int128{}, err
	}
	return Int128{v: v}, nil
}

// Add returns a + b, folding the carry out of the low limb into the high
// limb.
func (e *Evaluator256) Add(a, b Int256) (Int256, error) {
	lo, carry, err := e.u.u.add(a.v.lo, b.v.lo)
	if err != nil {
		return Int256{}, err
	}
	hi, err := e.hi.Add(high(a), high(b))
	if err != nil {
		return Int256{}, err
	}
	one, err := e.one128()
	if err != nil {
		return Int256{}, err
	}
	hi1, err := e.hi.Add(hi, one)
	if err != nil {
		return Int256{}, err
	}
	if hi, err = e.hi.Mux(carry, hi1, hi); err != nil {
		return Int256{}, err
	}
	return Int256{v: u256{hi: hi.v, lo: lo}}, nil
}

// Sub returns a - b, borrowing from the high limb.
func (e *Evaluator256) Sub(a, b Int256) (Int256, error) {
	lo, borrow, err := e.u.u.sub(a.v.lo, b.v.lo)
	if err != nil {
		return Int256{}, err
	}
	hi, err := e.hi.Sub(high(a), high(b))
	if err != nil {
		return Int256{}, err
	}
	one, err := e.one128()
	if err != nil {
		return Int256{}, err
	}
	hi1, err := e.hi.Sub(hi, one)
	if err != nil {
		return Int256{}, err
	}
	if hi, err = e.hi.Mux(borrow, hi1, hi); err != nil {
		return Int256{}, err
	}
	return Int256{v: u256{hi: hi.v, lo: lo}}, nil
}

// Not returns ^a
func (e *Evaluator256) Not(a Int256) (Int256, error) {
	return e.wrap(e.u.not(a.v))
}

// Neg returns -a as ^a + 1. Negating the minimum value yields the minimum.
func (e *Evaluator256) Neg(a Int256) (Int256, error) {
	na, err := e.Not(a)
	if err != nil {
		return Int256{}, err
	}
	one, err := e.u.constant([4]uint64{1})
	if err != nil {
		return Int256{}, err
	}
	return e.Add(na, Int256{v: one})
}

// IsNegative returns a < 0.
func (e *Evaluator256) IsNegative(a Int256) (Bool, error) {
	return e.hi.IsNegative(high(a))
}

// Mul returns a * b computed on magnitudes with a final sign flip.
func (e *Evaluator256) Mul(a, b Int256) (Int256, error) {
	aNeg, err := e.IsNegative(a)
	if err != nil {
		return Int256{}, err
	}
	bNeg, err := e.IsNegative(b)
	if err != nil {
		return Int256{}, err
	}
	absA, err := e.abs(a, aNeg)
	if err != nil {
		return Int256{}, err
	}
	absB, err := e.abs(b, bNeg)
	if err != nil {
		return Int256{}, err
	}
	p, err := e.u.mul(absA.v, absB.v)
	if err != nil {
		return Int256{}, err
	}
	flip, err := e.preds.Xor(aNeg, bNeg)
	if err != nil {
		return Int256{}, err
	}
	negP, err := e.Neg(Int256{v: p})
	if err != nil {
		return Int256{}, err
	}
	return e.Mux(flip, negP, Int256{v: p})
}

func (e *Evaluator256) abs(a Int256, neg Bool) (Int256, error) {
	na, err := e.Neg(a)
	if err != nil {
		return Int256{}, err
	}
	return e.Mux(neg, na, a)
}

// Div returns a / b truncated toward zero. As at 128 bits, both operands
// are revealed and the quotient is injected back as a public value.
func (e *Evaluator256) Div(a, b Int256) (Int256, error) {
	x, err := e.reveal(a)
	if err != nil {
		return Int256{}, err
	}
	y, err := e.reveal(b)
	if err != nil {
		return Int256{}, err
	}
	log.Debug("Revealed operands for division", "bits", 256)
	q := signedDiv(x, y)
	return e.wrap(e.u.constant(q))
}

// And returns a & b
func (e *Evaluator256) And(a, b Int256) (Int256, error) {
	return e.wrap(e.u.limbwise(OpAnd, a.v, b.v))
}

// Or returns a | b
func (e *Evaluator256) Or(a, b Int256) (Int256, error) {
	return e.wrap(e.u.limbwise(OpOr, a.v, b.v))
}

// Xor returns a ^ b
func (e *Evaluator256) Xor(a, b Int256) (Int256, error) {
	return e.wrap(e.u.limbwise(OpXor, a.v, b.v))
}

// Eq returns a == b
func (e *Evaluator256) Eq(a, b Int256) (Bool, error) {
	return e.u.eq(a.v, b.v)
}

// Ne returns a != b
func (e *Evaluator256) Ne(a, b Int256) (Bool, error) {
	return e.u.ne(a.v, b.v)
}

// order returns the signed comparison of the high limbs and their equality.
func (e *Evaluator256) order(a, b Int256, greater bool) (hiCmp, hiEq Bool, err error) {
	if greater {
		hiCmp, err = e.hi.Gt(high(a), high(b))
	} else {
		hiCmp, err = e.hi.Lt(high(a), high(b))
	}
	if err != nil {
		return
	}
	hiEq, err = e.u.u.eq(a.v.hi, b.v.hi)
	return
}

// Gt returns a > b (signed).
func (e *Evaluator256) Gt(a, b Int256) (Bool, error) {
	hiGt, hiEq, err := e.order(a, b, true)
	if err != nil {
		return Bool{}, err
	}
	loGt, err := e.u.u.lt(b.v.lo, a.v.lo)
	if err != nil {
		return Bool{}, err
	}
	return e.preds.Mux(hiEq, loGt, hiGt)
}

// Lt returns a < b (signed).
func (e *Evaluator256) Lt(a, b Int256) (Bool, error) {
	hiLt, hiEq, err := e.order(a, b, false)
	if err != nil {
		return Bool{}, err
	}
	loLt, err := e.u.u.lt(a.v.lo, b.v.lo)
	if err != nil {
		return Bool{}, err
	}
	return e.preds.Mux(hiEq, loLt, hiLt)
}

// Ge returns a >= b (signed), the low-limb tie broken by !(a.low < b.low).
func (e *Evaluator256) Ge(a, b Int256) (Bool, error) {
	hiGt, hiEq, err := e.order(a, b, true)
	if err != nil {
		return Bool{}, err
	}
	loLt, err := e.u.u.lt(a.v.lo, b.v.lo)
	if err != nil {
		return Bool{}, err
	}
	loGe, err := e.preds.Not(loLt)
	if err != nil {
		return Bool{}, err
	}
	return e.preds.Mux(hiEq, loGe, hiGt)
}

// Le returns a <= b (signed).
func (e *Evaluator256) Le(a, b Int256) (Bool, error) {
	hiLt, hiEq, err := e.order(a, b, false)
	if err != nil {
		return Bool{}, err
	}
	loGt, err := e.u.u.lt(b.v.lo, a.v.lo)
	if err != nil {
		return Bool{}, err
	}
	loLe, err := e.preds.Not(loGt)
	if err != nil {
		return Bool{}, err
	}
	return e.preds.Mux(hiEq, loLe, hiLt)
}

// Min returns the smaller of a and b.
func (e *Evaluator256) Min(a, b Int256) (Int256, error) {
	lt, err := e.Lt(a, b)
	if err != nil {
		return Int256{}, err
	}
	return e.Mux(lt, a, b)
}

// Max returns the larger of a and b.
func (e *Evaluator256) Max(a, b Int256) (Int256, error) {
	gt, err := e.Gt(a, b)
	if err != nil {
		return Int256{}, err
	}
	return e.Mux(gt, a, b)
}

// Mux returns a if pred is true, b otherwise.
func (e *Evaluator256) Mux(pred Bool, a, b Int256) (Int256, error) {
	return e.wrap(e.u.mux(pred, a.v, b.v))
}

// Shl returns a << n
func (e *Evaluator256) Shl(a Int256, n uint) (Int256, error) {
	return e.wrap(e.u.shl(a.v, n))
}

// Shr returns the arithmetic right shift a >> n. The sign bit is revealed
// once, from the top 64-bit word.
func (e *Evaluator256) Shr(a Int256, n uint) (Int256, error) {
	if n == 0 {
		return a, nil
	}
	negative, err := e.hi.hi.revealSign(a.v.hi.hi)
	if err != nil {
		return Int256{}, err
	}
	var fill uint64
	if negative {
		fill = ^uint64(0)
	}
	switch {
	case n >= 256:
		return e.wrap(e.u.constant([4]uint64{fill, fill, fill, fill}))
	case n >= 128:
		lo, err := e.hi.shr(a.v.hi, n-128, negative)
		if err != nil {
			return Int256{}, err
		}
		hi, err := e.u.u.constant(fill, fill)
		if err != nil {
			return Int256{}, err
		}
		return Int256{v: u256{hi: hi, lo: lo}}, nil
	}
	r, err := e.u.shr(a.v, n)
	if err != nil {
		return Int256{}, err
	}
	if negative {
		var mask u128
		if n < 64 {
			mask, err = e.u.u.constant(fillMask(Uint64, n), 0)
		} else {
			mask, err = e.u.u.constant(^uint64(0), fillMask(Uint64, n-64))
		}
		if err != nil {
			return Int256{}, err
		}
		if r.hi, err = e.u.u.limbwise(OpOr, r.hi, mask); err != nil {
			return Int256{}, err
		}
	}
	return Int256{v: r}, nil
}

// Validate checks all four word tickets. The import fails if any fails.
func (e *Evaluator256) Validate(it InputTicket256) (Int256, error) {
	hi, err := e.hi.Validate(it.High)
	if err != nil {
		return Int256{}, fmt.Errorf("validate int256 high: %w", err)
	}
	lo, err := e.hi.Validate(it.Low)
	if err != nil {
		return Int256{}, fmt.Errorf("validate int256 low: %w", err)
	}
	return Int256{v: u256{hi: hi.v, lo: lo.v}}, nil
}

// Onboard imports a network ciphertext.
func (e *Evaluator256) Onboard(ct Ciphertext256) (Int256, error) {
	hi, err := e.hi.Onboard(ct.High)
	if err != nil {
		return Int256{}, fmt.Errorf("onboard int256 high: %w", err)
	}
	lo, err := e.hi.Onboard(ct.Low)
	if err != nil {
		return Int256{}, fmt.Errorf("onboard int256 low: %w", err)
	}
	return Int256{v: u256{hi: hi.v, lo: lo.v}}, nil
}

// Offboard exports a to the network's encryption domain.
func (e *Evaluator256) Offboard(a Int256) (Ciphertext256, error) {
	hi, err := e.hi.Offboard(high(a))
	if err != nil {
		return Ciphertext256{}, err
	}
	lo, err := e.hi.Offboard(Int128{v: a.v.lo})
	if err != nil {
		return Ciphertext256{}, err
	}
	return Ciphertext256{High: hi, Low: lo}, nil
}

// OffboardToUser exports a re-encrypted for user.
func (e *Evaluator256) OffboardToUser(a Int256, user common.Address) (Ciphertext256, error) {
	hi, err := e.hi.OffboardToUser(high(a), user)
	if err != nil {
		return Ciphertext256{}, err
	}
	lo, err := e.hi.OffboardToUser(Int128{v: a.v.lo}, user)
	if err != nil {
		return Ciphertext256{}, err
	}
	return Ciphertext256{High: hi, Low: lo}, nil
}

// OffboardCombined exports a both to the network domain and to user.
func (e *Evaluator256) OffboardCombined(a Int256, user common.Address) (OutputBundle256, error) {
	ct, err := e.Offboard(a)
	if err != nil {
		return OutputBundle256{}, err
	}
	uct, err := e.OffboardToUser(a, user)
	if err != nil {
		return OutputBundle256{}, err
	}
	return OutputBundle256{Ciphertext: ct, UserCiphertext: uct}, nil
}

// SetPublic injects a known value in [-2^255, 2^255).
func (e *Evaluator256) SetPublic(v *big.Int) (Int256, error) {
	z, err := ToWords(v, 256)
	if err != nil {
		return Int256{}, err
	}
	return e.wrap(e.u.constant(z))
}

// Decrypt reveals a.
func (e *Evaluator256) Decrypt(a Int256) (*big.Int, error) {
	z, err := e.reveal(a)
	if err != nil {
		return nil, err
	}
	return FromWords(z, 256), nil
}

func (e *Evaluator256) reveal(a Int256) (uint256.Int, error) {
	var z uint256.Int
	for i, h := range []Handle{a.v.lo.lo, a.v.lo.hi, a.v.hi.lo, a.v.hi.hi} {
		w, err := e.u.u.w.decrypt(h)
		if err != nil {
			return uint256.Int{}, err
		}
		z[i] = w
	}
	return z, nil
}
