// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// This file implements two's-complement signed words of native width on top
// of the unsigned ALU. Add, sub, mul, bitwise ops and equality are
// bit-identical to their unsigned counterparts and are delegated directly;
// only ordering, division and arithmetic right shift need sign logic.

package mpcint

import (
	"unsafe"

	"github.com/ethereum/go-ethereum/log"
)

// Signed is the set of native signed widths.
type Signed interface {
	~int8 | ~int16 | ~int32 | ~int64
}

// Int is a secret signed word. Its handle is the same handle an unsigned
// word of the same width would have.
type Int[T Signed] struct {
	handle Handle
}

// Handle returns the underlying ALU handle.
func (x Int[T]) Handle() Handle {
	return x.handle
}

// IntOf reinterprets an unsigned word handle of the matching width as signed.
func IntOf[T Signed](h Handle) Int[T] {
	return Int[T]{handle: h}
}

// Option configures an evaluator.
type Option func(*options)

type options struct {
	signedDivision bool
}

// WithSignedDivision makes 8, 16 and 32-bit division correct operand signs
// like 64-bit division does. Without it those widths divide the raw bit
// patterns as unsigned words.
func WithSignedDivision() Option {
	return func(o *options) {
		o.signedDivision = true
	}
}

// Evaluator implements signed operations for the width of T.
type Evaluator[T Signed] struct {
	w     words
	preds *BoolEvaluator
	bits  uint
	opts  options
}

type (
	Int8Evaluator  = Evaluator[int8]
	Int16Evaluator = Evaluator[int16]
	Int32Evaluator = Evaluator[int32]
	Int64Evaluator = Evaluator[int64]
)

// NewEvaluator creates a signed evaluator for T over alu.
func NewEvaluator[T Signed](alu ALU, opts ...Option) *Evaluator[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	t := typeOf[T]()
	if t == Uint64 {
		o.signedDivision = true
	}
	return &Evaluator[T]{
		w:     words{alu: alu, typ: t},
		preds: NewBoolEvaluator(alu),
		bits:  uint(t.NumBits()),
		opts:  o,
	}
}

func typeOf[T Signed]() Type {
	var zero T
	switch unsafe.Sizeof(zero) {
	case 1:
		return Uint8
	case 2:
		return Uint16
	case 4:
		return Uint32
	default:
		return Uint64
	}
}

// Type returns the unsigned word type backing T.
func (e *Evaluator[T]) Type() Type {
	return e.w.typ
}

func (e *Evaluator[T]) wrap(h Handle, err error) (Int[T], error) {
	if err != nil {
		return Int[T]{}, err
	}
	return Int[T]{handle: h}, nil
}

// Add returns a + b, wrapping on overflow.
func (e *Evaluator[T]) Add(a, b Int[T]) (Int[T], error) {
	return e.wrap(e.w.binary(OpAdd, a.handle, b.handle))
}

// Sub returns a - b, wrapping on overflow.
func (e *Evaluator[T]) Sub(a, b Int[T]) (Int[T], error) {
	return e.wrap(e.w.binary(OpSub, a.handle, b.handle))
}

// Mul returns a * b, wrapping on overflow.
func (e *Evaluator[T]) Mul(a, b Int[T]) (Int[T], error) {
	return e.wrap(e.w.binary(OpMul, a.handle, b.handle))
}

// And returns a & b
func (e *Evaluator[T]) And(a, b Int[T]) (Int[T], error) {
	return e.wrap(e.w.binary(OpAnd, a.handle, b.handle))
}

// Or returns a | b
func (e *Evaluator[T]) Or(a, b Int[T]) (Int[T], error) {
	return e.wrap(e.w.binary(OpOr, a.handle, b.handle))
}

// Xor returns a ^ b
func (e *Evaluator[T]) Xor(a, b Int[T]) (Int[T], error) {
	return e.wrap(e.w.binary(OpXor, a.handle, b.handle))
}

// Not returns ^a
func (e *Evaluator[T]) Not(a Int[T]) (Int[T], error) {
	return e.wrap(e.w.not(a.handle))
}

// Neg returns -a. Negating the minimum value yields the minimum value.
func (e *Evaluator[T]) Neg(a Int[T]) (Int[T], error) {
	return e.wrap(e.w.neg(a.handle))
}

// Eq returns a == b
func (e *Evaluator[T]) Eq(a, b Int[T]) (Bool, error) {
	return e.w.compare(OpEq, a.handle, b.handle)
}

// Ne returns a != b
func (e *Evaluator[T]) Ne(a, b Int[T]) (Bool, error) {
	return e.w.compare(OpNe, a.handle, b.handle)
}

// signs extracts the sign of both operands with a logical shift by bits-1
// and reports whether exactly one of them is negative.
func (e *Evaluator[T]) signs(a, b Int[T]) (aNeg, bNeg, differ Bool, err error) {
	sa, err := e.w.shr(a.handle, e.bits-1)
	if err != nil {
		return
	}
	sb, err := e.w.shr(b.handle, e.bits-1)
	if err != nil {
		return
	}
	if aNeg, err = e.w.comparePublic(OpEq, sa, 1); err != nil {
		return
	}
	if bNeg, err = e.w.comparePublic(OpEq, sb, 1); err != nil {
		return
	}
	differ, err = e.preds.Xor(aNeg, bNeg)
	return
}

// Gt returns a > b (signed). When signs differ the non-negative operand is
// greater; otherwise the unsigned order of the bit patterns is the signed
// order.
func (e *Evaluator[T]) Gt(a, b Int[T]) (Bool, error) {
	_, bNeg, differ, err := e.signs(a, b)
	if err != nil {
		return Bool{}, err
	}
	ugt, err := e.w.compare(OpGt, a.handle, b.handle)
	if err != nil {
		return Bool{}, err
	}
	return e.preds.Mux(differ, bNeg, ugt)
}

// Lt returns a < b (signed).
func (e *Evaluator[T]) Lt(a, b Int[T]) (Bool, error) {
	aNeg, _, differ, err := e.signs(a, b)
	if err != nil {
		return Bool{}, err
	}
	ult, err := e.w.compare(OpLt, a.handle, b.handle)
	if err != nil {
		return Bool{}, err
	}
	return e.preds.Mux(differ, aNeg, ult)
}

// Ge returns a >= b (signed).
func (e *Evaluator[T]) Ge(a, b Int[T]) (Bool, error) {
	gt, err := e.Gt(a, b)
	if err != nil {
		return Bool{}, err
	}
	eq, err := e.Eq(a, b)
	if err != nil {
		return Bool{}, err
	}
	return e.preds.Or(gt, eq)
}

// Le returns a <= b (signed).
func (e *Evaluator[T]) Le(a, b Int[T]) (Bool, error) {
	lt, err := e.Lt(a, b)
	if err != nil {
		return Bool{}, err
	}
	eq, err := e.Eq(a, b)
	if err != nil {
		return Bool{}, err
	}
	return e.preds.Or(lt, eq)
}

// Min returns the smaller of a and b.
func (e *Evaluator[T]) Min(a, b Int[T]) (Int[T], error) {
	lt, err := e.Lt(a, b)
	if err != nil {
		return Int[T]{}, err
	}
	return e.Mux(lt, a, b)
}

// Max returns the larger of a and b.
func (e *Evaluator[T]) Max(a, b Int[T]) (Int[T], error) {
	gt, err := e.Gt(a, b)
	if err != nil {
		return Int[T]{}, err
	}
	return e.Mux(gt, a, b)
}

// Mux returns a if pred is true, b otherwise.
func (e *Evaluator[T]) Mux(pred Bool, a, b Int[T]) (Int[T], error) {
	return e.wrap(e.w.mux(pred, a.handle, b.handle))
}

// IsNegative returns a < 0, computed as (a & MIN) == MIN.
func (e *Evaluator[T]) IsNegative(a Int[T]) (Bool, error) {
	masked, err := e.w.binaryPublic(OpAnd, a.handle, e.w.typ.SignBit())
	if err != nil {
		return Bool{}, err
	}
	return e.w.comparePublic(OpEq, masked, e.w.typ.SignBit())
}

// Abs returns |a|. The minimum value maps to itself, which reads as the
// correct magnitude when reinterpreted as unsigned.
func (e *Evaluator[T]) Abs(a Int[T]) (Int[T], error) {
	neg, err := e.IsNegative(a)
	if err != nil {
		return Int[T]{}, err
	}
	return e.abs(a, neg)
}

func (e *Evaluator[T]) abs(a Int[T], neg Bool) (Int[T], error) {
	na, err := e.w.neg(a.handle)
	if err != nil {
		return Int[T]{}, err
	}
	return e.wrap(e.w.mux(neg, na, a.handle))
}

// Div returns a / b truncated toward zero. Division by zero returns 0 and
// MIN / -1 wraps to MIN. At 8, 16 and 32 bits the operands are divided as
// unsigned words unless the evaluator was built WithSignedDivision.
func (e *Evaluator[T]) Div(a, b Int[T]) (Int[T], error) {
	if !e.opts.signedDivision {
		return e.wrap(e.w.binary(OpDiv, a.handle, b.handle))
	}

	aNeg, err := e.IsNegative(a)
	if err != nil {
		return Int[T]{}, err
	}
	bNeg, err := e.IsNegative(b)
	if err != nil {
		return Int[T]{}, err
	}
	absA, err := e.abs(a, aNeg)
	if err != nil {
		return Int[T]{}, err
	}
	absB, err := e.abs(b, bNeg)
	if err != nil {
		return Int[T]{}, err
	}
	q, err := e.w.binary(OpDiv, absA.handle, absB.handle)
	if err != nil {
		return Int[T]{}, err
	}
	flip, err := e.preds.Xor(aNeg, bNeg)
	if err != nil {
		return Int[T]{}, err
	}
	negQ, err := e.w.neg(q)
	if err != nil {
		return Int[T]{}, err
	}
	return e.wrap(e.w.mux(flip, negQ, q))
}

// Shl returns a << n. Shifting left does not depend on the sign.
func (e *Evaluator[T]) Shl(a Int[T], n uint) (Int[T], error) {
	return e.wrap(e.w.shl(a.handle, n))
}

// Shr returns the arithmetic right shift a >> n. The sign bit of a is
// revealed to decide whether the vacated high bits are filled with ones;
// no other bit of a leaves the secret domain.
func (e *Evaluator[T]) Shr(a Int[T], n uint) (Int[T], error) {
	if n == 0 {
		return a, nil
	}
	shifted, err := e.w.shr(a.handle, n)
	if err != nil {
		return Int[T]{}, err
	}
	negative, err := e.revealSign(a.handle)
	if err != nil {
		return Int[T]{}, err
	}
	if !negative {
		return Int[T]{handle: shifted}, nil
	}
	return e.wrap(e.w.binaryPublic(OpOr, shifted, fillMask(e.w.typ, n)))
}

// revealSign decrypts the top bit of h. This is a deliberate one-bit leak.
func (e *Evaluator[T]) revealSign(h Handle) (bool, error) {
	top, err := e.w.shr(h, e.bits-1)
	if err != nil {
		return false, err
	}
	bit, err := e.w.decrypt(top)
	if err != nil {
		return false, err
	}
	log.Debug("Revealed sign bit", "type", e.w.typ)
	return bit == 1, nil
}
