// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package mpcint

import "fmt"

// words issues unsigned ALU calls on a single word type. It is the unsigned
// counterpart every signed evaluator delegates to.
type words struct {
	alu ALU
	typ Type
}

func (w words) binary(op Op, a, b Handle) (Handle, error) {
	h, err := w.alu.Binary(op, Secrets(w.typ), a, b)
	if err != nil {
		return Handle{}, fmt.Errorf("%s %s: %w", w.typ, op, err)
	}
	return h, nil
}

// binaryPublic applies op with a public right operand.
func (w words) binaryPublic(op Op, a Handle, v uint64) (Handle, error) {
	c, err := w.constant(v)
	if err != nil {
		return Handle{}, err
	}
	h, err := w.alu.Binary(op, WithPublicRHS(w.typ), a, c)
	if err != nil {
		return Handle{}, fmt.Errorf("%s %s: %w", w.typ, op, err)
	}
	return h, nil
}

func (w words) compare(op Op, a, b Handle) (Bool, error) {
	h, err := w.binary(op, a, b)
	if err != nil {
		return Bool{}, err
	}
	return Bool{handle: h}, nil
}

func (w words) comparePublic(op Op, a Handle, v uint64) (Bool, error) {
	h, err := w.binaryPublic(op, a, v)
	if err != nil {
		return Bool{}, err
	}
	return Bool{handle: h}, nil
}

func (w words) constant(v uint64) (Handle, error) {
	h, err := w.alu.SetPublic(w.typ, v&w.typ.Mask())
	if err != nil {
		return Handle{}, fmt.Errorf("%s set public: %w", w.typ, err)
	}
	return h, nil
}

func (w words) shl(a Handle, n uint) (Handle, error) {
	h, err := w.alu.Shift(OpShl, w.typ, a, n)
	if err != nil {
		return Handle{}, fmt.Errorf("%s shl %d: %w", w.typ, n, err)
	}
	return h, nil
}

func (w words) shr(a Handle, n uint) (Handle, error) {
	h, err := w.alu.Shift(OpShr, w.typ, a, n)
	if err != nil {
		return Handle{}, fmt.Errorf("%s shr %d: %w", w.typ, n, err)
	}
	return h, nil
}

func (w words) not(a Handle) (Handle, error) {
	h, err := w.alu.Not(w.typ, a)
	if err != nil {
		return Handle{}, fmt.Errorf("%s not: %w", w.typ, err)
	}
	return h, nil
}

// neg returns the two's-complement negation 0 - a. It wraps at the minimum.
func (w words) neg(a Handle) (Handle, error) {
	zero, err := w.constant(0)
	if err != nil {
		return Handle{}, err
	}
	h, err := w.alu.Binary(OpSub, Operands{Type: w.typ, LHS: Public, RHS: Secret}, zero, a)
	if err != nil {
		return Handle{}, fmt.Errorf("%s neg: %w", w.typ, err)
	}
	return h, nil
}

func (w words) mux(pred Bool, a, b Handle) (Handle, error) {
	h, err := w.alu.Mux(w.typ, pred.handle, a, b)
	if err != nil {
		return Handle{}, fmt.Errorf("%s mux: %w", w.typ, err)
	}
	return h, nil
}

// fromBool converts a predicate into a word holding 1 or 0.
func (w words) fromBool(p Bool) (Handle, error) {
	one, err := w.constant(1)
	if err != nil {
		return Handle{}, err
	}
	zero, err := w.constant(0)
	if err != nil {
		return Handle{}, err
	}
	return w.mux(p, one, zero)
}

func (w words) decrypt(a Handle) (uint64, error) {
	v, err := w.alu.Decrypt(w.typ, a)
	if err != nil {
		return 0, fmt.Errorf("%s decrypt: %w", w.typ, err)
	}
	return v & w.typ.Mask(), nil
}

// fillMask returns the pattern of the n top bits set, used to sign-extend
// a logical right shift by n.
func fillMask(t Type, n uint) uint64 {
	bits := uint(t.NumBits())
	switch {
	case n == 0:
		return 0
	case n >= bits:
		return t.Mask()
	default:
		return (t.Mask() << (bits - n)) & t.Mask()
	}
}
