// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package mpcint

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Bool is a secret predicate, the result of every comparison.
type Bool struct {
	handle Handle
}

// Handle returns the underlying ALU handle.
func (b Bool) Handle() Handle {
	return b.handle
}

// BoolOf wraps a Bool handle produced by the ALU.
func BoolOf(h Handle) Bool {
	return Bool{handle: h}
}

// BoolEvaluator combines secret predicates without revealing them.
type BoolEvaluator struct {
	w words
}

// NewBoolEvaluator creates a predicate evaluator over alu.
func NewBoolEvaluator(alu ALU) *BoolEvaluator {
	return &BoolEvaluator{w: words{alu: alu, typ: Ebool}}
}

// And returns a AND b
func (e *BoolEvaluator) And(a, b Bool) (Bool, error) {
	return e.w.compare(OpAnd, a.handle, b.handle)
}

// Or returns a OR b
func (e *BoolEvaluator) Or(a, b Bool) (Bool, error) {
	return e.w.compare(OpOr, a.handle, b.handle)
}

// Xor returns a XOR b
func (e *BoolEvaluator) Xor(a, b Bool) (Bool, error) {
	return e.w.compare(OpXor, a.handle, b.handle)
}

// Eq returns a == b
func (e *BoolEvaluator) Eq(a, b Bool) (Bool, error) {
	return e.w.compare(OpEq, a.handle, b.handle)
}

// Ne returns a != b
func (e *BoolEvaluator) Ne(a, b Bool) (Bool, error) {
	return e.w.compare(OpNe, a.handle, b.handle)
}

// Not returns NOT a
func (e *BoolEvaluator) Not(a Bool) (Bool, error) {
	h, err := e.w.not(a.handle)
	if err != nil {
		return Bool{}, err
	}
	return Bool{handle: h}, nil
}

// Mux returns a if pred is true, b otherwise.
func (e *BoolEvaluator) Mux(pred, a, b Bool) (Bool, error) {
	h, err := e.w.mux(pred, a.handle, b.handle)
	if err != nil {
		return Bool{}, err
	}
	return Bool{handle: h}, nil
}

// SetPublic injects a known predicate.
func (e *BoolEvaluator) SetPublic(v bool) (Bool, error) {
	var bit uint64
	if v {
		bit = 1
	}
	h, err := e.w.constant(bit)
	if err != nil {
		return Bool{}, err
	}
	return Bool{handle: h}, nil
}

// Validate imports a signed input ticket.
func (e *BoolEvaluator) Validate(it InputTicket) (Bool, error) {
	h, err := e.w.alu.ValidateCiphertext(Ebool, it.Ciphertext, it.Signature)
	if err != nil {
		return Bool{}, fmt.Errorf("validate %s: %w", Ebool, err)
	}
	return Bool{handle: h}, nil
}

// Onboard imports a network ciphertext.
func (e *BoolEvaluator) Onboard(ct Ciphertext) (Bool, error) {
	h, err := e.w.alu.OnBoard(Ebool, ct)
	if err != nil {
		return Bool{}, fmt.Errorf("onboard %s: %w", Ebool, err)
	}
	return Bool{handle: h}, nil
}

// Offboard exports a predicate to the network domain.
func (e *BoolEvaluator) Offboard(a Bool) (Ciphertext, error) {
	ct, err := e.w.alu.OffBoard(Ebool, a.handle)
	if err != nil {
		return nil, fmt.Errorf("offboard %s: %w", Ebool, err)
	}
	return ct, nil
}

// OffboardToUser exports a predicate re-encrypted for user.
func (e *BoolEvaluator) OffboardToUser(a Bool, user common.Address) (Ciphertext, error) {
	ct, err := e.w.alu.OffBoardToUser(Ebool, a.handle, user)
	if err != nil {
		return nil, fmt.Errorf("offboard %s to %s: %w", Ebool, user, err)
	}
	return ct, nil
}

// Decrypt reveals a predicate.
func (e *BoolEvaluator) Decrypt(a Bool) (bool, error) {
	v, err := e.w.decrypt(a.handle)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
