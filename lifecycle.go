// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package mpcint

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// Validate checks an input ticket and imports it as a secret word.
// An invalid signature yields no handle.
func (e *Evaluator[T]) Validate(it InputTicket) (Int[T], error) {
	h, err := e.w.alu.ValidateCiphertext(e.w.typ, it.Ciphertext, it.Signature)
	if err != nil {
		return Int[T]{}, fmt.Errorf("validate %s: %w", e.w.typ, err)
	}
	return Int[T]{handle: h}, nil
}

// Onboard imports a network ciphertext.
func (e *Evaluator[T]) Onboard(ct Ciphertext) (Int[T], error) {
	h, err := e.w.alu.OnBoard(e.w.typ, ct)
	if err != nil {
		return Int[T]{}, fmt.Errorf("onboard %s: %w", e.w.typ, err)
	}
	return Int[T]{handle: h}, nil
}

// Offboard exports a to the network's encryption domain.
func (e *Evaluator[T]) Offboard(a Int[T]) (Ciphertext, error) {
	ct, err := e.w.alu.OffBoard(e.w.typ, a.handle)
	if err != nil {
		return nil, fmt.Errorf("offboard %s: %w", e.w.typ, err)
	}
	return ct, nil
}

// OffboardToUser exports a re-encrypted for user.
func (e *Evaluator[T]) OffboardToUser(a Int[T], user common.Address) (Ciphertext, error) {
	ct, err := e.w.alu.OffBoardToUser(e.w.typ, a.handle, user)
	if err != nil {
		return nil, fmt.Errorf("offboard %s to %s: %w", e.w.typ, user, err)
	}
	return ct, nil
}

// OffboardCombined exports a both to the network domain and to user.
func (e *Evaluator[T]) OffboardCombined(a Int[T], user common.Address) (OutputBundle, error) {
	ct, err := e.Offboard(a)
	if err != nil {
		return OutputBundle{}, err
	}
	uct, err := e.OffboardToUser(a, user)
	if err != nil {
		return OutputBundle{}, err
	}
	return OutputBundle{Ciphertext: ct, UserCiphertext: uct}, nil
}

// SetPublic injects a known value. The two's-complement bit pattern is
// stored as is.
func (e *Evaluator[T]) SetPublic(v T) (Int[T], error) {
	return e.wrap(e.w.constant(uint64(v)))
}

// Decrypt reveals a. The unsigned plaintext is reinterpreted as signed.
func (e *Evaluator[T]) Decrypt(a Int[T]) (T, error) {
	v, err := e.w.decrypt(a.handle)
	if err != nil {
		return 0, err
	}
	log.Debug("Revealed word", "type", e.w.typ)
	return T(v), nil
}
