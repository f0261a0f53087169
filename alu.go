// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package mpcint

import "github.com/ethereum/go-ethereum/common"

// Op identifies an ALU operation.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpXor
	OpEq
	OpNe
	OpGt
	OpLt
	OpLe
	OpGe
	OpShl
	OpShr
)

var opNames = [...]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "div",
	OpAnd: "and",
	OpOr:  "or",
	OpXor: "xor",
	OpEq:  "eq",
	OpNe:  "ne",
	OpGt:  "gt",
	OpLt:  "lt",
	OpLe:  "le",
	OpGe:  "ge",
	OpShl: "shl",
	OpShr: "shr",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "unknown"
}

// IsComparison reports whether op produces a Bool word.
func (op Op) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpLt, OpLe, OpGe:
		return true
	}
	return false
}

// Scope tells the ALU whether an operand is a secret word or a public
// constant injected with SetPublic. It affects cost, never the result.
type Scope uint8

const (
	Secret Scope = iota
	Public
)

// Operands describes the operands of a binary ALU operation.
type Operands struct {
	Type Type
	LHS  Scope
	RHS  Scope
}

// Secrets describes two secret operands of type t.
func Secrets(t Type) Operands {
	return Operands{Type: t, LHS: Secret, RHS: Secret}
}

// WithPublicRHS describes a secret left operand and a public right operand.
func WithPublicRHS(t Type) Operands {
	return Operands{Type: t, LHS: Secret, RHS: Public}
}

// ALU is the secret unsigned word engine the signed evaluators are built on.
// Every call either succeeds or aborts the enclosing computation. Decrypt is
// the only call that moves plaintext out of the secret domain.
type ALU interface {
	// ValidateCiphertext checks the signature of an externally supplied
	// ciphertext and imports it. It fails closed.
	ValidateCiphertext(t Type, ct Ciphertext, sig []byte) (Handle, error)
	// OnBoard imports a ciphertext produced in the network's own domain.
	OnBoard(t Type, ct Ciphertext) (Handle, error)
	// OffBoard exports a word to the network's encryption domain.
	OffBoard(t Type, h Handle) (Ciphertext, error)
	// OffBoardToUser exports a word re-encrypted for the given recipient.
	OffBoardToUser(t Type, h Handle, user common.Address) (Ciphertext, error)
	// SetPublic injects a known value. Bits above the type width are dropped.
	SetPublic(t Type, v uint64) (Handle, error)
	// Binary applies an arithmetic, bitwise or comparison operation.
	// Comparisons return Bool words. Division by zero yields zero.
	Binary(op Op, args Operands, a, b Handle) (Handle, error)
	// Mux returns a when pred is true and b otherwise.
	Mux(t Type, pred, a, b Handle) (Handle, error)
	// Shift applies OpShl or OpShr by a public amount. Amounts of at least
	// the type width yield zero.
	Shift(op Op, t Type, h Handle, n uint) (Handle, error)
	// Not returns the bitwise complement.
	Not(t Type, h Handle) (Handle, error)
	// Decrypt reveals the plaintext of a word.
	Decrypt(t Type, h Handle) (uint64, error)
}
