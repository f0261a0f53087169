// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package mpcint

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Type is the word type of a secret value held by the ALU. Only unsigned
// native widths exist at the ALU level; signedness is a property of the
// evaluator applied to a handle, not of the handle itself.
type Type uint8

const (
	Ebool  Type = 0
	Uint8  Type = 1
	Uint16 Type = 2
	Uint32 Type = 3
	Uint64 Type = 4
)

// NumBits returns the number of bits for the type
func (t Type) NumBits() int {
	switch t {
	case Ebool:
		return 1
	case Uint8:
		return 8
	case Uint16:
		return 16
	case Uint32:
		return 32
	case Uint64:
		return 64
	default:
		return 0
	}
}

// Mask returns the all-ones pattern of the type.
func (t Type) Mask() uint64 {
	bits := t.NumBits()
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}

// SignBit returns the pattern with only the top bit set, which is also the
// minimum value of the signed interpretation.
func (t Type) SignBit() uint64 {
	bits := t.NumBits()
	if bits == 0 {
		return 0
	}
	return uint64(1) << (bits - 1)
}

// Valid reports whether t is a known word type.
func (t Type) Valid() bool {
	return t.NumBits() != 0
}

func (t Type) String() string {
	switch t {
	case Ebool:
		return "bool"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	default:
		return "unknown"
	}
}

// Common errors.
var (
	ErrInvalidSignature  = errors.New("invalid ciphertext signature")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrTypeMismatch      = errors.New("word type mismatch")
	ErrUnknownHandle     = errors.New("unknown handle")
	ErrUnknownUser       = errors.New("unknown user")
	ErrOutOfRange        = errors.New("value out of range")
)

// Handle is an opaque reference to a secret word. It carries no plaintext
// bits; only the ALU that produced it can resolve it.
type Handle [32]byte

// IsZero reports whether h is the zero handle, which no ALU ever produces.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// Hex returns the 0x-prefixed hex form of the handle.
func (h Handle) Hex() string {
	return hexutil.Encode(h[:])
}

func (h Handle) String() string {
	return h.Hex()
}

// Ciphertext is the network-transportable encrypted form of a word. The
// encoding is owned by the ALU and carries the word type.
type Ciphertext []byte

// Hex returns the 0x-prefixed hex form of the ciphertext.
func (ct Ciphertext) Hex() string {
	return hexutil.Encode(ct)
}

// ParseCiphertext decodes a 0x-prefixed hex ciphertext.
func ParseCiphertext(s string) (Ciphertext, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return Ciphertext(b), nil
}

// InputTicket is an externally supplied ciphertext together with the
// signature proving it was produced for this word type. It must be validated
// before it yields a handle.
type InputTicket struct {
	Ciphertext Ciphertext
	Signature  []byte
}

// OutputBundle is a word exported twice: once in the network's own
// encryption domain and once re-encrypted for a specific recipient.
type OutputBundle struct {
	Ciphertext     Ciphertext
	UserCiphertext Ciphertext
}
