// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package mpcint

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// Call names recorded by a Meter for the non-Binary ALU entry points.
const (
	CallValidate   = "validate"
	CallOnBoard    = "onboard"
	CallOffBoard   = "offboard"
	CallOffBoardTo = "offboard_user"
	CallSetPublic  = "set_public"
	CallMux        = "mux"
	CallNot        = "not"
	CallDecrypt    = "decrypt"
)

// Meter wraps an ALU and counts the calls passing through it. Every call is
// forwarded unchanged and in order.
type Meter struct {
	alu ALU

	mu      sync.Mutex
	calls   map[string]uint64
	reveals map[Type]uint64
}

// NewMeter returns a Meter forwarding to alu.
func NewMeter(alu ALU) *Meter {
	return &Meter{
		alu:     alu,
		calls:   make(map[string]uint64),
		reveals: make(map[Type]uint64),
	}
}

func (m *Meter) record(name string, t Type) {
	m.mu.Lock()
	m.calls[name]++
	m.mu.Unlock()
	log.Trace("ALU call", "op", name, "type", t)
}

// Count returns how many times the named call was made.
func (m *Meter) Count(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// Reveals returns the total number of words decrypted.
func (m *Meter) Reveals() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n uint64
	for _, c := range m.reveals {
		n += c
	}
	return n
}

// RevealedBits returns the number of plaintext bits decrypted, counting each
// word at the full width of its type.
func (m *Meter) RevealedBits() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n uint64
	for t, c := range m.reveals {
		n += c * uint64(t.NumBits())
	}
	return n
}

// CallCount is one row of a Meter snapshot.
type CallCount struct {
	Name  string
	Count uint64
}

// Snapshot returns the call counts sorted by name.
func (m *Meter) Snapshot() []CallCount {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]CallCount, 0, len(m.calls))
	for name, c := range m.calls {
		out = append(out, CallCount{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset clears all counters.
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = make(map[string]uint64)
	m.reveals = make(map[Type]uint64)
}

func (m *Meter) ValidateCiphertext(t Type, ct Ciphertext, sig []byte) (Handle, error) {
	m.record(CallValidate, t)
	return m.alu.ValidateCiphertext(t, ct, sig)
}

func (m *Meter) OnBoard(t Type, ct Ciphertext) (Handle, error) {
	m.record(CallOnBoard, t)
	return m.alu.OnBoard(t, ct)
}

func (m *Meter) OffBoard(t Type, h Handle) (Ciphertext, error) {
	m.record(CallOffBoard, t)
	return m.alu.OffBoard(t, h)
}

func (m *Meter) OffBoardToUser(t Type, h Handle, user common.Address) (Ciphertext, error) {
	m.record(CallOffBoardTo, t)
	return m.alu.OffBoardToUser(t, h, user)
}

func (m *Meter) SetPublic(t Type, v uint64) (Handle, error) {
	m.record(CallSetPublic, t)
	return m.alu.SetPublic(t, v)
}

func (m *Meter) Binary(op Op, args Operands, a, b Handle) (Handle, error) {
	m.record(op.String(), args.Type)
	return m.alu.Binary(op, args, a, b)
}

func (m *Meter) Mux(t Type, pred, a, b Handle) (Handle, error) {
	m.record(CallMux, t)
	return m.alu.Mux(t, pred, a, b)
}

func (m *Meter) Shift(op Op, t Type, h Handle, n uint) (Handle, error) {
	m.record(op.String(), t)
	return m.alu.Shift(op, t, h, n)
}

func (m *Meter) Not(t Type, h Handle) (Handle, error) {
	m.record(CallNot, t)
	return m.alu.Not(t, h)
}

func (m *Meter) Decrypt(t Type, h Handle) (uint64, error) {
	m.record(CallDecrypt, t)
	v, err := m.alu.Decrypt(t, h)
	if err == nil {
		m.mu.Lock()
		m.reveals[t]++
		m.mu.Unlock()
	}
	return v, err
}

var _ ALU = (*Meter)(nil)
