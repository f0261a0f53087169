// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/luxfi/mpcint"
	"github.com/luxfi/mpcint/internal/storage"
)

// Session is an ALU view of an engine that records every word it creates.
// Release deletes them, so a computation whose results leave as ciphertext
// does not keep its intermediates in storage. Handles from other sessions
// remain readable but are never released by this one.
type Session struct {
	e *Engine

	mu      sync.Mutex
	handles []mpcint.Handle
}

// Session opens a new session on e.
func (e *Engine) Session() *Session {
	return &Session{e: e}
}

func (s *Session) keep(h mpcint.Handle, err error) (mpcint.Handle, error) {
	if err != nil {
		return h, err
	}
	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()
	return h, nil
}

// Len returns the number of words created and not yet released.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Release deletes every word the session created. The session stays usable
// afterwards and starts recording from empty.
func (s *Session) Release(ctx context.Context) error {
	s.mu.Lock()
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()

	var errs []error
	for _, h := range handles {
		err := s.e.store.Delete(ctx, storage.Handle(h))
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, fmt.Errorf("release %s: %w", h, err))
		}
	}
	log.Trace("Released session words", "count", len(handles), "failed", len(errs))
	return errors.Join(errs...)
}

func (s *Session) ValidateCiphertext(t mpcint.Type, ct mpcint.Ciphertext, sig []byte) (mpcint.Handle, error) {
	return s.keep(s.e.ValidateCiphertext(t, ct, sig))
}

func (s *Session) OnBoard(t mpcint.Type, ct mpcint.Ciphertext) (mpcint.Handle, error) {
	return s.keep(s.e.OnBoard(t, ct))
}

func (s *Session) OffBoard(t mpcint.Type, h mpcint.Handle) (mpcint.Ciphertext, error) {
	return s.e.OffBoard(t, h)
}

func (s *Session) OffBoardToUser(t mpcint.Type, h mpcint.Handle, user common.Address) (mpcint.Ciphertext, error) {
	return s.e.OffBoardToUser(t, h, user)
}

func (s *Session) SetPublic(t mpcint.Type, v uint64) (mpcint.Handle, error) {
	return s.keep(s.e.SetPublic(t, v))
}

func (s *Session) Binary(op mpcint.Op, args mpcint.Operands, a, b mpcint.Handle) (mpcint.Handle, error) {
	return s.keep(s.e.Binary(op, args, a, b))
}

func (s *Session) Mux(t mpcint.Type, pred, a, b mpcint.Handle) (mpcint.Handle, error) {
	return s.keep(s.e.Mux(t, pred, a, b))
}

func (s *Session) Shift(op mpcint.Op, t mpcint.Type, h mpcint.Handle, n uint) (mpcint.Handle, error) {
	return s.keep(s.e.Shift(op, t, h, n))
}

func (s *Session) Not(t mpcint.Type, h mpcint.Handle) (mpcint.Handle, error) {
	return s.keep(s.e.Not(t, h))
}

func (s *Session) Decrypt(t mpcint.Type, h mpcint.Handle) (uint64, error) {
	return s.e.Decrypt(t, h)
}

var _ mpcint.ALU = (*Session)(nil)
