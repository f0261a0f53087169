// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package engine is an in-process implementation of the secret word ALU.
// Words never leave the engine in the clear except through Decrypt: each is
// sealed under a key derived from the network key and kept in a storage
// backend, and handles are the content hashes of the sealed records.
package engine

import (
	"context"
	"crypto/cipher"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/luxfi/mpcint"
	"github.com/luxfi/mpcint/internal/storage"
)

// ErrUnsupportedOp is returned when an operation is issued through the
// wrong entry point, such as a shift through Binary.
var ErrUnsupportedOp = errors.New("unsupported operation")

// Config holds engine settings.
type Config struct {
	// NetworkKey is the network's key material. A nil key generates one.
	NetworkKey *NetworkKey
	// Storage holds sealed words. Nil uses an unbounded memory store.
	Storage storage.Storage
	// RequireRegisteredSigner rejects input tickets signed by unknown users.
	RequireRegisteredSigner bool
}

// Engine implements mpcint.ALU.
type Engine struct {
	key           *NetworkKey
	store         storage.Storage
	requireSigner bool

	mu    sync.RWMutex
	users map[common.Address]cipher.AEAD
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	key := cfg.NetworkKey
	if key == nil {
		var err error
		if key, err = GenerateNetworkKey(); err != nil {
			return nil, err
		}
	}
	store := cfg.Storage
	if store == nil {
		store = storage.NewMemoryStorage(0)
	}
	return &Engine{
		key:           key,
		store:         store,
		requireSigner: cfg.RequireRegisteredSigner,
		users:         make(map[common.Address]cipher.AEAD),
	}, nil
}

// NetworkKey returns the engine's network key.
func (e *Engine) NetworkKey() *NetworkKey {
	return e.key
}

// RegisterUser records the symmetric key outputs for user are sealed under.
func (e *Engine) RegisterUser(user common.Address, secret []byte) error {
	aead, err := chacha20poly1305.New(secret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	e.mu.Lock()
	e.users[user] = aead
	e.mu.Unlock()
	log.Debug("Registered user", "address", user)
	return nil
}

func (e *Engine) user(addr common.Address) (cipher.AEAD, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	aead, ok := e.users[addr]
	return aead, ok
}

// Close releases the storage backend.
func (e *Engine) Close() error {
	return e.store.Close()
}

func (e *Engine) put(t mpcint.Type, v uint64) (mpcint.Handle, error) {
	data, err := seal(e.key.storage, t, v, nil)
	if err != nil {
		return mpcint.Handle{}, err
	}
	h, err := e.store.Store(context.Background(), data)
	if err != nil {
		return mpcint.Handle{}, fmt.Errorf("store word: %w", err)
	}
	log.Trace("Stored word", "type", t, "handle", mpcint.Handle(h))
	return mpcint.Handle(h), nil
}

func (e *Engine) get(t mpcint.Type, h mpcint.Handle) (uint64, error) {
	data, err := e.store.Load(context.Background(), storage.Handle(h))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", mpcint.ErrUnknownHandle, h)
		}
		return 0, fmt.Errorf("load word: %w", err)
	}
	wt, v, err := open(e.key.storage, data, nil)
	if err != nil {
		return 0, err
	}
	if wt != t {
		return 0, fmt.Errorf("%w: %s holds %s, want %s", mpcint.ErrTypeMismatch, h, wt, t)
	}
	return v, nil
}

func checkType(t mpcint.Type) error {
	if !t.Valid() {
		return fmt.Errorf("%w: unknown type %d", mpcint.ErrTypeMismatch, t)
	}
	return nil
}

func (e *Engine) ValidateCiphertext(t mpcint.Type, ct mpcint.Ciphertext, sig []byte) (mpcint.Handle, error) {
	pub, err := crypto.SigToPub(TicketDigest(t, ct), sig)
	if err != nil {
		return mpcint.Handle{}, fmt.Errorf("%w: %v", mpcint.ErrInvalidSignature, err)
	}
	signer := crypto.PubkeyToAddress(*pub)
	if e.requireSigner {
		if _, ok := e.user(signer); !ok {
			return mpcint.Handle{}, fmt.Errorf("%w: signer %s not registered", mpcint.ErrInvalidSignature, signer)
		}
	}
	h, err := e.OnBoard(t, ct)
	if err != nil {
		return mpcint.Handle{}, err
	}
	log.Debug("Validated input ticket", "type", t, "signer", signer, "handle", h)
	return h, nil
}

func (e *Engine) OnBoard(t mpcint.Type, ct mpcint.Ciphertext) (mpcint.Handle, error) {
	if err := checkType(t); err != nil {
		return mpcint.Handle{}, err
	}
	wt, v, err := e.key.Decrypt(ct)
	if err != nil {
		return mpcint.Handle{}, err
	}
	if wt != t {
		return mpcint.Handle{}, fmt.Errorf("%w: ciphertext holds %s, want %s", mpcint.ErrTypeMismatch, wt, t)
	}
	return e.put(t, v)
}

func (e *Engine) OffBoard(t mpcint.Type, h mpcint.Handle) (mpcint.Ciphertext, error) {
	v, err := e.get(t, h)
	if err != nil {
		return nil, err
	}
	return e.key.Encrypt(t, v)
}

func (e *Engine) OffBoardToUser(t mpcint.Type, h mpcint.Handle, user common.Address) (mpcint.Ciphertext, error) {
	aead, ok := e.user(user)
	if !ok {
		return nil, fmt.Errorf("%w: %s", mpcint.ErrUnknownUser, user)
	}
	v, err := e.get(t, h)
	if err != nil {
		return nil, err
	}
	ct, err := seal(aead, t, v, user[:])
	if err != nil {
		return nil, err
	}
	return mpcint.Ciphertext(ct), nil
}

func (e *Engine) SetPublic(t mpcint.Type, v uint64) (mpcint.Handle, error) {
	if err := checkType(t); err != nil {
		return mpcint.Handle{}, err
	}
	return e.put(t, v&t.Mask())
}

func (e *Engine) Binary(op mpcint.Op, args mpcint.Operands, a, b mpcint.Handle) (mpcint.Handle, error) {
	t := args.Type
	if err := checkType(t); err != nil {
		return mpcint.Handle{}, err
	}
	x, err := e.get(t, a)
	if err != nil {
		return mpcint.Handle{}, err
	}
	y, err := e.get(t, b)
	if err != nil {
		return mpcint.Handle{}, err
	}
	v, err := compute(op, t, x, y)
	if err != nil {
		return mpcint.Handle{}, err
	}
	if op.IsComparison() {
		return e.put(mpcint.Ebool, v)
	}
	return e.put(t, v)
}

// compute evaluates op on unsigned plaintexts of type t.
func compute(op mpcint.Op, t mpcint.Type, x, y uint64) (uint64, error) {
	mask := t.Mask()
	switch op {
	case mpcint.OpAdd:
		return (x + y) & mask, nil
	case mpcint.OpSub:
		return (x - y) & mask, nil
	case mpcint.OpMul:
		return (x * y) & mask, nil
	case mpcint.OpDiv:
		if y == 0 {
			return 0, nil
		}
		return x / y, nil
	case mpcint.OpAnd:
		return x & y, nil
	case mpcint.OpOr:
		return x | y, nil
	case mpcint.OpXor:
		return x ^ y, nil
	case mpcint.OpEq:
		return bit(x == y), nil
	case mpcint.OpNe:
		return bit(x != y), nil
	case mpcint.OpGt:
		return bit(x > y), nil
	case mpcint.OpLt:
		return bit(x < y), nil
	case mpcint.OpGe:
		return bit(x >= y), nil
	case mpcint.OpLe:
		return bit(x <= y), nil
	}
	return 0, fmt.Errorf("%w: %s is not a binary operation", ErrUnsupportedOp, op)
}

func bit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (e *Engine) Mux(t mpcint.Type, pred, a, b mpcint.Handle) (mpcint.Handle, error) {
	p, err := e.get(mpcint.Ebool, pred)
	if err != nil {
		return mpcint.Handle{}, err
	}
	x, err := e.get(t, a)
	if err != nil {
		return mpcint.Handle{}, err
	}
	y, err := e.get(t, b)
	if err != nil {
		return mpcint.Handle{}, err
	}
	if p == 1 {
		return e.put(t, x)
	}
	return e.put(t, y)
}

func (e *Engine) Shift(op mpcint.Op, t mpcint.Type, h mpcint.Handle, n uint) (mpcint.Handle, error) {
	x, err := e.get(t, h)
	if err != nil {
		return mpcint.Handle{}, err
	}
	if n >= uint(t.NumBits()) {
		return e.put(t, 0)
	}
	switch op {
	case mpcint.OpShl:
		return e.put(t, (x<<n)&t.Mask())
	case mpcint.OpShr:
		return e.put(t, x>>n)
	}
	return mpcint.Handle{}, fmt.Errorf("%w: %s is not a shift", ErrUnsupportedOp, op)
}

func (e *Engine) Not(t mpcint.Type, h mpcint.Handle) (mpcint.Handle, error) {
	x, err := e.get(t, h)
	if err != nil {
		return mpcint.Handle{}, err
	}
	return e.put(t, ^x&t.Mask())
}

func (e *Engine) Decrypt(t mpcint.Type, h mpcint.Handle) (uint64, error) {
	return e.get(t, h)
}

var _ mpcint.ALU = (*Engine)(nil)
