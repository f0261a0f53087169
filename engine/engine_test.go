// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/mpcint"
	"github.com/luxfi/mpcint/internal/storage"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	k, err := crypto.GenerateKey()
	require.NoError(t, err)
	return k
}

func TestBinaryOps(t *testing.T) {
	e := newTestEngine(t, Config{})

	tests := []struct {
		op   mpcint.Op
		t    mpcint.Type
		a, b uint64
		want uint64
	}{
		{mpcint.OpAdd, mpcint.Uint8, 200, 100, 44},
		{mpcint.OpSub, mpcint.Uint8, 1, 2, 0xFF},
		{mpcint.OpMul, mpcint.Uint16, 300, 300, 90000 & 0xFFFF},
		{mpcint.OpDiv, mpcint.Uint32, 7, 2, 3},
		{mpcint.OpDiv, mpcint.Uint32, 7, 0, 0},
		{mpcint.OpAnd, mpcint.Uint64, 0xF0F0, 0xFF00, 0xF000},
		{mpcint.OpOr, mpcint.Uint64, 0xF0, 0x0F, 0xFF},
		{mpcint.OpXor, mpcint.Ebool, 1, 1, 0},
		{mpcint.OpEq, mpcint.Uint8, 5, 5, 1},
		{mpcint.OpNe, mpcint.Uint8, 5, 5, 0},
		{mpcint.OpGt, mpcint.Uint8, 0xFF, 1, 1},
		{mpcint.OpLt, mpcint.Uint8, 0xFF, 1, 0},
		{mpcint.OpGe, mpcint.Uint8, 3, 3, 1},
		{mpcint.OpLe, mpcint.Uint8, 4, 3, 0},
	}
	for _, tc := range tests {
		t.Run(tc.op.String()+"/"+tc.t.String(), func(t *testing.T) {
			a, err := e.SetPublic(tc.t, tc.a)
			require.NoError(t, err)
			b, err := e.SetPublic(tc.t, tc.b)
			require.NoError(t, err)
			r, err := e.Binary(tc.op, mpcint.Secrets(tc.t), a, b)
			require.NoError(t, err)

			rt := tc.t
			if tc.op.IsComparison() {
				rt = mpcint.Ebool
			}
			got, err := e.Decrypt(rt, r)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestShiftMuxNot(t *testing.T) {
	e := newTestEngine(t, Config{})

	x, err := e.SetPublic(mpcint.Uint8, 0x81)
	require.NoError(t, err)

	for _, tc := range []struct {
		op   mpcint.Op
		n    uint
		want uint64
	}{
		{mpcint.OpShl, 1, 0x02},
		{mpcint.OpShr, 7, 0x01},
		{mpcint.OpShr, 8, 0},
		{mpcint.OpShl, 9, 0},
	} {
		h, err := e.Shift(tc.op, mpcint.Uint8, x, tc.n)
		require.NoError(t, err)
		got, err := e.Decrypt(mpcint.Uint8, h)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s %d", tc.op, tc.n)
	}

	n, err := e.Not(mpcint.Uint8, x)
	require.NoError(t, err)
	got, err := e.Decrypt(mpcint.Uint8, n)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x7E), got)

	y, err := e.SetPublic(mpcint.Uint8, 9)
	require.NoError(t, err)
	p, err := e.SetPublic(mpcint.Ebool, 0)
	require.NoError(t, err)
	m, err := e.Mux(mpcint.Uint8, p, x, y)
	require.NoError(t, err)
	got, err = e.Decrypt(mpcint.Uint8, m)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), got)

	_, err = e.Binary(mpcint.OpShl, mpcint.Secrets(mpcint.Uint8), x, y)
	require.ErrorIs(t, err, ErrUnsupportedOp)
	_, err = e.Shift(mpcint.OpAdd, mpcint.Uint8, x, 1)
	require.ErrorIs(t, err, ErrUnsupportedOp)
}

func TestHandleErrors(t *testing.T) {
	e := newTestEngine(t, Config{})

	x, err := e.SetPublic(mpcint.Uint16, 7)
	require.NoError(t, err)
	_, err = e.Decrypt(mpcint.Uint32, x)
	require.ErrorIs(t, err, mpcint.ErrTypeMismatch)

	_, err = e.Decrypt(mpcint.Uint16, mpcint.Handle{1, 2, 3})
	require.ErrorIs(t, err, mpcint.ErrUnknownHandle)

	_, err = e.SetPublic(mpcint.Type(42), 1)
	require.ErrorIs(t, err, mpcint.ErrTypeMismatch)
}

func TestOnBoardOffBoard(t *testing.T) {
	e := newTestEngine(t, Config{})

	ct, err := e.NetworkKey().Encrypt(mpcint.Uint32, 123456)
	require.NoError(t, err)
	h, err := e.OnBoard(mpcint.Uint32, ct)
	require.NoError(t, err)

	out, err := e.OffBoard(mpcint.Uint32, h)
	require.NoError(t, err)
	assert.NotEqual(t, ct, out, "offboard reseals under a fresh nonce")
	typ, v, err := e.NetworkKey().Decrypt(out)
	require.NoError(t, err)
	assert.Equal(t, mpcint.Uint32, typ)
	assert.Equal(t, uint64(123456), v)

	_, err = e.OnBoard(mpcint.Uint64, ct)
	require.ErrorIs(t, err, mpcint.ErrTypeMismatch)

	tampered := append(mpcint.Ciphertext(nil), ct...)
	tampered[len(tampered)-1] ^= 1
	_, err = e.OnBoard(mpcint.Uint32, tampered)
	require.ErrorIs(t, err, mpcint.ErrInvalidCiphertext)

	other, err := GenerateNetworkKey()
	require.NoError(t, err)
	foreign, err := other.Encrypt(mpcint.Uint32, 1)
	require.NoError(t, err)
	_, err = e.OnBoard(mpcint.Uint32, foreign)
	require.ErrorIs(t, err, mpcint.ErrInvalidCiphertext)

	_, err = e.OnBoard(mpcint.Uint32, mpcint.Ciphertext{byte(mpcint.Uint32)})
	require.ErrorIs(t, err, mpcint.ErrInvalidCiphertext)
}

func TestValidateCiphertext(t *testing.T) {
	user, err := GenerateUserKey()
	require.NoError(t, err)
	stranger, err := GenerateUserKey()
	require.NoError(t, err)

	open := newTestEngine(t, Config{})
	strict := newTestEngine(t, Config{NetworkKey: open.NetworkKey(), RequireRegisteredSigner: true})
	require.NoError(t, strict.RegisterUser(user.Address(), user.Secret()))

	ct, err := open.NetworkKey().Encrypt(mpcint.Uint8, 0x42)
	require.NoError(t, err)
	ticket, err := user.Ticket(mpcint.Uint8, ct)
	require.NoError(t, err)
	foreign, err := stranger.Ticket(mpcint.Uint8, ct)
	require.NoError(t, err)

	for name, e := range map[string]*Engine{"open": open, "strict": strict} {
		t.Run(name, func(t *testing.T) {
			h, err := e.ValidateCiphertext(mpcint.Uint8, ticket.Ciphertext, ticket.Signature)
			require.NoError(t, err)
			v, err := e.Decrypt(mpcint.Uint8, h)
			require.NoError(t, err)
			assert.Equal(t, uint64(0x42), v)

			// A signature for one type does not validate another.
			_, err = e.ValidateCiphertext(mpcint.Uint16, ticket.Ciphertext, ticket.Signature)
			require.Error(t, err)

			_, err = e.ValidateCiphertext(mpcint.Uint8, ticket.Ciphertext, []byte("short"))
			require.ErrorIs(t, err, mpcint.ErrInvalidSignature)
		})
	}

	_, err = open.ValidateCiphertext(mpcint.Uint8, foreign.Ciphertext, foreign.Signature)
	require.NoError(t, err)
	_, err = strict.ValidateCiphertext(mpcint.Uint8, foreign.Ciphertext, foreign.Signature)
	require.ErrorIs(t, err, mpcint.ErrInvalidSignature)
}

func TestOffBoardToUser(t *testing.T) {
	e := newTestEngine(t, Config{})
	user, err := GenerateUserKey()
	require.NoError(t, err)

	h, err := e.SetPublic(mpcint.Uint64, 0xDEADBEEF)
	require.NoError(t, err)

	_, err = e.OffBoardToUser(mpcint.Uint64, h, user.Address())
	require.ErrorIs(t, err, mpcint.ErrUnknownUser)

	require.NoError(t, e.RegisterUser(user.Address(), user.Secret()))
	ct, err := e.OffBoardToUser(mpcint.Uint64, h, user.Address())
	require.NoError(t, err)

	typ, v, err := user.Open(ct)
	require.NoError(t, err)
	assert.Equal(t, mpcint.Uint64, typ)
	assert.Equal(t, uint64(0xDEADBEEF), v)

	// The recipient address is bound into the ciphertext.
	other, err := NewUserKey(mustKey(t), user.Secret())
	require.NoError(t, err)
	_, _, err = other.Open(ct)
	require.ErrorIs(t, err, mpcint.ErrInvalidCiphertext)

	require.Error(t, e.RegisterUser(common.Address{}, []byte("short")))
}

func TestFileStorageBackend(t *testing.T) {
	store, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	e := newTestEngine(t, Config{Storage: store})

	a, err := e.SetPublic(mpcint.Uint32, 40)
	require.NoError(t, err)
	b, err := e.SetPublic(mpcint.Uint32, 2)
	require.NoError(t, err)
	r, err := e.Binary(mpcint.OpAdd, mpcint.Secrets(mpcint.Uint32), a, b)
	require.NoError(t, err)
	v, err := e.Decrypt(mpcint.Uint32, r)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)

	n, err := store.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestNetworkKey(t *testing.T) {
	k, err := GenerateNetworkKey()
	require.NoError(t, err)

	parsed, err := ParseNetworkKey(k.Hex())
	require.NoError(t, err)
	ct, err := k.Encrypt(mpcint.Uint16, 999)
	require.NoError(t, err)
	_, v, err := parsed.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, uint64(999), v)

	_, err = NewNetworkKey([]byte("too short"))
	require.ErrorIs(t, err, ErrInvalidKey)
	_, err = ParseNetworkKey("nothex")
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestEncryptSigned(t *testing.T) {
	k, err := GenerateNetworkKey()
	require.NoError(t, err)

	tests := []struct {
		bits  uint
		v     *big.Int
		limbs int
	}{
		{8, big.NewInt(-128), 1},
		{32, big.NewInt(-1), 1},
		{64, big.NewInt(1 << 40), 1},
		{128, new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 100)), 2},
		{256, mpcint.MaxInt(256), 4},
	}
	for _, tc := range tests {
		cts, err := k.EncryptSigned(tc.bits, tc.v)
		require.NoError(t, err)
		require.Len(t, cts, tc.limbs)
		got, err := k.DecryptSigned(tc.bits, cts)
		require.NoError(t, err)
		assert.Equal(t, tc.v.String(), got.String(), "int%d", tc.bits)
	}

	_, err = k.EncryptSigned(8, big.NewInt(200))
	require.ErrorIs(t, err, mpcint.ErrOutOfRange)
	_, err = k.EncryptSigned(12, big.NewInt(1))
	require.ErrorIs(t, err, mpcint.ErrTypeMismatch)
}

func TestSessionRelease(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage(0)
	e := newTestEngine(t, Config{Storage: store})

	outside, err := e.SetPublic(mpcint.Uint32, 5)
	require.NoError(t, err)

	s := e.Session()
	a, err := s.SetPublic(mpcint.Uint32, 40)
	require.NoError(t, err)
	sum, err := s.Binary(mpcint.OpAdd, mpcint.Secrets(mpcint.Uint32), a, outside)
	require.NoError(t, err)
	gt, err := s.Binary(mpcint.OpGt, mpcint.Secrets(mpcint.Uint32), sum, outside)
	require.NoError(t, err)
	sel, err := s.Mux(mpcint.Uint32, gt, sum, outside)
	require.NoError(t, err)
	shifted, err := s.Shift(mpcint.OpShl, mpcint.Uint32, sel, 1)
	require.NoError(t, err)
	inv, err := s.Not(mpcint.Uint32, shifted)
	require.NoError(t, err)
	ct, err := s.OffBoard(mpcint.Uint32, sum)
	require.NoError(t, err)
	onboarded, err := s.OnBoard(mpcint.Uint32, ct)
	require.NoError(t, err)

	v, err := s.Decrypt(mpcint.Uint32, onboarded)
	require.NoError(t, err)
	assert.Equal(t, uint64(45), v)
	assert.Equal(t, 7, s.Len())

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	require.NoError(t, s.Release(ctx))
	assert.Zero(t, s.Len())
	n, err = store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, h := range []mpcint.Handle{a, sum, sel, inv, onboarded} {
		_, err := e.Decrypt(mpcint.Uint32, h)
		require.ErrorIs(t, err, mpcint.ErrUnknownHandle)
	}
	got, err := e.Decrypt(mpcint.Uint32, outside)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got)

	// The released ciphertext is still valid outside the session.
	_, val, err := e.NetworkKey().Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, uint64(45), val)

	// A failed call records nothing.
	_, err = s.SetPublic(mpcint.Type(42), 1)
	require.Error(t, err)
	assert.Zero(t, s.Len())
	require.NoError(t, s.Release(ctx))
}
