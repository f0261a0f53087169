// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package mpcint

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypes(t *testing.T) {
	tests := []struct {
		t       Type
		bits    int
		name    string
		signBit uint64
	}{
		{Ebool, 1, "bool", 1},
		{Uint8, 8, "uint8", 0x80},
		{Uint16, 16, "uint16", 0x8000},
		{Uint32, 32, "uint32", 0x80000000},
		{Uint64, 64, "uint64", 0x8000000000000000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.bits, tc.t.NumBits())
			assert.Equal(t, tc.name, tc.t.String())
			assert.Equal(t, tc.signBit, tc.t.SignBit())
			assert.True(t, tc.t.Valid())
		})
	}
	assert.False(t, Type(9).Valid())
}

func TestFillMask(t *testing.T) {
	tests := []struct {
		t    Type
		n    uint
		want uint64
	}{
		{Uint8, 0, 0},
		{Uint8, 1, 0x80},
		{Uint8, 3, 0xE0},
		{Uint8, 8, 0xFF},
		{Uint8, 20, 0xFF},
		{Uint64, 4, 0xF000000000000000},
		{Uint64, 64, ^uint64(0)},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, fillMask(tc.t, tc.n), "%s n=%d", tc.t, tc.n)
	}
}

func TestWordsRoundTrip(t *testing.T) {
	for _, bits := range []uint{8, 64, 128, 256} {
		for _, v := range []*big.Int{MinInt(bits), big.NewInt(-1), big.NewInt(0), MaxInt(bits)} {
			z, err := ToWords(v, bits)
			require.NoError(t, err)
			assert.Equal(t, v.String(), FromWords(z, bits).String(), "int%d", bits)
		}
	}

	z, err := ToWords(big.NewInt(-2), 128)
	require.NoError(t, err)
	assert.Equal(t, uint256.Int{^uint64(1), ^uint64(0), ^uint64(0), ^uint64(0)}, z)

	_, err = ToWords(big.NewInt(128), 8)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestSignedDiv(t *testing.T) {
	x, err := ToWords(big.NewInt(-9), 256)
	require.NoError(t, err)
	y, err := ToWords(big.NewInt(4), 256)
	require.NoError(t, err)
	q := signedDiv(x, y)
	assert.Equal(t, "-2", FromWords(q, 256).String())

	z := signedDiv(x, uint256.Int{})
	assert.True(t, z.IsZero())
}
