// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package mpcint_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/mpcint"
	"github.com/luxfi/mpcint/engine"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.New(engine.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

// grid returns MIN, MIN+1, -1, 0, 1, MAX for T.
func grid[T mpcint.Signed]() []T {
	var bits uint
	var zero T
	switch any(zero).(type) {
	case int8:
		bits = 8
	case int16:
		bits = 16
	case int32:
		bits = 32
	default:
		bits = 64
	}
	minV := T(int64(-1) << (bits - 1))
	maxV := ^minV
	return []T{minV, minV + 1, -1, 0, 1, maxV}
}

type binaryCase[T mpcint.Signed] struct {
	name string
	op   func(e *mpcint.Evaluator[T], a, b mpcint.Int[T]) (mpcint.Int[T], error)
	want func(a, b T) T
}

type compareCase[T mpcint.Signed] struct {
	name string
	op   func(e *mpcint.Evaluator[T], a, b mpcint.Int[T]) (mpcint.Bool, error)
	want func(a, b T) bool
}

func testNative[T mpcint.Signed](t *testing.T) {
	eng := newEngine(t)
	e := mpcint.NewEvaluator[T](eng)
	preds := mpcint.NewBoolEvaluator(eng)
	values := grid[T]()

	set := func(v T) mpcint.Int[T] {
		x, err := e.SetPublic(v)
		require.NoError(t, err)
		return x
	}

	binaries := []binaryCase[T]{
		{"add", (*mpcint.Evaluator[T]).Add, func(a, b T) T { return a + b }},
		{"sub", (*mpcint.Evaluator[T]).Sub, func(a, b T) T { return a - b }},
		{"mul", (*mpcint.Evaluator[T]).Mul, func(a, b T) T { return a * b }},
		{"and", (*mpcint.Evaluator[T]).And, func(a, b T) T { return a & b }},
		{"or", (*mpcint.Evaluator[T]).Or, func(a, b T) T { return a | b }},
		{"xor", (*mpcint.Evaluator[T]).Xor, func(a, b T) T { return a ^ b }},
		{"min", (*mpcint.Evaluator[T]).Min, func(a, b T) T { return min(a, b) }},
		{"max", (*mpcint.Evaluator[T]).Max, func(a, b T) T { return max(a, b) }},
	}
	compares := []compareCase[T]{
		{"eq", (*mpcint.Evaluator[T]).Eq, func(a, b T) bool { return a == b }},
		{"ne", (*mpcint.Evaluator[T]).Ne, func(a, b T) bool { return a != b }},
		{"gt", (*mpcint.Evaluator[T]).Gt, func(a, b T) bool { return a > b }},
		{"lt", (*mpcint.Evaluator[T]).Lt, func(a, b T) bool { return a < b }},
		{"ge", (*mpcint.Evaluator[T]).Ge, func(a, b T) bool { return a >= b }},
		{"le", (*mpcint.Evaluator[T]).Le, func(a, b T) bool { return a <= b }},
	}

	for _, a := range values {
		for _, b := range values {
			x, y := set(a), set(b)
			for _, tc := range binaries {
				t.Run(fmt.Sprintf("%s(%d,%d)", tc.name, a, b), func(t *testing.T) {
					r, err := tc.op(e, x, y)
					require.NoError(t, err)
					got, err := e.Decrypt(r)
					require.NoError(t, err)
					require.Equal(t, tc.want(a, b), got)
				})
			}
			for _, tc := range compares {
				t.Run(fmt.Sprintf("%s(%d,%d)", tc.name, a, b), func(t *testing.T) {
					p, err := tc.op(e, x, y)
					require.NoError(t, err)
					got, err := preds.Decrypt(p)
					require.NoError(t, err)
					require.Equal(t, tc.want(a, b), got)
				})
			}
		}
	}
}

func TestNativeGrid(t *testing.T) {
	t.Run("int8", testNative[int8])
	t.Run("int16", testNative[int16])
	t.Run("int32", testNative[int32])
	t.Run("int64", testNative[int64])
}

// quotient is the sign-corrected reference: truncation toward zero, x/0 = 0
// and MIN/-1 = MIN.
func quotient[T mpcint.Signed](a, b T) T {
	if b == 0 {
		return 0
	}
	if b == -1 {
		return -a
	}
	return a / b
}

func testDivision[T mpcint.Signed](t *testing.T, signed bool) {
	eng := newEngine(t)
	var opts []mpcint.Option
	if signed {
		opts = append(opts, mpcint.WithSignedDivision())
	}
	e := mpcint.NewEvaluator[T](eng, opts...)
	mask := e.Type().Mask()

	for _, a := range grid[T]() {
		for _, b := range grid[T]() {
			x, err := e.SetPublic(a)
			require.NoError(t, err)
			y, err := e.SetPublic(b)
			require.NoError(t, err)
			q, err := e.Div(x, y)
			require.NoError(t, err)
			got, err := e.Decrypt(q)
			require.NoError(t, err)

			var want T
			if signed {
				want = quotient(a, b)
			} else if ub := uint64(b) & mask; ub != 0 {
				want = T((uint64(a) & mask) / ub)
			}
			require.Equal(t, want, got, "%d / %d", a, b)
		}
	}
}

func TestDivision(t *testing.T) {
	t.Run("int8/unsigned", func(t *testing.T) { testDivision[int8](t, false) })
	t.Run("int16/unsigned", func(t *testing.T) { testDivision[int16](t, false) })
	t.Run("int32/unsigned", func(t *testing.T) { testDivision[int32](t, false) })
	t.Run("int8/signed", func(t *testing.T) { testDivision[int8](t, true) })
	t.Run("int16/signed", func(t *testing.T) { testDivision[int16](t, true) })
	t.Run("int32/signed", func(t *testing.T) { testDivision[int32](t, true) })
	t.Run("int64", func(t *testing.T) { testDivision[int64](t, true) })
}

func TestInt64DivisionAlwaysSigned(t *testing.T) {
	eng := newEngine(t)
	e := mpcint.NewEvaluator[int64](eng)

	tests := []struct{ a, b, want int64 }{
		{-7, 2, -3},
		{7, -2, -3},
		{-7, -2, 3},
		{-9223372036854775808, -1, -9223372036854775808},
		{5, 0, 0},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d/%d", tc.a, tc.b), func(t *testing.T) {
			x, err := e.SetPublic(tc.a)
			require.NoError(t, err)
			y, err := e.SetPublic(tc.b)
			require.NoError(t, err)
			q, err := e.Div(x, y)
			require.NoError(t, err)
			got, err := e.Decrypt(q)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func testShifts[T mpcint.Signed](t *testing.T) {
	eng := newEngine(t)
	e := mpcint.NewEvaluator[T](eng)
	bits := uint(e.Type().NumBits())

	for _, a := range append(grid[T](), -8, 8, -3) {
		for _, n := range []uint{0, 1, 3, bits - 1, bits, bits + 5} {
			x, err := e.SetPublic(a)
			require.NoError(t, err)

			r, err := e.Shr(x, n)
			require.NoError(t, err)
			got, err := e.Decrypt(r)
			require.NoError(t, err)
			require.Equal(t, a>>n, got, "%d >> %d", a, n)

			l, err := e.Shl(x, n)
			require.NoError(t, err)
			got, err = e.Decrypt(l)
			require.NoError(t, err)
			require.Equal(t, a<<n, got, "%d << %d", a, n)
		}
	}
}

func TestShifts(t *testing.T) {
	t.Run("int8", testShifts[int8])
	t.Run("int16", testShifts[int16])
	t.Run("int32", testShifts[int32])
	t.Run("int64", testShifts[int64])
}

func TestShrNegativeInt8(t *testing.T) {
	eng := newEngine(t)
	e := mpcint.NewEvaluator[int8](eng)

	x, err := e.SetPublic(-8)
	require.NoError(t, err)
	r, err := e.Shr(x, 1)
	require.NoError(t, err)
	got, err := e.Decrypt(r)
	require.NoError(t, err)
	require.Equal(t, int8(-4), got)
}

func testUnary[T mpcint.Signed](t *testing.T) {
	eng := newEngine(t)
	e := mpcint.NewEvaluator[T](eng)

	for _, a := range grid[T]() {
		x, err := e.SetPublic(a)
		require.NoError(t, err)

		n, err := e.Neg(x)
		require.NoError(t, err)
		got, err := e.Decrypt(n)
		require.NoError(t, err)
		require.Equal(t, -a, got, "-(%d)", a)

		nn, err := e.Neg(n)
		require.NoError(t, err)
		got, err = e.Decrypt(nn)
		require.NoError(t, err)
		require.Equal(t, a, got, "-(-(%d))", a)

		c, err := e.Not(x)
		require.NoError(t, err)
		got, err = e.Decrypt(c)
		require.NoError(t, err)
		require.Equal(t, ^a, got, "^%d", a)

		abs, err := e.Abs(x)
		require.NoError(t, err)
		got, err = e.Decrypt(abs)
		require.NoError(t, err)
		want := a
		if a < 0 {
			want = -a
		}
		require.Equal(t, want, got, "|%d|", a)
	}
}

func TestUnary(t *testing.T) {
	t.Run("int8", testUnary[int8])
	t.Run("int16", testUnary[int16])
	t.Run("int32", testUnary[int32])
	t.Run("int64", testUnary[int64])
}

func TestMux(t *testing.T) {
	eng := newEngine(t)
	e := mpcint.NewEvaluator[int32](eng)
	preds := mpcint.NewBoolEvaluator(eng)

	a, err := e.SetPublic(-5)
	require.NoError(t, err)
	b, err := e.SetPublic(9)
	require.NoError(t, err)

	for _, pred := range []bool{true, false} {
		p, err := preds.SetPublic(pred)
		require.NoError(t, err)
		r, err := e.Mux(p, a, b)
		require.NoError(t, err)
		got, err := e.Decrypt(r)
		require.NoError(t, err)
		if pred {
			require.Equal(t, int32(-5), got)
		} else {
			require.Equal(t, int32(9), got)
		}
	}
}

func TestSignedHandleIsUnsignedHandle(t *testing.T) {
	eng := newEngine(t)
	e := mpcint.NewEvaluator[int16](eng)

	x, err := e.SetPublic(-2)
	require.NoError(t, err)
	v, err := eng.Decrypt(mpcint.Uint16, x.Handle())
	require.NoError(t, err)
	require.Equal(t, uint64(0xFFFE), v)

	y := mpcint.IntOf[int16](x.Handle())
	got, err := e.Decrypt(y)
	require.NoError(t, err)
	require.Equal(t, int16(-2), got)
}

func TestNativeLifecycle(t *testing.T) {
	eng, err := engine.New(engine.Config{RequireRegisteredSigner: true})
	require.NoError(t, err)
	defer eng.Close()

	user, err := engine.GenerateUserKey()
	require.NoError(t, err)
	require.NoError(t, eng.RegisterUser(user.Address(), user.Secret()))

	e := mpcint.NewEvaluator[int32](eng)
	ct, err := eng.NetworkKey().Encrypt(mpcint.Uint32, uint64(uint32(0xFFFFFF85))) // -123
	require.NoError(t, err)
	it, err := user.Ticket(mpcint.Uint32, ct)
	require.NoError(t, err)

	x, err := e.Validate(it)
	require.NoError(t, err)
	got, err := e.Decrypt(x)
	require.NoError(t, err)
	require.Equal(t, int32(-123), got)

	bundle, err := e.OffboardCombined(x, user.Address())
	require.NoError(t, err)

	y, err := e.Onboard(bundle.Ciphertext)
	require.NoError(t, err)
	got, err = e.Decrypt(y)
	require.NoError(t, err)
	require.Equal(t, int32(-123), got)

	typ, v, err := user.Open(bundle.UserCiphertext)
	require.NoError(t, err)
	require.Equal(t, mpcint.Uint32, typ)
	require.Equal(t, int32(-123), int32(uint32(v)))

	it.Signature[10] ^= 0xFF
	_, err = e.Validate(it)
	require.ErrorIs(t, err, mpcint.ErrInvalidSignature)
}
