package worker

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/mpcint"
	"github.com/luxfi/mpcint/engine"
	"github.com/luxfi/mpcint/internal/queue"
)

func newDispatcher(t *testing.T) (*Dispatcher, *engine.NetworkKey) {
	t.Helper()
	e, err := engine.New(engine.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return NewDispatcher(e, mpcint.WithSignedDivision()), e.NetworkKey()
}

func encrypt(t *testing.T, k *engine.NetworkKey, bits uint, v int64) []string {
	t.Helper()
	cts, err := k.EncryptSigned(bits, big.NewInt(v))
	require.NoError(t, err)
	hexes := make([]string, len(cts))
	for i, ct := range cts {
		hexes[i] = ct.Hex()
	}
	return hexes
}

func decode(t *testing.T, hexes []string) []mpcint.Ciphertext {
	t.Helper()
	cts := make([]mpcint.Ciphertext, len(hexes))
	for i, s := range hexes {
		ct, err := mpcint.ParseCiphertext(s)
		require.NoError(t, err)
		cts[i] = ct
	}
	return cts
}

func TestDispatch(t *testing.T) {
	d, k := newDispatcher(t)

	tests := []struct {
		op    string
		a, b  int64
		shift uint
		want  int64
	}{
		{"add", -5, 3, 0, -2},
		{"sub", 3, 5, 0, -2},
		{"mul", -4, 6, 0, -24},
		{"div", -7, 2, 0, -3},
		{"div", 7, 0, 0, 0},
		{"and", -1, 12, 0, 12},
		{"or", -16, 15, 0, -1},
		{"xor", -1, 1, 0, -2},
		{"min", -9, 4, 0, -9},
		{"max", -9, 4, 0, 4},
		{"not", 5, 0, 0, -6},
		{"neg", -42, 0, 0, 42},
		{"shl", -3, 0, 2, -12},
		{"shr", -8, 0, 1, -4},
		{"shr", 100, 0, 3, 12},
	}
	for name, bits := range Widths {
		for _, tc := range tests {
			t.Run(fmt.Sprintf("%s/%s(%d,%d)", name, tc.op, tc.a, tc.b), func(t *testing.T) {
				job := &queue.Job{Type: name, Op: tc.op, LHS: encrypt(t, k, bits, tc.a), Shift: tc.shift}
				if NeedsRHS(tc.op) {
					job.RHS = encrypt(t, k, bits, tc.b)
				}
				out, err := d.Dispatch(job)
				require.NoError(t, err)

				got, err := k.DecryptSigned(bits, decode(t, out))
				require.NoError(t, err)
				assert.Equal(t, big.NewInt(tc.want).String(), got.String())
			})
		}
	}
}

func TestDispatchComparison(t *testing.T) {
	d, k := newDispatcher(t)

	tests := []struct {
		op   string
		a, b int64
		want bool
	}{
		{"eq", -1, -1, true},
		{"ne", -1, -1, false},
		{"gt", 1, -1, true},
		{"lt", 1, -1, false},
		{"ge", -2, -2, true},
		{"le", -3, -2, true},
	}
	for name, bits := range Widths {
		for _, tc := range tests {
			t.Run(name+"/"+tc.op, func(t *testing.T) {
				require.True(t, IsComparison(tc.op))
				out, err := d.Dispatch(&queue.Job{
					Type: name,
					Op:   tc.op,
					LHS:  encrypt(t, k, bits, tc.a),
					RHS:  encrypt(t, k, bits, tc.b),
				})
				require.NoError(t, err)
				require.Len(t, out, 1)

				cts := decode(t, out)
				typ, v, err := k.Decrypt(cts[0])
				require.NoError(t, err)
				assert.Equal(t, mpcint.Ebool, typ)
				assert.Equal(t, tc.want, v == 1)
			})
		}
	}
}

func TestDispatchErrors(t *testing.T) {
	d, k := newDispatcher(t)
	one := encrypt(t, k, 64, 1)

	tests := []struct {
		name string
		job  *queue.Job
		want error
	}{
		{"unknown type", &queue.Job{Type: "int7", Op: "add", LHS: one, RHS: one}, ErrUnknownType},
		{"unknown op", &queue.Job{Type: "int64", Op: "pow", LHS: one, RHS: one}, ErrUnknownOp},
		{"missing rhs", &queue.Job{Type: "int64", Op: "add", LHS: one}, ErrOperandCount},
		{"short operand", &queue.Job{Type: "int128", Op: "neg", LHS: one}, ErrOperandCount},
		{"bad hex", &queue.Job{Type: "int64", Op: "neg", LHS: []string{"0xzz"}}, mpcint.ErrInvalidCiphertext},
		{"wrong limb type", &queue.Job{Type: "int8", Op: "neg", LHS: one}, mpcint.ErrTypeMismatch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.Dispatch(tc.job)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestOpsAreDispatchable(t *testing.T) {
	d, k := newDispatcher(t)
	for _, op := range Ops {
		job := &queue.Job{Type: "int16", Op: op, LHS: encrypt(t, k, 16, 3), Shift: 1}
		if NeedsRHS(op) {
			job.RHS = encrypt(t, k, 16, 2)
		}
		_, err := d.Dispatch(job)
		assert.NoError(t, err, op)
	}
}
