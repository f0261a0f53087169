// Package worker evaluates queued signed integer jobs against an ALU.
package worker

import (
	"errors"
	"fmt"

	"github.com/luxfi/mpcint"
	"github.com/luxfi/mpcint/internal/queue"
)

// Common errors.
var (
	ErrUnknownType  = errors.New("unknown integer type")
	ErrUnknownOp    = errors.New("unknown operation")
	ErrOperandCount = errors.New("wrong number of operand limbs")
)

// Widths maps job type names to signed bit widths.
var Widths = map[string]uint{
	"int8":   8,
	"int16":  16,
	"int32":  32,
	"int64":  64,
	"int128": 128,
	"int256": 256,
}

// Ops lists the operation names a job may carry.
var Ops = []string{
	"add", "sub", "mul", "div", "and", "or", "xor", "min", "max",
	"eq", "ne", "gt", "lt", "ge", "le",
	"not", "neg", "shl", "shr",
}

// evaluator is the operation set shared by every signed width.
type evaluator[V, C any] interface {
	Add(a, b V) (V, error)
	Sub(a, b V) (V, error)
	Mul(a, b V) (V, error)
	Div(a, b V) (V, error)
	And(a, b V) (V, error)
	Or(a, b V) (V, error)
	Xor(a, b V) (V, error)
	Min(a, b V) (V, error)
	Max(a, b V) (V, error)
	Eq(a, b V) (mpcint.Bool, error)
	Ne(a, b V) (mpcint.Bool, error)
	Gt(a, b V) (mpcint.Bool, error)
	Lt(a, b V) (mpcint.Bool, error)
	Ge(a, b V) (mpcint.Bool, error)
	Le(a, b V) (mpcint.Bool, error)
	Not(a V) (V, error)
	Neg(a V) (V, error)
	Shl(a V, n uint) (V, error)
	Shr(a V, n uint) (V, error)
	Onboard(ct C) (V, error)
	Offboard(a V) (C, error)
}

// Dispatcher runs jobs of any width on one ALU.
type Dispatcher struct {
	preds *mpcint.BoolEvaluator
	i8    *mpcint.Int8Evaluator
	i16   *mpcint.Int16Evaluator
	i32   *mpcint.Int32Evaluator
	i64   *mpcint.Int64Evaluator
	i128  *mpcint.Evaluator128
	i256  *mpcint.Evaluator256
}

// NewDispatcher creates a dispatcher. opts apply to the native widths.
func NewDispatcher(alu mpcint.ALU, opts ...mpcint.Option) *Dispatcher {
	return &Dispatcher{
		preds: mpcint.NewBoolEvaluator(alu),
		i8:    mpcint.NewEvaluator[int8](alu, opts...),
		i16:   mpcint.NewEvaluator[int16](alu, opts...),
		i32:   mpcint.NewEvaluator[int32](alu, opts...),
		i64:   mpcint.NewEvaluator[int64](alu, opts...),
		i128:  mpcint.NewEvaluator128(alu),
		i256:  mpcint.NewEvaluator256(alu),
	}
}

// Dispatch evaluates job and returns the result ciphertexts in hex. A
// comparison yields a single Bool ciphertext.
func (d *Dispatcher) Dispatch(job *queue.Job) ([]string, error) {
	var (
		out []mpcint.Ciphertext
		err error
	)
	switch job.Type {
	case "int8":
		out, err = evaluate[mpcint.Int[int8], mpcint.Ciphertext](d.i8, d.preds, single, unsingle, 1, job)
	case "int16":
		out, err = evaluate[mpcint.Int[int16], mpcint.Ciphertext](d.i16, d.preds, single, unsingle, 1, job)
	case "int32":
		out, err = evaluate[mpcint.Int[int32], mpcint.Ciphertext](d.i32, d.preds, single, unsingle, 1, job)
	case "int64":
		out, err = evaluate[mpcint.Int[int64], mpcint.Ciphertext](d.i64, d.preds, single, unsingle, 1, job)
	case "int128":
		out, err = evaluate[mpcint.Int128, mpcint.Ciphertext128](d.i128, d.preds, pair, unpair, 2, job)
	case "int256":
		out, err = evaluate[mpcint.Int256, mpcint.Ciphertext256](d.i256, d.preds, quad, unquad, 4, job)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, job.Type)
	}
	if err != nil {
		return nil, err
	}
	hexes := make([]string, len(out))
	for i, ct := range out {
		hexes[i] = ct.Hex()
	}
	return hexes, nil
}

func evaluate[V, C any](
	e evaluator[V, C],
	preds *mpcint.BoolEvaluator,
	decode func([]mpcint.Ciphertext) C,
	encode func(C) []mpcint.Ciphertext,
	limbs int,
	job *queue.Job,
) ([]mpcint.Ciphertext, error) {
	binary := map[string]func(a, b V) (V, error){
		"add": e.Add, "sub": e.Sub, "mul": e.Mul, "div": e.Div,
		"and": e.And, "or": e.Or, "xor": e.Xor, "min": e.Min, "max": e.Max,
	}
	compare := map[string]func(a, b V) (mpcint.Bool, error){
		"eq": e.Eq, "ne": e.Ne, "gt": e.Gt, "lt": e.Lt, "ge": e.Ge, "le": e.Le,
	}
	unary := map[string]func(a V) (V, error){
		"not": e.Not, "neg": e.Neg,
	}
	shift := map[string]func(a V, n uint) (V, error){
		"shl": e.Shl, "shr": e.Shr,
	}

	load := func(name string, hexes []string) (V, error) {
		var zero V
		cts, err := parse(hexes, limbs)
		if err != nil {
			return zero, fmt.Errorf("%s: %w", name, err)
		}
		v, err := e.Onboard(decode(cts))
		if err != nil {
			return zero, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}
	store := func(v V, err error) ([]mpcint.Ciphertext, error) {
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", job.Type, job.Op, err)
		}
		ct, err := e.Offboard(v)
		if err != nil {
			return nil, err
		}
		return encode(ct), nil
	}

	a, err := load("lhs", job.LHS)
	if err != nil {
		return nil, err
	}

	if f, ok := unary[job.Op]; ok {
		return store(f(a))
	}
	if f, ok := shift[job.Op]; ok {
		return store(f(a, job.Shift))
	}

	b, err := load("rhs", job.RHS)
	if err != nil {
		return nil, err
	}
	if f, ok := binary[job.Op]; ok {
		return store(f(a, b))
	}
	if f, ok := compare[job.Op]; ok {
		p, err := f(a, b)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", job.Type, job.Op, err)
		}
		ct, err := preds.Offboard(p)
		if err != nil {
			return nil, err
		}
		return []mpcint.Ciphertext{ct}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOp, job.Op)
}

// IsComparison reports whether op yields a Bool result.
func IsComparison(op string) bool {
	switch op {
	case "eq", "ne", "gt", "lt", "ge", "le":
		return true
	}
	return false
}

// NeedsRHS reports whether op takes a second operand.
func NeedsRHS(op string) bool {
	switch op {
	case "not", "neg", "shl", "shr":
		return false
	}
	return true
}

func parse(hexes []string, limbs int) ([]mpcint.Ciphertext, error) {
	if len(hexes) != limbs {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrOperandCount, len(hexes), limbs)
	}
	cts := make([]mpcint.Ciphertext, limbs)
	for i, s := range hexes {
		ct, err := mpcint.ParseCiphertext(s)
		if err != nil {
			return nil, fmt.Errorf("limb %d: %w", i, err)
		}
		cts[i] = ct
	}
	return cts, nil
}

func single(cts []mpcint.Ciphertext) mpcint.Ciphertext { return cts[0] }

func unsingle(ct mpcint.Ciphertext) []mpcint.Ciphertext { return []mpcint.Ciphertext{ct} }

func pair(cts []mpcint.Ciphertext) mpcint.Ciphertext128 {
	return mpcint.Ciphertext128{High: cts[0], Low: cts[1]}
}

func unpair(ct mpcint.Ciphertext128) []mpcint.Ciphertext {
	return []mpcint.Ciphertext{ct.High, ct.Low}
}

func quad(cts []mpcint.Ciphertext) mpcint.Ciphertext256 {
	return mpcint.Ciphertext256{High: pair(cts[:2]), Low: pair(cts[2:])}
}

func unquad(ct mpcint.Ciphertext256) []mpcint.Ciphertext {
	return append(unpair(ct.High), unpair(ct.Low)...)
}
