package main

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/markkurossi/tabulate"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/luxfi/mpcint"
	"github.com/luxfi/mpcint/engine"
	"github.com/luxfi/mpcint/internal/queue"
	"github.com/luxfi/mpcint/internal/worker"
)

var (
	evalCommand = cli.Command{
		Action:    evaluate,
		Name:      "eval",
		Usage:     "Evaluate one operation on a fresh local engine",
		ArgsUsage: "",
		Flags: []cli.Flag{
			typeFlag,
			opFlag,
			lhsFlag,
			rhsFlag,
			shiftFlag,
			signedDivFlag,
		},
		Description: `The eval command encrypts both operands under a new network key,
runs the operation through the secret word engine and prints the decrypted
result together with the ALU calls it took.`,
	}

	keygenCommand = cli.Command{
		Action:      keygen,
		Name:        "keygen",
		Usage:       "Print a new network key",
		Description: `The keygen command prints a fresh 0x-prefixed network key.`,
	}
)

func keygen(ctx *cli.Context) error {
	key, err := engine.GenerateNetworkKey()
	if err != nil {
		return err
	}
	fmt.Println(key.Hex())
	return nil
}

// parseValue reads a decimal or 0x-prefixed hex integer.
func parseValue(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

// encryptJob builds a job with operands encrypted under key.
func encryptJob(key *engine.NetworkKey, id, typ, op, lhs, rhs string, shift uint) (*queue.Job, error) {
	bits, ok := worker.Widths[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", worker.ErrUnknownType, typ)
	}
	job := &queue.Job{ID: id, Type: typ, Op: op, Shift: shift}

	a, err := parseValue(lhs)
	if err != nil {
		return nil, err
	}
	if job.LHS, err = encryptHex(key, bits, a); err != nil {
		return nil, fmt.Errorf("lhs: %w", err)
	}
	if worker.NeedsRHS(op) {
		b, err := parseValue(rhs)
		if err != nil {
			return nil, err
		}
		if job.RHS, err = encryptHex(key, bits, b); err != nil {
			return nil, fmt.Errorf("rhs: %w", err)
		}
	}
	return job, nil
}

func encryptHex(key *engine.NetworkKey, bits uint, v *big.Int) ([]string, error) {
	cts, err := key.EncryptSigned(bits, v)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(cts))
	for i, ct := range cts {
		out[i] = ct.Hex()
	}
	return out, nil
}

// decryptResult opens the result limbs of a completed job.
func decryptResult(key *engine.NetworkKey, job *queue.Job) (string, error) {
	cts := make([]mpcint.Ciphertext, len(job.Result))
	for i, s := range job.Result {
		ct, err := mpcint.ParseCiphertext(s)
		if err != nil {
			return "", err
		}
		cts[i] = ct
	}
	if worker.IsComparison(job.Op) {
		if len(cts) != 1 {
			return "", fmt.Errorf("%w: comparison result has %d limbs", mpcint.ErrInvalidCiphertext, len(cts))
		}
		t, v, err := key.Decrypt(cts[0])
		if err != nil {
			return "", err
		}
		if t != mpcint.Ebool {
			return "", fmt.Errorf("%w: comparison result is %s", mpcint.ErrTypeMismatch, t)
		}
		return fmt.Sprint(v == 1), nil
	}
	v, err := key.DecryptSigned(worker.Widths[job.Type], cts)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func evaluate(ctx *cli.Context) error {
	eng, err := engine.New(engine.Config{})
	if err != nil {
		return err
	}
	defer eng.Close()

	job, err := encryptJob(eng.NetworkKey(), "local",
		ctx.String(typeFlag.Name), ctx.String(opFlag.Name),
		ctx.String(lhsFlag.Name), ctx.String(rhsFlag.Name), ctx.Uint(shiftFlag.Name))
	if err != nil {
		return err
	}

	var opts []mpcint.Option
	if ctx.Bool(signedDivFlag.Name) {
		opts = append(opts, mpcint.WithSignedDivision())
	}
	meter := mpcint.NewMeter(eng)
	if job.Result, err = worker.NewDispatcher(meter, opts...).Dispatch(job); err != nil {
		return err
	}
	result, err := decryptResult(eng.NetworkKey(), job)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s = %s\n", job.Type, job.Op, result)
	printCalls(os.Stdout, meter)
	return nil
}

// printCalls writes the meter's call counts as a table.
func printCalls(w io.Writer, m *mpcint.Meter) {
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Call").SetAlign(tabulate.ML)
	tab.Header("Count").SetAlign(tabulate.MR)

	var total uint64
	for _, c := range m.Snapshot() {
		row := tab.Row()
		row.Column(c.Name)
		row.Column(fmt.Sprint(c.Count))
		total += c.Count
	}
	row := tab.Row()
	row.Column("Total").SetFormat(tabulate.FmtBold)
	row.Column(fmt.Sprint(total)).SetFormat(tabulate.FmtBold)

	row = tab.Row()
	row.Column("Revealed bits").SetFormat(tabulate.FmtItalic)
	row.Column(fmt.Sprint(m.RevealedBits())).SetFormat(tabulate.FmtItalic)

	tab.Print(w)
}

var errNoNetworkKey = errors.New("no network key: pass --network-key or set NetworkKey in the config file")
