// Command mpcint evaluates signed integer operations over the secret word
// engine and runs queue workers.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	cli "gopkg.in/urfave/cli.v1"
)

var (
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
	}
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	typeFlag = cli.StringFlag{
		Name:  "type",
		Value: "int64",
		Usage: "signed integer type (int8, int16, int32, int64, int128, int256)",
	}
	opFlag = cli.StringFlag{
		Name:  "op",
		Value: "add",
		Usage: "operation name",
	}
	lhsFlag = cli.StringFlag{
		Name:  "lhs",
		Value: "0",
		Usage: "left operand (decimal or 0x hex)",
	}
	rhsFlag = cli.StringFlag{
		Name:  "rhs",
		Value: "0",
		Usage: "right operand (decimal or 0x hex)",
	}
	shiftFlag = cli.UintFlag{
		Name:  "shift",
		Usage: "shift amount for shl and shr",
	}
	signedDivFlag = cli.BoolFlag{
		Name:  "signed-div",
		Usage: "sign-correct division at 8, 16 and 32 bits",
	}
	networkKeyFlag = cli.StringFlag{
		Name:   "network-key",
		Usage:  "0x-prefixed hex network key",
		EnvVar: "MPCINT_NETWORK_KEY",
	}
	redisAddrFlag = cli.StringFlag{
		Name:  "redis",
		Usage: "Redis address",
	}
	redisDBFlag = cli.IntFlag{
		Name:  "redis-db",
		Usage: "Redis database number",
	}
	queueFlag = cli.StringFlag{
		Name:  "queue",
		Usage: "queue name",
	}
	workersFlag = cli.IntFlag{
		Name:  "workers",
		Usage: "number of worker goroutines",
	}
	storageFlag = cli.StringFlag{
		Name:  "storage",
		Usage: "sealed word storage backend (memory, file, redis)",
	}
	storagePathFlag = cli.StringFlag{
		Name:  "storage-path",
		Usage: "directory of the file storage backend",
	}
	metricsFlag = cli.StringFlag{
		Name:  "metrics",
		Usage: "health and metrics server address",
	}
	waitFlag = cli.BoolFlag{
		Name:  "wait",
		Usage: "wait for the job to finish and print its result",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "mpcint"
	app.Usage = "signed integer arithmetic over secret words"
	app.Flags = []cli.Flag{verbosityFlag}
	app.Before = func(ctx *cli.Context) error {
		h := log.NewTerminalHandlerWithLevel(os.Stderr, log.FromLegacyLevel(ctx.GlobalInt(verbosityFlag.Name)), true)
		log.SetDefault(log.NewLogger(h))
		return nil
	}
	app.Commands = []cli.Command{
		evalCommand,
		keygenCommand,
		workerCommand,
		submitCommand,
		dumpConfigCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
