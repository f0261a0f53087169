package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/luxfi/mpcint"
	"github.com/luxfi/mpcint/engine"
	"github.com/luxfi/mpcint/internal/queue"
	"github.com/luxfi/mpcint/internal/storage"
	"github.com/luxfi/mpcint/internal/worker"
)

var (
	serviceFlags = []cli.Flag{
		configFileFlag,
		networkKeyFlag,
		redisAddrFlag,
		redisDBFlag,
		queueFlag,
	}

	workerCommand = cli.Command{
		Action: runWorker,
		Name:   "worker",
		Usage:  "Run the job worker pool",
		Flags: append([]cli.Flag{
			workersFlag,
			storageFlag,
			storagePathFlag,
			metricsFlag,
			signedDivFlag,
		}, serviceFlags...),
		Description: `The worker command pops jobs from the queue, evaluates them on the
secret word engine and writes the result ciphertexts back to the job.`,
	}

	submitCommand = cli.Command{
		Action: submit,
		Name:   "submit",
		Usage:  "Encrypt operands and push a job",
		Flags: append([]cli.Flag{
			typeFlag,
			opFlag,
			lhsFlag,
			rhsFlag,
			shiftFlag,
			waitFlag,
		}, serviceFlags...),
		Description: `The submit command encrypts both operands under the network key,
pushes the job and, with --wait, polls until it finishes.`,
	}

	dumpConfigCommand = cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		Flags:       workerCommand.Flags,
		Description: `The dumpconfig command shows configuration values.`,
	}
)

// makeConfig loads defaults, then the config file, then flag overrides.
func makeConfig(ctx *cli.Context) (worker.Config, error) {
	cfg := worker.DefaultConfig
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := worker.LoadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(networkKeyFlag.Name) {
		cfg.NetworkKey = ctx.String(networkKeyFlag.Name)
	}
	if ctx.IsSet(redisAddrFlag.Name) {
		cfg.Redis.Addr = ctx.String(redisAddrFlag.Name)
	}
	if ctx.IsSet(redisDBFlag.Name) {
		cfg.Redis.DB = ctx.Int(redisDBFlag.Name)
	}
	if ctx.IsSet(queueFlag.Name) {
		cfg.Queue.Name = ctx.String(queueFlag.Name)
	}
	if ctx.IsSet(workersFlag.Name) {
		cfg.Workers = ctx.Int(workersFlag.Name)
	}
	if ctx.IsSet(storageFlag.Name) {
		cfg.Storage.Backend = ctx.String(storageFlag.Name)
	}
	if ctx.IsSet(storagePathFlag.Name) {
		cfg.Storage.Path = ctx.String(storagePathFlag.Name)
	}
	if ctx.IsSet(metricsFlag.Name) {
		cfg.MetricsAddr = ctx.String(metricsFlag.Name)
	}
	if ctx.IsSet(signedDivFlag.Name) {
		cfg.SignedDivision = ctx.Bool(signedDivFlag.Name)
	}
	return cfg, cfg.Validate()
}

func networkKey(cfg worker.Config) (*engine.NetworkKey, error) {
	if cfg.NetworkKey == "" {
		return nil, errNoNetworkKey
	}
	return engine.ParseNetworkKey(cfg.NetworkKey)
}

func openQueue(cfg worker.Config) (queue.Queue, error) {
	if cfg.Queue.Backend == "memory" {
		return queue.NewMemoryQueue(1024), nil
	}
	q, err := queue.NewRedisQueue(queue.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Queue.Name)
	if err != nil {
		return nil, fmt.Errorf("create queue: %w", err)
	}
	return q, nil
}

func openStorage(cfg worker.Config) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "file":
		return storage.NewFileStorage(cfg.Storage.Path)
	case "redis":
		return storage.NewRedisStorage(storage.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      24 * time.Hour,
		}, cfg.Queue.Name)
	}
	return storage.NewMemoryStorage(cfg.Storage.Capacity), nil
}

func runWorker(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	key, err := networkKey(cfg)
	if err != nil {
		return err
	}

	log.Info("Worker starting", "workers", cfg.Workers, "queue", cfg.Queue.Backend,
		"storage", cfg.Storage.Backend, "metrics", cfg.MetricsAddr)

	q, err := openQueue(cfg)
	if err != nil {
		return err
	}
	defer q.Close()

	store, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	eng, err := engine.New(engine.Config{NetworkKey: key, Storage: store})
	if err != nil {
		return err
	}
	defer eng.Close()

	var opts []mpcint.Option
	if cfg.SignedDivision {
		opts = append(opts, mpcint.WithSignedDivision())
	}
	pool := worker.NewPool(cfg.Workers, q, eng, opts...)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pool.Start(runCtx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	var server *http.Server
	if cfg.MetricsAddr != "" {
		server = &http.Server{Addr: cfg.MetricsAddr, Handler: pool.Handler()}
		go func() {
			log.Info("Metrics server starting", "addr", cfg.MetricsAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Metrics server error", "err", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("Received signal", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("Metrics server shutdown error", "err", err)
		}
	}
	if err := pool.Stop(); err != nil {
		log.Warn("Worker pool shutdown error", "err", err)
	}
	log.Info("Shutdown complete", "succeeded", pool.Succeeded(), "failed", pool.Failed())
	return nil
}

func submit(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	key, err := networkKey(cfg)
	if err != nil {
		return err
	}
	job, err := encryptJob(key, uuid.NewString(),
		ctx.String(typeFlag.Name), ctx.String(opFlag.Name),
		ctx.String(lhsFlag.Name), ctx.String(rhsFlag.Name), ctx.Uint(shiftFlag.Name))
	if err != nil {
		return err
	}

	q, err := openQueue(cfg)
	if err != nil {
		return err
	}
	defer q.Close()

	bg := context.Background()
	if err := q.Push(bg, job); err != nil {
		return err
	}
	log.Info("Submitted job", "id", job.ID, "type", job.Type, "op", job.Op)
	if !ctx.Bool(waitFlag.Name) {
		fmt.Println(job.ID)
		return nil
	}

	waitCtx, cancel := context.WithTimeout(bg, time.Minute)
	defer cancel()
	for {
		got, err := q.Get(waitCtx, job.ID)
		if err != nil {
			return err
		}
		switch got.Status {
		case queue.StatusCompleted:
			result, err := decryptResult(key, got)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s = %s\n", got.Type, got.Op, result)
			return nil
		case queue.StatusFailed:
			return fmt.Errorf("job %s failed: %s", got.ID, got.Error)
		}
		select {
		case <-waitCtx.Done():
			return waitCtx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	return worker.EncodeConfig(os.Stdout, &cfg)
}
