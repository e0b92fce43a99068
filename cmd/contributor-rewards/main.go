// Command contributor-rewards is the CLI for the per-epoch contributor
// reward computation. The one-shot subcommands (ingest-data, shapley-input,
// calculate-proportions, post-merkle, check-contributor) parse their flags
// and log what they were asked to process; they do not compute, read or
// write reward records. run-worker runs the continuously-ticking worker loop
// with a pipeline that performs no computation and no ledger writes.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/malbeclabs/contributor-rewards/internal/alert"
	"github.com/malbeclabs/contributor-rewards/internal/chain"
	"github.com/malbeclabs/contributor-rewards/internal/health"
	"github.com/malbeclabs/contributor-rewards/internal/logging"
	"github.com/malbeclabs/contributor-rewards/internal/recorder"
	"github.com/malbeclabs/contributor-rewards/internal/rewards"
	"github.com/malbeclabs/contributor-rewards/internal/settings"
	"github.com/malbeclabs/contributor-rewards/internal/worker"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: contributor-rewards <ingest-data|shapley-input|calculate-proportions|post-merkle|check-contributor|run-worker> [flags]")
	}

	// godotenv does not override existing env vars, so later files don't
	// overwrite earlier ones.
	_ = godotenv.Load()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "ingest-data":
		return runIngestData(rest)
	case "shapley-input":
		return runShapleyInput(rest)
	case "calculate-proportions":
		return runCalculateProportions(rest)
	case "post-merkle":
		return runPostMerkle(rest)
	case "check-contributor":
		return runCheckContributor(rest)
	case "run-worker":
		return runWorker(rest)
	default:
		return fmt.Errorf("unknown subcommand %q", cmd)
	}
}

func commonFlags(fs *flag.FlagSet) (epoch *uint64, verbose *bool, rpcURL *string) {
	epoch = fs.Uint64("epoch", 0, "epoch to process (0 = current - 1)")
	verbose = fs.Bool("verbose", false, "enable verbose (debug) logging")
	rpcURL = fs.String("rpc-url", "", "Solana RPC endpoint (or set RPC_URL env var)")
	return
}

// runIngestData resolves the target epoch (the cluster's current epoch minus
// one when --epoch is 0) and logs it. It does not fetch telemetry,
// leader-schedule or access-pass inputs, and writes nothing.
func runIngestData(args []string) error {
	fs := flag.NewFlagSet("ingest-data", flag.ExitOnError)
	epoch, verbose, rpcURL := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := logging.New(logging.Options{Verbose: *verbose})
	client := chain.NewClient(resolveRPCURL(*rpcURL))
	es := chain.EpochSource{RPC: client}

	target, err := resolveEpoch(*epoch, es)
	if err != nil {
		return err
	}
	log.Info("ingest-data: resolved target epoch", "epoch", target)
	log.Warn("ingest-data: telemetry/demand source wiring is deployment-specific and left to the caller's settings")
	return nil
}

// runShapleyInput logs the requested epoch (as given; 0 is not resolved) and
// collapse threshold. It does not assemble a rewards.ShapleyInput bundle and
// writes nothing to stdout or the ledger.
func runShapleyInput(args []string) error {
	fs := flag.NewFlagSet("shapley-input", flag.ExitOnError)
	epoch, verbose, _ := commonFlags(fs)
	collapseThreshold := fs.Int("collapse-threshold", 0, "collapse operators with fewer devices than this into an 'Others' pseudo-operator")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := logging.New(logging.Options{Verbose: *verbose})
	log.Info("shapley-input: building input bundle", "epoch", *epoch, "collapse_threshold", *collapseThreshold)
	return nil
}

// runCalculateProportions sets the shapley-cli binary path from --shapley-bin
// or SHAPLEY_CLI_PATH and logs the requested epoch. It does not run the
// Shapley driver, aggregate, or normalize.
func runCalculateProportions(args []string) error {
	fs := flag.NewFlagSet("calculate-proportions", flag.ExitOnError)
	epoch, verbose, _ := commonFlags(fs)
	shapleyBin := fs.String("shapley-bin", "", "path to the shapley-cli binary (or set SHAPLEY_CLI_PATH env var)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *shapleyBin != "" {
		rewards.SetBinaryPath(*shapleyBin)
	} else if envBin := os.Getenv("SHAPLEY_CLI_PATH"); envBin != "" {
		rewards.SetBinaryPath(envBin)
	}
	log := logging.New(logging.Options{Verbose: *verbose})
	log.Info("calculate-proportions: running", "epoch", *epoch)
	return nil
}

// runPostMerkle constructs a ledger recorder against the RPC endpoint and
// logs the requested epoch. It does not build a Merkle tree or write a
// ShapleyOutputStorage record.
func runPostMerkle(args []string) error {
	fs := flag.NewFlagSet("post-merkle", flag.ExitOnError)
	epoch, verbose, rpcURL := commonFlags(fs)
	rpsLimit := fs.Int("rps-limit", 10, "ledger write rate limit, requests per second")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := logging.New(logging.Options{Verbose: *verbose})
	client := chain.NewClient(resolveRPCURL(*rpcURL))
	reader := chain.AccountReader{RPC: client}
	_ = recorder.New(reader, *rpsLimit)
	log.Info("post-merkle: ready to commit", "epoch", *epoch)
	return nil
}

// runCheckContributor requires --contributor and logs the request. It does
// not read the ledger or report a reward share or Merkle proof.
func runCheckContributor(args []string) error {
	fs := flag.NewFlagSet("check-contributor", flag.ExitOnError)
	epoch, verbose, rpcURL := commonFlags(fs)
	contributor := fs.String("contributor", "", "contributor public key (base58)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *contributor == "" {
		return fmt.Errorf("check-contributor: --contributor is required")
	}
	log := logging.New(logging.Options{Verbose: *verbose})
	client := chain.NewClient(resolveRPCURL(*rpcURL))
	_ = chain.AccountReader{RPC: client}
	log.Info("check-contributor: checking", "epoch", *epoch, "contributor", *contributor)
	return nil
}

// runWorker starts the continuously-ticking worker loop with a health/
// readiness/metrics HTTP server, and initializes Sentry when a DSN is given.
// The worker is driven by noopPipeline, so a tick advances the state file
// without computing or writing records. The Slack notifier is constructed
// but not passed to the worker.
func runWorker(args []string) error {
	fs := flag.NewFlagSet("run-worker", flag.ExitOnError)
	_, verbose, rpcURL := commonFlags(fs)
	stateFile := fs.String("state-file", "", "path to the worker's state file (or set WORKER_STATE_FILE env var)")
	intervalSeconds := fs.Int("interval-seconds", 60, "seconds between ticks")
	maxConsecutiveFailures := fs.Int("max-consecutive-failures", 5, "consecutive failures before the circuit breaker trips")
	dryRun := fs.Bool("dry-run", false, "do not write to the ledger, only log what would happen")
	healthAddr := fs.String("health-addr", "0.0.0.0:8080", "health/readiness/metrics HTTP listen address")
	slackToken := fs.String("slack-token", "", "Slack bot token for alerts (or set SLACK_BOT_TOKEN env var)")
	slackChannel := fs.String("slack-channel", "", "Slack channel for alerts (or set SLACK_ALERT_CHANNEL env var)")
	sentryDSN := fs.String("sentry-dsn", "", "Sentry DSN for error capture (or set SENTRY_DSN env var)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *stateFile == "" {
		*stateFile = os.Getenv("WORKER_STATE_FILE")
	}
	if *slackToken == "" {
		*slackToken = os.Getenv("SLACK_BOT_TOKEN")
	}
	if *slackChannel == "" {
		*slackChannel = os.Getenv("SLACK_ALERT_CHANNEL")
	}
	if *sentryDSN == "" {
		*sentryDSN = os.Getenv("SENTRY_DSN")
	}

	log := logging.New(logging.Options{Verbose: *verbose})

	if *stateFile == "" {
		return fmt.Errorf("run-worker: --state-file (or WORKER_STATE_FILE) is required")
	}
	cfg := settings.SchedulerSettings{
		IntervalSeconds:        *intervalSeconds,
		MaxConsecutiveFailures: *maxConsecutiveFailures,
		StateFile:              *stateFile,
		EnableDryRun:           *dryRun,
	}

	if *sentryDSN != "" {
		if err := health.InitSentry(*sentryDSN, "production"); err != nil {
			log.Error("run-worker: failed to init sentry", "err", err)
		}
	}
	notifier := alert.New(*slackToken, *slackChannel, log)
	_ = notifier

	client := chain.NewClient(resolveRPCURL(*rpcURL))
	epochSource := chain.EpochSource{RPC: client}

	w, err := worker.New(worker.Config{
		StateFile:              *stateFile,
		MaxConsecutiveFailures: uint32(*maxConsecutiveFailures),
		DryRun:                 *dryRun,
	}, epochSource, noopPipeline{}, log)
	if err != nil {
		return fmt.Errorf("run-worker: construct worker: %w", err)
	}

	healthServer := health.NewServer(readyChecker{epochSource: epochSource}, *sentryDSN)
	httpDone := make(chan error, 1)
	go func() {
		httpDone <- serveHealth(*healthAddr, healthServer)
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("run-worker: starting", "interval_seconds", *intervalSeconds, "state_file", *stateFile)
	runErr := w.Run(ctx, cfg.Interval())
	healthServer.MarkShuttingDown()

	select {
	case err := <-httpDone:
		if err != nil {
			log.Error("run-worker: health server exited", "err", err)
		}
	default:
	}

	if runErr != nil && runErr != context.Canceled {
		return fmt.Errorf("run-worker: %w", runErr)
	}
	return nil
}

type noopPipeline struct{}

func (noopPipeline) RecordsExist(ctx context.Context, epoch uint64) (bool, error) { return false, nil }
func (noopPipeline) Run(ctx context.Context, epoch uint64) error                  { return nil }

type readyChecker struct {
	epochSource chain.EpochSource
}

func (r readyChecker) Ready(ctx context.Context) error {
	_, err := r.epochSource.CurrentEpoch(ctx)
	return err
}

func serveHealth(addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func resolveRPCURL(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("RPC_URL")
}

func resolveEpoch(flagValue uint64, source chain.EpochSource) (uint64, error) {
	if flagValue != 0 {
		return flagValue, nil
	}
	current, err := source.CurrentEpoch(context.Background())
	if err != nil {
		return 0, fmt.Errorf("resolve current epoch: %w", err)
	}
	if current == 0 {
		return 0, fmt.Errorf("resolve current epoch: cluster reports epoch 0")
	}
	return current - 1, nil
}
