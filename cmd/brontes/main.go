// Package main is the entry point for the offline MEV analytics engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fd1az/arbitrage-bot/business/cex"
	cexDI "github.com/fd1az/arbitrage-bot/business/cex/di"
	"github.com/fd1az/arbitrage-bot/business/mev"
	"github.com/fd1az/arbitrage-bot/business/pipeline"
	pipelineDI "github.com/fd1az/arbitrage-bot/business/pipeline/di"
	"github.com/fd1az/arbitrage-bot/business/pipeline/infra/refstore"
	"github.com/fd1az/arbitrage-bot/internal/apm"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/asset"
	"github.com/fd1az/arbitrage-bot/internal/config"
	"github.com/fd1az/arbitrage-bot/internal/di"
	"github.com/fd1az/arbitrage-bot/internal/health"
	"github.com/fd1az/arbitrage-bot/internal/httpclient"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/metrics"
)

// Exit codes, per §6: 0 success, 1 IO/DB failure, 2 bad arguments, 130
// graceful shutdown on signal.
const (
	exitOK            = 0
	exitFailure       = 1
	exitBadArgs       = 2
	exitShutdownOnSig = 130
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: brontes <run|download> [flags]")
		os.Exit(exitBadArgs)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownHit := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		close(shutdownHit)
		cancel()
	}()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(ctx, os.Args[2:])
	case "download":
		err = downloadCommand(ctx, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		os.Exit(exitBadArgs)
	}

	select {
	case <-shutdownHit:
		os.Exit(exitShutdownOnSig)
	default:
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if apperror.CategoryOf(err) == apperror.CategoryConfig {
			os.Exit(exitBadArgs)
		}
		os.Exit(exitFailure)
	}
	os.Exit(exitOK)
}

// runCommand implements `run --start-block N --end-block M [--quote-asset
// SYMBOL] [--inspectors LIST] [--cex-exchanges LIST]` (§6). --quote-asset
// takes an asset-registry symbol such as USDT; a token address is not
// accepted.
func runCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	startBlock := fs.Uint64("start-block", 0, "First block to process (inclusive)")
	endBlock := fs.Uint64("end-block", 0, "Last block to process (exclusive)")
	quoteAsset := fs.String("quote-asset", "", "Quote asset symbol, e.g. USDT")
	inspectors := fs.String("inspectors", "", "Comma-separated inspector list")
	cexExchanges := fs.String("cex-exchanges", "", "Comma-separated CEX venue list")
	if err := fs.Parse(args); err != nil {
		return apperror.Wrap(err, apperror.CodeInvalidInput, "run: parse flags")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInvalidRunConfig, "run: load config")
	}
	if *startBlock != 0 {
		cfg.Run.StartBlock = *startBlock
	}
	if *endBlock != 0 {
		cfg.Run.EndBlock = *endBlock
	}
	if *quoteAsset != "" {
		cfg.Run.QuoteAsset = *quoteAsset
	}
	if *inspectors != "" {
		cfg.Run.Inspectors = splitCSV(*inspectors)
	}
	if *cexExchanges != "" {
		cfg.Run.CexExchanges = splitCSV(*cexExchanges)
	}
	if err := cfg.Validate(); err != nil {
		return apperror.Wrap(err, apperror.CodeInvalidRunConfig, "run: validate config")
	}

	log := newLogger(cfg)
	log.Info(ctx, "starting range executor",
		"version", version, "start_block", cfg.Run.StartBlock, "end_block", cfg.Run.EndBlock)

	stopTelemetry := startTelemetry(ctx, cfg, log)
	defer stopTelemetry()

	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}
	defer healthServer.Stop(ctx)

	container := di.NewContainer()
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("assetRegistry", asset.DefaultRegistry())

	modules := []interface {
		RegisterServices(di.Container) error
	}{
		&cex.Module{},
		&mev.Module{},
		&pipeline.Module{},
	}
	for _, m := range modules {
		if err := m.RegisterServices(container); err != nil {
			return apperror.Wrap(err, apperror.CodeConfigurationError, "run: register module services")
		}
	}

	trades, err := refstore.LoadCexTrades(referenceDBPathFor(cfg))
	if err != nil {
		return err
	}
	cexDI.GetTradeStore(container).Load(trades)
	log.Info(ctx, "loaded cex trade store", "trades", len(trades))

	healthServer.RegisterCheck("range_executor", func(ctx context.Context) (bool, string) {
		return true, "running"
	})

	executor := pipelineDI.GetRangeExecutor(container)
	shutdown := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(shutdown)
	}()

	if err := executor.Run(ctx, shutdown); err != nil {
		return apperror.Wrap(err, apperror.CodeInternalError, "run: range executor")
	}
	log.Info(ctx, "range executor finished")
	return nil
}

// downloadCommand implements `download --start-block N --end-block M
// --table T [--clear]` (§6).
func downloadCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	startBlock := fs.Uint64("start-block", 0, "First block to download (inclusive)")
	endBlock := fs.Uint64("end-block", 0, "Last block to download (inclusive)")
	table := fs.String("table", "", "Table name to download")
	clear := fs.Bool("clear", false, "Clear the local cache before downloading")
	sourceURL := fs.String("source", os.Getenv("DB_PATH"), "Reference-data source base URL")
	if err := fs.Parse(args); err != nil {
		return apperror.Wrap(err, apperror.CodeInvalidInput, "download: parse flags")
	}
	if *table == "" {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("download: --table is required"))
	}
	if *sourceURL == "" {
		return apperror.New(apperror.CodeMissingEnvVar, apperror.WithContext("download: DB_PATH or --source must name the reference-data source"))
	}

	log := logger.New(os.Stderr, logger.LevelInfo, "brontes-download", nil)

	client, err := httpclient.NewInstrumentedClient(httpclient.WithProviderName("refstore-download"))
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternalError, "download: build http client")
	}

	cacheDir := config.BrontesDBPath()
	if cacheDir == "" {
		cacheDir = "./data"
	}
	downloader := refstore.NewDownloader(client, *sourceURL, cacheDir)

	log.Info(ctx, "downloading table", "table", *table, "start_block", *startBlock, "end_block", *endBlock, "clear", *clear)
	if err := downloader.Download(ctx, *table, *startBlock, *endBlock, *clear); err != nil {
		return err
	}
	log.Info(ctx, "download complete", "table", *table)
	return nil
}

func newLogger(cfg *config.Config) *logger.Logger {
	level := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		level = logger.LevelDebug
	case "warn":
		level = logger.LevelWarn
	case "error":
		level = logger.LevelError
	}
	return logger.New(os.Stderr, level, cfg.App.Name, nil)
}

func startTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) func() {
	if !cfg.Telemetry.Enabled {
		return func() {}
	}
	if cfg.Telemetry.ServiceName != "" {
		os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
	}

	traceProvider := apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
	log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

	metrics.NewMetricProvider(
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	)

	port := cfg.Telemetry.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
	log.Info(ctx, "prometheus metrics server started", "port", port)

	return func() { traceProvider.Stop() }
}

func referenceDBPathFor(cfg *config.Config) string {
	_ = cfg
	if p := config.DBPath(); p != "" {
		return p
	}
	if p := config.BrontesDBPath(); p != "" {
		return p
	}
	return "./data"
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
