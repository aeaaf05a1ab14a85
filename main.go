package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/vignesh-goutham/mmcompute/pkg/alpaca"
	"github.com/vignesh-goutham/mmcompute/pkg/api"
	"github.com/vignesh-goutham/mmcompute/pkg/compute"
	"github.com/vignesh-goutham/mmcompute/pkg/config"
	"github.com/vignesh-goutham/mmcompute/pkg/dynamo"
	"github.com/vignesh-goutham/mmcompute/pkg/ingestion"
	"github.com/vignesh-goutham/mmcompute/pkg/logger"
	"github.com/vignesh-goutham/mmcompute/pkg/metrics"
	"github.com/vignesh-goutham/mmcompute/pkg/postgres"
	"github.com/vignesh-goutham/mmcompute/pkg/store"
	"github.com/vignesh-goutham/mmcompute/pkg/supabase"
	"github.com/vignesh-goutham/mmcompute/pkg/yahoo"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	log = log.With().Str("env", cfg.Environment).Logger()

	for _, w := range cfg.ProviderWarnings() {
		log.Warn().Msg(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to open store")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	ingest := ingestion.NewService(log,
		alpaca.FromConfig(cfg.Alpaca, log),
		yahoo.NewProvider(log),
	).WithObserver(recorder)

	runner := compute.NewRunner(st, ingest, cfg.Ingestion.DefaultSource, log).WithRecorder(recorder)

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		log.Info().Msg("starting lambda handler")
		lambda.Start(api.LambdaHandler(runner))
		return
	}

	server := api.NewServer(cfg.Server, runner, reg, log)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		if err := server.Stop(context.Background()); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendDynamoDB:
		client, err := dynamo.NewClient(ctx, cfg.DynamoDB.Region)
		if err != nil {
			return nil, err
		}
		return dynamo.New(client, cfg.DynamoDB, log), nil
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.Postgres, log)
	default:
		return supabase.New(cfg.Supabase, log), nil
	}
}
