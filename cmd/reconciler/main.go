package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"billingledger/internal/config"
	"billingledger/internal/reconcile"
	"billingledger/internal/store/postgres"
	"billingledger/internal/unitofwork"
	"billingledger/internal/worker"
	"billingledger/pkg/logger"
	"billingledger/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	once := flag.Bool("once", false, "run a single reconciliation pass and exit")
	continuous := flag.Bool("continuous", false, "run forever on --interval")
	interval := flag.Duration("interval", 0, "poll interval for --continuous (default RECONCILIATION_INTERVAL_SECONDS)")
	metricsAddr := flag.String("metrics-addr", ":9103", "address to serve /metrics on")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if !cfg.Recon.Enabled {
		log.Info("reconciliation disabled, exiting")
		return
	}

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		panic(err)
	}
	defer func() { _ = db.Close() }()

	uow := unitofwork.NewDB(db, nil)
	ledgers := postgres.LedgerRepo{}
	txs := postgres.TransactionRepo{}
	svc := reconcile.NewService(uow, ledgers, txs, log)

	reg := prometheus.NewRegistry()
	metrics := worker.NewMetrics(reg)

	runner := worker.NewRunner("reconciler", func(ctx context.Context) error {
		summary, err := svc.Run(ctx)
		if err != nil {
			return err
		}
		metrics.Discrepancies.Set(float64(len(summary.Discrepancies)))
		log.Info("reconciliation pass complete", "checked", summary.Checked, "discrepancies", len(summary.Discrepancies))
		return nil
	}, metrics, log)

	serveMetrics(*metricsAddr, reg, log)

	pollInterval := *interval
	if pollInterval == 0 {
		pollInterval = time.Duration(cfg.Recon.IntervalSeconds) * time.Second
	}

	switch {
	case *once:
		if err := runner.RunOnce(ctx); err != nil {
			log.Error("reconciliation run failed", "err", err)
			os.Exit(1)
		}
	case *continuous:
		runCtx, cancel := signalContext()
		defer cancel()
		runner.RunForever(runCtx, pollInterval)
	default:
		log.Info("no mode flag given, pass --once or --continuous")
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", "err", err)
		}
	}()
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()
	return ctx, cancel
}
