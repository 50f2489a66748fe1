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

	"billingledger/internal/anomaly"
	"billingledger/internal/config"
	"billingledger/internal/domain"
	"billingledger/internal/store/postgres"
	"billingledger/internal/unitofwork"
	"billingledger/internal/worker"
	"billingledger/pkg/logger"
	"billingledger/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	once := flag.Bool("once", false, "run a single detection pass and exit")
	continuous := flag.Bool("continuous", false, "run forever on --interval")
	interval := flag.Duration("interval", time.Hour, "poll interval for --continuous")
	metricsAddr := flag.String("metrics-addr", ":9101", "address to serve /metrics on")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if !cfg.Anomaly.Enabled {
		log.Info("anomaly detection disabled, exiting")
		return
	}

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		panic(err)
	}
	defer func() { _ = db.Close() }()

	uow := unitofwork.NewDB(db, nil)
	txs := postgres.TransactionRepo{}
	anomalies := postgres.AnomalyRepo{}

	var notifier anomaly.Notifier = anomaly.NoopNotifier{}
	if cfg.Anomaly.NotificationWebhook != "" {
		notifier = anomaly.NewWebhookNotifier(cfg.Anomaly.NotificationWebhook)
	}
	svc := anomaly.NewService(uow, txs, anomalies, notifier)

	hourlyThreshold, err := parseThreshold(cfg.Anomaly.HourlyThreshold)
	if err != nil {
		log.Error("invalid ANOMALY_HOURLY_THRESHOLD", "err", err)
		panic(err)
	}

	reg := prometheus.NewRegistry()
	metrics := worker.NewMetrics(reg)

	runner := worker.NewRunner("anomaly_detector", func(ctx context.Context) error {
		_, err := svc.Run(ctx, anomaly.DetectionParams{
			Threshold: hourlyThreshold,
			Type:      domain.AnomalyHourlyThreshold,
		})
		return err
	}, metrics, log)

	serveMetrics(*metricsAddr, reg, log)

	switch {
	case *once:
		if err := runner.RunOnce(ctx); err != nil {
			log.Error("anomaly detection run failed", "err", err)
			os.Exit(1)
		}
	case *continuous:
		runCtx, cancel := signalContext()
		defer cancel()
		runner.RunForever(runCtx, *interval)
	default:
		log.Info("no mode flag given, pass --once or --continuous")
	}
}

func parseThreshold(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
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
