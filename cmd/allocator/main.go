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

	"billingledger/internal/allocation"
	"billingledger/internal/config"
	"billingledger/internal/ledger"
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
	once := flag.Bool("once", false, "run a single allocation pass for --year/--month and exit, ignoring the run-day gate")
	continuous := flag.Bool("continuous", false, "poll the monthly run-day gate on --interval")
	interval := flag.Duration("interval", time.Hour, "gate poll interval for --continuous")
	year := flag.Int("year", 0, "billing year to allocate (0 = previous calendar month)")
	month := flag.Int("month", 0, "billing month to allocate (0 = previous calendar month)")
	metricsAddr := flag.String("metrics-addr", ":9102", "address to serve /metrics on")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if !cfg.Alloc.Enabled {
		log.Info("monthly allocation disabled, exiting")
		return
	}

	creditPrice, err := decimal.NewFromString(cfg.Alloc.CreditPrice)
	if err != nil {
		log.Error("invalid MONTHLY_ALLOCATION_CREDIT_PRICE", "err", err)
		panic(err)
	}

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		panic(err)
	}
	defer func() { _ = db.Close() }()

	uow := unitofwork.NewDB(db, nil)
	subs := postgres.SubscriptionRepo{}
	invoices := postgres.InvoiceRepo{}
	txs := postgres.TransactionRepo{}
	ledgers := postgres.LedgerRepo{}
	ledgerSvc := ledger.NewService(uow, ledgers, txs)

	svc := allocation.NewService(uow, subs, invoices, ledgerSvc)

	reg := prometheus.NewRegistry()
	metrics := worker.NewMetrics(reg)

	params := allocation.Params{Year: *year, Month: *month, CreditPrice: creditPrice, Currency: "USD"}

	runner := worker.NewRunner("monthly_allocator", func(ctx context.Context) error {
		summary, err := svc.Run(ctx, params)
		if err != nil {
			return err
		}
		log.Info("allocation pass complete",
			"total", summary.Total, "successful", summary.Successful,
			"failed", summary.Failed, "invoices_created", summary.InvoicesCreated)
		return nil
	}, metrics, log)

	serveMetrics(*metricsAddr, reg, log)

	switch {
	case *once:
		if err := runner.RunOnce(ctx); err != nil {
			log.Error("allocation run failed", "err", err)
			os.Exit(1)
		}
	case *continuous:
		gated := worker.NewGated(runner, nil)
		runCtx, cancel := signalContext()
		defer cancel()
		gated.RunForever(runCtx, *interval)
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
