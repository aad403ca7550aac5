package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia/wallet-ledger/internal/adapter/http/controller"
	"github.com/custodia/wallet-ledger/internal/adapter/http/middleware"
	"github.com/custodia/wallet-ledger/internal/adapter/http/router"
	"github.com/custodia/wallet-ledger/internal/adapter/repository/postgres"
	"github.com/custodia/wallet-ledger/internal/config"
	"github.com/custodia/wallet-ledger/internal/ledger"
	"github.com/custodia/wallet-ledger/internal/logger"
	"github.com/custodia/wallet-ledger/internal/metrics"
	"github.com/custodia/wallet-ledger/internal/security"
	"github.com/custodia/wallet-ledger/internal/usecase/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := postgres.RunMigrations(ctx, cfg.DatabaseDSN, cfg.MigrationsDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	vault, err := security.NewKeyVault(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("init key vault: %v", err)
	}

	accountStore := postgres.NewAccountStore(db)
	ledgerStore := postgres.NewLedgerStore(db)

	collector := metrics.NewCollector()
	locker := ledger.NewAccountLocker(cfg.LockWaitTimeout)
	engine := ledger.NewEngine(ledgerStore, accountStore, locker, collector)

	accountService := services.NewAccountService(accountStore, engine, vault)
	ledgerService := services.NewLedgerService(engine)

	accountController := controller.NewAccountController(accountService, ledgerService)
	transactionController := controller.NewTransactionController(ledgerService)

	authMiddleware := middleware.BasicAuth(cfg.ChannelID, cfg.ChannelKey)
	handler := router.New(accountController, transactionController, authMiddleware, collector)

	reconciler := services.NewReconciler(ledgerStore, collector, cfg.PendingGracePeriod, cfg.SweepInterval)
	reconciler.Start()

	metricsServer := collector.StartServer(cfg.MetricsAddr)
	httpServer := startHTTPServer(cfg.HTTPAddr, handler)

	waitForShutdown(httpServer, metricsServer, reconciler)
	logger.Info("wallet ledger shutdown complete", nil)
}

func startHTTPServer(addr string, handler http.Handler) *http.Server {
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", logger.Fields{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", err, nil)
			os.Exit(1)
		}
	}()

	return server
}

func waitForShutdown(httpServer, metricsServer *http.Server, reconciler *services.Reconciler) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown failed", err, nil)
	}

	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("metrics server shutdown failed", err, nil)
	}

	reconciler.Stop()
}
