package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokoledger/internal/cache"
	"tokoledger/internal/config"
	"tokoledger/internal/httpapi"
	"tokoledger/internal/inventory"
	"tokoledger/internal/ledger"
	"tokoledger/internal/offline"
	"tokoledger/internal/payment"
	"tokoledger/internal/shift"
	"tokoledger/internal/store"
	"tokoledger/internal/store/memory"
	pgstore "tokoledger/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 3)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	shiftCache := cache.ShiftCache(cache.NoopShiftCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisShiftCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			shiftCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	queueStore, err := offline.NewSQLiteStore(cfg.OfflineDBPath)
	if err != nil {
		log.Fatalf("offline queue unavailable: %v", err)
	}
	closers = append(closers, queueStore.Close)
	log.Printf("offline queue: sqlite at %s", cfg.OfflineDBPath)

	shifts := shift.NewManager(repo, shiftCache, cfg.StoreID)
	adjuster := inventory.NewAdjuster(repo)
	classifier := payment.NewClassifier(nil)
	saleLedger := ledger.New(repo, shifts, adjuster, classifier, ledger.Config{
		TaxEnabled:     cfg.TaxEnabled,
		TaxRatePercent: cfg.TaxRatePercent,
	})
	queue := offline.NewQueue(queueStore, saleLedger)
	api := httpapi.New(repo, shifts, saleLedger, queue, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("shift ledger listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}
