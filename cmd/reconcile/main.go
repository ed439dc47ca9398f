// Command reconcile recomputes post counters from the edge ledger. With
// -watch it keeps following the activity stream instead of exiting.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/events"
	"warbler/internal/repository"
	"warbler/internal/service"
)

func main() {
	watch := flag.Bool("watch", false, "Follow the activity stream and reconcile touched posts")
	batch := flag.Int("batch", 500, "Posts scanned per batch in a full pass")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reconciler := service.NewReconciler(repository.NewStore(db))

	drifted, err := reconciler.ReconcileAll(ctx, *batch)
	if err != nil {
		log.Fatalf("Reconcile failed: %v", err)
	}
	log.Printf("✓ Full pass complete, %d posts corrected", len(drifted))

	if !*watch {
		return
	}

	rdb := cache.InitRedis(cfg.RedisURL)
	if rdb == nil {
		log.Fatalf("Watch mode requires Redis at %s", cfg.RedisURL)
	}
	defer func() { _ = rdb.Close() }()

	if err := reconciler.Watch(ctx, events.NewPublisher(rdb)); err != nil {
		log.Fatalf("Failed to subscribe to activity stream: %v", err)
	}
	log.Println("Watching activity stream...")
	<-ctx.Done()
	log.Println("Reconciler stopped")
}
