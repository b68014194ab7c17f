package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GustavoAl5317/momentusi-sub000/internal/biz"
	"github.com/GustavoAl5317/momentusi-sub000/internal/conf"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	klog "github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
	_ "go.uber.org/automaxprocs"
)

var (
	flagconf string
)

// CronApp bundles the usecases the scheduled jobs need.
type CronApp struct {
	paymentUsecase *biz.PaymentUsecase
}

// newLogger creates the cron logger.
func newLogger() klog.Logger {
	return klog.With(klog.NewStdLogger(os.Stdout),
		"ts", klog.DefaultTimestamp,
		"caller", klog.DefaultCaller,
		"service.name", "timeline-cron",
	)
}

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}

	app, cleanup, err := wireApp(&bc)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	cronScheduler := cron.New(cron.WithSeconds())

	// 1. Payment reconciliation sweep - every 5 minutes. Server-side
	// retry: pending payments get re-checked against the gateway even when
	// the user closed the tab and no webhook ever arrived.
	_, err = cronScheduler.AddFunc("0 */5 * * * *", func() {
		log.Println("[CRON] Starting payment reconciliation sweep...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		checked, updated, err := app.paymentUsecase.SweepPendingPayments(ctx)
		if err != nil {
			log.Printf("[CRON] Error sweeping pending payments: %v", err)
		} else {
			log.Printf("[CRON] Reconciliation sweep done: checked=%d, updated=%d", checked, updated)
		}
	})
	if err != nil {
		log.Printf("Failed to add reconciliation sweep job: %v", err)
	}

	// 2. Abandoned draft cleanup - every day at 03:00
	_, err = cronScheduler.AddFunc("0 0 3 * * *", func() {
		log.Println("[CRON] Starting abandoned draft cleanup...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		removed, err := app.paymentUsecase.CleanupAbandonedDrafts(ctx)
		if err != nil {
			log.Printf("[CRON] Error cleaning up drafts: %v", err)
		} else {
			log.Printf("[CRON] Removed %d abandoned drafts", removed)
		}
	})
	if err != nil {
		log.Printf("Failed to add draft cleanup job: %v", err)
	}

	cronScheduler.Start()
	log.Println("========================================")
	log.Println("Cron jobs started successfully")
	log.Println("Scheduled jobs:")
	log.Println("  - Payment reconciliation: Every 5 minutes")
	log.Println("  - Draft cleanup:          Every day at 03:00")
	log.Println("========================================")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gracefully...")

	ctx := cronScheduler.Stop()
	select {
	case <-ctx.Done():
		log.Println("Cron jobs stopped gracefully")
	case <-time.After(5 * time.Second):
		log.Println("Cron jobs forced to stop after timeout")
	}
}
