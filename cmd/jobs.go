package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nichofy/ms-go-entitlements/app/service"
	"github.com/nichofy/ms-go-entitlements/config"
)

var (
	workerMode bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run audit-trail related commands",
}

var auditDispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Dispatch pending audit events to the monitoring webhook",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"audit_dispatch",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.AuditDispatchInterval },
			func(s *service.ConfirmationService, ctx context.Context) error {
				return s.RunDispatchAuditBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditDispatchCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.ConfirmationService, ctx context.Context) error,
) {
	cfg, confirmationService, cleanup := mustCreateConfirmationService()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), confirmationService, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(confirmationService, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	confirmationService *service.ConfirmationService,
	fn func(s *service.ConfirmationService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(confirmationService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(confirmationService, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
