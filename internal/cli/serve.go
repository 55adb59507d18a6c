package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lattiq/mailrelay"
	"github.com/lattiq/mailrelay/internal/events"
	"github.com/lattiq/mailrelay/internal/server"
)

func newServeCommand() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay",
		Long: "Run the HTTP relay. Without --config the relay starts with two " +
			"simulated providers that each succeed half of the time.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadFileConfig(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the YAML configuration file")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server.addr")
	return cmd
}

// Serve runs the relay until ctx is done, then shuts down the HTTP server and
// drains the queue within cfg.ShutdownTimeout.
func Serve(ctx context.Context, cfg FileConfig) error {
	logger, err := mailrelay.NewLogger(cfg.Monitoring.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Events.Kafka != nil {
		pub, err := events.NewKafkaPublisher(*cfg.Events.Kafka, logger)
		if err != nil {
			return fmt.Errorf("failed to create status publisher: %w", err)
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("failed to close status publisher", zap.Error(err))
			}
		}()
		cfg.Listeners = append(cfg.Listeners, pub)
	}

	cfg.Logger = logger
	d, err := mailrelay.New(cfg.Config)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	srv := server.New(cfg.Server, d, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("mail relay started",
		zap.String("addr", cfg.Server.Addr),
		zap.Int("providers", len(cfg.Providers)),
		zap.String("version", mailrelay.Version))

	var serveErr error
	select {
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("http server failed", zap.Error(serveErr))
		}
	case <-ctx.Done():
		logger.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}
	if err := d.Close(shutdownCtx); err != nil {
		logger.Warn("queue did not drain before shutdown deadline",
			zap.Int("queued", d.QueueLength()), zap.Error(err))
		if serveErr == nil && !errors.Is(err, context.DeadlineExceeded) {
			serveErr = err
		}
	}

	logger.Info("mail relay stopped")
	return serveErr
}
