package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gtriggiano/access-authority-service/pkg/authority"
	"github.com/gtriggiano/access-authority-service/pkg/config"
	"github.com/gtriggiano/access-authority-service/pkg/logging"
	"github.com/gtriggiano/access-authority-service/pkg/metrics"
	"github.com/gtriggiano/access-authority-service/pkg/service"
)

var cfgFile string

// init wires the serve subcommand and configuration flag into the CLI.
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&cfgFile, "config", "config.yaml", "Path to the configuration file")
}

var serveCmd = &cobra.Command{
	Use:           "serve",
	Short:         "Start the access authority gRPC service",
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := filepath.Abs(cfgFile)
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		baseLogger, err := logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		defer func() { _ = baseLogger.Sync() }()
		logger := baseLogger.With(zap.String("component", "cli"))

		runCtx, cancelRunCtx := context.WithCancel(context.Background())
		defer cancelRunCtx()

		metricsServer := metrics.NewServer(cfg.Metrics, baseLogger.With(zap.String("component", "metrics-server")), nil)
		metricsServer.SetReady(false)

		authorityStores, err := authority.BuildStores(runCtx, baseLogger.With(zap.String("component", "authority-store")), metricsServer.Instrumentation(), cfg.AuthorityStores)
		if err != nil {
			logger.Error("could not build authority stores", zap.Error(err))
			return err
		}

		healthCheckers := make([]metrics.HealthChecker, 0, len(authorityStores))
		resolvers := make([]service.AuthorityResolver, 0, len(authorityStores))
		for _, store := range authorityStores {
			healthCheckers = append(healthCheckers, store)
			resolvers = append(resolvers, store)
		}
		metricsServer.SetHealthCheckers(healthCheckers)

		manager := service.NewManager(resolvers, metricsServer.Instrumentation(), baseLogger.With(zap.String("component", "service-manager")))

		serviceServer, err := service.NewServer(cfg.Server, manager, baseLogger.With(zap.String("component", "service-server")))
		if err != nil {
			logger.Error("could not create gRPC server", zap.Error(err))
			return err
		}

		serversGroup, serversCtx := errgroup.WithContext(runCtx)

		serversGroup.Go(func() error {
			return metricsServer.Start(serversCtx)
		})

		serversGroup.Go(func() error {
			return serviceServer.Start(serversCtx, func() { metricsServer.SetReady(true) })
		})

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigCh)

		done := make(chan struct{})
		defer close(done)

		go func() {
			select {
			case <-sigCh:
				logger.Info("shutdown signal received")
				cancelRunCtx()
				timeout := cfg.Shutdown.ShutdownTimeout()
				timer := time.NewTimer(timeout)
				defer timer.Stop()
				select {
				case <-done:
				case <-timer.C:
					logger.Error("shutdown timed out", zap.String("timeout", timeout.String()))
					os.Exit(1)
				}
			case <-done:
				return
			}
		}()

		if err := serversGroup.Wait(); err != nil && serversCtx.Err() == nil {
			logger.Error("server exited with error", zap.Error(err))
			return err
		}
		return nil
	},
}
