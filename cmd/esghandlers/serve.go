package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"esghandlers/pkg/auth"
	"esghandlers/pkg/config"
	"esghandlers/pkg/metrics"
	"esghandlers/pkg/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func serveCmd() *cobra.Command {
	var (
		address        string
		metricsAddress string
		offline        bool
		tlsConfig      auth.TLSConfig
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the validation service",
		Long: `Serve ValidateFile and GetContext over gRPC, with the standard health
service and Prometheus metrics on a separate HTTP listener.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			cfg, err := loadConfig(logger)
			if err != nil {
				return err
			}

			rt := config.LoadFromEnv()
			if cmd.Flags().Changed("address") {
				rt.Address = address
			}
			if cmd.Flags().Changed("metrics-address") {
				rt.MetricsAddress = metricsAddress
			}
			if cmd.Flags().Changed("offline") {
				rt.Offline = offline
			}

			credsOpt, err := tlsConfig.ServerOption()
			if err != nil {
				return fmt.Errorf("failed to configure TLS: %w", err)
			}

			m := metrics.New(prometheus.NewRegistry())
			srv := service.NewServer(handlerOptions(cfg, rt, logger, m))

			gs := grpc.NewServer(credsOpt, grpc.UnaryInterceptor(service.LoggingInterceptor(logger)))
			srv.Register(gs)

			listener, err := net.Listen("tcp", rt.Address)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", rt.Address, err)
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", m.Handler())
			metricsServer := &http.Server{
				Addr:              rt.MetricsAddress,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Metrics server failed", zap.Error(err))
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()
				logger.Info("Shutting down service")
				srv.Shutdown()
				gs.GracefulStop()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = metricsServer.Shutdown(shutdownCtx)
			}()

			logger.Info("Starting service",
				zap.String("address", rt.Address),
				zap.String("metrics_address", rt.MetricsAddress),
				zap.Bool("tls", tlsConfig.Enabled()),
				zap.Bool("offline", rt.Offline))

			return gs.Serve(listener)
		},
	}

	cmd.Flags().StringVar(&address, "address", ":9090", "gRPC listening address (default $ESGHANDLERS_ADDRESS)")
	cmd.Flags().StringVar(&metricsAddress, "metrics-address", ":9091", "metrics listening address (default $ESGHANDLERS_METRICS_ADDRESS)")
	cmd.Flags().BoolVar(&offline, "offline", false, "do not fetch CMOR table updates")
	cmd.Flags().StringVar(&tlsConfig.CertPath, "tls-cert", "", "server certificate")
	cmd.Flags().StringVar(&tlsConfig.KeyPath, "tls-key", "", "server private key")
	cmd.Flags().StringVar(&tlsConfig.ClientCAPath, "tls-client-ca", "", "CA used to verify client certificates")
	cmd.Flags().StringVar(&tlsConfig.MinTLSVersion, "tls-min-version", "1.2", "minimum TLS version (1.2 or 1.3)")

	return cmd
}
