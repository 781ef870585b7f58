package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jfyne/answers/internal/bootstrap"
	"github.com/jfyne/answers/internal/config"
	"github.com/jfyne/answers/internal/httpserver"
	"github.com/jfyne/answers/internal/logx"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func init() { _ = godotenv.Load() }

var rootCmd = &cobra.Command{
	Use:           "answers",
	Short:         "Server rendered live widgets",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve every widget over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if addr != "" {
			cfg.Addr = addr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logx.L())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides ADDR")
	rootCmd.AddCommand(serveCmd, versionCmd)
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	widgets, err := config.LoadWidgets(cfg.WidgetsFile)
	if err != nil {
		return err
	}

	store, closeStore, err := bootstrap.BuildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap store: %w", err)
	}
	defer closeStore()

	ps, closePubSub, err := bootstrap.BuildPubSub(ctx, cfg, logger.Named("pubsub"))
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer closePubSub()

	handlers, err := bootstrap.Handlers(cfg, widgets, store, logger)
	if err != nil {
		return fmt.Errorf("bootstrap widgets: %w", err)
	}
	mounts := bootstrap.Mounts(ctx, cfg, handlers, ps, logger)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpserver.NewRouter(mounts, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server started", zap.String("addr", cfg.Addr), zap.String("storage", cfg.Storage), zap.String("pubsub", cfg.PubSub))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		logger.Info("server stopped")
		return err
	})
	return g.Wait()
}

func main() {
	defer func() { _ = logx.L().Sync() }()
	if err := rootCmd.Execute(); err != nil {
		logx.L().Fatal("answers", zap.Error(err))
	}
}
