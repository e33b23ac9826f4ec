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

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/powchain/internal/api"
	"github.com/jmerrifield20/powchain/internal/api/handler"
	"github.com/jmerrifield20/powchain/internal/feed"
	"github.com/jmerrifield20/powchain/internal/node"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run a node and serve the chain over HTTP",
	Long: `Start mines the genesis block and serves the ledger:

  GET  /chain              every block
  POST /transaction        mine and append a block, body is a JSON string
  GET  /chain/verify       link check and proof-of-work audit
  GET  /chain/ws           websocket stream of appended blocks

  powchain start --port 8080`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	startCmd.Flags().Int("port", 8080, "HTTP listen port")
	startCmd.Flags().String("host", "127.0.0.1", "HTTP listen host")
	_ = viper.BindPFlag("server.port", startCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", startCmd.Flags().Lookup("host"))
}

func runStart(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Ledger ────────────────────────────────────────────────────────────────
	n := node.New(cfg.Chain.Difficulty, logger)
	handler.SetChainLength(n.Len())

	hub := feed.NewHub(logger)
	go hub.Run(ctx)

	n.OnAppend(handler.RecordBlockAppend)
	n.OnAppend(hub.Publish)

	// ── HTTP Router ───────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(ctx, cfg.Server, n, hub, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("powchain HTTP listening",
			zap.String("addr", srv.Addr),
			zap.Int("difficulty", n.Difficulty()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down powchain...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("powchain stopped", zap.Int("blocks", n.Len()))
	return nil
}
