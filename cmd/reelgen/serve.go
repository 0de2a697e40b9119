package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelgen/reelgen/internal/api"
	"github.com/reelgen/reelgen/internal/engine"
	"github.com/reelgen/reelgen/internal/service"
	"github.com/reelgen/reelgen/internal/spin"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and websocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.HTTP.Addr = addr
			}
			return c.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	seeds, err := c.cfg.Seeds.Resolve()
	if err != nil {
		return err
	}
	db, err := c.openStore(ctx, false)
	if err != nil {
		return err
	}
	defer db.Close()

	reels, err := service.New(ctx, c.cfg.Spin, seeds, db, c.logger, spin.WithSpeed(c.cfg.Speed))
	if err != nil {
		return err
	}
	defer reels.Close(context.Background())

	srv := api.NewServer(reels, c.logger, c.cfg.HTTP.AllowedOrigins)
	l, err := srv.Listen(c.cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", c.cfg.HTTP.Addr, err)
	}
	c.logger.Info("serving",
		zap.String("addr", l.Addr().String()),
		zap.String("server_seed_hash", engine.HashServerSeed(seeds.Server)),
		zap.String("store", c.cfg.Store.Driver))

	select {
	case err := <-l.Err():
		return err
	case <-ctx.Done():
	}

	c.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := l.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
