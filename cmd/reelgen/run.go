package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelgen/reelgen/internal/engine"
	"github.com/reelgen/reelgen/internal/service"
	"github.com/reelgen/reelgen/internal/spin"
	"github.com/reelgen/reelgen/internal/store"
)

func newRunCmd(c *cli) *cobra.Command {
	var (
		count  string
		speed  float64
		watch  bool
		memory bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Spin the grid and print every result",
		Long: `Spins the grid for --count results and prints each one as it is recorded.

An invalid count falls back to a single result. With --watch the grid is
redrawn after every tick. --speed divides the phase delays; 0 spins instantly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("speed") {
				c.cfg.Speed = speed
			}
			return c.run(cmd.Context(), cmd.OutOrStdout(), count, watch, memory)
		},
	}
	cmd.Flags().StringVarP(&count, "count", "n", "1", "number of results to generate")
	cmd.Flags().Float64Var(&speed, "speed", 1, "delay divisor, 0 for no delay")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "redraw the grid after every tick")
	cmd.Flags().BoolVar(&memory, "memory", false, "keep the session in memory instead of the configured store")
	return cmd
}

// openStore opens the configured store, or a private in-memory sqlite.
func (c *cli) openStore(ctx context.Context, memory bool) (store.DB, error) {
	if !memory {
		return store.Open(ctx, c.cfg.Store)
	}
	db, err := store.NewSQLiteDB(":memory:")
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (c *cli) run(ctx context.Context, out io.Writer, count string, watch, memory bool) error {
	seeds, err := c.cfg.Seeds.Resolve()
	if err != nil {
		return err
	}
	db, err := c.openStore(ctx, memory)
	if err != nil {
		return err
	}
	defer db.Close()

	reels, err := service.New(ctx, c.cfg.Spin, seeds, db, c.logger, spin.WithSpeed(c.cfg.Speed))
	if err != nil {
		return err
	}
	defer reels.Close(context.Background())

	var mu sync.Mutex
	printf := func(format string, a ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, format, a...)
	}

	printf("server seed hash %s\nclient seed      %s\nsession          %s\n",
		engine.HashServerSeed(seeds.Server), seeds.Client, reels.Session().ID)
	printf("%s\n", renderGrid(reels.Snapshot()))

	reels.OnResult(func(r spin.Result) { printf("%s\n", renderResult(r)) })
	if watch {
		reels.Subscribe(func(snap spin.Snapshot) {
			printf("%s\n%s\n", renderGrid(snap), renderStatus(snap))
		})
	}

	snap, err := reels.Start(ctx, count)
	if err != nil {
		return err
	}
	if snap.Status == spin.StatusInvalidCount {
		printf("%s\n", snap.Status)
	}

	if err := reels.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			printf("interrupted\n")
			return nil
		}
		return err
	}

	final := reels.Snapshot()
	printf("%s\n%s\n", renderGrid(final), renderStatus(final))
	c.logger.Info("run complete",
		zap.String("session", reels.Session().ID),
		zap.Int("results", final.Generated))
	return nil
}
