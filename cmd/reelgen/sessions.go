package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reelgen/reelgen/internal/engine"
	"github.com/reelgen/reelgen/internal/store"
)

func newSessionsCmd(c *cli) *cobra.Command {
	var q store.SessionsQuery

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := c.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer db.Close()

			list, err := db.ListSessions(cmd.Context(), q)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSessions(list))
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Status, "status", "", "only sessions in this status")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.PerPage, "per-page", 20, "sessions per page")
	return cmd
}

func newSeedsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "seeds",
		Short: "Generate a fresh seed pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			seeds, err := engine.NewSeeds()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "REELGEN_SERVER_SEED=%s\n", seeds.Server)
			fmt.Fprintf(out, "REELGEN_CLIENT_SEED=%s\n", seeds.Client)
			fmt.Fprintf(out, "# server seed hash %s\n", engine.HashServerSeed(seeds.Server))
			return nil
		},
	}
}
