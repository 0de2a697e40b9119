package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reelgen/reelgen/internal/engine"
	"github.com/reelgen/reelgen/internal/service"
	"github.com/reelgen/reelgen/internal/spin"
)

func newVerifyCmd(c *cli) *cobra.Command {
	var (
		server  string
		client  string
		count   int
		session string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay seeds, or check a stored session",
		Long: `Without --session, replays --count results for the given seeds and prints
them. With --session, replays the stored session with the revealed --server
seed and reports whether every recorded result matches.`,
		Example: `  reelgen verify --server <seed> --client abc --count 3
  reelgen verify --server <seed> --session 7f9c...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if server == "" {
				return errors.New("--server is required")
			}

			if session != "" {
				db, err := c.openStore(cmd.Context(), false)
				if err != nil {
					return err
				}
				defer db.Close()

				results, err := service.VerifySession(cmd.Context(), db, c.cfg.Spin, session, server)
				switch {
				case err == nil:
					fmt.Fprintf(out, "%s\nsession %s verified, %d results\n",
						resultStyle.Render("OK"), session, len(results))
					return nil
				case errors.Is(err, spin.ErrMismatch), errors.Is(err, service.ErrSeedHash):
					fmt.Fprintf(out, "session %s FAILED: %v\n", session, err)
					return err
				default:
					return err
				}
			}

			if client == "" {
				return errors.New("--client is required without --session")
			}
			seeds := engine.Seeds{Server: server, Client: client}
			results, err := spin.Replay(c.cfg.Spin, seeds, count)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "server seed hash %s\n", engine.HashServerSeed(server))
			for _, r := range results {
				fmt.Fprintln(out, r.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "revealed server seed")
	cmd.Flags().StringVar(&client, "client", "", "client seed")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "results to replay")
	cmd.Flags().StringVar(&session, "session", "", "stored session id")
	return cmd
}
