package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/charsync/internal/game"
	"github.com/dgnsrekt/charsync/internal/subscription"
)

func trackCmd() *cobra.Command {
	var realm, tag string

	cmd := &cobra.Command{
		Use:   "track GAME REGION NAME",
		Short: "Start tracking a character",
		Long: `Start tracking a character.

League of Legends characters are identified by platform, Riot ID game name
and tag line. WoW hardcore characters by region, realm and name.

Examples:
  # League of Legends (Riot ID Faker#KR1 on kr)
  charsync track lol kr Faker --tag KR1

  # WoW Classic hardcore
  charsync track wow_hc eu Grommash --realm "Soulseeker"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := game.Parse(args[0])
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			e, err := a.Track(cmd.Context(), g, args[1], args[2], realm, tag)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", e.ID, e)
			return nil
		},
	}

	cmd.Flags().StringVar(&realm, "realm", "", "realm name (wow_hc)")
	cmd.Flags().StringVar(&tag, "tag", "", "Riot ID tag line (lol)")
	return cmd
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync GAME",
		Short: "Synchronize every tracked entity of a game now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := game.Parse(args[0])
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.SyncNow(cmd.Context(), g)
			if err != nil {
				return err
			}

			fmt.Printf("Total: %d  Success: %d  Skipped: %d  Removed: %d  Failed: %d\n",
				summary.Total, summary.Succeeded, summary.Skipped, summary.Removed, summary.Failed)
			for _, e := range summary.Errors {
				fmt.Printf("  - %s\n", e)
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d entities failed", summary.Failed)
			}
			return nil
		},
	}
}

func requestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "request GAME [ENTITY_ID...]",
		Short: "Append a sync request to the event log",
		Long: `Append a sync_requested event. Without entity ids every tracked entity
of the game is synchronized when the subscription processes the event.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := game.Parse(args[0])
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ev, err := a.RequestSync(cmd.Context(), g, args[1:]...)
			if err != nil {
				return err
			}
			logger.Info("sync requested", zap.String("game", g.String()), zap.Int64("version", ev.Version))
			fmt.Printf("appended event %s at version %d\n", ev.Event.ID, ev.Version)
			return nil
		},
	}
}

func processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Process pending events once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if _, err := a.Engine.Ensure(ctx); err != nil {
				return err
			}
			if err := a.Engine.ProcessPendingEvents(ctx); err != nil {
				return err
			}

			st, err := a.Engine.State(ctx)
			if err != nil {
				return err
			}
			printState(st)
			if st.Status == subscription.StatusFailed {
				return fmt.Errorf("subscription %s halted at version %d", st.Name, st.Version)
			}
			return nil
		},
	}
}

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete snapshots older than the retention TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			deleted, err := a.Purge(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d snapshots\n", deleted)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the subscription state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.Engine.State(cmd.Context())
			if err != nil {
				return err
			}
			printState(st)
			return nil
		},
	}
}

func printState(st subscription.State) {
	fmt.Printf("Subscription: %s\nStatus: %s\nVersion: %d\nUpdated: %s\n",
		st.Name, st.Status, st.Version, st.Time.Format("2006-01-02 15:04:05"))
}
