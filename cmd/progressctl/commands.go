package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hanzikit/config"
	"hanzikit/core"
	"hanzikit/gamify"
	"hanzikit/notify"
)

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <user> <stat> [delta]",
		Short: "Apply a statistic update and print any unlocks",
		Long:  "Adds delta (default 1) to a counter statistic, or inserts delta as an element into a set statistic such as hsk_levels_completed.",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := core.ParseUserID(args[0])
			if err != nil {
				return err
			}
			delta := 1.0
			if len(args) == 3 {
				if delta, err = strconv.ParseFloat(args[2], 64); err != nil {
					return fmt.Errorf("invalid delta %q", args[2])
				}
			}
			eng, closeFn, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			key := core.StatKey(args[1])
			if !eng.Catalog().Recognized(key) {
				fmt.Fprintf(cmd.OutOrStdout(), "unknown statistic %q ignored\n", key)
				return nil
			}
			unlocked, err := eng.UpdateStatistic(cmd.Context(), user, key, delta)
			if err != nil {
				return err
			}
			printUnlocks(cmd, unlocked)
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <user>",
		Short: "Unlock whatever the stored statistics already satisfy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := core.ParseUserID(args[0])
			if err != nil {
				return err
			}
			eng, closeFn, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			unlocked, err := eng.CheckAchievements(cmd.Context(), user)
			if err != nil {
				return err
			}
			printUnlocks(cmd, unlocked)
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <user>",
		Short: "Render a user's achievement summary, screen or details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := core.ParseUserID(args[0])
			if err != nil {
				return err
			}
			view, _ := cmd.Flags().GetString("view")
			eng, closeFn, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			var render func(context.Context, core.UserID) (string, error)
			switch view {
			case "summary":
				render = eng.Summary
			case "screen":
				render = eng.Screen
			case "details":
				render = eng.Details
			default:
				return fmt.Errorf("unknown view %q (want summary, screen or details)", view)
			}
			out, err := render(cmd.Context(), user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().String("view", "summary", "View to render: summary, screen, details")
	return cmd
}

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank users by total points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("top")
			eng, closeFn, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			if _, err := eng.RebuildLeaderboard(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), notify.Leaderboard(eng.Leaderboard(n), nil))
			return nil
		},
	}
	cmd.Flags().IntP("top", "n", 10, "Number of users to show")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List achievement definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, d := range core.DefaultCatalog().All() {
				fmt.Fprintf(out, "%s %-20s %6s  %s\n", d.Icon, d.ID, humanize.Comma(d.Points), d.Description)
			}
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the SQL progress table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Storage.Adapter != "sql" {
				return fmt.Errorf("migrate needs the sql adapter, configured %q", cfg.Storage.Adapter)
			}
			cfg.Storage.SQL.AutoMigrate = true
			_, closeFn, err := gamify.OpenStore(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}
			defer closeFn()
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", cfg.Storage.SQL.Driver)
			return nil
		},
	}
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List configuration profiles",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(config.Profiles(), "\n"))
		},
	}
}

func printUnlocks(cmd *cobra.Command, unlocked []core.AchievementDefinition) {
	out := cmd.OutOrStdout()
	if len(unlocked) == 0 {
		fmt.Fprintln(out, "no new achievements")
		return
	}
	for _, msg := range notify.Unlocks(unlocked) {
		fmt.Fprintln(out, msg)
	}
}
