package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jstittsworth/milestone-tracker/internal/api/middleware"
	"github.com/jstittsworth/milestone-tracker/internal/models"
	"github.com/jstittsworth/milestone-tracker/internal/projection"
	"github.com/jstittsworth/milestone-tracker/internal/services"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the current totals and the projected record game",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.tracker.Snapshot(ctx, a.cfg.Milestone())
			writeStats(cmd.OutOrStdout(), result, a.cfg.TimezoneLabel)
			return nil
		},
	}
}

func jsonCmd() *cobra.Command {
	var compact bool
	cmd := &cobra.Command{
		Use:   "json",
		Short: "Print the current snapshot as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.tracker.Snapshot(ctx, a.cfg.Milestone())
			return writeJSON(cmd.OutOrStdout(), result, !compact)
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "print on one line")
	return cmd
}

func notifyCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send the current status to every NOTIFY_NUMBERS recipient",
		Long: `Take a fresh snapshot and text it to the configured recipients.
When the stats service is down the last stored snapshot is sent, marked as such.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.openStore()
			if err != nil {
				return err
			}

			update, err := a.refresher(store, nil).Refresh(ctx, false)
			if err != nil && !errors.Is(err, services.ErrNoSnapshot) {
				return err
			}

			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), services.FormatNotification(update.Snapshot, update.Stale))
				return nil
			}
			if len(a.cfg.NotifyNumbers) == 0 {
				return fmt.Errorf("NOTIFY_NUMBERS is empty")
			}

			sent, err := a.notifier().Notify(ctx, update.Snapshot, update.Stale)
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %d of %d notifications\n", sent, len(a.cfg.NotifyNumbers))
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the message instead of sending it")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin token for POST /api/v1/refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			token, err := middleware.GenerateToken(subject, a.cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func writeJSON(w io.Writer, v interface{}, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// writeStats prints the human-readable status block
func writeStats(w io.Writer, result models.ProjectionResult, zoneLabel string) {
	if result.IsError() {
		fmt.Fprintln(w, services.StatusMessage(result))
		return
	}

	name := result.PlayerName
	if name == "" {
		name = "Player"
	}
	label := result.MilestoneLabel
	if label == "" {
		label = fmt.Sprintf("%d goals", result.Milestone)
	}

	fmt.Fprintf(w, "%s: chasing %s\n", name, label)
	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintf(w, "  Career goals:   %d (%.1f%% of %d)\n", result.CurrentTotal, result.ProgressPercent, result.Milestone)
	fmt.Fprintf(w, "  Goals needed:   %d\n", result.GoalsNeeded)
	fmt.Fprintf(w, "  This season:    %d goals in %d games\n", result.SeasonGoals, result.SeasonGamesPlayed)
	if result.GamesMissed > 0 {
		fmt.Fprintf(w, "  Games missed:   %d of %d\n", result.GamesMissed, result.TeamGamesPlayed)
	}
	if result.Pace != nil {
		fmt.Fprintf(w, "  Pace:           %.3f goals per game\n", *result.Pace)
	}
	if result.GamesNeeded != nil {
		fmt.Fprintf(w, "  Games needed:   %d\n", *result.GamesNeeded)
	}
	if result.ProjectedGame != nil {
		fmt.Fprintf(w, "  Projected game: %s\n", result.ProjectedGame.Description)
	}
	if result.Confidence != nil {
		fmt.Fprintf(w, "  Confidence:     %.3f\n", *result.Confidence)
	}

	if len(result.UpcomingGames) > 0 {
		fmt.Fprintln(w, "\nUpcoming games:")
		for _, g := range result.UpcomingGames {
			fmt.Fprintf(w, "  %s\n", projection.FormatGame(g, zoneLabel))
		}
	}

	fmt.Fprintf(w, "\n%s\n", services.StatusMessage(result))
}
