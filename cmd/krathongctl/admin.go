package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/saxenaaman628/krathong-voting/internal/models"
	redishandler "github.com/saxenaaman628/krathong-voting/internal/redisHandler"
)

var (
	flagVoting       bool
	flagRegistration bool
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative operations, the token must belong to an admin",
}

var adjustCmd = &cobra.Command{
	Use:   "adjust <krathong-id> <up|down>",
	Short: "Move a score by one step, never below zero",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := parseStep(args[1])
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		score, err := newClient().AdjustScore(ctx, args[0], delta)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "score of %s is now %d\n", args[0], score)
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <user-id> <krathong-id>",
	Short: "Cancel a user's vote so they can vote again",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		outcome, err := newClient().CancelVote(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if outcome != redishandler.Cancelled {
			return fmt.Errorf("%s has no vote for %s", args[0], args[1])
		}
		fmt.Fprintln(cmd.OutOrStdout(), "vote cancelled")
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Open or close registration and voting",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var patch models.SettingsPatch
		if cmd.Flags().Changed("voting") {
			patch.VotingEnabled = &flagVoting
		}
		if cmd.Flags().Changed("registration") {
			patch.RegistrationEnabled = &flagRegistration
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		c := newClient()
		var (
			cfg models.AppConfig
			err error
		)
		if patch.VotingEnabled == nil && patch.RegistrationEnabled == nil {
			cfg, err = c.Settings(ctx)
		} else {
			cfg, err = c.UpdateSettings(ctx, patch)
		}
		if err != nil {
			return err
		}
		return printJSON(cmd, cfg)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vote and score totals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		stats, err := newClient().Stats(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, stats)
	},
}

// parseStep accepts up/down or a signed step; "-5" needs a preceding "--"
// to get past flag parsing.
func parseStep(raw string) (int64, error) {
	switch raw {
	case "up":
		return models.AdjustPoints, nil
	case "down":
		return -models.AdjustPoints, nil
	}
	delta, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || (delta != models.AdjustPoints && delta != -models.AdjustPoints) {
		return 0, fmt.Errorf("step must be up, down, +%d or -%d", models.AdjustPoints, models.AdjustPoints)
	}
	return delta, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	settingsCmd.Flags().BoolVar(&flagVoting, "voting", true, "enable voting")
	settingsCmd.Flags().BoolVar(&flagRegistration, "registration", true, "enable registration")

	adminCmd.AddCommand(adjustCmd, cancelCmd, settingsCmd, statsCmd)
	rootCmd.AddCommand(adminCmd)
}
