package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saxenaaman628/krathong-voting/internal/client"
)

var (
	flagUID   string
	flagEmail string
	flagName  string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Get a token from a server running with AUTH_DEV_LOGIN",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		token, err := newClient().Login(ctx, flagUID, flagEmail, flagName)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List krathongs by score",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		entries, err := newClient().ListEntries(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tID\tNAME\tSCORE\tVOTES\tMEMBERS")
		for i, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\n", i+1, e.ID, e.Name, e.Score, e.Votes, len(e.Members))
		}
		return w.Flush()
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote <krathong-id>",
	Short: "Cast your single vote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		c := newClient()
		me, err := c.Me(ctx)
		if err != nil {
			return err
		}
		state := client.NewVoteState(c)
		state.SignIn(me)
		if err := state.Refresh(ctx); err != nil {
			return err
		}
		if err := state.RequestVote(ctx, args[0]); err != nil {
			return err
		}
		snap := state.Snapshot()
		fmt.Fprintf(cmd.OutOrStdout(), "%s, score is now %d\n", snap.Notice, snap.ScoresByEntry[args[0]])
		return nil
	},
}

var myVoteCmd = &cobra.Command{
	Use:   "my-vote",
	Short: "Show which krathong you voted for",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		record, err := newClient().MyVote(ctx)
		if err != nil {
			return err
		}
		if !record.HasVoted() {
			fmt.Fprintln(cmd.OutOrStdout(), "you have not voted")
			return nil
		}
		if record.VotedAt == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "you voted for %s\n", record.VotedEntryID)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "you voted for %s at %s\n", record.VotedEntryID, record.VotedAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&flagUID, "uid", "", "user id")
	loginCmd.Flags().StringVar(&flagEmail, "email", "", "email address")
	loginCmd.Flags().StringVar(&flagName, "name", "", "display name")
	_ = loginCmd.MarkFlagRequired("uid")
	_ = loginCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(loginCmd, listCmd, voteCmd, myVoteCmd)
}
