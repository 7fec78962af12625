package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/saxenaaman628/krathong-voting/config"
	"github.com/saxenaaman628/krathong-voting/internal/client"
)

var (
	flagServer  string
	flagToken   string
	flagTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "krathongctl",
	Short:         "Command line client for the krathong contest API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", config.GetEnv("KRATHONG_SERVER", "http://localhost:8080"),
		"base URL of the API (env KRATHONG_SERVER)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", os.Getenv("KRATHONG_TOKEN"),
		"bearer token (env KRATHONG_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 10*time.Second,
		"timeout for the whole command")
}

func newClient() *client.Client {
	return client.New(flagServer, flagToken, nil)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), flagTimeout)
}

func main() {
	_ = config.LoadEnv()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
