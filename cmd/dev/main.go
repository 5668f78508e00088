package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"datalab/internal/launcher"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "datalab-dev",
		Short: "Datalab development tools",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newWaitCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	cfg := launcher.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the API server and the frontend dev server together",
		Long: `Start the API backend, wait for /health, then start the frontend with
npm and wait for it to answer. Ctrl+C stops both.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Out = cmd.OutOrStdout()
			return launcher.NewRunner(cfg).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cfg.BackendDir, "backend-dir", cfg.BackendDir, "directory the backend command runs in")
	cmd.Flags().StringVar(&cfg.FrontendDir, "frontend-dir", cfg.FrontendDir, "frontend project directory (must contain node_modules)")
	cmd.Flags().IntVar(&cfg.BackendPort, "backend-port", cfg.BackendPort, "port the API listens on")
	cmd.Flags().IntVar(&cfg.FrontendPort, "frontend-port", cfg.FrontendPort, "port the frontend dev server listens on")
	cmd.Flags().StringVar(&cfg.BackendCmd, "backend-cmd", cfg.BackendCmd, "command that starts the API")
	return cmd
}

func newWaitCmd() *cobra.Command {
	var (
		attempts int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "wait [url]",
		Short: "Poll a URL until it answers 200 OK",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			poller := launcher.NewPoller(attempts, interval)
			if err := poller.Wait(cmd.Context(), args[0], nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is ready\n", args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&attempts, "attempts", 10, "number of attempts")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "delay between attempts")
	return cmd
}
