package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deusflow/batterynews/internal/app"
	"github.com/deusflow/batterynews/internal/config"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "batterynews",
		Short: "Finds solid-state battery news and posts it to Telegram.",
		Long: `batterynews asks Gemini (with Google Search grounding) for fresh
solid-state battery stories, drops the ones already published, illustrates
them and posts them to a Telegram channel on a cron schedule.

Without a subcommand it runs the service (same as "serve").`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or .env style); environment variables override it")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the HTTP API",
		RunE:  runServe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "discover",
		Short: "Run one discovery cycle and exit",
		RunE:  runDiscover,
	})

	return rootCmd
}

func newApp(ctx context.Context) (*app.App, error) {
	if cfgFile == "" {
		cfgFile = os.Getenv("CONFIG_FILE")
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return app.New(ctx, cfg)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Serve(cmd.Context())
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.RunOnce(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), "candidates=%d published=%d duplicates=%d unsourced=%d failed=%d\n",
		report.Candidates, report.Published, report.Duplicates, report.Unsourced, report.Failed)
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
