// Package cmd defines and implements the CLI commands for the
// search-console-gateway executable.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/search-console-gateway/internal/api"
	"github.com/JakeFAU/search-console-gateway/internal/app"
	"github.com/JakeFAU/search-console-gateway/internal/config"
	"github.com/JakeFAU/search-console-gateway/internal/publisher"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the services commands use. Tests inject a fake.
type App interface {
	Config() config.Config
	Logger() *zap.Logger
	Reporter() api.Reporter
	Exporter() api.Exporter
	Events() publisher.Publisher
	Close(ctx context.Context) error
}

// newApp is the application factory, swapped out in tests.
var newApp = func(ctx context.Context, cfg config.Config) (App, error) {
	return app.Build(ctx, cfg)
}

// rootCommand is the command tree plus the App its pre-run opened.
type rootCommand struct {
	*cobra.Command
	app App
}

func newRootCmd() *rootCommand {
	var cfgFile, envFile string
	root := &rootCommand{}
	cmd := &cobra.Command{
		Use:   "search-console-gateway",
		Short: "Query Google Search Console reports and manage sitemaps.",
		Long: `search-console-gateway wraps the Google Search Console API. Every
site-scoped call that is refused for lack of permission is retried once
with the alternate form of the site identifier (URL prefix <-> sc-domain:).`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			root.app = appInstance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with SCGATEWAY_* overrides, ignored when absent")

	cmd.AddCommand(
		newSitesCmd(),
		newAnalyticsCmd(),
		newExportCmd(),
		newSitemapsCmd(),
		newInspectCmd(),
		newServeCmd(),
	)
	root.Command = cmd
	return root
}

// run executes the command tree, then closes the App whether or not the
// command succeeded. Cobra skips post-run hooks after a failed RunE.
func (r *rootCommand) run(ctx context.Context) error {
	err := r.ExecuteContext(ctx)
	if r.app != nil {
		if closeErr := r.app.Close(context.WithoutCancel(ctx)); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown failed: %w", closeErr))
		}
		r.app = nil
	}
	return err
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// withRequestTimeout bounds a one-shot command by api.timeout_seconds.
func withRequestTimeout(ctx context.Context, a App) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.Config().RequestTimeout())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
