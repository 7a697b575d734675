// Package cmd defines and implements the CLI commands for the siteaudit executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/app"
	"github.com/JakeFAU/siteaudit/internal/config"
	"github.com/JakeFAU/siteaudit/internal/logging"
)

// runtimeKeyType is the key for storing the loaded runtime in the context.
type runtimeKeyType string

const runtimeKey runtimeKeyType = "runtime"

// runtime is what PersistentPreRunE hands to subcommands.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

// newApp is the application factory. It's a variable so tests can swap it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}

// newRootCmd creates and configures the root command.
func newRootCmd(stdout io.Writer) *cobra.Command {
	var cfgFile, logLevel string
	cmd := &cobra.Command{
		Use:   "siteaudit",
		Short: "Crawl a website and evaluate it against a QA rule catalog.",
		Long: `siteaudit crawls a site, escalating JavaScript-heavy pages to a headless
browser, evaluates every rule of the selected partner and build phase, and
reports a score out of 100 with per-rule results.`,
		SilenceUsage: true,

		// Config and the logger are built before any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			logger, err := logging.New(logging.Options{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey, &runtime{cfg: cfg, logger: logger}))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKey).(*runtime); ok {
				_ = rt.logger.Sync()
			}
		},
	}
	cmd.SetOut(stdout)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./siteaudit.yaml or $HOME/.siteaudit/siteaudit.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newRulesCmd())
	return cmd
}

func resolveRuntime(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKey).(*runtime)
	if !ok || rt == nil {
		return nil, errors.New("configuration not initialized")
	}
	return rt, nil
}

// Execute is the main entry point. It returns the process exit code.
func Execute() int {
	err := newRootCmd(os.Stdout).ExecuteContext(context.Background())
	if err == nil {
		return 0
	}
	var below *scoreBelowError
	if errors.As(err, &below) {
		return 2
	}
	return 1
}
