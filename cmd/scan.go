package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/report"
	"github.com/JakeFAU/siteaudit/internal/rules"
	"github.com/JakeFAU/siteaudit/internal/scan"
)

// scoreBelowError means the scan finished but scored under --fail-under.
type scoreBelowError struct {
	score, threshold int
}

func (e *scoreBelowError) Error() string {
	return fmt.Sprintf("score %d is below the required %d", e.score, e.threshold)
}

type scanFlags struct {
	partner   string
	phase     string
	maxPages  int
	catalog   string
	format    string
	output    string
	failUnder int
	quiet     bool
}

// newScanCmd creates the 'scan' subcommand.
func newScanCmd() *cobra.Command {
	var flags scanFlags
	cmd := &cobra.Command{
		Use:   "scan <site-url>",
		Short: "Crawl a site and evaluate it",
		Long: `Crawls up to --max-pages pages of the site, evaluates the catalog rules for
the partner and phase, and writes the report to stdout or --output. When an
output directory or GCS bucket is configured the report is also published
there.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args[0], flags)
		},
	}
	cmd.Flags().StringVar(&flags.partner, "partner", "independent", "partner whose rules apply in addition to the universal ones")
	cmd.Flags().StringVar(&flags.phase, "phase", rules.PhaseFull, "build phase: prototype, full, or final")
	cmd.Flags().IntVar(&flags.maxPages, "max-pages", 0, "maximum pages to crawl (default crawler.max_pages)")
	cmd.Flags().StringVar(&flags.catalog, "catalog", "", "rule catalog file (default catalog.path or the built-in catalog)")
	cmd.Flags().StringVar(&flags.format, "format", "", "report format: json or markdown (default output.format)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "do not print the summary to stderr")
	cmd.Flags().IntVar(&flags.failUnder, "fail-under", 0, "exit with status 2 when the score is below this value")
	return cmd
}

func runScan(cmd *cobra.Command, siteURL string, flags scanFlags) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	cfg := rt.cfg
	if flags.maxPages <= 0 {
		flags.maxPages = cfg.Crawler.MaxPages
	}
	if flags.catalog != "" {
		cfg.Catalog.Path = flags.catalog
	}
	if flags.format != "" {
		cfg.Output.Format = flags.format
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, rt.logger)
	if err != nil {
		return fmt.Errorf("initialize application services: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := a.Close(closeCtx); cerr != nil {
			rt.logger.Warn("failed to close application services", zap.Error(cerr))
		}
	}()

	catalog, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	if err := rules.Validate(catalog, a.Checks()); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	for _, w := range rules.Warnings(catalog) {
		rt.logger.Warn("catalog warning", zap.String("detail", w))
	}

	rep, err := a.NewScanner(catalog).Run(ctx, scan.Request{
		SiteURL:  siteURL,
		Partner:  flags.partner,
		Phase:    flags.phase,
		MaxPages: flags.maxPages,
	})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if err := writeReport(cmd.OutOrStdout(), flags.output, cfg.Output.Format, rep); err != nil {
		return err
	}
	if !flags.quiet {
		fmt.Fprint(cmd.ErrOrStderr(), report.RenderSummary(rep))
	}
	if store := a.Store(); store != nil {
		prefix := ""
		if cfg.Output.GCSBucket != "" {
			prefix = cfg.Output.GCSPrefix
		}
		uri, err := report.Publish(ctx, store, prefix, cfg.Output.Format, rep)
		if err != nil {
			return err
		}
		rt.logger.Info("report published", zap.String("uri", uri))
	}

	if flags.failUnder > 0 && rep.Score < flags.failUnder {
		return &scoreBelowError{score: rep.Score, threshold: flags.failUnder}
	}
	return nil
}

// writeReport writes rep to path, or to stdout when path is empty.
func writeReport(stdout io.Writer, path, format string, rep *audit.ScanReport) (err error) {
	if path == "" {
		return report.Write(stdout, format, rep)
	}
	f, err := os.Create(path) // #nosec G304 -- path is an operator-supplied flag.
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close report file: %w", cerr)
		}
	}()
	return report.Write(f, format, rep)
}

func loadCatalog(path string) (*rules.Catalog, error) {
	if path == "" {
		cat, err := rules.Default()
		if err != nil {
			return nil, fmt.Errorf("built-in catalog: %w", err)
		}
		return cat, nil
	}
	cat, err := rules.Load(path)
	if err != nil {
		return nil, err
	}
	return cat, nil
}
