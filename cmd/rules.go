package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/checks"
	"github.com/JakeFAU/siteaudit/internal/rules"
)

var (
	ruleIDStyle = lipgloss.NewStyle().Bold(true)
	manualStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5820BA"))
	weightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308"))
)

// newRulesCmd groups catalog inspection commands.
func newRulesCmd() *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate the rule catalog",
	}
	cmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "rule catalog file (default catalog.path or the built-in catalog)")
	cmd.AddCommand(newRulesListCmd(&catalogPath), newRulesValidateCmd(&catalogPath))
	return cmd
}

func newRulesListCmd(catalogPath *string) *cobra.Command {
	var partner, phase string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the rules a scan would evaluate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalogFor(cmd, *catalogPath)
			if err != nil {
				return err
			}
			var selected []audit.Rule
			if partner == "" && phase == "" {
				selected = cat.Rules()
			} else {
				if !rules.ValidPhase(phase) {
					return fmt.Errorf("unknown phase %q", phase)
				}
				selected = cat.ForScan(partner, phase)
			}
			printRules(cmd.OutOrStdout(), selected)
			return nil
		},
	}
	cmd.Flags().StringVar(&partner, "partner", "", "only rules for this partner (requires --phase)")
	cmd.Flags().StringVar(&phase, "phase", "", "only rules for this build phase")
	return cmd
}

func newRulesValidateCmd(catalogPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every automated rule names a known check function",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalogFor(cmd, *catalogPath)
			if err != nil {
				return err
			}
			if err := rules.Validate(cat, checks.Default()); err != nil {
				return err
			}
			for _, w := range rules.Warnings(cat) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", warnStyle.Render("warn"), w)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d rules, partners: %s\n",
				okStyle.Render("ok"), len(cat.Rules()), strings.Join(cat.Partners(), ", "))
			return nil
		},
	}
}

func catalogFor(cmd *cobra.Command, path string) (*rules.Catalog, error) {
	if path == "" {
		if rt, err := resolveRuntime(cmd.Context()); err == nil {
			path = rt.cfg.Catalog.Path
		}
	}
	return loadCatalog(path)
}

func printRules(w io.Writer, list []audit.Rule) {
	for _, r := range list {
		mode := r.CheckFn
		if !r.Automated {
			mode = manualStyle.Render("manual")
		}
		fmt.Fprintf(w, "%s  %s  %s  %s %s\n",
			ruleIDStyle.Render(fmt.Sprintf("%-8s", r.ID)),
			fmt.Sprintf("%-14s", r.Category),
			r.Check,
			weightStyle.Render(fmt.Sprintf("[w%d]", r.Weight)),
			mode,
		)
	}
	fmt.Fprintf(w, "%d rules\n", len(list))
}
