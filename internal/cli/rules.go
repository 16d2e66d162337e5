package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/ccr/internal/order"
	"github.com/dshills/ccr/internal/output"
	"github.com/dshills/ccr/internal/rules"
)

var (
	flagAddFile     string
	flagAddCategory string
	flagAddForce    bool
)

var listCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List installed rules",
	Long: `List the rules in the rules directory in merge order. A query keeps only
rules whose name or one of whose tags contains it, ignoring case.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, engine, err := loadEngine(cmd)
		if err != nil {
			return err
		}
		w, err := writerFor(cfg)
		if err != nil {
			return err
		}

		l := &output.Listing{RulesDir: cfg.RulesDir, Rules: []rules.Summary{}}
		if len(args) == 1 {
			l.Query = args[0]
		}
		for _, s := range engine.Summaries(cmd.Context()) {
			if matchesQuery(s, l.Query) {
				l.Rules = append(l.Rules, s)
			}
		}
		return w.WriteRules(cmd.OutOrStdout(), l)
	},
}

func matchesQuery(s rules.Summary, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(s.Name), q) {
		return true
	}
	return slices.ContainsFunc(s.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), q)
	})
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, engine, err := loadEngine(cmd)
		if err != nil {
			return err
		}
		w, err := writerFor(cfg)
		if err != nil {
			return err
		}
		r, err := engine.Lookup(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("%w: %s", err, args[0])
		}
		d, err := output.NewDetail(r)
		if err != nil {
			return err
		}
		return w.WriteRule(cmd.OutOrStdout(), d)
	},
}

var addCmd = &cobra.Command{
	Use:   "add --file <path>",
	Short: "Add a local rule file",
	Long: `Copy a rule file into a category directory and append it to the order
file, so it sorts after the rules already listed there. The file must parse
as a rule.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagAddFile == "" {
			return errors.New("--file is required")
		}
		if !slices.Contains(order.Categories, flagAddCategory) {
			return fmt.Errorf("invalid category %q (valid: %s)", flagAddCategory, strings.Join(order.Categories, ", "))
		}
		if !strings.EqualFold(filepath.Ext(flagAddFile), ".md") && !rules.IsStructured(flagAddFile) {
			return fmt.Errorf("unsupported rule file %s: want .md, .yml or .yaml", flagAddFile)
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(flagAddFile)
		if err != nil {
			return fmt.Errorf("reading rule file: %w", err)
		}
		if _, err := rules.Parse(cmd.Context(), flagAddFile, data); err != nil {
			return err
		}
		targetDir := filepath.Join(cfg.RulesDir, flagAddCategory)
		dest := filepath.Join(targetDir, filepath.Base(flagAddFile))
		if _, err := os.Stat(dest); err == nil && !flagAddForce {
			return fmt.Errorf("%s already exists (use --force to replace it)", dest)
		}
		if err := os.MkdirAll(targetDir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", targetDir, err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("writing rule file: %w", err)
		}

		id := strings.TrimSuffix(filepath.Base(flagAddFile), filepath.Ext(flagAddFile))
		if err := order.Open(cmd.Context(), cfg.RulesDir).Add(flagAddCategory, id); err != nil {
			return fmt.Errorf("updating order file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added: %s -> %s\n", filepath.Base(flagAddFile), dest)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an installed rule",
	Long:  "Delete a rule's source file and drop it from the order file. The name is matched ignoring case.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, engine, err := loadEngine(cmd)
		if err != nil {
			return err
		}
		r, err := engine.Lookup(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("%w: %s", err, args[0])
		}
		category, id, err := engine.OrderRef(r)
		if err != nil {
			return err
		}
		if err := os.Remove(r.Source); err != nil {
			return fmt.Errorf("removing rule file: %w", err)
		}
		if _, err := order.Open(cmd.Context(), cfg.RulesDir).Remove(category, id); err != nil {
			return fmt.Errorf("updating order file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed rule: %s (%s)\n", r.Name, r.Source)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&flagAddFile, "file", "f", "", "Local rule file to add")
	addCmd.Flags().StringVarP(&flagAddCategory, "category", "c", order.CategoryCommunity, "Target category (community, team)")
	addCmd.Flags().BoolVar(&flagAddForce, "force", false, "Replace an existing file with the same name")
}
