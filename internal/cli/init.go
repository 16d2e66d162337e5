package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/ccr/internal/config"
	"github.com/dshills/ccr/internal/order"
)

var flagInitForce bool

const sampleBaseRule = `# Base Principles
# Foundational clean code principles that apply to all languages.

_meta:
  name: base
  tags: [general, style]

naming:
  descriptive_names:
    enforcement: MUST
    value: "Use meaningful, descriptive names for variables, functions, and classes"
    good: |
      user_count = len(users)
      def calculate_total_price(items):
          pass
    bad: |
      x = len(u)
      def calc(i):
          pass

functions:
  single_responsibility:
    enforcement: SHOULD
    value: "Each function should do one thing well"
  max_lines:
    enforcement: SHOULD
    value: 20

error_handling:
  meaningful_messages:
    enforcement: SHOULD
    value: "Provide meaningful error messages"
  silent_exceptions:
    enforcement: MUST_NOT
    value: "Never swallow exceptions silently"
    bad: |
      try:
          risky_operation()
      except:
          pass
`

const sampleTeamRule = `# Team Rules (Example)
# These rules have the HIGHEST priority (Level 3) and override all other rules.
#
# Hierarchy:
#   1. base.yml - Level 1 (base principles)
#   2. community/ - Level 2 (external rules: google, airbnb, etc.)
#   3. team/ - Level 3 (your team's rules - HIGHEST)

_meta:
  name: team-example
  tags: [team]

# Example: Override function length limits
functions:
  max_lines:
    enforcement: SHOULD
    value: 80
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a rules directory with sample rules",
	Long: `Create the rules directory with community/ and team/ subdirectories, a
default config.yaml, a sample base.yml (level 1), a sample team/example.yml
(level 3) and an order file listing the team example.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dir := cfg.RulesDir
		out := cmd.OutOrStdout()

		if _, err := os.Stat(dir); err == nil && !flagInitForce {
			fmt.Fprintf(cmd.ErrOrStderr(), "Rules directory already exists: %s\nUse --force to overwrite\n", dir)
			exitCode = ExitFailure
			return nil
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking rules directory: %w", err)
		}

		for _, sub := range order.Categories {
			if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
				return fmt.Errorf("creating rules directory: %w", err)
			}
		}
		fmt.Fprintf(out, "Created %s/ (community/, team/)\n", dir)

		if err := config.Save(dir, config.Default()); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		fmt.Fprintf(out, "Created %s\n", config.Path(dir))

		if err := os.WriteFile(filepath.Join(dir, "base.yml"), []byte(sampleBaseRule), 0o644); err != nil {
			return fmt.Errorf("writing sample base rule: %w", err)
		}
		fmt.Fprintln(out, "Created base.yml (sample)")

		if err := os.WriteFile(filepath.Join(dir, order.CategoryTeam, "example.yml"), []byte(sampleTeamRule), 0o644); err != nil {
			return fmt.Errorf("writing sample team rule: %w", err)
		}
		fmt.Fprintln(out, "Created team/example.yml")

		store := order.Open(cmd.Context(), dir)
		if err := store.Add(order.CategoryTeam, "example"); err != nil {
			return fmt.Errorf("writing order file: %w", err)
		}
		fmt.Fprintf(out, "Created %s\n", filepath.Base(store.Path()))

		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintf(out, "  1. Review rules in %s/\n", dir)
		fmt.Fprintln(out, "  2. Add rules: ccr add --file my-rule.yml --category team")
		fmt.Fprintln(out, "  3. See the merged result: ccr merge")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&flagInitForce, "force", "f", false, "Overwrite an existing rules directory")
}
