package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/ccr/internal/order"
	"github.com/dshills/ccr/internal/output"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Manage the order file",
	Long: `Inspect and edit the per-category ordering of rules. Within a level, rules
listed later are merged later and so take precedence; unlisted rules come
after every listed one.`,
}

var orderListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the current ordering",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		w, err := writerFor(cfg)
		if err != nil {
			return err
		}
		store := order.Open(cmd.Context(), cfg.RulesDir)
		entries := store.Entries()
		if entries == nil {
			entries = []order.Entry{}
		}
		return w.WriteOrder(cmd.OutOrStdout(), &output.OrderListing{Path: store.Path(), Entries: entries})
	},
}

// orderMutation builds an `order <verb> <category> <id>` command.
func orderMutation(use, short, done, miss string, apply func(s *order.Store, category, id string) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <category> <id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, id := args[0], args[1]
			if !slices.Contains(order.Categories, category) {
				return fmt.Errorf("invalid category %q (valid: %s)", category, strings.Join(order.Categories, ", "))
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			changed, err := apply(order.Open(cmd.Context(), cfg.RulesDir), category, id)
			if err != nil {
				return fmt.Errorf("updating order file: %w", err)
			}
			if !changed {
				fmt.Fprintf(cmd.ErrOrStderr(), miss+"\n", id, category)
				exitCode = ExitFailure
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), done+"\n", id, category)
			return nil
		},
	}
}

var orderAddCmd = orderMutation("add", "Append a rule to a category", "Listed %s in %s", "%s is already listed in %s",
	func(s *order.Store, category, id string) (bool, error) {
		if slices.Contains(s.List(category), id) {
			return false, nil
		}
		return true, s.Add(category, id)
	})

var orderRemoveCmd = orderMutation("remove", "Remove a rule from a category", "Removed %s from %s", "%s is not listed in %s",
	(*order.Store).Remove)

var orderUpCmd = orderMutation("up", "Move a rule one place earlier (lower precedence)", "Moved %s up in %s", "Cannot move %s up in %s",
	(*order.Store).MoveUp)

var orderDownCmd = orderMutation("down", "Move a rule one place later (higher precedence)", "Moved %s down in %s", "Cannot move %s down in %s",
	(*order.Store).MoveDown)

func init() {
	orderCmd.AddCommand(orderListCmd)
	orderCmd.AddCommand(orderAddCmd)
	orderCmd.AddCommand(orderRemoveCmd)
	orderCmd.AddCommand(orderUpCmd)
	orderCmd.AddCommand(orderDownCmd)
}
