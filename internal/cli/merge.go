package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/dshills/ccr/internal/output"
	"github.com/dshills/ccr/internal/prompt"
	"github.com/dshills/ccr/internal/redact"
	"github.com/dshills/ccr/internal/rules"
	"github.com/dshills/ccr/internal/watch"
)

// Merge and prompt flags
var (
	flagLanguage string
	flagTags     string
	flagTagOrder string
	flagPriority bool
	flagOut      string
	flagWatch    bool
	flagDebounce time.Duration
	flagFocus    string
	flagSystem   bool
	flagNoRedact bool
	flagRedact   []string
)

func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagTags, "tags", "t", "", "Only rules carrying one of these tags (comma-separated)")
	cmd.Flags().StringVar(&flagTagOrder, "tag-order", "", "Re-sort rules by tag position before merging (comma-separated)")
	cmd.Flags().BoolVar(&flagPriority, "priority", false, "Use rules_priority from the config as the tag order")
}

// tagOrder returns the explicit --tag-order, else rules_priority when
// --priority is set.
func tagOrder(priority []string) []string {
	if flagTagOrder != "" {
		return splitComma(flagTagOrder)
	}
	if flagPriority {
		return priority
	}
	return nil
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Print the merged rules document",
	Long: `Merge every applicable rule, higher levels overriding lower ones, and print
the result. With --watch the document is rebuilt whenever a file under the
rules directory changes, until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, engine, err := loadEngine(cmd)
		if err != nil {
			return err
		}
		opts := rules.MergeOptions{
			Language: flagLanguage,
			Tags:     splitComma(flagTags),
			TagOrder: tagOrder(cfg.RulesPriority),
		}
		ctx := cmd.Context()

		doc, err := engine.Merge(ctx, opts)
		if err != nil {
			return err
		}
		if err := emit(cmd.OutOrStdout(), doc); err != nil {
			return err
		}
		if !flagWatch {
			return nil
		}

		w, err := watch.New(ctx, engine, opts, flagDebounce, func(ctx context.Context, r watch.Result) {
			if r.Err != nil {
				return
			}
			clog.FromContext(ctx).Infof("Rules changed: %s", strings.Join(r.Changed, ", "))
			if err := emit(cmd.OutOrStdout(), r.Merged); err != nil {
				clog.FromContext(ctx).Errorf("Writing merged rules: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("watching %s: %w", engine.Dir(), err)
		}
		return w.Run(ctx)
	},
}

// emit writes doc to --out when set, otherwise to w with a trailing newline.
func emit(w io.Writer, doc string) error {
	if flagOut != "" {
		return output.WriteFile(flagOut, doc)
	}
	if doc != "" && !strings.HasSuffix(doc, "\n") {
		doc += "\n"
	}
	_, err := io.WriteString(w, doc)
	return err
}

var promptCmd = &cobra.Command{
	Use:   "prompt <file>...",
	Short: "Build a code review prompt for one or more files",
	Long: `Build the review prompt a model would receive for the given files. A single
file gets the rules for its language; several files get a universal section
plus one section per language. --focus restricts and orders rules by tag.

Secrets found in the files are replaced with [REDACTED] and files matching a
redaction path (.env, *.pem, *.key, *secret* and any --redact-path) are
withheld entirely, unless --no-redact is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, engine, err := loadEngine(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		policy := redact.Policy{Paths: append(slices.Clone(redact.DefaultPaths), flagRedact...)}
		files := make([]prompt.File, 0, len(args))
		for _, path := range args {
			f, err := prompt.ReadFile(path)
			if err != nil {
				return err
			}
			if flagLanguage != "" {
				f.Language = flagLanguage
			}
			if !flagNoRedact {
				var n int
				f.Content, n = policy.Content(f.Path, f.Content)
				if n > 0 {
					clog.FromContext(ctx).Warnf("Redacted %d secret(s) from %s", n, f.Path)
				}
			}
			files = append(files, f)
		}

		b := prompt.New(engine, "")
		var p prompt.Prompt
		switch {
		case flagFocus != "" && len(files) == 1:
			p, err = b.FocusedPrompt(ctx, files[0], splitComma(flagFocus))
		case flagFocus != "":
			focus := splitComma(flagFocus)
			p, err = b.MultiFilePrompt(ctx, files, focus, focus)
		case len(files) == 1:
			p, err = b.ReviewPrompt(ctx, files[0], splitComma(flagTags), tagOrder(cfg.RulesPriority))
		default:
			p, err = b.MultiFilePrompt(ctx, files, splitComma(flagTags), tagOrder(cfg.RulesPriority))
		}
		if err != nil {
			return err
		}

		if cfg.Format == "json" {
			data, err := json.MarshalIndent(p, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			return emit(cmd.OutOrStdout(), string(data))
		}
		doc := p.User
		if flagSystem {
			doc = p.System + "\n---\n\n" + p.User
		}
		return emit(cmd.OutOrStdout(), doc)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize the rules that apply to a language and tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, engine, err := loadEngine(cmd)
		if err != nil {
			return err
		}
		s := prompt.New(engine, "").RulesSummary(cmd.Context(), flagLanguage, splitComma(flagTags))
		_, err = fmt.Fprintln(cmd.OutOrStdout(), s)
		return err
	},
}

func init() {
	mergeCmd.Flags().StringVarP(&flagLanguage, "language", "l", "", "Only universal rules and rules for this language")
	addSelectionFlags(mergeCmd)
	mergeCmd.Flags().StringVarP(&flagOut, "out", "o", "", "Write the merged document to a file instead of stdout")
	mergeCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "Re-merge whenever the rules change")
	mergeCmd.Flags().DurationVar(&flagDebounce, "debounce", watch.DefaultDebounce, "How long to collect changes before re-merging")

	promptCmd.Flags().StringVarP(&flagLanguage, "language", "l", "", "Override the language detected from file extensions")
	addSelectionFlags(promptCmd)
	promptCmd.Flags().StringVar(&flagFocus, "focus", "", "Focus areas used as tag filter and tag order (comma-separated)")
	promptCmd.Flags().BoolVar(&flagSystem, "system", false, "Print the system prompt before the user prompt")
	promptCmd.Flags().StringVarP(&flagOut, "out", "o", "", "Write the prompt to a file instead of stdout")
	promptCmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Embed file contents without secret redaction")
	promptCmd.Flags().StringSliceVar(&flagRedact, "redact-path", nil, "Extra glob of files to withhold from the prompt (repeatable)")

	summaryCmd.Flags().StringVarP(&flagLanguage, "language", "l", "", "Target language")
	summaryCmd.Flags().StringVarP(&flagTags, "tags", "t", "", "Only rules carrying one of these tags (comma-separated)")
}
