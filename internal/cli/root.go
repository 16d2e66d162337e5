package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/dshills/ccr/internal/config"
	"github.com/dshills/ccr/internal/output"
	"github.com/dshills/ccr/internal/rules"
)

const version = "0.1.0"

// Exit codes
const (
	ExitSuccess    = 0
	ExitFailure    = 1
	ExitUsageError = 2
)

// Global flags
var (
	flagRulesDir string
	flagVerbose  bool
	flagQuiet    bool
	flagFormat   string
)

var rootCmd = &cobra.Command{
	Use:   "ccr",
	Short: "Clean Code Reviewer: layered coding rules for LLM code review",
	Long: `ccr manages a directory of coding rules in three levels (base, community,
team), merges them with higher levels overriding lower ones, and builds code
review prompts from the result.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// Run executes the root command and returns an exit code.
func Run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Cobra already prints the error
		if exitCode == ExitSuccess {
			return ExitFailure
		}
	}
	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print ccr version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ccr version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRulesDir, "rules-dir", "", "Rules directory (default .cleancoderules, or $CCR_RULES_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "V", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(orderCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogging installs a stderr logger on the command context.
func setupLogging(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(clog.WithLogger(ctx, newLogger(cmd.ErrOrStderr())))
	return nil
}

func newLogger(w io.Writer) *clog.Logger {
	level := slog.LevelWarn
	switch {
	case flagVerbose:
		level = slog.LevelDebug
	case flagQuiet:
		level = slog.LevelError
	}
	return clog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagRulesDir != "" {
		m["rules_dir"] = flagRulesDir
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	return m
}

// loadConfig returns the effective configuration for the current flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	return config.Load(cmd.Context(), buildOverrides())
}

// loadEngine returns the configuration and an engine over its rules directory.
func loadEngine(cmd *cobra.Command) (config.Config, *rules.Engine, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, rules.New(cfg.RulesDir), nil
}

func writerFor(cfg config.Config) (output.Writer, error) {
	return output.GetWriter(cfg.Format)
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
