package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// FileName is the project config file kept inside the rules directory.
const FileName = "config.yaml"

// EnvPrefix prefixes every environment variable read by [Load].
const EnvPrefix = "CCR_"

// Formats lists the accepted values of the format key.
var Formats = []string{"text", "json", "markdown"}

// Config represents the ccr configuration. Model, Temperature, MaxTokens,
// DefaultReviewer and the RulesRepo fields are read by the review agent and the
// rule-sync tool that share config.yaml; ccr validates and round-trips them.
type Config struct {
	RulesDir        string   `yaml:"-" json:"rules_dir" env:"RULES_DIR,overwrite"`
	Model           string   `yaml:"model" json:"model" env:"MODEL,overwrite"`
	Temperature     float64  `yaml:"temperature" json:"temperature" env:"TEMPERATURE,overwrite"`
	MaxTokens       int      `yaml:"max_tokens" json:"max_tokens" env:"MAX_TOKENS,overwrite"`
	RulesPriority   []string `yaml:"rules_priority" json:"rules_priority" env:"RULES_PRIORITY,overwrite"`
	DefaultReviewer string   `yaml:"default_reviewer,omitempty" json:"default_reviewer,omitempty" env:"DEFAULT_REVIEWER,overwrite"`
	RulesRepoOwner  string   `yaml:"rules_repo_owner" json:"rules_repo_owner" env:"RULES_REPO_OWNER,overwrite"`
	RulesRepoName   string   `yaml:"rules_repo_name" json:"rules_repo_name" env:"RULES_REPO_NAME,overwrite"`
	Format          string   `yaml:"format" json:"format" env:"FORMAT,overwrite"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		RulesDir:       ".cleancoderules",
		Model:          "gpt-4",
		Temperature:    0.3,
		MaxTokens:      2000,
		RulesPriority:  []string{"security", "style", "performance"},
		RulesRepoOwner: "CleanCodeReviewer",
		RulesRepoName:  "Rules",
		Format:         "text",
	}
}

// Path returns the config file path for a rules directory.
func Path(rulesDir string) string {
	return filepath.Join(rulesDir, FileName)
}

// LoadFile returns the defaults overlaid with the config file in rulesDir.
// A missing file yields the defaults and nil error.
func LoadFile(rulesDir string) (Config, error) {
	cfg := Default()
	if err := mergeFile(&cfg, rulesDir); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeFile decodes the config file on top of cfg. Keys absent from the file
// keep their current value, so an explicit zero in the file still wins.
func mergeFile(cfg *Config, rulesDir string) error {
	path := Path(rulesDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Save writes cfg to the config file in rulesDir.
func Save(rulesDir string, cfg Config) error {
	if err := os.MkdirAll(rulesDir, 0o755); err != nil {
		return fmt.Errorf("creating rules directory: %w", err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(Path(rulesDir), buf.Bytes(), 0o644)
}

// Load builds the effective config by merging:
// defaults <- <rulesDir>/config.yaml <- CCR_* env <- overrides.
// The overrides map comes from CLI flags (only non-empty values are applied).
//
// The rules directory is settled first, from env and overrides, because the
// config file lives inside it. The file itself never sets it.
func Load(ctx context.Context, overrides map[string]string) (Config, error) {
	return load(ctx, envconfig.OsLookuper(), overrides)
}

func load(ctx context.Context, lookuper envconfig.Lookuper, overrides map[string]string) (Config, error) {
	cfg := Default()
	if err := mergeEnv(ctx, &cfg, lookuper); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := mergeFile(&cfg, cfg.RulesDir); err != nil {
		return Config{}, err
	}
	if err := mergeEnv(ctx, &cfg, lookuper); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeEnv(ctx context.Context, cfg *Config, lookuper envconfig.Lookuper) error {
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lookuper),
	}); err != nil {
		return fmt.Errorf("reading %s environment: %w", EnvPrefix, err)
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	keys := make([]string, 0, len(overrides))
	for k, v := range overrides {
		if v != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := SetField(cfg, k, overrides[k]); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports the first out-of-range value.
func (c Config) Validate() error {
	if c.RulesDir == "" {
		return errors.New("rules_dir must not be empty")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("format must be one of %s, got %q", strings.Join(Formats, ", "), c.Format)
	}
	return nil
}

// Keys lists the names accepted by [SetField].
func Keys() []string {
	return []string{
		"rules_dir",
		"model",
		"temperature",
		"max_tokens",
		"rules_priority",
		"default_reviewer",
		"rules_repo_owner",
		"rules_repo_name",
		"format",
	}
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "rules_dir":
		cfg.RulesDir = value
	case "model":
		cfg.Model = value
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("temperature must be a number: %w", err)
		}
		cfg.Temperature = f
	case "max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max_tokens must be an integer: %w", err)
		}
		cfg.MaxTokens = n
	case "rules_priority":
		cfg.RulesPriority = splitList(value)
	case "default_reviewer":
		cfg.DefaultReviewer = value
	case "rules_repo_owner":
		cfg.RulesRepoOwner = value
	case "rules_repo_name":
		cfg.RulesRepoName = value
	case "format":
		cfg.Format = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
