package prompt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/dshills/ccr/internal/rules"
)

// NoRules replaces the rules section of a single-file prompt when nothing
// merges.
const NoRules = "No specific rules loaded. Apply general best practices."

const noRulesMulti = "No specific rules loaded."

const defaultSystemPrompt = `You are an expert code reviewer. Your task is to review the provided code
according to the specified coding rules and best practices.

For each issue found, provide:
1. The specific line or section with the issue
2. A clear explanation of why it's an issue
3. A suggested fix or improvement

Be constructive and educational in your feedback. Focus on:
- Code quality and maintainability
- Adherence to the provided coding rules
- Potential bugs or security issues
- Performance considerations where relevant

If the code follows all rules and best practices, acknowledge that and optionally
suggest minor improvements if any.
`

// Source is the slice of the rules engine a Builder needs.
type Source interface {
	Merge(ctx context.Context, opts rules.MergeOptions) (string, error)
	Select(ctx context.Context, language string, tags []string) []*rules.Rule
}

// File is one piece of code to review.
type File struct {
	Path     string
	Content  string
	Language string
}

// ReadFile loads path and detects its language from the extension.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return File{Path: path, Content: string(data), Language: DetectLanguage(path)}, nil
}

// Prompt is a system/user message pair ready for a model.
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// Builder assembles review prompts around merged rules.
type Builder struct {
	src    Source
	system string
}

// New returns a Builder over src. An empty system prompt selects the default.
func New(src Source, system string) *Builder {
	if system == "" {
		system = defaultSystemPrompt
	}
	return &Builder{src: src, system: system}
}

// SystemPrompt returns the system message used for every prompt.
func (b *Builder) SystemPrompt() string {
	return b.system
}

// ReviewPrompt builds the prompt for a single file. The file's language,
// detected from its path when unset, selects the rules to merge.
func (b *Builder) ReviewPrompt(ctx context.Context, f File, tags, tagOrder []string) (Prompt, error) {
	if f.Language == "" && f.Path != "" {
		f.Language = DetectLanguage(f.Path)
	}
	merged, err := b.src.Merge(ctx, rules.MergeOptions{
		Language: f.Language,
		Tags:     tags,
		TagOrder: tagOrder,
	})
	if err != nil {
		return Prompt{}, err
	}
	if merged == "" {
		clog.FromContext(ctx).Debugf("No rules matched %s, using fallback", or(f.Path, "input"))
		merged = NoRules
	}

	var sb strings.Builder
	sb.WriteString("Please review the following code according to the coding rules provided.\n\n")
	sb.WriteString("## Coding Rules to Apply\n\n")
	sb.WriteString(merged)
	sb.WriteString("\n\n## Code to Review\n\n")
	fmt.Fprintf(&sb, "File: %s\n", or(f.Path, "unknown"))
	fmt.Fprintf(&sb, "Language: %s\n\n", or(f.Language, "unknown"))
	writeFence(&sb, f)
	sb.WriteString("\n## Review Instructions\n\n")
	sb.WriteString("Analyze the code above and provide a detailed review. For each issue:\n")
	sb.WriteString("1. Quote the problematic code\n")
	sb.WriteString("2. Explain the issue referencing the specific rule\n")
	sb.WriteString("3. Provide a corrected version\n\n")
	sb.WriteString("If the code is well-written and follows all rules, state that clearly.\n")

	return Prompt{System: b.system, User: sb.String()}, nil
}

// FocusedPrompt reviews f against the rules tagged with any focus area,
// applied in the order the areas are given.
func (b *Builder) FocusedPrompt(ctx context.Context, f File, focus []string) (Prompt, error) {
	return b.ReviewPrompt(ctx, f, focus, focus)
}

// MultiFilePrompt builds one prompt covering several files. The rules section
// starts with the language-independent rules, followed by one merged section
// per detected language in alphabetical order.
func (b *Builder) MultiFilePrompt(ctx context.Context, files []File, tags, tagOrder []string) (Prompt, error) {
	var langs []string
	for i := range files {
		if files[i].Language == "" {
			files[i].Language = DetectLanguage(files[i].Path)
		}
		if l := files[i].Language; l != "" && !slices.Contains(langs, l) {
			langs = append(langs, l)
		}
	}
	slices.Sort(langs)

	var sections []string
	universal, err := b.src.Merge(ctx, rules.MergeOptions{Tags: tags, TagOrder: tagOrder, UniversalOnly: true})
	if err != nil {
		return Prompt{}, err
	}
	if universal != "" {
		sections = append(sections, "### Universal Rules\n\n"+universal)
	}
	for _, lang := range langs {
		merged, err := b.src.Merge(ctx, rules.MergeOptions{Language: lang, Tags: tags, TagOrder: tagOrder})
		if err != nil {
			return Prompt{}, err
		}
		if merged != "" {
			sections = append(sections, "### Rules for "+lang+"\n\n"+merged)
		}
	}
	rulesText := noRulesMulti
	if len(sections) > 0 {
		rulesText = strings.Join(sections, "\n\n---\n\n")
	}

	var sb strings.Builder
	sb.WriteString("Please review the following files according to the coding rules provided.\n\n")
	sb.WriteString("## Coding Rules to Apply\n\n")
	sb.WriteString(rulesText)
	sb.WriteString("\n\n## Files to Review\n\n")
	for i, f := range files {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "### File: %s\n", or(f.Path, "unknown"))
		fmt.Fprintf(&sb, "Language: %s\n\n", or(f.Language, "unknown"))
		writeFence(&sb, f)
	}
	sb.WriteString("\n## Review Instructions\n\n")
	sb.WriteString("Analyze each file and provide a detailed review. For each issue:\n")
	sb.WriteString("1. Identify the file and line\n")
	sb.WriteString("2. Quote the problematic code\n")
	sb.WriteString("3. Explain the issue referencing the specific rule\n")
	sb.WriteString("4. Provide a corrected version\n\n")
	sb.WriteString("Provide a summary at the end with the overall code quality assessment.\n")

	return Prompt{System: b.system, User: sb.String()}, nil
}

// RulesSummary lists the rules that apply to language and tags, one per line.
func (b *Builder) RulesSummary(ctx context.Context, language string, tags []string) string {
	rs := b.src.Select(ctx, language, tags)
	if len(rs) == 0 {
		return "No rules available for the specified criteria."
	}
	lines := []string{"Available Rules:", ""}
	for _, r := range rs {
		line := "- " + r.Name
		if r.Language != "" {
			line += " (" + r.Language + ")"
		}
		if len(r.Tags) > 0 {
			line += " [" + strings.Join(r.Tags, ", ") + "]"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func writeFence(sb *strings.Builder, f File) {
	fmt.Fprintf(sb, "```%s\n", f.Language)
	sb.WriteString(f.Content)
	if !strings.HasSuffix(f.Content, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n")
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

var extLanguages = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".cxx":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".go":    "go",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".kts":   "kotlin",
	".scala": "scala",
	".md":    "markdown",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".xml":   "xml",
	".html":  "html",
	".htm":   "html",
	".css":   "css",
	".scss":  "scss",
	".sass":  "sass",
	".less":  "less",
	".sql":   "sql",
	".sh":    "bash",
	".bash":  "bash",
	".zsh":   "zsh",
	".fish":  "fish",
}

// DetectLanguage maps a file extension to the language name rules use, or
// "" when the extension is unknown.
func DetectLanguage(path string) string {
	return extLanguages[strings.ToLower(filepath.Ext(path))]
}

// DetectLanguages returns the distinct known languages of files, sorted.
func DetectLanguages(files []string) []string {
	var langs []string
	for _, f := range files {
		if l := DetectLanguage(f); l != "" && !slices.Contains(langs, l) {
			langs = append(langs, l)
		}
	}
	slices.Sort(langs)
	return langs
}
