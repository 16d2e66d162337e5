package redact

import (
	"path/filepath"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

// Placeholder replaces every redacted secret.
const Placeholder = "[REDACTED]"

// DefaultPaths are the files whose whole content is withheld from prompts.
var DefaultPaths = []string{"**/.env", "**/.env.*", "**/*secret*", "**/*.pem", "**/*.key"}

type detector struct {
	name string
	re   *regexp.Regexp
}

// Order matters: the Anthropic key shape must run before the generic sk- one.
var detectors = []detector{
	{"api key assignment", regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`)},
	{"aws access key id", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"aws secret access key", regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`)},
	{"credential assignment", regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`)},
	{"bearer token", regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`)},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`)},
	{"private key", regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`)},
	{"github token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`)},
	{"slack token", regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`)},
	{"anthropic key", regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`)},
	{"openai key", regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`)},
	{"hex secret assignment", regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`)},
}

// Secrets replaces detected secrets in text with [Placeholder] and reports
// how many were replaced.
func Secrets(text string) (string, int) {
	n := 0
	for _, d := range detectors {
		text = d.re.ReplaceAllStringFunc(text, func(string) string {
			n++
			return Placeholder
		})
	}
	return text, n
}

// Policy decides what a prompt may include from a source file.
type Policy struct {
	// Paths are doublestar patterns. A file matching one is withheld
	// entirely.
	Paths []string
}

// Withheld reports whether path matches one of the policy patterns. Patterns
// are tried against the slash-separated path and against its base name.
func (p Policy) Withheld(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range p.Paths {
		if ok, err := doublestar.Match(pattern, slashed); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// Content returns content safe to put in a prompt and the number of
// redactions made. A withheld file counts as one redaction.
func (p Policy) Content(path, content string) (string, int) {
	if p.Withheld(path) {
		return Placeholder + " (file content withheld by path policy)\n", 1
	}
	return Secrets(content)
}
