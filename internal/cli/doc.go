// Package cli implements the ccr command tree.
//
// Every command resolves the effective configuration (flags, CCR_*
// environment, <rules dir>/config.yaml, defaults), opens a rules engine over
// the configured directory and prints through the output package.
package cli
