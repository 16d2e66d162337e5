// Package redact strips secrets from source files before they are embedded
// in a review prompt.
//
// Detection is a set of regex heuristics for common secret shapes such as
// provider API keys, JWTs, bearer tokens and private key headers. A [Policy]
// can also withhold whole files by path, using doublestar patterns.
package redact
