// Package prompt turns merged coding rules and source files into review
// prompts.
//
// A [Builder] asks its [Source] (normally a *rules.Engine) for the merged
// rules document matching each file's language and wraps it, together with
// the code, in a fixed instruction template. When no rule applies the rules
// section falls back to [NoRules].
package prompt
