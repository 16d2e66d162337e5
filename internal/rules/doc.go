// Package rules loads layered coding-standard documents from a rules
// directory and merges them into the single document injected into a review
// prompt.
//
// A rules directory looks like this:
//
//	.cleancoderules/
//	  base.yml              level 1, foundational principles
//	  community/**/*.yml    level 2, external or shared standards
//	  team/**/*.yml         level 3, local team rules, highest priority
//	  order.yml             intra-level ordering, see package order
//	  config.yaml           settings, never scanned as a rule
//
// Rules come in two forms. Structured rules (.yml, .yaml) are YAML mappings
// with an optional _meta key; they are merged field by field so that a team
// rule can override a single nested value of a base rule and inherit the
// rest. Prose rules (.md) carry free text with optional YAML frontmatter; they
// are concatenated under per-level headings and conflict resolution is left to
// the reader. When both forms exist for the same path stem, only the
// structured file is loaded.
//
// A rule's level comes from where its file lives, never from its content
// (prose frontmatter may still declare one for compatibility). Its order comes
// from the order store. The loaded collection is sorted by level, order and
// lower-cased name, and that sort decides override direction: later rules win.
//
// [Engine] is the entry point. It scans lazily on first use and rescans only
// on [Engine.Reload]. It has no internal locking; callers that reload must not
// read the previous collection concurrently.
package rules
