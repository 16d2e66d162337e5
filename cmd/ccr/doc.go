// Ccr manages layered coding rules for LLM code review.
//
// Rules live in a .cleancoderules directory: base.yml is level 1, files under
// community/ are level 2 and files under team/ are level 3. Higher levels
// override lower ones field by field when rules are merged.
//
// Usage:
//
//	ccr init                          # create a rules directory with samples
//	ccr list [query]                  # list rules in merge order
//	ccr show <name>                   # print one rule
//	ccr merge --language python       # print the merged rules document
//	ccr merge --watch                 # re-merge on every change
//	ccr prompt main.go                # build a review prompt for a file
//	ccr order up team example         # edit precedence within a level
//	ccr config set model gpt-4o       # update config.yaml
package main
