// Package order persists the user-editable priority ordering of rules within
// each non-base category.
//
// The ordering lives in order.yml at the root of the rules directory and maps
// a category name ("community", "team") to a list of rule identifiers. A
// rule's position in its list, converted to a 1-based value, is the tie-break
// used when two rules share the same level. Rules missing from the list get
// [Unlisted] and sort after every listed rule.
//
// A missing or unparsable order file is treated as an empty ordering. Every
// mutation ([Store.Add], [Store.Remove], [Store.MoveUp], [Store.MoveDown])
// rewrites the whole file synchronously; concurrent writers are not
// coordinated and the last full rewrite wins.
package order
