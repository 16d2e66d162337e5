// Package watch re-merges a rules directory whenever its files change.
//
// A [Watcher] subscribes to every directory under the rules root, collects
// change events for a debounce interval, then reloads the engine and hands
// the new merged document to a [Handler]. The reload runs on the goroutine
// that called [Watcher.Run], so the engine keeps a single writer.
package watch
