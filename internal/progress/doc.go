// Package progress carries scan lifecycle events from the scanner to
// pluggable sinks. Events are buffered and batched on a background goroutine
// so emitting never blocks a scan.
package progress
