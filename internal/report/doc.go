// Package report renders finished scans as JSON or Markdown and publishes
// them to a blob store.
package report
