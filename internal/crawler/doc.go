// Package crawler implements the sequential, same-origin breadth-first crawl
// that gathers a site's pages for auditing, including URL filtering, robots
// policy, per-host pacing, and render escalation.
package crawler
