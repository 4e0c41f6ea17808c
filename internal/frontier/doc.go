// Package frontier implements the crash-resumable URL frontier.
//
// The frontier guarantees that each URL identity is attempted at most
// once per crawl epoch. It pairs a durable SQLite record store (package
// database) with an in-memory FIFO queue that is rebuilt at startup:
// from the configured seeds on a fresh run or restart, or from the
// not-yet-completed records on resume.
//
// Workers interact with the frontier through three operations: Add to
// register discovered URLs, Next to claim the next pending URL, and
// Complete to mark a URL finished. Download failures still complete a
// URL; the frontier never retries.
package frontier
