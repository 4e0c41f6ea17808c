// Package database provides SQLite-based durable storage for the frontier.
//
// This package implements the FrontierDB, which stores one record per
// discovered URL identity: the normalized URL's hash, its canonical form,
// and whether a worker has finished processing it. The crawl resumes from
// this store after a crash or interrupt.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
//  1. No external dependencies - the database is a single file
//  2. CGO-free implementation allows easy cross-compilation
//  3. Per-statement commits give the flush-before-return durability the
//     frontier contract requires
//  4. WAL mode provides good concurrent read performance
package database
