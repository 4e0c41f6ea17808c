// Package storage persists crawled page text as gzip-compressed JSONL
// files partitioned by source host and fetch date.
package storage
