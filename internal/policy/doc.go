// Package policy decides which discovered URLs are worth crawling.
// It combines a domain allowlist, a file-extension blacklist, crawler
// trap heuristics for generated URL space, and cached robots.txt
// evaluation.
package policy
