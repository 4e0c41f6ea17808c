// Package fingerprint implements content deduplication for crawled pages.
//
// Two independent classifiers combine into one verdict. An exact hash
// (SHA-256 of the page text) catches byte-identical pages. A
// frequency-weighted simhash catches near-duplicates: pages whose text
// differs only in boilerplate, ads, or navigation still land within a
// few bits of each other, and a configurable bit-similarity threshold
// decides how close is too close.
//
// The Tracker records fingerprints only for pages classified as new, so
// one representative of each content cluster is kept and everything that
// matches it later is skipped.
package fingerprint
