// Package main is the entry point for the webharvest command.
// webharvest is a polite, resumable web crawler for bounded domains:
// it maintains a durable URL frontier, rate-limits per domain, skips
// duplicate content, and archives page text for offline analysis.
package main

func main() {
	Execute()
}
