// Package politeness enforces the per-domain crawl delay.
//
// The Coordinator is shared by every worker in the pool. Before each
// download a worker calls AwaitTurn, which blocks until the domain's
// politeness window has passed and then stamps the fetch time. The
// coordinator keeps state per domain, so crawling many domains in
// parallel loses no throughput to politeness on unrelated hosts.
//
// State is process-lifetime only; it is deliberately not persisted,
// since a restarted process cannot owe politeness debt to a domain it
// has not yet contacted.
package politeness
