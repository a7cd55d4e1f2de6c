// Package crawler holds the record domain shared by the listing crawler: record
// candidates and their promotion, strategies, fetch results, and the narrow
// interfaces the planner uses to reach transports, extractors, and stores.
package crawler
