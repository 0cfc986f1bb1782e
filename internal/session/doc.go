// Package session coordinates one photo sorting session end to end.
//
// A Session accumulates uploaded photos, re-clusters the whole set after each
// upload, applies manual moves through a groups.Store, and on confirmation
// runs enrichment over a snapshot of the partition. Sessions live in a
// Registry held in memory by the daemon.
package session
