// Package groups holds the editable partition of photos into lots.
//
// A Partition is an ordered list of Groups that covers every ingested photo
// exactly once. Store is the single owner of the live partition: clustering
// reseeds it wholesale, and manual edits move photos between groups, reorder
// them, or open an empty group for a later placement. After every move the
// store drops empty groups, so group indices held by callers are invalidated
// by any mutation and must be re-read from a fresh Snapshot.
package groups
