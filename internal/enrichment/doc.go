// Package enrichment turns a confirmed partition into one sales listing per lot.
//
// Orchestrator.Enrich launches one Describer call per non-empty group, all at
// once, and waits for every call to finish before returning. Each call runs
// under its own deadline; a deadline or network failure is classified as
// KindTransport, a failure reported by the service as KindService.
//
// The default failure policy is all-or-nothing: if any lot fails, the batch
// fails with a *BatchError and no listings are returned. Options.PartialResults
// keeps the successful listings next to the failures.
package enrichment
