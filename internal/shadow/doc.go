// Package shadow caches the last known value of every point, keyed by
// point ID.
//
// The shadow is what lets the gateway answer a value query without
// touching the field bus: the dispatch engine serves reads from here when
// the entry is fresh enough, and refreshes it after every successful
// driver read or write.
//
// Updates are last-writer-wins by observation timestamp, so a slow driver
// response that lands after a newer observation is silently discarded.
// Timestamps come from the callers; the store never consults the clock
// itself, which keeps the ordering rule testable.
package shadow
