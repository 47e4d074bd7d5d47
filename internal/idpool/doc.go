// Package idpool implements the client-side identifier pool.
//
// A Pool amortizes calls to the remote idgen service by fetching
// identifiers in batches and serving them from local memory. Consumers
// borrow an identifier and later either consume it (permanently claim
// it) or give it back (return it unused for reuse). Identifiers cached
// here are lost on process restart; the pool is an optimization layer,
// not a source of truth.
//
// When the lent pool grows past its upper bound the pool assumes
// callers are borrowing without resolving and discards the entire lent
// set, including identifiers still held by live borrowers. This is
// lossy by design: discarded identifiers are never recoverable, and
// later giveback/consume calls for them are silent no-ops.
package idpool
