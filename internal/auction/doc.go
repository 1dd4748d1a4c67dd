// Package auction holds the in-memory auction aggregate and the pure state
// transitions that operate on it.
//
// The aggregate is a single value owning everything a running auction needs:
// the sequence counter that orders all events, the current round (if any),
// the current round's bid log, the append-only history of closed rounds, and
// best-effort presence entries for connected participants.
//
// Nothing in this package locks or persists. All methods mutate the receiver
// directly and must only be called from inside an engine transaction, which
// provides exclusive access and durability (see internal/engine). Keeping the
// transitions pure makes every lifecycle rule testable without a database or
// a goroutine.
//
// Ordering model:
// Every externally visible event - the synthetic round-start entry and each
// accepted bid - consumes exactly one value from the aggregate's Sequence.
// Seq values are unique and strictly increasing for the lifetime of the
// aggregate, so reading the bid log or history back in seq order always
// reproduces the order in which transactions committed.
package auction
