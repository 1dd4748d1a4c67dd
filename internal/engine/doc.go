// Package engine serializes every auction mutation through a single
// coarse-grained lock and persists the aggregate before exposing the
// result.
//
// Each operation follows the same shape: clone the in-memory aggregate,
// apply the transition to the clone, save the clone, then swap it in.
// A failed transition or a failed save leaves the published aggregate
// untouched, so the in-memory state never runs ahead of the database.
//
// Mutating operations (StartRound, PlaceBid) always evaluate the idle
// close before validating, so a bid can never land on a round whose
// idle deadline has already passed. Read operations run the same
// housekeeping, but gate it behind a shared check throttle to keep
// polling cheap.
package engine
