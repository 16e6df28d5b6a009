// Package fanout delivers values from one producer to many consumers.
//
// Each subscriber gets its own unbounded queue:
//   - publishing never blocks, even when a subscriber stops reading
//   - every subscriber observes values in publish order
//   - closing the hub drains queued values before channels close
package fanout
