// Package quote coordinates asynchronous price calculations for one
// configurable product session.
//
// A Coordinator receives configuration snapshots through
// OnConfigurationChange, asks a pricing.Calculator for a price, and keeps a
// State that only ever reflects the most recently issued attempt:
//
//   - SequenceGuard numbers attempts at issue time; a completion is applied
//     only if its number is still the latest issued one.
//   - DebounceScheduler coalesces bursts of changes into one trigger that
//     carries the snapshot captured when it was scheduled.
//   - IsLoading is lowered only by the authoritative completion, so a stale
//     completion never makes the loading indicator flicker.
//
// Completions may arrive in any order; the newest issued attempt wins.
package quote
