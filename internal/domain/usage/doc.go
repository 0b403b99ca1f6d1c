// Package usage provides the domain model for monthly quota metering.
//
// A UsageRecord counts the quota units a user consumed in one calendar month.
// There is at most one record per (user, period); it is created lazily by the
// first increment and its count only ever grows.
//
// Key types:
//   - Period: a calendar (year, month) bucket
//   - UsageRecord: the stored counter for a (user, period) pair
//   - Usage: a read-side snapshot of used, remaining and limit
//   - Store: the transactional persistence the ledger depends on
package usage
