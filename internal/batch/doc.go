// Package batch runs one acquisition pipeline per URL on a bounded worker
// pool.
//
// A failure in one job never affects another: every URL yields exactly one
// JobResult, and results are returned in input order regardless of
// completion order. A cross-process lock on the destination directory keeps
// two batches from writing there at once.
package batch
