// Package fetch downloads stream bytes to local files.
//
// Downloads use ranged requests so an interrupted transfer resumes from the
// bytes already on disk. Transient transport failures (timeouts, resets,
// short bodies, 408/429/5xx) are retried with exponential backoff up to a
// fixed attempt bound. Other HTTP errors fail immediately, local filesystem
// failures are reported as storage errors, and the partial file is removed
// whenever a fetch does not complete.
package fetch
