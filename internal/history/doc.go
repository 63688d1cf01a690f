// Package history keeps a SQLite journal of batch job outcomes.
//
// Each finished job is appended with its run id, source URL, intent, status
// and output path so `mediafetch history` can list recent activity. The
// journal records outcomes only; it never tracks or manages the downloaded
// files themselves.
package history
