// Package acquire turns a variant selection into one final file on disk.
//
// A job moves through Fetching(1), an optional Fetching(2) and Combining
// for video+audio pairs, then Renaming and Done. Any state can end in
// Failed. Intermediates live next to the final file under hidden ".part"
// names and are removed once the job ends, whether it succeeds, fails, or is
// canceled. A returned path always names an existing, non-empty file.
package acquire
