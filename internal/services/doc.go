// Package services defines shared utilities consumed by every pipeline stage.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, job IDs, stage names, and
//     correlation identifiers for logging.
//   - The classified Error type and sentinel markers that turn any failure
//     into a reportable job outcome (resolution, selection, fetch, storage,
//     combine, canceled).
package services
