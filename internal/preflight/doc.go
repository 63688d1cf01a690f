// Package preflight provides readiness checks for the directories and remote
// endpoints mediafetch depends on.
//
// The CLI "mediafetch status" command renders these results; "mediafetch
// fetch" runs CheckDirectoryAccess on the output directory before starting
// a batch so an unwritable destination fails fast instead of once per job.
package preflight
