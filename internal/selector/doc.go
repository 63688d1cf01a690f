// Package selector chooses which catalog variants satisfy a user intent.
//
// Selection is deterministic: declared filters narrow the candidates, the
// highest quality hint wins, and ties resolve to the first-listed variant.
// A video+audio intent yields an independent pair that the acquisition
// engine combines, or, when explicitly allowed, a single pre-muxed variant.
package selector
