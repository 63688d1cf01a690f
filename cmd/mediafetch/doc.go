// Package main hosts the mediafetch CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, wires the resolver,
// selector, acquisition engine, and batch coordinator together, and renders
// per-job results as tables or JSON. Interrupting a fetch cancels every
// running job; partially written files are removed before the process exits.
//
// Keep this package lean: behavior belongs in the internal packages and is
// surfaced here through commands and flags.
package main
