// Package mux stream-copies a video track and an audio track into one
// container with ffmpeg.
//
// Streams are never re-encoded. Pairings the target container cannot hold
// are rejected before ffmpeg runs, and when ffprobe is available the output
// is inspected to confirm the codecs survived the copy.
package mux
