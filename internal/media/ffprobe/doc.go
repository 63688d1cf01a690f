// Package ffprobe runs ffprobe and decodes its JSON stream listing.
//
// The combine stage uses it to confirm that a stream-copied output still
// carries the codecs of its inputs.
package ffprobe
