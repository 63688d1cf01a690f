package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Kind classifies what a variant carries.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
	KindMuxed Kind = "muxed"
)

// ParseKind maps loose manifest spellings onto a Kind.
func ParseKind(value string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "audio", "audio-only", "audio_only":
		return KindAudio, true
	case "video", "video-only", "video_only":
		return KindVideo, true
	case "muxed", "progressive", "av", "audio+video", "video+audio":
		return KindMuxed, true
	default:
		return "", false
	}
}

// Locator produces the byte location of a variant at fetch time. Some sources
// sign or decipher URLs lazily, so the URL is not part of the variant itself.
type Locator interface {
	StreamURL(ctx context.Context) (string, error)
}

// URLLocator is a Locator for sources that publish plain stream URLs.
type URLLocator string

// StreamURL returns the URL unchanged.
func (u URLLocator) StreamURL(context.Context) (string, error) {
	if strings.TrimSpace(string(u)) == "" {
		return "", fmt.Errorf("empty stream url")
	}
	return string(u), nil
}

// Variant is one downloadable representation of a remote item. Values are
// produced by a Resolver and never mutated afterwards.
type Variant struct {
	ID            string
	Kind          Kind
	Container     string
	VideoCodec    string
	AudioCodec    string
	Quality       int64
	Bitrate       int
	Height        int
	ContentLength int64
	Locator       Locator
}

// Label renders a short human description such as "video mp4 1080p avc1".
func (v Variant) Label() string {
	parts := []string{string(v.Kind), v.Container}
	if v.Height > 0 {
		parts = append(parts, fmt.Sprintf("%dp", v.Height))
	}
	if v.Bitrate > 0 {
		parts = append(parts, fmt.Sprintf("%dkbps", v.Bitrate/1000))
	}
	for _, codec := range []string{v.VideoCodec, v.AudioCodec} {
		if codec != "" {
			parts = append(parts, codec)
		}
	}
	return strings.Join(parts, " ")
}

func (v Variant) usable() bool {
	switch v.Kind {
	case KindAudio, KindVideo, KindMuxed:
	default:
		return false
	}
	return v.Locator != nil && ValidContainer(v.Container)
}

// ValidContainer reports whether container is a bare extension token of
// lowercase letters and digits, such as "mp4" or "m4a". Final file names are
// built from it.
func ValidContainer(container string) bool {
	if container == "" || len(container) > 16 {
		return false
	}
	for _, r := range container {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// Catalog is the resolved list of variants for one source URL. Variants are in
// preference order as emitted by the resolver.
type Catalog struct {
	URL      string
	Title    string
	Variants []Variant
}

// Count returns how many variants of the given kind the catalog holds.
func (c *Catalog) Count(kind Kind) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, v := range c.Variants {
		if v.Kind == kind {
			n++
		}
	}
	return n
}

// usableOnly drops variants that cannot be fetched and reports whether any remain.
func (c *Catalog) usableOnly() bool {
	kept := c.Variants[:0:0]
	for _, v := range c.Variants {
		if v.usable() {
			kept = append(kept, v)
		}
	}
	c.Variants = kept
	return len(kept) > 0
}
