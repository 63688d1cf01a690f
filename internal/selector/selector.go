package selector

import (
	"fmt"
	"strings"

	"mediafetch/internal/catalog"
	"mediafetch/internal/services"
)

// Intent is what the user asked to end up with.
type Intent string

const (
	IntentAudioOnly  Intent = "audio-only"
	IntentVideoOnly  Intent = "video-only"
	IntentVideoAudio Intent = "video+audio"
)

// ParseIntent accepts the canonical names plus short CLI aliases.
func ParseIntent(value string) (Intent, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "audio", "audio-only", "audio_only":
		return IntentAudioOnly, nil
	case "video", "video-only", "video_only":
		return IntentVideoOnly, nil
	case "both", "video+audio", "audio+video", "av":
		return IntentVideoAudio, nil
	default:
		return "", fmt.Errorf("unknown intent %q (want audio, video, or both)", value)
	}
}

// Options are declared filters applied before ranking. They never reorder
// candidates.
type Options struct {
	// VideoContainer restricts video candidates to one container; empty allows any.
	VideoContainer string
	// MaxHeight drops video candidates taller than this; zero means unlimited.
	MaxHeight int
	// AllowMuxedFallback lets video+audio fall back to a pre-muxed variant
	// when no separate video stream exists.
	AllowMuxedFallback bool
}

// Selection is the outcome of Select: a single variant, or a video/audio pair
// that must be combined.
type Selection struct {
	Intent  Intent
	Title   string
	URL     string
	Primary catalog.Variant
	// Audio is set only for pairs.
	Audio *catalog.Variant
}

// IsPair reports whether the selection needs combining.
func (s Selection) IsPair() bool { return s.Audio != nil }

// AlreadyMuxed reports whether a video+audio intent was satisfied by a single
// muxed variant.
func (s Selection) AlreadyMuxed() bool {
	return s.Intent == IntentVideoAudio && s.Audio == nil && s.Primary.Kind == catalog.KindMuxed
}

// Variants returns the selected variants in fetch order.
func (s Selection) Variants() []catalog.Variant {
	if s.Audio == nil {
		return []catalog.Variant{s.Primary}
	}
	return []catalog.Variant{s.Primary, *s.Audio}
}

// Select picks variants for intent. The highest Quality wins and ties go to
// the variant listed first in the catalog.
func Select(c *catalog.Catalog, intent Intent, opts Options) (Selection, error) {
	if c == nil {
		return Selection{}, services.NewNoMatchingVariant(string(catalog.KindAudio), "(empty catalog)")
	}
	selection := Selection{Intent: intent, Title: c.Title, URL: c.URL}

	switch intent {
	case IntentAudioOnly:
		audio, ok := best(c.Variants, audioFilter())
		if !ok {
			return Selection{}, services.NewNoMatchingVariant(string(catalog.KindAudio), "in catalog")
		}
		selection.Primary = audio
		return selection, nil

	case IntentVideoOnly:
		video, ok := best(c.Variants, videoFilter(opts))
		if !ok {
			return Selection{}, noVideo(c, opts)
		}
		selection.Primary = video
		return selection, nil

	case IntentVideoAudio:
		video, ok := best(c.Variants, videoFilter(opts))
		if !ok {
			if opts.AllowMuxedFallback {
				if muxed, found := best(c.Variants, muxedFilter(opts)); found {
					selection.Primary = muxed
					return selection, nil
				}
			}
			return Selection{}, noVideo(c, opts)
		}
		audio, ok := best(c.Variants, audioFilter())
		if !ok {
			return Selection{}, services.NewNoMatchingVariant(string(catalog.KindAudio), "to pair with video")
		}
		selection.Primary = video
		selection.Audio = &audio
		return selection, nil

	default:
		return Selection{}, fmt.Errorf("select: unknown intent %q", intent)
	}
}

type filter func(catalog.Variant) bool

func best(variants []catalog.Variant, keep filter) (catalog.Variant, bool) {
	var (
		winner catalog.Variant
		found  bool
	)
	for _, v := range variants {
		if !keep(v) {
			continue
		}
		// strict comparison keeps the first-listed variant on ties
		if !found || v.Quality > winner.Quality {
			winner = v
			found = true
		}
	}
	return winner, found
}

func audioFilter() filter {
	return func(v catalog.Variant) bool { return v.Kind == catalog.KindAudio }
}

func videoFilter(opts Options) filter {
	return func(v catalog.Variant) bool {
		return v.Kind == catalog.KindVideo && fits(v, opts)
	}
}

func muxedFilter(opts Options) filter {
	return func(v catalog.Variant) bool {
		return v.Kind == catalog.KindMuxed && fits(v, opts)
	}
}

func fits(v catalog.Variant, opts Options) bool {
	if opts.VideoContainer != "" && !strings.EqualFold(v.Container, opts.VideoContainer) {
		return false
	}
	if opts.MaxHeight > 0 && v.Height > opts.MaxHeight {
		return false
	}
	return true
}

func noVideo(c *catalog.Catalog, opts Options) error {
	detail := "in catalog"
	if c.Count(catalog.KindVideo) > 0 {
		var filters []string
		if opts.VideoContainer != "" {
			filters = append(filters, "container="+opts.VideoContainer)
		}
		if opts.MaxHeight > 0 {
			filters = append(filters, fmt.Sprintf("max_height=%d", opts.MaxHeight))
		}
		detail = "matching " + strings.Join(filters, " ")
	} else if c.Count(catalog.KindMuxed) > 0 {
		detail = "(only muxed streams are available; enable selection.allow_muxed_fallback to accept them)"
	}
	return services.NewNoMatchingVariant(string(catalog.KindVideo), detail)
}
