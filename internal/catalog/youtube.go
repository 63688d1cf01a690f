package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kkdai/youtube/v2"

	"mediafetch/internal/logging"
	"mediafetch/internal/services"
)

// YouTubeResolver builds catalogs from YouTube watch pages.
type YouTubeResolver struct {
	client *youtube.Client
	logger *slog.Logger
	// the upstream client caches player state without locking
	mu sync.Mutex
}

// NewYouTubeResolver constructs a resolver whose requests go through httpClient.
func NewYouTubeResolver(httpClient *http.Client, logger *slog.Logger) *YouTubeResolver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &YouTubeResolver{
		client: &youtube.Client{HTTPClient: httpClient},
		logger: logging.NewComponentLogger(logger, "youtube"),
	}
}

// IsYouTubeHost reports whether host belongs to YouTube.
func IsYouTubeHost(host string) bool {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	host = strings.TrimPrefix(host, "m.")
	return host == "youtube.com" || host == "youtu.be" || host == "music.youtube.com"
}

// Resolve fetches video metadata and maps its formats onto variants.
func (r *YouTubeResolver) Resolve(ctx context.Context, rawURL string) (*Catalog, error) {
	target := normalizeMusicURL(rawURL)

	r.mu.Lock()
	video, err := r.client.GetVideoContext(ctx, target)
	r.mu.Unlock()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.NewResolutionError(classifyYouTubeError(err), "get video", rawURL, err)
	}

	catalog := &Catalog{
		URL:      rawURL,
		Title:    strings.TrimSpace(video.Title),
		Variants: r.variantsFromFormats(video),
	}
	if catalog.Title == "" {
		catalog.Title = video.ID
	}
	r.logger.Debug("video resolved",
		logging.String(logging.FieldURL, rawURL),
		logging.String("video_id", video.ID),
		logging.Int("formats", len(video.Formats)),
		logging.Int("variants", len(catalog.Variants)),
	)
	return catalog, nil
}

func (r *YouTubeResolver) variantsFromFormats(video *youtube.Video) []Variant {
	variants := make([]Variant, 0, len(video.Formats))
	for i := range video.Formats {
		format := video.Formats[i]
		variant, ok := variantFromFormat(format)
		if !ok {
			continue
		}
		variant.Locator = &youtubeLocator{resolver: r, video: video, format: format}
		variants = append(variants, variant)
	}
	sort.SliceStable(variants, func(i, j int) bool {
		if variants[i].Quality != variants[j].Quality {
			return variants[i].Quality > variants[j].Quality
		}
		return containerRank(variants[i].Container) < containerRank(variants[j].Container)
	})
	return variants
}

// variantFromFormat maps one upstream format. Formats without a mime type are
// dropped.
func variantFromFormat(format youtube.Format) (Variant, bool) {
	mediaType, codecs := splitMimeType(format.MimeType)
	if mediaType == "" {
		return Variant{}, false
	}
	major, minor, _ := strings.Cut(mediaType, "/")
	hasVideo := major == "video"
	hasAudio := major == "audio" || (hasVideo && format.AudioChannels > 0)

	variant := Variant{
		ID:            strconv.Itoa(format.ItagNo),
		Bitrate:       bitrateOf(format),
		Height:        format.Height,
		ContentLength: format.ContentLength,
	}
	switch {
	case hasVideo && hasAudio:
		variant.Kind = KindMuxed
	case hasVideo:
		variant.Kind = KindVideo
	case hasAudio:
		variant.Kind = KindAudio
	default:
		return Variant{}, false
	}

	variant.Container = minor
	if variant.Kind == KindAudio && minor == "mp4" {
		variant.Container = "m4a"
	}
	if minor == "3gpp" {
		variant.Container = "3gp"
	}

	switch variant.Kind {
	case KindVideo:
		if len(codecs) > 0 {
			variant.VideoCodec = codecs[0]
		}
	case KindAudio:
		if len(codecs) > 0 {
			variant.AudioCodec = codecs[0]
		}
	case KindMuxed:
		if len(codecs) > 0 {
			variant.VideoCodec = codecs[0]
		}
		if len(codecs) > 1 {
			variant.AudioCodec = codecs[1]
		}
	}

	// Height dominates for anything with a picture; bitrate breaks ties and
	// ranks audio.
	variant.Quality = int64(variant.Height)<<32 | int64(uint32(variant.Bitrate))
	return variant, true
}

func bitrateOf(f youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	return f.AverageBitrate
}

// splitMimeType turns `video/mp4; codecs="avc1.64001F, mp4a.40.2"` into
// "video/mp4" and the short codec family names ["avc1", "mp4a"].
func splitMimeType(mime string) (string, []string) {
	mediaType, params, _ := strings.Cut(mime, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if !strings.Contains(mediaType, "/") {
		return "", nil
	}
	_, raw, found := strings.Cut(params, "codecs=")
	if !found {
		return mediaType, nil
	}
	raw = strings.Trim(strings.TrimSpace(raw), `"`)
	var codecs []string
	for _, codec := range strings.Split(raw, ",") {
		codec = strings.TrimSpace(codec)
		if codec == "" {
			continue
		}
		family, _, _ := strings.Cut(codec, ".")
		codecs = append(codecs, strings.ToLower(family))
	}
	return mediaType, codecs
}

func containerRank(container string) int {
	switch container {
	case "mp4", "m4a":
		return 0
	case "webm":
		return 1
	default:
		return 2
	}
}

// classifyYouTubeError separates permanent lookup failures from transport noise.
func classifyYouTubeError(err error) string {
	switch {
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed),
		errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return services.SubNotFound
	}
	var statusErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		return services.SubNotFound
	}
	var codeErr youtube.ErrUnexpectedStatusCode
	if errors.As(err, &codeErr) {
		if sub, failed := classifyStatus(int(codeErr)); failed {
			return sub
		}
	}
	return services.SubTransport
}

func normalizeMusicURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || !strings.EqualFold(parsed.Host, "music.youtube.com") {
		return rawURL
	}
	parsed.Host = "www.youtube.com"
	return parsed.String()
}

// youtubeLocator deciphers the signed stream URL when the fetcher asks for it.
type youtubeLocator struct {
	resolver *YouTubeResolver
	video    *youtube.Video
	format   youtube.Format
}

func (l *youtubeLocator) StreamURL(ctx context.Context) (string, error) {
	l.resolver.mu.Lock()
	defer l.resolver.mu.Unlock()
	format := l.format
	streamURL, err := l.resolver.client.GetStreamURLContext(ctx, l.video, &format)
	if err != nil {
		return "", fmt.Errorf("decipher stream url for itag %d: %w", l.format.ItagNo, err)
	}
	return streamURL, nil
}
