package catalog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kkdai/youtube/v2"

	"mediafetch/internal/services"
)

func TestVariantFromFormat(t *testing.T) {
	tests := []struct {
		name      string
		format    youtube.Format
		wantKind  Kind
		container string
		vcodec    string
		acodec    string
	}{
		{
			name:      "adaptive video",
			format:    youtube.Format{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, Height: 1080, Bitrate: 4_000_000},
			wantKind:  KindVideo,
			container: "mp4",
			vcodec:    "avc1",
		},
		{
			name:      "adaptive audio mp4 becomes m4a",
			format:    youtube.Format{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130_000, AudioChannels: 2},
			wantKind:  KindAudio,
			container: "m4a",
			acodec:    "mp4a",
		},
		{
			name:      "opus audio",
			format:    youtube.Format{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160_000, AudioChannels: 2},
			wantKind:  KindAudio,
			container: "webm",
			acodec:    "opus",
		},
		{
			name:      "progressive muxed",
			format:    youtube.Format{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Height: 360, AudioChannels: 2},
			wantKind:  KindMuxed,
			container: "mp4",
			vcodec:    "avc1",
			acodec:    "mp4a",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := variantFromFormat(tt.format)
			if !ok {
				t.Fatal("expected format to map")
			}
			if got.Kind != tt.wantKind || got.Container != tt.container {
				t.Fatalf("unexpected kind/container: %s %s", got.Kind, got.Container)
			}
			if got.VideoCodec != tt.vcodec || got.AudioCodec != tt.acodec {
				t.Fatalf("unexpected codecs: video=%q audio=%q", got.VideoCodec, got.AudioCodec)
			}
			if got.ID != fmt.Sprint(tt.format.ItagNo) {
				t.Fatalf("unexpected id: %q", got.ID)
			}
		})
	}

	if _, ok := variantFromFormat(youtube.Format{MimeType: ""}); ok {
		t.Fatal("expected format without mime type to be dropped")
	}
}

func TestVariantQualityOrdersHeightThenBitrate(t *testing.T) {
	low, _ := variantFromFormat(youtube.Format{MimeType: "video/mp4", Height: 720, Bitrate: 9_000_000})
	high, _ := variantFromFormat(youtube.Format{MimeType: "video/mp4", Height: 1080, Bitrate: 1_000_000})
	if high.Quality <= low.Quality {
		t.Fatalf("1080p should outrank 720p regardless of bitrate: %d <= %d", high.Quality, low.Quality)
	}
	a1, _ := variantFromFormat(youtube.Format{MimeType: "audio/mp4", Bitrate: 48_000, AudioChannels: 2})
	a2, _ := variantFromFormat(youtube.Format{MimeType: "audio/mp4", Bitrate: 128_000, AudioChannels: 2})
	if a2.Quality <= a1.Quality {
		t.Fatal("higher audio bitrate should rank higher")
	}
}

func TestVariantsFromFormatsPrefersMP4OnTies(t *testing.T) {
	resolver := NewYouTubeResolver(nil, nil)
	video := &youtube.Video{
		ID: "abcdefghijk",
		Formats: youtube.FormatList{
			{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 128_000, AudioChannels: 2},
			{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 128_000, AudioChannels: 2},
			{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, Height: 1080, Bitrate: 4_000_000},
		},
	}
	variants := resolver.variantsFromFormats(video)
	if len(variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(variants))
	}
	if variants[0].ID != "137" {
		t.Fatalf("expected video first, got %s", variants[0].ID)
	}
	if variants[1].ID != "140" || variants[2].ID != "251" {
		t.Fatalf("expected mp4 audio ahead of webm on equal quality, got %s then %s", variants[1].ID, variants[2].ID)
	}
	for _, v := range variants {
		if v.Locator == nil {
			t.Fatalf("variant %s has no locator", v.ID)
		}
	}
}

func TestClassifyYouTubeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{youtube.ErrVideoPrivate, services.SubNotFound},
		{fmt.Errorf("wrapped: %w", youtube.ErrLoginRequired), services.SubNotFound},
		{youtube.ErrUnexpectedStatusCode(404), services.SubNotFound},
		{youtube.ErrUnexpectedStatusCode(503), services.SubTransport},
		{errors.New("connection reset by peer"), services.SubTransport},
	}
	for _, tt := range tests {
		if got := classifyYouTubeError(tt.err); got != tt.want {
			t.Fatalf("classifyYouTubeError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestIsYouTubeHost(t *testing.T) {
	for host, want := range map[string]bool{
		"www.youtube.com":   true,
		"m.youtube.com":     true,
		"youtu.be":          true,
		"music.youtube.com": true,
		"youtube.example":   false,
		"vimeo.com":         false,
	} {
		if got := IsYouTubeHost(host); got != want {
			t.Fatalf("IsYouTubeHost(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestNormalizeMusicURL(t *testing.T) {
	got := normalizeMusicURL("https://music.youtube.com/watch?v=abcdefghijk")
	if got != "https://www.youtube.com/watch?v=abcdefghijk" {
		t.Fatalf("unexpected normalized url: %q", got)
	}
	if got := normalizeMusicURL("https://youtu.be/x"); got != "https://youtu.be/x" {
		t.Fatalf("non-music url should be unchanged, got %q", got)
	}
}
