package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"mediafetch/internal/logging"
	"mediafetch/internal/services"
)

// Resolver turns an item URL into a Catalog.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (*Catalog, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, rawURL string) (*Catalog, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, rawURL string) (*Catalog, error) {
	return f(ctx, rawURL)
}

// Router validates URLs, dispatches them to the resolver for their host, and
// enforces that a returned catalog has at least one usable variant.
type Router struct {
	youtube  Resolver
	fallback Resolver
	logger   *slog.Logger
}

// NewRouter builds a router. youtube may be nil, in which case every URL goes
// to fallback.
func NewRouter(youtube, fallback Resolver, logger *slog.Logger) *Router {
	return &Router{
		youtube:  youtube,
		fallback: fallback,
		logger:   logging.NewComponentLogger(logger, "resolver"),
	}
}

// Resolve implements Resolver.
func (r *Router) Resolve(ctx context.Context, rawURL string) (*Catalog, error) {
	normalized, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	parsed, _ := url.Parse(normalized)

	resolver := r.fallback
	source := "manifest"
	if r.youtube != nil && IsYouTubeHost(parsed.Hostname()) {
		resolver = r.youtube
		source = "youtube"
	}
	if resolver == nil {
		return nil, services.NewResolutionError(services.SubNotFound, "route", "no resolver for "+parsed.Hostname(), nil)
	}

	catalog, err := resolver.Resolve(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if catalog == nil || !catalog.usableOnly() {
		return nil, services.NewResolutionError(services.SubNoStreams, source, "no usable variants for "+normalized, nil)
	}
	r.logger.Info("catalog resolved",
		logging.String(logging.FieldURL, normalized),
		logging.String("source", source),
		logging.String("title", catalog.Title),
		logging.Int("audio", catalog.Count(KindAudio)),
		logging.Int("video", catalog.Count(KindVideo)),
		logging.Int("muxed", catalog.Count(KindMuxed)),
	)
	return catalog, nil
}

// ValidateURL trims rawURL and checks it is an absolute http(s) URL with a
// host. Invalid input is a not-found resolution failure.
func ValidateURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", services.NewResolutionError(services.SubNotFound, "validate url", "empty url", nil)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", services.NewResolutionError(services.SubNotFound, "validate url", "invalid url", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return "", services.NewResolutionError(services.SubNotFound, "validate url",
			fmt.Sprintf("unsupported URL scheme %q", parsed.Scheme), nil)
	}
	if parsed.Host == "" {
		return "", services.NewResolutionError(services.SubNotFound, "validate url", "missing host", nil)
	}
	return parsed.String(), nil
}
