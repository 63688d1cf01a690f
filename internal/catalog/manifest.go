package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"mediafetch/internal/logging"
	"mediafetch/internal/services"
)

const maxManifestBytes = 8 << 20

type manifestDocument struct {
	Title    string             `json:"title"`
	Variants []manifestVariant `json:"variants"`
}

type manifestVariant struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Container     string `json:"container"`
	VideoCodec    string `json:"video_codec"`
	AudioCodec    string `json:"audio_codec"`
	Quality       int64  `json:"quality"`
	Bitrate       int    `json:"bitrate"`
	Height        int    `json:"height"`
	ContentLength int64  `json:"content_length"`
	URL           string `json:"url"`
}

// ManifestResolver reads a JSON variant manifest served at the item URL.
type ManifestResolver struct {
	client *http.Client
	logger *slog.Logger
}

// NewManifestResolver constructs a resolver using client for all requests.
func NewManifestResolver(client *http.Client, logger *slog.Logger) *ManifestResolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &ManifestResolver{client: client, logger: logging.NewComponentLogger(logger, "manifest")}
}

// Resolve fetches and parses the manifest at rawURL.
func (r *ManifestResolver) Resolve(ctx context.Context, rawURL string) (*Catalog, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, services.NewResolutionError(services.SubNotFound, "parse url", rawURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.NewResolutionError(services.SubNotFound, "build request", rawURL, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.NewResolutionError(services.SubTransport, "get manifest", rawURL, err)
	}
	defer resp.Body.Close()

	if sub, failed := classifyStatus(resp.StatusCode); failed {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, services.NewResolutionError(sub, "get manifest", fmt.Sprintf("%s returned %s", rawURL, resp.Status), nil)
	}

	var doc manifestDocument
	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxManifestBytes))
	if err := decoder.Decode(&doc); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) {
			return nil, services.NewResolutionError(services.SubNotFound, "decode manifest", "response is not a variant manifest", err)
		}
		return nil, services.NewResolutionError(services.SubTransport, "read manifest", rawURL, err)
	}

	catalog := &Catalog{URL: rawURL, Title: strings.TrimSpace(doc.Title)}
	if catalog.Title == "" {
		catalog.Title = titleFromPath(base)
	}
	for idx, entry := range doc.Variants {
		variant, ok := r.convert(base, idx, entry)
		if !ok {
			continue
		}
		catalog.Variants = append(catalog.Variants, variant)
	}
	r.logger.Debug("manifest parsed",
		logging.String(logging.FieldURL, rawURL),
		logging.Int("declared", len(doc.Variants)),
		logging.Int("accepted", len(catalog.Variants)),
	)
	return catalog, nil
}

func (r *ManifestResolver) convert(base *url.URL, idx int, entry manifestVariant) (Variant, bool) {
	kind, ok := ParseKind(entry.Kind)
	if !ok {
		r.logger.Debug("skipping variant with unknown kind", logging.Int("index", idx), logging.String("kind", entry.Kind))
		return Variant{}, false
	}
	ref, err := url.Parse(strings.TrimSpace(entry.URL))
	if err != nil || strings.TrimSpace(entry.URL) == "" {
		r.logger.Debug("skipping variant without url", logging.Int("index", idx))
		return Variant{}, false
	}
	container := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(entry.Container), "."))
	if !ValidContainer(container) {
		r.logger.Debug("skipping variant with invalid container", logging.Int("index", idx), logging.String("container", entry.Container))
		return Variant{}, false
	}
	id := strings.TrimSpace(entry.ID)
	if id == "" {
		id = fmt.Sprintf("%d", idx)
	}
	return Variant{
		ID:            id,
		Kind:          kind,
		Container:     container,
		VideoCodec:    strings.TrimSpace(entry.VideoCodec),
		AudioCodec:    strings.TrimSpace(entry.AudioCodec),
		Quality:       entry.Quality,
		Bitrate:       entry.Bitrate,
		Height:        entry.Height,
		ContentLength: entry.ContentLength,
		Locator:       URLLocator(base.ResolveReference(ref).String()),
	}, true
}

// classifyStatus maps an HTTP status onto a resolution sub-kind. The bool is
// false for success codes.
func classifyStatus(code int) (string, bool) {
	switch {
	case code >= 200 && code < 300:
		return "", false
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
		return services.SubTransport, true
	default:
		return services.SubNotFound, true
	}
}

func titleFromPath(u *url.URL) string {
	if u == nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return u.Host
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
