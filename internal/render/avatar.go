package render

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/distrack-profile/internal/config"
)

// FallbackAvatarDataURI is a 1x1 transparent PNG. It is the value of the
// avatar slot whenever a remote fetch is skipped or fails; an empty href in
// the output document would break rendering.
const FallbackAvatarDataURI = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

// AvatarFetcher retrieves remote avatar images and encodes them for inline
// embedding into a vector document.
type AvatarFetcher struct {
	client      *http.Client
	maxBytes    int64
	placeholder string
	logger      *slog.Logger
}

// NewAvatarFetcher creates a fetcher with a bounded request timeout.
func NewAvatarFetcher(cfg *config.AvatarConfig, logger *slog.Logger) *AvatarFetcher {
	return &AvatarFetcher{
		client:      &http.Client{Timeout: cfg.FetchTimeout},
		maxBytes:    cfg.MaxBytes,
		placeholder: cfg.PlaceholderURL,
		logger:      logger,
	}
}

// Fetch returns a self-contained data URI for the avatar at url. An empty
// url or the known placeholder sentinel short-circuits without any network
// call. A single attempt is made; every failure mode (timeout, non-2xx,
// oversize body, non-image content) degrades to the transparent fallback.
// The error never escapes the fetcher boundary.
func (f *AvatarFetcher) Fetch(ctx context.Context, url string) string {
	if url == "" || url == f.placeholder {
		return FallbackAvatarDataURI
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.logger.Warn("invalid avatar url", "url", url, "error", err)
		return FallbackAvatarDataURI
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("avatar fetch failed", "url", url, "error", err)
		return FallbackAvatarDataURI
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Warn("avatar fetch returned non-2xx", "url", url, "status", resp.StatusCode)
		return FallbackAvatarDataURI
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		f.logger.Warn("avatar response is not an image", "url", url, "content_type", contentType)
		return FallbackAvatarDataURI
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		f.logger.Warn("reading avatar body failed", "url", url, "error", err)
		return FallbackAvatarDataURI
	}
	if int64(len(body)) > f.maxBytes {
		f.logger.Warn("avatar exceeds size limit", "url", url, "limit", f.maxBytes)
		return FallbackAvatarDataURI
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(body)
}
