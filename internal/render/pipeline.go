package render

import (
	"context"
	"image/color"
	"log/slog"
	"strings"

	"github.com/distrack-profile/internal/config"
	"github.com/distrack-profile/internal/domain"
)

// Content types produced by the pipeline.
const (
	ContentTypePNG = "image/png"
	ContentTypeSVG = "image/svg+xml"
)

// Renderer runs the profile image pipeline: template load, field
// formatting, optional avatar embed, token substitution, rasterization.
// Each stage either produces a value or a documented default, so the
// renderer always returns a servable image body.
type Renderer struct {
	avatar *AvatarFetcher
	cfg    *config.ProfileConfig
	logger *slog.Logger
}

// NewRenderer creates a renderer.
func NewRenderer(avatar *AvatarFetcher, cfg *config.ProfileConfig, logger *slog.Logger) *Renderer {
	return &Renderer{
		avatar: avatar,
		cfg:    cfg,
		logger: logger,
	}
}

// ProfileImage renders the profile card for a user. vector keeps the SVG
// document and skips rasterization entirely. Failures along the way degrade
// stage by stage; the returned body is always a valid image.
func (r *Renderer) ProfileImage(ctx context.Context, user *domain.User, rank int64, variant string, vector bool) ([]byte, string) {
	tmpl, err := LoadTemplate(variant)
	if err != nil {
		r.logger.Warn("template unavailable, serving branding card", "variant", variant, "error", err)
		return r.FallbackImage(vector)
	}

	fields := FormatFields(user, rank,
		r.cfg.BaseURL+"/user/"+user.UserID,
		"View full profile at "+strings.TrimPrefix(strings.TrimPrefix(r.cfg.BaseURL, "https://"), "http://"),
	)

	// The avatar slot decides whether a network fetch happens at all.
	// Templates without the slot must never trigger a speculative request.
	if strings.Contains(tmpl, TokenAvatarHref) {
		fields[TokenAvatarHref] = r.avatar.Fetch(ctx, user.AvatarURL)
	}

	doc := Substitute(tmpl, fields)
	if vector {
		return []byte(doc), ContentTypeSVG
	}
	return r.rasterizeOrFallback(doc)
}

// FallbackImage renders the static branding card, used for unknown users
// and unrecoverable render errors.
func (r *Renderer) FallbackImage(vector bool) ([]byte, string) {
	doc := BrandingDocument()
	if vector {
		return []byte(doc), ContentTypeSVG
	}
	return r.rasterizeOrFallback(doc)
}

func (r *Renderer) rasterizeOrFallback(doc string) ([]byte, string) {
	body, err := Rasterize(doc)
	if err == nil {
		return body, ContentTypePNG
	}
	r.logger.Error("rasterization failed, serving branding card", "error", err)

	body, err = Rasterize(BrandingDocument())
	if err == nil {
		return body, ContentTypePNG
	}
	r.logger.Error("branding card rasterization failed", "error", err)

	return solidPNG(cardWidth, cardHeight, color.RGBA{R: 0x66, G: 0x7e, B: 0xea, A: 0xff}), ContentTypePNG
}
