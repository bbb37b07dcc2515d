package render

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrack-profile/internal/config"
	"github.com/distrack-profile/internal/domain"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	logger := testLogger()
	avatar := NewAvatarFetcher(&config.AvatarConfig{
		FetchTimeout:   time.Second,
		MaxBytes:       1 << 20,
		PlaceholderURL: "https://avatar.iran.liara.run/public",
	}, logger)
	return NewRenderer(avatar, &config.ProfileConfig{
		BaseURL:        "https://distrack.example",
		DefaultVariant: "free",
	}, logger)
}

func testUser() *domain.User {
	return &domain.User{
		UserID:          "user-1",
		Username:        "gopher",
		DisplayName:     "Gopher <Dev>",
		TotalCodingTime: 7200,
		CurrentStreak:   3,
		LongestStreak:   9,
		Languages:       map[string]int64{"go": 7200},
	}
}

func TestProfileImagePNG(t *testing.T) {
	body, contentType := newTestRenderer(t).ProfileImage(context.Background(), testUser(), 4, "free", false)

	assert.Equal(t, ContentTypePNG, contentType)
	assert.True(t, bytes.HasPrefix(body, pngMagic))
}

func TestProfileImagePNGReflectsProfileData(t *testing.T) {
	r := newTestRenderer(t)

	other := testUser()
	other.DisplayName = "Someone Else Entirely"
	other.TotalCodingTime = 360000

	a, _ := r.ProfileImage(context.Background(), testUser(), 4, "free", false)
	b, _ := r.ProfileImage(context.Background(), other, 9, "free", false)

	assert.NotEqual(t, a, b, "the card must carry the profile data, not just the background")
}

func TestProfileImageVector(t *testing.T) {
	body, contentType := newTestRenderer(t).ProfileImage(context.Background(), testUser(), 4, "free", true)

	require.Equal(t, ContentTypeSVG, contentType)
	doc := string(body)
	assert.Contains(t, doc, "Gopher &lt;Dev&gt;")
	assert.Contains(t, doc, "@gopher")
	assert.Contains(t, doc, ">2h<")
	assert.NotContains(t, doc, TokenDisplayName)
	assert.NotContains(t, doc, TokenTotalHours)
}

func TestProfileImageUnknownVariantFallsBack(t *testing.T) {
	body, contentType := newTestRenderer(t).ProfileImage(context.Background(), testUser(), 4, "platinum", true)

	assert.Equal(t, ContentTypeSVG, contentType)
	assert.Contains(t, string(body), "DisTrack Profile")
}

func TestProfileImageEmbedsAvatar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("fake-avatar"))
	}))
	defer srv.Close()

	user := testUser()
	user.AvatarURL = srv.URL

	body, contentType := newTestRenderer(t).ProfileImage(context.Background(), user, 4, "paid", true)

	require.Equal(t, ContentTypeSVG, contentType)
	assert.Contains(t, string(body), "data:image/png;base64,")
	assert.Contains(t, string(body), "#4")
	assert.NotContains(t, string(body), TokenAvatarHref)
}

func TestProfileImageAvatarFailureUsesTransparentFallback(t *testing.T) {
	user := testUser()
	user.AvatarURL = "http://127.0.0.1:1/nope"

	body, contentType := newTestRenderer(t).ProfileImage(context.Background(), user, 4, "paid", true)

	require.Equal(t, ContentTypeSVG, contentType)
	assert.Contains(t, string(body), FallbackAvatarDataURI)
}

func TestFallbackImage(t *testing.T) {
	r := newTestRenderer(t)

	body, contentType := r.FallbackImage(false)
	assert.Equal(t, ContentTypePNG, contentType)
	assert.True(t, bytes.HasPrefix(body, pngMagic))

	body, contentType = r.FallbackImage(true)
	assert.Equal(t, ContentTypeSVG, contentType)
	assert.Contains(t, string(body), "DisTrack Profile")
}
