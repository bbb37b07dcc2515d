package handler

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/distrack-profile/internal/domain"
	"github.com/distrack-profile/internal/render"
)

// previewData feeds the crawler preview template. Values are plain strings;
// html/template handles the escaping.
type previewData struct {
	Handle       string
	Title        string
	Description  string
	ProfileURL   string
	ImageURL     string
	SiteName     string
	TotalHours   int64
	CurrentStrk  int
	LongestStrk  int
	TopLanguages string
	Bio          string
}

var previewTmpl = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="description" content="{{.Description}}">
<meta property="og:type" content="profile">
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
<meta property="og:image" content="{{.ImageURL}}">
<meta property="og:image:width" content="1200">
<meta property="og:image:height" content="630">
<meta property="og:url" content="{{.ProfileURL}}">
<meta property="og:site_name" content="{{.SiteName}}">
<meta name="twitter:card" content="summary_large_image">
<meta name="twitter:title" content="{{.Title}}">
<meta name="twitter:description" content="{{.Description}}">
<meta name="twitter:image" content="{{.ImageURL}}">
<meta name="theme-color" content="#667eea">
<style>
body{font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",sans-serif;background:#1a1a2e;color:#eee;margin:0;padding:40px;text-align:center}
.card{max-width:640px;margin:0 auto;background:#16213e;border-radius:12px;padding:32px}
.card img{width:100%;border-radius:8px}
.stats{display:flex;justify-content:space-around;margin-top:24px}
.stat b{display:block;font-size:1.6em;color:#667eea}
.bio{margin-top:16px;color:#aaa}
</style>
</head>
<body>
<div class="card">
<h1>{{.Handle}}&rsquo;s Coding Stats</h1>
<img src="{{.ImageURL}}" alt="Coding stats card for {{.Handle}}">
<div class="stats">
<div class="stat"><b>{{.TotalHours}}</b>hours coded</div>
<div class="stat"><b>{{.CurrentStrk}}</b>day streak</div>
<div class="stat"><b>{{.LongestStrk}}</b>best streak</div>
</div>
{{if .TopLanguages}}<p>Top languages: {{.TopLanguages}}</p>{{end}}
{{if .Bio}}<p class="bio">{{.Bio}}</p>{{end}}
</div>
<script>
if (!/bot/i.test(navigator.userAgent)) {
  setTimeout(function () { window.location.href = {{.ProfileURL}}; }, 3000);
}
</script>
</body>
</html>
`))

// servePreviewPage renders the social-preview HTML for link-unfurling
// crawlers. The page carries OpenGraph and Twitter Card metadata pointing at
// the dynamically rendered stats image.
func (h *Handler) servePreviewPage(w http.ResponseWriter, user *domain.User) {
	handle := user.Handle()
	hours := render.TotalHours(user.TotalCodingTime)
	topLangs := strings.Join(render.TopLanguages(user.Languages, 3), ", ")

	description := fmt.Sprintf("%d hours coded • %d day streak • %d day best streak",
		hours, user.CurrentStreak, user.LongestStreak)
	if topLangs != "" {
		description += " • Top: " + topLangs
	}

	data := previewData{
		Handle:       handle,
		Title:        handle + "'s Coding Stats | DisTrack",
		Description:  description,
		ProfileURL:   h.cfg.BaseURL + "/user/" + user.UserID,
		ImageURL:     h.cfg.BaseURL + "/embed-image/" + user.UserID,
		SiteName:     h.cfg.SiteName,
		TotalHours:   hours,
		CurrentStrk:  user.CurrentStreak,
		LongestStrk:  user.LongestStreak,
		TopLanguages: topLangs,
		Bio:          render.BioExcerpt(user.Bio),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := previewTmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render preview page", "error", err)
	}
}
