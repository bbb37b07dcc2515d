package render

import (
	"bytes"

	svg "github.com/ajstarks/svgo"
)

const (
	cardWidth  = 1200
	cardHeight = 630

	brandColor = "#667eea"
)

// BrandingDocument builds the minimal static card served whenever the
// dynamic pipeline cannot produce a profile image: fixed branding text, no
// user data, no placeholder tokens.
func BrandingDocument() string {
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(cardWidth, cardHeight)
	canvas.Rect(0, 0, cardWidth, cardHeight, "fill:"+brandColor)
	canvas.Text(cardWidth/2, cardHeight/2, "DisTrack Profile",
		"text-anchor:middle;font-family:Arial, sans-serif;font-size:48px;fill:white")
	canvas.End()
	return buf.String()
}
