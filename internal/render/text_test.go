package render

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTextSpans(t *testing.T) {
	doc := `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100">
<rect width="100" height="100" fill="#000"/>
<text x="100" y="130" font-size="36" font-weight="bold" fill="white" text-anchor="middle">Hi &amp; bye</text>
<text x="5" y="9" style="text-anchor:middle;font-family:Arial, sans-serif;font-size:48px;fill:#667eea">Styled</text>
<text x="10" y="20" fill="rgba(255,255,255,0.8)">Faded</text>
</svg>`

	spans := parseTextSpans(doc)
	require.Len(t, spans, 3)

	assert.Equal(t, 100.0, spans[0].x)
	assert.Equal(t, 130.0, spans[0].y)
	assert.Equal(t, 36.0, spans[0].size)
	assert.True(t, spans[0].bold)
	assert.Equal(t, "middle", spans[0].anchor)
	assert.Equal(t, color.White, spans[0].fill)
	assert.Equal(t, "Hi & bye", spans[0].text)

	// Styling via a style attribute, as the programmatic documents emit.
	assert.Equal(t, 48.0, spans[1].size)
	assert.Equal(t, "middle", spans[1].anchor)
	assert.Equal(t, color.RGBA{R: 0x66, G: 0x7e, B: 0xea, A: 0xff}, spans[1].fill)
	assert.False(t, spans[1].bold)

	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 204}, spans[2].fill)
}

func TestParseTextSpansMalformedDocument(t *testing.T) {
	spans := parseTextSpans(`<svg><text x="1" y="2">ok</text><broken`)
	require.Len(t, spans, 1)
	assert.Equal(t, "ok", spans[0].text)
}

func TestParseFill(t *testing.T) {
	tests := []struct {
		in   string
		want color.Color
	}{
		{"white", color.White},
		{"black", color.Black},
		{"gold", color.RGBA{R: 0xff, G: 0xd7, A: 0xff}},
		{"#667eea", color.RGBA{R: 0x66, G: 0x7e, B: 0xea, A: 0xff}},
		{"#fff", color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
		{"rgb(1,2,3)", color.NRGBA{R: 1, G: 2, B: 3, A: 0xff}},
		{"rgba(255,215,0,0.35)", color.NRGBA{R: 255, G: 215, B: 0, A: 89}},
		{"none", nil},
		{"url(#bg)", nil},
		{"#nothex", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseFill(tt.in), tt.in)
	}
}
