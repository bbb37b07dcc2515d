package render

import (
	"encoding/xml"
	"image"
	"image/color"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// textSpan is one <text> element lifted out of a document. x/y is the SVG
// baseline point.
type textSpan struct {
	x, y   float64
	size   float64
	bold   bool
	anchor string
	fill   color.Color
	text   string
}

var fontCache struct {
	once    sync.Once
	regular *opentype.Font
	bold    *opentype.Font
	err     error
}

func loadFonts() error {
	fontCache.once.Do(func() {
		fontCache.regular, fontCache.err = opentype.Parse(goregular.TTF)
		if fontCache.err != nil {
			return
		}
		fontCache.bold, fontCache.err = opentype.Parse(gobold.TTF)
	})
	return fontCache.err
}

// drawTextSpans renders every <text> element of doc onto rgba. The shape
// rasterizer cannot process text elements and drops them, so this is the
// text half of the raster pass. Individual spans that cannot be faced are
// skipped rather than failing the whole image.
func drawTextSpans(rgba *image.RGBA, doc string) error {
	if err := loadFonts(); err != nil {
		return err
	}

	for _, span := range parseTextSpans(doc) {
		if span.text == "" || span.fill == nil {
			continue
		}
		src := fontCache.regular
		if span.bold {
			src = fontCache.bold
		}
		face, err := opentype.NewFace(src, &opentype.FaceOptions{
			Size:    span.size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			continue
		}

		drawer := &font.Drawer{
			Dst:  rgba,
			Src:  image.NewUniform(span.fill),
			Face: face,
		}
		x := span.x
		if span.anchor == "middle" {
			x -= float64(drawer.MeasureString(span.text)) / 64 / 2
		}
		drawer.Dot = fixed.Point26_6{
			X: fixed.Int26_6(x * 64),
			Y: fixed.Int26_6(span.y * 64),
		}
		drawer.DrawString(span.text)
		face.Close()
	}
	return nil
}

// parseTextSpans extracts the <text> elements of an SVG document. The
// templates use flat text elements (no tspan nesting), with styling either
// as presentation attributes or a style attribute. Parse errors end the
// scan with whatever was collected.
func parseTextSpans(doc string) []textSpan {
	decoder := xml.NewDecoder(strings.NewReader(doc))
	var spans []textSpan
	var current *textSpan

	for {
		tok, err := decoder.Token()
		if err != nil {
			return spans
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "text" {
				continue
			}
			span := textSpan{size: 16, fill: color.Black}
			for _, attr := range t.Attr {
				applyTextAttr(&span, attr.Name.Local, attr.Value)
			}
			current = &span
		case xml.CharData:
			if current != nil {
				current.text += string(t)
			}
		case xml.EndElement:
			if t.Name.Local == "text" && current != nil {
				current.text = strings.TrimSpace(current.text)
				spans = append(spans, *current)
				current = nil
			}
		}
	}
}

func applyTextAttr(span *textSpan, name, value string) {
	switch name {
	case "x":
		span.x, _ = strconv.ParseFloat(value, 64)
	case "y":
		span.y, _ = strconv.ParseFloat(value, 64)
	case "font-size":
		if v, err := strconv.ParseFloat(strings.TrimSuffix(value, "px"), 64); err == nil && v > 0 {
			span.size = v
		}
	case "font-weight":
		span.bold = value == "bold"
	case "text-anchor":
		span.anchor = value
	case "fill":
		span.fill = parseFill(value)
	case "style":
		for _, decl := range strings.Split(value, ";") {
			k, v, ok := strings.Cut(decl, ":")
			if !ok || strings.TrimSpace(k) == "style" {
				continue
			}
			applyTextAttr(span, strings.TrimSpace(k), strings.TrimSpace(v))
		}
	}
}

// parseFill handles the color forms the templates use: hex, rgb()/rgba()
// and a few named colors. Unknown values and "none" yield nil (span is
// skipped).
func parseFill(s string) color.Color {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "white":
		return color.White
	case s == "black":
		return color.Black
	case s == "gold":
		return color.RGBA{R: 0xff, G: 0xd7, A: 0xff}
	case strings.HasPrefix(s, "#"):
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return nil
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return nil
		}
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseRGBParts(s[4:len(s)-1], false)
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		return parseRGBParts(s[5:len(s)-1], true)
	}
	return nil
}

func parseRGBParts(s string, hasAlpha bool) color.Color {
	parts := strings.Split(s, ",")
	want := 3
	if hasAlpha {
		want = 4
	}
	if len(parts) != want {
		return nil
	}
	channel := func(i int) uint8 {
		v, _ := strconv.Atoi(strings.TrimSpace(parts[i]))
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		return uint8(v)
	}
	alpha := uint8(0xff)
	if hasAlpha {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return nil
		}
		alpha = uint8(a * 0xff)
	}
	return color.NRGBA{R: channel(0), G: channel(1), B: channel(2), A: alpha}
}
