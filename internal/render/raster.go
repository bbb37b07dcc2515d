package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Rasterize converts a complete SVG document into PNG bytes at the
// document's declared dimensions. Shapes go through the scanline
// rasterizer; text elements, which it cannot process, are drawn in a second
// pass from parsed spans. The SVG parser panics on some malformed inputs,
// so the conversion is hardened to fail closed with an error the caller can
// recover from.
func Rasterize(doc string) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("rasterizing document: %v", r)
		}
	}()

	icon, err := oksvg.ReadIconStream(strings.NewReader(doc), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	w := int(icon.ViewBox.W)
	h := int(icon.ViewBox.H)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("document has no usable dimensions: %dx%d", w, h)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	if err := drawTextSpans(rgba, doc); err != nil {
		return nil, fmt.Errorf("drawing text: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// solidPNG encodes a plain single-color image. Last line of defense for the
// image endpoint when even the static fallback document cannot be
// rasterized.
func solidPNG(w, h int, c color.RGBA) []byte {
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		// Encoding an in-memory RGBA cannot fail short of OOM.
		return nil
	}
	return buf.Bytes()
}
