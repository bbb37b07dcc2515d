package render

import "strings"

// xmlEscaper covers the five XML-significant characters. Every
// user-controlled value goes through it before entering a document;
// skipping it for any field is an injection vector into the markup.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeXML escapes a string for safe inclusion in SVG/XML text and
// attribute positions.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
