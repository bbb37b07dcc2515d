// Package botdetect classifies User-Agent strings into link-preview
// crawlers versus humans.
package botdetect

import "strings"

// Patterns is the known crawler signature list: social-platform preview
// fetchers and search engine bots. Open enumeration; append to extend.
var Patterns = []string{
	"Discordbot",
	"Twitterbot",
	"facebookexternalhit",
	"LinkedInBot",
	"WhatsApp",
	"TelegramBot",
	"SkypeUriPreview",
	"GoogleBot",
	"bingbot",
	"YandexBot",
	"slackbot",
}

// IsBot reports whether the agent string matches a known crawler signature.
// Case-insensitive substring containment only; no match means human.
func IsBot(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, pattern := range Patterns {
		if strings.Contains(ua, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
