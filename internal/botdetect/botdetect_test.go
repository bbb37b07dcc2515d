package botdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBot(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      bool
	}{
		{"discord crawler", "Mozilla/5.0 (compatible; Discordbot/2.0; +https://discordapp.com)", true},
		{"twitter crawler", "Twitterbot/1.0", true},
		{"facebook crawler", "facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)", true},
		{"slack crawler", "Slackbot-LinkExpanding 1.0 (+https://api.slack.com/robots)", true},
		{"case insensitive match", "MOZILLA DISCORDBOT", true},
		{"whatsapp", "WhatsApp/2.23.20 A", true},
		{"desktop chrome", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36", false},
		{"curl", "curl/8.4.0", false},
		{"empty agent is human", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBot(tt.userAgent))
		})
	}
}

func TestIsBotTotality(t *testing.T) {
	// Arbitrary garbage never panics and always yields a verdict.
	for _, ua := range []string{"\x00\xff", "🤖", "bot", "   "} {
		_ = IsBot(ua)
	}
}
