package render

import "strings"

// Placeholder tokens recognized by the profile templates. The set is an
// open enumeration: adding a slot means adding a constant and a context
// entry, the substitution logic below does not change.
const (
	TokenDisplayName   = "{{DISPLAY_NAME}}"
	TokenUsername      = "{{USERNAME}}"
	TokenTotalHours    = "{{TOTAL_HOURS}}"
	TokenCurrentStreak = "{{CURRENT_STREAK}}"
	TokenLongestStreak = "{{LONGEST_STREAK}}"
	TokenTopLanguages  = "{{TOP_LANGUAGES}}"
	TokenLanguageCount = "{{LANGUAGE_COUNT}}"
	TokenRank          = "{{RANK}}"
	TokenAvatarHref    = "{{AVATAR_HREF}}"
	TokenProfileURL    = "{{PROFILE_URL}}"
	TokenFooter        = "{{FOOTER}}"
	TokenBio           = "{{BIO}}"
)

// Context maps placeholder tokens to their escaped replacement values.
type Context map[string]string

// tokenNeutralizer rewrites brace characters in replacement values to XML
// character references. They render identically but can no longer form token
// syntax, so a display name containing a literal "{{USERNAME}}" stays inert
// instead of being picked up as a slot.
var tokenNeutralizer = strings.NewReplacer("{", "&#123;", "}", "&#125;")

// Substitute replaces every literal occurrence of each context token in the
// document in a single left-to-right pass that never rescans replaced text.
// Tokens present in the document but absent from the context are left
// verbatim. Values are brace-neutralized first, so the output contains no
// new token syntax: the operation is order-independent and idempotent.
func Substitute(doc string, ctx Context) string {
	if len(ctx) == 0 {
		return doc
	}
	pairs := make([]string, 0, len(ctx)*2)
	for token, value := range ctx {
		pairs = append(pairs, token, tokenNeutralizer.Replace(value))
	}
	return strings.NewReplacer(pairs...).Replace(doc)
}
