package render

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/distrack-profile/internal/domain"
)

const (
	topLanguageCount = 3
	bioExcerptLimit  = 80

	// UnrankedLabel is rendered when the rank lookup yields no match.
	UnrankedLabel = "Unranked"
)

// TotalHours converts accumulated seconds into whole hours, clamping
// negative input to zero.
func TotalHours(totalSeconds int64) int64 {
	if totalSeconds < 0 {
		return 0
	}
	return totalSeconds / 3600
}

// TopLanguages returns up to n language names ordered by accumulated time
// descending. Ties keep the canonical declaration order, so the result is
// deterministic regardless of map iteration order. Zero-time entries are
// eligible like any other.
func TopLanguages(languages map[string]int64, n int) []string {
	keys := make([]string, 0, len(languages))
	for _, key := range domain.LanguageKeys {
		if _, ok := languages[key]; ok {
			keys = append(keys, key)
		}
	}
	// Keys outside the canonical set (schema evolution) go after it,
	// alphabetically so their tie order is still deterministic.
	var extra []string
	for key := range languages {
		if domain.NormalizeLanguage(key) == "other" && key != "other" {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	sort.SliceStable(keys, func(i, j int) bool {
		return languages[keys[i]] > languages[keys[j]]
	})

	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// BioExcerpt truncates a biography to the display budget, appending an
// ellipsis only when truncation occurred.
func BioExcerpt(bio string) string {
	if utf8.RuneCountInString(bio) <= bioExcerptLimit {
		return bio
	}
	runes := []rune(bio)
	return string(runes[:bioExcerptLimit]) + "…"
}

// RankLabel renders a 1-based rank, or the unranked sentinel for rank <= 0.
func RankLabel(rank int64) string {
	if rank <= 0 {
		return UnrankedLabel
	}
	return "#" + strconv.FormatInt(rank, 10)
}

// FormatFields derives the escaped render context from a profile record and
// its rank. Pure function, no I/O; the avatar slot is filled separately by
// the pipeline.
func FormatFields(user *domain.User, rank int64, profileURL, footer string) Context {
	ctx := Context{
		TokenDisplayName:   EscapeXML(user.Handle()),
		TokenUsername:      EscapeXML(user.Username),
		TokenTotalHours:    strconv.FormatInt(TotalHours(user.TotalCodingTime), 10),
		TokenCurrentStreak: strconv.Itoa(user.CurrentStreak),
		TokenLongestStreak: strconv.Itoa(user.LongestStreak),
		TokenTopLanguages:  EscapeXML(strings.Join(TopLanguages(user.Languages, topLanguageCount), " • ")),
		TokenLanguageCount: strconv.Itoa(len(user.Languages)),
		TokenRank:          EscapeXML(RankLabel(rank)),
		TokenProfileURL:    EscapeXML(profileURL),
		TokenFooter:        EscapeXML(footer),
		TokenBio:           EscapeXML(BioExcerpt(user.Bio)),
	}
	return ctx
}
