package domain

import "time"

// LanguageKeys is the canonical set of tracked languages. The slice order is
// the schema declaration order and doubles as the tie-break order when two
// languages have the same accumulated time.
var LanguageKeys = []string{
	"javascript", "html", "css", "python", "c", "cpp", "csharp", "dart",
	"go", "json", "kotlin", "matlab", "perl", "php", "r", "ruby", "rust",
	"scala", "sql", "swift", "typescript", "markdown", "properties",
	"yaml", "xml", "other",
}

// MaxBioLength bounds the free-text biography field.
const MaxBioLength = 500

// User is a stored coding-activity profile record.
type User struct {
	UserID          string            `json:"userId"`
	Username        string            `json:"username"`
	DisplayName     string            `json:"displayName,omitempty"`
	AvatarURL       string            `json:"avatarUrl,omitempty"`
	TotalCodingTime int64             `json:"totalCodingTime"`
	CurrentStreak   int               `json:"currentStreak"`
	LongestStreak   int               `json:"longestStreak"`
	LastSessionDate *time.Time        `json:"lastSessionDate"`
	Languages       map[string]int64  `json:"languages"`
	IsPublic        bool              `json:"isPublic"`
	Timezone        string            `json:"timezone"`
	Bio             string            `json:"bio"`
	Socials         map[string]string `json:"socials"`
	LinkedAt        *time.Time        `json:"linkedAt"`
	LastLinkedAt    *time.Time        `json:"lastLinkedAt"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`

	Archived   bool       `json:"-"`
	ArchivedAt *time.Time `json:"-"`
}

// Handle returns the public-facing name for the user: display name when set,
// otherwise the username, otherwise a generic label.
func (u *User) Handle() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Username != "" {
		return u.Username
	}
	return "User"
}

// SessionEvent is a single recorded coding session for a user.
type SessionEvent struct {
	EventID         string    `json:"event_id,omitempty"`
	UserID          string    `json:"user_id"`
	Language        string    `json:"language"`
	DurationSeconds int64     `json:"duration_seconds"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NormalizeLanguage maps an arbitrary language label onto the canonical key
// set, folding unknown labels into the catch-all bucket.
func NormalizeLanguage(lang string) string {
	for _, key := range LanguageKeys {
		if key == lang {
			return lang
		}
	}
	return "other"
}

// LeaderboardEntry is a single row of the coding-time leaderboard.
type LeaderboardEntry struct {
	Rank         int64  `json:"rank"`
	UserID       string `json:"user_id"`
	Username     string `json:"username,omitempty"`
	TotalSeconds int64  `json:"total_seconds"`
}
