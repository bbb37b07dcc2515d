package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/distrack-profile/internal/config"
	"github.com/distrack-profile/internal/domain"
)

// Repository provides PostgreSQL-based access to user records and session
// events.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(100) NOT NULL DEFAULT 'Anonymous',
			display_name VARCHAR(100),
			avatar_url TEXT,
			bio VARCHAR(500) NOT NULL DEFAULT '',
			timezone VARCHAR(64) NOT NULL DEFAULT 'GMT+1',
			is_public BOOLEAN NOT NULL DEFAULT TRUE,
			socials JSONB NOT NULL DEFAULT '{}',
			languages JSONB NOT NULL DEFAULT '{}',
			total_coding_time BIGINT NOT NULL DEFAULT 0,
			current_streak INT NOT NULL DEFAULT 0,
			longest_streak INT NOT NULL DEFAULT 0,
			last_session_date TIMESTAMPTZ,
			linked_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			last_linked_at TIMESTAMPTZ,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			archived_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS session_events (
			id BIGSERIAL PRIMARY KEY,
			event_id VARCHAR(64),
			user_id VARCHAR(64) NOT NULL,
			language VARCHAR(32) NOT NULL,
			duration_seconds BIGINT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_coding_time ON users(total_coding_time DESC) WHERE NOT archived`,
		`CREATE INDEX IF NOT EXISTS idx_session_events_user ON session_events(user_id, occurred_at DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

const userColumns = `user_id, username, display_name, avatar_url, bio, timezone, is_public,
		socials, languages, total_coding_time, current_streak, longest_streak,
		last_session_date, linked_at, last_linked_at, archived, archived_at,
		created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user         domain.User
		displayName  *string
		avatarURL    *string
		socialsJSON  []byte
		languageJSON []byte
	)
	err := row.Scan(
		&user.UserID,
		&user.Username,
		&displayName,
		&avatarURL,
		&user.Bio,
		&user.Timezone,
		&user.IsPublic,
		&socialsJSON,
		&languageJSON,
		&user.TotalCodingTime,
		&user.CurrentStreak,
		&user.LongestStreak,
		&user.LastSessionDate,
		&user.LinkedAt,
		&user.LastLinkedAt,
		&user.Archived,
		&user.ArchivedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if displayName != nil {
		user.DisplayName = *displayName
	}
	if avatarURL != nil {
		user.AvatarURL = *avatarURL
	}
	if err := json.Unmarshal(socialsJSON, &user.Socials); err != nil {
		return nil, fmt.Errorf("unmarshaling socials: %w", err)
	}
	if err := json.Unmarshal(languageJSON, &user.Languages); err != nil {
		return nil, fmt.Errorf("unmarshaling languages: %w", err)
	}
	return &user, nil
}

// FindByUserID retrieves a user record by its identifier
func (r *Repository) FindByUserID(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return user, nil
}

// ListByCodingTime returns all non-archived users ordered by total coding
// time descending. Used as the rank fallback scan and for index rebuilds.
func (r *Repository) ListByCodingTime(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	query := `
		SELECT user_id, username, total_coding_time
		FROM users
		WHERE NOT archived
		ORDER BY total_coding_time DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users by coding time: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	rank := int64(0)
	for rows.Next() {
		rank++
		entry := domain.LeaderboardEntry{Rank: rank}
		if err := rows.Scan(&entry.UserID, &entry.Username, &entry.TotalSeconds); err != nil {
			return nil, fmt.Errorf("scanning leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CodingTimeByUser returns total coding seconds for every non-archived
// user, keyed by user id. Feeds the rank index rebuild.
func (r *Repository) CodingTimeByUser(ctx context.Context) (map[string]int64, error) {
	query := `SELECT user_id, total_coding_time FROM users WHERE NOT archived`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("getting coding times: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var userID string
		var total int64
		if err := rows.Scan(&userID, &total); err != nil {
			return nil, fmt.Errorf("scanning coding time: %w", err)
		}
		totals[userID] = total
	}
	return totals, nil
}

// ApplySession folds a coding session into the user's record inside a
// transaction: total time, per-language seconds, streak counters and the
// last session date. The row is created with defaults when the user has not
// been seen before. Returns the new total coding time.
func (r *Repository) ApplySession(ctx context.Context, event domain.SessionEvent) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		total        int64
		current      int
		longest      int
		lastSession  *time.Time
		languageJSON []byte
	)
	err = tx.QueryRow(ctx, `
		SELECT total_coding_time, current_streak, longest_streak, last_session_date, languages
		FROM users WHERE user_id = $1 FOR UPDATE
	`, event.UserID).Scan(&total, &current, &longest, &lastSession, &languageJSON)
	switch {
	case err == pgx.ErrNoRows:
		if _, err := tx.Exec(ctx, `INSERT INTO users (user_id) VALUES ($1)`, event.UserID); err != nil {
			return 0, fmt.Errorf("creating user: %w", err)
		}
		languageJSON = []byte(`{}`)
	case err != nil:
		return 0, fmt.Errorf("locking user row: %w", err)
	}

	languages := make(map[string]int64)
	if err := json.Unmarshal(languageJSON, &languages); err != nil {
		return 0, fmt.Errorf("unmarshaling languages: %w", err)
	}
	languages[domain.NormalizeLanguage(event.Language)] += event.DurationSeconds

	total += event.DurationSeconds
	current, longest = domain.RollStreak(lastSession, event.OccurredAt, current, longest)

	updatedLanguages, err := json.Marshal(languages)
	if err != nil {
		return 0, fmt.Errorf("marshaling languages: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET total_coding_time = $2,
			current_streak = $3,
			longest_streak = $4,
			last_session_date = $5,
			languages = $6,
			updated_at = $7
		WHERE user_id = $1
	`, event.UserID, total, current, longest, event.OccurredAt, updatedLanguages, time.Now())
	if err != nil {
		return 0, fmt.Errorf("updating user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing session: %w", err)
	}
	return total, nil
}

// RecordSessionEvent appends a session event to the audit table
func (r *Repository) RecordSessionEvent(ctx context.Context, event domain.SessionEvent) error {
	query := `
		INSERT INTO session_events (event_id, user_id, language, duration_seconds, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		event.EventID,
		event.UserID,
		domain.NormalizeLanguage(event.Language),
		event.DurationSeconds,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("recording session event: %w", err)
	}
	return nil
}

// ArchiveUser flags a user record as archived and stamps the time. Archived
// records drop out of leaderboard scans but stay readable by id. Returns
// domain.ErrUserNotFound when no active record matches.
func (r *Repository) ArchiveUser(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET archived = TRUE, archived_at = $2, updated_at = $2
		WHERE user_id = $1 AND NOT archived
	`, userID, time.Now())
	if err != nil {
		return fmt.Errorf("archiving user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UserCount returns the number of non-archived users
func (r *Repository) UserCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE NOT archived`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}
