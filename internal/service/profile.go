package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/distrack-profile/internal/config"
	"github.com/distrack-profile/internal/domain"
)

// Repository is the persistence surface the profile service consumes.
type Repository interface {
	FindByUserID(ctx context.Context, userID string) (*domain.User, error)
	ListByCodingTime(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	ApplySession(ctx context.Context, event domain.SessionEvent) (int64, error)
	RecordSessionEvent(ctx context.Context, event domain.SessionEvent) error
	ArchiveUser(ctx context.Context, userID string) error
	UserCount(ctx context.Context) (int64, error)
}

// RankIndex is the fast-path rank lookup surface.
type RankIndex interface {
	Rank(ctx context.Context, userID string) (int64, error)
	SetTotal(ctx context.Context, userID string, totalSeconds int64) error
	Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
	Count(ctx context.Context) (int64, error)
	Remove(ctx context.Context, userID string) error
}

// Broadcaster pushes live updates to connected clients.
type Broadcaster interface {
	BroadcastLeaderboard(entries []domain.LeaderboardEntry, total int64)
	BroadcastRank(userID string, entry domain.LeaderboardEntry)
}

// ProfileService provides business logic for profile reads and session
// ingest.
type ProfileService struct {
	repo   Repository
	rank   RankIndex
	cfg    *config.ProfileConfig
	logger *slog.Logger
	hub    Broadcaster
}

// NewProfileService creates a new profile service
func NewProfileService(repo Repository, rank RankIndex, cfg *config.ProfileConfig, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		repo:   repo,
		rank:   rank,
		cfg:    cfg,
		logger: logger,
	}
}

// SetHub attaches the broadcaster for live updates
func (s *ProfileService) SetHub(hub Broadcaster) {
	s.hub = hub
}

// GetUser returns the stored record for a user id
func (s *ProfileService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return user, nil
}

// RankOf returns the user's 1-based position among all users by total
// coding time descending. The Redis index is the fast path; when it is
// unavailable the rank falls back to an ordered scan of the record store.
// Returns domain.ErrUnranked when the user appears in neither.
func (s *ProfileService) RankOf(ctx context.Context, userID string) (int64, error) {
	rank, err := s.rank.Rank(ctx, userID)
	if err == nil {
		return rank, nil
	}
	if errors.Is(err, domain.ErrUnranked) {
		return 0, domain.ErrUnranked
	}
	s.logger.Warn("rank index unavailable, scanning record store", "error", err)

	entries, scanErr := s.repo.ListByCodingTime(ctx, 0)
	if scanErr != nil {
		return 0, fmt.Errorf("rank fallback scan: %w", scanErr)
	}
	for _, entry := range entries {
		if entry.UserID == userID {
			return entry.Rank, nil
		}
	}
	return 0, domain.ErrUnranked
}

// GetProfile returns the record together with its freshly derived rank.
// Rank lookup failures degrade to unranked rather than failing the read.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*domain.User, int64, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	rank, err := s.RankOf(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrUnranked) {
		s.logger.Warn("rank lookup failed, serving unranked", "user_id", userID, "error", err)
		rank = 0
	}
	return user, rank, nil
}

// ApplySession folds a coding session into the user's record, refreshes the
// rank index and notifies live subscribers. Index and broadcast failures
// are logged, never surfaced: the record store is authoritative.
func (s *ProfileService) ApplySession(ctx context.Context, event domain.SessionEvent) error {
	if event.UserID == "" || event.DurationSeconds <= 0 {
		return domain.ErrInvalidSession
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	event.Language = domain.NormalizeLanguage(event.Language)

	newTotal, err := s.repo.ApplySession(ctx, event)
	if err != nil {
		return fmt.Errorf("applying session: %w", err)
	}

	if err := s.repo.RecordSessionEvent(ctx, event); err != nil {
		s.logger.Warn("failed to record session event", "error", err)
	}

	if err := s.rank.SetTotal(ctx, event.UserID, newTotal); err != nil {
		s.logger.Warn("failed to update rank index", "user_id", event.UserID, "error", err)
	}

	s.broadcastUpdate(ctx, event.UserID, newTotal)
	return nil
}

// ApplySessionBatch applies multiple sessions, continuing past individual
// failures.
func (s *ProfileService) ApplySessionBatch(ctx context.Context, events []domain.SessionEvent) error {
	for _, event := range events {
		if err := s.ApplySession(ctx, event); err != nil {
			s.logger.Error("failed to apply session in batch",
				"user_id", event.UserID,
				"error", err,
			)
		}
	}
	return nil
}

// ArchiveUser hides a profile: flags the record and drops it from the rank
// index. The record itself is kept so a re-link can restore it.
func (s *ProfileService) ArchiveUser(ctx context.Context, userID string) error {
	if err := s.repo.ArchiveUser(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("archiving user: %w", err)
	}

	if err := s.rank.Remove(ctx, userID); err != nil {
		s.logger.Warn("failed to drop archived user from rank index", "user_id", userID, "error", err)
	}
	return nil
}

// CountUsers returns the number of active profiles. Doubles as the
// readiness endpoint's record-store check.
func (s *ProfileService) CountUsers(ctx context.Context) (int64, error) {
	return s.repo.UserCount(ctx)
}

// TopCoders returns the top N users by coding time
func (s *ProfileService) TopCoders(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if n <= 0 {
		n = s.cfg.TopLimit
	}
	if n > s.cfg.MaxTopLimit {
		n = s.cfg.MaxTopLimit
	}

	entries, err := s.rank.Top(ctx, n)
	if err != nil {
		s.logger.Warn("rank index unavailable for top list, scanning record store", "error", err)
		return s.repo.ListByCodingTime(ctx, n)
	}
	return entries, nil
}

func (s *ProfileService) broadcastUpdate(ctx context.Context, userID string, newTotal int64) {
	if s.hub == nil {
		return
	}

	rank, err := s.rank.Rank(ctx, userID)
	if err != nil {
		rank = 0
	}
	s.hub.BroadcastRank(userID, domain.LeaderboardEntry{
		Rank:         rank,
		UserID:       userID,
		TotalSeconds: newTotal,
	})

	entries, err := s.rank.Top(ctx, s.cfg.TopLimit)
	if err != nil {
		s.logger.Debug("skipping leaderboard broadcast", "error", err)
		return
	}
	count, err := s.rank.Count(ctx)
	if err != nil {
		count = int64(len(entries))
	}
	s.hub.BroadcastLeaderboard(entries, count)
}
