package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrack-profile/internal/config"
	"github.com/distrack-profile/internal/domain"
)

type fakeRepo struct {
	users    map[string]*domain.User
	entries  []domain.LeaderboardEntry
	applied  []domain.SessionEvent
	recorded []domain.SessionEvent
	archived []string
	applyErr error
	newTotal int64
}

func (r *fakeRepo) FindByUserID(ctx context.Context, userID string) (*domain.User, error) {
	user, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeRepo) ListByCodingTime(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit > 0 && limit < len(r.entries) {
		return r.entries[:limit], nil
	}
	return r.entries, nil
}

func (r *fakeRepo) ApplySession(ctx context.Context, event domain.SessionEvent) (int64, error) {
	if r.applyErr != nil {
		return 0, r.applyErr
	}
	r.applied = append(r.applied, event)
	return r.newTotal, nil
}

func (r *fakeRepo) RecordSessionEvent(ctx context.Context, event domain.SessionEvent) error {
	r.recorded = append(r.recorded, event)
	return nil
}

func (r *fakeRepo) ArchiveUser(ctx context.Context, userID string) error {
	if _, ok := r.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	r.archived = append(r.archived, userID)
	return nil
}

func (r *fakeRepo) UserCount(ctx context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

type fakeRank struct {
	ranks     map[string]int64
	top       []domain.LeaderboardEntry
	totals    map[string]int64
	removed   []string
	rankErr   error
	topErr    error
	setTotErr error
	removeErr error
}

func (f *fakeRank) Rank(ctx context.Context, userID string) (int64, error) {
	if f.rankErr != nil {
		return 0, f.rankErr
	}
	rank, ok := f.ranks[userID]
	if !ok {
		return 0, domain.ErrUnranked
	}
	return rank, nil
}

func (f *fakeRank) SetTotal(ctx context.Context, userID string, totalSeconds int64) error {
	if f.setTotErr != nil {
		return f.setTotErr
	}
	if f.totals == nil {
		f.totals = make(map[string]int64)
	}
	f.totals[userID] = totalSeconds
	return nil
}

func (f *fakeRank) Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if f.topErr != nil {
		return nil, f.topErr
	}
	if n < len(f.top) {
		return f.top[:n], nil
	}
	return f.top, nil
}

func (f *fakeRank) Count(ctx context.Context) (int64, error) {
	return int64(len(f.top)), nil
}

func (f *fakeRank) Remove(ctx context.Context, userID string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, userID)
	return nil
}

type fakeBroadcaster struct {
	rankUpdates        []domain.LeaderboardEntry
	leaderboardUpdates int
}

func (b *fakeBroadcaster) BroadcastLeaderboard(entries []domain.LeaderboardEntry, total int64) {
	b.leaderboardUpdates++
}

func (b *fakeBroadcaster) BroadcastRank(userID string, entry domain.LeaderboardEntry) {
	b.rankUpdates = append(b.rankUpdates, entry)
}

func newTestService(repo *fakeRepo, rank *fakeRank) *ProfileService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProfileService(repo, rank, &config.ProfileConfig{
		TopLimit:    10,
		MaxTopLimit: 100,
	}, logger)
}

func TestGetUser(t *testing.T) {
	repo := &fakeRepo{users: map[string]*domain.User{
		"u1": {UserID: "u1", Username: "gopher"},
	}}
	svc := newTestService(repo, &fakeRank{})

	user, err := svc.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "gopher", user.Username)

	_, err = svc.GetUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRankOf(t *testing.T) {
	t.Run("fast path", func(t *testing.T) {
		svc := newTestService(&fakeRepo{}, &fakeRank{ranks: map[string]int64{"u1": 3}})
		rank, err := svc.RankOf(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), rank)
	})

	t.Run("unranked passes through", func(t *testing.T) {
		svc := newTestService(&fakeRepo{}, &fakeRank{})
		_, err := svc.RankOf(context.Background(), "u1")
		assert.ErrorIs(t, err, domain.ErrUnranked)
	})

	t.Run("index outage falls back to record store scan", func(t *testing.T) {
		repo := &fakeRepo{entries: []domain.LeaderboardEntry{
			{Rank: 1, UserID: "a"},
			{Rank: 2, UserID: "u1"},
		}}
		svc := newTestService(repo, &fakeRank{rankErr: errors.New("connection refused")})

		rank, err := svc.RankOf(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), rank)
	})

	t.Run("absent from both yields unranked", func(t *testing.T) {
		svc := newTestService(&fakeRepo{}, &fakeRank{rankErr: errors.New("connection refused")})
		_, err := svc.RankOf(context.Background(), "u1")
		assert.ErrorIs(t, err, domain.ErrUnranked)
	})
}

func TestGetProfileDegradesRankFailures(t *testing.T) {
	repo := &fakeRepo{users: map[string]*domain.User{"u1": {UserID: "u1"}}}
	svc := newTestService(repo, &fakeRank{rankErr: errors.New("connection refused")})

	user, rank, err := svc.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.UserID)
	assert.Equal(t, int64(0), rank)
}

func TestApplySession(t *testing.T) {
	repo := &fakeRepo{newTotal: 5400}
	rank := &fakeRank{ranks: map[string]int64{"u1": 1}}
	svc := newTestService(repo, rank)
	hub := &fakeBroadcaster{}
	svc.SetHub(hub)

	err := svc.ApplySession(context.Background(), domain.SessionEvent{
		UserID:          "u1",
		Language:        "COBOL-85",
		DurationSeconds: 1800,
	})
	require.NoError(t, err)

	require.Len(t, repo.applied, 1)
	assert.Equal(t, "other", repo.applied[0].Language, "unknown languages fold into the catch-all bucket")
	assert.False(t, repo.applied[0].OccurredAt.IsZero())
	assert.Len(t, repo.recorded, 1)
	assert.Equal(t, int64(5400), rank.totals["u1"])

	require.Len(t, hub.rankUpdates, 1)
	assert.Equal(t, int64(5400), hub.rankUpdates[0].TotalSeconds)
	assert.Equal(t, 1, hub.leaderboardUpdates)
}

func TestApplySessionValidation(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeRank{})

	err := svc.ApplySession(context.Background(), domain.SessionEvent{UserID: "", DurationSeconds: 10})
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	err = svc.ApplySession(context.Background(), domain.SessionEvent{UserID: "u1", DurationSeconds: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	err = svc.ApplySession(context.Background(), domain.SessionEvent{UserID: "u1", DurationSeconds: -30})
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestApplySessionIndexFailureIsNotFatal(t *testing.T) {
	repo := &fakeRepo{newTotal: 100}
	svc := newTestService(repo, &fakeRank{setTotErr: errors.New("connection refused")})

	err := svc.ApplySession(context.Background(), domain.SessionEvent{
		UserID:          "u1",
		Language:        "go",
		DurationSeconds: 100,
	})
	assert.NoError(t, err)
	assert.Len(t, repo.applied, 1)
}

func TestApplySessionBatchContinuesPastFailures(t *testing.T) {
	repo := &fakeRepo{newTotal: 100}
	svc := newTestService(repo, &fakeRank{})

	err := svc.ApplySessionBatch(context.Background(), []domain.SessionEvent{
		{UserID: "u1", Language: "go", DurationSeconds: 100},
		{UserID: "", DurationSeconds: 100}, // invalid, skipped
		{UserID: "u2", Language: "rust", DurationSeconds: 200},
	})
	require.NoError(t, err)
	assert.Len(t, repo.applied, 2)
}

func TestArchiveUser(t *testing.T) {
	repo := &fakeRepo{users: map[string]*domain.User{"u1": {UserID: "u1"}}}
	rank := &fakeRank{ranks: map[string]int64{"u1": 1}}
	svc := newTestService(repo, rank)

	require.NoError(t, svc.ArchiveUser(context.Background(), "u1"))
	assert.Equal(t, []string{"u1"}, repo.archived)
	assert.Equal(t, []string{"u1"}, rank.removed, "archived users leave the rank index")

	err := svc.ArchiveUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestArchiveUserIndexFailureIsNotFatal(t *testing.T) {
	repo := &fakeRepo{users: map[string]*domain.User{"u1": {UserID: "u1"}}}
	svc := newTestService(repo, &fakeRank{removeErr: errors.New("connection refused")})

	assert.NoError(t, svc.ArchiveUser(context.Background(), "u1"))
	assert.Equal(t, []string{"u1"}, repo.archived)
}

func TestCountUsers(t *testing.T) {
	repo := &fakeRepo{users: map[string]*domain.User{
		"u1": {UserID: "u1"},
		"u2": {UserID: "u2"},
	}}
	svc := newTestService(repo, &fakeRank{})

	count, err := svc.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestTopCoders(t *testing.T) {
	top := []domain.LeaderboardEntry{
		{Rank: 1, UserID: "a", TotalSeconds: 900},
		{Rank: 2, UserID: "b", TotalSeconds: 500},
	}

	t.Run("defaults limit", func(t *testing.T) {
		svc := newTestService(&fakeRepo{}, &fakeRank{top: top})
		entries, err := svc.TopCoders(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, top, entries)
	})

	t.Run("clamps to maximum", func(t *testing.T) {
		rank := &fakeRank{top: top}
		svc := newTestService(&fakeRepo{}, rank)
		_, err := svc.TopCoders(context.Background(), 10000)
		require.NoError(t, err)
	})

	t.Run("index outage falls back to record store", func(t *testing.T) {
		repo := &fakeRepo{entries: top}
		svc := newTestService(repo, &fakeRank{topErr: errors.New("connection refused")})
		entries, err := svc.TopCoders(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, top, entries)
	})
}
