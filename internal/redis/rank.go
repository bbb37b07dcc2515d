package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/distrack-profile/internal/config"
	"github.com/distrack-profile/internal/domain"
)

// rankKey is the sorted set ordering all users by total coding seconds.
const rankKey = "leaderboard:coding:alltime"

// RankService provides the Redis-backed coding-time rank index and the
// rendered profile image cache.
type RankService struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRankService creates a new Redis rank service
func NewRankService(cfg *config.RedisConfig, logger *slog.Logger) (*RankService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RankService{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *RankService) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client
func (s *RankService) Client() *redis.Client {
	return s.client
}

// SetTotal stores a user's absolute total coding seconds in the rank index
func (s *RankService) SetTotal(ctx context.Context, userID string, totalSeconds int64) error {
	err := s.client.ZAdd(ctx, rankKey, redis.Z{
		Score:  float64(totalSeconds),
		Member: userID,
	}).Err()
	if err != nil {
		return fmt.Errorf("setting total: %w", err)
	}
	return nil
}

// Rank returns a user's 1-based rank by total coding time descending.
// Returns domain.ErrUnranked when the user is not in the index.
func (s *RankService) Rank(ctx context.Context, userID string) (int64, error) {
	rank, err := s.client.ZRevRank(ctx, rankKey, userID).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, domain.ErrUnranked
		}
		return 0, fmt.Errorf("getting rank: %w", err)
	}
	return rank + 1, nil
}

// Top returns the top N users by total coding time
func (s *RankService) Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	results, err := s.client.ZRevRangeWithScores(ctx, rankKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, len(results))
	for i, result := range results {
		entries[i] = domain.LeaderboardEntry{
			Rank:         int64(i + 1),
			UserID:       result.Member.(string),
			TotalSeconds: int64(result.Score),
		}
	}
	return entries, nil
}

// Count returns the number of users in the rank index
func (s *RankService) Count(ctx context.Context) (int64, error) {
	count, err := s.client.ZCard(ctx, rankKey).Result()
	if err != nil {
		return 0, fmt.Errorf("getting count: %w", err)
	}
	return count, nil
}

// Remove drops a user from the rank index (archival)
func (s *RankService) Remove(ctx context.Context, userID string) error {
	if err := s.client.ZRem(ctx, rankKey, userID).Err(); err != nil {
		return fmt.Errorf("removing user: %w", err)
	}
	return nil
}

// Rebuild replaces the rank index contents with the given totals using a
// single pipeline. Members absent from totals are cleared first so stale
// users do not linger.
func (s *RankService) Rebuild(ctx context.Context, totals map[string]int64) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, rankKey)
	for userID, total := range totals {
		pipe.ZAdd(ctx, rankKey, redis.Z{
			Score:  float64(total),
			Member: userID,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rebuilding rank index: %w", err)
	}
	return nil
}

// imageKey returns the cache key for a rendered profile image
func imageKey(userID, variant, format string) string {
	return fmt.Sprintf("profile:%s:image:%s:%s", userID, variant, format)
}

// GetImage returns a cached rendered profile image, or redis.Nil-mapped
// domain miss as (nil, nil).
func (s *RankService) GetImage(ctx context.Context, userID, variant, format string) ([]byte, error) {
	body, err := s.client.Get(ctx, imageKey(userID, variant, format)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("getting cached image: %w", err)
	}
	return body, nil
}

// SetImage caches a rendered profile image with a TTL
func (s *RankService) SetImage(ctx context.Context, userID, variant, format string, body []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, imageKey(userID, variant, format), body, ttl).Err(); err != nil {
		return fmt.Errorf("caching image: %w", err)
	}
	return nil
}
