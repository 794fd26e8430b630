package repository

import (
	"context"
	"errors"

	"github.com/example/cf-daily-bot/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// UserRepository abstracts persistence of user profiles.
type UserRepository interface {
	GetUser(ctx context.Context, userID int64) (*model.UserProfile, error)
	SaveUser(ctx context.Context, u *model.UserProfile) error
	ListUsers(ctx context.Context) ([]*model.UserProfile, error)
}

// GuildRepository abstracts persistence of per-chat settings.
type GuildRepository interface {
	GetGuild(ctx context.Context, chatID int64) (*model.GuildSettings, error)
	SaveGuild(ctx context.Context, g *model.GuildSettings) error
	ListGuilds(ctx context.Context) ([]*model.GuildSettings, error)
}

// ChallengeRepository abstracts the daily challenge records and the
// last-challenge-date fencepost. SaveChallenge keeps the first write for a
// (date, tier) pair; later writes for the same pair are ignored, so a pair
// can never hold two different problems.
type ChallengeRepository interface {
	GetChallenge(ctx context.Context, date string, tier int) (*model.DailyChallenge, error)
	ListChallenges(ctx context.Context, date string) ([]*model.DailyChallenge, error)
	SaveChallenge(ctx context.Context, c *model.DailyChallenge) error
	LastChallengeDate(ctx context.Context) (string, error)
	SetLastChallengeDate(ctx context.Context, date string) error
}

// Store bundles the three repositories; both backends implement it.
type Store interface {
	UserRepository
	GuildRepository
	ChallengeRepository
}
