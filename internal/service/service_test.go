package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/example/cf-daily-bot/internal/config"
	"github.com/example/cf-daily-bot/internal/model"
	"github.com/example/cf-daily-bot/internal/repository"
	"github.com/example/cf-daily-bot/pkg/codeforces"
)

// Shared fakes for the service tests.

type fakeCF struct {
	problems      []codeforces.Problem
	problemsErrs  []error // consumed one per Problems call before success
	problemsCalls int
	subs          map[string][]codeforces.Submission
	users         map[string]*codeforces.User
}

var _ CFClient = (*fakeCF)(nil)

func (f *fakeCF) Problems(ctx context.Context) ([]codeforces.Problem, error) {
	f.problemsCalls++
	if len(f.problemsErrs) > 0 {
		err := f.problemsErrs[0]
		f.problemsErrs = f.problemsErrs[1:]
		return nil, err
	}
	return f.problems, nil
}

func (f *fakeCF) UserStatus(ctx context.Context, handle string, count int) ([]codeforces.Submission, error) {
	subs := f.subs[handle]
	if len(subs) > count {
		subs = subs[:count]
	}
	return subs, nil
}

func (f *fakeCF) UserInfo(ctx context.Context, handle string) (*codeforces.User, error) {
	if u, ok := f.users[handle]; ok {
		return u, nil
	}
	return nil, &codeforces.APIError{Comment: "handles: User with handle " + handle + " not found"}
}

type memStore struct {
	users      map[int64]*model.UserProfile
	guilds     map[int64]*model.GuildSettings
	challenges map[string]*model.DailyChallenge
	lastDate   string
}

var _ repository.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		users:      map[int64]*model.UserProfile{},
		guilds:     map[int64]*model.GuildSettings{},
		challenges: map[string]*model.DailyChallenge{},
	}
}

func challengeKey(date string, tier int) string {
	return date + "#" + strconv.Itoa(tier)
}

func (m *memStore) GetUser(ctx context.Context, userID int64) (*model.UserProfile, error) {
	if u, ok := m.users[userID]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) SaveUser(ctx context.Context, u *model.UserProfile) error {
	copy := *u
	m.users[u.UserID] = &copy
	return nil
}

func (m *memStore) ListUsers(ctx context.Context) ([]*model.UserProfile, error) {
	out := []*model.UserProfile{}
	for _, u := range m.users {
		copy := *u
		out = append(out, &copy)
	}
	return out, nil
}

func (m *memStore) GetGuild(ctx context.Context, chatID int64) (*model.GuildSettings, error) {
	if g, ok := m.guilds[chatID]; ok {
		copy := *g
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) SaveGuild(ctx context.Context, g *model.GuildSettings) error {
	copy := *g
	m.guilds[g.ChatID] = &copy
	return nil
}

func (m *memStore) ListGuilds(ctx context.Context) ([]*model.GuildSettings, error) {
	out := []*model.GuildSettings{}
	for _, g := range m.guilds {
		copy := *g
		out = append(out, &copy)
	}
	return out, nil
}

func (m *memStore) GetChallenge(ctx context.Context, date string, tier int) (*model.DailyChallenge, error) {
	if c, ok := m.challenges[challengeKey(date, tier)]; ok {
		copy := *c
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) ListChallenges(ctx context.Context, date string) ([]*model.DailyChallenge, error) {
	out := []*model.DailyChallenge{}
	for _, c := range m.challenges {
		if c.Date == date {
			copy := *c
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (m *memStore) SaveChallenge(ctx context.Context, c *model.DailyChallenge) error {
	key := challengeKey(c.Date, c.Tier)
	if _, ok := m.challenges[key]; ok {
		return nil
	}
	copy := *c
	m.challenges[key] = &copy
	return nil
}

func (m *memStore) LastChallengeDate(ctx context.Context) (string, error) {
	if m.lastDate == "" {
		return "", repository.ErrNotFound
	}
	return m.lastDate, nil
}

func (m *memStore) SetLastChallengeDate(ctx context.Context, date string) error {
	m.lastDate = date
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Timezone:             time.UTC,
		ChallengeHour:        20,
		ChallengeMin:         35,
		Tiers:                []int{800, 1000},
		MinContestID:         1000,
		RequestInterval:      0,
		RetryBackoff:         time.Millisecond,
		CatalogFetchAttempts: 3,
		RegistrationWindow:   time.Millisecond,
		RegistrationLookback: 10,
		CompletionLookback:   30,
		AllowReregister:      true,
	}
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
