package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/example/cf-daily-bot/internal/model"
)

// FileStore keeps all bot state in a single JSON file.
type FileStore struct {
	path string
	mu   sync.Mutex
	data fileData
}

type fileData struct {
	Users      map[int64]*model.UserProfile     `json:"users"`
	Guilds     map[int64]*model.GuildSettings   `json:"guilds"`
	Challenges map[string]*model.DailyChallenge `json:"challenges"`
	AppState   map[string]string                `json:"app_state"`
}

const lastChallengeDateKey = "last_challenge_date"

// NewFileStore loads state from the given JSON file or starts empty if the
// file is missing.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = fileData{
		Users:      map[int64]*model.UserProfile{},
		Guilds:     map[int64]*model.GuildSettings{},
		Challenges: map[string]*model.DailyChallenge{},
		AppState:   map[string]string{},
	}
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer file.Close()
	return json.NewDecoder(file).Decode(&s.data)
}

func (s *FileStore) saveLocked() error {
	file, err := os.Create(s.path)
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(s.data)
}

func challengeKey(date string, tier int) string {
	return fmt.Sprintf("%s#%d", date, tier)
}

func (s *FileStore) GetUser(ctx context.Context, userID int64) (*model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.data.Users[userID]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, ErrNotFound
}

func (s *FileStore) SaveUser(ctx context.Context, u *model.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *u
	s.data.Users[u.UserID] = &copy
	return s.saveLocked()
}

func (s *FileStore) ListUsers(ctx context.Context) ([]*model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.UserProfile, 0, len(s.data.Users))
	for _, u := range s.data.Users {
		copy := *u
		out = append(out, &copy)
	}
	return out, nil
}

func (s *FileStore) GetGuild(ctx context.Context, chatID int64) (*model.GuildSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.data.Guilds[chatID]; ok {
		copy := *g
		return &copy, nil
	}
	return nil, ErrNotFound
}

func (s *FileStore) SaveGuild(ctx context.Context, g *model.GuildSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *g
	s.data.Guilds[g.ChatID] = &copy
	return s.saveLocked()
}

func (s *FileStore) ListGuilds(ctx context.Context) ([]*model.GuildSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.GuildSettings, 0, len(s.data.Guilds))
	for _, g := range s.data.Guilds {
		copy := *g
		out = append(out, &copy)
	}
	return out, nil
}

func (s *FileStore) GetChallenge(ctx context.Context, date string, tier int) (*model.DailyChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.data.Challenges[challengeKey(date, tier)]; ok {
		copy := *c
		return &copy, nil
	}
	return nil, ErrNotFound
}

func (s *FileStore) ListChallenges(ctx context.Context, date string) ([]*model.DailyChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.DailyChallenge{}
	for _, c := range s.data.Challenges {
		if c.Date == date {
			copy := *c
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out, nil
}

func (s *FileStore) SaveChallenge(ctx context.Context, c *model.DailyChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := challengeKey(c.Date, c.Tier)
	if _, ok := s.data.Challenges[key]; ok {
		return nil
	}
	copy := *c
	s.data.Challenges[key] = &copy
	return s.saveLocked()
}

func (s *FileStore) LastChallengeDate(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.data.AppState[lastChallengeDateKey]; ok {
		return d, nil
	}
	return "", ErrNotFound
}

func (s *FileStore) SetLastChallengeDate(ctx context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.AppState[lastChallengeDateKey] = date
	return s.saveLocked()
}
