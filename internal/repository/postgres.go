package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/cf-daily-bot/internal/model"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps bot state in a Postgres database.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) init() error {
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS users (
            user_id BIGINT PRIMARY KEY,
            handle TEXT,
            display_name TEXT,
            score INTEGER,
            last_completion TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS guilds (
            chat_id BIGINT PRIMARY KEY,
            channel_id BIGINT
        )`,
		`CREATE TABLE IF NOT EXISTS daily_challenges (
            date TEXT,
            tier INTEGER,
            contest_id INTEGER,
            idx TEXT,
            name TEXT,
            PRIMARY KEY (date, tier)
        )`,
		`CREATE TABLE IF NOT EXISTS app_state (
            key TEXT PRIMARY KEY,
            data TEXT
        )`,
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) GetUser(ctx context.Context, userID int64) (*model.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT user_id, handle, display_name, score, last_completion FROM users WHERE user_id=$1`, userID)
	var u model.UserProfile
	if err := row.Scan(&u.UserID, &u.Handle, &u.DisplayName, &u.Score, &u.LastCompletion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) SaveUser(ctx context.Context, u *model.UserProfile) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO users (user_id, handle, display_name, score, last_completion)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (user_id) DO UPDATE SET
            handle=EXCLUDED.handle,
            display_name=EXCLUDED.display_name,
            score=EXCLUDED.score,
            last_completion=EXCLUDED.last_completion
    `, u.UserID, u.Handle, u.DisplayName, u.Score, u.LastCompletion)
	return err
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]*model.UserProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, handle, display_name, score, last_completion FROM users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []*model.UserProfile
	for rows.Next() {
		var u model.UserProfile
		if err := rows.Scan(&u.UserID, &u.Handle, &u.DisplayName, &u.Score, &u.LastCompletion); err != nil {
			return nil, err
		}
		result = append(result, &u)
	}
	return result, rows.Err()
}

func (s *PostgresStore) GetGuild(ctx context.Context, chatID int64) (*model.GuildSettings, error) {
	row := s.db.QueryRowContext(ctx, `SELECT chat_id, channel_id FROM guilds WHERE chat_id=$1`, chatID)
	var g model.GuildSettings
	if err := row.Scan(&g.ChatID, &g.ChannelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (s *PostgresStore) SaveGuild(ctx context.Context, g *model.GuildSettings) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO guilds (chat_id, channel_id) VALUES ($1,$2)
        ON CONFLICT (chat_id) DO UPDATE SET channel_id=EXCLUDED.channel_id
    `, g.ChatID, g.ChannelID)
	return err
}

func (s *PostgresStore) ListGuilds(ctx context.Context) ([]*model.GuildSettings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id, channel_id FROM guilds`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []*model.GuildSettings
	for rows.Next() {
		var g model.GuildSettings
		if err := rows.Scan(&g.ChatID, &g.ChannelID); err != nil {
			return nil, err
		}
		result = append(result, &g)
	}
	return result, rows.Err()
}

func (s *PostgresStore) GetChallenge(ctx context.Context, date string, tier int) (*model.DailyChallenge, error) {
	row := s.db.QueryRowContext(ctx, `SELECT date, tier, contest_id, idx, name FROM daily_challenges WHERE date=$1 AND tier=$2`, date, tier)
	var c model.DailyChallenge
	if err := row.Scan(&c.Date, &c.Tier, &c.ContestID, &c.Index, &c.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) ListChallenges(ctx context.Context, date string) ([]*model.DailyChallenge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, tier, contest_id, idx, name FROM daily_challenges WHERE date=$1 ORDER BY tier`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []*model.DailyChallenge
	for rows.Next() {
		var c model.DailyChallenge
		if err := rows.Scan(&c.Date, &c.Tier, &c.ContestID, &c.Index, &c.Name); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

// SaveChallenge keeps the first record written for a (date, tier) pair.
func (s *PostgresStore) SaveChallenge(ctx context.Context, c *model.DailyChallenge) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO daily_challenges (date, tier, contest_id, idx, name)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (date, tier) DO NOTHING
    `, c.Date, c.Tier, c.ContestID, c.Index, c.Name)
	return err
}

func (s *PostgresStore) LastChallengeDate(ctx context.Context) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM app_state WHERE key=$1`, lastChallengeDateKey)
	var date string
	if err := row.Scan(&date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return date, nil
}

func (s *PostgresStore) SetLastChallengeDate(ctx context.Context, date string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO app_state (key, data) VALUES ($1,$2)
        ON CONFLICT (key) DO UPDATE SET data=EXCLUDED.data
    `, lastChallengeDateKey, date)
	return err
}
