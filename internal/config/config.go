package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration loaded from the environment.
type Config struct {
	TelegramToken string
	DBConnString  string
	StatePath     string

	Timezone      *time.Location
	ChallengeHour int
	ChallengeMin  int

	Tiers        []int
	MinContestID int

	RequestInterval      time.Duration
	RetryBackoff         time.Duration
	CatalogFetchAttempts int

	RegistrationWindow   time.Duration
	RegistrationLookback int
	CompletionLookback   int
	AllowReregister      bool
}

// DefaultTiers is the ascending rating ladder a daily challenge covers.
var DefaultTiers = []int{800, 1000, 1200, 1400, 1600, 1800, 2000, 2200, 2400, 2600, 2800, 3000, 3200, 3400}

// FromEnv loads configuration from environment variables. TELEGRAM_TOKEN is
// required. DATABASE_URL selects the Postgres store; when unset, state lives
// in the JSON file named by STATE_FILE.
func FromEnv() (*Config, error) {
	c := &Config{
		TelegramToken:        os.Getenv("TELEGRAM_TOKEN"),
		DBConnString:         os.Getenv("DATABASE_URL"),
		StatePath:            os.Getenv("STATE_FILE"),
		Tiers:                DefaultTiers,
		MinContestID:         1000,
		RequestInterval:      2 * time.Second,
		RetryBackoff:         60 * time.Second,
		CatalogFetchAttempts: 5,
		RegistrationWindow:   60 * time.Second,
		RegistrationLookback: 10,
		CompletionLookback:   30,
		AllowReregister:      true,
	}
	if c.TelegramToken == "" {
		return nil, errors.New("TELEGRAM_TOKEN is not set")
	}
	if c.StatePath == "" {
		c.StatePath = "botstate.json"
	}

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = "Asia/Singapore"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	c.Timezone = loc

	challengeTime := os.Getenv("CHALLENGE_TIME")
	if challengeTime == "" {
		challengeTime = "20:35"
	}
	if c.ChallengeHour, c.ChallengeMin, err = parseClock(challengeTime); err != nil {
		return nil, fmt.Errorf("CHALLENGE_TIME: %w", err)
	}

	if v := os.Getenv("TIERS"); v != "" {
		if c.Tiers, err = parseTiers(v); err != nil {
			return nil, fmt.Errorf("TIERS: %w", err)
		}
	}
	if v := os.Getenv("MIN_CONTEST_ID"); v != "" {
		if c.MinContestID, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("MIN_CONTEST_ID: %w", err)
		}
	}
	if err := c.loadDurations(); err != nil {
		return nil, err
	}
	for _, n := range []struct {
		name string
		dst  *int
	}{
		{"CATALOG_FETCH_ATTEMPTS", &c.CatalogFetchAttempts},
		{"REGISTRATION_LOOKBACK", &c.RegistrationLookback},
		{"COMPLETION_LOOKBACK", &c.CompletionLookback},
	} {
		v := os.Getenv(n.name)
		if v == "" {
			continue
		}
		if *n.dst, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("%s: %w", n.name, err)
		}
	}
	if v := os.Getenv("ALLOW_REREGISTER"); v != "" {
		if c.AllowReregister, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("ALLOW_REREGISTER: %w", err)
		}
	}
	return c, nil
}

func (c *Config) loadDurations() error {
	for _, d := range []struct {
		name string
		dst  *time.Duration
	}{
		{"REQUEST_INTERVAL", &c.RequestInterval},
		{"RETRY_BACKOFF", &c.RetryBackoff},
		{"REGISTRATION_WINDOW", &c.RegistrationWindow},
	} {
		v := os.Getenv(d.name)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}
	return nil
}

// HasTier reports whether rating is one of the configured tiers.
func (c *Config) HasTier(rating int) bool {
	for _, t := range c.Tiers {
		if t == rating {
			return true
		}
	}
	return false
}

func parseClock(s string) (hour, min int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	if hour, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, err
	}
	if min, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("out of range: %q", s)
	}
	return hour, min, nil
}

func parseTiers(s string) ([]int, error) {
	fields := strings.Split(s, ",")
	tiers := make([]int, 0, len(fields))
	for _, f := range fields {
		t, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	if len(tiers) == 0 {
		return nil, errors.New("empty tier list")
	}
	return tiers, nil
}
