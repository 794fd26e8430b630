package app

import (
	"strings"
	"testing"
	"time"

	"github.com/example/cf-daily-bot/internal/model"
)

func TestNextAlarm(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before today's alarm",
			now:  time.Date(2026, 9, 1, 10, 0, 0, 0, loc),
			want: time.Date(2026, 9, 1, 20, 35, 0, 0, loc),
		},
		{
			name: "after today's alarm rolls to tomorrow",
			now:  time.Date(2026, 9, 1, 21, 0, 0, 0, loc),
			want: time.Date(2026, 9, 2, 20, 35, 0, 0, loc),
		},
		{
			name: "exactly at the alarm rolls to tomorrow",
			now:  time.Date(2026, 9, 1, 20, 35, 0, 0, loc),
			want: time.Date(2026, 9, 2, 20, 35, 0, 0, loc),
		},
		{
			name: "month boundary",
			now:  time.Date(2026, 9, 30, 23, 0, 0, 0, loc),
			want: time.Date(2026, 10, 1, 20, 35, 0, 0, loc),
		},
	}
	for _, c := range cases {
		if got := nextAlarm(c.now, 20, 35); !got.Equal(c.want) {
			t.Errorf("%s: nextAlarm = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestRenderChallenges(t *testing.T) {
	recs := []*model.DailyChallenge{
		{Date: "2026-09-01", Tier: 800, ContestID: 1500, Index: "A", Name: "Sum"},
		{Date: "2026-09-01", Tier: 1000, ContestID: 1501, Index: "B", Name: "Pairs"},
	}
	text := renderChallenges(recs)
	for _, want := range []string{
		"2026-09-01",
		"800:",
		"1000:",
		"https://codeforces.com/problemset/problem/1500/A",
		"Pairs",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("announcement missing %q:\n%s", want, text)
		}
	}
	if renderChallenges(nil) != "" {
		t.Error("empty set should render empty")
	}
}
