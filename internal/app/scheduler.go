package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/cf-daily-bot/internal/model"
)

// scheduleChallenges runs the due-check once on start, catching up any day
// missed while the process was down, then fires at the configured wall-clock
// time each day. The alarm is recomputed per day from calendar time, so
// restarts never drift it.
func (a *App) scheduleChallenges(ctx context.Context) {
	a.runDueCheck(ctx)
	for {
		now := time.Now().In(a.cfg.Timezone)
		next := nextAlarm(now, a.cfg.ChallengeHour, a.cfg.ChallengeMin)
		t := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		a.runDueCheck(ctx)
	}
}

// nextAlarm is the next occurrence of hour:min strictly after now.
func nextAlarm(now time.Time, hour, min int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (a *App) runDueCheck(ctx context.Context) {
	recs, ran, err := a.challenges.RunIfDue(ctx, time.Now())
	if err != nil {
		a.log.Errorw("daily challenge run failed", "err", err)
		return
	}
	if !ran {
		a.log.Infow("challenge check", "due", false)
		return
	}
	a.broadcast(ctx, recs)
}

// broadcast announces the challenge set to every subscribed chat with a
// configured channel. Per-destination failures are logged and skipped; the
// challenge already happened once its records are persisted.
func (a *App) broadcast(ctx context.Context, recs []*model.DailyChallenge) {
	a.destMu.Lock()
	dest := make(map[int64]int64, len(a.destinations))
	for chat, channel := range a.destinations {
		dest[chat] = channel
	}
	a.destMu.Unlock()

	text := renderChallenges(recs)
	for chat, channel := range dest {
		if channel == 0 {
			continue
		}
		if err := a.tgClient.SendHTML(ctx, channel, text); err != nil {
			a.log.Warnw("broadcast failed", "chat", chat, "channel", channel, "err", err)
		}
	}
}

func renderChallenges(recs []*model.DailyChallenge) string {
	if len(recs) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Daily Challenge %s</b>\n", recs[0].Date)
	for _, r := range recs {
		fmt.Fprintf(&b, "%d: <a href=\"%s\">%s</a>\n", r.Tier, r.URL(), r.Name)
	}
	b.WriteString("Solve one and claim it with /complete &lt;tier&gt;.")
	return b.String()
}
