package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/cf-daily-bot/internal/config"
	"github.com/example/cf-daily-bot/internal/model"
	"github.com/example/cf-daily-bot/internal/repository"
)

const dateLayout = "2006-01-02"

// ChallengeService drives the daily challenge state machine. The stored
// last-challenge-date is the single source of truth for idempotence: the
// due-check may run any number of times per day and writes at most one
// record per tier per date.
type ChallengeService struct {
	repo    repository.ChallengeRepository
	catalog *CatalogService
	cfg     *config.Config
	log     *zap.SugaredLogger
}

func NewChallengeService(repo repository.ChallengeRepository, catalog *CatalogService, cfg *config.Config, log *zap.SugaredLogger) *ChallengeService {
	return &ChallengeService{repo: repo, catalog: catalog, cfg: cfg, log: log}
}

// DueDate is the calendar date in the configured zone.
func (s *ChallengeService) DueDate(now time.Time) string {
	return now.In(s.cfg.Timezone).Format(dateLayout)
}

// RunIfDue generates, persists and returns today's challenge set if the day
// is still due. Returns ran=false when the date has already run.
//
// Records for the date are written before the last-challenge-date advances.
// A crash in between leaves the day due; on re-entry existing records are
// reused and only missing tiers are generated, so a (date, tier) pair never
// ends up with two different problems.
func (s *ChallengeService) RunIfDue(ctx context.Context, now time.Time) (recs []*model.DailyChallenge, ran bool, err error) {
	today := s.DueDate(now)
	last, err := s.repo.LastChallengeDate(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}
	// Absent app state means no challenge has ever run: the day is due.
	if err == nil && today <= last {
		return nil, false, nil
	}

	existing, err := s.repo.ListChallenges(ctx, today)
	if err != nil {
		return nil, false, err
	}
	have := map[int]*model.DailyChallenge{}
	for _, c := range existing {
		have[c.Tier] = c
	}

	missing := 0
	for _, tier := range s.cfg.Tiers {
		if _, ok := have[tier]; !ok {
			missing++
		}
	}
	if missing > 0 {
		set, err := s.catalog.ChallengeSet(ctx)
		if err != nil {
			return nil, false, err
		}
		for _, tier := range s.cfg.Tiers {
			if _, ok := have[tier]; ok {
				continue
			}
			p := set[tier]
			rec := &model.DailyChallenge{
				Date:      today,
				Tier:      tier,
				ContestID: p.ContestID,
				Index:     p.Index,
				Name:      p.Name,
			}
			if err := s.repo.SaveChallenge(ctx, rec); err != nil {
				return nil, false, err
			}
			have[tier] = rec
		}
	} else if len(existing) > 0 {
		s.log.Infow("reusing challenge records from interrupted run", "date", today)
	}

	// All per-tier records are durable; only now may the fencepost move.
	if err := s.repo.SetLastChallengeDate(ctx, today); err != nil {
		return nil, false, err
	}

	for _, tier := range s.cfg.Tiers {
		recs = append(recs, have[tier])
	}
	s.log.Infow("daily challenge generated", "date", today, "tiers", len(recs))
	return recs, true, nil
}

// TodaysProblem returns the recorded challenge for (today, tier), or
// repository.ErrNotFound when the day has no record at that tier.
func (s *ChallengeService) TodaysProblem(ctx context.Context, now time.Time, tier int) (*model.DailyChallenge, error) {
	return s.repo.GetChallenge(ctx, s.DueDate(now), tier)
}

// TodaysChallenges lists all recorded challenges for today.
func (s *ChallengeService) TodaysChallenges(ctx context.Context, now time.Time) ([]*model.DailyChallenge, error) {
	return s.repo.ListChallenges(ctx, s.DueDate(now))
}
