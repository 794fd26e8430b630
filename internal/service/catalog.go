package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/example/cf-daily-bot/internal/config"
	"github.com/example/cf-daily-bot/pkg/codeforces"
)

// CFClient describes the part of the Codeforces client the services use.
type CFClient interface {
	Problems(ctx context.Context) ([]codeforces.Problem, error)
	UserStatus(ctx context.Context, handle string, count int) ([]codeforces.Submission, error)
	UserInfo(ctx context.Context, handle string) (*codeforces.User, error)
}

// TierSupplyError means a configured tier had no eligible problems in the
// catalog. This is a configuration fault, never silently skipped.
type TierSupplyError struct {
	Tier int
}

func (e *TierSupplyError) Error() string {
	return fmt.Sprintf("no eligible problems at tier %d", e.Tier)
}

// CatalogService fetches the problemset and picks challenge problems.
type CatalogService struct {
	cf  CFClient
	cfg *config.Config
	log *zap.SugaredLogger
}

func NewCatalogService(cf CFClient, cfg *config.Config, log *zap.SugaredLogger) *CatalogService {
	return &CatalogService{cf: cf, cfg: cfg, log: log}
}

// fetchProblems bulk-fetches the catalog, retrying with backoff on any
// remote failure. Attempts are bounded by CATALOG_FETCH_ATTEMPTS; zero
// means retry until the context is cancelled.
func (s *CatalogService) fetchProblems(ctx context.Context) ([]codeforces.Problem, error) {
	max := s.cfg.CatalogFetchAttempts
	for attempt := 1; ; attempt++ {
		problems, err := s.cf.Problems(ctx)
		if err == nil {
			return problems, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		s.log.Warnw("catalog fetch failed", "attempt", attempt, "err", err)
		if max > 0 && attempt >= max {
			return nil, fmt.Errorf("catalog fetch: giving up after %d attempts: %w", attempt, err)
		}
		t := time.NewTimer(s.cfg.RetryBackoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// ChallengeSet picks one problem per configured tier. Eligible problems
// carry both a contest id and a rating, with the contest id strictly above
// the recency threshold.
func (s *CatalogService) ChallengeSet(ctx context.Context) (map[int]codeforces.Problem, error) {
	problems, err := s.fetchProblems(ctx)
	if err != nil {
		return nil, err
	}
	buckets := map[int][]codeforces.Problem{}
	for _, p := range problems {
		if p.ContestID == 0 || p.Rating == 0 {
			continue
		}
		if p.ContestID <= s.cfg.MinContestID {
			continue
		}
		buckets[p.Rating] = append(buckets[p.Rating], p)
	}
	set := make(map[int]codeforces.Problem, len(s.cfg.Tiers))
	for _, tier := range s.cfg.Tiers {
		bucket := buckets[tier]
		if len(bucket) == 0 {
			return nil, &TierSupplyError{Tier: tier}
		}
		set[tier] = bucket[rand.Intn(len(bucket))]
	}
	return set, nil
}

// RandomProblem picks any catalog problem with a known contest id. Used as
// the registration handshake target, so no rating or recency filter applies.
func (s *CatalogService) RandomProblem(ctx context.Context) (codeforces.Problem, error) {
	problems, err := s.cf.Problems(ctx)
	if err != nil {
		return codeforces.Problem{}, err
	}
	eligible := problems[:0:0]
	for _, p := range problems {
		if p.ContestID != 0 {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return codeforces.Problem{}, errors.New("catalog has no problems with a contest id")
	}
	return eligible[rand.Intn(len(eligible))], nil
}
