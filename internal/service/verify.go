package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/cf-daily-bot/internal/config"
	"github.com/example/cf-daily-bot/internal/model"
	"github.com/example/cf-daily-bot/internal/repository"
	"github.com/example/cf-daily-bot/pkg/codeforces"
)

// Precondition and verification failures. These are informational: no state
// changes and the user may retry.
var (
	ErrNotRegistered        = errors.New("no codeforces handle is registered")
	ErrAlreadyCompleted     = errors.New("already completed a challenge today")
	ErrNoChallenge          = errors.New("no challenge recorded for that tier today")
	ErrNoVerifySubmission   = errors.New("no compile-error submission for the verification problem")
	ErrNoAcceptedSubmission = errors.New("no accepted submission for the challenge problem")
	ErrReregisterDisabled   = errors.New("handle is already registered and re-registration is disabled")
)

// VerifyService runs the registration handshake and the completion check.
// Both correlate a handle's recent submission feed against one expected
// (contest, index, verdict) event. Verdicts compare as exact literals.
type VerifyService struct {
	users      repository.UserRepository
	challenges *ChallengeService
	catalog    *CatalogService
	cf         CFClient
	cfg        *config.Config
	log        *zap.SugaredLogger
}

func NewVerifyService(users repository.UserRepository, challenges *ChallengeService, catalog *CatalogService, cf CFClient, cfg *config.Config, log *zap.SugaredLogger) *VerifyService {
	return &VerifyService{users: users, challenges: challenges, catalog: catalog, cf: cf, cfg: cfg, log: log}
}

// BeginRegistration validates the claimed handle against user.info and picks
// the throwaway handshake problem the user must fail compilation on.
func (s *VerifyService) BeginRegistration(ctx context.Context, userID int64, handle string) (*codeforces.User, codeforces.Problem, error) {
	if !s.cfg.AllowReregister {
		if u, err := s.users.GetUser(ctx, userID); err == nil && u.Handle != "" {
			return nil, codeforces.Problem{}, ErrReregisterDisabled
		}
	}
	info, err := s.cf.UserInfo(ctx, handle)
	if err != nil {
		return nil, codeforces.Problem{}, err
	}
	problem, err := s.catalog.RandomProblem(ctx)
	if err != nil {
		return nil, codeforces.Problem{}, err
	}
	return info, problem, nil
}

// ConfirmRegistration scans the handle's recent submissions for a
// compilation error on the handshake problem and binds the handle on match.
func (s *VerifyService) ConfirmRegistration(ctx context.Context, userID int64, displayName, handle string, problem codeforces.Problem) error {
	subs, err := s.cf.UserStatus(ctx, handle, s.cfg.RegistrationLookback)
	if err != nil {
		return err
	}
	if !hasSubmission(subs, problem.ContestID, problem.Index, codeforces.VerdictCompileError) {
		return ErrNoVerifySubmission
	}
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		u = &model.UserProfile{UserID: userID}
	}
	u.Handle = handle
	u.DisplayName = displayName
	if err := s.users.SaveUser(ctx, u); err != nil {
		return err
	}
	s.log.Infow("handle registered", "user", userID, "handle", handle)
	return nil
}

// Complete verifies that the user solved today's problem at the given tier
// and awards score. Preconditions are checked in order, each with its own
// error, and nothing is mutated until a qualifying submission is found.
func (s *VerifyService) Complete(ctx context.Context, userID int64, tier int, now time.Time) (*model.UserProfile, *model.DailyChallenge, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotRegistered
		}
		return nil, nil, err
	}
	if u.Handle == "" {
		return nil, nil, ErrNotRegistered
	}
	today := s.challenges.DueDate(now)
	if u.LastCompletion != "" && u.LastCompletion >= today {
		return nil, nil, ErrAlreadyCompleted
	}
	rec, err := s.challenges.TodaysProblem(ctx, now, tier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNoChallenge
		}
		return nil, nil, err
	}
	subs, err := s.cf.UserStatus(ctx, u.Handle, s.cfg.CompletionLookback)
	if err != nil {
		return nil, nil, err
	}
	if !hasSubmission(subs, rec.ContestID, rec.Index, codeforces.VerdictAccepted) {
		return nil, nil, ErrNoAcceptedSubmission
	}
	u.Score += model.ScoreIncrease(tier)
	u.LastCompletion = today
	if err := s.users.SaveUser(ctx, u); err != nil {
		return nil, nil, err
	}
	s.log.Infow("challenge completed", "user", userID, "tier", tier, "score", u.Score)
	return u, rec, nil
}

// hasSubmission scans the whole list: an entry with a matching problem but
// wrong verdict does not end the search.
func hasSubmission(subs []codeforces.Submission, contestID int, index, verdict string) bool {
	for _, sub := range subs {
		if sub.Problem.ContestID == contestID && sub.Problem.Index == index && sub.Verdict == verdict {
			return true
		}
	}
	return false
}
