package service

import (
	"context"
	"testing"
	"time"

	"github.com/example/cf-daily-bot/internal/model"
	"github.com/example/cf-daily-bot/pkg/codeforces"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newChallengeService(store *memStore, cf *fakeCF) *ChallengeService {
	cfg := testConfig()
	catalog := NewCatalogService(cf, cfg, testLogger())
	return NewChallengeService(store, catalog, cfg, testLogger())
}

func catalogFixture() *fakeCF {
	return &fakeCF{problems: []codeforces.Problem{
		{ContestID: 1500, Index: "A", Name: "Easy", Rating: 800},
		{ContestID: 1501, Index: "B", Name: "Medium", Rating: 1000},
	}}
}

func TestChallengeService_FirstRunBootstrapsState(t *testing.T) {
	store := newMemStore()
	svc := newChallengeService(store, catalogFixture())
	ctx := context.Background()

	recs, ran, err := svc.RunIfDue(ctx, testNow)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ran {
		t.Fatal("absent app state must count as due")
	}
	if len(recs) != 2 || recs[0].Tier != 800 || recs[1].Tier != 1000 {
		t.Fatalf("unexpected records: %#v", recs)
	}
	if store.lastDate != "2026-09-01" {
		t.Fatalf("last date = %q, want 2026-09-01", store.lastDate)
	}
}

func TestChallengeService_Idempotent(t *testing.T) {
	store := newMemStore()
	cf := catalogFixture()
	svc := newChallengeService(store, cf)
	ctx := context.Background()

	if _, ran, err := svc.RunIfDue(ctx, testNow); err != nil || !ran {
		t.Fatalf("first run: ran=%v err=%v", ran, err)
	}
	writes := len(store.challenges)

	// Duplicate tick for the same date reduces to not-due.
	if _, ran, err := svc.RunIfDue(ctx, testNow); err != nil || ran {
		t.Fatalf("second run: ran=%v err=%v", ran, err)
	}
	if len(store.challenges) != writes {
		t.Fatalf("second run wrote records: %d -> %d", writes, len(store.challenges))
	}
	if cf.problemsCalls != 1 {
		t.Fatalf("catalog fetched %d times, want 1", cf.problemsCalls)
	}
}

func TestChallengeService_NextDayIsDueAgain(t *testing.T) {
	store := newMemStore()
	svc := newChallengeService(store, catalogFixture())
	ctx := context.Background()

	if _, ran, _ := svc.RunIfDue(ctx, testNow); !ran {
		t.Fatal("first day should run")
	}
	if _, ran, _ := svc.RunIfDue(ctx, testNow.AddDate(0, 0, 1)); !ran {
		t.Fatal("next day should run again")
	}
	if store.lastDate != "2026-09-02" {
		t.Fatalf("last date = %q", store.lastDate)
	}
}

func TestChallengeService_CrashRecoveryReusesRecords(t *testing.T) {
	store := newMemStore()
	cf := catalogFixture()
	svc := newChallengeService(store, cf)
	ctx := context.Background()

	// Simulate a crash after one tier's record was written but before the
	// last-challenge-date advanced.
	pre := &model.DailyChallenge{Date: "2026-09-01", Tier: 800, ContestID: 1234, Index: "Z", Name: "From crashed run"}
	if err := store.SaveChallenge(ctx, pre); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store.lastDate = "2026-08-31"

	recs, ran, err := svc.RunIfDue(ctx, testNow)
	if err != nil || !ran {
		t.Fatalf("recovery run: ran=%v err=%v", ran, err)
	}
	got, _ := store.GetChallenge(ctx, "2026-09-01", 800)
	if got.ContestID != 1234 || got.Index != "Z" {
		t.Fatalf("existing record must be reused, got %#v", got)
	}
	if _, err := store.GetChallenge(ctx, "2026-09-01", 1000); err != nil {
		t.Fatalf("missing tier must be generated: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("want full set, got %d records", len(recs))
	}
	if store.lastDate != "2026-09-01" {
		t.Fatalf("last date = %q", store.lastDate)
	}
}

func TestChallengeService_FailedFetchLeavesDayDue(t *testing.T) {
	store := newMemStore()
	cf := &fakeCF{problemsErrs: []error{
		&codeforces.StatusError{Code: 503},
		&codeforces.StatusError{Code: 503},
		&codeforces.StatusError{Code: 503},
	}}
	svc := newChallengeService(store, cf)
	ctx := context.Background()

	if _, _, err := svc.RunIfDue(ctx, testNow); err == nil {
		t.Fatal("want error when the catalog is unreachable")
	}
	if store.lastDate != "" {
		t.Fatalf("fencepost must not advance on failure, got %q", store.lastDate)
	}
	if len(store.challenges) != 0 {
		t.Fatalf("no partial set may be recorded, got %d records", len(store.challenges))
	}

	// Once the catalog recovers the same day runs to completion.
	cf.problemsErrs = nil
	cf.problems = catalogFixture().problems
	if _, ran, err := svc.RunIfDue(ctx, testNow); err != nil || !ran {
		t.Fatalf("recovered run: ran=%v err=%v", ran, err)
	}
}

func TestChallengeService_DueDateUsesConfiguredZone(t *testing.T) {
	store := newMemStore()
	svc := newChallengeService(store, catalogFixture())
	cfg := testConfig()

	sg, err := time.LoadLocation("Asia/Singapore")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	cfg.Timezone = sg
	svc.cfg = cfg

	// 2026-09-01 18:00 UTC is already 2026-09-02 in Singapore.
	evening := time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	if d := svc.DueDate(evening); d != "2026-09-02" {
		t.Fatalf("due date = %q, want 2026-09-02", d)
	}
}
