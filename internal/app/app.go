package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/cf-daily-bot/internal/config"
	"github.com/example/cf-daily-bot/internal/model"
	"github.com/example/cf-daily-bot/internal/repository"
	"github.com/example/cf-daily-bot/internal/service"
	"github.com/example/cf-daily-bot/pkg/codeforces"
	"github.com/example/cf-daily-bot/pkg/telegram"
)

// App coordinates the services, the Telegram client and the daily alarm.
type App struct {
	cfg   *config.Config
	store repository.Store
	log   *zap.SugaredLogger

	tgClient   *telegram.Client
	challenges *service.ChallengeService
	verify     *service.VerifyService

	// destinations caches chat -> announcement channel, refreshed by
	// reloadDestinations on start and after /set_challenge_channel.
	destMu       sync.Mutex
	destinations map[int64]int64

	// regMu guards in-flight registrations; one handshake per user at a time.
	regMu       sync.Mutex
	registering map[int64]bool
}

func New(cfg *config.Config, store repository.Store, log *zap.SugaredLogger) *App {
	cf := codeforces.NewClient(cfg.RequestInterval)
	catalog := service.NewCatalogService(cf, cfg, log)
	challenges := service.NewChallengeService(store, catalog, cfg, log)
	verify := service.NewVerifyService(store, challenges, catalog, cf, cfg, log)
	return &App{
		cfg:          cfg,
		store:        store,
		log:          log,
		tgClient:     telegram.NewClient(cfg.TelegramToken),
		challenges:   challenges,
		verify:       verify,
		destinations: map[int64]int64{},
		registering:  map[int64]bool{},
	}
}

func (a *App) Run(ctx context.Context) error {
	a.setCommands(ctx)
	if err := a.reloadDestinations(ctx); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.handleUpdates(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.scheduleChallenges(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	return nil
}

func (a *App) setCommands(ctx context.Context) {
	cmds := []telegram.BotCommand{
		{Command: "start", Description: "What this bot does"},
		{Command: "register", Description: "Link your Codeforces handle"},
		{Command: "complete", Description: "Claim a tier of today's challenge"},
		{Command: "today", Description: "Show today's challenge set"},
		{Command: "info", Description: "Show your profile and score"},
		{Command: "set_challenge_channel", Description: "Announce challenges in this chat"},
	}
	if err := a.tgClient.SetCommands(ctx, cmds); err != nil {
		a.log.Warnw("set commands", "err", err)
	}
}

func (a *App) reloadDestinations(ctx context.Context) error {
	guilds, err := a.store.ListGuilds(ctx)
	if err != nil {
		return err
	}
	dest := make(map[int64]int64, len(guilds))
	for _, g := range guilds {
		dest[g.ChatID] = g.ChannelID
	}
	a.destMu.Lock()
	a.destinations = dest
	a.destMu.Unlock()
	return nil
}

func (a *App) handleUpdates(ctx context.Context) {
	offset := 0
	for {
		updates, err := a.tgClient.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.log.Warnw("get updates", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil || u.Message.From == nil {
				continue
			}
			a.handleMessage(ctx, u.Message)
		}
	}
}

func (a *App) handleMessage(ctx context.Context, m *telegram.Message) {
	fields := strings.Fields(m.Text)
	if len(fields) == 0 {
		return
	}
	// Commands in groups arrive as "/cmd@botname".
	cmd := fields[0]
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start":
		a.reply(ctx, m, "Daily Codeforces challenges for this chat.\n"+
			"/register <handle> to link your Codeforces account,\n"+
			"/today for today's problems, /complete <tier> to claim one.")
	case "/register":
		if len(fields) < 2 {
			a.reply(ctx, m, "Usage: /register <codeforces handle>")
			return
		}
		a.startRegistration(ctx, m, fields[1])
	case "/complete":
		if len(fields) < 2 {
			a.reply(ctx, m, "Usage: /complete <tier>, e.g. /complete 800")
			return
		}
		tier, err := strconv.Atoi(fields[1])
		if err != nil || !a.cfg.HasTier(tier) {
			a.reply(ctx, m, "Unknown tier. Configured tiers: "+tierList(a.cfg.Tiers))
			return
		}
		a.handleComplete(ctx, m, tier)
	case "/today":
		a.handleToday(ctx, m)
	case "/info":
		a.handleInfo(ctx, m)
	case "/set_challenge_channel":
		a.handleSetChannel(ctx, m)
	default:
		// ignore other messages
	}
}

func (a *App) handleComplete(ctx context.Context, m *telegram.Message, tier int) {
	u, rec, err := a.verify.Complete(ctx, m.From.ID, tier, time.Now())
	var apiErr *codeforces.APIError
	switch {
	case err == nil:
		a.reply(ctx, m, fmt.Sprintf("Verified: %s solved. +%d points, total %d.", rec.Name, model.ScoreIncrease(tier), u.Score))
	case errors.Is(err, service.ErrNotRegistered):
		a.reply(ctx, m, "You are not registered. Use /register <handle> first.")
	case errors.Is(err, service.ErrAlreadyCompleted):
		a.reply(ctx, m, "You already completed today's challenge. Come back tomorrow!")
	case errors.Is(err, service.ErrNoChallenge):
		a.reply(ctx, m, "There is no challenge recorded for that tier today.")
	case errors.Is(err, service.ErrNoAcceptedSubmission):
		a.reply(ctx, m, "No accepted submission found for today's problem at that tier.")
	case errors.As(err, &apiErr):
		a.reply(ctx, m, "Codeforces rejected the lookup. Check that your handle still exists.")
	default:
		a.log.Warnw("complete", "user", m.From.ID, "err", err)
		a.reply(ctx, m, "Could not reach Codeforces right now, try again later.")
	}
}

func (a *App) handleToday(ctx context.Context, m *telegram.Message) {
	recs, err := a.challenges.TodaysChallenges(ctx, time.Now())
	if err != nil {
		a.log.Warnw("today", "err", err)
		return
	}
	if len(recs) == 0 {
		a.reply(ctx, m, "Today's challenge has not been generated yet.")
		return
	}
	if err := a.tgClient.SendHTML(ctx, m.Chat.ID, renderChallenges(recs)); err != nil {
		a.log.Warnw("send today", "chat", m.Chat.ID, "err", err)
	}
}

func (a *App) handleInfo(ctx context.Context, m *telegram.Message) {
	u, err := a.store.GetUser(ctx, m.From.ID)
	if err != nil {
		a.reply(ctx, m, "No profile yet. Use /register <handle> to get started.")
		return
	}
	handle := u.Handle
	if handle == "" {
		handle = "(none)"
	}
	last := u.LastCompletion
	if last == "" {
		last = "never"
	}
	a.reply(ctx, m, fmt.Sprintf("Codeforces handle: %s\nScore: %d\nLast completion: %s", handle, u.Score, last))
}

func (a *App) handleSetChannel(ctx context.Context, m *telegram.Message) {
	g := &model.GuildSettings{ChatID: m.Chat.ID, ChannelID: m.Chat.ID}
	if err := a.store.SaveGuild(ctx, g); err != nil {
		a.log.Warnw("set channel", "chat", m.Chat.ID, "err", err)
		a.reply(ctx, m, "Could not save the channel setting.")
		return
	}
	if err := a.reloadDestinations(ctx); err != nil {
		a.log.Warnw("reload destinations", "err", err)
	}
	a.reply(ctx, m, "Challenge channel set. Daily challenges will be announced here.")
}

// startRegistration runs the compile-error handshake in its own goroutine;
// the window is a long sleep and must not block the update loop.
func (a *App) startRegistration(ctx context.Context, m *telegram.Message, handle string) {
	userID := m.From.ID
	a.regMu.Lock()
	if a.registering[userID] {
		a.regMu.Unlock()
		a.reply(ctx, m, "A registration is already in progress for you.")
		return
	}
	a.registering[userID] = true
	a.regMu.Unlock()

	go func() {
		defer func() {
			a.regMu.Lock()
			delete(a.registering, userID)
			a.regMu.Unlock()
		}()
		a.runRegistration(ctx, m, handle)
	}()
}

func (a *App) runRegistration(ctx context.Context, m *telegram.Message, handle string) {
	info, problem, err := a.verify.BeginRegistration(ctx, m.From.ID, handle)
	var apiErr *codeforces.APIError
	switch {
	case errors.Is(err, service.ErrReregisterDisabled):
		a.reply(ctx, m, "You already have a registered handle.")
		return
	case errors.As(err, &apiErr):
		a.reply(ctx, m, "Codeforces does not know that handle. Check it is correct.")
		return
	case err != nil:
		a.log.Warnw("begin registration", "user", m.From.ID, "err", err)
		a.reply(ctx, m, "Could not reach Codeforces right now, try again later.")
		return
	}

	window := a.cfg.RegistrationWindow
	a.reply(ctx, m, fmt.Sprintf(
		"Verifying %s (rank: %s).\nSubmit a COMPILATION ERROR to this problem within %s:\n%s\nI will check your submissions when the time is up.",
		info.Handle, orUnrated(info.Rank), window, problem.URL()))

	t := time.NewTimer(window)
	select {
	case <-ctx.Done():
		t.Stop()
		return
	case <-t.C:
	}

	err = a.verify.ConfirmRegistration(ctx, m.From.ID, m.From.FirstName, handle, problem)
	switch {
	case err == nil:
		a.reply(ctx, m, fmt.Sprintf("Handle %s is now linked to your account.", handle))
	case errors.Is(err, service.ErrNoVerifySubmission):
		a.reply(ctx, m, "No compile-error submission found for the verification problem. Run /register again to retry.")
	default:
		a.log.Warnw("confirm registration", "user", m.From.ID, "err", err)
		a.reply(ctx, m, "Could not reach Codeforces right now, try again later.")
	}
}

func (a *App) reply(ctx context.Context, m *telegram.Message, text string) {
	if err := a.tgClient.SendMessage(ctx, m.Chat.ID, text); err != nil {
		a.log.Warnw("send message", "chat", m.Chat.ID, "err", err)
	}
}

func orUnrated(rank string) string {
	if rank == "" {
		return "unrated"
	}
	return rank
}

func tierList(tiers []int) string {
	parts := make([]string, len(tiers))
	for i, t := range tiers {
		parts[i] = strconv.Itoa(t)
	}
	return strings.Join(parts, ", ")
}
