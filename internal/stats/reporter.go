// Package stats reports daily usage to the bot admins.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"

	"thirdcoast.systems/reelgrab/internal/db"
	"thirdcoast.systems/reelgrab/internal/i18n"
)

const reportTimeout = 2 * time.Minute

type Source interface {
	Stats(ctx context.Context, day time.Time) (db.DailyStats, error)
}

type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Reporter sends the daily stats message to every admin on a cron schedule.
type Reporter struct {
	source Source
	sender Sender
	admins []int64
	lang   i18n.Lang

	now  func() time.Time
	cron *cron.Cron

	mu      sync.Mutex
	running bool
}

func NewReporter(source Source, sender Sender, admins []int64, lang i18n.Lang) *Reporter {
	return &Reporter{
		source: source,
		sender: sender,
		admins: admins,
		lang:   lang.OrDefault(),
		now:    time.Now,
		cron:   cron.New(cron.WithLocation(time.Local)),
	}
}

// Schedule registers the report under a standard five-field cron expression.
func (r *Reporter) Schedule(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return fmt.Errorf("schedule stats report %q: %w", schedule, err)
	}
	slog.Info("Stats report scheduled", "schedule", schedule, "admins", len(r.admins))
	return nil
}

func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.cron.Start()
	r.running = true
}

// Stop waits for a running report to finish or ctx to end.
func (r *Reporter) Stop(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
		slog.Warn("stats reporter stop timed out")
	}
	r.running = false
}

func (r *Reporter) run() {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()
	if err := r.Report(ctx); err != nil {
		slog.Error("failed to send stats report", "error", err)
	}
}

// Report sends the stats of the day that is ending. A run at midnight
// reports the day before. Failing to reach one admin does not stop the
// others.
func (r *Reporter) Report(ctx context.Context) error {
	if len(r.admins) == 0 {
		return nil
	}

	day := r.now().Add(-time.Minute)
	st, err := r.source.Stats(ctx, day)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}

	text := i18n.T(r.lang, i18n.DailyStats, day.Format(time.DateOnly),
		humanize.Comma(st.ActiveUsers), humanize.Comma(st.Videos))
	sent := 0
	for _, admin := range r.admins {
		if err := r.sender.SendText(ctx, admin, text); err != nil {
			slog.Warn("failed to send stats to admin", "admin_id", admin, "error", err)
			continue
		}
		sent++
	}
	slog.Info("Stats report sent", "day", day.Format(time.DateOnly), "users", st.ActiveUsers, "videos", st.Videos, "admins", sent)
	return nil
}
