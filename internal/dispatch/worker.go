package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"thirdcoast.systems/reelgrab/internal/i18n"
)

const (
	defaultWorkers        = 5
	defaultTaskTimeout    = 3 * time.Minute
	defaultCleanupTimeout = 15 * time.Second
)

// OutcomeFunc receives every finished task after its in-flight entry is
// released. Its context carries the pool's cleanup deadline.
type OutcomeFunc func(ctx context.Context, task Task, outcome Outcome)

type PoolConfig struct {
	Workers     int
	TaskTimeout time.Duration
	// RecheckAdmission re-validates membership when a worker picks up a task,
	// since a subscription can lapse while the task waits in the queue.
	RecheckAdmission bool
	// CleanupTimeout bounds each notice, placeholder delete, preference
	// lookup and outcome handler call.
	CleanupTimeout time.Duration
}

// PoolDeps are the collaborators a worker talks to.
type PoolDeps struct {
	Queue      *Queue
	Registry   *Registry
	Gate       Admitter
	Resolver   Resolver
	Deliverer  Deliverer
	Downloader Downloader
	Notifier   Notifier
	Prefs      Preferences
}

// Pool is a fixed set of workers draining one Queue.
type Pool struct {
	cfg  PoolConfig
	deps PoolDeps

	onOutcome OutcomeFunc
	wg        sync.WaitGroup
}

func NewPool(cfg PoolConfig, deps PoolDeps) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = defaultTaskTimeout
	}
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = defaultCleanupTimeout
	}
	return &Pool{cfg: cfg, deps: deps}
}

// OnOutcome registers fn to receive finished tasks. Call before Start.
func (p *Pool) OnOutcome(fn OutcomeFunc) {
	p.onOutcome = fn
}

// Start launches the workers. They exit when ctx ends or the queue is
// closed and drained.
func (p *Pool) Start(ctx context.Context) {
	slog.Info("Download workers started", "workers", p.cfg.Workers, "task_timeout", p.cfg.TaskTimeout)
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, i+1)
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) work(ctx context.Context, workerID int) {
	defer p.wg.Done()
	for {
		task, err := p.deps.Queue.Dequeue(ctx)
		if err != nil {
			if !errors.Is(err, ErrQueueClosed) && !errors.Is(err, context.Canceled) {
				slog.Error("failed to dequeue task", "worker", workerID, "error", err)
			}
			return
		}

		outcome := p.process(ctx, workerID, task)
		p.deps.Queue.Done()
		p.report(ctx, workerID, task, outcome)
	}
}

// process runs the fetch-and-deliver protocol for one task. The in-flight
// entry is cleared and the placeholder deleted on every return path,
// including panics.
func (p *Pool) process(ctx context.Context, workerID int, task Task) (outcome Outcome) {
	start := time.Now()
	userID := task.Origin.UserID
	p.deps.Registry.Begin(userID)

	taskCtx, cancel := context.WithTimeout(ctx, p.cfg.TaskTimeout)
	defer cancel()

	// Notices and cleanup must still go out after the task deadline fires.
	detached := context.WithoutCancel(ctx)
	lang := i18n.Default

	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker recovered panic", "worker", workerID, "task_id", task.ID, "panic", r, "stack", string(debug.Stack()))
			p.notify(detached, task.Origin, i18n.T(lang, i18n.ProcessFailed))
			outcome = OutcomeFailed
		}
		p.finish(detached, workerID, task, outcome)
		slog.Info("Task finished",
			"worker", workerID,
			"task_id", task.ID,
			"locator", task.Locator,
			"outcome", outcome,
			"elapsed", time.Since(start).Round(time.Millisecond),
			"waited", start.Sub(task.EnqueuedAt).Round(time.Millisecond))
	}()

	lang = p.language(taskCtx, userID)
	if err := taskCtx.Err(); err != nil {
		slog.Error("task deadline passed before processing", "worker", workerID, "task_id", task.ID, "user_id", userID, "error", err)
		p.notify(detached, task.Origin, i18n.T(lang, i18n.ProcessFailed))
		return OutcomeFailed
	}

	if p.cfg.RecheckAdmission && !p.deps.Gate.IsAdmitted(taskCtx, userID) {
		slog.Info("admission lapsed before processing", "worker", workerID, "task_id", task.ID, "user_id", userID)
		return OutcomeAdmissionRequired
	}

	res, err := p.deps.Resolver.Resolve(taskCtx, task.Locator)
	if err != nil {
		if errors.Is(err, ErrNotResolvable) {
			slog.Warn("resource not resolvable", "worker", workerID, "task_id", task.ID, "locator", task.Locator, "error", err)
			p.notify(detached, task.Origin, i18n.T(lang, i18n.FetchFailed))
			return OutcomeNotResolvable
		}
		slog.Error("failed to resolve resource", "worker", workerID, "task_id", task.ID, "locator", task.Locator, "error", err)
		p.notify(detached, task.Origin, i18n.T(lang, i18n.ProcessFailed))
		return OutcomeFailed
	}

	caption := i18n.T(lang, i18n.VideoCaption)
	if res.DirectURL != "" {
		err = p.deps.Deliverer.DeliverByReference(taskCtx, task.Origin, res.DirectURL, caption)
		if err == nil {
			slog.Info("Delivered by reference", "worker", workerID, "task_id", task.ID, "ext", res.Ext)
			return OutcomeDelivered
		}
		slog.Warn("delivery by reference failed, downloading", "worker", workerID, "task_id", task.ID, "rejected", errors.Is(err, ErrRejected), "error", err)
	}

	if err := p.deliverDownloaded(taskCtx, workerID, task, caption); err != nil {
		slog.Error("failed to deliver downloaded file", "worker", workerID, "task_id", task.ID, "locator", task.Locator, "error", err)
		p.notify(detached, task.Origin, i18n.T(lang, i18n.ProcessFailed))
		return OutcomeFailed
	}
	return OutcomeDeliveredFile
}

func (p *Pool) deliverDownloaded(ctx context.Context, workerID int, task Task, caption string) error {
	file, err := p.deps.Downloader.Download(ctx, task.Locator)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer func() {
		if err := file.Release(); err != nil {
			slog.Warn("failed to release download", "worker", workerID, "task_id", task.ID, "path", file.Path, "error", err)
		}
	}()

	slog.Info("Downloaded", "worker", workerID, "task_id", task.ID, "size", humanize.Bytes(uint64(max(file.Size, 0))))
	if err := p.deps.Deliverer.DeliverFile(ctx, task.Origin, file.Path, caption); err != nil {
		return fmt.Errorf("deliver file: %w", err)
	}
	return nil
}

// finish releases the user's in-flight entry and deletes the queued
// placeholder. A task that lost admission is handed back as the user's
// pending request in the same step, so a newer submission that arrives
// before the outcome handler runs is never replaced by this one.
func (p *Pool) finish(ctx context.Context, workerID int, task Task, outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker cleanup panicked", "worker", workerID, "task_id", task.ID, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	userID := task.Origin.UserID
	var (
		h  Handle
		ok bool
	)
	if outcome == OutcomeAdmissionRequired {
		h, ok = p.deps.Registry.Postpone(userID, PendingRequest{
			TaskID:    task.ID,
			Origin:    task.Origin,
			Locator:   task.Locator,
			CreatedAt: task.EnqueuedAt,
		})
	} else {
		h, ok = p.deps.Registry.Clear(userID)
	}
	if !ok || h.IsZero() {
		return
	}
	delCtx, cancel := context.WithTimeout(ctx, p.cfg.CleanupTimeout)
	defer cancel()
	if err := p.deps.Notifier.Delete(delCtx, h); err != nil {
		slog.Warn("failed to delete queued notice", "worker", workerID, "task_id", task.ID, "error", err)
	}
}

func (p *Pool) report(ctx context.Context, workerID int, task Task, outcome Outcome) {
	if p.onOutcome == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("outcome handler panicked", "worker", workerID, "task_id", task.ID, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	octx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.CleanupTimeout)
	defer cancel()
	p.onOutcome(octx, task, outcome)
}

func (p *Pool) notify(ctx context.Context, origin Origin, text string) {
	nctx, cancel := context.WithTimeout(ctx, p.cfg.CleanupTimeout)
	defer cancel()
	if _, err := p.deps.Notifier.Notify(nctx, origin, text); err != nil {
		slog.Warn("failed to send notice", "chat_id", origin.ChatID, "error", err)
	}
}

func (p *Pool) language(ctx context.Context, userID int64) i18n.Lang {
	lctx, cancel := context.WithTimeout(ctx, p.cfg.CleanupTimeout)
	defer cancel()
	lang, err := p.deps.Prefs.Language(lctx, userID)
	if err != nil {
		slog.Warn("failed to load language", "user_id", userID, "error", err)
		return i18n.Default
	}
	return lang.OrDefault()
}
