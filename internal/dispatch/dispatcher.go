package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"thirdcoast.systems/reelgrab/internal/i18n"
	"thirdcoast.systems/reelgrab/internal/locator"
)

// SubmitResult reports what HandleSubmission did.
type SubmitResult int

const (
	SubmitQueued SubmitResult = iota
	SubmitPending
	SubmitRejectedFormat
	SubmitRejectedBusy
	SubmitFailed
)

func (r SubmitResult) String() string {
	switch r {
	case SubmitQueued:
		return "queued"
	case SubmitPending:
		return "pending"
	case SubmitRejectedFormat:
		return "rejected_format"
	case SubmitRejectedBusy:
		return "rejected_busy"
	default:
		return "failed"
	}
}

// RecheckResult reports what HandleRecheck did.
type RecheckResult int

const (
	RecheckQueued RecheckResult = iota
	RecheckReady
	RecheckNotAdmitted
	RecheckBusy
	RecheckFailed
)

func (r RecheckResult) String() string {
	switch r {
	case RecheckQueued:
		return "queued"
	case RecheckReady:
		return "ready"
	case RecheckNotAdmitted:
		return "not_admitted"
	case RecheckBusy:
		return "busy"
	default:
		return "failed"
	}
}

// Submission is an inbound chat message that may carry a link.
type Submission struct {
	Origin Origin
	Text   string
}

// Recheck is a press of the "I subscribed" button.
type Recheck struct {
	Origin Origin
	// Prompt is the requirements notice carrying the button.
	Prompt Handle
}

// Dispatcher admits submissions into the queue. Its handlers are safe to
// call concurrently, one goroutine per inbound event.
type Dispatcher struct {
	queue    *Queue
	registry *Registry
	gate     Admitter
	notifier Notifier
	prefs    Preferences

	now func() time.Time
}

func NewDispatcher(queue *Queue, registry *Registry, gate Admitter, notifier Notifier, prefs Preferences) *Dispatcher {
	return &Dispatcher{
		queue:    queue,
		registry: registry,
		gate:     gate,
		notifier: notifier,
		prefs:    prefs,
		now:      time.Now,
	}
}

// HandleSubmission validates the link, reserves the user's in-flight slot,
// checks admission and either queues the task or holds it as pending.
func (d *Dispatcher) HandleSubmission(ctx context.Context, s Submission) SubmitResult {
	userID := s.Origin.UserID
	lang := d.language(ctx, userID)
	if err := d.prefs.RecordActivity(ctx, userID); err != nil {
		slog.Warn("failed to record activity", "user_id", userID, "error", err)
	}

	loc, err := locator.Extract(s.Text)
	if err != nil {
		d.notify(ctx, s.Origin, i18n.T(lang, i18n.SendURL))
		return SubmitRejectedFormat
	}

	// Reserve first so concurrent submissions cannot both pass the
	// admission check and double-queue.
	if !d.registry.TryMark(userID) {
		d.notify(ctx, s.Origin, i18n.T(lang, i18n.WaitPrevious))
		return SubmitRejectedBusy
	}

	if !d.gate.IsAdmitted(ctx, userID) {
		d.registry.Postpone(userID, PendingRequest{Origin: s.Origin, Locator: loc, CreatedAt: d.now()})
		d.presentRequirements(ctx, s.Origin, lang)
		return SubmitPending
	}

	if !d.enqueue(ctx, s.Origin, loc, lang) {
		return SubmitFailed
	}
	return SubmitQueued
}

// HandleRecheck re-evaluates admission and releases the user's pending
// request into the queue when it passes.
func (d *Dispatcher) HandleRecheck(ctx context.Context, r Recheck) RecheckResult {
	userID := r.Origin.UserID
	lang := d.language(ctx, userID)

	if !d.gate.IsAdmitted(ctx, userID) {
		origin := r.Origin
		if p, ok := d.registry.Pending(userID); ok {
			origin = p.Origin
		}
		d.presentRequirements(ctx, origin, lang)
		return RecheckNotAdmitted
	}

	if !r.Prompt.IsZero() {
		if err := d.notifier.ClearActions(ctx, r.Prompt); err != nil {
			slog.Warn("failed to clear recheck button", "user_id", userID, "error", err)
		}
	}

	pending, ok := d.registry.TakePending(userID)
	if !ok {
		d.notify(ctx, r.Origin, i18n.T(lang, i18n.Ready))
		return RecheckReady
	}

	if !d.registry.TryMark(userID) {
		d.notify(ctx, r.Origin, i18n.T(lang, i18n.WaitPrevious))
		return RecheckBusy
	}

	if !d.enqueue(ctx, pending.Origin, pending.Locator, lang) {
		return RecheckFailed
	}
	return RecheckQueued
}

// HandleOutcome is the Pool's OutcomeFunc. A task that lost admission was
// already handed back as the user's pending request by the worker; the
// requirements are re-presented unless a newer submission replaced it.
func (d *Dispatcher) HandleOutcome(ctx context.Context, task Task, outcome Outcome) {
	userID := task.Origin.UserID
	switch {
	case outcome == OutcomeAdmissionRequired:
		if req, ok := d.registry.Pending(userID); !ok || req.TaskID != task.ID {
			slog.Info("lapsed task superseded by a newer submission", "user_id", userID, "task_id", task.ID)
			return
		}
		d.presentRequirements(ctx, task.Origin, d.language(ctx, userID))
	case outcome.Delivered():
		if err := d.prefs.RecordDelivery(ctx, userID); err != nil {
			slog.Warn("failed to record delivery", "user_id", userID, "task_id", task.ID, "error", err)
		}
	}
}

// enqueue assumes the caller holds the user's in-flight reservation.
func (d *Dispatcher) enqueue(ctx context.Context, origin Origin, loc string, lang i18n.Lang) bool {
	h, err := d.notifier.Notify(ctx, origin, i18n.T(lang, i18n.Queued))
	if err != nil {
		slog.Warn("failed to send queued notice", "chat_id", origin.ChatID, "error", err)
	} else {
		d.registry.Attach(origin.UserID, h)
	}

	task := Task{
		ID:         uuid.New(),
		Origin:     origin,
		Locator:    loc,
		EnqueuedAt: d.now(),
	}
	if !d.queue.Enqueue(task) {
		slog.Warn("queue closed, rejecting task", "user_id", origin.UserID, "locator", loc)
		if h, ok := d.registry.Clear(origin.UserID); ok && !h.IsZero() {
			if err := d.notifier.Delete(ctx, h); err != nil {
				slog.Warn("failed to delete queued notice", "chat_id", origin.ChatID, "error", err)
			}
		}
		d.notify(ctx, origin, i18n.T(lang, i18n.ProcessFailed))
		return false
	}

	slog.Info("Task queued", "task_id", task.ID, "user_id", origin.UserID, "locator", loc, "depth", d.queue.Len())
	return true
}

func (d *Dispatcher) presentRequirements(ctx context.Context, origin Origin, lang i18n.Lang) {
	text := i18n.Requirements(lang, d.gate.Requirements())
	button := Action{Text: i18n.T(lang, i18n.ButtonSubscribed), Data: RecheckAction}
	if _, err := d.notifier.Notify(ctx, origin, text, button); err != nil {
		slog.Warn("failed to send requirements", "chat_id", origin.ChatID, "error", err)
	}
}

func (d *Dispatcher) notify(ctx context.Context, origin Origin, text string) {
	if _, err := d.notifier.Notify(ctx, origin, text); err != nil {
		slog.Warn("failed to send notice", "chat_id", origin.ChatID, "error", err)
	}
}

func (d *Dispatcher) language(ctx context.Context, userID int64) i18n.Lang {
	lang, err := d.prefs.Language(ctx, userID)
	if err != nil {
		slog.Warn("failed to load language", "user_id", userID, "error", err)
		return i18n.Default
	}
	return lang.OrDefault()
}
