// Package dispatch moves user submissions through admission, an in-memory
// FIFO queue and a fixed pool of fetch-and-deliver workers.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"thirdcoast.systems/reelgrab/internal/i18n"
)

// RecheckAction is the callback data of the "I subscribed" button.
const RecheckAction = "check_subs"

var (
	// ErrNotResolvable means the locator could not be turned into a direct URL.
	ErrNotResolvable = errors.New("dispatch: resource not resolvable")

	// ErrRejected means the transport refused delivery by reference.
	ErrRejected = errors.New("dispatch: delivery rejected")

	// ErrQueueClosed is returned by Dequeue once the queue is closed and empty.
	ErrQueueClosed = errors.New("dispatch: queue closed")
)

// Origin identifies the conversation and message a submission came from.
type Origin struct {
	ChatID    int64
	UserID    int64
	MessageID int
}

// Handle points at a notification the bot sent, so it can be edited or deleted.
type Handle struct {
	ChatID    int64
	MessageID int
}

func (h Handle) IsZero() bool {
	return h.ChatID == 0 && h.MessageID == 0
}

// Action is an inline button attached to a notification.
type Action struct {
	Text string
	Data string
}

// Task is one admitted submission waiting for a worker.
type Task struct {
	ID         uuid.UUID
	Origin     Origin
	Locator    string
	EnqueuedAt time.Time
}

// PendingRequest is a submission held until the user passes admission.
type PendingRequest struct {
	// TaskID is set when a queued task lost admission and was handed back.
	TaskID    uuid.UUID
	Origin    Origin
	Locator   string
	CreatedAt time.Time
}

// Resolution is a direct, fetchable media URL plus its extension hint. An
// empty DirectURL means the media exists but must be downloaded first.
type Resolution struct {
	DirectURL string
	Ext       string
}

type Resolver interface {
	// Resolve returns ErrNotResolvable (possibly wrapped) when the locator has no media.
	Resolve(ctx context.Context, locator string) (Resolution, error)
}

type Deliverer interface {
	// DeliverByReference hands the direct URL to the transport without downloading it.
	DeliverByReference(ctx context.Context, origin Origin, directURL, caption string) error
	// DeliverFile uploads a local file.
	DeliverFile(ctx context.Context, origin Origin, path, caption string) error
}

type Downloader interface {
	// Download fetches the locator into a scoped location. Callers must Release it.
	Download(ctx context.Context, locator string) (*ScopedFile, error)
}

type Notifier interface {
	Notify(ctx context.Context, origin Origin, text string, actions ...Action) (Handle, error)
	Delete(ctx context.Context, h Handle) error
	// ClearActions removes the inline buttons from a notification.
	ClearActions(ctx context.Context, h Handle) error
}

// Preferences is the persistence collaborator.
type Preferences interface {
	Language(ctx context.Context, userID int64) (i18n.Lang, error)
	RecordActivity(ctx context.Context, userID int64) error
	RecordDelivery(ctx context.Context, userID int64) error
}

// Admitter is satisfied by *admission.Gate.
type Admitter interface {
	IsAdmitted(ctx context.Context, userID int64) bool
	Requirements() []string
}

// ScopedFile is a downloaded file whose backing location is removed by Release.
// Release is safe to call more than once.
type ScopedFile struct {
	Path string
	Size int64

	release func() error
	once    sync.Once
	err     error
}

func NewScopedFile(path string, size int64, release func() error) *ScopedFile {
	return &ScopedFile{Path: path, Size: size, release: release}
}

func (f *ScopedFile) Release() error {
	f.once.Do(func() {
		if f.release != nil {
			f.err = f.release()
		}
	})
	return f.err
}

// Outcome is how a worker finished a task.
type Outcome int

const (
	OutcomeDelivered Outcome = iota
	OutcomeDeliveredFile
	OutcomeNotResolvable
	OutcomeAdmissionRequired
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeDeliveredFile:
		return "delivered_file"
	case OutcomeNotResolvable:
		return "not_resolvable"
	case OutcomeAdmissionRequired:
		return "admission_required"
	default:
		return "failed"
	}
}

// Delivered reports whether the user received the media.
func (o Outcome) Delivered() bool {
	return o == OutcomeDelivered || o == OutcomeDeliveredFile
}
