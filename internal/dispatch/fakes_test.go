package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/reelgrab/internal/i18n"
)

type notice struct {
	Origin  Origin
	Text    string
	Actions []Action
	Handle  Handle
}

type fakeNotifier struct {
	mu          sync.Mutex
	nextID      int
	notices     []notice
	deleted     []Handle
	cleared     []Handle
	notifyErr   error
	deleteErr   error
	deletePanic bool
}

func (n *fakeNotifier) Notify(ctx context.Context, origin Origin, text string, actions ...Action) (Handle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.notifyErr != nil {
		return Handle{}, n.notifyErr
	}
	n.nextID++
	h := Handle{ChatID: origin.ChatID, MessageID: 1000 + n.nextID}
	n.notices = append(n.notices, notice{Origin: origin, Text: text, Actions: actions, Handle: h})
	return h, nil
}

func (n *fakeNotifier) Delete(ctx context.Context, h Handle) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, h)
	if n.deletePanic {
		panic("delete exploded")
	}
	return n.deleteErr
}

func (n *fakeNotifier) ClearActions(ctx context.Context, h Handle) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cleared = append(n.cleared, h)
	return nil
}

func (n *fakeNotifier) texts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.notices))
	for _, nt := range n.notices {
		out = append(out, nt.Text)
	}
	return out
}

func (n *fakeNotifier) count(text string) int {
	c := 0
	for _, t := range n.texts() {
		if t == text {
			c++
		}
	}
	return c
}

func (n *fakeNotifier) handleOf(text string) Handle {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, nt := range n.notices {
		if nt.Text == text {
			return nt.Handle
		}
	}
	return Handle{}
}

func (n *fakeNotifier) deletedHandles() []Handle {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Handle(nil), n.deleted...)
}

type fakeGate struct {
	admitted atomic.Bool
	checks   atomic.Int32
}

func (g *fakeGate) IsAdmitted(ctx context.Context, userID int64) bool {
	g.checks.Add(1)
	return g.admitted.Load()
}

func (g *fakeGate) Requirements() []string { return []string{"@partners"} }

type fakePrefs struct {
	lang       i18n.Lang
	langErr    error
	langBlocks bool
	activity   atomic.Int32
	deliveries atomic.Int32
}

func (p *fakePrefs) Language(ctx context.Context, userID int64) (i18n.Lang, error) {
	if p.langBlocks {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return p.lang, p.langErr
}

func (p *fakePrefs) RecordActivity(ctx context.Context, userID int64) error {
	p.activity.Add(1)
	return nil
}

func (p *fakePrefs) RecordDelivery(ctx context.Context, userID int64) error {
	p.deliveries.Add(1)
	return nil
}

type fakeResolver struct {
	calls atomic.Int32
	fn    func(ctx context.Context, loc string) (Resolution, error)
}

func (r *fakeResolver) Resolve(ctx context.Context, loc string) (Resolution, error) {
	r.calls.Add(1)
	return r.fn(ctx, loc)
}

type fakeDeliverer struct {
	byRefCalls atomic.Int32
	fileCalls  atomic.Int32
	byRef      func(ctx context.Context, origin Origin, url string) error
	file       func(ctx context.Context, origin Origin, path string) error
}

func (d *fakeDeliverer) DeliverByReference(ctx context.Context, origin Origin, directURL, caption string) error {
	d.byRefCalls.Add(1)
	return d.byRef(ctx, origin, directURL)
}

func (d *fakeDeliverer) DeliverFile(ctx context.Context, origin Origin, path, caption string) error {
	d.fileCalls.Add(1)
	return d.file(ctx, origin, path)
}

type fakeDownloader struct {
	downloads atomic.Int32
	releases  atomic.Int32
	err       error
}

func (d *fakeDownloader) Download(ctx context.Context, loc string) (*ScopedFile, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.downloads.Add(1)
	return NewScopedFile("/spool/igdl_test/video.mp4", 2048, func() error {
		d.releases.Add(1)
		return nil
	}), nil
}

const testLocator = "https://www.instagram.com/reel/Cx1AbC"

var errBoom = errors.New("boom")

type harness struct {
	queue      *Queue
	registry   *Registry
	gate       *fakeGate
	notifier   *fakeNotifier
	prefs      *fakePrefs
	resolver   *fakeResolver
	deliverer  *fakeDeliverer
	downloader *fakeDownloader
	dispatcher *Dispatcher
	pool       *Pool
	outcomes   chan Outcome
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		queue:    NewQueue(),
		registry: NewRegistry(),
		gate:     &fakeGate{},
		notifier: &fakeNotifier{},
		prefs:    &fakePrefs{lang: i18n.EN},
		resolver: &fakeResolver{fn: func(ctx context.Context, loc string) (Resolution, error) {
			return Resolution{DirectURL: "https://cdn.example/v.mp4", Ext: "mp4"}, nil
		}},
		deliverer: &fakeDeliverer{
			byRef: func(ctx context.Context, origin Origin, url string) error { return nil },
			file:  func(ctx context.Context, origin Origin, path string) error { return nil },
		},
		downloader: &fakeDownloader{},
		outcomes:   make(chan Outcome, 64),
	}
	h.gate.admitted.Store(true)
	h.dispatcher = NewDispatcher(h.queue, h.registry, h.gate, h.notifier, h.prefs)
	h.pool = NewPool(PoolConfig{Workers: 2, TaskTimeout: time.Second, RecheckAdmission: true}, PoolDeps{
		Queue:      h.queue,
		Registry:   h.registry,
		Gate:       h.gate,
		Resolver:   h.resolver,
		Deliverer:  h.deliverer,
		Downloader: h.downloader,
		Notifier:   h.notifier,
		Prefs:      h.prefs,
	})
	h.pool.OnOutcome(func(ctx context.Context, task Task, o Outcome) {
		h.dispatcher.HandleOutcome(ctx, task, o)
		h.outcomes <- o
	})
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h.pool.Start(ctx)
	t.Cleanup(func() {
		h.queue.Close()
		cancel()
		h.pool.Wait()
	})
}

func (h *harness) waitOutcome(t *testing.T) Outcome {
	t.Helper()
	select {
	case o := <-h.outcomes:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for task outcome")
		return OutcomeFailed
	}
}

func origin(userID int64) Origin {
	return Origin{ChatID: userID, UserID: userID, MessageID: 1}
}

func requireIdle(t *testing.T, r *Registry, userID int64) {
	t.Helper()
	require.Equal(t, StateIdle, r.State(userID))
}
