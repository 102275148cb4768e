package dispatch

import "sync"

// State is where a user is in the submission lifecycle.
type State int

const (
	StateIdle State = iota
	StatePending
	StateQueued
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateQueued:
		return "queued"
	case StateProcessing:
		return "processing"
	default:
		return "idle"
	}
}

// InFlight reports whether the user owns a queued or running task.
func (s State) InFlight() bool {
	return s == StateQueued || s == StateProcessing
}

type userEntry struct {
	state   State
	handle  Handle
	pending PendingRequest
}

// Registry is the per-user state machine shared by the dispatcher and the
// workers. Each method is a single atomic transition.
//
// Precedence: an in-flight task always wins over a pending request. A
// successful TryMark drops any pending request, and Defer is refused while
// the user is in flight.
type Registry struct {
	mu    sync.Mutex
	users map[int64]*userEntry
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[int64]*userEntry)}
}

// TryMark moves userID from idle or pending to queued. It returns false,
// changing nothing, when the user already has a task in flight.
func (r *Registry) TryMark(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.users[userID]; ok && e.state.InFlight() {
		return false
	}
	r.users[userID] = &userEntry{state: StateQueued}
	return true
}

// Attach records the placeholder notification of an in-flight task.
func (r *Registry) Attach(userID int64, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[userID]
	if !ok || !e.state.InFlight() {
		return false
	}
	e.handle = h
	return true
}

// Begin moves a queued user to processing.
func (r *Registry) Begin(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[userID]
	if !ok || e.state != StateQueued {
		return false
	}
	e.state = StateProcessing
	return true
}

// Clear removes the in-flight entry of userID and returns its placeholder.
// It is a no-op for idle or pending users.
func (r *Registry) Clear(userID int64) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[userID]
	if !ok || !e.state.InFlight() {
		return Handle{}, false
	}
	delete(r.users, userID)
	return e.handle, true
}

// Postpone turns the caller's in-flight reservation into a pending request.
// The dispatcher uses it when admission fails after TryMark succeeded, and a
// worker when admission lapsed while the task was queued.
func (r *Registry) Postpone(userID int64, req PendingRequest) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[userID]
	if !ok || !e.state.InFlight() {
		return Handle{}, false
	}
	h := e.handle
	r.users[userID] = &userEntry{state: StatePending, pending: req}
	return h, true
}

// Defer stores req as the user's pending request, replacing an older one.
// It is refused while the user has a task in flight.
func (r *Registry) Defer(userID int64, req PendingRequest) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.users[userID]; ok && e.state.InFlight() {
		return false
	}
	r.users[userID] = &userEntry{state: StatePending, pending: req}
	return true
}

// Pending returns the user's pending request without consuming it.
func (r *Registry) Pending(userID int64) (PendingRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[userID]
	if !ok || e.state != StatePending {
		return PendingRequest{}, false
	}
	return e.pending, true
}

// TakePending removes and returns the user's pending request.
func (r *Registry) TakePending(userID int64) (PendingRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[userID]
	if !ok || e.state != StatePending {
		return PendingRequest{}, false
	}
	delete(r.users, userID)
	return e.pending, true
}

// State returns the current state of userID.
func (r *Registry) State(userID int64) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.users[userID]; ok {
		return e.state
	}
	return StateIdle
}

// Counts returns how many users are in each non-idle state.
func (r *Registry) Counts() map[State]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[State]int{StatePending: 0, StateQueued: 0, StateProcessing: 0}
	for _, e := range r.users {
		out[e.state]++
	}
	return out
}
