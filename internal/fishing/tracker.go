package fishing

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Ticket identifies one in-flight request of a client.
type Ticket struct {
	Client     string
	ID         string
	Generation uint64
}

type inflight struct {
	ticket Ticket
	cancel context.CancelFunc
}

// RequestTracker lets a newer request from the same client supersede an older
// one. Beginning a request cancels the previous request's context, and Finish
// reports whether a result may still be applied.
// Generations are drawn from one counter so a ticket never matches a later
// request after its client's entry has been released.
type RequestTracker struct {
	mu     sync.Mutex
	next   uint64
	active map[string]inflight
}

func NewRequestTracker() *RequestTracker {
	return &RequestTracker{
		active: make(map[string]inflight),
	}
}

// Begin registers a new request for client and returns its context and ticket.
func (t *RequestTracker) Begin(parent context.Context, client string) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.active[client]; ok {
		prev.cancel()
	}

	t.next++
	tk := Ticket{
		Client:     client,
		ID:         uuid.NewString(),
		Generation: t.next,
	}
	t.active[client] = inflight{ticket: tk, cancel: cancel}

	return ctx, tk
}

// IsCurrent reports whether tk is the client's latest request and still in flight.
func (t *RequestTracker) IsCurrent(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.active[tk.Client]
	return ok && cur.ticket.Generation == tk.Generation
}

// Finish releases tk and reports whether its result should be applied.
func (t *RequestTracker) Finish(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.active[tk.Client]
	if !ok || cur.ticket.Generation != tk.Generation {
		return false
	}
	cur.cancel()
	delete(t.active, tk.Client)
	return true
}

// Len is the number of clients with a request in flight.
func (t *RequestTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}
