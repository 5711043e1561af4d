// Package broadcasttest provides a recording Broadcaster for tests.
package broadcasttest

import (
	"context"
	"sync"

	"github.com/jaekwang-park/project-board/internal/broadcast"
)

// Recorder captures every notification it is asked to deliver.
type Recorder struct {
	mu   sync.Mutex
	sent []broadcast.Notification
	Err  error
}

func (r *Recorder) Broadcast(_ context.Context, n broadcast.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.Err
}

func (r *Recorder) All() []broadcast.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]broadcast.Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// Named returns the recorded notifications with the given name.
func (r *Recorder) Named(name broadcast.Name) []broadcast.Notification {
	var out []broadcast.Notification
	for _, n := range r.All() {
		if n.Name == name {
			out = append(out, n)
		}
	}
	return out
}

var _ broadcast.Broadcaster = (*Recorder)(nil)
