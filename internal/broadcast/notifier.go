package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jaekwang-park/project-board/internal/metrics"
)

// Broadcaster delivers a notification to its channel.
type Broadcaster interface {
	Broadcast(ctx context.Context, n Notification) error
}

const (
	defaultQueueSize = 256
	deliveryTimeout  = 5 * time.Second
)

// Notifier is what mutations publish through. ProjectDeleted is delivered
// inline, before the caller continues; the other kinds are handed to a
// background worker. Delivery failures are logged and never returned:
// the write they describe has already committed.
type Notifier struct {
	target  Broadcaster
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	queue  chan Notification
	done   chan struct{}
}

// NewNotifier starts the background delivery worker. m may be nil.
func NewNotifier(target Broadcaster, logger *slog.Logger, m *metrics.Metrics, queueSize int) *Notifier {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	n := &Notifier{
		target:  target,
		logger:  logger,
		metrics: m,
		queue:   make(chan Notification, queueSize),
		done:    make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *Notifier) Notify(ctx context.Context, note Notification) {
	if note.Immediate() {
		n.deliver(context.WithoutCancel(ctx), note)
		return
	}

	n.mu.RLock()
	if !n.closed {
		select {
		case n.queue <- note:
			n.mu.RUnlock()
			n.setQueued(1)
			return
		default:
		}
	}
	n.mu.RUnlock()

	// Closed or full: deliver inline rather than lose the notification.
	n.logger.Warn("notification queue unavailable, delivering inline",
		"notification", note.Name,
		"channel", note.Channel,
	)
	n.deliver(context.WithoutCancel(ctx), note)
}

func (n *Notifier) run() {
	defer close(n.done)
	for note := range n.queue {
		n.setQueued(-1)
		n.deliver(context.Background(), note)
	}
}

func (n *Notifier) deliver(ctx context.Context, note Notification) {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	result := "ok"
	if err := n.target.Broadcast(ctx, note); err != nil {
		result = "error"
		n.logger.Error("notification delivery failed",
			"error", err,
			"notification", note.Name,
			"channel", note.Channel,
			"project_id", note.ProjectID(),
		)
	} else {
		n.logger.Debug("notification delivered",
			"notification", note.Name,
			"channel", note.Channel,
			"project_id", note.ProjectID(),
		)
	}
	if n.metrics != nil {
		n.metrics.NotificationsSent.WithLabelValues(string(note.Name), result).Inc()
	}
}

func (n *Notifier) setQueued(delta float64) {
	if n.metrics != nil {
		n.metrics.NotificationsQueued.Add(delta)
	}
}

// Close stops accepting queued notifications and waits until the worker
// has drained the queue or ctx is done.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
