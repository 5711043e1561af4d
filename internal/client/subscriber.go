package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jaekwang-park/project-board/internal/broadcast"
)

const defaultRetry = 3 * time.Second

// Handler receives each decoded notification, in stream order.
type Handler func(broadcast.Notification)

// Subscriber follows a user's private notification stream.
type Subscriber struct {
	client *Client
	logger *slog.Logger
}

func NewSubscriber(c *Client, logger *slog.Logger) *Subscriber {
	return &Subscriber{client: c, logger: logger}
}

// Run keeps the stream for userID open until ctx is done, reconnecting
// after the server's retry hint. Authentication failures end it.
func (s *Subscriber) Run(ctx context.Context, userID string, handle Handler) error {
	for {
		retry, err := s.Stream(ctx, userID, handle)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrForbidden) {
			return err
		}
		s.logger.Warn("stream disconnected", "channel", "users."+userID, "error", err, "retry", retry)

		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Stream reads a single connection until it ends. It returns the retry
// delay the server asked for.
func (s *Subscriber) Stream(ctx context.Context, userID string, handle Handler) (time.Duration, error) {
	retry := defaultRetry

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.client.baseURL+"/broadcasting/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return retry, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	s.client.authorize(req)

	resp, err := s.client.http.Do(req)
	if err != nil {
		return retry, fmt.Errorf("failed to open stream: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case isLoginRedirect(resp):
		return retry, ErrUnauthenticated
	case resp.StatusCode == http.StatusForbidden:
		return retry, ErrForbidden
	case resp.StatusCode != http.StatusOK:
		return retry, fmt.Errorf("failed to open stream: status %d", resp.StatusCode)
	}

	var ev event
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			s.dispatch(ev, handle)
			ev = event{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "id":
			ev.id = value
		case "event":
			ev.name = value
		case "data":
			ev.data = append(ev.data, value)
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
				retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return retry, fmt.Errorf("stream read failed: %w", err)
	}
	return retry, errors.New("stream closed by server")
}

type event struct {
	id   string
	name string
	data []string
}

func (s *Subscriber) dispatch(ev event, handle Handler) {
	if len(ev.data) == 0 {
		return
	}
	n, err := broadcast.DecodeNotification([]byte(strings.Join(ev.data, "\n")))
	if err != nil {
		s.logger.Warn("dropping malformed event", "id", ev.id, "event", ev.name, "error", err)
		return
	}
	handle(n)
}
