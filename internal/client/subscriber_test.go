package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaekwang-park/project-board/internal/broadcast"
	"github.com/jaekwang-park/project-board/internal/client"
	"github.com/jaekwang-park/project-board/internal/model"
	"github.com/jaekwang-park/project-board/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sseFrame(t *testing.T, n broadcast.Notification) string {
	t.Helper()
	data, err := json.Marshal(n)
	require.NoError(t, err)
	return fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", n.ID, n.Name, data)
}

type collector struct {
	mu    sync.Mutex
	notes []broadcast.Notification
}

func (c *collector) handle(n broadcast.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, n)
}

func (c *collector) names() []broadcast.Name {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]broadcast.Name, 0, len(c.notes))
	for _, n := range c.notes {
		out = append(out, n.Name)
	}
	return out
}

func TestSubscriber_Stream(t *testing.T) {
	updated := broadcast.Updated(model.Project{ID: "p1", UserID: "user-1", Name: "Renamed"})
	deleted := broadcast.Deleted("p2", "user-1")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/broadcasting/users/user-1", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "retry: 1500\n\n")
		fmt.Fprint(w, ": ping\n\n")
		fmt.Fprint(w, sseFrame(t, updated))
		fmt.Fprint(w, "event: ProjectCreated\ndata: {\"name\":\"nope\"}\n\n")
		fmt.Fprint(w, sseFrame(t, deleted))
	}))
	defer srv.Close()

	var got collector
	sub := client.NewSubscriber(client.New(srv.URL, client.WithDevUser("user-1")), discardLogger())

	retry, err := sub.Stream(context.Background(), "user-1", got.handle)

	require.Error(t, err, "server closed the stream")
	assert.Equal(t, 1500*time.Millisecond, retry)
	assert.Equal(t, []broadcast.Name{broadcast.ProjectUpdated, broadcast.ProjectDeleted}, got.names())
	assert.Equal(t, "p2", got.notes[1].Deleted.ProjectID)
}

func TestSubscriber_RunStopsOnAuthFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"forbidden", http.StatusForbidden, client.ErrForbidden},
		{"unauthorized", http.StatusUnauthorized, client.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			sub := client.NewSubscriber(client.New(srv.URL), discardLogger())
			err := sub.Run(context.Background(), "user-2", func(broadcast.Notification) {})

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSubscriber_RunReconnectsAndFeedsStore(t *testing.T) {
	var (
		mu    sync.Mutex
		conns int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		conns++
		n := conns
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "retry: 10\n\n")
		if n == 2 {
			fmt.Fprint(w, sseFrame(t, broadcast.Deleted("p1", "user-1")))
		}
	}))
	defer srv.Close()

	cache := store.NewCache(store.NewMemoryStorage(0), "")
	st := store.New(nil, cache, discardLogger())
	st.SetProjects(store.Snapshot{Projects: model.NewProjectPage([]model.Project{{ID: "p1"}, {ID: "p2"}}, 1, 10, 2)})
	require.NoError(t, cache.Put(store.CacheKey{Page: 1}, store.Snapshot{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	sub := client.NewSubscriber(client.New(srv.URL), discardLogger())
	go func() { done <- sub.Run(ctx, "user-1", st.Apply) }()

	require.Eventually(t, func() bool {
		return len(st.Current().Projects.Data) == 1
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, "p2", st.Current().Projects.Data[0].ID)
	assert.Equal(t, 0, cache.Len())
}
