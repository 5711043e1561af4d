package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jaekwang-park/project-board/internal/store"
)

const maxErrorBody = 4 << 10

type page struct {
	Component string         `json:"component"`
	Props     store.Snapshot `json:"props"`
}

// FetchProjects loads the listing page described by key.
func (c *Client) FetchProjects(ctx context.Context, key store.CacheKey) (store.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/projects?"+key.Query().Encode(), nil)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to fetch projects: %w", err)
	}
	defer resp.Body.Close()

	if isLoginRedirect(resp) {
		return store.Snapshot{}, ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return store.Snapshot{}, fmt.Errorf("failed to fetch projects: status %d: %s", resp.StatusCode, body)
	}

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to decode project page: %w", err)
	}
	return p.Props, nil
}

var _ store.Fetcher = (*Client)(nil)
