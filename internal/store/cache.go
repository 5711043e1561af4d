package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jaekwang-park/project-board/internal/model"
)

// DefaultNamespace prefixes every key the project cache writes.
const DefaultNamespace = "projects:"

// CacheKey identifies one listing snapshot.
type CacheKey struct {
	Page          int
	Search        string
	Status        model.ProjectStatus
	SortField     model.SortField
	SortDirection model.SortDirection
}

// Normalize fills the listing defaults so equivalent requests share a key.
func (k CacheKey) Normalize() CacheKey {
	if k.Page < 1 {
		k.Page = 1
	}
	k.Search = strings.TrimSpace(k.Search)
	def := model.DefaultSort()
	if !k.SortField.IsValid() {
		k.SortField = def.Field
	}
	if !k.SortDirection.IsValid() {
		k.SortDirection = def.Direction
	}
	return k
}

// Query renders the key as listing query parameters.
func (k CacheKey) Query() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(k.Page))
	if k.Search != "" {
		v.Set("search", k.Search)
	}
	if k.Status != "" {
		v.Set("status", string(k.Status))
	}
	if k.SortField != "" {
		v.Set("sort", string(k.SortField))
	}
	if k.SortDirection != "" {
		v.Set("direction", string(k.SortDirection))
	}
	return v
}

func (k CacheKey) String() string {
	return k.Query().Encode()
}

// Snapshot is a cached listing page together with the state it was
// fetched for.
type Snapshot struct {
	Projects model.ProjectPage    `json:"projects"`
	Filters  model.ProjectFilters `json:"filters"`
	Sort     model.ProjectSort    `json:"sort"`
}

// Cache stores listing snapshots in its own namespace of a Storage.
type Cache struct {
	storage   Storage
	namespace string
}

func NewCache(storage Storage, namespace string) *Cache {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Cache{storage: storage, namespace: namespace}
}

func (c *Cache) storageKey(key CacheKey) string {
	return c.namespace + key.String()
}

// Get returns the snapshot cached under key. Entries that no longer
// decode are dropped.
func (c *Cache) Get(key CacheKey) (Snapshot, bool) {
	sk := c.storageKey(key)
	data, ok := c.storage.Get(sk)
	if !ok {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.storage.Delete(sk)
		return Snapshot{}, false
	}
	return snap, true
}

// Put caches snap under key. When the storage is full the oldest entry
// of this namespace is evicted and the write retried once.
func (c *Cache) Put(key CacheKey, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	sk := c.storageKey(key)
	err = c.storage.Set(sk, data)
	if !errors.Is(err, ErrQuotaExceeded) {
		return err
	}
	if !c.evictOldest() {
		return err
	}
	return c.storage.Set(sk, data)
}

func (c *Cache) evictOldest() bool {
	for _, k := range c.storage.Keys() {
		if strings.HasPrefix(k, c.namespace) {
			c.storage.Delete(k)
			return true
		}
	}
	return false
}

// Clear drops every entry of this namespace.
func (c *Cache) Clear() {
	for _, k := range c.storage.Keys() {
		if strings.HasPrefix(k, c.namespace) {
			c.storage.Delete(k)
		}
	}
}

// Len counts the entries of this namespace.
func (c *Cache) Len() int {
	n := 0
	for _, k := range c.storage.Keys() {
		if strings.HasPrefix(k, c.namespace) {
			n++
		}
	}
	return n
}
