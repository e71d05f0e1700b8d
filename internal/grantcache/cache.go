// Package grantcache keeps the grant a client redeemed so it does not have to
// re-validate the link on every page view.
//
// A cached grant is trusted until the earlier of two bounds: the server's
// expires_at, when the link has one, and a client-side TTL stamped at save
// time. The client bound caps staleness after an admin revokes a link.
package grantcache

import (
	"content-storefront/internal/model"
	"encoding/json"
	"fmt"
	"time"
)

// Key is the storage slot the grant is kept under.
const Key = "storefront.access_grant"

const DefaultTTL = 24 * time.Hour

// Storage is a minimal key/value slot store.
type Storage interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

type Cache struct {
	storage Storage
	ttl     time.Duration
	now     func() time.Time
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(storage Storage, opts ...Option) *Cache {
	c := &Cache{
		storage: storage,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Save stores a copy of grant stamped with a local expiry of now+TTL,
// whatever the server expiry is, and returns the stored copy.
func (c *Cache) Save(grant *model.ResolvedGrant) (*model.ResolvedGrant, error) {
	if grant == nil {
		return nil, fmt.Errorf("save nil grant")
	}

	stored := *grant
	local := c.now().UTC().Add(c.ttl)
	stored.LocalExpiresAt = &local

	data, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("encode grant: %w", err)
	}
	if err := c.storage.Set(Key, data); err != nil {
		return nil, fmt.Errorf("store grant: %w", err)
	}

	return &stored, nil
}

// Read returns the cached grant, or nil when there is none. An expired or
// unreadable entry is purged and reported as absent.
func (c *Cache) Read() (*model.ResolvedGrant, error) {
	data, ok, err := c.storage.Get(Key)
	if err != nil {
		return nil, fmt.Errorf("load grant: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var grant model.ResolvedGrant
	if err := json.Unmarshal(data, &grant); err != nil || grant.LocalExpiresAt == nil {
		return nil, c.Clear()
	}

	now := c.now()
	if !grant.LocalExpiresAt.After(now) || (grant.ExpiresAt != nil && !grant.ExpiresAt.After(now)) {
		return nil, c.Clear()
	}

	return &grant, nil
}

func (c *Cache) Clear() error {
	if err := c.storage.Delete(Key); err != nil {
		return fmt.Errorf("clear grant: %w", err)
	}
	return nil
}
