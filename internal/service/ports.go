package service

import (
	"time"

	"parkease/internal/cache"
	"parkease/internal/domain"
)

// Cache is the response cache the read paths consult and the write paths invalidate.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	DeletePrefix(prefix string)
}

// OccupancyBroadcaster pushes committed occupancy changes to live subscribers.
type OccupancyBroadcaster interface {
	BroadcastOccupancy(event domain.OccupancyEvent)
}

type CacheTTLs struct {
	Lots    time.Duration
	History time.Duration
	Summary time.Duration
}

func remember[T any](c Cache, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if c == nil || ttl <= 0 {
		return load()
	}
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

func invalidate(c Cache, prefixes ...string) {
	if c == nil {
		return
	}
	for _, p := range prefixes {
		c.DeletePrefix(p)
	}
}

// invalidateOccupancy drops every view a park or unpark can change.
func invalidateOccupancy(c Cache, userID int) {
	invalidate(c, cache.PrefixLots, cache.PrefixSpots, cache.KeyVehicles(userID),
		cache.KeyHistoryUser(userID), cache.PrefixSummary)
}
