package cache

import (
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store is a process-local response cache with per-entry timeouts.
type Store struct {
	c *gocache.Cache
}

func New(cleanupInterval time.Duration) *Store {
	return &Store{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (s *Store) Get(key string) (any, bool) {
	return s.c.Get(key)
}

func (s *Store) Set(key string, value any, ttl time.Duration) {
	s.c.Set(key, value, ttl)
}

func (s *Store) Delete(key string) {
	s.c.Delete(key)
}

// DeletePrefix drops every entry whose key starts with prefix.
func (s *Store) DeletePrefix(prefix string) {
	for key := range s.c.Items() {
		if strings.HasPrefix(key, prefix) {
			s.c.Delete(key)
		}
	}
}

const (
	PrefixLots     = "lots:"
	PrefixSpots    = "spots:"
	PrefixVehicles = "vehicles:"
	PrefixHistory  = "history:"
	PrefixSummary  = "summary:"
)

func KeyLots() string                  { return PrefixLots + "all" }
func KeySpots(lotID int) string        { return fmt.Sprintf("%s%d:", PrefixSpots, lotID) }
func KeyVehicles(userID int) string    { return fmt.Sprintf("%s%d:", PrefixVehicles, userID) }
func KeyHistoryUser(userID int) string { return fmt.Sprintf("%s%d:", PrefixHistory, userID) }
func KeySummary(name string) string    { return PrefixSummary + name }

func KeyHistory(userID, month, year int) string {
	return fmt.Sprintf("%s%d-%d", KeyHistoryUser(userID), year, month)
}
