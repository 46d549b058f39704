package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStoreDeletePrefix(t *testing.T) {
	s := New(time.Minute)
	s.Set(KeyHistory(7, 3, 2024), "march", time.Minute)
	s.Set(KeyHistory(7, 4, 2024), "april", time.Minute)
	s.Set(KeyHistory(70, 4, 2024), "other user", time.Minute)
	s.Set(KeyLots(), "lots", time.Minute)

	s.DeletePrefix(KeyHistoryUser(7))

	_, ok := s.Get(KeyHistory(7, 3, 2024))
	assert.False(t, ok)
	_, ok = s.Get(KeyHistory(7, 4, 2024))
	assert.False(t, ok)
	v, ok := s.Get(KeyHistory(70, 4, 2024))
	assert.True(t, ok)
	assert.Equal(t, "other user", v)
	_, ok = s.Get(KeyLots())
	assert.True(t, ok)
}

func TestStoreExpiry(t *testing.T) {
	s := New(time.Minute)
	s.Set(KeySpots(1), "spots", 20*time.Millisecond)

	_, ok := s.Get(KeySpots(1))
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := s.Get(KeySpots(1))
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestVehicleKeysDoNotShareUserPrefix(t *testing.T) {
	s := New(time.Minute)
	s.Set(KeyVehicles(1), "user one", time.Minute)
	s.Set(KeyVehicles(10), "user ten", time.Minute)
	s.Set(KeyVehicles(12), "user twelve", time.Minute)

	s.DeletePrefix(KeyVehicles(1))

	_, ok := s.Get(KeyVehicles(1))
	assert.False(t, ok)
	v, ok := s.Get(KeyVehicles(10))
	assert.True(t, ok)
	assert.Equal(t, "user ten", v)
	_, ok = s.Get(KeyVehicles(12))
	assert.True(t, ok)

	s.Set(KeySpots(1), "lot one", time.Minute)
	s.Set(KeySpots(10), "lot ten", time.Minute)
	s.DeletePrefix(KeySpots(1))
	_, ok = s.Get(KeySpots(10))
	assert.True(t, ok)
}
