package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBillableHours(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want int
	}{
		{"zero", 0, 1},
		{"negative clock skew", -time.Minute, 1},
		{"one second", time.Second, 1},
		{"thirty minutes", 30 * time.Minute, 1},
		{"exactly one hour", time.Hour, 1},
		{"one hour one second", time.Hour + time.Second, 2},
		{"sub-second over the hour is ignored", time.Hour + 500*time.Millisecond, 1},
		{"sixty one minutes", 61 * time.Minute, 2},
		{"ninety minutes", 90 * time.Minute, 2},
		{"exactly two hours", 2 * time.Hour, 2},
		{"two hours one minute", 2*time.Hour + time.Minute, 3},
		{"a day", 24 * time.Hour, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BillableHours(tt.d))
		})
	}
}

func TestComputeCost(t *testing.T) {
	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	hours, cost := ComputeCost(start, start.Add(90*time.Minute), 20)
	assert.Equal(t, 2, hours)
	assert.Equal(t, 40.0, cost)

	hours, cost = ComputeCost(start, start.Add(10*time.Minute), 12.5)
	assert.Equal(t, 1, hours)
	assert.Equal(t, 12.5, cost)

	_, cost = ComputeCost(start, start.Add(3*time.Hour), 33.333)
	assert.Equal(t, 100.0, cost)
}
