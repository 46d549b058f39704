package service

import (
	"math"
	"time"
)

// BillableHours rounds a stay up to whole hours over whole seconds, with a
// one-hour minimum: 60m bills 1h, 61m bills 2h.
func BillableHours(d time.Duration) int {
	secs := int64(d / time.Second)
	if secs <= 0 {
		return 1
	}
	hours := (secs + 3599) / 3600
	if hours < 1 {
		hours = 1
	}
	return int(hours)
}

// ComputeCost returns the billed hours and the amount owed for a stay.
func ComputeCost(start, end time.Time, pricePerHour float64) (int, float64) {
	hours := BillableHours(end.Sub(start))
	return hours, roundMoney(float64(hours) * pricePerHour)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
