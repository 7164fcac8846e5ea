/*
Copyright 2024 Sentro Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"fmt"
	"math"
)

// DefaultServiceMinutes is used when a department/transaction pair has
// no completed tickets in the averaging window.
const DefaultServiceMinutes = 10.0

// WaitEstimate is the projected wait for a newly issued ticket. It is
// a plain queue-length × average-service-time projection, not a
// statistical model.
type WaitEstimate struct {
	Minutes   int    `json:"minutes"`
	Formatted string `json:"formatted"`
}

// NewWaitEstimate computes the estimate from the current waiting count
// and the recent average service minutes. A non-positive average falls
// back to DefaultServiceMinutes.
func NewWaitEstimate(queueLength int, avgServiceMinutes float64) WaitEstimate {
	if avgServiceMinutes <= 0 {
		avgServiceMinutes = DefaultServiceMinutes
	}
	minutes := int(math.Round(float64(queueLength) * avgServiceMinutes))
	return WaitEstimate{
		Minutes:   minutes,
		Formatted: FormatWaitTime(minutes),
	}
}

// FormatWaitTime renders minutes for display: "30 minutes",
// "2 hours 5 minutes", "1 hour". A zero-minute remainder is dropped.
func FormatWaitTime(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	remaining := minutes % 60
	unit := "hour"
	if hours > 1 {
		unit = "hours"
	}
	if remaining == 0 {
		return fmt.Sprintf("%d %s", hours, unit)
	}
	return fmt.Sprintf("%d %s %d minutes", hours, unit, remaining)
}
