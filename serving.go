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

package sentro

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sentrohq/sentro/model"
)

// Now-serving TTLs. Accepting a ticket keeps the display up for the
// longest plausible service; a manual set is a short-lived override.
const (
	nowServingAcceptTTL = time.Hour
	nowServingManualTTL = 5 * time.Minute
	queueUpdateTTL      = time.Hour
)

// NowServing is the display entry for the ticket currently being
// served at a department's counter.
type NowServing struct {
	DepartmentID string    `json:"department_id"`
	DisplayCode  string    `json:"queue_number"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// QueueUpdate is the broadcast snapshot kiosk displays poll for: the
// ticket being served plus the current queue depth.
type QueueUpdate struct {
	DepartmentID string      `json:"department_id"`
	NowServing   *NowServing `json:"now_serving,omitempty"`
	WaitingCount int         `json:"waiting_count"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func nowServingKey(departmentID string) string {
	return fmt.Sprintf("currently_serving_%s", departmentID)
}

func queueUpdateKey(departmentID string) string {
	return fmt.Sprintf("queue_update_%s", departmentID)
}

// SetNowServing manually points a department's display at a display
// code. Manual overrides live for five minutes.
func (s *Sentro) SetNowServing(ctx context.Context, departmentID, displayCode string) (*NowServing, error) {
	if _, err := s.datasource.GetDepartment(ctx, departmentID); err != nil {
		return nil, err
	}

	entry := &NowServing{
		DepartmentID: departmentID,
		DisplayCode:  displayCode,
		UpdatedAt:    time.Now(),
	}
	if err := s.cache.Set(ctx, nowServingKey(departmentID), entry, nowServingManualTTL); err != nil {
		return nil, err
	}

	s.broadcastQueueUpdate(ctx, departmentID)
	return entry, nil
}

// GetNowServing returns a department's current display entry, or nil
// when nothing is being served.
func (s *Sentro) GetNowServing(ctx context.Context, departmentID string) (*NowServing, error) {
	var entry NowServing
	if err := s.cache.Get(ctx, nowServingKey(departmentID), &entry); err != nil {
		return nil, err
	}
	if entry.DisplayCode == "" {
		return nil, nil
	}
	return &entry, nil
}

// GetAllNowServing returns the display entries of every department
// that is currently serving someone.
func (s *Sentro) GetAllNowServing(ctx context.Context) ([]NowServing, error) {
	departments, err := s.datasource.GetAllDepartments(ctx)
	if err != nil {
		return nil, err
	}

	serving := []NowServing{}
	for _, department := range departments {
		entry, err := s.GetNowServing(ctx, department.DepartmentID)
		if err != nil {
			logrus.Warnf("failed to read now-serving for %s: %v", department.DepartmentID, err)
			continue
		}
		if entry != nil {
			serving = append(serving, *entry)
		}
	}
	return serving, nil
}

// ClearAllNowServing wipes every department's display entry. Runs at
// the daily rollover and on server start so yesterday's codes never
// linger on the displays.
func (s *Sentro) ClearAllNowServing(ctx context.Context) error {
	departments, err := s.datasource.GetAllDepartments(ctx)
	if err != nil {
		return err
	}

	for _, department := range departments {
		s.clearNowServing(ctx, department.DepartmentID)
	}
	return nil
}

// GetLatestUpdate returns the broadcast snapshot for one department,
// or nil when none has been published yet.
func (s *Sentro) GetLatestUpdate(ctx context.Context, departmentID string) (*QueueUpdate, error) {
	if _, err := s.datasource.GetDepartment(ctx, departmentID); err != nil {
		return nil, err
	}

	var update QueueUpdate
	if err := s.cache.Get(ctx, queueUpdateKey(departmentID), &update); err != nil {
		return nil, err
	}
	if update.DepartmentID == "" {
		return nil, nil
	}
	return &update, nil
}

// GetLatestUpdates returns the broadcast snapshots of all departments
// that have published one.
func (s *Sentro) GetLatestUpdates(ctx context.Context) ([]QueueUpdate, error) {
	departments, err := s.datasource.GetAllDepartments(ctx)
	if err != nil {
		return nil, err
	}

	updates := []QueueUpdate{}
	for _, department := range departments {
		var update QueueUpdate
		if err := s.cache.Get(ctx, queueUpdateKey(department.DepartmentID), &update); err != nil {
			logrus.Warnf("failed to read queue update for %s: %v", department.DepartmentID, err)
			continue
		}
		if update.DepartmentID != "" {
			updates = append(updates, update)
		}
	}
	return updates, nil
}

// setNowServing writes the display entry after a ticket is accepted.
// Cache trouble never fails the accept; the display just goes stale.
func (s *Sentro) setNowServing(ctx context.Context, departmentID, displayCode string, ttl time.Duration) {
	entry := &NowServing{
		DepartmentID: departmentID,
		DisplayCode:  displayCode,
		UpdatedAt:    time.Now(),
	}
	if err := s.cache.Set(ctx, nowServingKey(departmentID), entry, ttl); err != nil {
		logrus.Warnf("failed to set now-serving for %s: %v", departmentID, err)
	}
}

// clearNowServingIfMatch clears the display only when it still shows
// the given code. A finished or canceled ticket must not blank the
// display if staff has already called the next one.
func (s *Sentro) clearNowServingIfMatch(ctx context.Context, departmentID, displayCode string) {
	current, err := s.GetNowServing(ctx, departmentID)
	if err != nil {
		logrus.Warnf("failed to read now-serving for %s: %v", departmentID, err)
		return
	}
	if current == nil || current.DisplayCode != displayCode {
		return
	}
	s.clearNowServing(ctx, departmentID)
}

func (s *Sentro) clearNowServing(ctx context.Context, departmentID string) {
	if err := s.cache.Delete(ctx, nowServingKey(departmentID)); err != nil {
		logrus.Warnf("failed to clear now-serving for %s: %v", departmentID, err)
	}
}

// broadcastQueueUpdate publishes a fresh snapshot for kiosk displays
// after any queue mutation. Failures are soft; the next mutation
// publishes again.
func (s *Sentro) broadcastQueueUpdate(ctx context.Context, departmentID string) {
	tickets, err := s.datasource.GetQueueStatus(ctx, departmentID)
	if err != nil {
		logrus.Warnf("failed to build queue update for %s: %v", departmentID, err)
		return
	}

	waiting := 0
	for _, ticket := range tickets {
		if ticket.Status == model.StatusWaiting {
			waiting++
		}
	}

	serving, err := s.GetNowServing(ctx, departmentID)
	if err != nil {
		logrus.Warnf("failed to read now-serving for %s: %v", departmentID, err)
	}

	update := &QueueUpdate{
		DepartmentID: departmentID,
		NowServing:   serving,
		WaitingCount: waiting,
		UpdatedAt:    time.Now(),
	}
	if err := s.cache.Set(ctx, queueUpdateKey(departmentID), update, queueUpdateTTL); err != nil {
		logrus.Warnf("failed to publish queue update for %s: %v", departmentID, err)
	}
}
