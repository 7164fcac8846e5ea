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

	"github.com/sirupsen/logrus"

	"github.com/sentrohq/sentro/internal/apierror"
	"github.com/sentrohq/sentro/model"
)

// IssueTicket creates a ticket for a department service and returns it
// together with a wait estimate. Kiosk tickets enter the queue as
// waiting; web tickets are held in pending_confirmation behind a
// confirmation code until the holder shows up at a kiosk.
func (s *Sentro) IssueTicket(ctx context.Context, ticket *model.Ticket) (*model.Ticket, *model.WaitEstimate, error) {
	department, err := s.datasource.GetDepartment(ctx, ticket.DepartmentID)
	if err != nil {
		return nil, nil, err
	}
	if !department.Active {
		return nil, nil, apierror.NewAPIError(apierror.ErrBadRequest,
			fmt.Sprintf("Department %s is not accepting tickets", department.Name), nil)
	}

	transaction, err := s.datasource.GetTransaction(ctx, ticket.TransactionID)
	if err != nil {
		return nil, nil, err
	}
	if transaction.DepartmentID != department.DepartmentID {
		return nil, nil, apierror.NewAPIError(apierror.ErrBadRequest,
			"Transaction does not belong to the requested department", nil)
	}

	if ticket.Source == "" {
		ticket.Source = model.SourceKiosk
	}
	if ticket.SeniorCitizen {
		ticket.Priority = true
	}

	if ticket.Source == model.SourceWeb {
		code, err := s.generateUniqueConfirmationCode(ctx)
		if err != nil {
			return nil, nil, err
		}
		ticket.ConfirmationCode = code
		ticket.Status = model.StatusPendingConfirmation
	} else {
		ticket.Status = model.StatusWaiting
	}

	// The estimate reads queue depth outside the allocation critical
	// section; a ticket issued concurrently may make it one slot stale.
	estimate, err := s.EstimateWaitTime(ctx, ticket.DepartmentID, ticket.TransactionID)
	if err != nil {
		return nil, nil, err
	}

	created, err := s.datasource.CreateTicket(ctx, ticket, department.TicketPrefix())
	if err != nil {
		return nil, nil, err
	}
	created.DepartmentName = department.Name
	created.TransactionName = transaction.Name

	if created.Status == model.StatusPendingConfirmation {
		// Line a sweep up right behind this ticket's horizon. The
		// periodic sweep backstops a failed enqueue, so issuance never
		// fails on it.
		if err := s.queue.EnqueueExpirySweep(ctx, confirmationHorizon); err != nil {
			logrus.Warnf("Failed to schedule expiry sweep for %s: %v", created.TicketID, err)
		}
	}

	if created.Status == model.StatusWaiting {
		s.broadcastQueueUpdate(ctx, created.DepartmentID)
	}

	return created, estimate, nil
}

// AcceptTicket calls a waiting ticket to the counter. The ticket's
// display code becomes the department's now-serving entry for up to an
// hour, the length of the longest plausible service.
func (s *Sentro) AcceptTicket(ctx context.Context, id string) (*model.Ticket, error) {
	ticket, err := s.datasource.AcceptTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	s.setNowServing(ctx, ticket.DepartmentID, ticket.DisplayCode, nowServingAcceptTTL)
	s.broadcastQueueUpdate(ctx, ticket.DepartmentID)

	return ticket, nil
}

// CompleteTicket finishes service on an accepted ticket. The service
// duration is frozen at this point and the now-serving entry is
// cleared if it still shows this ticket.
func (s *Sentro) CompleteTicket(ctx context.Context, id string) (*model.Ticket, error) {
	return s.finalize(ctx, id, model.StatusCompleted, []model.Status{model.StatusAccepted}, "")
}

// UpdateTicketStatus closes an accepted ticket as successful or
// failed. Any other target status is rejected before touching storage.
func (s *Sentro) UpdateTicketStatus(ctx context.Context, id string, status model.Status, reason string) (*model.Ticket, error) {
	if status != model.StatusSuccessful && status != model.StatusFailed {
		return nil, apierror.NewAPIError(apierror.ErrValidation,
			"Status must be successful or failed", nil)
	}
	return s.finalize(ctx, id, status, []model.Status{model.StatusAccepted}, reason)
}

// CancelTicket cancels a ticket that is still waiting or being served.
// Tickets already in a terminal state cannot be canceled again.
func (s *Sentro) CancelTicket(ctx context.Context, id string, reason string) (*model.Ticket, error) {
	return s.finalize(ctx, id, model.StatusCanceled,
		[]model.Status{model.StatusWaiting, model.StatusAccepted}, reason)
}

func (s *Sentro) finalize(ctx context.Context, id string, to model.Status, from []model.Status, reason string) (*model.Ticket, error) {
	ticket, err := s.datasource.FinalizeTicket(ctx, id, to, from, reason)
	if err != nil {
		return nil, err
	}

	// Only clear the display if it still shows this ticket; staff may
	// already be serving the next citizen.
	s.clearNowServingIfMatch(ctx, ticket.DepartmentID, ticket.DisplayCode)
	s.broadcastQueueUpdate(ctx, ticket.DepartmentID)

	return ticket, nil
}

// GetTicket retrieves a single ticket by its ID.
func (s *Sentro) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	return s.datasource.GetTicket(ctx, id)
}

// GetQueueStatus returns today's visible queue for a department in
// call order. Pending web tickets do not appear until confirmed.
func (s *Sentro) GetQueueStatus(ctx context.Context, departmentID string) ([]model.Ticket, error) {
	if _, err := s.datasource.GetDepartment(ctx, departmentID); err != nil {
		return nil, err
	}
	return s.datasource.GetQueueStatus(ctx, departmentID)
}

// GetTicketHistory returns a department's finished tickets, newest
// first.
func (s *Sentro) GetTicketHistory(ctx context.Context, departmentID string) ([]model.Ticket, error) {
	if _, err := s.datasource.GetDepartment(ctx, departmentID); err != nil {
		return nil, err
	}
	return s.datasource.GetTicketHistory(ctx, departmentID)
}

// GetTodayCompleted returns a department's tickets finished today.
func (s *Sentro) GetTodayCompleted(ctx context.Context, departmentID string) ([]model.Ticket, error) {
	if _, err := s.datasource.GetDepartment(ctx, departmentID); err != nil {
		return nil, err
	}
	return s.datasource.GetTodayCompleted(ctx, departmentID)
}

// GetHolderTicketsToday returns the tickets an account requested
// today, across departments.
func (s *Sentro) GetHolderTicketsToday(ctx context.Context, holderID string) ([]model.Ticket, error) {
	return s.datasource.GetHolderTicketsToday(ctx, holderID)
}

// ResetQueue deletes all of a department's tickets created today and
// clears its now-serving entry. Returns the number of deleted tickets.
func (s *Sentro) ResetQueue(ctx context.Context, departmentID string) (int64, error) {
	if _, err := s.datasource.GetDepartment(ctx, departmentID); err != nil {
		return 0, err
	}

	deleted, err := s.datasource.DeleteTicketsForToday(ctx, departmentID)
	if err != nil {
		return 0, err
	}

	s.clearNowServing(ctx, departmentID)
	s.broadcastQueueUpdate(ctx, departmentID)

	return deleted, nil
}
