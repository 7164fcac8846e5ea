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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sentrohq/sentro/internal/apierror"
	"github.com/sentrohq/sentro/model"
)

// confirmationHorizon is how long a web ticket may wait for its
// confirmation code to be entered at a kiosk. Must match the interval
// in the expiry and lookup queries.
const confirmationHorizon = time.Hour

// maxCodeAttempts bounds the confirmation code collision retry loop.
// With a 36^6 code space and few hundred active codes a single retry
// is already rare.
const maxCodeAttempts = 5

// generateUniqueConfirmationCode draws random codes until one is not
// attached to any pending ticket. The partial unique index on active
// codes backstops the race between the check and the insert.
func (s *Sentro) generateUniqueConfirmationCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := model.GenerateConfirmationCode()
		if err != nil {
			return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to generate confirmation code", err)
		}

		active, err := s.datasource.ConfirmationCodeActive(ctx, code)
		if err != nil {
			return "", err
		}
		if !active {
			return code, nil
		}

		logrus.Warnf("confirmation code collision on attempt %d, regenerating", attempt+1)
	}

	return "", apierror.NewAPIError(apierror.ErrInternalServer, "Could not allocate a unique confirmation code", nil)
}

// ValidateConfirmationCode looks up the pending ticket behind a code
// without consuming it. Unknown, expired and already-used codes all
// answer not found.
func (s *Sentro) ValidateConfirmationCode(ctx context.Context, code string) (*model.Ticket, error) {
	return s.datasource.GetPendingTicketByCode(ctx, code)
}

// ConfirmAtKiosk consumes a confirmation code and moves the ticket
// into the live queue. Each code confirms exactly one ticket exactly
// once.
func (s *Sentro) ConfirmAtKiosk(ctx context.Context, code string) (*model.Ticket, error) {
	ticket, err := s.datasource.ConfirmTicket(ctx, code)
	if err != nil {
		return nil, err
	}

	s.broadcastQueueUpdate(ctx, ticket.DepartmentID)

	return ticket, nil
}

// CleanupExpiredCodes expires every pending ticket past the one hour
// confirmation horizon and returns how many were expired. Runs from
// the periodic sweep worker and the manual cleanup endpoint.
func (s *Sentro) CleanupExpiredCodes(ctx context.Context) (int64, error) {
	expired, err := s.datasource.ExpireStaleConfirmations(ctx)
	if err != nil {
		return 0, err
	}

	if expired > 0 {
		logrus.Infof("expired %d unconfirmed tickets", expired)
	}

	return expired, nil
}
