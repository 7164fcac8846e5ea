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

package database

import (
	"context"

	"github.com/sentrohq/sentro/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	ticket    // Interface for queue ticket operations
	directory // Interface for the read-only department/transaction directory
}

// ticket defines methods for the queue ticket ledger.
type ticket interface {
	CreateTicket(ctx context.Context, t *model.Ticket, prefix string) (*model.Ticket, error)                 // Allocates the next sequence number and persists the ticket
	GetTicket(ctx context.Context, id string) (*model.Ticket, error)                                         // Retrieves a ticket by ID
	AcceptTicket(ctx context.Context, id string) (*model.Ticket, error)                                      // Moves a waiting ticket to accepted, starting service
	FinalizeTicket(ctx context.Context, id string, to model.Status, from []model.Status, reason string) (*model.Ticket, error) // Applies a terminal transition and freezes duration
	ConfirmTicket(ctx context.Context, code string) (*model.Ticket, error)                                   // Promotes a pending web ticket to waiting, exactly once per code
	GetPendingTicketByCode(ctx context.Context, code string) (*model.Ticket, error)                          // Looks up an unexpired pending ticket by confirmation code
	ConfirmationCodeActive(ctx context.Context, code string) (bool, error)                                   // Reports whether a code is attached to a pending ticket
	ExpireStaleConfirmations(ctx context.Context) (int64, error)                                             // Expires pending tickets past the confirmation horizon
	GetQueueStatus(ctx context.Context, departmentID string) ([]model.Ticket, error)                         // Today's visible queue for a department
	GetTicketHistory(ctx context.Context, departmentID string) ([]model.Ticket, error)                       // Finished tickets, newest first
	GetTodayCompleted(ctx context.Context, departmentID string) ([]model.Ticket, error)                      // Today's finished tickets
	GetHolderTicketsToday(ctx context.Context, holderID string) ([]model.Ticket, error)                      // Today's tickets linked to an account
	CountWaitingToday(ctx context.Context, departmentID, transactionID string) (int, error)                  // Current queue depth for the estimator
	AvgServiceMinutes(ctx context.Context, departmentID, transactionID string) (float64, error)              // Recent average service time for the estimator
	DeleteTicketsForToday(ctx context.Context, departmentID string) (int64, error)                           // Administrative reset of a department's day
}

// directory defines read-only lookups against the department/service directory.
type directory interface {
	GetDepartment(ctx context.Context, id string) (*model.Department, error)
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	GetAllDepartments(ctx context.Context) ([]model.Department, error)
}
