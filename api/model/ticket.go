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
	"time"

	"github.com/sentrohq/sentro/model"
)

// GenerateTicket is the request body for issuing a new queue ticket.
// Source defaults to kiosk when omitted. A holder is optional; kiosk
// walk-ins are anonymous.
type GenerateTicket struct {
	DepartmentID  string `json:"department_id"`
	TransactionID string `json:"transaction_id"`
	Source        string `json:"source"`
	Priority      bool   `json:"priority"`
	SeniorCitizen bool   `json:"senior_citizen"`
	HolderKind    string `json:"holder_kind"`
	HolderID      string `json:"holder_id"`
}

// ConfirmationCode is the request body for code validation and kiosk
// confirmation.
type ConfirmationCode struct {
	Code string `json:"confirmation_code"`
}

// TicketAction targets an existing ticket by its queue ID.
type TicketAction struct {
	QueueID string `json:"queue_id"`
}

// UpdateTicketStatus closes an accepted ticket as successful or
// failed.
type UpdateTicketStatus struct {
	QueueID      string `json:"queue_id"`
	Status       string `json:"status"`
	CancelReason string `json:"cancel_reason"`
}

// CancelTicket cancels a waiting or accepted ticket.
type CancelTicket struct {
	QueueID      string `json:"queue_id"`
	CancelReason string `json:"cancel_reason"`
}

// SetNowServing manually points a department display at a queue
// number.
type SetNowServing struct {
	DepartmentID string `json:"department_id"`
	QueueNumber  string `json:"queue_number"`
}

// ToTicket converts the request into a domain ticket. The holder
// reference is resolved here, at ingress, so downstream code never
// inspects raw holder fields.
func (g *GenerateTicket) ToTicket() *model.Ticket {
	holder := model.NoHolder()
	if g.HolderID != "" {
		switch model.HolderType(g.HolderKind) {
		case model.HolderStaff:
			holder = model.StaffHolder(g.HolderID)
		default:
			holder = model.CitizenHolder(g.HolderID)
		}
	}

	return &model.Ticket{
		DepartmentID:  g.DepartmentID,
		TransactionID: g.TransactionID,
		Source:        model.Source(g.Source),
		Priority:      g.Priority,
		SeniorCitizen: g.SeniorCitizen,
		Holder:        holder,
	}
}

// TicketIssued is the response body for a freshly issued ticket.
type TicketIssued struct {
	QueueID           string    `json:"queue_id"`
	QueueNumber       string    `json:"queue_number"`
	Status            string    `json:"status"`
	Priority          bool      `json:"priority"`
	SeniorCitizen     bool      `json:"senior_citizen"`
	Department        string    `json:"department"`
	Transaction       string    `json:"transaction"`
	EstimatedWaitTime string    `json:"estimated_wait_time"`
	ConfirmationCode  string    `json:"confirmation_code,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewTicketIssued builds the issuance response from the created ticket
// and its wait estimate.
func NewTicketIssued(ticket *model.Ticket, estimate *model.WaitEstimate) TicketIssued {
	return TicketIssued{
		QueueID:           ticket.TicketID,
		QueueNumber:       ticket.DisplayCode,
		Status:            string(ticket.Status),
		Priority:          ticket.Priority,
		SeniorCitizen:     ticket.SeniorCitizen,
		Department:        ticket.DepartmentName,
		Transaction:       ticket.TransactionName,
		EstimatedWaitTime: estimate.Formatted,
		ConfirmationCode:  ticket.ConfirmationCode,
		Timestamp:         ticket.CreatedAt,
	}
}
