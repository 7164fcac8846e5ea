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
	"strings"
	"time"
)

// Status represents a ticket's position in its lifecycle.
type Status string

const (
	// StatusPendingConfirmation is the holding state for web-issued tickets
	// until the holder confirms presence at a kiosk.
	StatusPendingConfirmation Status = "pending_confirmation"

	// StatusWaiting means the ticket is visible in the live queue.
	StatusWaiting Status = "waiting"

	// StatusAccepted means staff has called the ticket and service started.
	StatusAccepted Status = "accepted"

	// Terminal statuses. Once a ticket enters one of these its
	// completed_at and duration_minutes are frozen.
	StatusCompleted  Status = "completed"
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
	StatusExpired    Status = "expired"
)

// Source identifies where a ticket was requested from.
type Source string

const (
	SourceWeb   Source = "web"
	SourceKiosk Source = "kiosk"
)

// HolderType tags the kind of account a ticket is linked to.
type HolderType string

const (
	HolderNone    HolderType = "none"
	HolderCitizen HolderType = "citizen"
	HolderStaff   HolderType = "staff"
)

// HolderRef is an explicit reference to the account that requested a
// ticket. Anonymous kiosk walk-ins carry HolderNone and an empty ID.
// The kind is resolved once at request ingress, never by runtime type
// inspection downstream.
type HolderRef struct {
	Kind HolderType `json:"kind"`
	ID   string     `json:"id,omitempty"`
}

// NoHolder returns the reference used for anonymous walk-ins.
func NoHolder() HolderRef {
	return HolderRef{Kind: HolderNone}
}

// CitizenHolder links a ticket to a citizen account.
func CitizenHolder(id string) HolderRef {
	return HolderRef{Kind: HolderCitizen, ID: id}
}

// StaffHolder links a ticket to a staff account.
func StaffHolder(id string) HolderRef {
	return HolderRef{Kind: HolderStaff, ID: id}
}

// Ticket is one queue entry issued to a citizen or kiosk for a
// department service. SequenceNumber is unique and monotonically
// increasing within (department, calendar day); numbers are never
// reused, so a failed insert after allocation leaves a gap rather than
// handing the same number to two people.
type Ticket struct {
	TicketID         string     `json:"queue_id"`
	DepartmentID     string     `json:"department_id"`
	TransactionID    string     `json:"transaction_id"`
	SequenceNumber   int        `json:"sequence_number"`
	DisplayCode      string     `json:"queue_number"`
	Status           Status     `json:"status"`
	Source           Source     `json:"source"`
	Priority         bool       `json:"priority"`
	SeniorCitizen    bool       `json:"senior_citizen"`
	ConfirmationCode string     `json:"confirmation_code,omitempty"`
	Holder           HolderRef  `json:"holder"`
	CancelReason     string     `json:"cancel_reason,omitempty"`
	DurationMinutes  *int       `json:"duration_minutes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`

	// Joined display fields, populated on reads only.
	DepartmentName  string `json:"department_name,omitempty"`
	TransactionName string `json:"transaction_name,omitempty"`
}

// IsTerminal reports whether s is a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusSuccessful, StatusFailed, StatusCanceled, StatusExpired:
		return true
	}
	return false
}

// validTransitions is the full lifecycle. Kiosk tickets are created
// directly in waiting, so the pending_confirmation row only applies to
// web-issued tickets.
var validTransitions = map[Status][]Status{
	StatusPendingConfirmation: {StatusWaiting, StatusExpired},
	StatusWaiting:             {StatusAccepted, StatusCanceled},
	StatusAccepted:            {StatusCompleted, StatusSuccessful, StatusFailed, StatusCanceled},
}

// CanTransition reports whether moving from s to next is a legal
// lifecycle step.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DisplayCode renders the human-facing ticket label from a department
// prefix and a sequence number, e.g. ("ASR", 7) -> "ASR#007".
func DisplayCode(prefix string, sequence int) string {
	return fmt.Sprintf("%s#%03d", strings.ToUpper(prefix), sequence)
}

// MinutesBetween returns whole minutes from start to end, truncated,
// never negative. Used to freeze duration_minutes at terminal
// transitions.
func MinutesBetween(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Minutes())
}

// ServiceStart returns the instant duration is measured from: the
// accept time when staff started service, otherwise creation time.
func (t *Ticket) ServiceStart() time.Time {
	if t.StartedAt != nil {
		return *t.StartedAt
	}
	return t.CreatedAt
}
