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
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/sentrohq/sentro/internal/apierror"
	"github.com/sentrohq/sentro/model"
)

// ticketColumns is the canonical column list for ticket reads and
// RETURNING clauses. Keep scanTicket in sync with it.
const ticketColumns = `ticket_id, department_id, transaction_id, sequence_number, display_code,
	status, source, priority, senior_citizen, confirmation_code, holder_kind, holder_id,
	cancel_reason, duration_minutes, created_at, confirmed_at, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row rowScanner, extra ...interface{}) (*model.Ticket, error) {
	ticket := model.Ticket{}
	var (
		confirmationCode sql.NullString
		holderID         sql.NullString
		cancelReason     sql.NullString
		durationMinutes  sql.NullInt64
		confirmedAt      sql.NullTime
		startedAt        sql.NullTime
		completedAt      sql.NullTime
	)

	dest := []interface{}{
		&ticket.TicketID, &ticket.DepartmentID, &ticket.TransactionID, &ticket.SequenceNumber,
		&ticket.DisplayCode, &ticket.Status, &ticket.Source, &ticket.Priority, &ticket.SeniorCitizen,
		&confirmationCode, &ticket.Holder.Kind, &holderID, &cancelReason, &durationMinutes,
		&ticket.CreatedAt, &confirmedAt, &startedAt, &completedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	ticket.ConfirmationCode = confirmationCode.String
	ticket.Holder.ID = holderID.String
	ticket.CancelReason = cancelReason.String
	if durationMinutes.Valid {
		minutes := int(durationMinutes.Int64)
		ticket.DurationMinutes = &minutes
	}
	if confirmedAt.Valid {
		ticket.ConfirmedAt = &confirmedAt.Time
	}
	if startedAt.Valid {
		ticket.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		ticket.CompletedAt = &completedAt.Time
	}

	return &ticket, nil
}

func statusStrings(statuses []model.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// CreateTicket allocates the next sequence number for the ticket's
// department today and persists the row, all inside one transaction.
// A per-(department, day) advisory lock serializes the read-max-then-
// insert section; a plain row lock cannot cover the first ticket of
// the day, which has no row to lock yet. If the insert fails after
// allocation the number is consumed: the next issuance reads the
// committed maximum again, so a gap is possible but a number is never
// handed out twice.
func (d Datasource) CreateTicket(ctx context.Context, ticket *model.Ticket, prefix string) (*model.Ticket, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to start ticket transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		SELECT pg_advisory_xact_lock(hashtext($1 || ':' || CURRENT_DATE::text))
	`, ticket.DepartmentID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock ticket sequence", err)
	}

	var lastSequence int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(sequence_number), 0)
		FROM tickets
		WHERE department_id = $1 AND created_at::date = CURRENT_DATE
	`, ticket.DepartmentID).Scan(&lastSequence)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read ticket sequence", err)
	}

	ticket.TicketID = model.GenerateUUIDWithSuffix("tkt")
	ticket.SequenceNumber = lastSequence + 1
	ticket.DisplayCode = model.DisplayCode(prefix, ticket.SequenceNumber)

	// The database clock stamps the row. Day scoping in the sequence
	// read, the unique index and the reset all compare against
	// CURRENT_DATE, so the same clock must decide which day the ticket
	// belongs to.
	err = tx.QueryRowContext(ctx, `
		INSERT INTO tickets (ticket_id, department_id, transaction_id, sequence_number, display_code,
			status, source, priority, senior_citizen, confirmation_code, holder_kind, holder_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, NULLIF($12, ''), NOW())
		RETURNING created_at
	`, ticket.TicketID, ticket.DepartmentID, ticket.TransactionID, ticket.SequenceNumber,
		ticket.DisplayCode, ticket.Status, ticket.Source, ticket.Priority, ticket.SeniorCitizen,
		ticket.ConfirmationCode, ticket.Holder.Kind, ticket.Holder.ID).Scan(&ticket.CreatedAt)
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "unique_violation" {
			return nil, apierror.NewAPIError(apierror.ErrConflict, "Ticket number already taken, please retry", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create ticket", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit ticket", err)
	}

	return ticket, nil
}

func (d Datasource) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s, d.name, tr.name
		FROM tickets t
		JOIN departments d ON t.department_id = d.department_id
		JOIN transactions tr ON t.transaction_id = tr.transaction_id
		WHERE t.ticket_id = $1
	`, prefixedTicketColumns()), id)

	ticket := model.Ticket{}
	result, err := scanTicket(row, &ticket.DepartmentName, &ticket.TransactionName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Ticket not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve ticket", err)
	}
	result.DepartmentName = ticket.DepartmentName
	result.TransactionName = ticket.TransactionName

	return result, nil
}

// AcceptTicket moves a waiting ticket to accepted and starts the
// service clock. started_at is only set when absent, so re-accepting
// after a staff handover keeps the original start time.
func (d Datasource) AcceptTicket(ctx context.Context, id string) (*model.Ticket, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE tickets
		SET status = $2, started_at = COALESCE(started_at, NOW())
		WHERE ticket_id = $1 AND status = $3
		RETURNING %s
	`, ticketColumns), id, model.StatusAccepted, model.StatusWaiting)

	ticket, err := scanTicket(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, d.transitionError(ctx, id, "accepted")
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to accept ticket", err)
	}

	return ticket, nil
}

// FinalizeTicket applies a terminal transition. The conditional WHERE
// on the current status makes the transition atomic: a ticket already
// finished by a concurrent request simply matches zero rows.
// duration_minutes is computed and frozen here, never recomputed.
func (d Datasource) FinalizeTicket(ctx context.Context, id string, to model.Status, from []model.Status, reason string) (*model.Ticket, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE tickets
		SET status = $2,
			completed_at = NOW(),
			duration_minutes = FLOOR(EXTRACT(EPOCH FROM (NOW() - COALESCE(started_at, created_at))) / 60)::int,
			cancel_reason = NULLIF($3, '')
		WHERE ticket_id = $1 AND status = ANY($4)
		RETURNING %s
	`, ticketColumns), id, to, reason, pq.Array(statusStrings(from)))

	ticket, err := scanTicket(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, d.transitionError(ctx, id, string(to))
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update ticket status", err)
	}

	return ticket, nil
}

// transitionError distinguishes a missing ticket from an illegal
// transition after a conditional update matched no rows.
func (d Datasource) transitionError(ctx context.Context, id, attempted string) error {
	var current string
	err := d.Conn.QueryRowContext(ctx, `
		SELECT status FROM tickets WHERE ticket_id = $1
	`, id).Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			return apierror.NewAPIError(apierror.ErrNotFound, "Ticket not found", err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve ticket", err)
	}
	return apierror.NewAPIError(apierror.ErrInvalidTransition,
		fmt.Sprintf("Ticket cannot be %s from status %s", attempted, current), nil)
}

// ConfirmTicket promotes a pending web ticket to waiting. The single
// conditional update is the critical section: two concurrent confirms
// with the same code race on the status check, and exactly one wins.
func (d Datasource) ConfirmTicket(ctx context.Context, code string) (*model.Ticket, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE tickets
		SET status = $2, confirmed_at = NOW()
		WHERE confirmation_code = $1
			AND status = $3
			AND created_at >= NOW() - INTERVAL '1 hour'
		RETURNING %s
	`, ticketColumns), code, model.StatusWaiting, model.StatusPendingConfirmation)

	ticket, err := scanTicket(row)
	if err != nil {
		if err == sql.ErrNoRows {
			// Unknown, already confirmed and expired codes all answer
			// the same so the endpoint is useless as a guessing oracle.
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Invalid or expired confirmation code", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to confirm ticket", err)
	}

	return ticket, nil
}

func (d Datasource) GetPendingTicketByCode(ctx context.Context, code string) (*model.Ticket, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s, d.name, tr.name
		FROM tickets t
		JOIN departments d ON t.department_id = d.department_id
		JOIN transactions tr ON t.transaction_id = tr.transaction_id
		WHERE t.confirmation_code = $1
			AND t.status = $2
			AND t.created_at >= NOW() - INTERVAL '1 hour'
	`, prefixedTicketColumns()), code, model.StatusPendingConfirmation)

	ticket := model.Ticket{}
	result, err := scanTicket(row, &ticket.DepartmentName, &ticket.TransactionName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Invalid or expired confirmation code", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to validate confirmation code", err)
	}
	result.DepartmentName = ticket.DepartmentName
	result.TransactionName = ticket.TransactionName

	return result, nil
}

func (d Datasource) ConfirmationCodeActive(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := d.Conn.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tickets WHERE confirmation_code = $1 AND status = $2
		)
	`, code, model.StatusPendingConfirmation).Scan(&exists)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check confirmation code", err)
	}
	return exists, nil
}

// ExpireStaleConfirmations moves every pending ticket past the one
// hour confirmation horizon to expired and reports how many rows were
// touched.
func (d Datasource) ExpireStaleConfirmations(ctx context.Context) (int64, error) {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE tickets
		SET status = $1
		WHERE status = $2 AND created_at < NOW() - INTERVAL '1 hour'
	`, model.StatusExpired, model.StatusPendingConfirmation)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to expire confirmation codes", err)
	}

	expired, err := result.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count expired codes", err)
	}
	return expired, nil
}

// GetQueueStatus returns today's live queue for a department in call
// order. Pending web tickets are excluded until confirmed.
func (d Datasource) GetQueueStatus(ctx context.Context, departmentID string) ([]model.Ticket, error) {
	rows, err := d.Conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s, d.name, tr.name
		FROM tickets t
		JOIN departments d ON t.department_id = d.department_id
		JOIN transactions tr ON t.transaction_id = tr.transaction_id
		WHERE t.department_id = $1
			AND t.created_at::date = CURRENT_DATE
			AND t.status = ANY($2)
		ORDER BY t.sequence_number ASC
	`, prefixedTicketColumns()), departmentID,
		pq.Array(statusStrings([]model.Status{model.StatusWaiting, model.StatusAccepted})))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve queue status", err)
	}
	defer rows.Close()

	return collectTickets(rows)
}

func (d Datasource) GetTicketHistory(ctx context.Context, departmentID string) ([]model.Ticket, error) {
	rows, err := d.Conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s, d.name, tr.name
		FROM tickets t
		JOIN departments d ON t.department_id = d.department_id
		JOIN transactions tr ON t.transaction_id = tr.transaction_id
		WHERE t.department_id = $1 AND t.status = ANY($2)
		ORDER BY t.completed_at DESC
	`, prefixedTicketColumns()), departmentID, pq.Array(statusStrings(finishedStatuses())))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve ticket history", err)
	}
	defer rows.Close()

	return collectTickets(rows)
}

func (d Datasource) GetTodayCompleted(ctx context.Context, departmentID string) ([]model.Ticket, error) {
	rows, err := d.Conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s, d.name, tr.name
		FROM tickets t
		JOIN departments d ON t.department_id = d.department_id
		JOIN transactions tr ON t.transaction_id = tr.transaction_id
		WHERE t.department_id = $1
			AND t.status = ANY($2)
			AND t.completed_at::date = CURRENT_DATE
		ORDER BY t.completed_at DESC
	`, prefixedTicketColumns()), departmentID, pq.Array(statusStrings(finishedStatuses())))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve today's completed tickets", err)
	}
	defer rows.Close()

	return collectTickets(rows)
}

func (d Datasource) GetHolderTicketsToday(ctx context.Context, holderID string) ([]model.Ticket, error) {
	rows, err := d.Conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s, d.name, tr.name
		FROM tickets t
		JOIN departments d ON t.department_id = d.department_id
		JOIN transactions tr ON t.transaction_id = tr.transaction_id
		WHERE t.holder_id = $1 AND t.created_at::date = CURRENT_DATE
		ORDER BY t.created_at DESC
	`, prefixedTicketColumns()), holderID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve holder tickets", err)
	}
	defer rows.Close()

	return collectTickets(rows)
}

func (d Datasource) CountWaitingToday(ctx context.Context, departmentID, transactionID string) (int, error) {
	var count int
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM tickets
		WHERE department_id = $1
			AND transaction_id = $2
			AND status = $3
			AND created_at::date = CURRENT_DATE
	`, departmentID, transactionID, model.StatusWaiting).Scan(&count)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count waiting tickets", err)
	}
	return count, nil
}

// AvgServiceMinutes returns the mean minutes from creation to
// completion over the last 7 days of completed tickets for the
// department/transaction pair, or 0 when there is no history.
func (d Datasource) AvgServiceMinutes(ctx context.Context, departmentID, transactionID string) (float64, error) {
	var avg float64
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - created_at)) / 60), 0)
		FROM tickets
		WHERE department_id = $1
			AND transaction_id = $2
			AND status = $3
			AND completed_at IS NOT NULL
			AND created_at >= NOW() - INTERVAL '7 days'
	`, departmentID, transactionID, model.StatusCompleted).Scan(&avg)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to compute average service time", err)
	}
	return avg, nil
}

// DeleteTicketsForToday removes all of a department's tickets created
// today, regardless of status. This backs the administrative queue
// reset and is the only deletion path in the ledger.
func (d Datasource) DeleteTicketsForToday(ctx context.Context, departmentID string) (int64, error) {
	result, err := d.Conn.ExecContext(ctx, `
		DELETE FROM tickets
		WHERE department_id = $1 AND created_at::date = CURRENT_DATE
	`, departmentID)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to reset queue", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count deleted tickets", err)
	}
	return deleted, nil
}

func collectTickets(rows *sql.Rows) ([]model.Ticket, error) {
	tickets := []model.Ticket{}

	for rows.Next() {
		var departmentName, transactionName string
		ticket, err := scanTicket(rows, &departmentName, &transactionName)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan ticket data", err)
		}
		ticket.DepartmentName = departmentName
		ticket.TransactionName = transactionName
		tickets = append(tickets, *ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over tickets", err)
	}

	return tickets, nil
}

func finishedStatuses() []model.Status {
	return []model.Status{model.StatusCompleted, model.StatusSuccessful, model.StatusFailed, model.StatusCanceled}
}

// prefixedTicketColumns qualifies the shared column list with the
// tickets alias for joined queries.
func prefixedTicketColumns() string {
	return `t.ticket_id, t.department_id, t.transaction_id, t.sequence_number, t.display_code,
	t.status, t.source, t.priority, t.senior_citizen, t.confirmation_code, t.holder_kind, t.holder_id,
	t.cancel_reason, t.duration_minutes, t.created_at, t.confirmed_at, t.started_at, t.completed_at`
}
