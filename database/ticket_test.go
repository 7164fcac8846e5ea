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
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrohq/sentro/internal/apierror"
	"github.com/sentrohq/sentro/model"
)

func newTestDatasource(t *testing.T) (Datasource, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return Datasource{Conn: db}, mock
}

func ticketRowColumns() []string {
	return []string{
		"ticket_id", "department_id", "transaction_id", "sequence_number", "display_code",
		"status", "source", "priority", "senior_citizen", "confirmation_code", "holder_kind",
		"holder_id", "cancel_reason", "duration_minutes", "created_at", "confirmed_at",
		"started_at", "completed_at",
	}
}

func sampleTicketRow(id string, status model.Status) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(ticketRowColumns()).AddRow(
		id, "dept_asr", "txn_cert", 7, "ASR#007",
		string(status), "kiosk", false, false, nil, "none",
		nil, nil, nil, now, nil, nil, nil,
	)
}

func TestCreateTicketAllocatesNextSequence(t *testing.T) {
	ds, mock := newTestDatasource(t)

	ticket := &model.Ticket{
		DepartmentID:  "dept_asr",
		TransactionID: "txn_cert",
		Status:        model.StatusWaiting,
		Source:        model.SourceKiosk,
		Holder:        model.NoHolder(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WithArgs("dept_asr").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(sequence_number), 0)")).
		WithArgs("dept_asr").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(6))
	dbNow := time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tickets")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(dbNow))
	mock.ExpectCommit()

	created, err := ds.CreateTicket(context.Background(), ticket, "ASR")
	require.NoError(t, err)

	assert.Equal(t, 7, created.SequenceNumber)
	assert.Equal(t, "ASR#007", created.DisplayCode)
	assert.Contains(t, created.TicketID, "tkt_")
	// The row carries the database clock's timestamp, the same clock
	// that scopes sequence numbers to a calendar day.
	assert.Equal(t, dbNow, created.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTicketFirstOfDay(t *testing.T) {
	ds, mock := newTestDatasource(t)

	ticket := &model.Ticket{
		DepartmentID:  "dept_tre",
		TransactionID: "txn_pay",
		Status:        model.StatusWaiting,
		Source:        model.SourceKiosk,
		Holder:        model.NoHolder(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WithArgs("dept_tre").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(sequence_number), 0)")).
		WithArgs("dept_tre").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tickets")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	created, err := ds.CreateTicket(context.Background(), ticket, "TRE")
	require.NoError(t, err)

	assert.Equal(t, 1, created.SequenceNumber)
	assert.Equal(t, "TRE#001", created.DisplayCode)
}

func TestCreateTicketUniqueViolationMapsToConflict(t *testing.T) {
	ds, mock := newTestDatasource(t)

	ticket := &model.Ticket{
		DepartmentID:  "dept_asr",
		TransactionID: "txn_cert",
		Status:        model.StatusWaiting,
		Source:        model.SourceKiosk,
		Holder:        model.NoHolder(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WithArgs("dept_asr").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(sequence_number), 0)")).
		WithArgs("dept_asr").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tickets")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := ds.CreateTicket(context.Background(), ticket, "ASR")
	require.Error(t, err)

	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
}

func TestAcceptTicketFromWaiting(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tickets")).
		WithArgs("tkt_123", model.StatusAccepted, model.StatusWaiting).
		WillReturnRows(sampleTicketRow("tkt_123", model.StatusAccepted))

	ticket, err := ds.AcceptTicket(context.Background(), "tkt_123")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, ticket.Status)
}

func TestAcceptTicketNotWaitingReturnsInvalidTransition(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tickets")).
		WithArgs("tkt_123", model.StatusAccepted, model.StatusWaiting).
		WillReturnRows(sqlmock.NewRows(ticketRowColumns()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM tickets")).
		WithArgs("tkt_123").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

	_, err := ds.AcceptTicket(context.Background(), "tkt_123")
	require.Error(t, err)

	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrInvalidTransition, apiErr.Code)
}

func TestAcceptTicketMissingReturnsNotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tickets")).
		WithArgs("tkt_missing", model.StatusAccepted, model.StatusWaiting).
		WillReturnRows(sqlmock.NewRows(ticketRowColumns()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM tickets")).
		WithArgs("tkt_missing").
		WillReturnError(sql.ErrNoRows)

	_, err := ds.AcceptTicket(context.Background(), "tkt_missing")
	require.Error(t, err)

	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestFinalizeTicketFreezesDuration(t *testing.T) {
	ds, mock := newTestDatasource(t)

	now := time.Now()
	started := now.Add(-12 * time.Minute)
	duration := 12
	rows := sqlmock.NewRows(ticketRowColumns()).AddRow(
		"tkt_123", "dept_asr", "txn_cert", 7, "ASR#007",
		string(model.StatusCompleted), "kiosk", false, false, nil, "none",
		nil, nil, duration, now.Add(-30*time.Minute), nil, started, now,
	)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tickets")).
		WithArgs("tkt_123", model.StatusCompleted, "", pq.Array([]string{"accepted"})).
		WillReturnRows(rows)

	ticket, err := ds.FinalizeTicket(context.Background(), "tkt_123", model.StatusCompleted, []model.Status{model.StatusAccepted}, "")
	require.NoError(t, err)

	require.NotNil(t, ticket.DurationMinutes)
	assert.Equal(t, 12, *ticket.DurationMinutes)
	assert.Equal(t, model.StatusCompleted, ticket.Status)
	require.NotNil(t, ticket.CompletedAt)
}

func TestFinalizeTicketCancelKeepsReason(t *testing.T) {
	ds, mock := newTestDatasource(t)

	reason := "Citizen left before being served"
	now := time.Now()
	duration := 5
	rows := sqlmock.NewRows(ticketRowColumns()).AddRow(
		"tkt_123", "dept_asr", "txn_cert", 7, "ASR#007",
		string(model.StatusCanceled), "kiosk", false, false, nil, "none",
		nil, reason, duration, now.Add(-10*time.Minute), nil, nil, now,
	)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tickets")).
		WithArgs("tkt_123", model.StatusCanceled, reason, pq.Array([]string{"waiting", "accepted"})).
		WillReturnRows(rows)

	ticket, err := ds.FinalizeTicket(context.Background(), "tkt_123", model.StatusCanceled,
		[]model.Status{model.StatusWaiting, model.StatusAccepted}, reason)
	require.NoError(t, err)
	assert.Equal(t, reason, ticket.CancelReason)
}

func TestConfirmTicketPromotesPending(t *testing.T) {
	ds, mock := newTestDatasource(t)

	now := time.Now()
	rows := sqlmock.NewRows(ticketRowColumns()).AddRow(
		"tkt_123", "dept_asr", "txn_cert", 7, "ASR#007",
		string(model.StatusWaiting), "web", false, false, "A1B2C3", "citizen",
		"usr_42", nil, nil, now.Add(-5*time.Minute), now, nil, nil,
	)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tickets")).
		WithArgs("A1B2C3", model.StatusWaiting, model.StatusPendingConfirmation).
		WillReturnRows(rows)

	ticket, err := ds.ConfirmTicket(context.Background(), "A1B2C3")
	require.NoError(t, err)

	assert.Equal(t, model.StatusWaiting, ticket.Status)
	require.NotNil(t, ticket.ConfirmedAt)
	assert.Equal(t, model.CitizenHolder("usr_42"), ticket.Holder)
}

func TestConfirmTicketUnknownCodeReturnsNotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tickets")).
		WithArgs("ZZZZZZ", model.StatusWaiting, model.StatusPendingConfirmation).
		WillReturnRows(sqlmock.NewRows(ticketRowColumns()))

	_, err := ds.ConfirmTicket(context.Background(), "ZZZZZZ")
	require.Error(t, err)

	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestConfirmationCodeActive(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("A1B2C3", model.StatusPendingConfirmation).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	active, err := ds.ConfirmationCodeActive(context.Background(), "A1B2C3")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestExpireStaleConfirmations(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tickets")).
		WithArgs(model.StatusExpired, model.StatusPendingConfirmation).
		WillReturnResult(sqlmock.NewResult(0, 3))

	expired, err := ds.ExpireStaleConfirmations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), expired)
}

func TestGetQueueStatusOrdersBySequence(t *testing.T) {
	ds, mock := newTestDatasource(t)

	now := time.Now()
	columns := append(ticketRowColumns(), "name", "name")
	rows := sqlmock.NewRows(columns).
		AddRow("tkt_1", "dept_asr", "txn_cert", 1, "ASR#001",
			"accepted", "kiosk", false, false, nil, "none",
			nil, nil, nil, now, nil, now, nil, "Assessor", "Certification").
		AddRow("tkt_2", "dept_asr", "txn_cert", 2, "ASR#002",
			"waiting", "kiosk", false, true, nil, "none",
			nil, nil, nil, now, nil, nil, nil, "Assessor", "Certification")

	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets t")).
		WithArgs("dept_asr", pq.Array([]string{"waiting", "accepted"})).
		WillReturnRows(rows)

	tickets, err := ds.GetQueueStatus(context.Background(), "dept_asr")
	require.NoError(t, err)

	require.Len(t, tickets, 2)
	assert.Equal(t, "ASR#001", tickets[0].DisplayCode)
	assert.Equal(t, "Assessor", tickets[0].DepartmentName)
	assert.True(t, tickets[1].SeniorCitizen)
}

func TestGetQueueStatusEmptyQueue(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets t")).
		WithArgs("dept_asr", pq.Array([]string{"waiting", "accepted"})).
		WillReturnRows(sqlmock.NewRows(append(ticketRowColumns(), "name", "name")))

	tickets, err := ds.GetQueueStatus(context.Background(), "dept_asr")
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestCountWaitingToday(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("dept_asr", "txn_cert", model.StatusWaiting).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := ds.CountWaitingToday(context.Background(), "dept_asr", "txn_cert")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestAvgServiceMinutesNoHistoryReturnsZero(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(AVG")).
		WithArgs("dept_asr", "txn_cert", model.StatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0.0))

	avg, err := ds.AvgServiceMinutes(context.Background(), "dept_asr", "txn_cert")
	require.NoError(t, err)
	assert.Zero(t, avg)
}

func TestDeleteTicketsForToday(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tickets")).
		WithArgs("dept_asr").
		WillReturnResult(sqlmock.NewResult(0, 12))

	deleted, err := ds.DeleteTicketsForToday(context.Background(), "dept_asr")
	require.NoError(t, err)
	assert.Equal(t, int64(12), deleted)
}

func TestGetHolderTicketsToday(t *testing.T) {
	ds, mock := newTestDatasource(t)

	holderID := gofakeit.UUID()
	now := time.Now()
	columns := append(ticketRowColumns(), "name", "name")
	rows := sqlmock.NewRows(columns).
		AddRow("tkt_9", "dept_tre", "txn_pay", 9, "TRE#009",
			"waiting", "web", false, false, "QW12ER", "citizen",
			holderID, nil, nil, now, nil, nil, nil, "Treasury", "Payment")

	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets t")).
		WithArgs(holderID).
		WillReturnRows(rows)

	tickets, err := ds.GetHolderTicketsToday(context.Background(), holderID)
	require.NoError(t, err)

	require.Len(t, tickets, 1)
	assert.Equal(t, holderID, tickets[0].Holder.ID)
	assert.Equal(t, model.HolderCitizen, tickets[0].Holder.Kind)
}
