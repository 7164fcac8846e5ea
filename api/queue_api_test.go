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

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrohq/sentro"
	model2 "github.com/sentrohq/sentro/api/model"
	"github.com/sentrohq/sentro/config"
	"github.com/sentrohq/sentro/database"
	"github.com/sentrohq/sentro/model"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	if s.Response != nil {
		err := json.NewDecoder(resp.Body).Decode(&s.Response)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func setupRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	})

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	service, err := sentro.NewSentro(&database.Datasource{Conn: db})
	require.NoError(t, err)

	router := NewAPI(service).Router()
	return router, mock
}

func ticketResultColumns() []string {
	return []string{
		"ticket_id", "department_id", "transaction_id", "sequence_number", "display_code",
		"status", "source", "priority", "senior_citizen", "confirmation_code", "holder_kind",
		"holder_id", "cancel_reason", "duration_minutes", "created_at", "confirmed_at",
		"started_at", "completed_at",
	}
}

func expectIssueFlow(mock sqlmock.Sqlmock, departmentID string) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM departments")).
		WillReturnRows(sqlmock.NewRows([]string{"department_id", "name", "prefix", "active", "created_at"}).
			AddRow(departmentID, "Assessor", "ASR", true, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions")).
		WillReturnRows(sqlmock.NewRows([]string{"transaction_id", "department_id", "name", "created_at"}).
			AddRow("txn_cert", departmentID, "Certification", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(AVG")).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0.0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(sequence_number), 0)")).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tickets")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets t")).
		WillReturnRows(sqlmock.NewRows(append(ticketResultColumns(), "name", "name")))
}

func TestGenerateTicketEndpoint(t *testing.T) {
	router, mock := setupRouter(t)
	expectIssueFlow(mock, "dept_asr")

	payload, err := json.Marshal(model2.GenerateTicket{
		DepartmentID:  "dept_asr",
		TransactionID: "txn_cert",
	})
	require.NoError(t, err)

	var response model2.TicketIssued
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  bytes.NewBuffer(payload),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/queue/generate",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ASR#005", response.QueueNumber)
	assert.Equal(t, "waiting", response.Status)
	assert.Equal(t, "20 minutes", response.EstimatedWaitTime)
	assert.Empty(t, response.ConfirmationCode)
}

func TestGenerateTicketEndpointValidation(t *testing.T) {
	router, _ := setupRouter(t)

	payload, err := json.Marshal(model2.GenerateTicket{TransactionID: "txn_cert"})
	require.NoError(t, err)

	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBuffer(payload),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/queue/generate",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestGenerateTicketEndpointUnknownDepartment(t *testing.T) {
	router, mock := setupRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM departments")).
		WillReturnRows(sqlmock.NewRows([]string{"department_id", "name", "prefix", "active", "created_at"}))

	payload, err := json.Marshal(model2.GenerateTicket{
		DepartmentID:  "dept_missing",
		TransactionID: "txn_cert",
	})
	require.NoError(t, err)

	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBuffer(payload),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/queue/generate",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestConfirmAtKioskEndpoint(t *testing.T) {
	router, mock := setupRouter(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tickets")).
		WithArgs("A1B2C3", model.StatusWaiting, model.StatusPendingConfirmation).
		WillReturnRows(sqlmock.NewRows(ticketResultColumns()).AddRow(
			"tkt_123", "dept_asr", "txn_cert", 7, "ASR#007",
			"waiting", "web", false, false, "A1B2C3", "citizen",
			"usr_42", nil, nil, now.Add(-10*time.Minute), now, nil, nil,
		))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets t")).
		WillReturnRows(sqlmock.NewRows(append(ticketResultColumns(), "name", "name")))

	payload, err := json.Marshal(model2.ConfirmationCode{Code: "A1B2C3"})
	require.NoError(t, err)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  bytes.NewBuffer(payload),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/queue/confirm-at-kiosk",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ASR#007", response["queue_number"])
	assert.Equal(t, "waiting", response["status"])
}

func TestConfirmAtKioskEndpointExpiredCode(t *testing.T) {
	router, mock := setupRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tickets")).
		WillReturnRows(sqlmock.NewRows(ticketResultColumns()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM tickets")).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	payload, err := json.Marshal(model2.ConfirmationCode{Code: "ZZZZZZ"})
	require.NoError(t, err)

	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBuffer(payload),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/queue/confirm-at-kiosk",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCancelTicketEndpointInvalidTransition(t *testing.T) {
	router, mock := setupRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tickets")).
		WithArgs("tkt_123", model.StatusCanceled, "", pq.Array([]string{"waiting", "accepted"})).
		WillReturnRows(sqlmock.NewRows(ticketResultColumns()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM tickets")).
		WithArgs("tkt_123").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

	payload, err := json.Marshal(model2.CancelTicket{QueueID: "tkt_123"})
	require.NoError(t, err)

	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBuffer(payload),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/queue/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestUpdateTicketStatusEndpointRejectsUnknownStatus(t *testing.T) {
	router, _ := setupRouter(t)

	payload, err := json.Marshal(model2.UpdateTicketStatus{QueueID: "tkt_123", Status: "waiting"})
	require.NoError(t, err)

	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBuffer(payload),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/queue/update-status",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestCleanupExpiredCodesEndpoint(t *testing.T) {
	router, mock := setupRouter(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tickets")).
		WithArgs(model.StatusExpired, model.StatusPendingConfirmation).
		WillReturnResult(sqlmock.NewResult(0, 5))

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  bytes.NewBuffer([]byte("{}")),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/queue/cleanup-expired-codes",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(5), response["expired_count"])
}

func TestResetQueueEndpoint(t *testing.T) {
	router, mock := setupRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM departments")).
		WillReturnRows(sqlmock.NewRows([]string{"department_id", "name", "prefix", "active", "created_at"}).
			AddRow("dept_asr", "Assessor", "ASR", true, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tickets")).
		WithArgs("dept_asr").
		WillReturnResult(sqlmock.NewResult(0, 8))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets t")).
		WillReturnRows(sqlmock.NewRows(append(ticketResultColumns(), "name", "name")))

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  bytes.NewBuffer([]byte("{}")),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/queue/reset/dept_asr",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(8), response["deleted_count"])
}

func TestSecureModeGuardsStaffRoutes(t *testing.T) {
	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		Redis:  config.RedisConfig{Dns: mr.Addr()},
		Server: config.ServerConfig{Secure: true, SecretKey: "staff-secret"},
	})

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	service, err := sentro.NewSentro(&database.Datasource{Conn: db})
	require.NoError(t, err)
	router := NewAPI(service).Router()

	payload, err := json.Marshal(model2.TicketAction{QueueID: "tkt_123"})
	require.NoError(t, err)

	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBuffer(payload),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/queue/accept",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
