package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrohq/sentro/internal/apierror"
)

func TestGetDepartment(t *testing.T) {
	ds, mock := newTestDatasource(t)

	rows := sqlmock.NewRows([]string{"department_id", "name", "prefix", "active", "created_at"}).
		AddRow("dept_asr", "Assessor", "ASR", true, time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM departments")).
		WithArgs("dept_asr").
		WillReturnRows(rows)

	department, err := ds.GetDepartment(context.Background(), "dept_asr")
	require.NoError(t, err)

	assert.Equal(t, "Assessor", department.Name)
	assert.Equal(t, "ASR", department.TicketPrefix())
}

func TestGetDepartmentNotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM departments")).
		WithArgs("dept_missing").
		WillReturnRows(sqlmock.NewRows([]string{"department_id", "name", "prefix", "active", "created_at"}))

	_, err := ds.GetDepartment(context.Background(), "dept_missing")
	require.Error(t, err)

	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestGetDepartmentPrefixFallback(t *testing.T) {
	ds, mock := newTestDatasource(t)

	rows := sqlmock.NewRows([]string{"department_id", "name", "prefix", "active", "created_at"}).
		AddRow("dept_tre", "Treasury", "", true, time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM departments")).
		WithArgs("dept_tre").
		WillReturnRows(rows)

	department, err := ds.GetDepartment(context.Background(), "dept_tre")
	require.NoError(t, err)
	assert.Equal(t, "TRE", department.TicketPrefix())
}

func TestGetTransaction(t *testing.T) {
	ds, mock := newTestDatasource(t)

	rows := sqlmock.NewRows([]string{"transaction_id", "department_id", "name", "created_at"}).
		AddRow("txn_cert", "dept_asr", "Certification", time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions")).
		WithArgs("txn_cert").
		WillReturnRows(rows)

	transaction, err := ds.GetTransaction(context.Background(), "txn_cert")
	require.NoError(t, err)

	assert.Equal(t, "Certification", transaction.Name)
	assert.Equal(t, "dept_asr", transaction.DepartmentID)
}

func TestGetAllDepartments(t *testing.T) {
	ds, mock := newTestDatasource(t)

	rows := sqlmock.NewRows([]string{"department_id", "name", "prefix", "active", "created_at"}).
		AddRow("dept_asr", "Assessor", "ASR", true, time.Now()).
		AddRow("dept_tre", "Treasury", "TRE", true, time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM departments")).
		WillReturnRows(rows)

	departments, err := ds.GetAllDepartments(context.Background())
	require.NoError(t, err)
	require.Len(t, departments, 2)
	assert.Equal(t, "Assessor", departments[0].Name)
}
