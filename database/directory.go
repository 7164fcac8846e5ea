package database

import (
	"context"
	"database/sql"

	"github.com/sentrohq/sentro/internal/apierror"
	"github.com/sentrohq/sentro/model"
)

func (d Datasource) GetDepartment(ctx context.Context, id string) (*model.Department, error) {
	department := model.Department{}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT department_id, name, COALESCE(prefix, ''), active, created_at
		FROM departments
		WHERE department_id = $1
	`, id)

	err := row.Scan(&department.DepartmentID, &department.Name, &department.Prefix, &department.Active, &department.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Department not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve department", err)
	}

	return &department, nil
}

func (d Datasource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	transaction := model.Transaction{}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT transaction_id, department_id, name, created_at
		FROM transactions
		WHERE transaction_id = $1
	`, id)

	err := row.Scan(&transaction.TransactionID, &transaction.DepartmentID, &transaction.Name, &transaction.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Transaction not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transaction", err)
	}

	return &transaction, nil
}

func (d Datasource) GetAllDepartments(ctx context.Context) ([]model.Department, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT department_id, name, COALESCE(prefix, ''), active, created_at
		FROM departments
		ORDER BY name
	`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve departments", err)
	}
	defer rows.Close()

	departments := []model.Department{}

	for rows.Next() {
		department := model.Department{}
		err = rows.Scan(&department.DepartmentID, &department.Name, &department.Prefix, &department.Active, &department.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan department data", err)
		}
		departments = append(departments, department)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over departments", err)
	}

	return departments, nil
}
