package database

import (
	"database/sql"
	"log"
	"sync"

	"github.com/sentrohq/sentro/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	err = createDepartmentTable(db)
	if err != nil {
		return nil, err
	}
	err = createTransactionTable(db)
	if err != nil {
		return nil, err
	}
	err = createTicketTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createDepartmentTable creates the directory table for departments.
func createDepartmentTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS departments (
			id SERIAL PRIMARY KEY,
			department_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			prefix TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating departments table: %v", err)
	}
	return err
}

// createTransactionTable creates the directory table for department services.
func createTransactionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL UNIQUE,
			department_id TEXT NOT NULL REFERENCES departments(department_id),
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating transactions table: %v", err)
	}
	return err
}

// createTicketTable creates the queue ticket ledger. Sequence numbers
// are unique per department per calendar day across all statuses, so
// canceled or expired tickets never free their number for reuse.
func createTicketTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			id SERIAL PRIMARY KEY,
			ticket_id TEXT NOT NULL UNIQUE,
			department_id TEXT NOT NULL REFERENCES departments(department_id),
			transaction_id TEXT NOT NULL REFERENCES transactions(transaction_id),
			sequence_number INTEGER NOT NULL,
			display_code TEXT NOT NULL,
			status TEXT NOT NULL,
			source TEXT NOT NULL,
			priority BOOLEAN NOT NULL DEFAULT FALSE,
			senior_citizen BOOLEAN NOT NULL DEFAULT FALSE,
			confirmation_code VARCHAR(6),
			holder_kind TEXT NOT NULL DEFAULT 'none',
			holder_id TEXT,
			cancel_reason TEXT,
			duration_minutes INTEGER,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			confirmed_at TIMESTAMP,
			started_at TIMESTAMP,
			completed_at TIMESTAMP
		)
	`)
	if err != nil {
		log.Printf("Error creating tickets table: %v", err)
		return err
	}

	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_dept_day_seq
		ON tickets (department_id, (created_at::date), sequence_number)
	`)
	if err != nil {
		log.Printf("Error creating ticket sequence index: %v", err)
		return err
	}

	// A confirmation code must be unique among tickets still awaiting
	// confirmation; finished codes may recur.
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_active_confirmation_code
		ON tickets (confirmation_code)
		WHERE status = 'pending_confirmation'
	`)
	if err != nil {
		log.Printf("Error creating confirmation code index: %v", err)
	}
	return err
}
