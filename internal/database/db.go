package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DB represents a database connection
type DB struct {
	*sql.DB
	driver string
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new PostgreSQL connection and ensures the ledger schema exists.
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return Wrap(db, "postgres")
}

// OpenSQLite opens a local SQLite database file. ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection: an in-memory database is per-connection, and SQLite serialises writers anyway
	db.SetMaxOpenConns(1)
	return Wrap(db, "sqlite")
}

// Wrap adopts an open handle and creates the ledger table if it does not exist.
func Wrap(db *sql.DB, driver string) (*DB, error) {
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &DB{DB: db, driver: driver}, nil
}

// Driver names the underlying SQL driver.
func (db *DB) Driver() string { return db.driver }

// createTables creates the ledger table. Schedule, results and feature views are owned by
// the ingestion jobs and are only read here.
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS prediction_history (
			game_id            TEXT NOT NULL,
			prediction_date_et TEXT NOT NULL,
			model_version      TEXT NOT NULL,
			pred_home_prob     DOUBLE PRECISION NOT NULL,
			pred_home_score    DOUBLE PRECISION NOT NULL,
			pred_away_score    DOUBLE PRECISION NOT NULL,
			pred_sigma_home    DOUBLE PRECISION NOT NULL,
			pred_sigma_away    DOUBLE PRECISION NOT NULL,
			actual_home_score  INTEGER,
			actual_away_score  INTEGER,
			created_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (game_id, model_version)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_prediction_history_date
		ON prediction_history (prediction_date_et)
	`)
	return err
}
