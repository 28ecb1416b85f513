package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lbj0223/AI/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the database selected by dbType using its config entry.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sql.DB
		err error
	)

	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", dbCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			dbCfg.Username,
			dbCfg.Password,
			dbCfg.Host,
			dbCfg.Port,
			dbCfg.DBName,
			dbCfg.Params,
		)
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	case "postgres", "pgx":
		dsn := dbCfg.DSN
		if dsn == "" {
			sslMode := dbCfg.SSLMode
			if sslMode == "" {
				sslMode = "require"
			}
			dsn = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				dbCfg.Username,
				dbCfg.Password,
				dbCfg.Host,
				dbCfg.Port,
				dbCfg.DBName,
				sslMode,
			)
		}
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the error_questions table is present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS error_questions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				ocr_latex TEXT NOT NULL,
				analysis TEXT NOT NULL,
				variants TEXT NOT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_error_questions_created_at ON error_questions(created_at DESC)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS error_questions (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				ocr_latex MEDIUMTEXT NOT NULL,
				analysis JSON NOT NULL,
				variants JSON NOT NULL,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_error_questions_created_at (created_at)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	case "postgres", "pgx":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS error_questions (
				id BIGSERIAL PRIMARY KEY,
				ocr_latex TEXT NOT NULL,
				analysis JSONB NOT NULL,
				variants JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_error_questions_created_at ON error_questions(created_at DESC)`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
