package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"sevensons/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the configured database for the given driver type.
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
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
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
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the required tables are present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS ai_roles (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE,
				description TEXT NOT NULL,
				avatar_url TEXT NOT NULL DEFAULT '',
				personality TEXT NOT NULL DEFAULT '',
				specialties TEXT NOT NULL DEFAULT '[]',
				api_config TEXT,
				is_active INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS ai_conversations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				role_id INTEGER NOT NULL,
				session_id TEXT NOT NULL,
				user_id TEXT,
				messages TEXT NOT NULL DEFAULT '[]',
				memory_snippets TEXT NOT NULL DEFAULT '[]',
				conversation_summary TEXT,
				last_message_at DATETIME,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				UNIQUE(role_id, session_id),
				FOREIGN KEY(role_id) REFERENCES ai_roles(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_ai_conversations_session ON ai_conversations(session_id)`,
			`CREATE INDEX IF NOT EXISTS idx_ai_roles_active ON ai_roles(is_active)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS ai_roles (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				name VARCHAR(255) NOT NULL UNIQUE,
				description TEXT NOT NULL,
				avatar_url VARCHAR(255) NOT NULL DEFAULT '',
				personality TEXT NOT NULL,
				specialties TEXT NOT NULL,
				api_config TEXT,
				is_active TINYINT(1) NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_ai_roles_active (is_active)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS ai_conversations (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				role_id BIGINT UNSIGNED NOT NULL,
				session_id VARCHAR(255) NOT NULL,
				user_id VARCHAR(255),
				messages MEDIUMTEXT NOT NULL,
				memory_snippets MEDIUMTEXT NOT NULL,
				conversation_summary MEDIUMTEXT,
				last_message_at DATETIME,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				PRIMARY KEY (id),
				UNIQUE KEY uniq_role_session (role_id, session_id),
				INDEX idx_ai_conversations_session (session_id),
				CONSTRAINT fk_ai_conversations_role FOREIGN KEY (role_id) REFERENCES ai_roles(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
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
