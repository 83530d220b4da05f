package database

import (
	"database/sql"
	stdlog "log"

	"github.com/Mlocoes/BolsaV2/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if _, err := DB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		stdlog.Fatalf("failed to enable foreign keys: %v", err)
	}

	if logger.L != nil {
		logger.L.Info("Ensuring database schema", "databasePath", databasePath)
	} else {
		stdlog.Println("Ensuring database schema for:", databasePath)
	}

	if err := CreateSchema(DB); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}

	migrateTransactionsTable(DB)

	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// CreateSchema creates all application tables if they do not exist.
// Exposed so tests can bootstrap a throwaway database.
func CreateSchema(db *sql.DB) error {
	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		auth_provider TEXT DEFAULT 'local',
		is_email_verified BOOLEAN DEFAULT FALSE,
		password_reset_token TEXT,
		password_reset_token_expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS portfolios (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL UNIQUE,
		name TEXT,
		asset_type TEXT NOT NULL DEFAULT 'stock',
		currency TEXT NOT NULL DEFAULT 'USD',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		portfolio_id TEXT NOT NULL,
		asset_id TEXT NOT NULL,
		type TEXT NOT NULL,
		quantity TEXT NOT NULL,
		price TEXT NOT NULL,
		fees TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL DEFAULT 'USD',
		notes TEXT,
		date TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(portfolio_id) REFERENCES portfolios(id),
		FOREIGN KEY(asset_id) REFERENCES assets(id)
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_portfolio_date ON transactions(portfolio_id, date, created_at);

	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		portfolio_id TEXT NOT NULL,
		asset_id TEXT NOT NULL,
		quantity TEXT NOT NULL,
		average_price TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(portfolio_id) REFERENCES portfolios(id),
		FOREIGN KEY(asset_id) REFERENCES assets(id),
		UNIQUE(portfolio_id, asset_id)
	);

	CREATE TABLE IF NOT EXISTS quotes (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL,
		date TEXT NOT NULL,
		open TEXT,
		high TEXT,
		low TEXT,
		close TEXT NOT NULL,
		volume INTEGER,
		source TEXT DEFAULT 'manual',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(asset_id) REFERENCES assets(id),
		UNIQUE(asset_id, date)
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		portfolio_id TEXT NOT NULL,
		date TEXT NOT NULL,
		invested TEXT NOT NULL,
		market_value TEXT NOT NULL,
		pnl_absolute TEXT NOT NULL,
		pnl_percent TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(portfolio_id) REFERENCES portfolios(id),
		UNIQUE(portfolio_id, date)
	);
	`
	_, err := db.Exec(createTableStatement)
	return err
}

// migrateTransactionsTable adds columns introduced after the initial schema.
func migrateTransactionsTable(db *sql.DB) {
	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='transactions'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'transactions' table", "error", err)
		}
		return
	}

	rows, err := db.Query("PRAGMA table_info(transactions)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'transactions'", "error", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'transactions'", "error", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'transactions'", "error", err)
		}
		return
	}

	if _, ok := columnExists["fees"]; !ok {
		if _, err := db.Exec("ALTER TABLE transactions ADD COLUMN fees TEXT NOT NULL DEFAULT '0'"); err != nil {
			logger.L.Error("Error adding 'fees' column to 'transactions' table", "error", err)
		} else {
			logger.L.Info("Added 'fees' column to 'transactions' table")
		}
	}
	if _, ok := columnExists["notes"]; !ok {
		if _, err := db.Exec("ALTER TABLE transactions ADD COLUMN notes TEXT"); err != nil {
			logger.L.Error("Error adding 'notes' column to 'transactions' table", "error", err)
		} else {
			logger.L.Info("Added 'notes' column to 'transactions' table")
		}
	}
}
