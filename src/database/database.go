package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/notafolio/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// Open opens a database and ensures the schema exists. InitDB wraps it
// for the server; tests use it directly with an in-memory path.
func Open(databasePath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(createTableStatement); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateNotesTable()

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

const createTableStatement = `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		is_email_verified BOOLEAN DEFAULT FALSE,
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

	CREATE TABLE IF NOT EXISTS ticker_mappings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		normalized_name TEXT NOT NULL,
		symbol TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id),
		UNIQUE(user_id, normalized_name)
	);

	CREATE TABLE IF NOT EXISTS brokerage_notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		file_name TEXT NOT NULL,
		note_number TEXT NOT NULL,
		note_date TEXT NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT DEFAULT '',
		settlement_fee TEXT DEFAULT '0',
		exchange_fees TEXT DEFAULT '0',
		brokerage TEXT DEFAULT '0',
		taxes TEXT DEFAULT '0',
		irrf TEXT DEFAULT '0',
		net_amount TEXT DEFAULT '0',
		net_debit_credit TEXT DEFAULT '',
		settlement_date TEXT DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id),
		UNIQUE(user_id, note_number, note_date)
	);

	CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		market_type TEXT,
		quantity INTEGER NOT NULL,
		price TEXT NOT NULL,
		value TEXT NOT NULL,
		debit_credit TEXT,
		sequence INTEGER NOT NULL,
		note_number TEXT NOT NULL,
		note_date TEXT NOT NULL,
		FOREIGN KEY(note_id) REFERENCES brokerage_notes(id),
		FOREIGN KEY(user_id) REFERENCES users(id)
	);
	`

// migrateNotesTable adds columns introduced after the first release to an
// existing brokerage_notes table.
func migrateNotesTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='brokerage_notes'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Info("'brokerage_notes' table does not exist, no migration needed as table will be created.")
			} else {
				stdlog.Println("'brokerage_notes' table does not exist, no migration needed as table will be created.")
			}
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'brokerage_notes' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'brokerage_notes' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(brokerage_notes)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'brokerage_notes'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'brokerage_notes': %v", err)
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
				logger.L.Error("Error scanning column info for 'brokerage_notes'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'brokerage_notes': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'brokerage_notes'", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for 'brokerage_notes': %v", err)
		}
		return
	}

	if _, ok := columnExists["error_message"]; !ok {
		_, err := DB.Exec("ALTER TABLE brokerage_notes ADD COLUMN error_message TEXT DEFAULT ''")
		if err != nil {
			logger.L.Error("Error adding 'error_message' column to 'brokerage_notes' table", "error", err)
		} else {
			logger.L.Info("Added 'error_message' column to 'brokerage_notes' table")
		}
	}

	if _, ok := columnExists["settlement_date"]; !ok {
		_, err := DB.Exec("ALTER TABLE brokerage_notes ADD COLUMN settlement_date TEXT DEFAULT ''")
		if err != nil {
			logger.L.Error("Error adding 'settlement_date' column to 'brokerage_notes' table", "error", err)
		} else {
			logger.L.Info("Added 'settlement_date' column to 'brokerage_notes' table")
		}
	}
}
