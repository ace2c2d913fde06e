package model

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/notafolio/backend/src/models"
)

// GetAllTickerMappings loads every saved mapping for a user as a
// normalizedName -> symbol map. This is the read side of the mapping
// store contract; callers seed their session cache from it.
func GetAllTickerMappings(db *sql.DB, userID int64) (map[string]string, error) {
	rows, err := db.Query(`SELECT normalized_name, symbol FROM ticker_mappings WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying ticker mappings for userID %d: %w", userID, err)
	}
	defer rows.Close()

	mappings := make(map[string]string)
	for rows.Next() {
		var name, symbol string
		if err := rows.Scan(&name, &symbol); err != nil {
			return nil, fmt.Errorf("error scanning ticker mapping row: %w", err)
		}
		mappings[name] = symbol
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ticker mapping rows: %w", err)
	}
	return mappings, nil
}

// ListTickerMappings returns the user's mappings as full records,
// newest first, for the mappings API.
func ListTickerMappings(db *sql.DB, userID int64) ([]models.TickerMapping, error) {
	rows, err := db.Query(`
		SELECT id, user_id, normalized_name, symbol, created_at
		FROM ticker_mappings WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying ticker mappings for userID %d: %w", userID, err)
	}
	defer rows.Close()

	var mappings []models.TickerMapping
	for rows.Next() {
		var m models.TickerMapping
		if err := rows.Scan(&m.ID, &m.UserID, &m.NormalizedName, &m.Symbol, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning ticker mapping row: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ticker mapping rows: %w", err)
	}
	return mappings, nil
}

// PutTickerMapping upserts one mapping. Re-resolution overwrites the
// previously stored symbol; mappings are never deleted here.
func PutTickerMapping(db *sql.DB, userID int64, normalizedName, symbol string) error {
	_, err := db.Exec(`
		INSERT INTO ticker_mappings (user_id, normalized_name, symbol, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, normalized_name) DO UPDATE SET symbol = excluded.symbol`,
		userID, normalizedName, symbol, time.Now())
	if err != nil {
		return fmt.Errorf("error upserting ticker mapping %q for userID %d: %w", normalizedName, userID, err)
	}
	return nil
}
