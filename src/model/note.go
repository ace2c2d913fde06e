package model

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/notafolio/backend/src/models"
)

// NoteExists reports whether a note with the same (number, date, user)
// triple was already imported. This is the idempotency check enforced at
// the boundary before any operation reaches the ledger.
func NoteExists(db *sql.DB, userID int64, noteNumber, noteDate string) (bool, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM brokerage_notes
		WHERE user_id = ? AND note_number = ? AND note_date = ?`,
		userID, noteNumber, noteDate).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error checking note existence for userID %d: %w", userID, err)
	}
	return count > 0, nil
}

// CreateNoteWithOperations persists a brokerage note and its operations
// atomically. Either everything is committed or nothing is.
func CreateNoteWithOperations(db *sql.DB, note *models.BrokerageNote) error {
	dbTx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	note.CreatedAt = time.Now()
	res, err := dbTx.Exec(`
		INSERT INTO brokerage_notes
			(user_id, file_name, note_number, note_date, status, error_message,
			 settlement_fee, exchange_fees, brokerage, taxes, irrf,
			 net_amount, net_debit_credit, settlement_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.UserID, note.FileName, note.NoteNumber, note.NoteDate, note.Status, note.ErrorMessage,
		note.Summary.SettlementFee.String(), note.Summary.ExchangeFees.String(),
		note.Summary.Brokerage.String(), note.Summary.Taxes.String(), note.Summary.IRRF.String(),
		note.Summary.NetAmount.String(), note.Summary.NetDebitCredit, note.Summary.SettlementDate,
		note.CreatedAt)
	if err != nil {
		return fmt.Errorf("error inserting brokerage note %s: %w", note.NoteNumber, err)
	}

	noteID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("error reading inserted note id: %w", err)
	}
	note.ID = noteID

	stmt, err := dbTx.Prepare(`
		INSERT INTO operations
			(note_id, user_id, symbol, side, market_type, quantity, price, value,
			 debit_credit, sequence, note_number, note_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing operation insert statement: %w", err)
	}
	defer stmt.Close()

	for i := range note.Operations {
		op := &note.Operations[i]
		op.NoteID = noteID
		op.UserID = note.UserID
		op.NoteNumber = note.NoteNumber
		op.NoteDate = note.NoteDate
		res, err := stmt.Exec(op.NoteID, op.UserID, op.Symbol, op.Side, op.MarketType,
			op.Quantity, op.Price.String(), op.Value.String(),
			op.DebitCredit, op.Sequence, op.NoteNumber, op.NoteDate)
		if err != nil {
			return fmt.Errorf("error inserting operation (symbol %s, seq %d): %w", op.Symbol, op.Sequence, err)
		}
		if id, err := res.LastInsertId(); err == nil {
			op.ID = id
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("error committing note import: %w", err)
	}
	return nil
}

// ListNotes returns the user's notes, newest first, without operations.
func ListNotes(db *sql.DB, userID int64) ([]models.BrokerageNote, error) {
	rows, err := db.Query(`
		SELECT id, user_id, file_name, note_number, note_date, status, error_message,
		       settlement_fee, exchange_fees, brokerage, taxes, irrf,
		       net_amount, net_debit_credit, settlement_date, created_at
		FROM brokerage_notes
		WHERE user_id = ?
		ORDER BY note_date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying notes for userID %d: %w", userID, err)
	}
	defer rows.Close()

	var notes []models.BrokerageNote
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over note rows: %w", err)
	}
	return notes, nil
}

func scanNote(rows *sql.Rows) (*models.BrokerageNote, error) {
	var note models.BrokerageNote
	var settlementFee, exchangeFees, brokerage, taxes, irrf, netAmount string
	err := rows.Scan(
		&note.ID, &note.UserID, &note.FileName, &note.NoteNumber, &note.NoteDate,
		&note.Status, &note.ErrorMessage,
		&settlementFee, &exchangeFees, &brokerage, &taxes, &irrf,
		&netAmount, &note.Summary.NetDebitCredit, &note.Summary.SettlementDate,
		&note.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error scanning note row: %w", err)
	}
	if note.Summary.SettlementFee, err = parseStoredDecimal(settlementFee); err != nil {
		return nil, err
	}
	if note.Summary.ExchangeFees, err = parseStoredDecimal(exchangeFees); err != nil {
		return nil, err
	}
	if note.Summary.Brokerage, err = parseStoredDecimal(brokerage); err != nil {
		return nil, err
	}
	if note.Summary.Taxes, err = parseStoredDecimal(taxes); err != nil {
		return nil, err
	}
	if note.Summary.IRRF, err = parseStoredDecimal(irrf); err != nil {
		return nil, err
	}
	if note.Summary.NetAmount, err = parseStoredDecimal(netAmount); err != nil {
		return nil, err
	}
	return &note, nil
}

// GetOperationsByNote returns a note's operations in sequence order.
func GetOperationsByNote(db *sql.DB, userID, noteID int64) ([]models.Operation, error) {
	return queryOperations(db, `
		SELECT id, note_id, user_id, symbol, side, market_type, quantity, price, value,
		       debit_credit, sequence, note_number, note_date
		FROM operations
		WHERE user_id = ? AND note_id = ?
		ORDER BY sequence ASC`, userID, noteID)
}

// GetAllOperations returns every operation for a user in ledger order:
// non-decreasing by (note date, sequence). This is the stream the
// position ledger consumes.
func GetAllOperations(db *sql.DB, userID int64) ([]models.Operation, error) {
	return queryOperations(db, `
		SELECT id, note_id, user_id, symbol, side, market_type, quantity, price, value,
		       debit_credit, sequence, note_number, note_date
		FROM operations
		WHERE user_id = ?
		ORDER BY note_date ASC, note_id ASC, sequence ASC`, userID)
}

func queryOperations(db *sql.DB, query string, args ...interface{}) ([]models.Operation, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying operations: %w", err)
	}
	defer rows.Close()

	var operations []models.Operation
	for rows.Next() {
		var op models.Operation
		var price, value string
		err := rows.Scan(&op.ID, &op.NoteID, &op.UserID, &op.Symbol, &op.Side, &op.MarketType,
			&op.Quantity, &price, &value, &op.DebitCredit, &op.Sequence, &op.NoteNumber, &op.NoteDate)
		if err != nil {
			return nil, fmt.Errorf("error scanning operation row: %w", err)
		}
		if op.Price, err = parseStoredDecimal(price); err != nil {
			return nil, err
		}
		if op.Value, err = parseStoredDecimal(value); err != nil {
			return nil, err
		}
		operations = append(operations, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over operation rows: %w", err)
	}
	return operations, nil
}

// DeleteAllNotes removes every note and operation for a user.
func DeleteAllNotes(db *sql.DB, userID int64) error {
	dbTx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.Exec(`DELETE FROM operations WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("error deleting operations for userID %d: %w", userID, err)
	}
	if _, err := dbTx.Exec(`DELETE FROM brokerage_notes WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("error deleting notes for userID %d: %w", userID, err)
	}
	return dbTx.Commit()
}
