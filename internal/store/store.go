// Package store persists users and chip balances in SQLite. Tables and
// tournaments play entirely in memory; wins, refunds and buy-ins settle
// here.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

var (
	// ErrUnknownUser is returned for operations on users never seen before.
	ErrUnknownUser = errors.New("unknown user")
	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// User is one persisted account. The JSON shape matches /api/me and
// /api/top responses.
type User struct {
	ID          string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Balance     int    `json:"balance"`
}

// Store wraps the SQLite database. Safe for concurrent use; writes
// serialize on a single connection.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open opens (or creates) the database at path and ensures the schema
// exists. The caller owns Close.
func Open(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// instead of retrying on it.
	db.SetMaxOpenConns(1)
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	s := &Store{db: db, logger: logger.WithPrefix("store")}
	s.logger.Info("database opened", "path", path)
	return s, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			balance INTEGER NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			reason TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("create transactions table: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetOrCreate returns the user, creating them with the given display name
// and starting balance on first sight. An existing user's name and
// balance are left untouched.
func (s *Store) GetOrCreate(userID, displayName string, startBalance int) (User, error) {
	_, err := s.db.Exec(`
		INSERT INTO users (id, display_name, balance)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, userID, displayName, startBalance)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return s.get(userID)
}

func (s *Store) get(userID string) (User, error) {
	var u User
	err := s.db.QueryRow(`
		SELECT id, display_name, balance FROM users WHERE id = ?
	`, userID).Scan(&u.ID, &u.DisplayName, &u.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUnknownUser
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// SetDisplayName updates an existing user's display name.
func (s *Store) SetDisplayName(userID, name string) error {
	res, err := s.db.Exec(`
		UPDATE users SET display_name = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, name, userID)
	if err != nil {
		return fmt.Errorf("set display name: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUnknownUser
	}
	return nil
}

// Balance returns the user's current balance.
func (s *Store) Balance(userID string) (int, error) {
	u, err := s.get(userID)
	if err != nil {
		return 0, err
	}
	return u.Balance, nil
}

// Credit adds chips to a user's balance and records the transaction.
// Crediting a user the store has never seen creates them with that
// balance, so payout hooks never lose money.
func (s *Store) Credit(userID string, amount int, reason string) error {
	if amount <= 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO users (id, display_name, balance)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			balance = balance + excluded.balance,
			updated_at = CURRENT_TIMESTAMP
	`, userID, userID, amount)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO transactions (user_id, amount, reason) VALUES (?, ?, ?)
	`, userID, amount, reason); err != nil {
		return fmt.Errorf("record credit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Debug("credited", "user", userID, "amount", amount, "reason", reason)
	return nil
}

// Debit removes chips from a user's balance and records the transaction.
// The balance is never allowed below zero.
func (s *Store) Debit(userID string, amount int, reason string) error {
	if amount <= 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var balance int
	err = tx.QueryRow(`SELECT balance FROM users WHERE id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUnknownUser
	}
	if err != nil {
		return fmt.Errorf("debit lookup: %w", err)
	}
	if balance < amount {
		return ErrInsufficientBalance
	}
	if _, err := tx.Exec(`
		UPDATE users SET balance = balance - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, amount, userID); err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO transactions (user_id, amount, reason) VALUES (?, ?, ?)
	`, userID, -amount, reason); err != nil {
		return fmt.Errorf("record debit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Debug("debited", "user", userID, "amount", amount, "reason", reason)
	return nil
}

// Top returns the richest users in descending balance order.
func (s *Store) Top(limit int) ([]User, error) {
	rows, err := s.db.Query(`
		SELECT id, display_name, balance FROM users
		ORDER BY balance DESC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("top balances: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0, limit)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.Balance); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
