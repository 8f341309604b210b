package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/eliu/babble/internal/models"
	"github.com/eliu/babble/internal/store"
)

type SQLStore struct {
	db         *sql.DB
	driverName string
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite3" {
		// sqlite allows one writer at a time, and a :memory: database
		// only exists on the connection that opened it.
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLStore{db: db, driverName: driverName}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createTables() error {
	// Simplified for brevity, ideally use migrations
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		avatar TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		author_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (author_id) REFERENCES users(id)
	);
	`

	if s.driverName == "postgres" {
		// Adjust for Postgres syntax
		query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "SERIAL PRIMARY KEY")
		query = strings.ReplaceAll(query, "DATETIME", "TIMESTAMP")
	}

	_, err := s.db.Exec(query)
	return err
}

// Helper to handle placeholders
func (s *SQLStore) rebind(query string) string {
	if s.driverName == "postgres" {
		// Replace ? with $1, $2, etc.
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

func (s *SQLStore) CreateUser(user *models.User) error {
	query := s.rebind("INSERT INTO users (username, password, avatar) VALUES (?, ?, ?) RETURNING id, created_at")
	return s.db.QueryRow(query, user.Username, user.Password, user.Avatar).Scan(&user.ID, &user.CreatedAt)
}

func (s *SQLStore) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	query := s.rebind("SELECT id, username, password, COALESCE(avatar, ''), created_at FROM users WHERE username = ?")

	err := s.db.QueryRow(query, username).Scan(&user.ID, &user.Username, &user.Password, &user.Avatar, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLStore) GetUserByID(id int) (*models.User, error) {
	var user models.User
	query := s.rebind("SELECT id, username, password, COALESCE(avatar, ''), created_at FROM users WHERE id = ?")

	err := s.db.QueryRow(query, id).Scan(&user.ID, &user.Username, &user.Password, &user.Avatar, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveMessage appends a message to the log and returns the canonical row,
// including the server-assigned id and timestamp and the author details.
// The author is resolved before the insert so an unknown author never
// leaves an orphan row behind.
func (s *SQLStore) SaveMessage(authorID int, content string) (*models.Message, error) {
	author, err := s.GetUserByID(authorID)
	if err != nil {
		return nil, err
	}

	var msg models.Message
	query := s.rebind("INSERT INTO messages (author_id, content) VALUES (?, ?) RETURNING id, content, created_at")
	err = s.db.QueryRow(query, authorID, content).Scan(&msg.ID, &msg.Content, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	msg.Author = models.Author{ID: author.ID, Username: author.Username, Avatar: author.Avatar}
	return &msg, nil
}

// GetMessages returns messages ordered newest-first. Ties on created_at are
// broken by id so the order stays total.
func (s *SQLStore) GetMessages(limit, offset int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT m.id, m.content, m.created_at, u.id, u.username, COALESCE(u.avatar, '')
		FROM messages m
		JOIN users u ON m.author_id = u.id
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ? OFFSET ?
	`)
	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.Content, &m.CreatedAt, &m.Author.ID, &m.Author.Username, &m.Author.Avatar); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLStore) CountMessages() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&count)
	return count, err
}
