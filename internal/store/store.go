package store

import (
	"errors"

	"github.com/eliu/babble/internal/models"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("store: not found")

type Store interface {
	// User operations
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
	GetUserByID(id int) (*models.User, error)

	// Message operations
	SaveMessage(authorID int, content string) (*models.Message, error)
	// GetMessages returns up to limit messages ordered newest-first,
	// skipping offset rows.
	GetMessages(limit, offset int) ([]models.Message, error)
	CountMessages() (int, error)
}
