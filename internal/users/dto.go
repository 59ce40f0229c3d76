package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopsense/storefront-backend/internal/identity"
	"github.com/shopsense/storefront-backend/pkg/db/models"
)

// UserDTO is the public view of an account returned by signup and login.
// The password hash never leaves this package's callers.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Identity    string     `json:"identity"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateUserDTO is the input to Repository.Create. PasswordHash must already
// be hashed.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Identity:    identity.User(u.ID.String()).String(),
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{Name: c.Name, Email: c.Email, PasswordHash: c.PasswordHash}
}
