package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/arjunvnair/modakart-backend/pkg/db/models"
	"github.com/arjunvnair/modakart-backend/pkg/enums"
)

// RegisterInput carries the payload for creating a new customer account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput captures the credentials sent to the login endpoint.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult contains the access token and user produced by a
// successful login.
type LoginResult struct {
	AccessToken string   `json:"access_token"`
	User        UserView `json:"user"`
}

// UserView is the account shape exposed to clients. The password hash
// never leaves the service.
type UserView struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Role      enums.UserRole `json:"role"`
	Verified  bool           `json:"verified"`
	CreatedAt time.Time      `json:"created_at"`
}

func newUserView(user *models.User) UserView {
	return UserView{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Verified:  user.Verified,
		CreatedAt: user.CreatedAt,
	}
}
