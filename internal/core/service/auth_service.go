package service

import (
	"context"

	"github.com/rl1809/medstock/internal/core/domain"
)

// Built-in administrator account. It is checked before the user directory
// and never stored.
const (
	adminUsername = "admin"
	adminPassword = "admin123"
)

type AuthService struct {
	users *UserDirectory
}

func NewAuthService(users *UserDirectory) *AuthService {
	return &AuthService{users: users}
}

// SignUp registers a new user with role "user".
// It returns domain.ErrDuplicateUser when the username is taken.
func (s *AuthService) SignUp(ctx context.Context, username, password string) error {
	return s.users.AddUser(ctx, username, password)
}

// SignIn checks the credentials and returns the signed-in identity without
// its password. Directory users always sign in with role "user", whatever
// role their record carries.
func (s *AuthService) SignIn(ctx context.Context, username, password string) (domain.User, error) {
	if username == adminUsername && password == adminPassword {
		return domain.User{Username: adminUsername, Role: domain.RoleAdmin}, nil
	}

	user, err := s.users.FindUser(ctx, username, password)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	return domain.User{Username: user.Username, Role: domain.RoleUser}, nil
}
