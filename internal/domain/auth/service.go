package auth

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type Service struct {
	Store    *Store
	Secret   string
	TokenTTL time.Duration
}

func NewService(store *Store, secret string, ttl time.Duration) *Service {
	return &Service{Store: store, Secret: secret, TokenTTL: ttl}
}

// Login verifies the password and issues a signed access token. Unknown
// email and wrong password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (string, UserContext, error) {
	user, err := s.Store.FindActiveUserByEmail(ctx, email)
	if err != nil {
		return "", UserContext{}, ErrInvalidCredentials
	}
	if err := CheckPassword(user.Password, password); err != nil {
		return "", UserContext{}, ErrInvalidCredentials
	}

	token, err := GenerateToken(s.Secret, Claims{
		UserID:   user.ID,
		TenantID: user.TenantID,
		RoleID:   user.RoleID,
		RoleName: user.RoleName,
	}, s.TokenTTL)
	if err != nil {
		return "", UserContext{}, err
	}

	if err := s.Store.UpdateLastLogin(ctx, user.ID); err != nil {
		return "", UserContext{}, err
	}
	return token, UserContext{
		UserID:   user.ID,
		TenantID: user.TenantID,
		RoleID:   user.RoleID,
		RoleName: user.RoleName,
	}, nil
}
