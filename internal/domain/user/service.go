package user

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrWrongPassword      = errors.New("wrong password")
	ErrMissingFields      = errors.New("username and password required")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	return s.create(ctx, username, email, password, false)
}

// Create is the administrator path; it can mint staff accounts.
func (s *Service) Create(ctx context.Context, username, email, password string, isStaff bool) (*User, error) {
	return s.create(ctx, username, email, password, isStaff)
}

func (s *Service) create(ctx context.Context, username, email, password string, isStaff bool) (*User, error) {
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsStaff:      isStaff,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

type UpdateInput struct {
	Username *string
	Email    *string
	Password *string
	IsStaff  *bool
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Username != nil && *in.Username != u.Username {
		if _, err := s.repo.GetByUsername(ctx, *in.Username); err == nil {
			return nil, ErrUsernameTaken
		}
		u.Username = *in.Username
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.IsStaff != nil {
		u.IsStaff = *in.IsStaff
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}

	if in.Password != nil && *in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = string(hash)
		if err := s.repo.UpdatePassword(ctx, u.ID, u.PasswordHash); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrWrongPassword
	}
	return s.setPassword(ctx, id, newPassword)
}

// ResetPassword sets a new password without checking the old one.
// Restricted to administrators at the transport layer.
func (s *Service) ResetPassword(ctx context.Context, id int64, newPassword string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.setPassword(ctx, id, newPassword)
}

func (s *Service) setPassword(ctx context.Context, id int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, string(hash))
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
