package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"repochat/internal/store"
)

// ErrEmailTaken rejects signup with an already registered email.
var ErrEmailTaken = fmt.Errorf("email already registered")

type UserService struct {
	store *store.Store
}

func NewUserService(st *store.Store) *UserService {
	return &UserService{store: st}
}

func (s *UserService) CreateUser(email, name, passwordHash string) (*store.User, error) {
	existing, err := s.store.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	user := &store.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}
	return user, nil
}

func (s *UserService) GetUserByEmail(email string) (*store.User, error) {
	return s.store.GetUserByEmail(email)
}

func (s *UserService) GetUser(id string) (*store.User, error) {
	return s.store.GetUser(id)
}
