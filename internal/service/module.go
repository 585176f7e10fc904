package service

import (
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

var Module = fx.Provide(
	NewSessionManager,
	NewRegistration,
	NewDashboard,
)

var (
	ErrUserTaken                 = errors.New("user already exists")
	ErrLoginUserNotFound         = errors.New("user not found")
	ErrLoginPasswordDoesNotMatch = errors.New("password does not match")
	ErrInvalidEmail              = errors.New("email is invalid")
	ErrInvalidPassword           = errors.New("password is too weak")
	ErrSessionNotFound           = errors.New("session not found")
	ErrBookNotFound              = errors.New("book not found")
)
