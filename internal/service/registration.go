package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/config"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/db"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/network"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/remote"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/repository"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/validation"
)

type CountrySource interface {
	CountryList(ctx context.Context) <-chan network.Response[*remote.CountryResponse]
	IPInfo(ctx context.Context) <-chan network.Response[*remote.IPInfo]
}

type UserStore interface {
	Insert(ctx context.Context, user *db.User) error
	GetByEmail(ctx context.Context, email string) (*db.User, error)
	GetByUsername(ctx context.Context, username string) (*db.User, error)
	GetByEmailOrUsername(ctx context.Context, email, username string) (*db.User, error)
}

type Registration struct {
	users     UserStore
	countries *db.Countries
	source    CountrySource
	sessions  *SessionManager
	cost      int
	logger    *zap.SugaredLogger
}

func NewRegistration(
	cfg *config.Config,
	users *db.Users,
	countries *db.Countries,
	repo *repository.RegistrationRepo,
	sessions *SessionManager,
	l *zap.SugaredLogger,
) *Registration {
	return newRegistration(cfg.BcryptCost, users, countries, repo, sessions, l)
}

func newRegistration(
	cost int,
	users UserStore,
	countries *db.Countries,
	source CountrySource,
	sessions *SessionManager,
	l *zap.SugaredLogger,
) *Registration {
	return &Registration{
		users:     users,
		countries: countries,
		source:    source,
		sessions:  sessions,
		cost:      cost,
		logger:    l,
	}
}

type SignupParams struct {
	Username string
	Email    string
	Password string
	Country  string
}

// Signup creates a user unless the email or the username is already taken.
func (s *Registration) Signup(ctx context.Context, p SignupParams) (*db.User, error) {
	p.Email = strings.TrimSpace(p.Email)
	p.Username = strings.TrimSpace(p.Username)
	if p.Username == "" {
		p.Username = p.Email
	}
	if !validation.ValidEmail(p.Email) {
		return nil, ErrInvalidEmail
	}
	if !validation.ValidPassword(p.Password) {
		return nil, ErrInvalidPassword
	}

	_, err := s.users.GetByEmailOrUsername(ctx, p.Email, p.Username)
	switch {
	case err == nil:
		return nil, ErrUserTaken
	case !errors.Is(err, db.ErrNotFound):
		return nil, err
	}

	hash, err := s.bcryptGen(p.Password)
	if err != nil {
		return nil, errors.Wrap(err, "bcryptGen")
	}

	user := &db.User{
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: hash,
		Country:      p.Country,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		// a concurrent signup won the race past the lookup above
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrUserTaken
		}
		return nil, err
	}

	s.logger.Infow("User signed up.", "user_id", user.ID)
	return user, nil
}

// Login checks the credentials and opens a new session for the user. login
// is either the email or the username; an email match wins.
func (s *Registration) Login(ctx context.Context, login, password string) (*db.User, *db.Session, error) {
	user, err := s.findLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil, ErrLoginUserNotFound
		}
		return nil, nil, err
	}

	if err := s.bcryptCheck(user.PasswordHash, password); err != nil {
		return nil, nil, ErrLoginPasswordDoesNotMatch
	}

	session, err := s.sessions.Save(ctx, user)
	if err != nil {
		return nil, nil, errors.Wrap(err, "save session")
	}
	return user, session, nil
}

func (s *Registration) findLogin(ctx context.Context, login string) (*db.User, error) {
	user, err := s.users.GetByEmail(ctx, login)
	if errors.Is(err, db.ErrNotFound) {
		return s.users.GetByUsername(ctx, login)
	}
	return user, err
}

func (s *Registration) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Clear(ctx, sessionID)
}

// Countries returns the cached country list, fetching it on first use.
func (s *Registration) Countries(ctx context.Context) ([]db.Country, error) {
	n, err := s.countries.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return s.countries.All(ctx)
	}

	resp, err := network.Await(s.source.CountryList(ctx))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(resp.Data))
	rows := make([]db.Country, 0, len(resp.Data))
	for _, c := range resp.Data {
		if c.Country == "" {
			continue
		}
		if _, ok := seen[c.Country]; ok {
			continue
		}
		seen[c.Country] = struct{}{}
		rows = append(rows, db.Country{Name: c.Country, Region: c.Region})
	}
	if err := s.countries.InsertAll(ctx, rows); err != nil {
		return nil, err
	}
	s.logger.Infow("Country list cached.", "count", len(rows))

	return s.countries.All(ctx)
}

// DefaultCountry guesses the caller's country from the IP lookup service.
func (s *Registration) DefaultCountry(ctx context.Context) (string, error) {
	info, err := network.Await(s.source.IPInfo(ctx))
	if err != nil {
		return "", err
	}
	return info.Country, nil
}

func (s *Registration) bcryptGen(pass string) (string, error) {
	passwordHashB, err := bcrypt.GenerateFromPassword([]byte(pass), s.cost)
	if err != nil {
		return "", errors.Wrap(err, "generate password hash")
	}
	return string(passwordHashB), nil
}

func (s *Registration) bcryptCheck(hash, pass string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
}
