package db

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (d *Users) Insert(ctx context.Context, user *User) error {
	res := d.db.WithContext(ctx).Create(user)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return errors.Wrap(res.Error, "insert user")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

func (d *Users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return d.first(ctx, "email = ?", email)
}

func (d *Users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return d.first(ctx, "username = ?", username)
}

// GetByEmailOrUsername matches identifier against both columns, so a signup
// with a colliding email or a colliding username is detected by one lookup.
func (d *Users) GetByEmailOrUsername(ctx context.Context, email, username string) (*User, error) {
	return d.first(ctx, "email = ? OR username = ?", email, username)
}

func (d *Users) first(ctx context.Context, query string, args ...interface{}) (*User, error) {
	user := User{}
	res := d.db.WithContext(ctx).Where(query, args...).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(res.Error, "find user")
	}
	return &user, nil
}
