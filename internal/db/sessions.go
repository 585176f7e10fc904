package db

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Sessions struct {
	db *gorm.DB
}

func NewSessions(db *gorm.DB) *Sessions {
	return &Sessions{db: db}
}

// Save stores session, replacing whatever session the same user had before.
func (d *Sessions) Save(ctx context.Context, session *Session) error {
	res := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"session_id", "user_name", "updated_at"}),
	}).Create(session)
	if res.Error != nil {
		return errors.Wrap(res.Error, "save session")
	}
	return nil
}

func (d *Sessions) Get(ctx context.Context, sessionID string) (*Session, error) {
	return d.first(ctx, "session_id = ?", sessionID)
}

func (d *Sessions) GetForUser(ctx context.Context, userID uint64) (*Session, error) {
	return d.first(ctx, "user_id = ?", userID)
}

func (d *Sessions) Delete(ctx context.Context, sessionID string) error {
	res := d.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&Session{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete session")
	}
	return nil
}

func (d *Sessions) DeleteForUser(ctx context.Context, userID uint64) error {
	res := d.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Session{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete user sessions")
	}
	return nil
}

func (d *Sessions) Clear(ctx context.Context) error {
	res := d.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Session{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "clear sessions")
	}
	return nil
}

func (d *Sessions) first(ctx context.Context, query string, args ...interface{}) (*Session, error) {
	session := Session{}
	res := d.db.WithContext(ctx).Where(query, args...).First(&session)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(res.Error, "find session")
	}
	return &session, nil
}
