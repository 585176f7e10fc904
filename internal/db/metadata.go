package db

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Metadata struct {
	db *gorm.DB
}

func NewMetadata(db *gorm.DB) *Metadata {
	return &Metadata{db: db}
}

// Upsert inserts metadata or replaces the row with the same (uid, user_id).
func (d *Metadata) Upsert(ctx context.Context, m *BookMetadata) error {
	res := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_favourite", "tags", "updated_at"}),
	}).Create(m)
	if res.Error != nil {
		return errors.Wrap(res.Error, "upsert book metadata")
	}
	return nil
}

func (d *Metadata) Get(ctx context.Context, uid string, userID uint64) (*BookMetadata, error) {
	m := BookMetadata{}
	res := d.db.WithContext(ctx).Where("uid = ? AND user_id = ?", uid, userID).First(&m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(res.Error, "find book metadata")
	}
	return &m, nil
}

func (d *Metadata) ForUser(ctx context.Context, userID uint64) ([]BookMetadata, error) {
	return d.query(ctx, squirrel.Eq{"m.user_id": userID})
}

func (d *Metadata) FavoritesForUser(ctx context.Context, userID uint64) ([]BookMetadata, error) {
	return d.query(ctx, squirrel.Eq{"m.user_id": userID, "m.is_favourite": true})
}

func (d *Metadata) Clear(ctx context.Context) error {
	res := d.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&BookMetadata{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "clear book metadata")
	}
	return nil
}

func (d *Metadata) query(ctx context.Context, where squirrel.Sqlizer) ([]BookMetadata, error) {
	sql, args, err := squirrel.
		Select("m.uid", "m.user_id", "m.is_favourite", "m.tags", "m.updated_at").
		From("book_metadata m").
		Where(where).
		OrderBy("m.uid").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	rows := make([]BookMetadata, 0)
	res := d.db.WithContext(ctx).Raw(sql, args...).Scan(&rows)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan")
	}
	return rows, nil
}
