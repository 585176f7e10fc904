package db

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Countries struct {
	db *gorm.DB
}

func NewCountries(db *gorm.DB) *Countries {
	return &Countries{db: db}
}

func (d *Countries) InsertAll(ctx context.Context, countries []Country) error {
	if len(countries) == 0 {
		return nil
	}
	res := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"region", "updated_at"}),
	}).Create(&countries)
	if res.Error != nil {
		return errors.Wrap(res.Error, "insert countries")
	}
	return nil
}

func (d *Countries) All(ctx context.Context) ([]Country, error) {
	countries := make([]Country, 0)
	res := d.db.WithContext(ctx).Order("name").Find(&countries)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "list countries")
	}
	return countries, nil
}

func (d *Countries) Count(ctx context.Context) (int64, error) {
	var n int64
	res := d.db.WithContext(ctx).Model(&Country{}).Count(&n)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "count countries")
	}
	return n, nil
}

func (d *Countries) Clear(ctx context.Context) error {
	res := d.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Country{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "clear countries")
	}
	return nil
}
