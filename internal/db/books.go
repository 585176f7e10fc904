package db

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var bookColumns = []string{
	"b.id", "b.created_at", "b.updated_at", "b.uid", "b.image",
	"b.score", "b.popularity", "b.title", "b.published_chapter_date",
}

type Books struct {
	db *gorm.DB
}

func NewBooks(db *gorm.DB) *Books {
	return &Books{db: db}
}

// InsertAll upserts books by uid. Existing rows keep their primary key, so
// the insertion order of the first sync stays the listing order.
func (d *Books) InsertAll(ctx context.Context, books []Book) error {
	if len(books) == 0 {
		return nil
	}
	res := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"image", "score", "popularity", "title", "published_chapter_date", "updated_at",
		}),
	}).CreateInBatches(&books, 100)
	if res.Error != nil {
		return errors.Wrap(res.Error, "insert books")
	}
	return nil
}

func (d *Books) All(ctx context.Context) ([]Book, error) {
	return d.query(ctx, nil)
}

func (d *Books) Get(ctx context.Context, uid string) (*Book, error) {
	books, err := d.query(ctx, squirrel.Eq{"b.uid": uid})
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, ErrNotFound
	}
	return &books[0], nil
}

func (d *Books) Count(ctx context.Context) (int64, error) {
	var n int64
	res := d.db.WithContext(ctx).Model(&Book{}).Count(&n)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "count books")
	}
	return n, nil
}

// SearchByTitle returns books whose title contains query, ignoring case.
func (d *Books) SearchByTitle(ctx context.Context, query string) ([]Book, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	return d.query(ctx, squirrel.Expr("LOWER(b.title) LIKE ? ESCAPE '\\'", pattern))
}

// ByYear returns books published within the given UTC calendar year.
func (d *Books) ByYear(ctx context.Context, year int) ([]Book, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	end := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	return d.query(ctx, squirrel.And{
		squirrel.GtOrEq{"b.published_chapter_date": start},
		squirrel.Lt{"b.published_chapter_date": end},
	})
}

// Years returns the distinct publication years, newest first.
func (d *Books) Years(ctx context.Context) ([]int, error) {
	sql, args, err := squirrel.
		Select("DISTINCT b.published_chapter_date").From("books b").
		Where(squirrel.NotEq{"b.published_chapter_date": nil}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	stamps := make([]int64, 0)
	res := d.db.WithContext(ctx).Raw(sql, args...).Scan(&stamps)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan")
	}

	seen := make(map[int]struct{}, len(stamps))
	years := make([]int, 0, len(stamps))
	for _, ts := range stamps {
		y := time.Unix(ts, 0).UTC().Year()
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

func (d *Books) Clear(ctx context.Context) error {
	res := d.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Book{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "clear books")
	}
	return nil
}

func (d *Books) query(ctx context.Context, where squirrel.Sqlizer) ([]Book, error) {
	q := squirrel.Select(bookColumns...).From("books b").OrderBy("b.id")
	if where != nil {
		q = q.Where(where)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	books := make([]Book, 0)
	res := d.db.WithContext(ctx).Raw(sql, args...).Scan(&books)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan")
	}
	return books, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
