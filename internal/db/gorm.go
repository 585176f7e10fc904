package db

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/config"
)

var Module = fx.Options(
	fx.Provide(
		NewGormClient,
		NewUsers,
		NewSessions,
		NewCountries,
		NewBooks,
		NewMetadata,
	),
	fx.Invoke(registerClose),
)

type (
	GormForkedModel struct {
		ID        uint64 `gorm:"primarykey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	User struct {
		GormForkedModel
		Username     string `gorm:"uniqueIndex;not null"`
		Email        string `gorm:"uniqueIndex;not null"`
		PasswordHash string `gorm:"not null"`
		Country      string
	}

	// Session marks a signed-in user. A user has at most one session row.
	Session struct {
		GormForkedModel
		SessionID string `gorm:"uniqueIndex;not null"`
		UserID    uint64 `gorm:"uniqueIndex;not null"`
		UserName  string `gorm:"not null"`
	}

	Country struct {
		GormForkedModel
		Name   string `gorm:"uniqueIndex;not null"`
		Region string
	}

	Book struct {
		GormForkedModel
		UID                  string `gorm:"column:uid;uniqueIndex;not null"`
		Image                *string
		Score                *float64
		Popularity           *int
		Title                *string
		PublishedChapterDate *int64
	}

	// BookMetadata is keyed by (uid, user_id) and is joined to Book at read
	// time only; there is no foreign key to books.
	BookMetadata struct {
		UID         string `gorm:"column:uid;primaryKey"`
		UserID      uint64 `gorm:"primaryKey;autoIncrement:false"`
		IsFavourite bool   `gorm:"not null"`
		Tags        *string
		UpdatedAt   time.Time
	}
)

func (User) TableName() string         { return "users" }
func (Session) TableName() string      { return "sessions" }
func (Country) TableName() string      { return "countries" }
func (Book) TableName() string         { return "books" }
func (BookMetadata) TableName() string { return "book_metadata" }

// PublishedYear returns the UTC year of the publication timestamp, or 0 when
// the catalog did not provide one.
func (b *Book) PublishedYear() int {
	if b.PublishedChapterDate == nil {
		return 0
	}
	return time.Unix(*b.PublishedChapterDate, 0).UTC().Year()
}

func NewGormClient(cfg *config.Config, l *zap.SugaredLogger) (*gorm.DB, error) {
	newLogger := logger.New(zap.NewStdLog(l.Desugar()), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		Colorful:                  false,
		IgnoreRecordNotFoundError: true,
	})

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverPostgres:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(cfg.DBPath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}); err != nil {
		return errors.Wrap(err, "migrate user")
	}
	if err := db.AutoMigrate(&Session{}); err != nil {
		return errors.Wrap(err, "migrate session")
	}
	if err := db.AutoMigrate(&Country{}); err != nil {
		return errors.Wrap(err, "migrate country")
	}
	if err := db.AutoMigrate(&Book{}); err != nil {
		return errors.Wrap(err, "migrate book")
	}
	if err := db.AutoMigrate(&BookMetadata{}); err != nil {
		return errors.Wrap(err, "migrate book metadata")
	}
	return nil
}

func registerClose(lc fx.Lifecycle, db *gorm.DB, l *zap.SugaredLogger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			l.Info("Closing database.")
			sqlDB, err := db.DB()
			if err != nil {
				return errors.Wrap(err, "get sql db")
			}
			return sqlDB.Close()
		},
	})
}
