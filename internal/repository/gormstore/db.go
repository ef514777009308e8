// Package gormstore persists aggregates through gorm: Postgres in production,
// SQLite in tests. Nested collections are stored as JSON columns.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/entity"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/repository"
)

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	return open(postgres.Open(dsn))
}

// OpenSQLite opens a SQLite database, e.g. "file:test?mode=memory&cache=shared".
func OpenSQLite(dsn string) (*gorm.DB, error) {
	return open(sqlite.Open(dsn))
}

func open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&productRow{},
		&categoryRow{},
		&inventoryRow{},
		&cartRow{},
		&orderRow{},
		&paymentRow{},
		&userRow{},
	)
}

// MapError maps driver and gorm failures onto domain error codes.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *entity.Error
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return entity.Wrap(entity.CodeConflict, op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return entity.Wrap(entity.CodeNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return entity.Wrap(entity.CodeInfrastructure, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return entity.Wrap(entity.CodeConflict, op, err) // unique_violation
		case "40001", "40P01", "55P03":
			return entity.Wrap(entity.CodeInfrastructure, op, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint"):
		return entity.Wrap(entity.CodeConflict, op, err)
	default:
		return entity.Wrap(entity.CodeInfrastructure, op, err)
	}
}

// save inserts row when expected is 0, otherwise updates it only if the stored
// version still equals expected.
func save(ctx context.Context, db *gorm.DB, op, aggregateType, id string, expected int, row any) error {
	if expected == 0 {
		if err := db.WithContext(ctx).Create(row).Error; err != nil {
			if entity.IsCode(MapError(op, err), entity.CodeConflict) {
				return entity.NewError(entity.CodeConflict, op, aggregateType+" "+id+" already exists", err)
			}
			return MapError(op, err)
		}
		return nil
	}
	res := db.WithContext(ctx).Model(row).Where("version = ?", expected).Select("*").Updates(row)
	if res.Error != nil {
		return MapError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.VersionConflict(op, aggregateType, id, expected)
	}
	return nil
}

// first loads one row into dst and reports whether it existed.
func first(ctx context.Context, db *gorm.DB, op string, dst any, query string, args ...any) (bool, error) {
	err := db.WithContext(ctx).Where(query, args...).Take(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, MapError(op, err)
	}
	return true, nil
}
