package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const DefaultTable = "profiles"

// Open connects to the profile database. driver is "postgres" or "sqlite".
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported profile driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open profile database: %w", err)
	}
	return db, nil
}

// GormStore is a [Store] over a SQL table.
type GormStore struct {
	db    *gorm.DB
	table string
}

func NewGormStore(db *gorm.DB, table string) *GormStore {
	if strings.TrimSpace(table) == "" {
		table = DefaultTable
	}
	return &GormStore{db: db, table: table}
}

// Migrate creates or updates the profiles table.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).Table(s.table).AutoMigrate(&Profile{})
}

func (s *GormStore) Get(ctx context.Context, id string) (*Profile, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	var rows []Profile
	err := s.db.WithContext(ctx).
		Table(s.table).
		Where("id = ?", id).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *GormStore) Insert(ctx context.Context, p Profile) error {
	if err := validateID(p.ID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Table(s.table).Create(&p).Error
	if err == nil {
		return nil
	}
	if isDuplicate(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return fmt.Errorf("insert profile: %w", err)
}

func (s *GormStore) Upsert(ctx context.Context, p Profile, fields ...Field) error {
	if err := validateID(p.ID); err != nil {
		return err
	}
	fields = fieldsOrAll(fields)
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, string(f))
	}

	err := s.db.WithContext(ctx).
		Table(s.table).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}).
		Create(&p).Error
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
