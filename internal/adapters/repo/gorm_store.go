package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"boss-timer-bot/internal/domain"
)

// TimerDocument описывает строку таблицы документов скоупов.
type TimerDocument struct {
	ScopeKey  string `gorm:"primaryKey;type:text"`
	GuildID   int64  `gorm:"not null"`
	ChannelID int64  `gorm:"not null"`
	Document  string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName implements the GORM tabler interface.
func (TimerDocument) TableName() string { return "boss_timer_documents" }

// GormStore хранит документы скоупов через GORM (по умолчанию встраиваемый SQLite).
type GormStore struct {
	db  *gorm.DB
	loc *time.Location
}

var _ domain.TimerStore = (*GormStore)(nil)

// OpenSQLite открывает файл SQLite и мигрирует таблицу документов.
func OpenSQLite(path string, loc *time.Location) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	return NewGormStore(db, loc)
}

// NewGormStore мигрирует таблицу и создаёт хранилище поверх готового *gorm.DB.
func NewGormStore(db *gorm.DB, loc *time.Location) (*GormStore, error) {
	if err := db.AutoMigrate(&TimerDocument{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db, loc: loc}, nil
}

// Load реализует domain.TimerStore.
func (s *GormStore) Load(ctx context.Context, scope domain.Scope) (domain.TimerMap, error) {
	var row TimerDocument
	err := s.db.WithContext(ctx).Where("scope_key = ?", scope.Key()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.TimerMap{}, nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeTimers([]byte(row.Document), s.loc)
}

// Save реализует domain.TimerStore.
func (s *GormStore) Save(ctx context.Context, scope domain.Scope, timers domain.TimerMap) error {
	data, err := EncodeTimers(timers)
	if err != nil {
		return err
	}
	row := TimerDocument{
		ScopeKey:  scope.Key(),
		GuildID:   scope.GuildID,
		ChannelID: scope.ChannelID,
		Document:  string(data),
		UpdatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"document", "updated_at"}),
	}).Create(&row).Error
}

// Clear реализует domain.TimerStore.
func (s *GormStore) Clear(ctx context.Context, scope domain.Scope) error {
	return s.db.WithContext(ctx).Where("scope_key = ?", scope.Key()).Delete(&TimerDocument{}).Error
}
