// Package journal keeps an sqlite history of the launches.
package journal

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var ErrNotOpen = errors.New("journal is not open")

// Launch is one launcher invocation
type Launch struct {
	ID         string    `gorm:"primaryKey"`
	StartedAt  time.Time `gorm:"index;not null"`
	FinishedAt sql.NullTime
	Host       string `gorm:"not null"`
	Port       string `gorm:"not null"`
	WorkDir    string
	EntryPoint string
	PID        int
	ExitCode   int
	Error      string
}

type SQLiteJournal struct {
	Path     string
	database *gorm.DB
}

func (sqliteJournal *SQLiteJournal) Open() (err error) {
	if err = os.MkdirAll(filepath.Dir(sqliteJournal.Path), 0755); err != nil {
		return
	}
	dialector := sqlite.Open(sqliteJournal.Path)
	if sqliteJournal.database, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}); err != nil {
		return
	}
	return
}

func (sqliteJournal *SQLiteJournal) Migrate() error {
	if sqliteJournal.database == nil {
		return ErrNotOpen
	}
	return sqliteJournal.database.AutoMigrate(&Launch{})
}

func (sqliteJournal *SQLiteJournal) Close() (err error) {
	if sqliteJournal.database == nil {
		return
	}
	var database *sql.DB
	if database, err = sqliteJournal.database.DB(); err != nil {
		return
	}
	if err = database.Close(); err != nil {
		return
	}
	sqliteJournal.database = nil
	return
}

func (sqliteJournal *SQLiteJournal) CreateOrUpdate(launch *Launch) error {
	if sqliteJournal.database == nil {
		return ErrNotOpen
	}
	if result := sqliteJournal.database.Clauses(clause.OnConflict{
		UpdateAll: true,
	}).Create(launch); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetLaunches returns the most recent launches first, all of them when limit <= 0
func (sqliteJournal *SQLiteJournal) GetLaunches(limit int) (entities []Launch, err error) {
	if sqliteJournal.database == nil {
		err = ErrNotOpen
		return
	}
	query := sqliteJournal.database.Order("started_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if result := query.Find(&entities); result.Error != nil {
		err = result.Error
		return
	}
	return
}

func (sqliteJournal *SQLiteJournal) GetLaunch(id string) (entity Launch, err error) {
	if sqliteJournal.database == nil {
		err = ErrNotOpen
		return
	}
	if result := sqliteJournal.database.First(&entity, "id = ?", id); result.Error != nil {
		err = result.Error
	}
	return
}
