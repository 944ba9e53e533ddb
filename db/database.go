package db

import (
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"mod-updater/logger"
)

var DB *gorm.DB

// zapWriter sends GORM's log lines to the application logger.
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	logger.Log.Debugf(format, args...)
}

// Open connects to the SQLite database at dbPath and migrates the schema.
func Open(dbPath string) (*gorm.DB, error) {
	newLogger := gormlogger.New(
		zapWriter{},
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	conn, err := gorm.Open(gormlite.Open(dbPath), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := conn.AutoMigrate(&Preference{}, &Download{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return conn, nil
}

// InitDatabase opens dbPath into the package-level DB.
func InitDatabase(dbPath string) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	DB = conn
	return nil
}
