package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	sqlite3 "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Handle struct {
	DB     *gorm.DB
	Driver string
	Path   string // DSN (dla sqlite ścieżka pliku)
}

// OpenAt otwiera domyślną bazę sqlite w katalogu aplikacji.
func OpenAt(dir string) (*Handle, error) {
	return Open("sqlite", filepath.Join(dir, "pimsync.db"))
}

// Open: sqlite (czysty Go, glebarez), sqlite3 (cgo, mattn), postgres, mysql.
func Open(driver, dsn string) (*Handle, error) {
	var dial gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		dial = sqlite.Open(dsn)
	case "sqlite3":
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		dial = sqlite3.Open(dsn)
	case "postgres", "postgresql":
		dial = postgres.Open(dsn)
	case "mysql":
		dial = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	gdb, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // logger.Info gdy potrzebny verbose SQL
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return &Handle{DB: gdb, Driver: driver, Path: dsn}, nil
}

func (h *Handle) Close() error {
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureDir(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, ":memory:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(dsn), 0o755)
}
