package common

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"privateblog/config"
)

func ConnectDb(cfg config.DBConfig, logger *zap.SugaredLogger) (*gorm.DB, error) {
	switch cfg.Driver {
	case "postgres":
		return connectPostgres(cfg.PostgresDSN, logger)
	default:
		return connectSQLite(cfg.SQLitePath, logger)
	}
}

func connectSQLite(path string, logger *zap.SugaredLogger) (*gorm.DB, error) {
	logger.Infow("attemptConnectDb: opening sqlite", "path", path)

	db, err := gorm.Open(sqlite.Open(SQLiteDSN(path)), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite db %s: %w", path, err)
	}

	logger.Infow("opened sqlite db", "path", path)
	return db, nil
}

func connectPostgres(dsn string, logger *zap.SugaredLogger) (*gorm.DB, error) {
	logger.Info("attemptConnectDb: opening postgres through pgx")

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open gorm over postgres: %w", err)
	}

	logger.Info("opened postgres db")
	return db, nil
}

// SQLiteDSN turns a database file (or ":memory:"-style DSN) into one with
// foreign key enforcement switched on.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "_foreign_keys=") || strings.Contains(path, "_fk=") {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=1"
	}
	return path + "?_foreign_keys=1"
}
