package gorm

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB struct
type DB struct {
	Postgres *gorm.DB
}

// ConnectToPostgreSQL func
func ConnectToPostgreSQL(host, port, username, pass, dbname string, sslmode bool) (*DB, error) {
	if host == "" && port == "" && dbname == "" {
		return nil, errors.New("cannot establish the connection: host, port and database are empty")
	}

	connectionStr := dsn(host, port, username, pass, dbname, sslmode)

	pg, err := gorm.Open(postgres.Open(connectionStr), &gorm.Config{
		DryRun: false,
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		logrus.Error(err)
		return nil, err
	}

	sqlDB, err := pg.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logrus.Infof("Connected to postgres %s:%s/%s as %s", host, port, dbname, username)
	return &DB{Postgres: pg}, nil
}

func dsn(host, port, username, pass, dbname string, sslmode bool) string {
	mode := "disable"
	if sslmode {
		mode = "require"
	}
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v sslmode=%s connect_timeout=5", host, username, pass, dbname, port, mode)
}

// DisconnectPostgres func
func DisconnectPostgres(db *gorm.DB) {
	sqlDb, err := db.DB()
	if err != nil {
		logrus.Error(err)
		return
	}
	err = sqlDb.Close()
	if err != nil {
		logrus.Error(err)
	}
	logrus.Println("Connected with postgres has closed")
}
