package db

import (
	"log"
	"os"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	constant "factorydash.xyz/alert-engine/pkg/common"
	"factorydash.xyz/alert-engine/pkg/models"
)

type DB struct {
	Conn *gorm.DB
}

var (
	instance *DB
	once     sync.Once
)

// Models lists every table the engine owns, in migration order.
var Models = []any{
	&models.Rule{},
	&models.Channel{},
	&models.RecipientPreferences{},
	&models.Notification{},
	&models.DeliveryReceipt{},
}

func GetInstance(dialector gorm.Dialector) *DB {
	var logger = constant.GetLogger()
	once.Do(func() {
		conn, err := Open(dialector)
		if err != nil {
			log.Fatal("Failed to open database: ", err)
		}
		logger.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))
		instance = &DB{Conn: conn}
	})
	return instance
}

// Open connects and migrates without touching the process-wide instance.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if dialector.Name() == "sqlite" {
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		// sqlite serialises writers anyway; one connection keeps the shared
		// in-memory database alive and avoids SQLITE_BUSY under concurrent inserts.
		sqlDB.SetMaxOpenConns(1)

		if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, err
		}
		if err := conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
			return nil, err
		}
	}

	if err := conn.AutoMigrate(Models...); err != nil {
		return nil, err
	}
	constant.GetLogger().Info("Database migration completed")
	return conn, nil
}

func UseSqliteDialector() gorm.Dialector {
	var dbPath string
	var found bool
	if dbPath, found = os.LookupEnv(constant.EnvKeyAlertDbPath); !found {
		dbPath = "alerts.db"
	}
	return sqlite.Open(dbPath)
}

func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open("file::memory:?cache=shared")
}

func UsePostgresDialector() gorm.Dialector {
	return postgres.Open(os.Getenv(constant.EnvKeyAlertPostgresDSN))
}
