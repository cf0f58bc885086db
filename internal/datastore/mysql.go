package datastore

import (
	"fmt"

	"github.com/mkoivun/antdb-go/internal/conf"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// Open sets up the MySQL database connection
func (store *MySQLStore) Open() error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		store.Settings.Output.MySQL.Username, store.Settings.Output.MySQL.Password,
		store.Settings.Output.MySQL.Host, store.Settings.Output.MySQL.Port,
		store.Settings.Output.MySQL.Database)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: createGormLogger()})
	if err != nil {
		return dbError(err, "open", "critical",
			"db_type", "MySQL",
			"host", store.Settings.Output.MySQL.Host,
			"database", store.Settings.Output.MySQL.Database)
	}

	store.DB = db
	connInfo := fmt.Sprintf("%s:%s/%s", store.Settings.Output.MySQL.Host,
		store.Settings.Output.MySQL.Port, store.Settings.Output.MySQL.Database)
	return performAutoMigration(db, store.Settings.Debug, "MySQL", connInfo)
}

// Close closes the underlying MySQL connection pool
func (store *MySQLStore) Close() error {
	if store.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	sqlDB, err := store.DB.DB()
	if err != nil {
		return dbError(err, "close", "", "db_type", "MySQL")
	}

	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", "", "db_type", "MySQL")
	}

	return nil
}
