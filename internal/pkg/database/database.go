package database

import "gorm.io/gorm"

var DB *gorm.DB

// GetDB returns the process-wide GORM handle set up by SetupDatabase.
// Services receive the handle via constructor injection; this accessor exists
// for the composition root and request middleware only.
func GetDB() *gorm.DB {
	return DB
}

// SetDB swaps the database handle. Used by tests to inject a fake.
func SetDB(db *gorm.DB) {
	DB = db
}
