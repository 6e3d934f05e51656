package db

import (
	"log"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	_ "modernc.org/sqlite"

	"github.com/iuork/iuork-backend/internal/models"
)

// Connect opens postgres for a postgres:// DSN and falls back to sqlite
// otherwise (local development and tests, cgo-free modernc driver).
func Connect(dsn string) (*gorm.DB, error) {
	// Chats use uuid.Nil as the "no service" value, which no services row
	// backs, so FK constraints stay application-level.
	cfg := &gorm.Config{DisableForeignKeyConstraintWhenMigrating: true}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		log.Println("Connecting to PostgreSQL...")
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	log.Println("Using SQLite:", dsn)
	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
}

// Migrate applies the schema. Order matters for the foreign keys.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.ProfessionalProfile{},
		&models.Service{},
		&models.Chat{},
		&models.Message{},
		&models.Budget{},
		&models.Booking{},
		&models.Review{},
	)
}
