package database

import (
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/gmottola00/Tickup/models"
)

// Connect opens the Postgres connection from DATABASE_URL.
func Connect() (*gorm.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// AutoMigrate creates or updates the schema for every model the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.WalletAccount{},
		&models.WalletLedgerEntry{},
		&models.WalletTopupRequest{},
		&models.Purchase{},
		&models.RafflePool{},
		&models.PoolLike{},
		&models.Ticket{},
		&models.Tournament{},
		&models.TournamentPhase{},
		&models.TournamentParticipant{},
	)
}
