package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gmottola00/Tickup/database"
	"github.com/gmottola00/Tickup/models"
)

// newTestDB opens an isolated in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

// fundedWallet creates a wallet for the user and credits it with the given
// balance through the ledger.
func fundedWallet(t *testing.T, wallets *WalletService, userID string, balanceCents int64) *models.WalletAccount {
	t.Helper()
	wallet, err := wallets.GetOrCreateWallet(userID)
	require.NoError(t, err)
	if balanceCents > 0 {
		_, err = wallets.PostCredit(wallet.WalletID, balanceCents, models.LedgerReasonAdjustment, LedgerRefs{})
		require.NoError(t, err)
		wallet.BalanceCents = balanceCents
	}
	return wallet
}

// openPool inserts an OPEN pool with the given price and capacity.
func openPool(t *testing.T, db *gorm.DB, priceCents int64, capacity int) *models.RafflePool {
	t.Helper()
	pool := models.RafflePool{
		PoolID:           uuid.NewString(),
		PrizeID:          uuid.NewString(),
		TicketPriceCents: priceCents,
		TicketsRequired:  capacity,
		State:            models.PoolStateOpen,
	}
	require.NoError(t, db.Create(&pool).Error)
	return &pool
}

// confirmedPurchase funds the user's wallet, posts the debit and inserts a
// CONFIRMED ENTRY purchase referencing it.
func confirmedPurchase(t *testing.T, db *gorm.DB, wallets *WalletService, userID string, pool *models.RafflePool) *models.Purchase {
	t.Helper()
	wallet := fundedWallet(t, wallets, userID, pool.TicketPriceCents)
	entry, err := wallets.PostDebit(wallet.WalletID, pool.TicketPriceCents,
		models.LedgerReasonTicketPurchase, LedgerRefs{PoolID: &pool.PoolID})
	require.NoError(t, err)

	purchase := models.Purchase{
		PurchaseID:    uuid.NewString(),
		UserID:        userID,
		PoolID:        pool.PoolID,
		WalletEntryID: &entry.EntryID,
		Type:          models.PurchaseTypeEntry,
		AmountCents:   pool.TicketPriceCents,
		Currency:      "EUR",
		Status:        models.PurchaseStatusConfirmed,
	}
	require.NoError(t, db.Create(&purchase).Error)
	return &purchase
}
