package services

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gmottola00/Tickup/logger"
	"github.com/gmottola00/Tickup/models"
	"github.com/gmottola00/Tickup/types"
)

// TicketService converts confirmed ENTRY purchases into numbered tickets.
// It owns the pool's sold count and the OPEN -> FULL transition; allocation
// is serialized per pool by locking the pool row for the whole sequence.
type TicketService struct {
	DB *gorm.DB
}

func NewTicketService(db *gorm.DB) *TicketService {
	return &TicketService{DB: db}
}

// PurchaseTicketForPool mints the ticket for a confirmed ENTRY purchase in
// its own transaction.
func (s *TicketService) PurchaseTicketForPool(poolID, userID, purchaseID string) (*models.Ticket, error) {
	var ticket *models.Ticket
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		t, err := s.allocateTx(tx, poolID, userID, purchaseID)
		ticket = t
		return err
	})
	if err != nil {
		if types.Is(err, types.ErrPoolFull) {
			// The failed allocation rolled back; repair the stale OPEN state
			// it observed so later callers fail fast.
			s.markPoolFull(poolID)
		}
		return nil, err
	}
	return ticket, nil
}

// allocateTx runs the allocation inside a caller-owned transaction, so
// purchase confirmation can mint the ticket atomically with its own write.
// Any error must roll back the caller's whole unit of work.
func (s *TicketService) allocateTx(tx *gorm.DB, poolID, userID, purchaseID string) (*models.Ticket, error) {
	var pool models.RafflePool
	if err := forUpdate(tx).First(&pool, "pool_id = ?", poolID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.New(types.ErrPoolNotFound, "pool %s not found", poolID)
		}
		return nil, err
	}

	var purchase models.Purchase
	if err := tx.First(&purchase, "purchase_id = ?", purchaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.New(types.ErrPurchaseNotFound, "purchase %s not found", purchaseID)
		}
		return nil, err
	}

	if pool.State != models.PoolStateOpen {
		return nil, types.New(types.ErrPoolNotOpen, "pool %s is %s", poolID, pool.State)
	}

	// The live ticket count is authoritative; the cached tickets_sold column
	// may drift and is resynced below.
	var sold int64
	if err := tx.Model(&models.Ticket{}).Where("pool_id = ?", poolID).Count(&sold).Error; err != nil {
		return nil, err
	}
	if sold >= int64(pool.TicketsRequired) {
		return nil, types.New(types.ErrPoolFull, "pool %s already sold %d/%d tickets",
			poolID, sold, pool.TicketsRequired)
	}

	if purchase.UserID != userID {
		return nil, types.New(types.ErrForbidden, "purchase %s does not belong to user %s", purchaseID, userID)
	}
	if purchase.Type != models.PurchaseTypeEntry {
		return nil, types.New(types.ErrWrongPurchaseType, "purchase %s is %s, not ENTRY", purchaseID, purchase.Type)
	}
	if purchase.Status != models.PurchaseStatusConfirmed {
		return nil, types.New(types.ErrPurchaseNotConfirmed, "purchase %s is %s", purchaseID, purchase.Status)
	}
	if purchase.WalletEntryID == nil {
		return nil, types.New(types.ErrMissingLedgerRef, "purchase %s has no wallet debit reference", purchaseID)
	}

	var redeemed int64
	if err := tx.Model(&models.Ticket{}).Where("purchase_id = ?", purchaseID).Count(&redeemed).Error; err != nil {
		return nil, err
	}
	if redeemed > 0 {
		return nil, types.New(types.ErrAlreadyRedeemed, "purchase %s already redeemed", purchaseID)
	}

	ticket := models.Ticket{
		PoolID:        poolID,
		UserID:        userID,
		PurchaseID:    purchaseID,
		WalletEntryID: purchase.WalletEntryID,
		TicketNum:     int(sold) + 1,
	}
	if err := tx.Create(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Backstop: the unique purchase_id index caught a concurrent
			// redemption of the same purchase.
			return nil, types.New(types.ErrAlreadyRedeemed, "purchase %s already redeemed", purchaseID)
		}
		return nil, err
	}

	newSold := int(sold) + 1
	updates := map[string]interface{}{"tickets_sold": newSold}
	if newSold >= pool.TicketsRequired {
		updates["state"] = models.PoolStateFull
	}
	if err := tx.Model(&models.RafflePool{}).Where("pool_id = ?", poolID).Updates(updates).Error; err != nil {
		return nil, err
	}

	logger.Info("ticket issued",
		zap.String("pool_id", poolID),
		zap.String("user_id", userID),
		zap.Int("ticket_num", ticket.TicketNum),
		zap.Int("tickets_sold", newSold))
	return &ticket, nil
}

// markPoolFull flips a pool whose live ticket count already reached capacity
// to FULL, in its own transaction. Called after a PoolFull rejection rolled
// back, since the state fix inside the failed unit of work is lost with it.
func (s *TicketService) markPoolFull(poolID string) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var pool models.RafflePool
		if err := forUpdate(tx).First(&pool, "pool_id = ?", poolID).Error; err != nil {
			return err
		}
		if pool.State != models.PoolStateOpen {
			return nil
		}
		var sold int64
		if err := tx.Model(&models.Ticket{}).Where("pool_id = ?", poolID).Count(&sold).Error; err != nil {
			return err
		}
		if sold < int64(pool.TicketsRequired) {
			return nil
		}
		return tx.Model(&models.RafflePool{}).
			Where("pool_id = ?", poolID).
			Updates(map[string]interface{}{
				"state":        models.PoolStateFull,
				"tickets_sold": sold,
			}).Error
	})
	if err != nil {
		logger.Warn("failed to mark pool full", zap.String("pool_id", poolID), zap.Error(err))
	}
}

// GetTicket returns a ticket by id.
func (s *TicketService) GetTicket(ticketID int64) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := s.DB.First(&ticket, "ticket_id = ?", ticketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.New(types.ErrInvalidState, "ticket %d not found", ticketID)
		}
		return nil, err
	}
	return &ticket, nil
}

// ListPoolTickets returns all tickets of a pool ordered by ticket number.
func (s *TicketService) ListPoolTickets(poolID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.DB.Where("pool_id = ?", poolID).Order("ticket_num ASC").Find(&tickets).Error
	return tickets, err
}
