package services

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gmottola00/Tickup/logger"
	"github.com/gmottola00/Tickup/models"
	"github.com/gmottola00/Tickup/types"
)

// PurchaseService manages the purchase lifecycle: PENDING -> CONFIRMED or
// PENDING -> FAILED. Confirming an ENTRY purchase triggers ticket issuance
// in the same unit of work, exactly once.
type PurchaseService struct {
	DB      *gorm.DB
	Tickets *TicketService
}

func NewPurchaseService(db *gorm.DB, tickets *TicketService) *PurchaseService {
	return &PurchaseService{DB: db, Tickets: tickets}
}

type PurchaseCreate struct {
	PoolID        string
	Type          string
	AmountCents   int64
	Currency      string
	Status        string
	WalletEntryID *int64
	WalletHoldID  *string
	ProviderTxnID *string
}

type PurchaseUpdate struct {
	Status        *string
	AmountCents   *int64
	WalletEntryID *int64
	WalletHoldID  *string
	ProviderTxnID *string
}

// Create inserts a purchase. A CONFIRMED ENTRY purchase mints its ticket in
// the same transaction: if allocation fails nothing is created.
func (s *PurchaseService) Create(userID string, in PurchaseCreate) (*models.Purchase, error) {
	if in.Type == "" {
		in.Type = models.PurchaseTypeEntry
	}
	if in.Status == "" {
		in.Status = models.PurchaseStatusPending
	}
	if in.Currency == "" {
		in.Currency = "EUR"
	}
	if !models.ValidPurchaseType(in.Type) {
		return nil, types.New(types.ErrInvalidState, "invalid purchase type %q", in.Type)
	}
	if !models.ValidPurchaseStatus(in.Status) {
		return nil, types.New(types.ErrInvalidState, "invalid purchase status %q", in.Status)
	}
	if in.AmountCents <= 0 {
		return nil, types.New(types.ErrInvalidAmount, "amount must be greater than zero")
	}
	if in.Status == models.PurchaseStatusConfirmed && in.WalletEntryID == nil {
		return nil, types.New(types.ErrLedgerRefRequired,
			"a confirmed purchase requires a posted wallet debit reference")
	}

	purchase := models.Purchase{
		PurchaseID:    uuid.NewString(),
		UserID:        userID,
		PoolID:        in.PoolID,
		WalletEntryID: in.WalletEntryID,
		WalletHoldID:  in.WalletHoldID,
		Type:          in.Type,
		AmountCents:   in.AmountCents,
		Currency:      in.Currency,
		ProviderTxnID: in.ProviderTxnID,
		Status:        in.Status,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&purchase).Error; err != nil {
			return err
		}
		if purchase.Type == models.PurchaseTypeEntry && purchase.Status == models.PurchaseStatusConfirmed {
			if _, err := s.Tickets.allocateTx(tx, purchase.PoolID, userID, purchase.PurchaseID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if types.Is(err, types.ErrPoolFull) {
			s.Tickets.markPoolFull(in.PoolID)
		}
		return nil, err
	}
	return &purchase, nil
}

// Update applies a partial update. A transition into CONFIRMED requires a
// wallet debit reference and, for ENTRY purchases, issues the ticket in the
// same transaction; re-confirming a CONFIRMED purchase never issues twice.
func (s *PurchaseService) Update(purchaseID string, in PurchaseUpdate) (*models.Purchase, error) {
	var purchase models.Purchase
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&purchase, "purchase_id = ?", purchaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.New(types.ErrPurchaseNotFound, "purchase %s not found", purchaseID)
			}
			return err
		}

		previousStatus := purchase.Status

		if in.AmountCents != nil {
			if *in.AmountCents <= 0 {
				return types.New(types.ErrInvalidAmount, "amount must be greater than zero")
			}
			purchase.AmountCents = *in.AmountCents
		}
		if in.WalletEntryID != nil {
			purchase.WalletEntryID = in.WalletEntryID
		}
		if in.WalletHoldID != nil {
			purchase.WalletHoldID = in.WalletHoldID
		}
		if in.ProviderTxnID != nil {
			purchase.ProviderTxnID = in.ProviderTxnID
		}
		if in.Status != nil {
			if !models.ValidPurchaseStatus(*in.Status) {
				return types.New(types.ErrInvalidState, "invalid purchase status %q", *in.Status)
			}
			purchase.Status = *in.Status
		}

		if purchase.Status == models.PurchaseStatusConfirmed && purchase.WalletEntryID == nil {
			return types.New(types.ErrLedgerRefRequired,
				"a confirmed purchase requires a posted wallet debit reference")
		}

		if err := tx.Save(&purchase).Error; err != nil {
			return err
		}

		// Issuance fires only on the PENDING/FAILED -> CONFIRMED edge. The
		// unique ticket-per-purchase constraint backs this guard up, so even
		// a racing double confirmation cannot mint two tickets.
		if purchase.Type == models.PurchaseTypeEntry &&
			purchase.Status == models.PurchaseStatusConfirmed &&
			previousStatus != models.PurchaseStatusConfirmed {
			if _, err := s.Tickets.allocateTx(tx, purchase.PoolID, purchase.UserID, purchase.PurchaseID); err != nil {
				return err
			}
			logger.Info("purchase confirmed and redeemed",
				zap.String("purchase_id", purchase.PurchaseID),
				zap.String("pool_id", purchase.PoolID))
		}
		return nil
	})
	if err != nil {
		if types.Is(err, types.ErrPoolFull) {
			s.Tickets.markPoolFull(purchase.PoolID)
		}
		return nil, err
	}
	return &purchase, nil
}

// Get returns a purchase by id.
func (s *PurchaseService) Get(purchaseID string) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := s.DB.First(&purchase, "purchase_id = ?", purchaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.New(types.ErrPurchaseNotFound, "purchase %s not found", purchaseID)
		}
		return nil, err
	}
	return &purchase, nil
}

// ListAll returns every purchase, newest first.
func (s *PurchaseService) ListAll() ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := s.DB.Order("created_at DESC").Find(&purchases).Error
	return purchases, err
}

// ListByUser returns the user's purchases, newest first.
func (s *PurchaseService) ListByUser(userID string) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&purchases).Error
	return purchases, err
}

// Delete removes a purchase. A redeemed purchase cannot be deleted while a
// ticket references it.
func (s *PurchaseService) Delete(purchaseID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var purchase models.Purchase
		if err := tx.First(&purchase, "purchase_id = ?", purchaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.New(types.ErrPurchaseNotFound, "purchase %s not found", purchaseID)
			}
			return err
		}
		var redeemed int64
		if err := tx.Model(&models.Ticket{}).Where("purchase_id = ?", purchaseID).Count(&redeemed).Error; err != nil {
			return err
		}
		if redeemed > 0 {
			return types.New(types.ErrInvalidState,
				"purchase %s is redeemed into a ticket and cannot be deleted", purchaseID)
		}
		return tx.Delete(&models.Purchase{}, "purchase_id = ?", purchaseID).Error
	})
}
