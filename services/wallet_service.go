package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gmottola00/Tickup/logger"
	"github.com/gmottola00/Tickup/models"
	"github.com/gmottola00/Tickup/types"
)

// WalletService owns wallet balances and the ledger journal. It is the only
// component that mutates a balance: every mutation happens in the same
// transaction as its journal entry.
type WalletService struct {
	DB *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{DB: db}
}

// LedgerRefs carries the optional references a ledger entry can point at.
type LedgerRefs struct {
	PurchaseID  *string
	PoolID      *string
	TicketID    *int64
	ExternalTxn *string
}

// GetOrCreateWallet returns the user's wallet, creating it with a zero
// balance on first access. A concurrent duplicate creation loses the unique
// user_id race and resolves by re-reading the winner's row.
func (s *WalletService) GetOrCreateWallet(userID string) (*models.WalletAccount, error) {
	return s.getOrCreateWalletTx(s.DB, userID)
}

func (s *WalletService) getOrCreateWalletTx(tx *gorm.DB, userID string) (*models.WalletAccount, error) {
	var wallet models.WalletAccount
	err := tx.First(&wallet, "user_id = ?", userID).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wallet = models.WalletAccount{
		WalletID: uuid.NewString(),
		UserID:   userID,
		Currency: "EUR",
		Status:   models.WalletStatusActive,
	}
	if err := tx.Create(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the first-access race; the other creator's row wins.
			if err := tx.First(&wallet, "user_id = ?", userID).Error; err != nil {
				return nil, err
			}
			return &wallet, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// GetWallet returns the wallet by id.
func (s *WalletService) GetWallet(walletID string) (*models.WalletAccount, error) {
	var wallet models.WalletAccount
	if err := s.DB.First(&wallet, "wallet_id = ?", walletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.New(types.ErrWalletNotFound, "wallet %s not found", walletID)
		}
		return nil, err
	}
	return &wallet, nil
}

// PostDebit decrements the balance and appends a POSTED debit entry in one
// transaction. Fails without writes on a non-positive amount or a balance
// lower than the amount.
func (s *WalletService) PostDebit(walletID string, amountCents int64, reason string, refs LedgerRefs) (*models.WalletLedgerEntry, error) {
	var entry *models.WalletLedgerEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		e, err := s.postEntryTx(tx, walletID, models.LedgerDirectionDebit, amountCents, reason, refs)
		entry = e
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// PostCredit increments the balance and appends a POSTED credit entry in one
// transaction.
func (s *WalletService) PostCredit(walletID string, amountCents int64, reason string, refs LedgerRefs) (*models.WalletLedgerEntry, error) {
	var entry *models.WalletLedgerEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		e, err := s.PostCreditTx(tx, walletID, amountCents, reason, refs)
		entry = e
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// PostCreditTx posts a credit inside a caller-owned transaction, so callers
// can commit the credit together with their own state change.
func (s *WalletService) PostCreditTx(tx *gorm.DB, walletID string, amountCents int64, reason string, refs LedgerRefs) (*models.WalletLedgerEntry, error) {
	return s.postEntryTx(tx, walletID, models.LedgerDirectionCredit, amountCents, reason, refs)
}

func (s *WalletService) postEntryTx(tx *gorm.DB, walletID, direction string, amountCents int64, reason string, refs LedgerRefs) (*models.WalletLedgerEntry, error) {
	if amountCents <= 0 {
		return nil, types.New(types.ErrInvalidAmount, "amount must be greater than zero")
	}

	var wallet models.WalletAccount
	if err := forUpdate(tx).First(&wallet, "wallet_id = ?", walletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.New(types.ErrWalletNotFound, "wallet %s not found", walletID)
		}
		return nil, err
	}

	newBalance := wallet.BalanceCents
	if direction == models.LedgerDirectionDebit {
		if amountCents > wallet.BalanceCents {
			return nil, types.New(types.ErrInsufficientFunds,
				"balance %d insufficient for debit of %d", wallet.BalanceCents, amountCents)
		}
		newBalance -= amountCents
	} else {
		newBalance += amountCents
	}

	if err := tx.Model(&models.WalletAccount{}).
		Where("wallet_id = ?", wallet.WalletID).
		Update("balance_cents", newBalance).Error; err != nil {
		return nil, err
	}

	entry := models.WalletLedgerEntry{
		WalletID:       wallet.WalletID,
		Direction:      direction,
		AmountCents:    amountCents,
		Reason:         reason,
		Status:         models.LedgerEntryPosted,
		RefPurchaseID:  refs.PurchaseID,
		RefPoolID:      refs.PoolID,
		RefTicketID:    refs.TicketID,
		RefExternalTxn: refs.ExternalTxn,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}

	logger.Debug("ledger entry posted",
		zap.String("wallet_id", wallet.WalletID),
		zap.String("direction", direction),
		zap.Int64("amount_cents", amountCents),
		zap.String("reason", reason))
	return &entry, nil
}

// ListLedger returns entries newest first plus the total count.
func (s *WalletService) ListLedger(walletID string, limit, offset int) ([]models.WalletLedgerEntry, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var entries []models.WalletLedgerEntry
	err := s.DB.Where("wallet_id = ?", walletID).
		Order("created_at DESC, entry_id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.DB.Model(&models.WalletLedgerEntry{}).
		Where("wallet_id = ?", walletID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// CreateTopup records an external funding attempt in CREATED state. The
// provider transaction id, when present, must be globally unique.
func (s *WalletService) CreateTopup(walletID, provider string, amountCents int64, providerTxnID *string) (*models.WalletTopupRequest, error) {
	if amountCents <= 0 {
		return nil, types.New(types.ErrInvalidAmount, "amount must be greater than zero")
	}

	topup := models.WalletTopupRequest{
		TopupID:       uuid.NewString(),
		WalletID:      walletID,
		Provider:      provider,
		ProviderTxnID: providerTxnID,
		AmountCents:   amountCents,
		Status:        models.TopupStatusCreated,
	}
	if err := s.DB.Create(&topup).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && providerTxnID != nil {
			return nil, types.New(types.ErrDuplicateExternalTxn,
				"provider transaction %s already registered", *providerTxnID)
		}
		return nil, err
	}
	return &topup, nil
}

// ListTopups returns the wallet's top-up requests newest first.
func (s *WalletService) ListTopups(walletID string, limit, offset int) ([]models.WalletTopupRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var topups []models.WalletTopupRequest
	err := s.DB.Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&topups).Error
	return topups, err
}

// CompleteTopup marks the top-up COMPLETED and posts the funding credit as
// one atomic unit. Completing twice fails; FAILED/CANCELLED are terminal.
func (s *WalletService) CompleteTopup(walletID, topupID string, providerTxnID *string) (*models.WalletTopupRequest, *models.WalletLedgerEntry, error) {
	var (
		topup models.WalletTopupRequest
		entry *models.WalletLedgerEntry
	)
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&topup, "topup_id = ?", topupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.New(types.ErrTopupNotFound, "top-up %s not found", topupID)
			}
			return err
		}
		if topup.WalletID != walletID {
			return types.New(types.ErrTopupNotFound, "top-up %s not found", topupID)
		}

		switch topup.Status {
		case models.TopupStatusCompleted:
			return types.New(types.ErrAlreadyCompleted, "top-up %s already completed", topupID)
		case models.TopupStatusFailed, models.TopupStatusCancelled:
			return types.New(types.ErrInvalidState,
				"top-up %s cannot be completed from state %s", topupID, topup.Status)
		}

		if providerTxnID != nil {
			topup.ProviderTxnID = providerTxnID
		}
		now := time.Now().UTC()
		topup.Status = models.TopupStatusCompleted
		topup.CompletedAt = &now
		if err := tx.Save(&topup).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) && providerTxnID != nil {
				return types.New(types.ErrDuplicateExternalTxn,
					"provider transaction %s already registered", *providerTxnID)
			}
			return err
		}

		e, err := s.PostCreditTx(tx, topup.WalletID, topup.AmountCents,
			models.LedgerReasonTopup, LedgerRefs{ExternalTxn: topup.ProviderTxnID})
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &topup, entry, nil
}
