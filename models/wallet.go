package models

import (
	"time"
)

const (
	WalletStatusActive    = "ACTIVE"
	WalletStatusSuspended = "SUSPENDED"
)

const (
	LedgerDirectionDebit  = "DEBIT"
	LedgerDirectionCredit = "CREDIT"
)

const (
	LedgerReasonTopup          = "TOPUP"
	LedgerReasonTicketPurchase = "TICKET_PURCHASE"
	LedgerReasonRefund         = "REFUND"
	LedgerReasonPrizePayout    = "PRIZE_PAYOUT"
	LedgerReasonAdjustment     = "ADJUSTMENT"
)

const (
	LedgerEntryPending  = "PENDING"
	LedgerEntryPosted   = "POSTED"
	LedgerEntryReversed = "REVERSED"
)

const (
	TopupStatusCreated    = "CREATED"
	TopupStatusProcessing = "PROCESSING"
	TopupStatusCompleted  = "COMPLETED"
	TopupStatusFailed     = "FAILED"
	TopupStatusCancelled  = "CANCELLED"
)

// WalletAccount is the single monetary account per user. The balance is
// mutated only through ledger entry posting; it always equals the signed sum
// of POSTED entries.
type WalletAccount struct {
	WalletID     string    `json:"wallet_id" gorm:"primaryKey;type:uuid"`
	UserID       string    `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:uq_wallet_account_user"`
	BalanceCents int64     `json:"balance_cents" gorm:"not null;default:0"`
	Currency     string    `json:"currency" gorm:"size:3;not null;default:'EUR'"`
	Status       string    `json:"status" gorm:"not null;default:'ACTIVE'"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// WalletLedgerEntry is one immutable journal line. Entries are append-only:
// corrections happen through new REVERSED/CREDIT entries, never edits.
type WalletLedgerEntry struct {
	EntryID        int64     `json:"entry_id" gorm:"primaryKey;autoIncrement"`
	WalletID       string    `json:"wallet_id" gorm:"type:uuid;not null;index:ix_wallet_ledger_wallet_created,priority:1"`
	Direction      string    `json:"direction" gorm:"not null"`
	AmountCents    int64     `json:"amount_cents" gorm:"not null"`
	Reason         string    `json:"reason" gorm:"not null"`
	Status         string    `json:"status" gorm:"not null;default:'PENDING'"`
	RefPurchaseID  *string   `json:"ref_purchase_id,omitempty" gorm:"type:uuid"`
	RefPoolID      *string   `json:"ref_pool_id,omitempty" gorm:"type:uuid"`
	RefTicketID    *int64    `json:"ref_ticket_id,omitempty"`
	RefExternalTxn *string   `json:"ref_external_txn,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime;index:ix_wallet_ledger_wallet_created,priority:2"`
}

// WalletTopupRequest tracks an external funding attempt. COMPLETED, FAILED
// and CANCELLED are terminal.
type WalletTopupRequest struct {
	TopupID       string     `json:"topup_id" gorm:"primaryKey;type:uuid"`
	WalletID      string     `json:"wallet_id" gorm:"type:uuid;not null;index"`
	Provider      string     `json:"provider" gorm:"not null"`
	ProviderTxnID *string    `json:"provider_txn_id,omitempty" gorm:"uniqueIndex:uq_wallet_topup_provider_txn"`
	AmountCents   int64      `json:"amount_cents" gorm:"not null"`
	Status        string     `json:"status" gorm:"not null;default:'CREATED'"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}
