package models

import (
	"time"
)

const (
	PurchaseTypeEntry = "ENTRY"
	PurchaseTypeBoost = "BOOST"
	PurchaseTypeRetry = "RETRY"
)

const (
	PurchaseStatusPending   = "PENDING"
	PurchaseStatusConfirmed = "CONFIRMED"
	PurchaseStatusFailed    = "FAILED"
)

// Purchase is a monetary commitment against a pool. A purchase may only be
// CONFIRMED while referencing a posted wallet debit entry.
type Purchase struct {
	PurchaseID    string    `json:"purchase_id" gorm:"primaryKey;type:uuid"`
	UserID        string    `json:"user_id" gorm:"type:uuid;not null;index"`
	PoolID        string    `json:"pool_id" gorm:"type:uuid;not null;index"`
	WalletEntryID *int64    `json:"wallet_entry_id,omitempty"`
	WalletHoldID  *string   `json:"wallet_hold_id,omitempty" gorm:"type:uuid"`
	Type          string    `json:"type" gorm:"not null;default:'ENTRY'"`
	AmountCents   int64     `json:"amount_cents" gorm:"not null"`
	Currency      string    `json:"currency" gorm:"size:3;not null;default:'EUR'"`
	ProviderTxnID *string   `json:"provider_txn_id,omitempty"`
	Status        string    `json:"status" gorm:"not null;default:'PENDING'"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func ValidPurchaseType(t string) bool {
	switch t {
	case PurchaseTypeEntry, PurchaseTypeBoost, PurchaseTypeRetry:
		return true
	}
	return false
}

func ValidPurchaseStatus(s string) bool {
	switch s {
	case PurchaseStatusPending, PurchaseStatusConfirmed, PurchaseStatusFailed:
		return true
	}
	return false
}
