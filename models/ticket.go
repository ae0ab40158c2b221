package models

import (
	"time"
)

// Ticket is a numbered, purchase-backed pool entry. Ticket numbers form a
// dense 1-based sequence per pool; at most one ticket exists per purchase.
type Ticket struct {
	TicketID      int64     `json:"ticket_id" gorm:"primaryKey;autoIncrement"`
	PoolID        string    `json:"pool_id" gorm:"type:uuid;not null;uniqueIndex:uq_ticket_pool_ticketnum,priority:1"`
	UserID        string    `json:"user_id" gorm:"type:uuid;not null;index"`
	PurchaseID    string    `json:"purchase_id" gorm:"type:uuid;not null;uniqueIndex:uq_ticket_purchase"`
	WalletEntryID *int64    `json:"wallet_entry_id,omitempty"`
	TicketNum     int       `json:"ticket_num" gorm:"not null;uniqueIndex:uq_ticket_pool_ticketnum,priority:2"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}
