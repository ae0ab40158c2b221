package models

import (
	"time"
)

// Pool state transitions only move forward:
// OPEN -> FULL -> TOURNAMENT_READY -> TOURNAMENT_COMPLETED.
const (
	PoolStateOpen                = "OPEN"
	PoolStateFull                = "FULL"
	PoolStateTournamentReady     = "TOURNAMENT_READY"
	PoolStateTournamentCompleted = "TOURNAMENT_COMPLETED"
)

// RafflePool sells a fixed number of tickets backing a single prize.
// TicketsSold is a cached counter; the authoritative count is the number of
// ticket rows referencing the pool.
type RafflePool struct {
	PoolID           string    `json:"pool_id" gorm:"primaryKey;type:uuid"`
	PrizeID          string    `json:"prize_id" gorm:"type:uuid;not null;uniqueIndex:uq_raffle_pool_prize"`
	TicketPriceCents int64     `json:"ticket_price_cents" gorm:"not null"`
	TicketsRequired  int       `json:"tickets_required" gorm:"not null"`
	TicketsSold      int       `json:"tickets_sold" gorm:"not null;default:0"`
	Likes            int       `json:"likes" gorm:"not null;default:0"`
	State            string    `json:"state" gorm:"not null;default:'OPEN'"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// PoolLike records one like per user per pool; the composite key makes a
// duplicate like a constraint conflict resolved idempotently.
type PoolLike struct {
	PoolID    string    `json:"pool_id" gorm:"primaryKey;type:uuid"`
	UserID    string    `json:"user_id" gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
