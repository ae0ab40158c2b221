package services

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/gmottola00/Tickup/models"
	"github.com/gmottola00/Tickup/types"
)

type ticketServiceSuite struct {
	suite.Suite
	db      *gorm.DB
	wallets *WalletService
	tickets *TicketService
}

func TestTicketService(t *testing.T) {
	suite.Run(t, new(ticketServiceSuite))
}

func (s *ticketServiceSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.wallets = NewWalletService(s.db)
	s.tickets = NewTicketService(s.db)
}

func (s *ticketServiceSuite) TestDenseNumberingAndFullTransition() {
	pool := openPool(s.T(), s.db, 500, 3)

	for i := 1; i <= 3; i++ {
		userID := uuid.NewString()
		purchase := confirmedPurchase(s.T(), s.db, s.wallets, userID, pool)

		ticket, err := s.tickets.PurchaseTicketForPool(pool.PoolID, userID, purchase.PurchaseID)
		s.Require().NoError(err)
		s.Equal(i, ticket.TicketNum)
		s.Equal(purchase.WalletEntryID, ticket.WalletEntryID)
	}

	var reloaded models.RafflePool
	s.Require().NoError(s.db.First(&reloaded, "pool_id = ?", pool.PoolID).Error)
	s.Equal(models.PoolStateFull, reloaded.State)
	s.Equal(3, reloaded.TicketsSold)

	list, err := s.tickets.ListPoolTickets(pool.PoolID)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	for i, ticket := range list {
		s.Equal(i+1, ticket.TicketNum)
	}
}

func (s *ticketServiceSuite) TestAllocationOnFullPoolRejected() {
	pool := openPool(s.T(), s.db, 500, 1)

	first := uuid.NewString()
	purchase := confirmedPurchase(s.T(), s.db, s.wallets, first, pool)
	_, err := s.tickets.PurchaseTicketForPool(pool.PoolID, first, purchase.PurchaseID)
	s.Require().NoError(err)

	// The pool flipped to FULL; a later attempt fails on state.
	second := uuid.NewString()
	late := confirmedPurchase(s.T(), s.db, s.wallets, second, pool)
	_, err = s.tickets.PurchaseTicketForPool(pool.PoolID, second, late.PurchaseID)
	s.True(types.Is(err, types.ErrPoolNotOpen))

	var count int64
	s.Require().NoError(s.db.Model(&models.Ticket{}).Where("pool_id = ?", pool.PoolID).Count(&count).Error)
	s.Equal(int64(1), count)
}

func (s *ticketServiceSuite) TestStalePoolStateRepairedOnCapacityHit() {
	pool := openPool(s.T(), s.db, 500, 1)

	first := uuid.NewString()
	purchase := confirmedPurchase(s.T(), s.db, s.wallets, first, pool)
	_, err := s.tickets.PurchaseTicketForPool(pool.PoolID, first, purchase.PurchaseID)
	s.Require().NoError(err)

	// Simulate a drifted cached state: the live ticket count is what decides.
	s.Require().NoError(s.db.Model(&models.RafflePool{}).
		Where("pool_id = ?", pool.PoolID).
		Update("state", models.PoolStateOpen).Error)

	second := uuid.NewString()
	late := confirmedPurchase(s.T(), s.db, s.wallets, second, pool)
	_, err = s.tickets.PurchaseTicketForPool(pool.PoolID, second, late.PurchaseID)
	s.True(types.Is(err, types.ErrPoolFull))

	// The rejection repaired the stale OPEN state even though the failed
	// allocation rolled back.
	var reloaded models.RafflePool
	s.Require().NoError(s.db.First(&reloaded, "pool_id = ?", pool.PoolID).Error)
	s.Equal(models.PoolStateFull, reloaded.State)
	s.Equal(1, reloaded.TicketsSold)
}

func (s *ticketServiceSuite) TestConcurrentAllocationsGetDistinctNumbers() {
	pool := openPool(s.T(), s.db, 500, 2)

	// sqlite allows one writer; a single connection makes the racing
	// transactions queue instead of failing with a busy error.
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	users := []string{uuid.NewString(), uuid.NewString()}
	purchases := make([]*models.Purchase, len(users))
	for i, userID := range users {
		purchases[i] = confirmedPurchase(s.T(), s.db, s.wallets, userID, pool)
	}

	tickets := make([]*models.Ticket, len(users))
	errs := make([]error, len(users))
	var wg sync.WaitGroup
	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tickets[i], errs[i] = s.tickets.PurchaseTicketForPool(pool.PoolID, users[i], purchases[i].PurchaseID)
		}(i)
	}
	wg.Wait()

	seen := map[int]bool{}
	for i := range users {
		s.Require().NoError(errs[i])
		s.False(seen[tickets[i].TicketNum])
		seen[tickets[i].TicketNum] = true
	}
	// Exactly one racer took number 1, the other number 2.
	s.True(seen[1])
	s.True(seen[2])

	var reloaded models.RafflePool
	s.Require().NoError(s.db.First(&reloaded, "pool_id = ?", pool.PoolID).Error)
	s.Equal(models.PoolStateFull, reloaded.State)
	s.Equal(2, reloaded.TicketsSold)
}

func (s *ticketServiceSuite) TestPurchaseOwnershipEnforced() {
	pool := openPool(s.T(), s.db, 500, 2)
	owner := uuid.NewString()
	purchase := confirmedPurchase(s.T(), s.db, s.wallets, owner, pool)

	_, err := s.tickets.PurchaseTicketForPool(pool.PoolID, uuid.NewString(), purchase.PurchaseID)
	s.True(types.Is(err, types.ErrForbidden))
}

func (s *ticketServiceSuite) TestNonEntryPurchaseRejected() {
	pool := openPool(s.T(), s.db, 500, 2)
	userID := uuid.NewString()
	purchase := confirmedPurchase(s.T(), s.db, s.wallets, userID, pool)
	s.Require().NoError(s.db.Model(&models.Purchase{}).
		Where("purchase_id = ?", purchase.PurchaseID).
		Update("type", models.PurchaseTypeBoost).Error)

	_, err := s.tickets.PurchaseTicketForPool(pool.PoolID, userID, purchase.PurchaseID)
	s.True(types.Is(err, types.ErrWrongPurchaseType))
}

func (s *ticketServiceSuite) TestUnconfirmedPurchaseRejected() {
	pool := openPool(s.T(), s.db, 500, 2)
	userID := uuid.NewString()
	purchase := confirmedPurchase(s.T(), s.db, s.wallets, userID, pool)
	s.Require().NoError(s.db.Model(&models.Purchase{}).
		Where("purchase_id = ?", purchase.PurchaseID).
		Update("status", models.PurchaseStatusPending).Error)

	_, err := s.tickets.PurchaseTicketForPool(pool.PoolID, userID, purchase.PurchaseID)
	s.True(types.Is(err, types.ErrPurchaseNotConfirmed))
}

func (s *ticketServiceSuite) TestMissingWalletEntryRejected() {
	pool := openPool(s.T(), s.db, 500, 2)
	userID := uuid.NewString()
	purchase := confirmedPurchase(s.T(), s.db, s.wallets, userID, pool)
	s.Require().NoError(s.db.Model(&models.Purchase{}).
		Where("purchase_id = ?", purchase.PurchaseID).
		Update("wallet_entry_id", nil).Error)

	_, err := s.tickets.PurchaseTicketForPool(pool.PoolID, userID, purchase.PurchaseID)
	s.True(types.Is(err, types.ErrMissingLedgerRef))
}

func (s *ticketServiceSuite) TestDoubleRedemptionRejected() {
	pool := openPool(s.T(), s.db, 500, 3)
	userID := uuid.NewString()
	purchase := confirmedPurchase(s.T(), s.db, s.wallets, userID, pool)

	_, err := s.tickets.PurchaseTicketForPool(pool.PoolID, userID, purchase.PurchaseID)
	s.Require().NoError(err)

	_, err = s.tickets.PurchaseTicketForPool(pool.PoolID, userID, purchase.PurchaseID)
	s.True(types.Is(err, types.ErrAlreadyRedeemed))

	var count int64
	s.Require().NoError(s.db.Model(&models.Ticket{}).Where("purchase_id = ?", purchase.PurchaseID).Count(&count).Error)
	s.Equal(int64(1), count)
}

func (s *ticketServiceSuite) TestUnknownPoolAndPurchase() {
	_, err := s.tickets.PurchaseTicketForPool(uuid.NewString(), uuid.NewString(), uuid.NewString())
	s.True(types.Is(err, types.ErrPoolNotFound))

	pool := openPool(s.T(), s.db, 500, 2)
	_, err = s.tickets.PurchaseTicketForPool(pool.PoolID, uuid.NewString(), uuid.NewString())
	s.True(types.Is(err, types.ErrPurchaseNotFound))
}
