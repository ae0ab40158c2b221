package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gmottola00/Tickup/models"
	"github.com/gmottola00/Tickup/types"
)

// PoolService manages raffle pools and their like counters.
type PoolService struct {
	DB *gorm.DB
}

func NewPoolService(db *gorm.DB) *PoolService {
	return &PoolService{DB: db}
}

type PoolCreate struct {
	PrizeID          string
	TicketPriceCents int64
	TicketsRequired  int
}

// Create opens a new pool for a prize. One pool per prize.
func (s *PoolService) Create(in PoolCreate) (*models.RafflePool, error) {
	if in.TicketPriceCents <= 0 {
		return nil, types.New(types.ErrInvalidAmount, "ticket price must be greater than zero")
	}
	if in.TicketsRequired <= 0 {
		return nil, types.New(types.ErrInvalidAmount, "tickets required must be greater than zero")
	}

	pool := models.RafflePool{
		PoolID:           uuid.NewString(),
		PrizeID:          in.PrizeID,
		TicketPriceCents: in.TicketPriceCents,
		TicketsRequired:  in.TicketsRequired,
		State:            models.PoolStateOpen,
	}
	if err := s.DB.Create(&pool).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, types.New(types.ErrInvalidState, "prize %s already has a pool", in.PrizeID)
		}
		return nil, err
	}
	return &pool, nil
}

// Get returns a pool by id.
func (s *PoolService) Get(poolID string) (*models.RafflePool, error) {
	var pool models.RafflePool
	if err := s.DB.First(&pool, "pool_id = ?", poolID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.New(types.ErrPoolNotFound, "pool %s not found", poolID)
		}
		return nil, err
	}
	return &pool, nil
}

// ListAll returns every pool, newest first.
func (s *PoolService) ListAll() ([]models.RafflePool, error) {
	var pools []models.RafflePool
	err := s.DB.Order("created_at DESC").Find(&pools).Error
	return pools, err
}

// UpdatePrice changes the ticket price of an OPEN pool. Capacity and state
// are owned by the allocator and the orchestrator and are not updatable here.
func (s *PoolService) UpdatePrice(poolID string, ticketPriceCents int64) (*models.RafflePool, error) {
	if ticketPriceCents <= 0 {
		return nil, types.New(types.ErrInvalidAmount, "ticket price must be greater than zero")
	}
	pool, err := s.Get(poolID)
	if err != nil {
		return nil, err
	}
	if pool.State != models.PoolStateOpen {
		return nil, types.New(types.ErrPoolNotOpen, "pool %s is %s", poolID, pool.State)
	}
	if err := s.DB.Model(pool).Update("ticket_price_cents", ticketPriceCents).Error; err != nil {
		return nil, err
	}
	pool.TicketPriceCents = ticketPriceCents
	return pool, nil
}

// Delete removes a pool that sold no tickets.
func (s *PoolService) Delete(poolID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var pool models.RafflePool
		if err := tx.First(&pool, "pool_id = ?", poolID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.New(types.ErrPoolNotFound, "pool %s not found", poolID)
			}
			return err
		}
		var sold int64
		if err := tx.Model(&models.Ticket{}).Where("pool_id = ?", poolID).Count(&sold).Error; err != nil {
			return err
		}
		if sold > 0 {
			return types.New(types.ErrInvalidState, "pool %s has issued tickets and cannot be deleted", poolID)
		}
		if err := tx.Delete(&models.PoolLike{}, "pool_id = ?", poolID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.RafflePool{}, "pool_id = ?", poolID).Error
	})
}

// LikeStatus returns the pool's like count and whether the user liked it.
func (s *PoolService) LikeStatus(poolID, userID string) (int, bool, error) {
	pool, err := s.Get(poolID)
	if err != nil {
		return 0, false, err
	}
	var liked int64
	if err := s.DB.Model(&models.PoolLike{}).
		Where("pool_id = ? AND user_id = ?", poolID, userID).
		Count(&liked).Error; err != nil {
		return 0, false, err
	}
	return pool.Likes, liked > 0, nil
}

// Like records a like. A duplicate like from a concurrent request loses the
// primary-key race and resolves idempotently to the current count.
func (s *PoolService) Like(poolID, userID string) (int, error) {
	pool, err := s.Get(poolID)
	if err != nil {
		return 0, err
	}

	likes := pool.Likes
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.PoolLike{}).
			Where("pool_id = ? AND user_id = ?", poolID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
		if err := tx.Create(&models.PoolLike{PoolID: poolID, UserID: userID}).Error; err != nil {
			return err
		}
		likes = pool.Likes + 1
		return tx.Model(&models.RafflePool{}).
			Where("pool_id = ?", poolID).
			Update("likes", gorm.Expr("likes + 1")).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Concurrent like got there first: re-read and answer with the
			// committed count.
			if pool, rerr := s.Get(poolID); rerr == nil {
				return pool.Likes, nil
			}
		}
		return 0, err
	}
	return likes, nil
}

// Unlike removes the user's like if present.
func (s *PoolService) Unlike(poolID, userID string) (int, error) {
	pool, err := s.Get(poolID)
	if err != nil {
		return 0, err
	}

	likes := pool.Likes
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.PoolLike{}, "pool_id = ? AND user_id = ?", poolID, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if likes > 0 {
			likes--
		}
		return tx.Model(&models.RafflePool{}).
			Where("pool_id = ? AND likes > 0", poolID).
			Update("likes", gorm.Expr("likes - 1")).Error
	})
	if err != nil {
		return 0, err
	}
	return likes, nil
}
