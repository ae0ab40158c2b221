package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/gmottola00/Tickup/models"
	"github.com/gmottola00/Tickup/types"
)

type poolServiceSuite struct {
	suite.Suite
	db    *gorm.DB
	pools *PoolService
}

func TestPoolService(t *testing.T) {
	suite.Run(t, new(poolServiceSuite))
}

func (s *poolServiceSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.pools = NewPoolService(s.db)
}

func (s *poolServiceSuite) TestCreateAndGet() {
	pool, err := s.pools.Create(PoolCreate{
		PrizeID:          uuid.NewString(),
		TicketPriceCents: 500,
		TicketsRequired:  10,
	})
	s.Require().NoError(err)
	s.Equal(models.PoolStateOpen, pool.State)
	s.Equal(0, pool.TicketsSold)

	got, err := s.pools.Get(pool.PoolID)
	s.Require().NoError(err)
	s.Equal(pool.PrizeID, got.PrizeID)

	_, err = s.pools.Get(uuid.NewString())
	s.True(types.Is(err, types.ErrPoolNotFound))
}

func (s *poolServiceSuite) TestCreateValidation() {
	_, err := s.pools.Create(PoolCreate{PrizeID: uuid.NewString(), TicketPriceCents: 0, TicketsRequired: 10})
	s.True(types.Is(err, types.ErrInvalidAmount))

	_, err = s.pools.Create(PoolCreate{PrizeID: uuid.NewString(), TicketPriceCents: 500, TicketsRequired: 0})
	s.True(types.Is(err, types.ErrInvalidAmount))
}

func (s *poolServiceSuite) TestOnePoolPerPrize() {
	prizeID := uuid.NewString()
	_, err := s.pools.Create(PoolCreate{PrizeID: prizeID, TicketPriceCents: 500, TicketsRequired: 10})
	s.Require().NoError(err)

	_, err = s.pools.Create(PoolCreate{PrizeID: prizeID, TicketPriceCents: 500, TicketsRequired: 10})
	s.True(types.Is(err, types.ErrInvalidState))
}

func (s *poolServiceSuite) TestUpdatePriceOnlyWhileOpen() {
	pool, err := s.pools.Create(PoolCreate{PrizeID: uuid.NewString(), TicketPriceCents: 500, TicketsRequired: 10})
	s.Require().NoError(err)

	updated, err := s.pools.UpdatePrice(pool.PoolID, 750)
	s.Require().NoError(err)
	s.Equal(int64(750), updated.TicketPriceCents)

	s.Require().NoError(s.db.Model(&models.RafflePool{}).
		Where("pool_id = ?", pool.PoolID).
		Update("state", models.PoolStateFull).Error)

	_, err = s.pools.UpdatePrice(pool.PoolID, 900)
	s.True(types.Is(err, types.ErrPoolNotOpen))
}

func (s *poolServiceSuite) TestDeleteRefusesSoldPools() {
	pool, err := s.pools.Create(PoolCreate{PrizeID: uuid.NewString(), TicketPriceCents: 500, TicketsRequired: 10})
	s.Require().NoError(err)

	s.Require().NoError(s.db.Create(&models.Ticket{
		PoolID:     pool.PoolID,
		UserID:     uuid.NewString(),
		PurchaseID: uuid.NewString(),
		TicketNum:  1,
	}).Error)

	err = s.pools.Delete(pool.PoolID)
	s.True(types.Is(err, types.ErrInvalidState))

	empty, err := s.pools.Create(PoolCreate{PrizeID: uuid.NewString(), TicketPriceCents: 500, TicketsRequired: 10})
	s.Require().NoError(err)
	s.Require().NoError(s.pools.Delete(empty.PoolID))

	_, err = s.pools.Get(empty.PoolID)
	s.True(types.Is(err, types.ErrPoolNotFound))
}

func (s *poolServiceSuite) TestLikesAreIdempotentPerUser() {
	pool, err := s.pools.Create(PoolCreate{PrizeID: uuid.NewString(), TicketPriceCents: 500, TicketsRequired: 10})
	s.Require().NoError(err)
	userID := uuid.NewString()

	likes, err := s.pools.Like(pool.PoolID, userID)
	s.Require().NoError(err)
	s.Equal(1, likes)

	// Liking again changes nothing.
	likes, err = s.pools.Like(pool.PoolID, userID)
	s.Require().NoError(err)
	s.Equal(1, likes)

	likes, err = s.pools.Like(pool.PoolID, uuid.NewString())
	s.Require().NoError(err)
	s.Equal(2, likes)

	count, liked, err := s.pools.LikeStatus(pool.PoolID, userID)
	s.Require().NoError(err)
	s.Equal(2, count)
	s.True(liked)

	likes, err = s.pools.Unlike(pool.PoolID, userID)
	s.Require().NoError(err)
	s.Equal(1, likes)

	// Unliking without a like is a no-op.
	likes, err = s.pools.Unlike(pool.PoolID, userID)
	s.Require().NoError(err)
	s.Equal(1, likes)
}
