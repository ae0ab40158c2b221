package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/gmottola00/Tickup/models"
	"github.com/gmottola00/Tickup/types"
)

type walletServiceSuite struct {
	suite.Suite
	db      *gorm.DB
	wallets *WalletService
}

func TestWalletService(t *testing.T) {
	suite.Run(t, new(walletServiceSuite))
}

func (s *walletServiceSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.wallets = NewWalletService(s.db)
}

func (s *walletServiceSuite) TestGetOrCreateWalletIsIdempotent() {
	userID := uuid.NewString()

	first, err := s.wallets.GetOrCreateWallet(userID)
	s.Require().NoError(err)
	s.Equal(int64(0), first.BalanceCents)
	s.Equal(models.WalletStatusActive, first.Status)

	second, err := s.wallets.GetOrCreateWallet(userID)
	s.Require().NoError(err)
	s.Equal(first.WalletID, second.WalletID)

	var count int64
	s.Require().NoError(s.db.Model(&models.WalletAccount{}).Where("user_id = ?", userID).Count(&count).Error)
	s.Equal(int64(1), count)
}

func (s *walletServiceSuite) TestCreditThenDebit() {
	wallet := fundedWallet(s.T(), s.wallets, uuid.NewString(), 1000)

	entry, err := s.wallets.PostDebit(wallet.WalletID, 300, models.LedgerReasonTicketPurchase, LedgerRefs{})
	s.Require().NoError(err)
	s.Equal(models.LedgerDirectionDebit, entry.Direction)
	s.Equal(models.LedgerEntryPosted, entry.Status)

	reloaded, err := s.wallets.GetWallet(wallet.WalletID)
	s.Require().NoError(err)
	s.Equal(int64(700), reloaded.BalanceCents)

	entries, total, err := s.wallets.ListLedger(wallet.WalletID, 50, 0)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(entries, 2)
	// Newest first.
	s.Equal(models.LedgerDirectionDebit, entries[0].Direction)
}

func (s *walletServiceSuite) TestBalanceEqualsLedgerSum() {
	wallet := fundedWallet(s.T(), s.wallets, uuid.NewString(), 5000)

	_, err := s.wallets.PostDebit(wallet.WalletID, 1200, models.LedgerReasonTicketPurchase, LedgerRefs{})
	s.Require().NoError(err)
	_, err = s.wallets.PostCredit(wallet.WalletID, 400, models.LedgerReasonRefund, LedgerRefs{})
	s.Require().NoError(err)

	var entries []models.WalletLedgerEntry
	s.Require().NoError(s.db.Where("wallet_id = ?", wallet.WalletID).Find(&entries).Error)

	var sum int64
	for _, e := range entries {
		if e.Direction == models.LedgerDirectionCredit {
			sum += e.AmountCents
		} else {
			sum -= e.AmountCents
		}
	}

	reloaded, err := s.wallets.GetWallet(wallet.WalletID)
	s.Require().NoError(err)
	s.Equal(sum, reloaded.BalanceCents)
	s.Equal(int64(4200), reloaded.BalanceCents)
}

func (s *walletServiceSuite) TestDebitInsufficientFunds() {
	wallet := fundedWallet(s.T(), s.wallets, uuid.NewString(), 500)

	_, err := s.wallets.PostDebit(wallet.WalletID, 600, models.LedgerReasonTicketPurchase, LedgerRefs{})
	s.True(types.Is(err, types.ErrInsufficientFunds))

	// Nothing written: balance and ledger untouched.
	reloaded, err := s.wallets.GetWallet(wallet.WalletID)
	s.Require().NoError(err)
	s.Equal(int64(500), reloaded.BalanceCents)

	_, total, err := s.wallets.ListLedger(wallet.WalletID, 50, 0)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
}

func (s *walletServiceSuite) TestNonPositiveAmountRejected() {
	wallet := fundedWallet(s.T(), s.wallets, uuid.NewString(), 100)

	_, err := s.wallets.PostDebit(wallet.WalletID, 0, models.LedgerReasonTicketPurchase, LedgerRefs{})
	s.True(types.Is(err, types.ErrInvalidAmount))

	_, err = s.wallets.PostCredit(wallet.WalletID, -5, models.LedgerReasonRefund, LedgerRefs{})
	s.True(types.Is(err, types.ErrInvalidAmount))
}

func (s *walletServiceSuite) TestDebitUnknownWallet() {
	_, err := s.wallets.PostDebit(uuid.NewString(), 100, models.LedgerReasonTicketPurchase, LedgerRefs{})
	s.True(types.Is(err, types.ErrWalletNotFound))
}

func (s *walletServiceSuite) TestTopupLifecycle() {
	wallet := fundedWallet(s.T(), s.wallets, uuid.NewString(), 0)
	txn := uuid.NewString()

	topup, err := s.wallets.CreateTopup(wallet.WalletID, "stripe", 2500, &txn)
	s.Require().NoError(err)
	s.Equal(models.TopupStatusCreated, topup.Status)

	completed, entry, err := s.wallets.CompleteTopup(wallet.WalletID, topup.TopupID, nil)
	s.Require().NoError(err)
	s.Equal(models.TopupStatusCompleted, completed.Status)
	s.NotNil(completed.CompletedAt)
	s.Equal(models.LedgerReasonTopup, entry.Reason)
	s.Require().NotNil(entry.RefExternalTxn)
	s.Equal(txn, *entry.RefExternalTxn)

	reloaded, err := s.wallets.GetWallet(wallet.WalletID)
	s.Require().NoError(err)
	s.Equal(int64(2500), reloaded.BalanceCents)

	// Completing again must not double-credit.
	_, _, err = s.wallets.CompleteTopup(wallet.WalletID, topup.TopupID, nil)
	s.True(types.Is(err, types.ErrAlreadyCompleted))

	reloaded, err = s.wallets.GetWallet(wallet.WalletID)
	s.Require().NoError(err)
	s.Equal(int64(2500), reloaded.BalanceCents)
}

func (s *walletServiceSuite) TestTopupDuplicateProviderTxn() {
	wallet := fundedWallet(s.T(), s.wallets, uuid.NewString(), 0)
	txn := uuid.NewString()

	_, err := s.wallets.CreateTopup(wallet.WalletID, "stripe", 1000, &txn)
	s.Require().NoError(err)

	_, err = s.wallets.CreateTopup(wallet.WalletID, "stripe", 1000, &txn)
	s.True(types.Is(err, types.ErrDuplicateExternalTxn))
}

func (s *walletServiceSuite) TestCompleteTopupOfAnotherWallet() {
	wallet := fundedWallet(s.T(), s.wallets, uuid.NewString(), 0)
	other := fundedWallet(s.T(), s.wallets, uuid.NewString(), 0)

	topup, err := s.wallets.CreateTopup(wallet.WalletID, "stripe", 1000, nil)
	s.Require().NoError(err)

	_, _, err = s.wallets.CompleteTopup(other.WalletID, topup.TopupID, nil)
	s.True(types.Is(err, types.ErrTopupNotFound))
}

func (s *walletServiceSuite) TestCompleteTopupFromTerminalState() {
	wallet := fundedWallet(s.T(), s.wallets, uuid.NewString(), 0)

	topup, err := s.wallets.CreateTopup(wallet.WalletID, "stripe", 1000, nil)
	s.Require().NoError(err)
	s.Require().NoError(s.db.Model(&models.WalletTopupRequest{}).
		Where("topup_id = ?", topup.TopupID).
		Update("status", models.TopupStatusFailed).Error)

	_, _, err = s.wallets.CompleteTopup(wallet.WalletID, topup.TopupID, nil)
	s.True(types.Is(err, types.ErrInvalidState))
}
