package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/gmottola00/Tickup/middleware"
	"github.com/gmottola00/Tickup/models"
	"github.com/gmottola00/Tickup/services"
)

type debitRequest struct {
	AmountCents int64   `json:"amount_cents"`
	Reason      string  `json:"reason"`
	PurchaseID  *string `json:"purchase_id,omitempty"`
	PoolID      *string `json:"pool_id,omitempty"`
}

type topupRequest struct {
	AmountCents   int64   `json:"amount_cents"`
	Provider      string  `json:"provider"`
	ProviderTxnID *string `json:"provider_txn_id,omitempty"`
}

type completeTopupRequest struct {
	ProviderTxnID *string `json:"provider_txn_id,omitempty"`
}

func SetupWalletRoutes(app *fiber.App, wallets *services.WalletService) {
	secured := app.Group("/wallet", middleware.UserContextMiddleware())

	// Own wallet, created lazily on first access.
	secured.Get("/me", func(c *fiber.Ctx) error {
		wallet, err := wallets.GetOrCreateWallet(middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(wallet)
	})

	secured.Get("/me/ledger", func(c *fiber.Ctx) error {
		wallet, err := wallets.GetOrCreateWallet(middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		limit, offset := pagination(c)
		entries, total, err := wallets.ListLedger(wallet.WalletID, limit, offset)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"entries": entries, "total": total})
	})

	secured.Post("/me/debit", func(c *fiber.Ctx) error {
		var req debitRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		wallet, err := wallets.GetOrCreateWallet(middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		reason := req.Reason
		if reason == "" {
			reason = models.LedgerReasonTicketPurchase
		}
		entry, err := wallets.PostDebit(wallet.WalletID, req.AmountCents, reason, services.LedgerRefs{
			PurchaseID: req.PurchaseID,
			PoolID:     req.PoolID,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	})

	secured.Post("/topups", func(c *fiber.Ctx) error {
		var req topupRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		wallet, err := wallets.GetOrCreateWallet(middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		topup, err := wallets.CreateTopup(wallet.WalletID, req.Provider, req.AmountCents, req.ProviderTxnID)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(topup)
	})

	secured.Get("/topups", func(c *fiber.Ctx) error {
		wallet, err := wallets.GetOrCreateWallet(middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		limit, offset := pagination(c)
		topups, err := wallets.ListTopups(wallet.WalletID, limit, offset)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(topups)
	})

	secured.Post("/topups/:id/complete", func(c *fiber.Ctx) error {
		var req completeTopupRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		wallet, err := wallets.GetOrCreateWallet(middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		topup, entry, err := wallets.CompleteTopup(wallet.WalletID, c.Params("id"), req.ProviderTxnID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"topup": topup, "entry": entry})
	})
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit", "50"))
	offset, _ = strconv.Atoi(c.Query("offset", "0"))
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
