package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gmottola00/Tickup/middleware"
	"github.com/gmottola00/Tickup/services"
)

type purchaseCreateRequest struct {
	PoolID        string  `json:"pool_id"`
	Type          string  `json:"type"`
	AmountCents   int64   `json:"amount_cents"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	WalletEntryID *int64  `json:"wallet_entry_id,omitempty"`
	WalletHoldID  *string `json:"wallet_hold_id,omitempty"`
	ProviderTxnID *string `json:"provider_txn_id,omitempty"`
}

type purchaseUpdateRequest struct {
	Status        *string `json:"status,omitempty"`
	AmountCents   *int64  `json:"amount_cents,omitempty"`
	WalletEntryID *int64  `json:"wallet_entry_id,omitempty"`
	WalletHoldID  *string `json:"wallet_hold_id,omitempty"`
	ProviderTxnID *string `json:"provider_txn_id,omitempty"`
}

func SetupPurchaseRoutes(app *fiber.App, purchases *services.PurchaseService) {
	secured := app.Group("/purchases", middleware.UserContextMiddleware())

	secured.Post("/", func(c *fiber.Ctx) error {
		var req purchaseCreateRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		purchase, err := purchases.Create(middleware.UserID(c), services.PurchaseCreate{
			PoolID:        req.PoolID,
			Type:          req.Type,
			AmountCents:   req.AmountCents,
			Currency:      req.Currency,
			Status:        req.Status,
			WalletEntryID: req.WalletEntryID,
			WalletHoldID:  req.WalletHoldID,
			ProviderTxnID: req.ProviderTxnID,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(purchase)
	})

	secured.Get("/all", func(c *fiber.Ctx) error {
		list, err := purchases.ListAll()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(list)
	})

	secured.Get("/my", func(c *fiber.Ctx) error {
		list, err := purchases.ListByUser(middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(list)
	})

	secured.Get("/:id", func(c *fiber.Ctx) error {
		purchase, err := purchases.Get(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(purchase)
	})

	secured.Put("/:id", func(c *fiber.Ctx) error {
		var req purchaseUpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		purchase, err := purchases.Update(c.Params("id"), services.PurchaseUpdate{
			Status:        req.Status,
			AmountCents:   req.AmountCents,
			WalletEntryID: req.WalletEntryID,
			WalletHoldID:  req.WalletHoldID,
			ProviderTxnID: req.ProviderTxnID,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(purchase)
	})

	secured.Delete("/:id", func(c *fiber.Ctx) error {
		if err := purchases.Delete(c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
