package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gmottola00/Tickup/middleware"
	"github.com/gmottola00/Tickup/services"
)

type poolCreateRequest struct {
	PrizeID          string `json:"prize_id"`
	TicketPriceCents int64  `json:"ticket_price_cents"`
	TicketsRequired  int    `json:"tickets_required"`
}

type poolPriceRequest struct {
	TicketPriceCents int64 `json:"ticket_price_cents"`
}

type ticketRequest struct {
	PurchaseID string `json:"purchase_id"`
}

func SetupPoolRoutes(app *fiber.App, pools *services.PoolService, tickets *services.TicketService) {
	// Pool listings are public; everything that acts on a pool needs identity.
	app.Get("/pools", func(c *fiber.Ctx) error {
		list, err := pools.ListAll()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(list)
	})

	app.Get("/pools/:id", func(c *fiber.Ctx) error {
		pool, err := pools.Get(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(pool)
	})

	app.Get("/pools/:id/tickets", func(c *fiber.Ctx) error {
		list, err := tickets.ListPoolTickets(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(list)
	})

	secured := app.Group("/pools", middleware.UserContextMiddleware())

	secured.Post("/", func(c *fiber.Ctx) error {
		var req poolCreateRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		pool, err := pools.Create(services.PoolCreate{
			PrizeID:          req.PrizeID,
			TicketPriceCents: req.TicketPriceCents,
			TicketsRequired:  req.TicketsRequired,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(pool)
	})

	secured.Patch("/:id/price", func(c *fiber.Ctx) error {
		var req poolPriceRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		pool, err := pools.UpdatePrice(c.Params("id"), req.TicketPriceCents)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(pool)
	})

	secured.Delete("/:id", func(c *fiber.Ctx) error {
		if err := pools.Delete(c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	secured.Get("/:id/like", func(c *fiber.Ctx) error {
		likes, liked, err := pools.LikeStatus(c.Params("id"), middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"likes": likes, "liked": liked})
	})

	secured.Post("/:id/like", func(c *fiber.Ctx) error {
		likes, err := pools.Like(c.Params("id"), middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"likes": likes, "liked": true})
	})

	secured.Delete("/:id/like", func(c *fiber.Ctx) error {
		likes, err := pools.Unlike(c.Params("id"), middleware.UserID(c))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"likes": likes, "liked": false})
	})

	// Redeem a confirmed purchase for a numbered ticket.
	secured.Post("/:id/tickets", func(c *fiber.Ctx) error {
		var req ticketRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		ticket, err := tickets.PurchaseTicketForPool(c.Params("id"), middleware.UserID(c), req.PurchaseID)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(ticket)
	})
}
