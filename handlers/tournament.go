package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gmottola00/Tickup/middleware"
	"github.com/gmottola00/Tickup/models"
	"github.com/gmottola00/Tickup/services"
)

type tournamentCreateRequest struct {
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	ScheduledStartAt *time.Time `json:"scheduled_start_at,omitempty"`
	Phases           []struct {
		GameID          string                 `json:"game_id"`
		LevelID         *string                `json:"level_id,omitempty"`
		Title           string                 `json:"title"`
		Description     string                 `json:"description"`
		DurationHours   int                    `json:"duration_hours"`
		EliminationRule models.EliminationRule `json:"elimination_rule"`
	} `json:"phases"`
}

type sessionRequest struct {
	Score       int64  `json:"score"`
	TimeSeconds *int64 `json:"time_seconds,omitempty"`
}

func SetupTournamentRoutes(app *fiber.App, tournaments *services.TournamentService) {
	app.Get("/tournaments", func(c *fiber.Ctx) error {
		list, err := tournaments.ListAll()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(list)
	})

	app.Get("/tournaments/:id", func(c *fiber.Ctx) error {
		tournament, phases, err := tournaments.Get(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"tournament": tournament, "phases": phases})
	})

	app.Get("/phases/:id/participants", func(c *fiber.Ctx) error {
		participants, err := tournaments.ListParticipants(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(participants)
	})

	secured := app.Group("/", middleware.UserContextMiddleware())

	// Convert a FULL pool into a phased tournament.
	secured.Post("/pools/:id/tournament", func(c *fiber.Ctx) error {
		var req tournamentCreateRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		in := services.TournamentCreate{
			Title:            req.Title,
			Description:      req.Description,
			ScheduledStartAt: req.ScheduledStartAt,
		}
		for _, ph := range req.Phases {
			in.Phases = append(in.Phases, services.PhaseInput{
				GameID:          ph.GameID,
				LevelID:         ph.LevelID,
				Title:           ph.Title,
				Description:     ph.Description,
				DurationHours:   ph.DurationHours,
				EliminationRule: ph.EliminationRule,
			})
		}
		tournament, err := tournaments.ConvertPoolToTournament(c.Params("id"), in)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(tournament)
	})

	secured.Post("/tournaments/:id/start", func(c *fiber.Ctx) error {
		tournament, err := tournaments.StartTournamentManually(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(tournament)
	})

	secured.Post("/phases/:id/sessions", func(c *fiber.Ctx) error {
		var req sessionRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		participant, err := tournaments.RecordSession(c.Params("id"), middleware.UserID(c), req.Score, req.TimeSeconds)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(participant)
	})

	// Manual trigger for the periodic sweep, useful for operations.
	secured.Post("/tournaments/sweep", func(c *fiber.Ctx) error {
		started := tournaments.StartScheduledTournaments()
		processed := tournaments.CheckPhaseDeadlines()
		return c.JSON(fiber.Map{
			"tournaments_started": started,
			"phases_processed":    processed,
		})
	})
}
