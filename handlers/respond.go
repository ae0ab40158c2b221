package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gmottola00/Tickup/logger"
	"github.com/gmottola00/Tickup/types"
)

// fail maps a service error onto its HTTP status and a stable JSON shape.
// Anything that is not a coded service error is a 500.
func fail(c *fiber.Ctx, err error) error {
	var svcErr *types.ServiceError
	if errors.As(err, &svcErr) {
		return c.Status(svcErr.HTTPStatus()).JSON(fiber.Map{
			"code":  svcErr.Code,
			"error": svcErr.Message,
		})
	}
	logger.Error("unhandled error",
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"code":  types.ErrInternalError,
		"error": "internal error",
	})
}
