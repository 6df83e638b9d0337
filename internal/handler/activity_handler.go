package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/honmoon-go-api/internal/service"
	"github.com/noah-isme/honmoon-go-api/internal/utils"
)

// ActivityHandler serves the caller's activity ledger.
type ActivityHandler struct {
	service service.MissionSubmissionService
	logger  zerolog.Logger
}

// NewActivityHandler builds an activity handler.
func NewActivityHandler(service service.MissionSubmissionService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("/me", h.listMine)
	router.Get("/:id", h.get)
}

func (h *ActivityHandler) listMine(c *fiber.Ctx) error {
	userID, ok := userIDFromContext(c)
	if !ok {
		return sendUnauthorized(c)
	}

	limit, offset, err := parsePage(c)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	activities, err := h.service.ListUserActivities(c.UserContext(), userID, limit, offset)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, activities.Items, "activities retrieved", fiber.Map{"total": activities.Total})
}

func (h *ActivityHandler) get(c *fiber.Ctx) error {
	userID, ok := userIDFromContext(c)
	if !ok {
		return sendUnauthorized(c)
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	activity, err := h.service.GetActivity(c.UserContext(), userID, id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "activity retrieved", activity)
}
