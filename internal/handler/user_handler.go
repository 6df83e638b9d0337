package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/honmoon-go-api/internal/service"
	"github.com/noah-isme/honmoon-go-api/internal/utils"
)

// UserHandler serves per-user statistics.
type UserHandler struct {
	service service.UserStatsService
	logger  zerolog.Logger
}

// NewUserHandler builds a user statistics handler.
func NewUserHandler(service service.UserStatsService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/me/quiz-stats", h.quizStats)
	router.Get("/me/mission-stats", h.missionStats)
}

func (h *UserHandler) quizStats(c *fiber.Ctx) error {
	userID, ok := userIDFromContext(c)
	if !ok {
		return sendUnauthorized(c)
	}

	stats, err := h.service.QuizStats(c.UserContext(), userID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "quiz stats retrieved", stats)
}

func (h *UserHandler) missionStats(c *fiber.Ctx) error {
	userID, ok := userIDFromContext(c)
	if !ok {
		return sendUnauthorized(c)
	}

	stats, err := h.service.MissionStats(c.UserContext(), userID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "mission stats retrieved", stats)
}
