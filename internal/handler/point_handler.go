package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/honmoon-go-api/internal/service"
	"github.com/noah-isme/honmoon-go-api/internal/utils"
)

// PointReconcileRunner runs a point reconciliation pass on demand.
type PointReconcileRunner interface {
	Reconcile(ctx context.Context) (int, error)
}

// PointHandler serves point balances and history.
type PointHandler struct {
	service    service.PointService
	reconciler PointReconcileRunner
	logger     zerolog.Logger
}

// NewPointHandler builds a point handler. reconciler may be nil, which disables
// the admin reconcile route.
func NewPointHandler(service service.PointService, reconciler PointReconcileRunner, logger zerolog.Logger) *PointHandler {
	return &PointHandler{
		service:    service,
		reconciler: reconciler,
		logger:     logger.With().Str("component", "point_handler").Logger(),
	}
}

// Register attaches the user routes to the provided router group.
func (h *PointHandler) Register(router fiber.Router) {
	router.Get("/me", h.summary)
	router.Get("/me/history", h.historyOf(service.HistoryAll))
	router.Get("/me/earned", h.historyOf(service.HistoryEarned))
	router.Get("/me/used", h.historyOf(service.HistoryUsed))
}

// RegisterAdmin attaches the admin routes to the provided router group.
func (h *PointHandler) RegisterAdmin(router fiber.Router) {
	if h.reconciler == nil {
		return
	}
	router.Post("/reconcile", h.reconcile)
}

func (h *PointHandler) summary(c *fiber.Ctx) error {
	userID, ok := userIDFromContext(c)
	if !ok {
		return sendUnauthorized(c)
	}

	summary, err := h.service.Summary(c.UserContext(), userID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "points retrieved", summary)
}

func (h *PointHandler) historyOf(filter service.HistoryFilter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := userIDFromContext(c)
		if !ok {
			return sendUnauthorized(c)
		}

		limit, offset, err := parsePage(c)
		if err != nil {
			return writeServiceError(c, h.logger, err)
		}

		history, err := h.service.History(c.UserContext(), userID, filter, limit, offset)
		if err != nil {
			return writeServiceError(c, h.logger, err)
		}

		return utils.OK(c, history.Items, "point history retrieved", fiber.Map{"total": history.Total, "filter": filter})
	}
}

func (h *PointHandler) reconcile(c *fiber.Ctx) error {
	corrected, err := h.reconciler.Reconcile(c.UserContext())
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().Int("corrected", corrected).Msg("manual point reconciliation finished")
	return utils.SendSuccess(c, "points reconciled", fiber.Map{"corrected": corrected})
}
