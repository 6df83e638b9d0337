package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/honmoon-go-api/internal/dto"
	"github.com/noah-isme/honmoon-go-api/internal/service"
	"github.com/noah-isme/honmoon-go-api/internal/utils"
)

// MissionHandler exposes mission submission and answer preview endpoints.
type MissionHandler struct {
	service     service.MissionSubmissionService
	validator   *validator.Validate
	submitLimit fiber.Handler
	logger      zerolog.Logger
}

// NewMissionHandler builds a mission handler. submitLimit may be nil.
func NewMissionHandler(service service.MissionSubmissionService, validator *validator.Validate, submitLimit fiber.Handler, logger zerolog.Logger) *MissionHandler {
	if submitLimit == nil {
		submitLimit = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &MissionHandler{
		service:     service,
		validator:   validator,
		submitLimit: submitLimit,
		logger:      logger.With().Str("component", "mission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *MissionHandler) Register(router fiber.Router) {
	router.Post("/:id/submissions", h.submitLimit, h.submit)
	router.Post("/:id/check", h.check)
}

func (h *MissionHandler) submit(c *fiber.Ctx) error {
	userID, ok := userIDFromContext(c)
	if !ok {
		return sendUnauthorized(c)
	}

	missionID, request, err := h.parseRequest(c)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	activity, err := h.service.Submit(c.UserContext(), userID, request.PlaceID, missionID, toPayload(request))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	message := "mission submitted"
	if activity.AlreadyExists {
		message = "mission already submitted"
	}
	return utils.SendSuccess(c, message, activity)
}

func (h *MissionHandler) check(c *fiber.Ctx) error {
	if _, ok := userIDFromContext(c); !ok {
		return sendUnauthorized(c)
	}

	missionID, request, err := h.parseRequest(c)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	result, err := h.service.CheckAnswer(c.UserContext(), missionID, toPayload(request))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "answer checked", result)
}

func (h *MissionHandler) parseRequest(c *fiber.Ctx) (uint, dto.MissionSubmitRequest, error) {
	var request dto.MissionSubmitRequest

	missionID, err := parseUintParam(c, "id")
	if err != nil {
		return 0, request, err
	}

	if len(c.Body()) > 0 {
		if err := c.BodyParser(&request); err != nil {
			return 0, request, badRequest("invalid request body")
		}
	}

	if err := h.validator.Struct(request); err != nil {
		return 0, request, err
	}

	return missionID, request, nil
}

func toPayload(request dto.MissionSubmitRequest) service.SubmissionPayload {
	return service.SubmissionPayload{
		TextAnswer:          request.TextAnswer,
		SelectedChoiceIndex: request.SelectedChoiceIndex,
		UploadedImageURL:    request.UploadedImageURL,
	}
}
