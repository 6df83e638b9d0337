package handler

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/honmoon-go-api/internal/middleware"
	"github.com/noah-isme/honmoon-go-api/internal/service"
	"github.com/noah-isme/honmoon-go-api/internal/utils"
)

// Error codes returned alongside non-validation failures.
const (
	CodeMissionNotFound  = "MISSION_NOT_FOUND"
	CodePlaceNotFound    = "PLACE_NOT_FOUND"
	CodeActivityNotFound = "ACTIVITY_NOT_FOUND"
	CodeIllegalRequest   = "ILLEGAL_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeAIUnavailable    = "AI_SERVICE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
)

// requestError reports a malformed request detected before reaching a service.
type requestError struct {
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func badRequest(message string) error {
	return &requestError{message: message}
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryFloat(c *fiber.Ctx, key string, required bool) (float64, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		if required {
			return 0, badRequest(key + " is required")
		}
		return 0, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, badRequest("invalid " + key)
	}
	return parsed, nil
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	parsed, err := strconv.ParseUint(c.Params(key), 10, 64)
	if err != nil || parsed == 0 {
		return 0, badRequest("invalid " + key)
	}
	return uint(parsed), nil
}

func parsePage(c *fiber.Ctx) (limit, offset int, err error) {
	if limit, err = parseQueryInt(c, "limit"); err != nil {
		return 0, 0, badRequest("invalid limit")
	}
	if offset, err = parseQueryInt(c, "offset"); err != nil {
		return 0, 0, badRequest("invalid offset")
	}
	return limit, offset, nil
}

func userIDFromContext(c *fiber.Ctx) (uuid.UUID, bool) {
	return middleware.UserID(c)
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func sendIllegalRequest(c *fiber.Ctx, message string, details interface{}) error {
	return utils.Fail(c, fiber.StatusBadRequest, CodeIllegalRequest, message, details)
}

func sendUnauthorized(c *fiber.Ctx) error {
	return utils.SendErrorCode(c, fiber.StatusUnauthorized, CodeUnauthorized, "authentication required")
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}

// writeServiceError translates domain errors into HTTP responses.
func writeServiceError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var (
		validationErrors validator.ValidationErrors
		payloadErr       *service.ValidationError
		aiErr            *service.AIServiceError
		reqErr           *requestError
	)

	switch {
	case errors.As(err, &reqErr):
		return sendIllegalRequest(c, reqErr.message, nil)
	case errors.Is(err, service.ErrInvalidCoordinates):
		return sendIllegalRequest(c, err.Error(), nil)
	case errors.Is(err, service.ErrMissionNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, CodeMissionNotFound, "mission not found")
	case errors.Is(err, service.ErrPlaceNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, CodePlaceNotFound, "place not found")
	case errors.Is(err, service.ErrActivityNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, CodeActivityNotFound, "activity not found")
	case errors.As(err, &payloadErr):
		return utils.Fail(c, fiber.StatusBadRequest, string(payloadErr.Kind), payloadErr.Error(), fiber.Map{"field": payloadErr.Field})
	case errors.As(err, &validationErrors):
		return sendIllegalRequest(c, "request validation failed", validationDetails(validationErrors))
	case errors.As(err, &aiErr):
		requestLogger(logger, c).Warn().Err(err).Msg("answer could not be judged")
		return utils.SendErrorCode(c, fiber.StatusBadGateway, CodeAIUnavailable, "answer verification is temporarily unavailable")
	default:
		requestLogger(logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendErrorCode(c, fiber.StatusInternalServerError, CodeInternal, "internal server error")
	}
}
