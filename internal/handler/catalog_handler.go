package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/honmoon-go-api/internal/service"
	"github.com/noah-isme/honmoon-go-api/internal/utils"
)

// CatalogHandler serves the read-only place and mission catalog.
type CatalogHandler struct {
	service service.CatalogService
	logger  zerolog.Logger
}

// NewCatalogHandler builds a catalog handler.
func NewCatalogHandler(service service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger.With().Str("component", "catalog_handler").Logger(),
	}
}

// RegisterPlaces attaches the place routes to the provided router group.
func (h *CatalogHandler) RegisterPlaces(router fiber.Router) {
	router.Get("/", h.listPlaces)
	router.Get("/search", h.searchPlaces)
	router.Get("/nearby", h.nearbyPlaces)
	router.Get("/:id", h.getPlace)
	router.Get("/:id/missions", h.placeMissions)
}

// RegisterMissions attaches the mission read routes to the provided router group.
func (h *CatalogHandler) RegisterMissions(router fiber.Router) {
	router.Get("/:id", h.getMission)
}

func (h *CatalogHandler) listPlaces(c *fiber.Ctx) error {
	places, err := h.service.ListPlaces(c.UserContext())
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, places, "places retrieved", fiber.Map{"total": len(places)})
}

func (h *CatalogHandler) searchPlaces(c *fiber.Ctx) error {
	places, err := h.service.SearchPlaces(c.UserContext(), c.Query("title"))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, places, "places retrieved", fiber.Map{"total": len(places)})
}

func (h *CatalogHandler) nearbyPlaces(c *fiber.Ctx) error {
	lat, err := parseQueryFloat(c, "lat", true)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	lng, err := parseQueryFloat(c, "lng", true)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	radius, err := parseQueryFloat(c, "radius", false)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	if radius < 0 {
		return writeServiceError(c, h.logger, badRequest("invalid radius"))
	}
	if radius == 0 {
		radius = service.DefaultNearbyRadiusMeters
	}

	places, err := h.service.NearbyPlaces(c.UserContext(), lat, lng, radius)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, places, "places retrieved", fiber.Map{"total": len(places), "radius_m": radius})
}

func (h *CatalogHandler) getPlace(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	place, err := h.service.GetPlace(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "place retrieved", place)
}

func (h *CatalogHandler) placeMissions(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	missions, err := h.service.PlaceMissions(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.OK(c, missions, "missions retrieved", fiber.Map{"total": len(missions)})
}

func (h *CatalogHandler) getMission(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	mission, err := h.service.GetMission(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "mission retrieved", mission)
}
