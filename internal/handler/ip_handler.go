package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"geoip/internal/ipaddr"
	"geoip/internal/model"
	"geoip/internal/rangetable"
)

type GeoService interface {
	LookupIP(ctx context.Context, ip string) (*model.IPResponse, error)
	Stats() rangetable.Stats
	Ready() bool
}

type Handler struct {
	service GeoService
	logger  *zap.Logger
}

func NewHandler(service GeoService, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/v1/lookup/:ip", h.LookupIP)
	app.Get("/api/v1/health", h.HealthCheck)
	app.Get("/api/v1/stats", h.Stats)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

func (h *Handler) LookupIP(c *fiber.Ctx) error {
	ip := c.Params("ip")
	if ip == "" {
		return c.Status(fiber.StatusBadRequest).JSON(model.Error{
			Message: "IP address is required",
		})
	}

	result, err := h.service.LookupIP(c.Context(), ip)
	if err != nil {
		if errors.Is(err, ipaddr.ErrInvalidAddressFormat) {
			return c.Status(fiber.StatusBadRequest).JSON(model.Error{
				Message: fmt.Sprintf("Invalid IP address format: %s", ip),
			})
		}

		h.logger.Error("IP lookup failed",
			zap.String("ip", ip),
			zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(model.Error{
			Message: "Failed to lookup IP address",
		})
	}

	if result.CountryCode == model.UnknownCountry {
		return c.Status(fiber.StatusNotFound).JSON(model.Error{
			Message: "No country information found for this IP",
		})
	}

	return c.JSON(result)
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	if !h.service.Ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "loading",
		})
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}

func (h *Handler) Stats(c *fiber.Ctx) error {
	return c.JSON(h.service.Stats())
}
