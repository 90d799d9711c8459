package booking

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/chef-marketplace-backend/internal/profile"
	"github.com/wichananm65/chef-marketplace-backend/internal/session"
)

type Handler struct {
	service  *Service
	sessions *session.Manager
}

func NewHandler(service *Service, sessions *session.Manager) *Handler {
	return &Handler{service: service, sessions: sessions}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/bookings/services", h.services)
	app.Post("/api/v1/bookings/quote", h.quote)
	app.Post("/api/v1/bookings", h.submit)
	app.Get("/api/v1/bookings", h.list)
	app.Get("/api/v1/bookings/latest", h.latest)
}

func (h *Handler) services(c *fiber.Ctx) error {
	return c.JSON(ServiceTypes())
}

func (h *Handler) quote(c *fiber.Ctx) error {
	var req QuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	pricing, err := h.service.Quote(c.UserContext(), req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(pricing)
}

func (h *Handler) submit(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	var me *profile.Profile
	if current, ok := h.sessions.FromCtx(c).Current(); ok {
		me = &current
	}

	b, err := h.service.Submit(c.UserContext(), session.SIDFromCtx(c), req, me)
	if err != nil {
		if errors.Is(err, ErrInvalidGuests) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to save booking"})
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}

func (h *Handler) list(c *fiber.Ctx) error {
	bookings, err := h.service.List(c.UserContext(), session.SIDFromCtx(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to load bookings"})
	}
	return c.JSON(bookings)
}

func (h *Handler) latest(c *fiber.Ctx) error {
	b, err := h.service.Latest(c.UserContext(), session.SIDFromCtx(c))
	if err != nil {
		if errors.Is(err, ErrNoDraft) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to load booking"})
	}
	return c.JSON(b)
}
