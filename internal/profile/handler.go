package profile

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Handler serves the unauthenticated profile pages. Everything goes through
// the public helpers and their read-only repository.
type Handler struct {
	public *PublicHelpers
}

func NewHandler(public *PublicHelpers) *Handler {
	return &Handler{public: public}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	// search must be registered before :id or it is swallowed by the param
	app.Get("/api/v1/profiles/search", h.search)
	app.Get("/api/v1/profiles/:id", h.getProfile)
	app.Get("/api/v1/profiles", h.listByRole)
}

func (h *Handler) getProfile(c *fiber.Ctx) error {
	p, err := h.public.GetPublicProfile(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to load profile"})
	}
	return c.JSON(p)
}

func (h *Handler) listByRole(c *fiber.Ctx) error {
	role, ok := ParseRole(c.Query("role"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "role must be chef or client"})
	}
	profiles, err := h.public.PublicProfilesByRole(c.UserContext(), role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to list profiles"})
	}
	return c.JSON(profiles)
}

func (h *Handler) search(c *fiber.Ctx) error {
	var role Role
	if raw := c.Query("role"); raw != "" {
		parsed, ok := ParseRole(raw)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "role must be chef or client"})
		}
		role = parsed
	}
	profiles, err := h.public.SearchProfiles(c.UserContext(), c.Query("q"), role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to search profiles"})
	}
	return c.JSON(profiles)
}
