package session

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Handler struct {
	manager *Manager
	log     *zap.Logger
}

func NewHandler(manager *Manager, log *zap.Logger) *Handler {
	return &Handler{manager: manager, log: log}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/session", h.current)
	app.Delete("/api/v1/session", h.logout)
}

func (h *Handler) current(c *fiber.Ctx) error {
	s := h.manager.FromCtx(c)
	user, ok := s.Current()
	body := fiber.Map{
		"isAuthenticated": ok,
		"isLoading":       s.IsLoading(),
		"user":            nil,
	}
	if ok {
		body["user"] = user
	}
	return c.JSON(body)
}

func (h *Handler) logout(c *fiber.Ctx) error {
	if err := h.manager.FromCtx(c).Logout(c.UserContext()); err != nil {
		h.log.Warn("logout cache clear failed", zap.String("sid", SIDFromCtx(c)), zap.Error(err))
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}
