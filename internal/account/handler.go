package account

import (
	"errors"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/wichananm65/chef-marketplace-backend/internal/identity"
	"github.com/wichananm65/chef-marketplace-backend/internal/profile"
	"github.com/wichananm65/chef-marketplace-backend/internal/session"
	"go.uber.org/zap"
)

const (
	stateCookie = "oauth_state"
	errorPath   = "/error"
)

type Options struct {
	DemoMode      bool
	SecureCookies bool
}

type Handler struct {
	service *Service
	ids     *identity.Service
	opts    Options
	log     *zap.Logger
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type demoLoginRequest struct {
	ID string `json:"id"`
}

func NewHandler(service *Service, ids *identity.Service, opts Options, log *zap.Logger) *Handler {
	return &Handler{service: service, ids: ids, opts: opts, log: log}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/api/v1/sign-up", h.signUp)
	app.Post("/api/v1/sign-in", h.signIn)
	app.Post("/api/v1/forgot-password", h.forgotPassword)
	app.Post("/api/v1/sign-out", h.signOut)
	app.Get("/auth/confirm", h.confirm)
	app.Get("/auth/google", h.google)
	app.Get("/auth/callback", h.callback)
	if h.opts.DemoMode {
		app.Post("/api/v1/demo/login", h.demoLogin)
	}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/me", h.me)
	app.Patch("/api/v1/me", h.updateMe)
	app.Put("/api/v1/me/password", h.updatePassword)
	app.Post("/api/v1/me/avatar", h.uploadAvatar)
	app.Delete("/api/v1/me", h.deleteMe)
}

func (h *Handler) signUp(c *fiber.Ctx) error {
	var req SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	user, err := h.service.SignUp(c.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailExists):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, identity.ErrInvalidEmail), errors.Is(err, identity.ErrWeakPassword):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		}
		h.log.Error("sign up failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "sign up failed"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Check your email to confirm your account",
		"user":     user,
		"redirect": "/check-email",
	})
}

func (h *Handler) signIn(c *fiber.Ctx) error {
	var req signInRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	auth, p, err := h.service.SignIn(c.UserContext(), session.SIDFromCtx(c), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) || errors.Is(err, identity.ErrEmailNotConfirmed) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": err.Error()})
		}
		h.log.Error("sign in failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "sign in failed"})
	}

	return c.JSON(fiber.Map{
		"message":   "Login successful",
		"token":     auth.AccessToken,
		"expiresAt": auth.ExpiresAt,
		"user":      p,
	})
}

func (h *Handler) forgotPassword(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := h.service.SendPasswordRecovery(c.UserContext(), req.Email); err != nil {
		h.log.Error("password recovery failed", zap.Error(err))
	}
	return c.JSON(fiber.Map{"message": "If the address is registered, a reset link is on its way"})
}

func (h *Handler) signOut(c *fiber.Ctx) error {
	if err := h.service.SignOut(c.UserContext(), session.SIDFromCtx(c)); err != nil {
		h.log.Warn("sign out cache clear failed", zap.Error(err))
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

func (h *Handler) confirm(c *fiber.Ctx) error {
	tokenHash := c.Query("token_hash")
	typ, ok := identity.ParseOTPType(c.Query("type"))
	if tokenHash == "" || !ok {
		return c.Redirect(errorPath, fiber.StatusSeeOther)
	}

	auth, err := h.service.Confirm(c.UserContext(), session.SIDFromCtx(c), tokenHash, typ)
	if err != nil {
		h.log.Info("verification link rejected", zap.String("type", string(typ)), zap.Error(err))
		return c.Redirect(errorPath, fiber.StatusSeeOther)
	}
	return c.Redirect(withToken(safeRedirect(c.Query("redirect_to")), auth), fiber.StatusSeeOther)
}

func (h *Handler) google(c *fiber.Ctx) error {
	state := uuid.NewString()
	target, err := h.ids.GoogleAuthURL(state)
	if err != nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"message": err.Error()})
	}
	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		HTTPOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(10 * time.Minute),
	})
	return c.Redirect(target, fiber.StatusTemporaryRedirect)
}

func (h *Handler) callback(c *fiber.Ctx) error {
	want := c.Cookies(stateCookie)
	c.ClearCookie(stateCookie)
	code := c.Query("code")
	if code == "" || want == "" || c.Query("state") != want {
		return c.Redirect(errorPath, fiber.StatusSeeOther)
	}

	auth, err := h.service.GoogleCallback(c.UserContext(), session.SIDFromCtx(c), code)
	if err != nil {
		h.log.Warn("google sign in failed", zap.Error(err))
		return c.Redirect(errorPath, fiber.StatusSeeOther)
	}
	return c.Redirect(withToken("/", auth), fiber.StatusSeeOther)
}

func (h *Handler) demoLogin(c *fiber.Ctx) error {
	var req demoLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	p, err := h.service.DemoLogin(c.UserContext(), session.SIDFromCtx(c), req.ID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Login successful", "user": p})
}

func (h *Handler) me(c *fiber.Ctx) error {
	id, err := identity.IDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	p, err := h.service.Me(c.UserContext(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to load profile"})
	}
	return c.JSON(p)
}

func (h *Handler) updateMe(c *fiber.Ctx) error {
	id, err := identity.IDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	var patch profile.Patch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	updated, err := h.service.UpdateMe(c.UserContext(), session.SIDFromCtx(c), id, patch)
	if err != nil {
		return profileError(c, err)
	}
	return c.JSON(updated)
}

func (h *Handler) updatePassword(c *fiber.Ctx) error {
	id, err := identity.IDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	var req passwordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := h.service.UpdatePassword(c.UserContext(), id, req.Password); err != nil {
		if errors.Is(err, identity.ErrWeakPassword) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		}
		h.log.Error("update password failed", zap.String("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to update password"})
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}

func (h *Handler) uploadAvatar(c *fiber.Ctx) error {
	id, err := identity.IDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	// accept both the descriptive field name and the generic "file" key
	var file *multipart.FileHeader
	if f, e := c.FormFile("profileImage"); e == nil && f != nil {
		file = f
	} else if f, e := c.FormFile("file"); e == nil && f != nil {
		file = f
	}
	if file == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "file is required"})
	}
	f, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	defer f.Close()

	updated, err := h.service.UploadAvatar(c.UserContext(), session.SIDFromCtx(c), id, f, file.Filename, file.Header.Get("Content-Type"))
	if err != nil {
		return profileError(c, err)
	}
	return c.JSON(fiber.Map{"profile_image_path": updated.ProfileImagePath, "user": updated})
}

func (h *Handler) deleteMe(c *fiber.Ctx) error {
	id, err := identity.IDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if err := h.service.DeleteMe(c.UserContext(), session.SIDFromCtx(c), id); err != nil {
		return profileError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Profile deleted"})
}

func profileError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "profile not found"})
	case errors.Is(err, profile.ErrInvalidProfile):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "profile request failed"})
}

// safeRedirect only allows same-site absolute paths.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return "/"
	}
	return target
}

// withToken appends the access token to target as a URL fragment.
func withToken(target string, auth identity.Session) string {
	frag := url.Values{}
	frag.Set("access_token", auth.AccessToken)
	frag.Set("token_type", auth.TokenType)
	frag.Set("expires_at", strconv.FormatInt(auth.ExpiresAt.Unix(), 10))
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	return target + "#" + frag.Encode()
}
