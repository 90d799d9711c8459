package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wichananm65/chef-marketplace-backend/internal/identity"
	"github.com/wichananm65/chef-marketplace-backend/internal/profile"
	"github.com/wichananm65/chef-marketplace-backend/internal/session"
	"go.uber.org/zap"
)

var ErrUnknownDemoUser = errors.New("unknown demo user")

// Service ties the identity provider, the profile store and the session
// context together for the account flows.
type Service struct {
	ids        *identity.Service
	profiles   *profile.Helpers
	reconciler *profile.Reconciler
	sessions   *session.Manager
	log        *zap.Logger
}

func NewService(ids *identity.Service, profiles *profile.Helpers, reconciler *profile.Reconciler, sessions *session.Manager, log *zap.Logger) *Service {
	return &Service{ids: ids, profiles: profiles, reconciler: reconciler, sessions: sessions, log: log}
}

type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone"`
	Role        string `json:"role"`
}

func (r SignUpRequest) metadata() map[string]string {
	meta := map[string]string{}
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			meta[k] = v
		}
	}
	set("first_name", r.FirstName)
	set("last_name", r.LastName)
	set("display_name", r.DisplayName)
	set("phone", r.Phone)
	if role, ok := profile.ParseRole(r.Role); ok {
		meta["role"] = string(role)
	}
	return meta
}

func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (identity.User, error) {
	return s.ids.SignUp(ctx, req.Email, req.Password, req.metadata())
}

// SignIn authenticates with email and password and logs the resulting
// profile into the session. Provider rejections are returned untouched.
func (s *Service) SignIn(ctx context.Context, sid, email, password string) (identity.Session, profile.Profile, error) {
	auth, err := s.ids.SignInWithPassword(ctx, email, password)
	if err != nil {
		return identity.Session{}, profile.Profile{}, err
	}
	return auth, s.establish(ctx, sid, auth.User), nil
}

// Confirm verifies an emailed link and signs the account in.
func (s *Service) Confirm(ctx context.Context, sid, tokenHash string, typ identity.OTPType) (identity.Session, error) {
	auth, err := s.ids.VerifyOTP(ctx, tokenHash, typ)
	if err != nil {
		return identity.Session{}, err
	}
	s.establish(ctx, sid, auth.User)
	return auth, nil
}

func (s *Service) GoogleCallback(ctx context.Context, sid, code string) (identity.Session, error) {
	auth, err := s.ids.SignInWithGoogle(ctx, code)
	if err != nil {
		return identity.Session{}, err
	}
	s.establish(ctx, sid, auth.User)
	return auth, nil
}

func (s *Service) SendPasswordRecovery(ctx context.Context, email string) error {
	return s.ids.SendPasswordRecovery(ctx, email)
}

func (s *Service) UpdatePassword(ctx context.Context, id, password string) error {
	return s.ids.UpdatePassword(ctx, id, password)
}

func (s *Service) SignOut(ctx context.Context, sid string) error {
	return s.sessions.Get(ctx, sid).Logout(ctx)
}

// establish makes sure a profile exists for user and logs it into the
// session. When the profile store fails the session gets an unpersisted
// placeholder instead, so sign-in never blocks on it.
func (s *Service) establish(ctx context.Context, sid string, user identity.User) profile.Profile {
	p, err := s.reconciler.EnsureProfile(ctx, user.ID, "", profile.Patch{})
	if err != nil {
		s.log.Warn("using placeholder profile", zap.String("id", user.ID), zap.Error(err))
		p = profile.Placeholder(user, "")
	}
	if err := s.sessions.Get(ctx, sid).Login(ctx, p); err != nil {
		s.log.Warn("session cache write failed", zap.String("sid", sid), zap.Error(err))
	}
	return p
}

// Me returns the caller's profile, creating it if missing. A placeholder is
// returned when the store cannot be reached.
func (s *Service) Me(ctx context.Context, id string) (profile.Profile, error) {
	p, err := s.reconciler.EnsureProfile(ctx, id, "", profile.Patch{})
	if err == nil {
		return p, nil
	}
	user, uerr := s.ids.GetUser(ctx, id)
	if uerr != nil {
		return profile.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	s.log.Warn("using placeholder profile", zap.String("id", id), zap.Error(err))
	return profile.Placeholder(user, ""), nil
}

// UpdateMe persists patch first and then feeds the confirmed row back into
// the session, if the session belongs to the same identity.
func (s *Service) UpdateMe(ctx context.Context, sid, id string, patch profile.Patch) (profile.Profile, error) {
	updated, err := s.profiles.UpdateProfile(ctx, id, patch)
	if err != nil {
		return profile.Profile{}, err
	}
	s.syncSession(ctx, sid, updated)
	return updated, nil
}

func (s *Service) UploadAvatar(ctx context.Context, sid, id string, file io.Reader, filename, contentType string) (profile.Profile, error) {
	url, err := s.profiles.UploadProfileImage(ctx, file, filename, contentType, id)
	if err != nil {
		return profile.Profile{}, err
	}
	return s.UpdateMe(ctx, sid, id, profile.Patch{ProfileImagePath: profile.String(url)})
}

func (s *Service) DeleteMe(ctx context.Context, sid, id string) error {
	if err := s.profiles.DeleteProfile(ctx, id); err != nil {
		return err
	}
	return s.sessions.Get(ctx, sid).Logout(ctx)
}

// DemoLogin signs a seeded demo profile into the session without going
// through the identity provider.
func (s *Service) DemoLogin(ctx context.Context, sid, id string) (profile.Profile, error) {
	p, ok := profile.DemoProfile(id)
	if !ok {
		return profile.Profile{}, ErrUnknownDemoUser
	}
	if err := s.sessions.Get(ctx, sid).Login(ctx, p); err != nil {
		s.log.Warn("session cache write failed", zap.String("sid", sid), zap.Error(err))
	}
	return p, nil
}

func (s *Service) syncSession(ctx context.Context, sid string, p profile.Profile) {
	sess := s.sessions.Get(ctx, sid)
	current, ok := sess.Current()
	if !ok || current.ID != p.ID {
		return
	}
	if _, err := sess.UpdateProfile(ctx, profile.PatchOf(p)); err != nil {
		s.log.Warn("session cache write failed", zap.String("sid", sid), zap.Error(err))
	}
}
