package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/wichananm65/chef-marketplace-backend/internal/identity"
	"go.uber.org/zap"
)

// IdentityLookup resolves an identity and the metadata attached to it at
// signup.
type IdentityLookup interface {
	GetUser(ctx context.Context, id string) (identity.User, error)
}

// Reconciler heals the gap between identities and profile rows by creating
// a missing profile the first time a signed-in identity is seen.
type Reconciler struct {
	repo Repository
	ids  IdentityLookup
	log  *zap.Logger
}

func NewReconciler(repo Repository, ids IdentityLookup, log *zap.Logger) *Reconciler {
	return &Reconciler{repo: repo, ids: ids, log: log}
}

// EnsureProfile returns the profile for id, creating a minimal one from the
// identity when none exists. An existing row is returned untouched even if
// the identity metadata has changed since. role and defaults only apply to
// a newly created row; an empty role falls back to the signup metadata and
// then to client.
func (r *Reconciler) EnsureProfile(ctx context.Context, id string, role Role, defaults Patch) (Profile, error) {
	existing, err := r.repo.GetByID(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		r.log.Error("check existing profile failed", zap.String("id", id), zap.Error(err))
		return Profile{}, fmt.Errorf("ensure profile %s: %w", id, err)
	}

	user, err := r.ids.GetUser(ctx, id)
	if err != nil {
		r.log.Error("load identity for profile failed", zap.String("id", id), zap.Error(err))
		return Profile{}, fmt.Errorf("ensure profile %s: identity: %w", id, err)
	}

	created, err := r.repo.Create(ctx, Synthesize(user, role, defaults))
	if errors.Is(err, ErrAlreadyExists) {
		// lost a race with a concurrent creator; the stored row wins
		return r.repo.GetByID(ctx, id)
	}
	if err != nil {
		r.log.Error("create missing profile failed", zap.String("id", id), zap.Error(err))
		return Profile{}, fmt.Errorf("ensure profile %s: %w", id, err)
	}
	r.log.Info("missing profile created", zap.String("id", id), zap.String("role", string(created.Role)))
	return created, nil
}

// Synthesize builds a minimal profile for user. Values in defaults take
// precedence over signup metadata.
func Synthesize(user identity.User, role Role, defaults Patch) Profile {
	meta := user.Metadata
	if _, ok := ParseRole(string(role)); !ok {
		role = RoleClient
		if r, ok := ParseRole(meta["role"]); ok {
			role = r
		}
	}

	pick := func(override *string, values ...string) string {
		if override != nil && *override != "" {
			return *override
		}
		for _, v := range values {
			if v != "" {
				return v
			}
		}
		return ""
	}

	return Profile{
		ID:               user.ID,
		Role:             role,
		Email:            user.Email,
		FirstName:        pick(defaults.FirstName, meta["first_name"]),
		LastName:         pick(defaults.LastName, meta["last_name"]),
		DisplayName:      pick(defaults.DisplayName, meta["display_name"], user.Email, "User"),
		Phone:            pick(defaults.Phone, meta["phone"], user.Phone),
		Location:         pick(defaults.Location),
		Dob:              pick(defaults.Dob),
		Bio:              pick(defaults.Bio),
		ProfileImagePath: pick(defaults.ProfileImagePath, meta["avatar_url"]),
	}
}

// Placeholder is the in-memory profile callers fall back to when the
// profile store cannot be reached. It is never persisted.
func Placeholder(user identity.User, role Role) Profile {
	return Synthesize(user, role, Patch{})
}
