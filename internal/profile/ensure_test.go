package profile

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/wichananm65/chef-marketplace-backend/internal/identity"
	"go.uber.org/zap"
)

type stubIdentities struct {
	users map[string]identity.User
	calls int
}

func (s *stubIdentities) GetUser(_ context.Context, id string) (identity.User, error) {
	s.calls++
	u, ok := s.users[id]
	if !ok {
		return identity.User{}, identity.ErrNotFound
	}
	return u, nil
}

// flakyRepository fails lookups with a transport error or simulates a
// concurrent insert, on top of the in-memory store.
type flakyRepository struct {
	*InMemoryRepository
	getErr  error
	racer   *Profile
	creates int
}

func (r *flakyRepository) GetByID(ctx context.Context, id string) (Profile, error) {
	if r.getErr != nil {
		return Profile{}, r.getErr
	}
	return r.InMemoryRepository.GetByID(ctx, id)
}

func (r *flakyRepository) Create(ctx context.Context, p Profile) (Profile, error) {
	r.creates++
	if r.racer != nil {
		r.InMemoryRepository.Create(ctx, *r.racer)
		r.racer = nil
	}
	return r.InMemoryRepository.Create(ctx, p)
}

func TestEnsureProfile_ExistingReturnedUntouched(t *testing.T) {
	repo := NewInMemoryRepository([]Profile{{ID: "u1", Role: RoleChef, DisplayName: "Stored Name"}})
	ids := &stubIdentities{users: map[string]identity.User{
		"u1": {ID: "u1", Email: "u1@example.com", Metadata: map[string]string{"display_name": "Newer Name", "role": "client"}},
	}}
	r := NewReconciler(repo, ids, zap.NewNop())

	p, err := r.EnsureProfile(context.Background(), "u1", RoleClient, Patch{DisplayName: String("Default")})
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if p.DisplayName != "Stored Name" || p.Role != RoleChef {
		t.Fatalf("existing profile must not be modified: %+v", p)
	}
	if ids.calls != 0 {
		t.Fatalf("identity should not be consulted for an existing profile")
	}
}

func TestEnsureProfile_CreatesFromMetadata(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	ids := &stubIdentities{users: map[string]identity.User{
		"u2": {ID: "u2", Email: "meera@example.com", Metadata: map[string]string{
			"first_name": "Meera", "last_name": "Singh", "role": "chef", "phone": "555",
		}},
	}}
	r := NewReconciler(repo, ids, zap.NewNop())

	p, err := r.EnsureProfile(context.Background(), "u2", "", Patch{})
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if p.Role != RoleChef || p.FirstName != "Meera" || p.Phone != "555" || p.Email != "meera@example.com" {
		t.Fatalf("unexpected synthesized profile %+v", p)
	}
	if p.DisplayName != "meera@example.com" {
		t.Fatalf("display name should fall back to email, got %q", p.DisplayName)
	}
	if p.CreatedAt == "" {
		t.Fatalf("returned profile should be the persisted row")
	}
	if stored, err := repo.GetByID(context.Background(), "u2"); err != nil || stored.ID != "u2" {
		t.Fatalf("profile was not persisted: %v", err)
	}
}

func TestEnsureProfile_DefaultsAndRolePrecedence(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	ids := &stubIdentities{users: map[string]identity.User{
		"u3": {ID: "u3", Metadata: map[string]string{"display_name": "Meta", "role": "chef"}},
		"u4": {ID: "u4"},
	}}
	r := NewReconciler(repo, ids, zap.NewNop())

	p, err := r.EnsureProfile(context.Background(), "u3", RoleClient, Patch{DisplayName: String("Given")})
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if p.Role != RoleClient || p.DisplayName != "Given" {
		t.Fatalf("explicit role and defaults should win: %+v", p)
	}

	p, err = r.EnsureProfile(context.Background(), "u4", "", Patch{})
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if p.Role != RoleClient || p.DisplayName != "User" {
		t.Fatalf("expected client role and User label, got %+v", p)
	}
}

func TestEnsureProfile_LookupFailureDoesNotInsert(t *testing.T) {
	repo := &flakyRepository{InMemoryRepository: NewInMemoryRepository(nil), getErr: errors.New("connection refused")}
	r := NewReconciler(repo, &stubIdentities{}, zap.NewNop())

	if _, err := r.EnsureProfile(context.Background(), "u5", "", Patch{}); err == nil {
		t.Fatalf("expected an error")
	}
	if repo.creates != 0 {
		t.Fatalf("no insert should be attempted after a failed lookup")
	}
}

func TestEnsureProfile_UnknownIdentity(t *testing.T) {
	r := NewReconciler(NewInMemoryRepository(nil), &stubIdentities{}, zap.NewNop())
	if _, err := r.EnsureProfile(context.Background(), "ghost", "", Patch{}); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected identity.ErrNotFound, got %v", err)
	}
}

func TestEnsureProfile_ConcurrentCreateKeepsStoredRow(t *testing.T) {
	repo := &flakyRepository{
		InMemoryRepository: NewInMemoryRepository(nil),
		racer:              &Profile{ID: "u6", Role: RoleChef, DisplayName: "First Writer"},
	}
	ids := &stubIdentities{users: map[string]identity.User{"u6": {ID: "u6", Email: "u6@example.com"}}}
	r := NewReconciler(repo, ids, zap.NewNop())

	p, err := r.EnsureProfile(context.Background(), "u6", "", Patch{})
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if p.DisplayName != "First Writer" || p.Role != RoleChef {
		t.Fatalf("expected the concurrently stored row, got %+v", p)
	}
}

func TestPlaceholder(t *testing.T) {
	p := Placeholder(identity.User{ID: "u7", Email: "x@example.com", Metadata: map[string]string{"role": "chef"}}, "")
	if p.ID != "u7" || p.Role != RoleChef || p.Label() != "x@example.com" || p.CreatedAt != "" {
		t.Fatalf("unexpected placeholder %+v", p)
	}
}

func TestEnsureProfile_SecondCallReusesRow(t *testing.T) {
	repo := &flakyRepository{InMemoryRepository: NewInMemoryRepository(nil)}
	ids := &stubIdentities{users: map[string]identity.User{
		"u9": {ID: "u9", Email: "u9@example.com"},
	}}
	r := NewReconciler(repo, ids, zap.NewNop())
	ctx := context.Background()

	first, err := r.EnsureProfile(ctx, "u9", "", Patch{})
	if err != nil {
		t.Fatalf("first ensure failed: %v", err)
	}
	second, err := r.EnsureProfile(ctx, "u9", RoleChef, Patch{DisplayName: String("Other")})
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if repo.creates != 1 || ids.calls != 1 {
		t.Fatalf("expected one insert and one identity lookup, got creates=%d calls=%d", repo.creates, ids.calls)
	}
	if !reflect.DeepEqual(first, second) || second.CreatedAt == "" {
		t.Fatalf("second call should return the stored row:\n first %+v\nsecond %+v", first, second)
	}
}
