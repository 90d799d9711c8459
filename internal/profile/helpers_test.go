package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wichananm65/chef-marketplace-backend/internal/storage"
	"go.uber.org/zap"
)

func newTestHelpers(t *testing.T, seed []Profile) (*Helpers, string) {
	t.Helper()
	dir := t.TempDir()
	bucket := storage.NewLocalBucket(dir, "http://chefs.test/uploads")
	return NewHelpers(NewInMemoryRepository(seed), bucket, zap.NewNop()), dir
}

func TestHelpers_CreateValidates(t *testing.T) {
	h, _ := newTestHelpers(t, nil)
	ctx := context.Background()

	if _, err := h.CreateProfile(ctx, Profile{Role: RoleChef}); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile for missing id, got %v", err)
	}
	if _, err := h.CreateProfile(ctx, Profile{ID: "x", Role: "admin"}); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile for bad role, got %v", err)
	}
	created, err := h.CreateProfile(ctx, Profile{ID: "x", Role: RoleClient})
	if err != nil || created.CreatedAt == "" {
		t.Fatalf("expected persisted row, got %+v (%v)", created, err)
	}
	if _, err := h.CreateProfile(ctx, Profile{ID: "x", Role: RoleClient}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestHelpers_UpdateProfile(t *testing.T) {
	h, _ := newTestHelpers(t, []Profile{{ID: "c1", Role: RoleChef, DisplayName: "Arun", Location: "Mumbai"}})
	ctx := context.Background()

	rate := 2100.0
	updated, err := h.UpdateProfile(ctx, "c1", Patch{Bio: String("Tandoor"), HourlyRate: &rate})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Bio != "Tandoor" || updated.HourlyRate != 2100 || updated.Location != "Mumbai" || updated.Role != RoleChef {
		t.Fatalf("unexpected updated row %+v", updated)
	}

	if _, err := h.UpdateProfile(ctx, "c1", Patch{Dob: String("15/06/1985")}); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile for a bad dob, got %v", err)
	}
	if _, err := h.UpdateProfile(ctx, "nobody", Patch{Bio: String("x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHelpers_GetAndDelete(t *testing.T) {
	h, _ := newTestHelpers(t, []Profile{{ID: "k1", Role: RoleClient}})
	ctx := context.Background()

	if err := h.DeleteProfile(ctx, "k1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	p, err := h.GetProfile(ctx, "k1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if p.ID != "" {
		t.Fatalf("failure should return the zero value, got %+v", p)
	}
}

func TestHelpers_UploadProfileImage(t *testing.T) {
	h, dir := newTestHelpers(t, nil)

	jpeg := "\xff\xd8\xff\xe0jpegbytes"
	url, err := h.UploadProfileImage(context.Background(), strings.NewReader(jpeg), "me.jpeg", "image/jpeg", "u1")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	prefix := "http://chefs.test/uploads/profile-images/u1-"
	if !strings.HasPrefix(url, prefix) || !strings.HasSuffix(url, ".jpeg") {
		t.Fatalf("unexpected url %s", url)
	}
	name := strings.TrimPrefix(url, "http://chefs.test/uploads/")
	if data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name))); err != nil || string(data) != jpeg {
		t.Fatalf("object not stored: %v", err)
	}

	if _, err := h.UploadProfileImage(context.Background(), strings.NewReader(""), "me.jpeg", "image/jpeg", "u1"); !errors.Is(err, storage.ErrEmptyObject) {
		t.Fatalf("expected ErrEmptyObject, got %v", err)
	}
}

func TestHelpers_UploadProfileImageRejectsNonImages(t *testing.T) {
	h, dir := newTestHelpers(t, nil)
	ctx := context.Background()

	cases := map[string]string{
		"page.html":   "<html><script>alert(1)</script></html>",
		"logo.svg":    `<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`,
		"avatar.png":  "<html><body>not a png</body></html>",
		"avatar":      "\x89PNG\r\n\x1a\nrest",
		"archive.zip": "PK\x03\x04",
	}
	for name, content := range cases {
		_, err := h.UploadProfileImage(ctx, strings.NewReader(content), name, "image/png", "u1")
		if !errors.Is(err, ErrUnsupportedImage) || !errors.Is(err, ErrInvalidProfile) {
			t.Fatalf("%s: expected ErrUnsupportedImage, got %v", name, err)
		}
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("rejected uploads must not be stored, found %d entries", len(entries))
	}

	if _, err := h.UploadProfileImage(ctx, strings.NewReader("\x89PNG\r\n\x1a\nrest"), "avatar.PNG", "text/html", "u1"); err != nil {
		t.Fatalf("png with a misleading content type should be accepted: %v", err)
	}
}

func TestPublicHelpers(t *testing.T) {
	repo := NewInMemoryRepository(DemoProfiles())
	h := NewPublicHelpers(repo, zap.NewNop())
	ctx := context.Background()

	chefs, err := h.PublicProfilesByRole(ctx, RoleChef)
	if err != nil || len(chefs) != 3 {
		t.Fatalf("expected 3 demo chefs, got %d (%v)", len(chefs), err)
	}
	for _, c := range chefs {
		if c.Role != RoleChef {
			t.Fatalf("unexpected role in %+v", c)
		}
	}
	if _, err := h.GetPublicProfile(ctx, "demo-chef-404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearch_ScopesUseTheirOwnRepository(t *testing.T) {
	ctx := context.Background()
	private, _ := newTestHelpers(t, nil)
	public := NewPublicHelpers(NewInMemoryRepository(DemoProfiles()), zap.NewNop())

	found, err := public.SearchProfiles(ctx, "delhi", RoleChef)
	if err != nil || len(found) != 1 || found[0].ID != "demo-chef-2" {
		t.Fatalf("public search: %+v (%v)", found, err)
	}
	found, err = private.SearchProfiles(ctx, "delhi", "")
	if err != nil || len(found) != 0 {
		t.Fatalf("private search should only see its own repository, got %+v (%v)", found, err)
	}
}
