package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/wichananm65/chef-marketplace-backend/internal/storage"
	"go.uber.org/zap"
)

// ImagePrefix is the key prefix for uploaded profile images.
const ImagePrefix = "profile-images"

// ErrUnsupportedImage rejects uploads that are not a raster image.
var ErrUnsupportedImage = fmt.Errorf("%w: only jpeg, png, gif and webp images are accepted", ErrInvalidProfile)

var (
	imageExtensions = map[string]bool{"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true}
	imageTypes      = map[string]bool{"image/jpeg": true, "image/png": true, "image/gif": true, "image/webp": true}
)

// Helpers is the authenticated access path to the profile store. Every
// method returns the zero value together with a non-nil error on failure;
// not-found cases wrap ErrNotFound.
type Helpers struct {
	repo   Repository
	bucket storage.Bucket
	log    *zap.Logger
}

func NewHelpers(repo Repository, bucket storage.Bucket, log *zap.Logger) *Helpers {
	return &Helpers{repo: repo, bucket: bucket, log: log}
}

// CreateProfile inserts p and returns the row as persisted.
func (h *Helpers) CreateProfile(ctx context.Context, p Profile) (Profile, error) {
	if p.ID == "" {
		return Profile{}, fmt.Errorf("%w: id is required", ErrInvalidProfile)
	}
	if _, ok := ParseRole(string(p.Role)); !ok {
		return Profile{}, fmt.Errorf("%w: unknown role %q", ErrInvalidProfile, p.Role)
	}
	created, err := h.repo.Create(ctx, p)
	if err != nil {
		h.fail("create profile", p.ID, err)
		return Profile{}, fmt.Errorf("create profile %s: %w", p.ID, err)
	}
	h.log.Info("profile created", zap.String("id", created.ID), zap.String("role", string(created.Role)))
	return created, nil
}

func (h *Helpers) GetProfile(ctx context.Context, id string) (Profile, error) {
	p, err := h.repo.GetByID(ctx, id)
	if err != nil {
		h.fail("get profile", id, err)
		return Profile{}, fmt.Errorf("get profile %s: %w", id, err)
	}
	return p, nil
}

// UpdateProfile merges patch onto the stored row, writes the full row back
// and returns it as persisted.
func (h *Helpers) UpdateProfile(ctx context.Context, id string, patch Patch) (Profile, error) {
	if err := patch.Validate(); err != nil {
		return Profile{}, err
	}
	existing, err := h.repo.GetByID(ctx, id)
	if err != nil {
		h.fail("update profile", id, err)
		return Profile{}, fmt.Errorf("update profile %s: %w", id, err)
	}
	updated, err := h.repo.Update(ctx, patch.Apply(existing))
	if err != nil {
		h.fail("update profile", id, err)
		return Profile{}, fmt.Errorf("update profile %s: %w", id, err)
	}
	return updated, nil
}

func (h *Helpers) DeleteProfile(ctx context.Context, id string) error {
	if err := h.repo.Delete(ctx, id); err != nil {
		h.fail("delete profile", id, err)
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	h.log.Info("profile deleted", zap.String("id", id))
	return nil
}

func (h *Helpers) ProfilesByRole(ctx context.Context, role Role) ([]Profile, error) {
	profiles, err := h.repo.ListByRole(ctx, role)
	if err != nil {
		h.log.Error("list profiles by role failed", zap.String("role", string(role)), zap.Error(err))
		return nil, fmt.Errorf("list %s profiles: %w", role, err)
	}
	return profiles, nil
}

// SearchProfiles matches query against display name, location and bio.
// An empty role searches both roles.
func (h *Helpers) SearchProfiles(ctx context.Context, query string, role Role) ([]Profile, error) {
	profiles, err := h.repo.Search(ctx, query, role)
	if err != nil {
		h.log.Error("search profiles failed", zap.String("query", query), zap.String("role", string(role)), zap.Error(err))
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	return profiles, nil
}

// UploadProfileImage stores the image under a pseudo-unique key owned by
// ownerID and returns its public URL. Previously uploaded images are not
// removed.
//
// The file name must carry an image extension and the content must sniff as
// an image; the declared content type is ignored.
func (h *Helpers) UploadProfileImage(ctx context.Context, file io.Reader, filename, _, ownerID string) (string, error) {
	body, contentType, err := sniffImage(file, filename)
	if err != nil {
		h.log.Warn("profile image rejected", zap.String("owner_id", ownerID), zap.String("filename", filename), zap.Error(err))
		return "", fmt.Errorf("upload profile image: %w", err)
	}
	key := storage.ObjectKey(ImagePrefix, ownerID, filename)
	if err := h.bucket.Upload(ctx, key, body, contentType); err != nil {
		h.log.Error("upload profile image failed", zap.String("owner_id", ownerID), zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("upload profile image: %w", err)
	}
	publicURL := h.bucket.PublicURL(key)
	h.log.Info("profile image uploaded", zap.String("owner_id", ownerID), zap.String("url", publicURL))
	return publicURL, nil
}

// sniffImage checks the extension and the first bytes of file and returns a
// reader that still yields the whole content.
func sniffImage(file io.Reader, filename string) (io.Reader, string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !imageExtensions[ext] {
		return nil, "", ErrUnsupportedImage
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, "", err
	}
	head = head[:n]
	if n == 0 {
		// empty objects are refused by the bucket
		return bytes.NewReader(nil), "", nil
	}
	contentType := http.DetectContentType(head)
	if !imageTypes[contentType] {
		return nil, "", ErrUnsupportedImage
	}
	return io.MultiReader(bytes.NewReader(head), file), contentType, nil
}

func (h *Helpers) fail(op, id string, err error) {
	if errors.Is(err, ErrNotFound) {
		h.log.Debug(op+": not found", zap.String("id", id))
		return
	}
	h.log.Error(op+" failed", zap.String("id", id), zap.Error(err))
}

// PublicHelpers is the unauthenticated, read-only access path used by
// public profile pages. It is built over its own repository so it can run
// with a separate read-only credential.
type PublicHelpers struct {
	repo Repository
	log  *zap.Logger
}

func NewPublicHelpers(repo Repository, log *zap.Logger) *PublicHelpers {
	return &PublicHelpers{repo: repo, log: log}
}

func (h *PublicHelpers) GetPublicProfile(ctx context.Context, id string) (Profile, error) {
	p, err := h.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			h.log.Error("get public profile failed", zap.String("id", id), zap.Error(err))
		}
		return Profile{}, fmt.Errorf("get public profile %s: %w", id, err)
	}
	return p, nil
}

func (h *PublicHelpers) PublicProfilesByRole(ctx context.Context, role Role) ([]Profile, error) {
	profiles, err := h.repo.ListByRole(ctx, role)
	if err != nil {
		h.log.Error("list public profiles failed", zap.String("role", string(role)), zap.Error(err))
		return nil, fmt.Errorf("list public %s profiles: %w", role, err)
	}
	h.log.Debug("public profiles listed", zap.String("role", string(role)), zap.Int("count", len(profiles)))
	return profiles, nil
}

// SearchProfiles matches query against public profile fields over the public
// repository.
func (h *PublicHelpers) SearchProfiles(ctx context.Context, query string, role Role) ([]Profile, error) {
	profiles, err := h.repo.Search(ctx, query, role)
	if err != nil {
		h.log.Error("search public profiles failed", zap.String("query", query), zap.String("role", string(role)), zap.Error(err))
		return nil, fmt.Errorf("search public profiles: %w", err)
	}
	return profiles, nil
}
