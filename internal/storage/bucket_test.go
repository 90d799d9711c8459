package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestLocalBucket_UploadAndURL(t *testing.T) {
	dir := t.TempDir()
	b := NewLocalBucket(dir, "http://chefs.test/uploads/profiles/")

	key := "profile-images/u1-abc.png"
	if err := b.Upload(context.Background(), key, strings.NewReader("PNGDATA"), "image/png"); err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "profile-images", "u1-abc.png"))
	if err != nil || string(data) != "PNGDATA" {
		t.Fatalf("object not written: %q (%v)", data, err)
	}
	if got := b.PublicURL(key); got != "http://chefs.test/uploads/profiles/profile-images/u1-abc.png" {
		t.Fatalf("unexpected public url %s", got)
	}

	if err := b.Upload(context.Background(), key, strings.NewReader("again"), "image/png"); !errors.Is(err, ErrObjectExists) {
		t.Fatalf("expected ErrObjectExists, got %v", err)
	}
}

func TestLocalBucket_Rejects(t *testing.T) {
	b := NewLocalBucket(t.TempDir(), "/uploads")

	for _, key := range []string{"", "../escape.png", "a/../../b.png", "/abs.png"} {
		if err := b.Upload(context.Background(), key, strings.NewReader("x"), ""); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey for %q, got %v", key, err)
		}
	}
	if err := b.Upload(context.Background(), "empty.png", strings.NewReader(""), ""); !errors.Is(err, ErrEmptyObject) {
		t.Fatalf("expected ErrEmptyObject, got %v", err)
	}
}

func TestObjectKey(t *testing.T) {
	pattern := regexp.MustCompile(`^profile-images/u42-[0-9a-f-]{36}\.jpg$`)
	a := ObjectKey("profile-images", "u42", "Me.JPG")
	b := ObjectKey("profile-images", "u42", "Me.JPG")
	if !pattern.MatchString(a) {
		t.Fatalf("unexpected key %s", a)
	}
	if a == b {
		t.Fatalf("keys should differ between uploads")
	}
	if key := ObjectKey("profile-images", "u42", "noext"); strings.Contains(strings.TrimPrefix(key, "profile-images/"), ".") {
		t.Fatalf("key without extension should not carry a dot: %s", key)
	}
}
