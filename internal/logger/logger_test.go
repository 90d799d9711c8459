package logger

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger_RecordsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	app := fiber.New()
	app.Use(RequestLogger(zap.New(core)))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusBadGateway, "upstream") })

	for _, path := range []string{"/ok", "/boom"} {
		if _, err := app.Test(httptest.NewRequest("GET", path, nil)); err != nil {
			t.Fatalf("request %s failed: %v", path, err)
		}
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["status"]; got != int64(200) {
		t.Fatalf("expected status 200 logged, got %v", got)
	}
	if entries[1].Level != zap.ErrorLevel {
		t.Fatalf("expected upstream failure to log at error level, got %s", entries[1].Level)
	}
	if got := entries[1].ContextMap()["status"]; got != int64(502) {
		t.Fatalf("expected status 502 logged, got %v", got)
	}
}
