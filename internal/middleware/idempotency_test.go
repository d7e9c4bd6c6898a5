package middleware

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cryptotrade/cryptotrade/internal/logging"
)

func newTestApp(t *testing.T) (*fiber.App, *atomic.Int64) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	var calls atomic.Int64
	app := fiber.New()
	app.Use(Idempotency(client, time.Minute, logging.Discard()))
	app.Post("/orders", func(c *fiber.Ctx) error {
		n := calls.Add(1)
		return c.JSON(fiber.Map{"execution": n})
	})
	app.Get("/orders", func(c *fiber.Ctx) error {
		calls.Add(1)
		return c.SendString("ok")
	})
	return app, &calls
}

func doRequest(t *testing.T, app *fiber.App, method, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, "/orders", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	app, calls := newTestApp(t)

	status1, body1 := doRequest(t, app, http.MethodPost, "key-1")
	status2, body2 := doRequest(t, app, http.MethodPost, "key-1")

	if status1 != http.StatusOK || status2 != http.StatusOK {
		t.Fatalf("statuses = %d, %d", status1, status2)
	}
	if body1 != body2 {
		t.Fatalf("replay differs: %q vs %q", body1, body2)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("handler ran %d times, want 1", got)
	}
}

func TestIdempotencyDistinctKeysExecuteSeparately(t *testing.T) {
	app, calls := newTestApp(t)

	doRequest(t, app, http.MethodPost, "key-1")
	doRequest(t, app, http.MethodPost, "key-2")

	if got := calls.Load(); got != 2 {
		t.Fatalf("handler ran %d times, want 2", got)
	}
}

func TestIdempotencyMissingKeyPassesThrough(t *testing.T) {
	app, calls := newTestApp(t)

	for i := 0; i < 3; i++ {
		if status, _ := doRequest(t, app, http.MethodPost, ""); status != http.StatusOK {
			t.Fatalf("request %d status = %d", i, status)
		}
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("handler ran %d times, want 3", got)
	}
}

func TestIdempotencyIgnoresReads(t *testing.T) {
	app, calls := newTestApp(t)

	doRequest(t, app, http.MethodGet, "key-1")
	doRequest(t, app, http.MethodGet, "key-1")

	if got := calls.Load(); got != 2 {
		t.Fatalf("handler ran %d times, want 2", got)
	}
}

func TestIdempotencyFailedRequestIsRetriable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	var calls atomic.Int64
	app := fiber.New()
	app.Use(Idempotency(client, time.Minute, logging.Discard()))
	app.Post("/orders", func(c *fiber.Ctx) error {
		if calls.Add(1) == 1 {
			return fmt.Errorf("transient failure")
		}
		return c.SendString("done")
	})

	status1, _ := doRequest(t, app, http.MethodPost, "key-1")
	if status1 != http.StatusInternalServerError {
		t.Fatalf("first status = %d, want 500", status1)
	}
	status2, body2 := doRequest(t, app, http.MethodPost, "key-1")
	if status2 != http.StatusOK || body2 != "done" {
		t.Fatalf("retry after failure: status=%d body=%q", status2, body2)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("handler ran %d times, want 2", got)
	}
}
