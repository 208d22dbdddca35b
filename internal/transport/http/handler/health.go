package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"user-service/internal/dispatch"
)

// Caller sends a request to a sibling service; *dispatch.Dispatcher implements it.
type Caller interface {
	Call(ctx context.Context, svc dispatch.Service, method, path string, body any) (json.RawMessage, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler serves liveness and a readiness report. Readiness always answers 200;
// each dependency shows "ok" or the reason it failed.
type HealthHandler struct {
	deps     map[string]Pinger
	siblings Caller
	// path probed on every sibling, e.g. "/health"
	probe string
}

func NewHealthHandler(deps map[string]Pinger, siblings Caller, probe string) *HealthHandler {
	return &HealthHandler{deps: deps, siblings: siblings, probe: probe}
}

func (h *HealthHandler) Live(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) }

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	deps := make(map[string]string, len(h.deps))
	for name, p := range h.deps {
		deps[name] = status(p.Ping(ctx))
	}

	siblings := map[string]string{}
	if h.siblings != nil && h.probe != "" {
		for _, svc := range dispatch.Services() {
			if svc == dispatch.Users {
				continue
			}
			_, err := h.siblings.Call(ctx, svc, http.MethodGet, h.probe, nil)
			siblings[svc.String()] = status(err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"deps": deps, "services": siblings})
}

func status(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}
