package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	probes []probe
}

type probe struct {
	name string
	ping func(context.Context) error
}

func NewHealthHandler(db *pgxpool.Pool, rdb *redis.Client) *HealthHandler {
	h := &HealthHandler{}
	if db != nil {
		h.probes = append(h.probes, probe{"database", db.Ping})
	}
	if rdb != nil {
		h.probes = append(h.probes, probe{"redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return h
}

// Healthz reports process liveness only.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz pings every dependency and reports 503 if any probe fails.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.probes))
	status := http.StatusOK

	for _, p := range h.probes {
		if err := p.ping(r.Context()); err != nil {
			checks[p.name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks[p.name] = "ok"
		}
	}

	body := map[string]interface{}{"status": "ok", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
