package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"social-chat/internal/messaging"
)

// Health returns basic health check
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status    string                 `json:"status"`
	LatencyMs int64                  `json:"latency_ms,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Database is the part of *sql.DB the readiness probe uses
type Database interface {
	PingContext(ctx context.Context) error
	Stats() sql.DBStats
}

// BrokerState reports the notification producer's connection state
type BrokerState interface {
	State() string
}

// Pinger checks an optional dependency such as the room relay
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ready reports readiness of the database, broker and, when configured, the relay.
// A broker that has not been dialed yet counts as ready since the producer connects lazily.
func Ready(db Database, broker BrokerState, relay Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		// Check dependencies in parallel
		dbResult := make(chan HealthCheckResult, 1)
		relayResult := make(chan HealthCheckResult, 1)

		go func() {
			dbResult <- checkDatabase(ctx, db)
		}()
		go func() {
			if relay == nil {
				relayResult <- HealthCheckResult{Status: "disabled"}
				return
			}
			relayResult <- checkPinger(ctx, relay)
		}()

		checks := map[string]HealthCheckResult{
			"database": <-dbResult,
			"rabbitmq": checkBroker(broker),
			"redis":    <-relayResult,
		}

		ready := true
		for _, check := range checks {
			if check.Status == "down" {
				ready = false
			}
		}

		response := map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    checks,
		}
		if ready {
			response["status"] = "ready"
			writeJSON(w, http.StatusOK, response)
			return
		}
		response["status"] = "not_ready"
		writeJSON(w, http.StatusServiceUnavailable, response)
	}
}

// checkDatabase verifies database connectivity
func checkDatabase(ctx context.Context, db Database) HealthCheckResult {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return HealthCheckResult{
			Status:    "down",
			LatencyMs: latency.Milliseconds(),
			Error:     err.Error(),
		}
	}

	stats := db.Stats()
	return HealthCheckResult{
		Status:    "up",
		LatencyMs: latency.Milliseconds(),
		Metadata: map[string]interface{}{
			"connections_open":   stats.OpenConnections,
			"connections_in_use": stats.InUse,
			"connections_idle":   stats.Idle,
			"max_open":           stats.MaxOpenConnections,
		},
	}
}

func checkBroker(broker BrokerState) HealthCheckResult {
	switch state := broker.State(); state {
	case messaging.StateUp:
		return HealthCheckResult{Status: "up"}
	case messaging.StateIdle:
		return HealthCheckResult{Status: "up", Metadata: map[string]interface{}{"connection": "not yet established"}}
	default:
		return HealthCheckResult{Status: "down", Error: "connection " + state}
	}
}

func checkPinger(ctx context.Context, p Pinger) HealthCheckResult {
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return HealthCheckResult{Status: "down", LatencyMs: time.Since(start).Milliseconds(), Error: err.Error()}
	}
	return HealthCheckResult{Status: "up", LatencyMs: time.Since(start).Milliseconds()}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
