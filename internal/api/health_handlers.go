package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Component states, worst last.
const (
	healthHealthy   = "healthy"
	healthDegraded  = "degraded"
	healthUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Reports the project database, cover storage and event stream",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"database": s.checkDatabase(ctx),
		"storage":  s.checkStorage(),
		"sse":      s.checkSSEManager(),
	}
	return &HealthOutput{
		Body: HealthResponse{
			Status:     overallHealth(components),
			Components: components,
		},
	}, nil
}

func overallHealth(components map[string]ComponentHealth) string {
	rank := map[string]int{healthHealthy: 0, healthDegraded: 1, healthUnhealthy: 2}
	overall := healthHealthy
	for _, c := range components {
		if rank[c.Status] > rank[overall] {
			overall = c.Status
		}
	}
	return overall
}

// probe times check and reports failure with failMsg.
func probe(check func() error, failMsg string) ComponentHealth {
	start := time.Now()
	err := check()
	latency := time.Since(start).String()
	if err != nil {
		return ComponentHealth{Status: healthUnhealthy, Latency: latency, Message: failMsg}
	}
	return ComponentHealth{Status: healthHealthy, Latency: latency}
}

func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{Status: healthDegraded, Message: "database not configured"}
	}
	return probe(func() error { return s.store.Ping(ctx) }, "database read failed")
}

// checkStorage confirms finished covers can still be written.
func (s *Server) checkStorage() ComponentHealth {
	if s.services == nil || s.services.Storage == nil {
		return ComponentHealth{Status: healthDegraded, Message: "cover storage not configured"}
	}
	return probe(s.services.Storage.Check, "cover storage is not writable")
}

func (s *Server) checkSSEManager() ComponentHealth {
	if s.sseManager == nil {
		return ComponentHealth{Status: healthDegraded, Message: "SSE manager not configured"}
	}
	return ComponentHealth{
		Status:  healthHealthy,
		Message: formatSSEStatus(s.sseManager.ClientCount()),
	}
}

func formatSSEStatus(count int) string {
	switch count {
	case 0:
		return "no connected clients"
	case 1:
		return "1 connected client"
	default:
		return strconv.Itoa(count) + " connected clients"
	}
}
