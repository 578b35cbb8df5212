package handler

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/regentroute/regentroute/internal/api/models"
	"github.com/regentroute/regentroute/internal/api/response"
	"github.com/regentroute/regentroute/internal/featureflags"
	"github.com/regentroute/regentroute/internal/provider/resilience"
)

// readinessTimeout bounds each readiness check.
const readinessTimeout = 2 * time.Second

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// FlagReader lists feature flags.
type FlagReader interface {
	GetAllFlags(ctx context.Context) map[string]*featureflags.Flag
}

// OpsConfig holds dependencies for the ops handler.
type OpsConfig struct {
	Version   string
	BuildTime string
	// Registry supplies provider circuit states. Optional.
	Registry *resilience.Registry
	// Checks are readiness probes keyed by subsystem name, e.g. "store".
	Checks map[string]Check
	// Flags reports active degradation flags. Optional.
	Flags FlagReader
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - 503 when any subsystem check fails.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.runChecks(r.Context())

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	status := http.StatusOK
	details := make(map[string]interface{}, len(subsystems))
	for _, s := range subsystems {
		details[s.Name] = s.Status
		if s.Status != models.HealthStatusOK {
			health.Status = models.HealthStatusFail
			status = http.StatusServiceUnavailable
		}
	}
	if len(details) > 0 {
		health.Details = details
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	out := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: h.runChecks(r.Context()),
		Providers:  []models.ProviderStatus{},
	}

	if h.cfg.Registry != nil {
		for _, ph := range h.cfg.Registry.GetAllHealth() {
			out.Providers = append(out.Providers, toProviderStatus(ph))
		}
		out.Status = models.HealthStatus(h.cfg.Registry.Overall())
	}
	for _, s := range out.Subsystems {
		if s.Status != models.HealthStatusOK {
			out.Status = models.HealthStatusFail
		}
	}
	if h.cfg.Flags != nil {
		out.ActiveDegradationFlags = activeDegradations(h.cfg.Flags.GetAllFlags(r.Context()))
	}

	response.JSON(w, r, http.StatusOK, out)
}

func (h *OpsHandler) runChecks(ctx context.Context) []models.SubsystemStatus {
	names := make([]string, 0, len(h.cfg.Checks))
	for name := range h.cfg.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.SubsystemStatus, 0, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
		err := h.cfg.Checks[name](checkCtx)
		cancel()

		s := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}
	return out
}

func toProviderStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider: ph.Name,
		Status:   models.HealthStatusOK,
		Circuit:  ph.CircuitState.String(),
		Requests: ph.Counts.Requests,
		Failures: ph.Counts.ConsecutiveFailures,
	}
	switch {
	case ph.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case ph.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	}
	if ph.LastSuccessAt != nil {
		ts := models.Timestamp(*ph.LastSuccessAt)
		ps.LastSuccessAt = &ts
	}
	if ph.LastFailureAt != nil {
		ts := models.Timestamp(*ph.LastFailureAt)
		ps.LastFailureAt = &ts
	}
	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}
	return ps
}

// activeDegradations lists the disable_* flags that are switched on.
func activeDegradations(flags map[string]*featureflags.Flag) []string {
	var active []string
	for key, f := range flags {
		if strings.HasPrefix(key, "disable_") && f.BoolValue(false) {
			active = append(active, key)
		}
	}
	sort.Strings(active)
	return active
}
