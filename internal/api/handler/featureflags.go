package handler

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/api/models"
	"github.com/regentroute/regentroute/internal/api/response"
	"github.com/regentroute/regentroute/internal/featureflags"
)

// FlagStore reads and writes feature flags.
type FlagStore interface {
	GetAllFlags(ctx context.Context) map[string]*featureflags.Flag
	SetFlags(ctx context.Context, flags []*featureflags.Flag) error
	InvalidateCache()
}

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service FlagStore
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service FlagStore, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags - list all feature flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, sortedFlags(h.service.GetAllFlags(r.Context())))
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags - update feature flags.
// Responds with the full flag list after the update.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req featureflags.FlagUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	var fieldErrs []models.FieldError
	if len(req.Updates) == 0 {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "updates", Message: "must contain at least one update"})
	}
	flags := make([]*featureflags.Flag, 0, len(req.Updates))
	for i, u := range req.Updates {
		key := strings.TrimSpace(u.Key)
		if key == "" {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "updates[" + strconv.Itoa(i) + "].key", Message: "is required"})
			continue
		}
		if u.Value == nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "updates[" + strconv.Itoa(i) + "].value", Message: "is required"})
			continue
		}
		flags = append(flags, &featureflags.Flag{Key: key, Value: u.Value})
	}
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid flag update", fieldErrs)
		return
	}

	if err := h.service.SetFlags(r.Context(), flags); err != nil {
		h.logger.Error().Err(err).Int("count", len(flags)).Msg("failed to update feature flags")
		response.InternalError(w, r, "failed to update feature flags")
		return
	}

	keys := make([]string, len(flags))
	for i, f := range flags {
		keys[i] = f.Key
	}
	h.logger.Info().Strs("keys", keys).Str("reason", req.Reason).Msg("feature flags updated")

	response.JSON(w, r, http.StatusOK, sortedFlags(h.service.GetAllFlags(r.Context())))
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate - drop cached flag values.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}

func sortedFlags(all map[string]*featureflags.Flag) featureflags.FlagList {
	list := featureflags.FlagList{Items: make([]featureflags.Flag, 0, len(all))}
	for _, f := range all {
		if f != nil {
			list.Items = append(list.Items, *f)
		}
	}
	sort.Slice(list.Items, func(i, j int) bool { return list.Items[i].Key < list.Items[j].Key })
	return list
}
