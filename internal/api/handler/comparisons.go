package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/api/models"
	"github.com/regentroute/regentroute/internal/api/response"
	"github.com/regentroute/regentroute/internal/compare"
	"github.com/regentroute/regentroute/internal/comparison"
	"github.com/regentroute/regentroute/internal/mapview"
	"github.com/regentroute/regentroute/internal/trip"
)

// ComparisonStore persists saved comparisons.
type ComparisonStore interface {
	Save(ctx context.Context, input comparison.SaveInput) (*comparison.SavedComparison, error)
	Get(ctx context.Context, id string) (*comparison.SavedComparison, error)
	List(ctx context.Context, limit int, cursor string) (*comparison.ListResult, error)
	Delete(ctx context.Context, id string) error
}

// ComparisonsHandler handles saved comparison endpoints.
type ComparisonsHandler struct {
	store    ComparisonStore
	comparer Comparer
	logger   zerolog.Logger
}

// NewComparisonsHandler creates a new ComparisonsHandler. The comparer computes
// results for create requests that do not carry their own.
func NewComparisonsHandler(store ComparisonStore, comparer Comparer, logger zerolog.Logger) *ComparisonsHandler {
	return &ComparisonsHandler{store: store, comparer: comparer, logger: logger}
}

// ListComparisons handles GET /v1/comparisons - list saved comparisons, newest first.
func (h *ComparisonsHandler) ListComparisons(w http.ResponseWriter, r *http.Request) {
	limit := comparison.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > comparison.MaxListLimit {
			response.BadRequest(w, r, "invalid query parameters", []models.FieldError{
				{Field: "limit", Message: "must be between 1 and " + strconv.Itoa(comparison.MaxListLimit)},
			})
			return
		}
		limit = n
	}
	cursor := r.URL.Query().Get("cursor")

	result, err := h.store.List(r.Context(), limit, cursor)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list comparisons")
		response.InternalError(w, r, "failed to list comparisons")
		return
	}

	out := models.PagedComparisons{
		Items: make([]models.Comparison, 0, len(result.Items)),
		Meta:  models.PagedResponseMeta{Limit: limit},
	}
	for _, c := range result.Items {
		out.Items = append(out.Items, toComparison(c))
	}
	if result.NextCursor != "" {
		next := result.NextCursor
		out.Meta.NextCursor = &next
	}
	response.JSON(w, r, http.StatusOK, out)
}

// CreateComparison handles POST /v1/comparisons - save a comparison.
func (h *ComparisonsHandler) CreateComparison(w http.ResponseWriter, r *http.Request) {
	var req models.ComparisonCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	input := comparison.SaveInput{
		Name:               req.Name,
		OriginAddress:      req.Origin,
		DestinationAddress: req.Destination,
	}
	if curve := toCurve(req.FerryCurve); curve != nil {
		if err := curve.Validate(); err != nil {
			response.BadRequest(w, r, "invalid ferry curve", []models.FieldError{{Field: "ferryCurve", Message: err.Error()}})
			return
		}
		input.Display = &comparison.Display{FerryCurveDirection: curve.Direction, FerryCurveWidth: curve.Width}
	}

	if len(req.Results) > 0 {
		if fieldErrs := assignResults(&input, req.Results); len(fieldErrs) > 0 {
			response.BadRequest(w, r, "invalid comparison results", fieldErrs)
			return
		}
	} else if strings.TrimSpace(input.OriginAddress) != "" && strings.TrimSpace(input.DestinationAddress) != "" {
		// Blank addresses fall through to Save so they are reported as field errors.
		if !h.computeResults(w, r, &input) {
			return
		}
	}

	saved, err := h.store.Save(r.Context(), input)
	if err != nil {
		var ve *comparison.ValidationError
		if errors.As(err, &ve) {
			fieldErrs := make([]models.FieldError, len(ve.Errors))
			for i, fe := range ve.Errors {
				fieldErrs[i] = models.FieldError{Field: fe.Field, Message: fe.Message}
			}
			response.BadRequest(w, r, "invalid comparison", fieldErrs)
			return
		}
		h.logger.Error().Err(err).Msg("failed to save comparison")
		response.InternalError(w, r, "failed to save comparison")
		return
	}

	response.Created(w, r, "/v1/comparisons/"+saved.ID, toComparison(saved))
}

// computeResults runs a comparison for input's addresses and copies the
// successful estimates into it. It writes the error response and returns
// false when nothing can be saved.
func (h *ComparisonsHandler) computeResults(w http.ResponseWriter, r *http.Request, input *comparison.SaveInput) bool {
	if h.comparer == nil {
		response.BadRequest(w, r, "results are required", []models.FieldError{{Field: "results", Message: "is required"}})
		return false
	}

	var curve *trip.CurveOptions
	if input.Display != nil {
		c := input.Display.Curve()
		curve = &c
	}
	result, err := h.comparer.Compare(r.Context(), compare.Input{
		Origin:      input.OriginAddress,
		Destination: input.DestinationAddress,
		Curve:       curve,
	})
	if err != nil {
		writeTripError(w, r, h.logger, err)
		return false
	}
	for _, mr := range result.Comparison.Results {
		if mr.OK() {
			setEstimate(input, mr.Estimate)
		}
	}
	return true
}

// GetComparison handles GET /v1/comparisons/{comparisonId}.
func (h *ComparisonsHandler) GetComparison(w http.ResponseWriter, r *http.Request) {
	saved, ok := h.load(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, toComparison(saved))
}

// GetComparisonMap handles GET /v1/comparisons/{comparisonId}/map - the saved
// paths as a GeoJSON FeatureCollection.
func (h *ComparisonsHandler) GetComparisonMap(w http.ResponseWriter, r *http.Request) {
	saved, ok := h.load(w, r)
	if !ok {
		return
	}
	scene := mapview.NewScene(mapview.OverlaysForEstimates(saved.Car, saved.Ferry, saved.Plane)...)
	response.GeoJSON(w, r, scene.FeatureCollection())
}

// DeleteComparison handles DELETE /v1/comparisons/{comparisonId}.
func (h *ComparisonsHandler) DeleteComparison(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "comparisonId")
	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, comparison.ErrComparisonNotFound) {
			response.NotFound(w, r, "comparison not found")
			return
		}
		h.logger.Error().Err(err).Str("comparison_id", id).Msg("failed to delete comparison")
		response.InternalError(w, r, "failed to delete comparison")
		return
	}
	response.NoContent(w, r)
}

func (h *ComparisonsHandler) load(w http.ResponseWriter, r *http.Request) (*comparison.SavedComparison, bool) {
	id := chi.URLParam(r, "comparisonId")
	saved, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, comparison.ErrComparisonNotFound) {
			response.NotFound(w, r, "comparison not found")
			return nil, false
		}
		h.logger.Error().Err(err).Str("comparison_id", id).Msg("failed to get comparison")
		response.InternalError(w, r, "failed to get comparison")
		return nil, false
	}
	return saved, true
}

func assignResults(input *comparison.SaveInput, results []models.SavedEstimate) []models.FieldError {
	var fieldErrs []models.FieldError
	seen := make(map[trip.Mode]bool, len(results))
	for _, s := range results {
		est, errs := fromSavedEstimate(s)
		if len(errs) > 0 {
			fieldErrs = append(fieldErrs, errs...)
			continue
		}
		if seen[est.Mode] {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "results." + s.Mode, Message: "duplicate mode"})
			continue
		}
		seen[est.Mode] = true
		setEstimate(input, est)
	}
	return fieldErrs
}

func setEstimate(input *comparison.SaveInput, est *trip.Estimate) {
	switch est.Mode {
	case trip.ModeCar:
		input.Car = est
	case trip.ModeFerry:
		input.Ferry = est
	case trip.ModePlane:
		input.Plane = est
	}
}

func toComparison(c *comparison.SavedComparison) models.Comparison {
	out := models.Comparison{
		ID:          c.ID,
		Name:        c.Name,
		Origin:      c.OriginAddress,
		Destination: c.DestinationAddress,
		Results:     make([]models.SavedEstimate, 0, 3),
		CreatedAt:   models.Timestamp(c.CreatedAt),
	}
	for _, mode := range c.Modes() {
		out.Results = append(out.Results, toSavedEstimate(c.Estimate(mode)))
	}
	width := c.Display.FerryCurveWidth
	out.Display.FerryCurve = models.FerryCurve{
		Direction: string(c.Display.FerryCurveDirection),
		Width:     &width,
	}
	return out
}
