package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/api/models"
	"github.com/regentroute/regentroute/internal/api/response"
	"github.com/regentroute/regentroute/internal/compare"
	"github.com/regentroute/regentroute/internal/geo"
	"github.com/regentroute/regentroute/internal/geocode"
	"github.com/regentroute/regentroute/internal/trip"
)

// maxRequestBytes bounds JSON request bodies.
const maxRequestBytes = 1 << 20

// Comparer runs compare and single-mode estimate requests.
type Comparer interface {
	Compare(ctx context.Context, in compare.Input) (*compare.Result, error)
	Estimate(ctx context.Context, req trip.Request) (*trip.Estimate, error)
}

// TripsHandler handles trip estimation endpoints.
type TripsHandler struct {
	comparer Comparer
	logger   zerolog.Logger
}

// NewTripsHandler creates a new TripsHandler.
func NewTripsHandler(comparer Comparer, logger zerolog.Logger) *TripsHandler {
	return &TripsHandler{comparer: comparer, logger: logger}
}

// Compare handles POST /v1/trips:compare - estimate every mode between two addresses.
// Failed modes are reported per mode; the request only fails when an address
// cannot be resolved or the input is invalid.
func (h *TripsHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req models.CompareRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	var fieldErrs []models.FieldError
	if req.Origin == "" {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "origin", Message: "is required"})
	}
	if req.Destination == "" {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "destination", Message: "is required"})
	}
	if !req.Units.Valid() {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "units", Message: "must be imperial or metric"})
	}
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid compare request", fieldErrs)
		return
	}

	result, err := h.comparer.Compare(r.Context(), compare.Input{
		Origin:         req.Origin,
		Destination:    req.Destination,
		Curve:          toCurve(req.FerryCurve),
		IncludeFlights: req.IncludeFlights,
	})
	if err != nil {
		writeTripError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, toCompareResponse(result, req.Units))
}

// Estimate handles POST /v1/trips:estimate - estimate one mode between raw coordinates.
func (h *TripsHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req models.EstimateRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	var fieldErrs []models.FieldError
	if req.Origin == nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "origin", Message: "is required"})
	}
	if req.Destination == nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "destination", Message: "is required"})
	}
	mode, err := trip.ParseMode(req.Mode)
	if err != nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "mode", Message: "must be car, ferry or plane"})
	}
	if !req.Units.Valid() {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "units", Message: "must be imperial or metric"})
	}
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid estimate request", fieldErrs)
		return
	}

	est, err := h.comparer.Estimate(r.Context(), trip.Request{
		Origin:      geo.Coordinate{Lat: req.Origin.Lat, Lon: req.Origin.Lon},
		Destination: geo.Coordinate{Lat: req.Destination.Lat, Lon: req.Destination.Lon},
		Mode:        mode,
		Curve:       toCurve(req.FerryCurve),
	})
	if err != nil {
		writeTripError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.ModeEstimate{
		Mode:     string(est.Mode),
		Status:   models.ModeStatusOK,
		Estimate: toEstimate(est, req.Units),
	})
}

// writeTripError maps estimation errors to problem responses.
func writeTripError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, compare.ErrInvalidInput),
		errors.Is(err, trip.ErrInvalidCoordinate),
		errors.Is(err, trip.ErrUnknownMode),
		errors.Is(err, trip.ErrInvalidCurve):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, geocode.ErrGeocodeFailure):
		response.GeocodeFailure(w, r, describeAddress(err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.ServiceUnavailable(w, r, "request timed out")
	default:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("trip request failed")
		response.InternalError(w, r, "failed to estimate trip")
	}
}

func toCompareResponse(result *compare.Result, units models.Units) models.CompareResponse {
	out := models.CompareResponse{
		Origin:           toPlace(result.Origin),
		Destination:      toPlace(result.Destination),
		GreatCircleMiles: geo.GreatCircleMiles(result.Origin.Coordinate, result.Destination.Coordinate),
		Modes:            make([]models.ModeEstimate, 0, len(result.Comparison.Results)),
		Flight:           toFlightQuote(result.Flight),
		Map:              result.Scene.FeatureCollection(),
	}
	for _, mr := range result.Comparison.Results {
		out.Modes = append(out.Modes, toModeEstimate(mr, units))
	}
	return out
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBytes))
	return dec.Decode(v)
}
