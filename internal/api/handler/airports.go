package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/api/models"
	"github.com/regentroute/regentroute/internal/api/response"
	"github.com/regentroute/regentroute/internal/aviation"
	"github.com/regentroute/regentroute/internal/geo"
)

// maxAirports caps the limit query parameter.
const maxAirports = 10

// AirportLocator finds airports near a point.
type AirportLocator interface {
	NearestAirports(ctx context.Context, point geo.Coordinate, limit int) ([]aviation.Airport, error)
}

// AirportsHandler handles airport lookup endpoints.
type AirportsHandler struct {
	locator AirportLocator
	logger  zerolog.Logger
}

// NewAirportsHandler creates a new AirportsHandler.
func NewAirportsHandler(locator AirportLocator, logger zerolog.Logger) *AirportsHandler {
	return &AirportsHandler{locator: locator, logger: logger}
}

// NearestAirports handles GET /v1/airports/nearest?lat&lon&limit.
func (h *AirportsHandler) NearestAirports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var fieldErrs []models.FieldError

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "lat", Message: "must be a number"})
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "lon", Message: "must be a number"})
	}
	limit := 3
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAirports {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "limit", Message: "must be between 1 and 10"})
		} else {
			limit = n
		}
	}
	point := geo.Coordinate{Lat: lat, Lon: lon}
	if len(fieldErrs) == 0 {
		if err := point.Validate(); err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "lat,lon", Message: err.Error()})
		}
	}
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid query parameters", fieldErrs)
		return
	}

	airports, err := h.locator.NearestAirports(r.Context(), point, limit)
	switch {
	case errors.Is(err, aviation.ErrNoAirport):
		airports = nil
	case err != nil:
		h.logger.Error().Err(err).Stringer("point", point).Msg("airport lookup failed")
		response.ServiceUnavailable(w, r, "airport lookup is unavailable")
		return
	}

	out := models.AirportList{Items: make([]models.Airport, 0, len(airports))}
	for i := range airports {
		out.Items = append(out.Items, *toAirport(&airports[i]))
	}
	response.JSON(w, r, http.StatusOK, out)
}
