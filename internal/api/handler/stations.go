package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wavecap/wavecap/internal/api/response"
	"github.com/wavecap/wavecap/internal/store"
	"github.com/wavecap/wavecap/pkg/models"
)

// StationDirectory defines the station catalog operations the handlers
// depend on.
type StationDirectory interface {
	CreateStation(ctx context.Context, station *models.Station) error
	GetStation(ctx context.Context, id uuid.UUID) (*models.Station, error)
	UpdateStation(ctx context.Context, station *models.Station) error
	DeleteStation(ctx context.Context, id uuid.UUID) error
	ListStations(ctx context.Context, filter store.StationFilter) ([]*models.Station, error)
}

type stationRequest struct {
	Name         string `json:"name"`
	StreamURL    string `json:"stream_url"`
	City         string `json:"city"`
	State        string `json:"state"`
	BitrateKbps  int    `json:"bitrate_kbps"`
	OutputFormat string `json:"output_format"`
	Favorite     bool   `json:"favorite"`
}

func (req *stationRequest) validate() (code, message string) {
	if req.Name == "" {
		return "INVALID_REQUEST", "name is required"
	}
	if req.StreamURL == "" {
		return "INVALID_REQUEST", "stream_url is required"
	}
	if len(req.State) != 2 {
		return "INVALID_REQUEST", "state must be a two-letter code"
	}
	switch req.OutputFormat {
	case "", models.OutputFormatMP3, models.OutputFormatFLAC:
	default:
		return "INVALID_REQUEST", "output_format must be mp3 or flac"
	}
	return "", ""
}

// NewCreateStationHandler returns an http.HandlerFunc for POST /api/v1/stations.
func NewCreateStationHandler(svc StationDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if code, msg := req.validate(); code != "" {
			response.Error(w, http.StatusBadRequest, code, msg, nil)
			return
		}

		station := &models.Station{
			ID:           uuid.New(),
			Name:         req.Name,
			StreamURL:    req.StreamURL,
			City:         req.City,
			State:        req.State,
			BitrateKbps:  req.BitrateKbps,
			OutputFormat: req.OutputFormat,
			Favorite:     req.Favorite,
		}
		if station.BitrateKbps <= 0 {
			station.BitrateKbps = 128
		}
		if station.OutputFormat == "" {
			station.OutputFormat = models.OutputFormatMP3
		}

		if err := svc.CreateStation(r.Context(), station); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "DUPLICATE_STATION",
					"A station with this stream URL already exists", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.Created(w, station)
	}
}

// NewListStationsHandler returns an http.HandlerFunc for GET /api/v1/stations.
func NewListStationsHandler(svc StationDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.StationFilter{
			State: r.URL.Query().Get("state"),
			City:  r.URL.Query().Get("city"),
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"limit must be a positive integer", nil)
				return
			}
			filter.Cap = limit
		}

		stations, err := svc.ListStations(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, stations)
	}
}

// NewGetStationHandler returns an http.HandlerFunc for GET /api/v1/stations/{stationID}.
func NewGetStationHandler(svc StationDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "stationID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid station ID", nil)
			return
		}

		station, err := svc.GetStation(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Station not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, station)
	}
}

// NewUpdateStationHandler returns an http.HandlerFunc for PUT /api/v1/stations/{stationID}.
func NewUpdateStationHandler(svc StationDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "stationID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid station ID", nil)
			return
		}

		var req stationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if code, msg := req.validate(); code != "" {
			response.Error(w, http.StatusBadRequest, code, msg, nil)
			return
		}

		station, err := svc.GetStation(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Station not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		station.Name = req.Name
		station.StreamURL = req.StreamURL
		station.City = req.City
		station.State = req.State
		station.Favorite = req.Favorite
		if req.BitrateKbps > 0 {
			station.BitrateKbps = req.BitrateKbps
		}
		if req.OutputFormat != "" {
			station.OutputFormat = req.OutputFormat
		}

		if err := svc.UpdateStation(r.Context(), station); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, station)
	}
}

// NewDeleteStationHandler returns an http.HandlerFunc for DELETE /api/v1/stations/{stationID}.
func NewDeleteStationHandler(svc StationDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "stationID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid station ID", nil)
			return
		}

		if err := svc.DeleteStation(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Station not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.NoContent(w)
	}
}
