package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecap/wavecap/internal/api/handler"
	"github.com/wavecap/wavecap/internal/store"
	"github.com/wavecap/wavecap/pkg/models"
)

// fakeDirectory is an in-memory StationDirectory.
type fakeDirectory struct {
	stations map[uuid.UUID]*models.Station
	byURL    map[string]uuid.UUID
	err      error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		stations: make(map[uuid.UUID]*models.Station),
		byURL:    make(map[string]uuid.UUID),
	}
}

func (f *fakeDirectory) CreateStation(_ context.Context, station *models.Station) error {
	if f.err != nil {
		return f.err
	}
	if _, dup := f.byURL[station.StreamURL]; dup {
		return store.ErrDuplicateKey
	}
	f.stations[station.ID] = station
	f.byURL[station.StreamURL] = station.ID
	return nil
}

func (f *fakeDirectory) GetStation(_ context.Context, id uuid.UUID) (*models.Station, error) {
	s, ok := f.stations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeDirectory) UpdateStation(_ context.Context, station *models.Station) error {
	if _, ok := f.stations[station.ID]; !ok {
		return store.ErrNotFound
	}
	f.stations[station.ID] = station
	return nil
}

func (f *fakeDirectory) DeleteStation(_ context.Context, id uuid.UUID) error {
	if _, ok := f.stations[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.stations, id)
	return nil
}

func (f *fakeDirectory) ListStations(_ context.Context, filter store.StationFilter) ([]*models.Station, error) {
	var out []*models.Station
	for _, s := range f.stations {
		if filter.State != "" && s.State != filter.State {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// serve routes the request through chi so URL params resolve.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonReq(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return httptest.NewRequest(method, target, bytes.NewReader(body))
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["data"].(map[string]any)
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"].(map[string]any)
}

func TestCreateStation_Defaults(t *testing.T) {
	dir := newFakeDirectory()
	h := handler.NewCreateStationHandler(dir)

	req := jsonReq(t, "POST", "/api/v1/stations", map[string]any{
		"name":       "Radio Bandeirantes",
		"stream_url": "https://streams.example.com/band",
		"city":       "Sao Paulo",
		"state":      "SP",
	})
	w := serve("POST", "/api/v1/stations", h, req)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "Radio Bandeirantes", data["name"])
	assert.Equal(t, float64(128), data["bitrate_kbps"])
	assert.Equal(t, "mp3", data["output_format"])
	assert.Len(t, dir.stations, 1)
}

func TestCreateStation_MissingName(t *testing.T) {
	h := handler.NewCreateStationHandler(newFakeDirectory())

	req := jsonReq(t, "POST", "/api/v1/stations", map[string]any{
		"stream_url": "https://streams.example.com/band",
		"state":      "SP",
	})
	w := serve("POST", "/api/v1/stations", h, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeErr(t, w)["code"])
}

func TestCreateStation_BadState(t *testing.T) {
	h := handler.NewCreateStationHandler(newFakeDirectory())

	req := jsonReq(t, "POST", "/api/v1/stations", map[string]any{
		"name":       "Radio X",
		"stream_url": "https://streams.example.com/x",
		"state":      "Sao Paulo",
	})
	w := serve("POST", "/api/v1/stations", h, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateStation_BadOutputFormat(t *testing.T) {
	h := handler.NewCreateStationHandler(newFakeDirectory())

	req := jsonReq(t, "POST", "/api/v1/stations", map[string]any{
		"name":          "Radio X",
		"stream_url":    "https://streams.example.com/x",
		"state":         "SP",
		"output_format": "ogg",
	})
	w := serve("POST", "/api/v1/stations", h, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateStation_DuplicateStreamURL(t *testing.T) {
	dir := newFakeDirectory()
	h := handler.NewCreateStationHandler(dir)

	payload := map[string]any{
		"name":       "Radio X",
		"stream_url": "https://streams.example.com/x",
		"state":      "SP",
	}
	w := serve("POST", "/api/v1/stations", h, jsonReq(t, "POST", "/api/v1/stations", payload))
	require.Equal(t, http.StatusCreated, w.Code)

	w = serve("POST", "/api/v1/stations", h, jsonReq(t, "POST", "/api/v1/stations", payload))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_STATION", decodeErr(t, w)["code"])
}

func TestGetStation_NotFound(t *testing.T) {
	h := handler.NewGetStationHandler(newFakeDirectory())

	req := httptest.NewRequest("GET", "/api/v1/stations/"+uuid.NewString(), nil)
	w := serve("GET", "/api/v1/stations/{stationID}", h, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeErr(t, w)["code"])
}

func TestGetStation_InvalidID(t *testing.T) {
	h := handler.NewGetStationHandler(newFakeDirectory())

	req := httptest.NewRequest("GET", "/api/v1/stations/not-a-uuid", nil)
	w := serve("GET", "/api/v1/stations/{stationID}", h, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStation_RoundTrip(t *testing.T) {
	dir := newFakeDirectory()
	station := &models.Station{
		ID:           uuid.New(),
		Name:         "Radio Globo",
		StreamURL:    "https://streams.example.com/globo",
		State:        "RJ",
		BitrateKbps:  128,
		OutputFormat: models.OutputFormatMP3,
	}
	dir.stations[station.ID] = station

	h := handler.NewUpdateStationHandler(dir)
	req := jsonReq(t, "PUT", "/api/v1/stations/"+station.ID.String(), map[string]any{
		"name":         "Radio Globo AM",
		"stream_url":   "https://streams.example.com/globo-am",
		"state":        "RJ",
		"bitrate_kbps": 192,
	})
	w := serve("PUT", "/api/v1/stations/{stationID}", h, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Radio Globo AM", dir.stations[station.ID].Name)
	assert.Equal(t, 192, dir.stations[station.ID].BitrateKbps)
}

func TestDeleteStation(t *testing.T) {
	dir := newFakeDirectory()
	station := &models.Station{ID: uuid.New(), Name: "Radio X"}
	dir.stations[station.ID] = station

	h := handler.NewDeleteStationHandler(dir)
	req := httptest.NewRequest("DELETE", "/api/v1/stations/"+station.ID.String(), nil)
	w := serve("DELETE", "/api/v1/stations/{stationID}", h, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, dir.stations)
}

func TestListStations_StateFilter(t *testing.T) {
	dir := newFakeDirectory()
	for _, st := range []string{"SP", "SP", "RJ"} {
		id := uuid.New()
		dir.stations[id] = &models.Station{ID: id, State: st}
	}

	h := handler.NewListStationsHandler(dir)
	req := httptest.NewRequest("GET", "/api/v1/stations?state=SP", nil)
	w := serve("GET", "/api/v1/stations", h, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body["data"].([]any), 2)
}

func TestListStations_BadLimit(t *testing.T) {
	h := handler.NewListStationsHandler(newFakeDirectory())

	req := httptest.NewRequest("GET", "/api/v1/stations?limit=zero", nil)
	w := serve("GET", "/api/v1/stations", h, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
