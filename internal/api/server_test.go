package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
)

type grassGenerator struct{}

func (grassGenerator) GenerateTiles(_ vec.Vec2, size int) []tile.Category {
	tiles := make([]tile.Category, size*size)
	for i := range tiles {
		tiles[i] = tile.Grass
	}
	return tiles
}

func newTestServer(t *testing.T) (*Server, *world.Streamer) {
	t.Helper()

	streamer := world.NewStreamer(world.StreamerConfig{
		ChunkSize:         2,
		UseCustomGridSize: true,
		CustomGridWidth:   2,
		CustomGridHeight:  2,
	}, grassGenerator{}, nil, nil, nil)
	streamer.SetLogger(logging.NewWriterLogger("world", &bytes.Buffer{}, logging.ERROR))
	require.NoError(t, streamer.GenerateInitial())

	srv := NewServer(Config{
		World:     streamer,
		Generator: GeneratorInfo{Method: "perlin", Seed: 42},
		Registry:  prometheus.NewRegistry(),
		Logger:    logging.NewWriterLogger("http", &bytes.Buffer{}, logging.ERROR),
	})
	return srv, streamer
}

func get(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, GenericResponse) {
	t.Helper()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp GenericResponse
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

func TestServer_Stats(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, resp := get(t, srv, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	gen := data["generator"].(map[string]interface{})
	assert.Equal(t, "perlin", gen["method"])
	assert.EqualValues(t, 42, gen["seed"])

	w := data["world"].(map[string]interface{})
	assert.EqualValues(t, 4, w["chunk_count"])
	assert.EqualValues(t, 4, w["generated"])
	assert.EqualValues(t, 4, w["stored"])
}

func TestServer_LoadedChunks(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, resp := get(t, srv, "/api/chunks")
	require.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]interface{})
	loaded := data["loaded"].([]interface{})
	assert.Len(t, loaded, 4)
	assert.Equal(t, map[string]interface{}{"x": -1.0, "y": -1.0}, loaded[0])
}

func TestServer_Chunk(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, resp := get(t, srv, "/api/chunks/-1/0")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]interface{})
	assert.EqualValues(t, 2, data["size"])
	assert.Equal(t, []interface{}{"Grass", "Grass", "Grass", "Grass"}, data["tiles"])

	rec, resp = get(t, srv, "/api/chunks/10/10")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = get(t, srv, "/api/chunks/a/0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t)

	get(t, srv, "/api/chunks/10/10")
	rec, _ := get(t, srv, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tileworld_api_http_request_errors_total")
}
