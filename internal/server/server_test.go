package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	drumgen "github.com/christianjuth/drum-music-generator"
	"github.com/christianjuth/drum-music-generator/internal/scheduler"
)

func holdSleep(ctx context.Context, d time.Duration) { <-ctx.Done() }

func newTestServer(t *testing.T) (*Server, *drumgen.Machine) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	m, err := drumgen.New(
		[]string{"/q, S/q, /q, S/q", "H/8, H/8, H/8, H/8, H/8, H/8, H/8, H/8"},
		[]string{"K/q, K/q, K/q, K/q"},
		drumgen.WithLogger(log),
		drumgen.WithSchedulerOptions(scheduler.WithSleep(holdSleep)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return New(m, WithLogger(log)), m
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w.Result()
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestKits(t *testing.T) {
	s, _ := newTestServer(t)
	resp := do(t, s, http.MethodGet, "/kits", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got kitsResponse
	decodeBody(t, resp, &got)
	assert.Equal(t, kitsResponse{Kits: []string{"909", "acoustic"}, Current: "acoustic"}, got)
}

func TestTransportLifecycle(t *testing.T) {
	s, m := newTestServer(t)

	var tr transportResponse
	decodeBody(t, do(t, s, http.MethodGet, "/transport", nil), &tr)
	assert.Equal(t, transportResponse{Running: false, Position: -1, BPM: 120, Kit: "acoustic"}, tr)

	resp := do(t, s, http.MethodPost, "/transport/start", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &tr)
	assert.True(t, tr.Running)
	assert.True(t, m.Running())

	decodeBody(t, do(t, s, http.MethodPut, "/transport/tempo", map[string]float64{"bpm": 500}), &tr)
	assert.Equal(t, float64(scheduler.MaxBPM), tr.BPM)

	decodeBody(t, do(t, s, http.MethodPost, "/transport/stop", nil), &tr)
	assert.False(t, tr.Running)
	assert.Equal(t, -1.0, tr.Position)
}

func TestTempoRejectsNonPositive(t *testing.T) {
	s, _ := newTestServer(t)
	resp := do(t, s, http.MethodPut, "/transport/tempo", map[string]float64{"bpm": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetKit(t *testing.T) {
	s, m := newTestServer(t)
	resp := do(t, s, http.MethodPut, "/kit", map[string]string{"kit": "909"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "909", m.Kit())

	resp = do(t, s, http.MethodPut, "/kit", map[string]string{"kit": "cowbell"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var e errorResponse
	decodeBody(t, resp, &e)
	assert.Contains(t, e.Error, "cowbell")
}

func TestScore(t *testing.T) {
	s, _ := newTestServer(t)
	resp := do(t, s, http.MethodGet, "/score?contrast=true", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var raw struct {
		Bars []struct {
			Clef  string `json:"clef"`
			Upper []struct {
				Keys      []string `json:"keys"`
				Duration  string   `json:"duration"`
				Highlight string   `json:"highlight"`
			} `json:"upper"`
		} `json:"bars"`
	}
	decodeBody(t, resp, &raw)
	require.Len(t, raw.Bars, 1)
	assert.Equal(t, "percussion", raw.Bars[0].Clef)
	assert.Equal(t, []string{"g/5/x2"}, raw.Bars[0].Upper[0].Keys)
	assert.Equal(t, "8", raw.Bars[0].Upper[0].Duration)
	assert.Equal(t, "dimmed", raw.Bars[0].Upper[0].Highlight)

	resp = do(t, s, http.MethodGet, "/score?contrast=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRenderIsStateless(t *testing.T) {
	s, m := newTestServer(t)
	body := map[string]interface{}{
		"upper":     []string{"S/h, S/h"},
		"lower":     []string{"K/q, K/q, K/q, K/q"},
		"highlight": 0.5,
	}
	resp := do(t, s, http.MethodPost, "/render", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var raw struct {
		Bars []struct {
			Upper []struct {
				Highlight string `json:"highlight"`
			} `json:"upper"`
		} `json:"bars"`
	}
	decodeBody(t, resp, &raw)
	require.Len(t, raw.Bars, 1)
	require.Len(t, raw.Bars[0].Upper, 2)
	assert.Equal(t, "normal", raw.Bars[0].Upper[0].Highlight)
	assert.Equal(t, "highlighted", raw.Bars[0].Upper[1].Highlight)

	upper, _ := m.Voices()
	assert.Len(t, upper, 2, "render must not change the machine")
}

func TestRenderParseError(t *testing.T) {
	s, _ := newTestServer(t)
	resp := do(t, s, http.MethodPost, "/render", map[string][]string{"upper": {"S/q, S"}, "lower": {"K/q"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var e errorResponse
	decodeBody(t, resp, &e)
	assert.Contains(t, e.Error, "missing '/' separator")
}

func TestSetVoices(t *testing.T) {
	s, m := newTestServer(t)
	resp := do(t, s, http.MethodPut, "/voices", voicesBody{Upper: []string{"S/h,S/h"}, Lower: []string{"K/h, K/h"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got voicesBody
	decodeBody(t, resp, &got)
	assert.Equal(t, voicesBody{Upper: []string{"S/h, S/h"}, Lower: []string{"K/h, K/h"}}, got)
	assert.False(t, m.Running(), "changing voices must not start playback")

	resp = do(t, s, http.MethodPut, "/voices", voicesBody{Upper: []string{"S/w"}, Lower: []string{"K/h"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, s, http.MethodPut, "/voices", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/transport/start", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t)
	resp := do(t, s, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
