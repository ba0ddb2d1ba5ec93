// Package server exposes a drum machine over HTTP for browser front ends:
// transport control, kit and voice changes, and notation bars as JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	drumgen "github.com/christianjuth/drum-music-generator"
	"github.com/christianjuth/drum-music-generator/internal/kit"
	"github.com/christianjuth/drum-music-generator/internal/measure"
	"github.com/christianjuth/drum-music-generator/internal/notation"
	"github.com/christianjuth/drum-music-generator/internal/scheduler"
)

// Machine is the live drum machine the API controls.
type Machine interface {
	Start()
	Stop()
	Status() scheduler.Status
	SetTempo(bpm float64) float64
	Tempo() float64
	SetKit(name string) error
	Kit() string
	Kits() []string
	SetVoices(upper, lower []string) error
	Voices() (upper, lower []string)
	Render(contrast bool) []measure.Bar
}

type Option func(*Server)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithAllowedOrigins restricts CORS. The default allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

type Server struct {
	machine Machine
	log     logrus.FieldLogger
	origins []string
	handler http.Handler
}

func New(m Machine, opts ...Option) *Server {
	s := &Server{
		machine: m,
		log:     logrus.StandardLogger(),
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}

	router := mux.NewRouter().StrictSlash(true)
	router.Use(s.logRequests)
	router.HandleFunc("/kits", s.handleKits).Methods(http.MethodGet)
	router.HandleFunc("/score", s.handleScore).Methods(http.MethodGet)
	router.HandleFunc("/render", s.handleRender).Methods(http.MethodPost)
	router.HandleFunc("/transport", s.handleTransport).Methods(http.MethodGet)
	router.HandleFunc("/transport/start", s.handleStart).Methods(http.MethodPost)
	router.HandleFunc("/transport/stop", s.handleStop).Methods(http.MethodPost)
	router.HandleFunc("/transport/tempo", s.handleTempo).Methods(http.MethodPut)
	router.HandleFunc("/kit", s.handleKit).Methods(http.MethodPut)
	router.HandleFunc("/voices", s.handleVoices).Methods(http.MethodGet, http.MethodPut)

	s.handler = cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http api listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Debug("request")
		next.ServeHTTP(w, r)
	})
}

type transportResponse struct {
	Running  bool    `json:"running"`
	Position float64 `json:"position"`
	BPM      float64 `json:"bpm"`
	Kit      string  `json:"kit"`
}

type kitsResponse struct {
	Kits    []string `json:"kits"`
	Current string   `json:"current"`
}

type voicesBody struct {
	Upper []string `json:"upper"`
	Lower []string `json:"lower"`
}

type renderRequest struct {
	voicesBody
	Highlight *float64 `json:"highlight"`
	Contrast  bool     `json:"contrast"`
}

type scoreResponse struct {
	Bars   []measure.Bar    `json:"bars"`
	Status scheduler.Status `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) transport() transportResponse {
	st := s.machine.Status()
	return transportResponse{
		Running:  st.Running,
		Position: st.Position,
		BPM:      s.machine.Tempo(),
		Kit:      s.machine.Kit(),
	}
}

func (s *Server) handleKits(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, kitsResponse{Kits: s.machine.Kits(), Current: s.machine.Kit()})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	contrast := false
	if v := r.URL.Query().Get("contrast"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		contrast = b
	}
	s.writeJSON(w, http.StatusOK, scoreResponse{
		Bars:   s.machine.Render(contrast),
		Status: s.machine.Status(),
	})
}

// handleRender renders voices from the request body without touching the
// machine.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !s.decode(w, r, &req) {
		return
	}
	upper, err := notation.ParseAll(req.Upper)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	lower, err := notation.ParseAll(req.Lower)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	highlight := scheduler.Stopped
	if req.Highlight != nil {
		highlight = *req.Highlight
	}
	bars, err := drumgen.RenderBars(upper, lower, highlight, req.Contrast)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, scoreResponse{Bars: bars, Status: scheduler.Status{Position: highlight}})
}

func (s *Server) handleTransport(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.transport())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.machine.Start()
	s.writeJSON(w, http.StatusOK, s.transport())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.machine.Stop()
	s.writeJSON(w, http.StatusOK, s.transport())
}

func (s *Server) handleTempo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BPM float64 `json:"bpm"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.BPM <= 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("bpm must be positive"))
		return
	}
	s.machine.SetTempo(req.BPM)
	s.writeJSON(w, http.StatusOK, s.transport())
}

func (s *Server) handleKit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kit string `json:"kit"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.machine.SetKit(req.Kit); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, kit.ErrUnknownKit) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.transport())
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPut {
		var req voicesBody
		if !s.decode(w, r, &req) {
			return
		}
		if err := s.machine.SetVoices(req.Upper, req.Lower); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	upper, lower := s.machine.Voices()
	s.writeJSON(w, http.StatusOK, voicesBody{Upper: upper, Lower: lower})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
