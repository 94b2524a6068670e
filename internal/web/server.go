// Package web serves the local status and command API of the show service.
package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"show-service/internal/logger"
	"show-service/internal/types"
)

// Controller is the part of the sequencer exposed over HTTP
type Controller interface {
	Snapshot() types.Snapshot
	RequestStart(delayMs int) error
	RequestStop()
	RequestPause()
	RequestRestart()
	SetEnabled(enabled bool)
	SetTesting(testing bool)
	SetTrajectoryOffset(seconds float64)
	SetLandingHeight(meters float64)
}

// ShowParams is the settable part of the show configuration
type ShowParams struct {
	Enabled       *bool    `json:"enabled,omitempty"`
	Testing       *bool    `json:"testing,omitempty"`
	TakeoffTime   *float64 `json:"takeoff_time,omitempty"`
	LandingHeight *float64 `json:"landing_height,omitempty"`
}

type Server struct {
	controller        Controller
	logger            *logger.Logger
	websocketInterval time.Duration

	router     *mux.Router
	wsUpgrader *websocket.Upgrader
	httpServer *http.Server

	// ends the websocket streams on shutdown
	ctx     context.Context
	cancel  context.CancelFunc
	streams sync.WaitGroup
}

func NewServer(controller Controller, listenAddr string, websocketInterval time.Duration, l *logger.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		ctx:               ctx,
		cancel:            cancel,
		controller:        controller,
		logger:            l,
		websocketInterval: websocketInterval,
		wsUpgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	s.router = mux.NewRouter()
	s.router.Handle("/state", s.logged(s.State, "state")).Methods("GET", "HEAD")
	s.router.Handle("/websocket", s.logged(s.Websocket, "ws-snapshot")).Methods("GET")
	s.router.Handle("/config", s.logged(s.Config, "config")).Methods("GET", "POST")
	s.router.Handle("/start", s.logged(s.Start, "start")).Methods("POST")
	s.router.Handle("/stop", s.logged(s.command(controller.RequestStop, "stop"), "stop")).Methods("POST")
	s.router.Handle("/pause", s.logged(s.command(controller.RequestPause, "pause"), "pause")).Methods("POST")
	s.router.Handle("/restart", s.logged(s.command(controller.RequestRestart, "restart"), "restart")).Methods("POST")

	s.httpServer = &http.Server{
		Handler:      s.router,
		Addr:         listenAddr,
		WriteTimeout: 4 * time.Second,
		ReadTimeout:  4 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.logger.Infof("Listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the listener, then closes the websocket streams, which the
// http server does not track once hijacked.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.streams.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the wrapped connection
func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (s *Server) logged(handler http.HandlerFunc, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler(rec, r)
		s.logger.Debugf("%s - %s %s (%d) from %s in %s",
			name, r.Method, r.RequestURI, rec.status, r.RemoteAddr, time.Since(t0))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// State encodes the current snapshot as json.
func (s *Server) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

// Start schedules the show; the optional delay query parameter is in
// milliseconds and may be negative to join a running show.
func (s *Server) Start(w http.ResponseWriter, r *http.Request) {
	delayMs := 0
	if v := r.URL.Query().Get("delay"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid delay %q", v), http.StatusBadRequest)
			return
		}
		delayMs = d
	}

	if err := s.controller.RequestStart(delayMs); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusAccepted, s.controller.Snapshot())
}

func (s *Server) command(request func(), name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Infof("%s requested over HTTP", name)
		request()
		writeJSON(w, http.StatusAccepted, s.controller.Snapshot())
	}
}

// Config GET: current show parameters
//        POST: sets the provided subset of ShowParams (json encoded)
func (s *Server) Config(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var params ShowParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			http.Error(w, "couldn't decode provided json", http.StatusUnprocessableEntity)
			return
		}
		if params.Enabled != nil {
			s.controller.SetEnabled(*params.Enabled)
		}
		if params.Testing != nil {
			s.controller.SetTesting(*params.Testing)
		}
		if params.TakeoffTime != nil {
			s.controller.SetTrajectoryOffset(*params.TakeoffTime)
		}
		if params.LandingHeight != nil {
			s.controller.SetLandingHeight(*params.LandingHeight)
		}
	}

	snap := s.controller.Snapshot()
	writeJSON(w, http.StatusOK, ShowParams{
		Enabled:       &snap.Enabled,
		Testing:       &snap.Testing,
		TakeoffTime:   &snap.TakeoffTime,
		LandingHeight: &snap.LandingHeight,
	})
}

// Websocket pushes a snapshot at the configured interval, or at the one
// given by the poll query parameter, until the client goes away or the
// server shuts down.
func (s *Server) Websocket(w http.ResponseWriter, r *http.Request) {
	interval := s.websocketInterval
	if v := r.URL.Query().Get("poll"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}

	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("Error subscribing to websocket: %v", err)
		return
	}
	s.logger.Debugf("Websocket subscription from %s (pollrate: %s)", conn.RemoteAddr(), interval)

	s.streams.Add(1)
	go func() {
		defer s.streams.Done()
		defer conn.Close()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := conn.WriteJSON(s.controller.Snapshot()); err != nil {
				s.logger.Debugf("Websocket lost connection to %s", conn.RemoteAddr())
				return
			}
			select {
			case <-s.ctx.Done():
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				return
			case <-ticker.C:
			}
		}
	}()
}
