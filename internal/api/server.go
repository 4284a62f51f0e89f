// Package api exposes playback sessions over HTTP and websockets.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"trip-playback/internal/header"
	"trip-playback/internal/metrics"
	"trip-playback/internal/panel"
	"trip-playback/internal/render"
	"trip-playback/internal/sim"
)

type Server struct {
	mgr      *sim.Manager
	metrics  *metrics.Collector
	render   render.Options
	upgrader websocket.Upgrader
}

func NewServer(mgr *sim.Manager, m *metrics.Collector) *Server {
	return &Server{
		mgr:     mgr,
		metrics: m,
		render:  render.DefaultOptions(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Allow all origins for development
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/routes", s.handleRoutes)
	mux.HandleFunc("POST /api/sessions", s.handleCreate)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleView)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDelete)

	mux.HandleFunc("POST /api/sessions/{id}/start", s.command("start"))
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.command("reset"))
	mux.HandleFunc("PUT /api/sessions/{id}/speed", s.command("speed"))
	mux.HandleFunc("POST /api/sessions/{id}/stops/{stop}/select", s.command("select"))
	mux.HandleFunc("DELETE /api/sessions/{id}/selection", s.command("close"))
	mux.HandleFunc("DELETE /api/sessions/{id}/notice", s.command("dismiss"))

	mux.HandleFunc("GET /api/sessions/{id}/header", s.handleHeader)
	mux.HandleFunc("POST /api/sessions/{id}/header/drawer", s.command("drawer"))
	mux.HandleFunc("POST /api/sessions/{id}/header/account", s.command("account"))
	mux.HandleFunc("POST /api/sessions/{id}/header/account/{entry}", s.command("account_entry"))
	mux.HandleFunc("PUT /api/sessions/{id}/header/search", s.command("search"))

	mux.HandleFunc("GET /api/sessions/{id}/geojson", s.handleGeoJSON)
	mux.HandleFunc("GET /api/sessions/{id}/snapshot.png", s.handleSnapshot)
	mux.HandleFunc("GET /api/sessions/{id}/ws", s.handleWS)
	return mux
}

type createRequest struct {
	Route string `json:"route"`
}

// sessionResponse is the view of a freshly loaded session.
type sessionResponse struct {
	panel.View
	Header header.State `json:"header"`
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.mgr.Catalog().List())
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errors.Join(errBadRequest, err))
			return
		}
	}
	sess, err := s.mgr.Create(req.Route)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{View: sess.Panel.View(), Header: sess.Header.State()})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{View: sess.Panel.View(), Header: sess.Header.State()})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Delete(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHeader(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Header.State())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.PNG(&buf, sess.Panel.View(), s.render); err != nil {
		log.Printf("render snapshot for %s: %v", sess.ID, err)
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("write snapshot for %s: %v", sess.ID, err)
	}
}

// command builds a handler that decodes the optional body into a Command
// and applies action. The response is the action result, or the panel view
// when the action has none.
func (s *Server) command(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.session(w, r)
		if !ok {
			return
		}
		var cmd Command
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
				writeError(w, errors.Join(errBadRequest, err))
				return
			}
		}
		cmd.Action = action
		if stop := r.PathValue("stop"); stop != "" {
			cmd.Stop = stop
		}
		if entry := r.PathValue("entry"); entry != "" {
			cmd.Entry = entry
		}
		res, err := s.apply(sess, cmd)
		if err != nil {
			writeError(w, err)
			return
		}
		if res == nil {
			res = sess.Panel.View()
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*sim.Session, bool) {
	sess, err := s.mgr.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return sess, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sim.ErrNotFound), errors.Is(err, sim.ErrUnknownRoute), errors.Is(err, panel.ErrUnknownStop):
		return http.StatusNotFound
	case errors.Is(err, panel.ErrRunning):
		return http.StatusConflict
	case errors.Is(err, errBadRequest), errors.Is(err, panel.ErrInvalidSpeed), errors.Is(err, header.ErrUnknownEntry):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
