// Package web exposes the calendar over a local HTTP API: read endpoints
// for the grid, per-day resolution and the transient alert, and mutation
// endpoints driving the modal controller and drag-move.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"localcal/internal/app"
	"localcal/internal/config"
	appLog "localcal/internal/log"
	"localcal/internal/model"
	"localcal/internal/remind"
	"localcal/internal/store"
	"localcal/internal/view"
)

// Server provides the HTTP API over the session's controller and store.
type Server struct {
	cfg    *config.Config
	loc    *time.Location
	ctrl   *app.Controller
	store  *store.Store
	alerts *remind.AlertBox
	router *mux.Router
}

// apiError is the JSON error body for bad requests.
type apiError struct {
	Message string   `json:"message,omitempty"`
	Err     []string `json:"err,omitempty"`
}

// NewServer constructs a Server.
func NewServer(cfg *config.Config, loc *time.Location, ctrl *app.Controller, st *store.Store, alerts *remind.AlertBox) *Server {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		cfg:    cfg,
		loc:    loc,
		ctrl:   ctrl,
		store:  st,
		alerts: alerts,
		router: mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleAddEvent).Methods(http.MethodPost)
	api.HandleFunc("/events", s.handleUpdateEvent).Methods(http.MethodPut)
	api.HandleFunc("/events", s.handleDeleteEvent).Methods(http.MethodDelete)
	api.HandleFunc("/events/move", s.handleMove).Methods(http.MethodPost)
	api.HandleFunc("/day/{date}", s.handleDay).Methods(http.MethodGet)
	api.HandleFunc("/grid", s.handleGrid).Methods(http.MethodGet)
	api.HandleFunc("/alert", s.handleAlert).Methods(http.MethodGet)

	api.HandleFunc("/view/toggle", s.handleToggleView).Methods(http.MethodPost)
	api.HandleFunc("/view/navigate", s.handleNavigate).Methods(http.MethodPost)

	api.HandleFunc("/modal", s.handleModalState).Methods(http.MethodGet)
	api.HandleFunc("/modal/add", s.handleModalAdd).Methods(http.MethodPost)
	api.HandleFunc("/modal/edit", s.handleModalEdit).Methods(http.MethodPost)
	api.HandleFunc("/modal/draft", s.handleModalDraft).Methods(http.MethodPost)
	api.HandleFunc("/modal/submit", s.handleModalSubmit).Methods(http.MethodPost)
	api.HandleFunc("/modal/update", s.handleModalUpdate).Methods(http.MethodPost)
	api.HandleFunc("/modal/delete", s.handleModalDelete).Methods(http.MethodPost)
	api.HandleFunc("/modal/dismiss", s.handleModalDismiss).Methods(http.MethodPost)
}

// Handler returns the routed handler, wrapped with basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays reachable without credentials.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="localcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Events())
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload", err)
		return
	}

	s.store.Add(ev)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "count": s.store.Len()})
}

// updateRequest pairs the identity of the event being replaced with its new
// contents.
type updateRequest struct {
	Key   model.Key   `json:"key"`
	Event model.Event `json:"event"`
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid update payload", err)
		return
	}

	s.store.Update(req.Key, req.Event)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// deleteRequest carries the identity of the event(s) to remove.
type deleteRequest struct {
	Key model.Key `json:"key"`
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid delete payload", err)
		return
	}

	s.store.Remove(req.Key)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "count": s.store.Len()})
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]

	day, err := model.ParseDate(date, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}

	writeJSON(w, http.StatusOK, s.ctrl.Day(day))
}

// gridCell is one rendered calendar cell. Placeholder cells leading the
// month grid have Empty set and nothing else.
type gridCell struct {
	Empty      bool           `json:"empty,omitempty"`
	Date       string         `json:"date,omitempty"`
	DayNumber  int            `json:"day_number,omitempty"`
	Today      bool           `json:"today,omitempty"`
	EventCount int            `json:"event_count"`
	Events     []dayEventChip `json:"events,omitempty"`
}

// dayEventChip is the per-event chip in a cell: title plus the hover
// detail of time and duration.
type dayEventChip struct {
	Title     string `json:"title"`
	Time      string `json:"time"`
	Duration  string `json:"duration"`
	Color     string `json:"color"`
	Repeat    string `json:"repeat,omitempty"`
	Static    bool   `json:"static,omitempty"`
	Completed bool   `json:"completed"`
}

// handleGrid renders the grid for the requested view and anchor. Both
// default to the session's state; overriding them per request leaves the
// session untouched, so only POST /api/view/* mutates it.
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	mode := s.ctrl.Mode()
	if v := r.URL.Query().Get("view"); v != "" {
		if v != string(view.ModeMonth) && v != string(view.ModeWeek) {
			writeError(w, http.StatusBadRequest, "invalid view", nil)
			return
		}
		mode = view.Mode(v)
	}

	anchor := s.ctrl.Anchor()
	if a := r.URL.Query().Get("anchor"); a != "" {
		parsed, err := model.ParseDate(a, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid anchor", err)
			return
		}
		anchor = parsed
	}

	now := time.Now().In(s.loc)
	today := now.Format(model.DateLayout)

	cells := view.Grid(mode, anchor)
	out := make([]gridCell, 0, len(cells))
	for _, c := range cells {
		if c == nil {
			out = append(out, gridCell{Empty: true})
			continue
		}

		events := s.ctrl.Day(*c)
		chips := make([]dayEventChip, 0, len(events))
		for _, de := range events {
			chips = append(chips, dayEventChip{
				Title:     de.Title,
				Time:      de.Time,
				Duration:  de.DisplayDuration(),
				Color:     de.DisplayColor(),
				Repeat:    string(de.Repeat),
				Static:    de.Static,
				Completed: de.Completed,
			})
		}

		date := c.Format(model.DateLayout)
		out = append(out, gridCell{
			Date:       date,
			DayNumber:  c.Day(),
			Today:      date == today,
			EventCount: len(chips),
			Events:     chips,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"view":   mode,
		"anchor": anchor.Format(model.DateLayout),
		"cells":  out,
	})
}

func (s *Server) handleAlert(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": s.alerts.Current()})
}

func (s *Server) handleToggleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"view": s.ctrl.ToggleView()})
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || (offset != 1 && offset != -1) {
		writeError(w, http.StatusBadRequest, "offset must be 1 or -1", err)
		return
	}

	anchor := s.ctrl.Navigate(offset)
	writeJSON(w, http.StatusOK, map[string]any{"anchor": anchor.Format(model.DateLayout)})
}

// moveRequest is the drag-move payload: the dragged event's identity and
// the drop target cell's date.
type moveRequest struct {
	Key  model.Key `json:"key"`
	Date string    `json:"date"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid move payload", err)
		return
	}

	s.ctrl.Drop(req.Key, req.Date)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) modalState() map[string]any {
	return map[string]any{
		"state": s.ctrl.Modal(),
		"draft": s.ctrl.Draft(),
	}
}

func (s *Server) handleModalState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.modalState())
}

func (s *Server) handleModalAdd(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.OpenAdd()
	writeJSON(w, http.StatusOK, s.modalState())
}

func (s *Server) handleModalEdit(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload", err)
		return
	}

	s.ctrl.OpenEdit(ev)
	writeJSON(w, http.StatusOK, s.modalState())
}

func (s *Server) handleModalDraft(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid draft payload", err)
		return
	}

	s.ctrl.SetDraft(ev)
	writeJSON(w, http.StatusOK, s.modalState())
}

func (s *Server) handleModalSubmit(w http.ResponseWriter, _ *http.Request) {
	submitted := s.ctrl.Submit()
	state := s.modalState()
	state["submitted"] = submitted
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleModalUpdate(w http.ResponseWriter, _ *http.Request) {
	updated := s.ctrl.Update()
	state := s.modalState()
	state["updated"] = updated
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleModalDelete(w http.ResponseWriter, _ *http.Request) {
	deleted := s.ctrl.Delete()
	state := s.modalState()
	state["deleted"] = deleted
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleModalDismiss(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.Dismiss()
	writeJSON(w, http.StatusOK, s.modalState())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to encode response", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := apiError{Message: message}
	if err != nil {
		body.Err = []string{err.Error()}
	}
	writeJSON(w, status, body)
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
