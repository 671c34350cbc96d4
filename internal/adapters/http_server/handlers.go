// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"hotel_rms/internal/app"
	"hotel_rms/internal/calendar"
	"hotel_rms/internal/domain"
	"hotel_rms/internal/resolver"
)

type CalendarQuerier interface {
	MonthGrid(ctx context.Context, propertyID string, year, month int, mode calendar.Mode) (app.MonthGrid, error)
}

type Handlers struct {
	Calendar CalendarQuerier
	Sessions *resolver.Registry
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

var validate = validator.New()

type calendarQuery struct {
	PropertyID string `validate:"required,max=64,printascii"`
	Year       int    `validate:"gte=1970,lte=2200"`
	Month      int    `validate:"gte=0,lte=11"`
	Mode       string `validate:"omitempty,oneof=regular msp competitorAverage"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1/session/property", func(r chi.Router) {
		r.Use(Session)
		r.Get("/", h.getSessionProperty)
		r.Put("/{id}", h.putSessionProperty)
		r.Delete("/", h.clearSessionProperty)
	})
	s.mux.Get("/v1/properties/{id}/calendar", h.getCalendar)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// ---- session property ----

func (h *Handlers) getSessionProperty(w http.ResponseWriter, r *http.Request) {
	st := h.Sessions.For(SessionID(r.Context())).Resolve(r.Context(), "")
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) putSessionProperty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validate.Var(id, "required,max=64,printascii"); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be 1-64 printable characters")
		return
	}
	st := h.Sessions.For(SessionID(r.Context())).Resolve(r.Context(), id)
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) clearSessionProperty(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.For(SessionID(r.Context())).SetCurrent(r.Context(), nil); err != nil {
		log.Error().Err(err).Msg("clear session property failed")
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "could not clear the selected property")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- calendar ----

func (h *Handlers) getCalendar(w http.ResponseWriter, r *http.Request) {
	q := calendarQuery{PropertyID: chi.URLParam(r, "id"), Mode: r.URL.Query().Get("mode")}

	now := time.Now().UTC()
	q.Year, q.Month = now.Year(), int(now.Month())-1
	if ys := r.URL.Query().Get("year"); ys != "" {
		y, err := strconv.Atoi(ys)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid year", "year must be an integer")
			return
		}
		q.Year = y
	}
	if ms := r.URL.Query().Get("month"); ms != "" {
		m, err := strconv.Atoi(ms)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid month", "month must be an integer between 0 and 11")
			return
		}
		q.Month = m
	}
	if err := validate.Struct(q); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid calendar query", err.Error())
		return
	}
	mode, _ := calendar.ParseMode(q.Mode)

	grid, err := h.Calendar.MonthGrid(r.Context(), q.PropertyID, q.Year, q.Month, mode)
	switch {
	case err == nil:
	case domain.IsNotFoundOrDenied(err):
		writeProblem(w, http.StatusNotFound, "Not Found", "property not found")
		return
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "pricing backend unavailable")
		return
	default:
		log.Error().Err(err).Str("property", q.PropertyID).Msg("calendar query failed")
		writeProblem(w, http.StatusBadGateway, "Bad Gateway", "pricing history could not be loaded")
		return
	}

	etag, body := calcETagAndBody(grid)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getCalendar body")
	}
}
