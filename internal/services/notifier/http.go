package notifier

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/NordCoder/Skywatch/internal/domain/notification"
)

const (
	PathNotifications = "/internal/v1/notifications"
	PathEvents        = "/internal/v1/events"

	tokenHeader  = "X-Internal-Token"
	maxBodyBytes = 64 << 10
)

type apiError struct {
	Error string `json:"error"`
}

type createdResponse struct {
	ID        string `json:"id"`
	Scheduled bool   `json:"scheduled"`
}

// Routes mounts the internal producer API. When token is set every request
// must carry it in X-Internal-Token.
func (h *Handler) Routes(mux *http.ServeMux, token string) {
	guard := func(next http.HandlerFunc) http.HandlerFunc {
		if token == "" {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			if subtle.ConstantTimeCompare([]byte(r.Header.Get(tokenHeader)), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, apiError{Error: "unauthorized"})
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("POST "+PathNotifications, guard(h.createNotification))
	mux.HandleFunc("POST "+PathEvents, guard(h.postEvent))
}

func (h *Handler) createNotification(w http.ResponseWriter, r *http.Request) {
	var in NotificationInput
	if !decode(w, r, &in) {
		return
	}
	if err := h.check(in); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	n := in.ToNotification(h.Clock.Now())
	if err := h.Publish(r.Context(), n); err != nil {
		h.fail(w, r, err)
		return
	}
	status := http.StatusCreated
	if n.Pending() {
		status = http.StatusAccepted
	}
	writeJSON(w, status, createdResponse{ID: n.ID, Scheduled: n.Pending()})
}

func (h *Handler) postEvent(w http.ResponseWriter, r *http.Request) {
	var ev Event
	if !decode(w, r, &ev) {
		return
	}
	if err := h.Handle(r.Context(), ev); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidEvent), errors.Is(err, notification.ErrInvalid), errors.Is(err, ErrExpired):
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
	default:
		h.Log.Error("producer request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal error"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "malformed body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
