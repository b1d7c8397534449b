package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/starminder/internal/model"
	"github.com/sakif/starminder/internal/service"
)

// ReminderHandler serves reminders and the staging queue behind them.
// Every route is scoped to the authenticated user.
type ReminderHandler struct {
	reminders *service.ReminderService
	staging   *service.StagingService
	size      int // stars per promoted reminder when the request doesn't say
	logger    *slog.Logger
}

func NewReminderHandler(reminders *service.ReminderService, staging *service.StagingService, size int, logger *slog.Logger) *ReminderHandler {
	return &ReminderHandler{reminders: reminders, staging: staging, size: size, logger: logger}
}

// HandleList returns the user's reminders, newest first, each with its
// title and stars.
//
// HTTP: GET /api/reminders?limit=&offset=
func (h *ReminderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	reminders, err := h.reminders.List(r.Context(), userID, listOptions(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "listing reminders", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if reminders == nil {
		reminders = []service.ReminderDetail{}
	}
	writeJSON(w, http.StatusOK, reminders)
}

// HandleGet returns one reminder. Another user's reminder is 403.
//
// HTTP: GET /api/reminders/{id}
func (h *ReminderHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	reminder, err := h.reminders.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

// HandleListTempStars returns the staged stars, highest priority first.
//
// HTTP: GET /api/temp-stars?limit=&offset=
func (h *ReminderHandler) HandleListTempStars(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	temps, err := h.staging.List(r.Context(), userID, listOptions(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "listing temp stars", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if temps == nil {
		temps = []model.TempStar{}
	}
	writeJSON(w, http.StatusOK, temps)
}

// HandlePromote turns the top staged stars into a new reminder.
//
// HTTP: POST /api/temp-stars/promote?n=5
//
// n defaults to the configured reminder size. Nothing staged is 404.
func (h *ReminderHandler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	n := h.size
	if raw := r.URL.Query().Get("n"); raw != "" {
		var err error
		if n, err = intParam("n", raw); err != nil {
			writeError(w, err)
			return
		}
	}

	reminder, err := h.staging.Promote(r.Context(), userID, n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reminder)
}
