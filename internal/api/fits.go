package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Reidentify/internal/runner"
	"github.com/MikeSquared-Agency/Reidentify/internal/store"
)

type FitsHandler struct {
	store  store.Store
	runner *runner.Runner
}

func NewFitsHandler(s store.Store, rn *runner.Runner) *FitsHandler {
	return &FitsHandler{store: s, runner: rn}
}

// Create queues a fit run. The body is a store.FitSpec.
func (h *FitsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var spec store.FitSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if spec.Source == "" {
		spec.Source = "api"
	}

	run, err := h.runner.Submit(r.Context(), spec)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

func (h *FitsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{Source: r.URL.Query().Get("source")}
	if s := r.URL.Query().Get("status"); s != "" {
		status := store.RunStatus(s)
		filter.Status = &status
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	runs, err := h.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *FitsHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *FitsHandler) Events(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}
	events, err := h.store.GetRunEvents(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// Cancel aborts a fit that is currently executing.
func (h *FitsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if run.Status != store.StatusRunning || !h.runner.Cancel(run.ID) {
		writeError(w, http.StatusConflict, "run is not executing")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling", "run_id": run.ID.String()})
}

func (h *FitsHandler) lookup(w http.ResponseWriter, r *http.Request) (*store.Run, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return nil, false
	}
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	return run, true
}
