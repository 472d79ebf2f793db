package api

import (
	"net/http"

	"github.com/okian/lootsolver/internal/domain/model"
	"github.com/okian/lootsolver/internal/domain/solver"
)

// SolveHandler handles stateless solve requests.
type SolveHandler struct {
	deps Dependencies
}

// NewSolveHandler creates a new solve handler.
func NewSolveHandler(deps Dependencies) *SolveHandler {
	return &SolveHandler{deps: deps}
}

type batchRequest struct {
	Snapshots []model.Snapshot `json:"snapshots"`
}

type batchResponse struct {
	Plans []solver.Plan `json:"plans"`
}

// HandleSolve handles POST /solve requests. The body is a snapshot.
func (h *SolveHandler) HandleSolve(w http.ResponseWriter, r *http.Request) {
	mode, err := conservative(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var snap model.Snapshot
	if err := decode(w, r, &snap); err != nil {
		writeError(w, r, err)
		return
	}
	plan, err := h.deps.Solve(r.Context(), snap, mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// HandleBatch handles POST /solve/batch requests. Plans are returned in the
// order of the posted snapshots.
func (h *SolveHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	mode, err := conservative(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req batchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Snapshots) == 0 {
		writeError(w, r, badRequest("snapshots must not be empty"))
		return
	}
	plans, err := h.deps.SolveBatch(r.Context(), req.Snapshots, mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Plans: plans})
}
