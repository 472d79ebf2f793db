package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/okian/lootsolver/internal/domain/model"
)

// TeamsHandler handles stored team requests.
type TeamsHandler struct {
	deps Dependencies
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps Dependencies) *TeamsHandler {
	return &TeamsHandler{deps: deps}
}

type putTeamResponse struct {
	TeamID  uuid.UUID `json:"team_id"`
	Version uint64    `json:"version"`
}

type teamResponse struct {
	Team    model.Team `json:"team"`
	Version uint64     `json:"version"`
}

// HandlePut handles PUT /teams/{team_id}. An empty body id takes the path id.
func (h *TeamsHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var team model.Team
	if err := decode(w, r, &team); err != nil {
		writeError(w, r, err)
		return
	}
	switch team.ID {
	case uuid.Nil:
		team.ID = id
	case id:
	default:
		writeError(w, r, badRequest("body id %s does not match path id %s", team.ID, id))
		return
	}
	version, err := h.deps.PutTeam(r.Context(), team)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, putTeamResponse{TeamID: id, Version: version})
}

// HandleGet handles GET /teams/{team_id}.
func (h *TeamsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	team, version, err := h.deps.Team(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teamResponse{Team: team, Version: version})
}

// HandlePlan handles GET /teams/{team_id}/plan. The body is the cached
// encoding of the plan, written as is.
func (h *TeamsHandler) HandlePlan(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	mode, err := conservative(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	raw, err := h.deps.Plan(r.Context(), id, mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

// HandleRequirements handles GET /teams/{team_id}/requirements.
func (h *TeamsHandler) HandleRequirements(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := h.deps.Requirements(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
