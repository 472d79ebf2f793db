// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/lootsolver/internal/domain/gear"
	"github.com/okian/lootsolver/internal/domain/model"
	"github.com/okian/lootsolver/internal/domain/solver"
	"github.com/okian/lootsolver/pkg/logger"
)

const maxBodyBytes = 4 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Solve(ctx context.Context, snap model.Snapshot, conservative *bool) (solver.Plan, error)
	SolveBatch(ctx context.Context, snaps []model.Snapshot, conservative *bool) ([]solver.Plan, error)

	PutTeam(ctx context.Context, team model.Team) (uint64, error)
	Team(ctx context.Context, id uuid.UUID) (model.Team, uint64, error)
	Plan(ctx context.Context, id uuid.UUID, conservative *bool) (json.RawMessage, error)
	Requirements(ctx context.Context, id uuid.UUID) (solver.Report, error)

	RecordLoot(ctx context.Context, id uuid.UUID, key string, records []model.LootRecord, applyGear bool) (model.LootReceipt, error)
	DeleteLoot(ctx context.Context, id uuid.UUID, recordIDs []string) (int, uint64, error)
	Loot(ctx context.Context, id uuid.UUID) ([]model.LootRecord, error)

	Jobs() []gear.Job
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	solveHandler  *SolveHandler
	teamsHandler  *TeamsHandler
	lootHandler   *LootHandler
	jobsHandler   *JobsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		solveHandler:  NewSolveHandler(deps),
		teamsHandler:  NewTeamsHandler(deps),
		lootHandler:   NewLootHandler(deps),
		jobsHandler:   NewJobsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /jobs", MetricsMiddleware(s.jobsHandler.HandleJobs, "jobs"))

	mux.HandleFunc("POST /solve", MetricsMiddleware(s.solveHandler.HandleSolve, "solve"))
	mux.HandleFunc("POST /solve/batch", MetricsMiddleware(s.solveHandler.HandleBatch, "solve_batch"))

	mux.HandleFunc("PUT /teams/{team_id}", MetricsMiddleware(s.teamsHandler.HandlePut, "team_put"))
	mux.HandleFunc("GET /teams/{team_id}", MetricsMiddleware(s.teamsHandler.HandleGet, "team_get"))
	mux.HandleFunc("GET /teams/{team_id}/plan", MetricsMiddleware(s.teamsHandler.HandlePlan, "team_plan"))
	mux.HandleFunc("GET /teams/{team_id}/requirements", MetricsMiddleware(s.teamsHandler.HandleRequirements, "team_requirements"))

	mux.HandleFunc("GET /teams/{team_id}/loot", MetricsMiddleware(s.lootHandler.HandleList, "loot_list"))
	mux.HandleFunc("POST /teams/{team_id}/loot", MetricsMiddleware(s.lootHandler.HandleRecord, "loot_record"))
	mux.HandleFunc("DELETE /teams/{team_id}/loot", MetricsMiddleware(s.lootHandler.HandleDelete, "loot_delete"))
}

func log() logger.Logger {
	return logger.Current().Named("api")
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError answers with the status matching err. Server errors are logged
// and their message is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log().Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("method", r.Method),
			logger.Error(err),
		)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// teamID parses the {team_id} path value.
func teamID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("team_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, badRequest("team_id %q is not a UUID", raw)
	}
	return id, nil
}

// conservative parses the optional ?conservative= query flag.
func conservative(r *http.Request) (*bool, error) {
	raw := r.URL.Query().Get("conservative")
	if raw == "" {
		return nil, nil //nolint:nilnil // absent flag means the configured default
	}
	on, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, badRequest("conservative must be a boolean, got %q", raw)
	}
	return &on, nil
}
