package api

import (
	"net/http"
	"strings"

	"github.com/okian/lootsolver/internal/domain/model"
)

// IdempotencyHeader carries the client key that makes loot submissions safe
// to retry.
const IdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKey = 128

// LootHandler handles loot history requests.
type LootHandler struct {
	deps Dependencies
}

// NewLootHandler creates a new loot handler.
func NewLootHandler(deps Dependencies) *LootHandler {
	return &LootHandler{deps: deps}
}

type recordLootRequest struct {
	Records   []model.LootRecord `json:"records"`
	ApplyGear bool               `json:"apply_gear"`
}

type lootResponse struct {
	Records []model.LootRecord `json:"records"`
}

type deleteLootRequest struct {
	IDs []string `json:"ids"`
}

type deleteLootResponse struct {
	Removed int    `json:"removed"`
	Version uint64 `json:"version"`
}

// HandleList handles GET /teams/{team_id}/loot.
func (h *LootHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := h.deps.Loot(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []model.LootRecord{}
	}
	writeJSON(w, http.StatusOK, lootResponse{Records: records})
}

// HandleRecord handles POST /teams/{team_id}/loot. A first submission
// answers 201; a retry with the same key answers 200 with the original
// records.
func (h *LootHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if len(key) > maxIdempotencyKey {
		writeError(w, r, badRequest("%s longer than %d bytes", IdempotencyHeader, maxIdempotencyKey))
		return
	}
	var req recordLootRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Records) == 0 {
		writeError(w, r, badRequest("records must not be empty"))
		return
	}
	receipt, err := h.deps.RecordLoot(r.Context(), id, key, req.Records, req.ApplyGear)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if receipt.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, receipt)
}

// HandleDelete handles DELETE /teams/{team_id}/loot.
func (h *LootHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := teamID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req deleteLootRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, r, badRequest("ids must not be empty"))
		return
	}
	removed, version, err := h.deps.DeleteLoot(r.Context(), id, req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteLootResponse{Removed: removed, Version: version})
}
