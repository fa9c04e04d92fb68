package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/cardscan/internal/domain"
	"github.com/ignite/cardscan/internal/pkg/httputil"
)

// editSelectionRequest is the body of PUT /api/cards.
type editSelectionRequest struct {
	IDs    []string          `json:"ids"`
	Fields domain.CardFields `json:"fields"`
}

// batchDeleteRequest is the body of POST /api/cards/delete.
type batchDeleteRequest struct {
	IDs []string `json:"ids"`
}

// HandleCreateCard stores a confirmed card.
//
//	POST /cards, POST /api/cards
func (h *Handlers) HandleCreateCard(w http.ResponseWriter, r *http.Request) {
	var fields domain.CardFields
	if !httputil.Decode(w, r, &fields) {
		return
	}
	card, err := h.cards.Create(r.Context(), fields)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, card)
}

// HandleListCards returns active cards matching ?search=. With ?page= the
// list is wrapped in a pagination envelope.
//
//	GET /api/cards
func (h *Handlers) HandleListCards(w http.ResponseWriter, r *http.Request) {
	list, err := h.cards.Search(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if r.URL.Query().Get("page") == "" {
		respondJSON(w, http.StatusOK, list)
		return
	}
	params := ParsePagination(r, 50, 500)
	respondJSON(w, http.StatusOK, NewPaginatedResponse(pageOf(list, params), params, int64(len(list))))
}

// HandleGetCard returns one card in any state.
//
//	GET /api/cards/{id}
func (h *Handlers) HandleGetCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

// HandleListDeleted returns deleted cards, most recently deleted first.
//
//	GET /api/cards/deleted, GET /api/deleted
func (h *Handlers) HandleListDeleted(w http.ResponseWriter, r *http.Request) {
	list, err := h.cards.ListDeleted(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// HandleUpdateCard replaces the fields of one active card.
//
//	PUT /api/cards/{id}
func (h *Handlers) HandleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var fields domain.CardFields
	if !httputil.Decode(w, r, &fields) {
		return
	}
	card, err := h.cards.Edit(r.Context(), []string{chi.URLParam(r, "id")}, fields)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

// HandleUpdateSelection edits the single card selected in the client's
// list view. Any other selection size is rejected.
//
//	PUT /api/cards
func (h *Handlers) HandleUpdateSelection(w http.ResponseWriter, r *http.Request) {
	var req editSelectionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	card, err := h.cards.Edit(r.Context(), req.IDs, req.Fields)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

// HandleDeleteCard soft-deletes one card.
//
//	DELETE /api/cards/{id}
func (h *Handlers) HandleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res := h.cards.SoftDelete(r.Context(), []string{id})
	for failedID, kind := range res.Failed {
		status, code := statusForKind(kind)
		if status >= 500 {
			respondSafeError(w, status, nil, "An internal error occurred")
			return
		}
		respondError(w, status, code, "card "+failedID+": "+string(kind))
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// HandleDeleteBatch soft-deletes every listed card independently and
// reports per-id outcomes. Partial failure still answers 200.
//
//	POST /api/cards/delete
func (h *Handlers) HandleDeleteBatch(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "validation_error", "ids must not be empty")
		return
	}
	respondJSON(w, http.StatusOK, h.cards.SoftDelete(r.Context(), req.IDs))
}

// HandleRestoreCard brings a deleted card back to the active list.
//
//	POST /api/cards/restore/{id}, POST /api/deleted/restore/{id}
func (h *Handlers) HandleRestoreCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.Restore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

// HandleDebugCount reports record counters.
//
//	GET /api/debug/count
func (h *Handlers) HandleDebugCount(w http.ResponseWriter, r *http.Request) {
	counts, err := h.cards.Counts(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"storage":      h.storageType,
		"total_docs":   counts.Total,
		"active_docs":  counts.Active,
		"deleted_docs": counts.Deleted,
	})
}
