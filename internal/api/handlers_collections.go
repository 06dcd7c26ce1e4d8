package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	respond "github.com/foliolab/folio-backend/internal/api/respond"
	"github.com/foliolab/folio-backend/internal/api/validate"
	"github.com/foliolab/folio-backend/internal/model"
	"github.com/foliolab/folio-backend/internal/services"
)

// CollectionHandler exposes the collection reconciler to the admin console.
type CollectionHandler struct {
	svc *services.Reconciler
}

func NewCollectionHandler(svc *services.Reconciler) *CollectionHandler {
	return &CollectionHandler{svc: svc}
}

// ListCollection GET /api/collections/{collection}
func (h *CollectionHandler) ListCollection(w http.ResponseWriter, r *http.Request) {
	collection := mux.Vars(r)["collection"]
	if err := validate.Collection(collection); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	out, err := h.svc.List(r.Context(), collection)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if out == nil {
		out = []*model.Record{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"records": out, "count": len(out)})
}

// SaveCollection PUT /api/collections/{collection}
//
// The body is the client's desired end-state for the whole collection. The
// response always carries the full merged list; per-record failures ride
// alongside so partial success is visible to the caller.
func (h *CollectionHandler) SaveCollection(w http.ResponseWriter, r *http.Request) {
	collection := mux.Vars(r)["collection"]
	if err := validate.Collection(collection); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	var req struct {
		Records []*model.Record `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	res := h.svc.Reconcile(r.Context(), collection, req.Records)
	if res.Errors == nil {
		res.Errors = []services.RecordError{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"merged": res.Merged,
		"errors": res.Errors,
		"count":  len(res.Merged),
	})
}

// DeleteRecord DELETE /api/collections/{collection}/records/{id}
func (h *CollectionHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collection := vars["collection"]
	if err := validate.Collection(collection); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	raw, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil || raw < 1 {
		respond.WriteBadRequest(w, "id must be a positive integer")
		return
	}
	if err := h.svc.DeleteByID(r.Context(), collection, model.IdentityFromValue(raw)); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
