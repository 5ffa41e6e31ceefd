package api

import (
	"io"
	"net/http"

	"github.com/meur/tierdeck/internal/auth"
	"github.com/meur/tierdeck/internal/models"
	"github.com/meur/tierdeck/internal/storage"
)

// handleCreateTierlist snapshots a template's row/reserve arrangement into
// an immutable tierlist. The source template must exist, not be
// soft-deleted, and be visible to the caller.
func (s *Server) handleCreateTierlist(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if !s.allow(w, r, s.limits.TierlistPut) {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		putFail(w, http.StatusBadRequest)
		return
	}
	template, verr := models.ParseTemplate(body)
	if verr != nil {
		putFail(w, http.StatusBadRequest)
		return
	}
	if template.TemplateID == nil || *template.TemplateID == "" {
		putFail(w, http.StatusBadRequest)
		return
	}
	if template.TierlistID != nil && *template.TierlistID != "" {
		// Snapshots are immutable; a pre-set ID means a re-save attempt.
		putFail(w, http.StatusBadRequest)
		return
	}

	source, err := s.store.GetTemplate(*template.TemplateID)
	if err != nil {
		putFail(w, http.StatusInternalServerError)
		return
	}
	if source == nil {
		putFail(w, http.StatusNotFound)
		return
	}
	if source.Deleted {
		putFail(w, http.StatusGone)
		return
	}
	if source.IsPrivate && source.Owner != id.UID {
		putFail(w, http.StatusForbidden)
		return
	}

	tierlistID, err := s.store.UniqueID("tierlists")
	if err != nil {
		putFail(w, http.StatusInternalServerError)
		return
	}
	template.TierlistID = &tierlistID
	template.Owner = &id.UID

	isPrivate := false
	if template.IsPrivate != nil {
		isPrivate = *template.IsPrivate
	}

	if err := s.store.CreateTierlist(&storage.Record{
		ID:        tierlistID,
		Owner:     id.UID,
		IsPrivate: isPrivate,
		Doc:       template,
	}); err != nil {
		putFail(w, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, putResponse{Status: "success", TierlistID: &tierlistID})
}

// handleGetTierlist returns a tierlist snapshot. Soft-deleted snapshots are
// not-found for everyone; private ones are owner-only.
func (s *Server) handleGetTierlist(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, s.limits.TierlistGetSlow, s.limits.TierlistGetBurst) {
		return
	}

	tierlistID := r.URL.Query().Get("tierlistID")
	if tierlistID == "" {
		respondError(w, http.StatusBadRequest, "Missing tierlistID")
		return
	}

	rec, err := s.store.GetTierlist(tierlistID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch tierlist")
		return
	}
	if rec == nil || rec.Deleted || rec.Blocked {
		respondError(w, http.StatusNotFound, "Tierlist not found")
		return
	}

	id := auth.IdentityFrom(r.Context())
	isOwner := id != nil && id.UID == rec.Owner
	if rec.IsPrivate && !isOwner {
		respondError(w, http.StatusForbidden, "Unauthorized")
		return
	}

	respondJSON(w, http.StatusOK, models.TemplatePayload{Template: withTierlistMeta(rec), IsOwner: isOwner})
}

// handleDeleteTierlist soft-deletes a tierlist. Owner only.
func (s *Server) handleDeleteTierlist(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if !s.allow(w, r, s.limits.DeleteTierlist) {
		return
	}

	tierlistID := r.URL.Query().Get("tierlistID")
	if tierlistID == "" {
		respondError(w, http.StatusBadRequest, "Missing tierlistID")
		return
	}

	rec, err := s.store.GetTierlist(tierlistID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch tierlist")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "Tierlist not found")
		return
	}
	if rec.Owner != id.UID {
		respondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	if err := s.store.SoftDeleteTierlist(tierlistID, id.UID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete tierlist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Tierlist deleted"})
}

// handleGetUserTierlists lists the caller's tierlists.
func (s *Server) handleGetUserTierlists(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if !s.allow(w, r, s.limits.TierlistGetSlow) {
		return
	}

	recs, err := s.store.ListTierlistsByOwner(id.UID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch tierlists")
		return
	}

	out := make([]*models.TierlistTemplate, 0, len(recs))
	for i := range recs {
		out = append(out, withTierlistMeta(&recs[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

// handleChangeTierlistVisibility flips a tierlist's private flag. Owner
// only; the snapshot itself stays immutable.
func (s *Server) handleChangeTierlistVisibility(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, s.limits.ChangeTierlistVisibility) {
		return
	}

	var req visibilityRequest
	if err := decodeJSON(r, &req); err != nil || req.TierlistID == "" || req.IsPrivate == nil {
		respondError(w, http.StatusBadRequest, "'tierlistID' and 'isPrivate' (boolean) are required")
		return
	}

	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	rec, err := s.store.GetTierlist(req.TierlistID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch tierlist")
		return
	}
	if rec == nil || rec.Deleted {
		respondError(w, http.StatusNotFound, "Tierlist not found")
		return
	}
	if rec.Owner != id.UID {
		respondError(w, http.StatusForbidden, "You do not own this tierlist")
		return
	}

	if err := s.store.SetTierlistVisibility(req.TierlistID, *req.IsPrivate); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update visibility")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
