package api

import (
	"io"
	"net/http"

	"github.com/meur/tierdeck/internal/auth"
	"github.com/meur/tierdeck/internal/models"
	"github.com/meur/tierdeck/internal/storage"
)

// putResponse is the PUT /template and POST /tierlist response shape.
type putResponse struct {
	Status     string  `json:"status"`
	TemplateID *string `json:"templateID,omitempty"`
	TierlistID *string `json:"tierlistID,omitempty"`
}

func putFail(w http.ResponseWriter, status int) {
	respondJSON(w, status, putResponse{Status: "fail"})
}

// handleGetTemplate returns a template by ID. Soft-deleted templates behave
// as not-found for every caller; private templates are visible to their
// owner only.
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, s.limits.TemplateGetBurst, s.limits.TemplateGetSlow) {
		return
	}

	templateID := r.URL.Query().Get("templateID")
	if templateID == "" {
		respondError(w, http.StatusBadRequest, "Missing templateID")
		return
	}

	rec, err := s.store.GetTemplate(templateID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch template")
		return
	}
	if rec == nil || rec.Deleted || rec.Blocked {
		respondError(w, http.StatusNotFound, "Template not found")
		return
	}

	id := auth.IdentityFrom(r.Context())
	isOwner := id != nil && id.UID == rec.Owner

	if rec.IsPrivate && !isOwner {
		respondError(w, http.StatusForbidden, "Unauthorized")
		return
	}

	doc := withTemplateMeta(rec)
	respondJSON(w, http.StatusOK, models.TemplatePayload{Template: doc, IsOwner: isOwner})
}

// handlePutTemplate creates or updates a template. The server assigns an ID
// when the body has none. Ownership is fixed at creation: the stored owner
// is never reassigned, whatever the body claims.
func (s *Server) handlePutTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if !s.allow(w, r, s.limits.TemplatePut) {
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

	// Placements belong to tierlist snapshots; a stored template keeps its
	// row skeleton with every item in the reserve.
	template = template.MoveAllToReserve()

	isPrivate := true
	if template.IsPrivate != nil {
		isPrivate = *template.IsPrivate
	}
	template.IsPrivate = &isPrivate

	if template.TemplateID == nil || *template.TemplateID == "" {
		newID, err := s.store.UniqueID("templates")
		if err != nil {
			putFail(w, http.StatusInternalServerError)
			return
		}
		template.TemplateID = &newID
		template.Owner = &id.UID
		if err := s.store.CreateTemplate(&storage.Record{
			ID:        newID,
			Owner:     id.UID,
			IsPrivate: isPrivate,
			Doc:       template,
		}); err != nil {
			putFail(w, http.StatusInternalServerError)
			return
		}
		respondJSON(w, http.StatusCreated, putResponse{Status: "success", TemplateID: &newID})
		return
	}

	existing, err := s.store.GetTemplate(*template.TemplateID)
	if err != nil {
		putFail(w, http.StatusInternalServerError)
		return
	}
	if existing == nil {
		// Client-supplied ID with no stored record: store under that ID.
		template.Owner = &id.UID
		if err := s.store.CreateTemplate(&storage.Record{
			ID:        *template.TemplateID,
			Owner:     id.UID,
			IsPrivate: isPrivate,
			Doc:       template,
		}); err != nil {
			putFail(w, http.StatusInternalServerError)
			return
		}
		respondJSON(w, http.StatusCreated, putResponse{Status: "success", TemplateID: template.TemplateID})
		return
	}

	if existing.Owner != id.UID {
		putFail(w, http.StatusForbidden)
		return
	}
	if existing.Deleted {
		putFail(w, http.StatusGone)
		return
	}

	template.Owner = &existing.Owner
	if err := s.store.UpdateTemplate(existing.ID, template, isPrivate); err != nil {
		putFail(w, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, putResponse{Status: "success", TemplateID: template.TemplateID})
}

// handleDeleteTemplate soft-deletes a template: flag, timestamp and actor,
// never a removed record.
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if !s.allow(w, r, s.limits.DeleteTemplate) {
		return
	}

	templateID := r.URL.Query().Get("templateID")
	if templateID == "" {
		respondError(w, http.StatusBadRequest, "Missing templateID")
		return
	}

	rec, err := s.store.GetTemplate(templateID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch template")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "Template not found")
		return
	}
	if rec.Owner != id.UID {
		respondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	if err := s.store.SoftDeleteTemplate(templateID, id.UID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete template")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Template marked as deleted"})
}

// visibilityRequest is the changeTemplateVisibility / changeTierlistVisibility
// body.
type visibilityRequest struct {
	TemplateID string `json:"templateID,omitempty"`
	TierlistID string `json:"tierlistID,omitempty"`
	IsPrivate  *bool  `json:"isPrivate"`
}

// handleChangeTemplateVisibility flips a template's private flag. Owner
// only.
func (s *Server) handleChangeTemplateVisibility(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, s.limits.ChangeTemplateVisibility) {
		return
	}

	var req visibilityRequest
	if err := decodeJSON(r, &req); err != nil || req.TemplateID == "" || req.IsPrivate == nil {
		respondError(w, http.StatusBadRequest, "'templateID' and 'isPrivate' (boolean) are required")
		return
	}

	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	rec, err := s.store.GetTemplate(req.TemplateID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch template")
		return
	}
	if rec == nil || rec.Deleted {
		respondError(w, http.StatusNotFound, "Template not found")
		return
	}
	if rec.Owner != id.UID {
		respondError(w, http.StatusForbidden, "You do not own this template")
		return
	}

	if err := s.store.SetTemplateVisibility(req.TemplateID, *req.IsPrivate); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update visibility")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// withTemplateMeta returns the stored document with the record's id,
// visibility and owner stamped in, since the row is authoritative for those
// fields.
func withTemplateMeta(rec *storage.Record) *models.TierlistTemplate {
	doc := stampRecordMeta(rec)
	idCopy := rec.ID
	doc.TemplateID = &idCopy
	return doc
}

// withTierlistMeta is the tierlist flavor: the record id is the tierlist id,
// and the document's templateID keeps pointing at the source template.
func withTierlistMeta(rec *storage.Record) *models.TierlistTemplate {
	doc := stampRecordMeta(rec)
	idCopy := rec.ID
	doc.TierlistID = &idCopy
	return doc
}

func stampRecordMeta(rec *storage.Record) *models.TierlistTemplate {
	doc := rec.Doc.Clone()
	owner := rec.Owner
	doc.Owner = &owner
	isPrivate := rec.IsPrivate
	doc.IsPrivate = &isPrivate
	return doc
}
