package api

import (
	"fmt"
	"net/http"
	"strings"
)

// handlePurgeUsers disables a batch of accounts and blocks everything they
// own. Normal authentication runs first; the admin claim is checked
// explicitly on top of it. Document blocking is one transaction per user.
func (s *Server) handlePurgeUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if !id.Admin {
		respondError(w, http.StatusForbidden, "Forbidden - Not an admin")
		return
	}

	var req struct {
		UIDs []string `json:"uids"`
	}
	if err := decodeJSON(r, &req); err != nil || len(req.UIDs) == 0 {
		respondError(w, http.StatusBadRequest, "Missing or invalid uids array")
		return
	}

	for _, uid := range req.UIDs {
		if err := s.store.DisableUser(uid); err != nil {
			respondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if err := s.store.BlockOwnerDocuments(uid); err != nil {
			respondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if err := s.blobs.BlockAll(uid); err != nil {
			respondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if s.bus != nil {
			s.bus.Publish("userPurged", uid)
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Blocked users: %s", strings.Join(req.UIDs, ", ")),
	})
}
