package api

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/meur/tierdeck/internal/models"
)

const maxImageSizeBytes = 4 << 20

// Aspect ratio bounds for uploaded images, matching the crop editor's
// constraints.
const (
	maxWidthToHeightRatio = 4.0 / 3.0
	maxHeightToWidthRatio = 2.5
)

func generateImageID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// handlePostImage accepts a multipart image upload, enforces the per-user
// cap, size and aspect-ratio limits, and stores the object plus its record.
func (s *Server) handlePostImage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if !s.allow(w, r, s.limits.ImagePost, s.limits.ImagePostDaily) {
		return
	}

	count, err := s.store.CountUserImages(id.UID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if count >= models.MaxUploadedImages {
		respondError(w, http.StatusForbidden,
			fmt.Sprintf("Upload limit reached (%d images)", models.MaxUploadedImages))
		return
	}

	if err := r.ParseMultipartForm(maxImageSizeBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No image uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSizeBytes+1))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if len(data) > maxImageSizeBytes {
		respondError(w, http.StatusBadRequest, "Image too large (max 4MB)")
		return
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		respondError(w, http.StatusBadRequest, "Unsupported file type")
		return
	}

	// Enforce aspect ratio when the format is decodable; webp uploads from
	// the crop UI already satisfy the bound.
	if cfg, _, derr := image.DecodeConfig(bytes.NewReader(data)); derr == nil && cfg.Height > 0 {
		ratio := float64(cfg.Width) / float64(cfg.Height)
		if ratio > maxWidthToHeightRatio || ratio < 1/maxHeightToWidthRatio {
			respondError(w, http.StatusBadRequest, "Invalid aspect ratio")
			return
		}
	}

	imageID := generateImageID()
	if err := s.blobs.Save(id.UID, imageID, data, mtype.String()); err != nil {
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if err := s.store.CreateImage(imageID, id.UID); err != nil {
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"imageId": imageID})
}

// handleGetImage serves one stored image. Blocked or missing records are
// indistinguishable from absent images.
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, s.limits.ImageGet) {
		return
	}

	imageID := chi.URLParam(r, "imageId")
	if imageID == "" {
		respondError(w, http.StatusBadRequest, "Missing image ID")
		return
	}

	rec, err := s.store.GetImage(imageID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if rec == nil || rec.Blocked {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		respondError(w, http.StatusNotFound, "Image not found")
		return
	}

	data, meta, err := s.blobs.Download(rec.UserID, imageID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Image not found in storage")
		return
	}

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=240, immutable")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", imageID+".webp"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleDeleteImages blocks a batch of the caller's images: the records flip
// in one transaction and the blob metadata is marked so the objects stop
// being served.
func (s *Server) handleDeleteImages(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if !s.allow(w, r, s.limits.ImageDelete) {
		return
	}

	var req struct {
		ImageIDs []string `json:"imageIds"`
	}
	if err := decodeJSON(r, &req); err != nil || len(req.ImageIDs) == 0 {
		respondError(w, http.StatusBadRequest, "Invalid imageIds array")
		return
	}

	// Authorize the whole batch before mutating anything.
	for _, imageID := range req.ImageIDs {
		rec, err := s.store.GetImage(imageID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		if rec == nil || rec.UserID != id.UID {
			respondError(w, http.StatusForbidden, "Unauthorized or image not found")
			return
		}
	}

	if err := s.store.BlockImages(req.ImageIDs); err != nil {
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	for _, imageID := range req.ImageIDs {
		if err := s.blobs.SetBlocked(id.UID, imageID, true); err != nil {
			respondError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleGetUserImages lists the caller's servable images as {imageId, url}.
func (s *Server) handleGetUserImages(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if !s.allow(w, r, s.limits.UserImages) {
		return
	}

	recs, err := s.store.ListUserImages(id.UID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	type userImage struct {
		ImageID string `json:"imageId"`
		URL     string `json:"url"`
	}
	out := make([]userImage, 0, len(recs))
	for _, rec := range recs {
		out = append(out, userImage{
			ImageID: rec.ID,
			URL:     fmt.Sprintf("%s/api/image/%s", s.siteURL, rec.ID),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// handleCountImages reports how many images the caller has stored and the
// cap.
func (s *Server) handleCountImages(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if !s.allow(w, r, s.limits.CountImages) {
		return
	}

	count, err := s.store.CountUserImages(id.UID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"imageCount": count,
		"maxLimit":   models.MaxUploadedImages,
	})
}
