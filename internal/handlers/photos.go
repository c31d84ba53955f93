package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/velocityfibre/fibrefield/internal/models"
)

// maxPhotoUploadBytes caps a single photo upload
const maxPhotoUploadBytes = 15 << 20

// attachPhoto stores an uploaded photo of the given type on a capture.
// Expects multipart form data with fields "type" and "photo".
func (r *Router) attachPhoto(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	req.Body = http.MaxBytesReader(w, req.Body, maxPhotoUploadBytes)
	if err := req.ParseMultipartForm(maxPhotoUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart payload")
		return
	}

	photoType := models.PhotoType(req.FormValue("type"))
	if photoType == "" {
		respondError(w, http.StatusBadRequest, "type form field is required")
		return
	}

	file, header, err := req.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, "photo form file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	photo, err := r.ops.AttachPhoto(req.Context(), id, photoType, file, header.Size, contentType)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, photo)
}

// photoCompletion reports which required photo types are still missing
func (r *Router) photoCompletion(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	completion, err := r.ops.Photos.Completion(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, completion)
}

// removePhoto deletes a photo and its stored blob
func (r *Router) removePhoto(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	if err := r.ops.RemovePhoto(req.Context(), vars["id"], vars["photoId"]); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Photo removed", "id": vars["photoId"]})
}
