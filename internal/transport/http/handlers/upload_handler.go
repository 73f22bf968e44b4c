package handlers

import (
	"errors"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/mivanic/parley/internal/domain"
	"github.com/mivanic/parley/internal/storage"
	"github.com/mivanic/parley/internal/transport/http/middleware"
)

type UploadHandler struct {
	store *storage.DiskStore
}

func NewUploadHandler(store *storage.DiskStore) *UploadHandler {
	return &UploadHandler{store: store}
}

// Upload accepts a multipart batch of files and returns one attachment
// descriptor per file. A failure aborts the rest of the batch; nothing
// uploaded so far is referenced by any message yet, so partial results
// are simply dropped.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_MULTIPART", "Expected multipart/form-data")
		return
	}

	var attachments []domain.Attachment
	for {
		part, err := reader.NextPart()
		if err != nil {
			break
		}
		if part.FormName() != "files" || part.FileName() == "" {
			continue
		}

		stored, err := h.store.Save(userID, part.FileName(), part)
		part.Close()
		if err != nil {
			if errors.Is(err, storage.ErrTooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", "File exceeds the upload size limit")
				return
			}
			log.Printf("ERROR upload: %v", err)
			writeError(w, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to upload files")
			return
		}

		mimeType := contentTypeFor(part.Header.Get("Content-Type"), part.FileName())
		att := domain.Attachment{
			Path: stored,
			URL:  h.store.PublicURL(stored),
			Type: mimeType,
			Name: part.FileName(),
			Kind: domain.KindFromMIME(mimeType),
		}
		if err := att.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ATTACHMENT", "Attachment missing required fields")
			return
		}
		attachments = append(attachments, att)
	}

	if len(attachments) == 0 {
		writeError(w, http.StatusBadRequest, "NO_FILES", "No files in upload")
		return
	}

	writeJSON(w, http.StatusCreated, attachments)
}

// Media serves a stored blob. The stored path doubles as the URL path.
func (h *UploadHandler) Media(w http.ResponseWriter, r *http.Request) {
	stored := r.PathValue("path")

	f, info, err := h.store.Open(stored)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidPath) {
			writeError(w, http.StatusBadRequest, "INVALID_PATH", "Invalid media path")
			return
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "File not found")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentTypeFor("", stored))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, filepath.Base(stored), info.ModTime(), f)
}

// contentTypeFor prefers the declared MIME type and falls back to the
// extension, then to a generic binary type.
func contentTypeFor(declared, filename string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
