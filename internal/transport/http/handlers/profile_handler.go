package handlers

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/domain"
	"github.com/mivanic/parley/internal/presence"
	"github.com/mivanic/parley/internal/service"
	"github.com/mivanic/parley/internal/transport/http/middleware"
)

type ProfileHandler struct {
	directory *service.DirectoryService
	composer  *service.ComposerService
	presence  *presence.Tracker
}

func NewProfileHandler(directory *service.DirectoryService, composer *service.ComposerService, tracker *presence.Tracker) *ProfileHandler {
	return &ProfileHandler{directory: directory, composer: composer, presence: tracker}
}

// List returns every profile except the caller's, with live status.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	profiles, err := h.directory.ListAllExcept(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR list profiles: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	h.attachStatus(r, profiles)
	writeJSON(w, http.StatusOK, profiles)
}

// Candidates returns the composer's candidate pool: everyone except the
// caller and their existing direct-conversation counterparts.
func (h *ProfileHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	candidates, err := h.composer.ListCandidates(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR list candidates: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	h.attachStatus(r, candidates)
	writeJSON(w, http.StatusOK, candidates)
}

// Get resolves one profile id to its display projection.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid profile ID")
		return
	}

	summary, err := h.directory.Lookup(r.Context(), id)
	if err != nil {
		log.Printf("ERROR get profile: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Profile not found")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *ProfileHandler) attachStatus(r *http.Request, profiles []domain.Profile) {
	if h.presence == nil {
		return
	}
	for i := range profiles {
		profiles[i].Status = h.presence.Status(r.Context(), profiles[i].ID)
	}
}
