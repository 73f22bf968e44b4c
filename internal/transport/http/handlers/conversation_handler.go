package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/service"
	"github.com/mivanic/parley/internal/transport/http/middleware"
	"github.com/mivanic/parley/pkg/validator"
)

type ConversationHandler struct {
	registry *service.RegistryService
	composer *service.ComposerService
}

func NewConversationHandler(registry *service.RegistryService, composer *service.ComposerService) *ConversationHandler {
	return &ConversationHandler{registry: registry, composer: composer}
}

// List returns the caller's conversations with resolved counterparts.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.registry.List(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR list conversations: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

// CreateDirect starts (or returns) the direct conversation with the
// given counterpart. 200 means an existing conversation was reused,
// 201 means a new one was created.
func (h *ConversationHandler) CreateDirect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		CounterpartID uuid.UUID `json:"counterpart_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if input.CounterpartID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "MISSING_COUNTERPART", "counterpart_id is required")
		return
	}

	conv, created, err := h.composer.CreateDirect(r.Context(), userID, input.CounterpartID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfConversation):
			writeError(w, http.StatusBadRequest, "SELF_CONVERSATION", "Cannot start a conversation with yourself")
		case errors.Is(err, service.ErrProfileNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Profile not found")
		default:
			log.Printf("ERROR create direct conversation: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, conv)
}

// CreateGroup starts a named group conversation.
func (h *ConversationHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		Name      string      `json:"name"`
		MemberIDs []uuid.UUID `json:"member_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateGroup(input.Name, len(input.MemberIDs)); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	conv, err := h.composer.CreateGroup(r.Context(), userID, input.Name, input.MemberIDs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGroupNameMissing), errors.Is(err, service.ErrNoGroupMembers):
			writeError(w, http.StatusBadRequest, "INVALID_GROUP", err.Error())
		default:
			log.Printf("ERROR create group conversation: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// BulkDelete removes the selected conversations and everything in them.
func (h *ConversationHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.registry.BulkDelete(r.Context(), userID, input.IDs); err != nil {
		switch {
		case errors.Is(err, service.ErrNothingSelected):
			writeError(w, http.StatusBadRequest, "NOTHING_SELECTED", "No conversations selected")
		case errors.Is(err, service.ErrNotMember):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a member of every selected conversation")
		default:
			log.Printf("ERROR bulk delete conversations: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
