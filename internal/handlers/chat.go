package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"chimera-backend/internal/models"
	"chimera-backend/internal/services"
)

type chatService interface {
	SendMessage(ctx context.Context, text string, conversationID *uuid.UUID, uploads []services.Upload) (*models.ChatResponse, error)
	ListConversations(ctx context.Context) ([]*models.ConversationListItem, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	DeleteConversation(ctx context.Context, id uuid.UUID) error
	CreateConversation(ctx context.Context) (*models.Conversation, error)
}

type ChatHandler struct {
	chat            chatService
	maxRequestBytes int64
}

func NewChatHandler(chat chatService, maxRequestBytes int64) *ChatHandler {
	return &ChatHandler{chat: chat, maxRequestBytes: maxRequestBytes}
}

// SendMessage accepts a multipart form: a "message" text field, an optional
// "conversation_id" field and any number of "images" file fields.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxRequestBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("PAYLOAD_TOO_LARGE", "Request body too large", r))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart form", r))
		return
	}

	text := r.FormValue("message")
	if strings.TrimSpace(text) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	var conversationID *uuid.UUID
	if raw := r.FormValue("conversation_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
			return
		}
		conversationID = &id
	}

	var uploads []services.Upload
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["images"] {
			file, err := header.Open()
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unreadable uploaded file", r))
				return
			}
			defer file.Close()
			uploads = append(uploads, services.Upload{
				FileName: header.Filename,
				MimeType: header.Header.Get("Content-Type"),
				Data:     file,
			})
		}
	}

	resp, err := h.chat.SendMessage(r.Context(), text, conversationID, uploads)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	items, err := h.chat.ListConversations(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
		return
	}

	conversation, err := h.chat.GetConversation(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
		return
	}

	if err := h.chat.DeleteConversation(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Conversation deleted"})
}

func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	conversation, err := h.chat.CreateConversation(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}
