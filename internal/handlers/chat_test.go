package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"chimera-backend/internal/models"
	"chimera-backend/internal/services"
)

type fakeChatService struct {
	sendResp  *models.ChatResponse
	sendErr   error
	gotText   string
	gotConvID *uuid.UUID
	gotFiles  []string

	getErr    error
	deleteErr error
	deleted   *uuid.UUID
}

func (f *fakeChatService) SendMessage(ctx context.Context, text string, conversationID *uuid.UUID, uploads []services.Upload) (*models.ChatResponse, error) {
	f.gotText = text
	f.gotConvID = conversationID
	for _, up := range uploads {
		io.Copy(io.Discard, up.Data)
		f.gotFiles = append(f.gotFiles, up.FileName)
	}
	return f.sendResp, f.sendErr
}

func (f *fakeChatService) ListConversations(ctx context.Context) ([]*models.ConversationListItem, error) {
	return []*models.ConversationListItem{}, nil
}

func (f *fakeChatService) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &models.Conversation{ID: id, Messages: []*models.Message{}}, nil
}

func (f *fakeChatService) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	f.deleted = &id
	return f.deleteErr
}

func (f *fakeChatService) CreateConversation(ctx context.Context) (*models.Conversation, error) {
	title := "New Conversation"
	return &models.Conversation{ID: uuid.New(), Title: &title}, nil
}

func newTestRouter(svc *fakeChatService) http.Handler {
	h := NewChatHandler(svc, 1<<20)
	r := chi.NewRouter()
	r.Post("/api/v1/chat/message", h.SendMessage)
	r.Get("/api/v1/chat/conversations", h.ListConversations)
	r.Post("/api/v1/chat/conversations", h.CreateConversation)
	r.Get("/api/v1/chat/conversations/{id}", h.GetConversation)
	r.Delete("/api/v1/chat/conversations/{id}", h.DeleteConversation)
	return r
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile("images", name)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		fw.Write(data)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestSendMessageHandler_Success(t *testing.T) {
	convID := uuid.New()
	svc := &fakeChatService{
		sendResp: &models.ChatResponse{
			UserMessage:      &models.Message{ID: uuid.New(), Role: models.RoleUser, Content: "hi"},
			AssistantMessage: &models.Message{ID: uuid.New(), Role: models.RoleAssistant, Content: "hello"},
			ConversationID:   convID,
		},
	}
	router := newTestRouter(svc)

	body, contentType := multipartBody(t,
		map[string]string{"message": "hi", "conversation_id": convID.String()},
		map[string][]byte{"cat.png": []byte("png-bytes")},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/message", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.gotText != "hi" {
		t.Errorf("Expected message text forwarded, got %q", svc.gotText)
	}
	if svc.gotConvID == nil || *svc.gotConvID != convID {
		t.Errorf("Expected conversation ID forwarded, got %v", svc.gotConvID)
	}
	if len(svc.gotFiles) != 1 || svc.gotFiles[0] != "cat.png" {
		t.Errorf("Expected uploaded file forwarded, got %v", svc.gotFiles)
	}

	var resp models.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.AssistantMessage.Content != "hello" {
		t.Errorf("Expected assistant reply in response, got %q", resp.AssistantMessage.Content)
	}
}

func TestSendMessageHandler_MissingMessage(t *testing.T) {
	router := newTestRouter(&fakeChatService{})

	body, contentType := multipartBody(t, map[string]string{"message": "  "}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/message", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %q", resp.Error.Code)
	}
}

func TestSendMessageHandler_InvalidConversationID(t *testing.T) {
	router := newTestRouter(&fakeChatService{})

	body, contentType := multipartBody(t, map[string]string{"message": "hi", "conversation_id": "not-a-uuid"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/message", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
}

func TestSendMessageHandler_ProviderErrorMapped(t *testing.T) {
	svc := &fakeChatService{sendErr: &services.ProviderQuotaError{Message: "API quota exceeded"}}
	router := newTestRouter(svc)

	body, contentType := multipartBody(t, map[string]string{"message": "hi"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/message", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rr.Code)
	}
	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error.Code != "PROVIDER_QUOTA" {
		t.Errorf("Expected PROVIDER_QUOTA, got %q", resp.Error.Code)
	}
}

func TestGetConversationHandler_InvalidID(t *testing.T) {
	router := newTestRouter(&fakeChatService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/conversations/abc", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
}

func TestGetConversationHandler_NotFound(t *testing.T) {
	svc := &fakeChatService{getErr: &services.NotFoundError{Message: "Conversation not found"}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/conversations/"+uuid.New().String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rr.Code)
	}
	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error.Code != "NOT_FOUND" {
		t.Errorf("Expected NOT_FOUND, got %q", resp.Error.Code)
	}
}

func TestDeleteConversationHandler_Success(t *testing.T) {
	svc := &fakeChatService{}
	router := newTestRouter(svc)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/chat/conversations/"+id.String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if svc.deleted == nil || *svc.deleted != id {
		t.Errorf("Expected delete forwarded for %s, got %v", id, svc.deleted)
	}
}

func TestCreateConversationHandler(t *testing.T) {
	router := newTestRouter(&fakeChatService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/conversations", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var conversation models.Conversation
	if err := json.NewDecoder(rr.Body).Decode(&conversation); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if conversation.Title == nil || *conversation.Title != "New Conversation" {
		t.Errorf("Expected default title, got %v", conversation.Title)
	}
}
