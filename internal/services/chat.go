package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"chimera-backend/internal/models"
)

const titleMaxLen = 50

// Consumer-side views of the repositories and collaborators, so the
// orchestration logic is testable without a database or the Gemini API.

type conversationStore interface {
	Create(ctx context.Context, c *models.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	List(ctx context.Context) ([]*models.ConversationListItem, error)
	Touch(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type messageStore interface {
	Create(ctx context.Context, m *models.Message) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*models.Message, error)
}

type attachmentStore interface {
	Create(ctx context.Context, a *models.Attachment) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*models.Attachment, error)
}

type attachmentPipeline interface {
	StoreMany(uploads []Upload) ([]*StoredFile, error)
	Read(path string) ([]byte, error)
	Delete(path string)
}

type replyGenerator interface {
	SendMessage(ctx context.Context, text string, images []ImagePart) (string, error)
}

// ChatService ties conversation persistence, attachment storage and the
// Gemini invoker into the user-facing message operations.
type ChatService struct {
	conversations conversationStore
	messages      messageStore
	attachments   attachmentStore
	storage       attachmentPipeline
	gemini        replyGenerator
}

func NewChatService(
	conversations conversationStore,
	messages messageStore,
	attachments attachmentStore,
	storage attachmentPipeline,
	gemini replyGenerator,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		attachments:   attachments,
		storage:       storage,
		gemini:        gemini,
	}
}

// SendMessage handles one user turn: resolve the conversation, persist the
// user message and its attachments, call the model, persist the reply.
// The user message and attachments always commit before the provider call,
// so a model failure never loses the user's input -- the conversation stays
// valid and the caller can simply re-send.
func (s *ChatService) SendMessage(ctx context.Context, text string, conversationID *uuid.UUID, uploads []Upload) (*models.ChatResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, newValidationError("message", "Message text is required")
	}

	conversation, err := s.resolveConversation(ctx, text, conversationID)
	if err != nil {
		return nil, err
	}

	userMessage := &models.Message{
		ConversationID: conversation.ID,
		Role:           models.RoleUser,
		Content:        text,
		Attachments:    []*models.Attachment{},
	}
	if err := s.messages.Create(ctx, userMessage); err != nil {
		return nil, &InternalError{Message: "Failed to save user message", Err: err}
	}

	images, err := s.storeAttachments(ctx, userMessage, uploads)
	if err != nil {
		return nil, err
	}

	reply, err := s.gemini.SendMessage(ctx, text, images)
	if err != nil {
		// The user message is already durable; only the reply is missing.
		return nil, err
	}

	assistantMessage := &models.Message{
		ConversationID: conversation.ID,
		Role:           models.RoleAssistant,
		Content:        reply,
		Attachments:    []*models.Attachment{},
	}
	if err := s.messages.Create(ctx, assistantMessage); err != nil {
		return nil, &InternalError{Message: "Failed to save assistant reply; re-send the message to retry", Err: err}
	}

	if err := s.conversations.Touch(ctx, conversation.ID); err != nil {
		log.Printf("Warning: failed to update conversation %s timestamp: %v", conversation.ID, err)
	}

	return &models.ChatResponse{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
		ConversationID:   conversation.ID,
	}, nil
}

func (s *ChatService) resolveConversation(ctx context.Context, text string, conversationID *uuid.UUID) (*models.Conversation, error) {
	if conversationID != nil {
		conversation, err := s.conversations.GetByID(ctx, *conversationID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &NotFoundError{Message: "Conversation not found"}
			}
			return nil, &InternalError{Message: "Failed to load conversation", Err: err}
		}
		return conversation, nil
	}

	title := truncateTitle(text)
	conversation := &models.Conversation{Title: &title}
	if err := s.conversations.Create(ctx, conversation); err != nil {
		return nil, &InternalError{Message: "Failed to create conversation", Err: err}
	}
	return conversation, nil
}

// storeAttachments runs the attachment pipeline, links the resulting records
// to the user message and returns the stored (possibly downsized) image
// bytes for the model call, in upload order.
func (s *ChatService) storeAttachments(ctx context.Context, userMessage *models.Message, uploads []Upload) ([]ImagePart, error) {
	if len(uploads) == 0 {
		return nil, nil
	}

	stored, err := s.storage.StoreMany(uploads)
	if err != nil {
		return nil, err
	}

	images := make([]ImagePart, 0, len(stored))
	for _, f := range stored {
		attachment := &models.Attachment{
			MessageID: userMessage.ID,
			FilePath:  f.FilePath,
			FileName:  f.FileName,
			MimeType:  f.MimeType,
			FileSize:  f.FileSize,
		}
		if err := s.attachments.Create(ctx, attachment); err != nil {
			return nil, &InternalError{Message: "Failed to save attachment record", Err: err}
		}
		userMessage.Attachments = append(userMessage.Attachments, attachment)

		data, err := s.storage.Read(f.FilePath)
		if err != nil {
			return nil, &StorageError{Message: "Failed to read stored attachment", Err: err}
		}
		images = append(images, ImagePart{MIMEType: f.MimeType, Data: data})
	}
	return images, nil
}

func (s *ChatService) ListConversations(ctx context.Context) ([]*models.ConversationListItem, error) {
	items, err := s.conversations.List(ctx)
	if err != nil {
		return nil, &InternalError{Message: "Failed to list conversations", Err: err}
	}
	return items, nil
}

// GetConversation returns the conversation with its full message and
// attachment tree, messages in creation order.
func (s *ChatService) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conversation, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Conversation not found"}
		}
		return nil, &InternalError{Message: "Failed to load conversation", Err: err}
	}

	messages, err := s.messages.ListByConversation(ctx, id)
	if err != nil {
		return nil, &InternalError{Message: "Failed to load messages", Err: err}
	}

	attachments, err := s.attachments.ListByConversation(ctx, id)
	if err != nil {
		return nil, &InternalError{Message: "Failed to load attachments", Err: err}
	}

	byMessage := make(map[uuid.UUID][]*models.Attachment)
	for _, a := range attachments {
		byMessage[a.MessageID] = append(byMessage[a.MessageID], a)
	}
	for _, m := range messages {
		if owned, ok := byMessage[m.ID]; ok {
			m.Attachments = owned
		}
	}

	conversation.Messages = messages
	return conversation, nil
}

// DeleteConversation removes the conversation rows and the backing files of
// every attachment. File deletion is best-effort: a file already gone is
// not an error.
func (s *ChatService) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	if _, err := s.conversations.GetByID(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Message: "Conversation not found"}
		}
		return &InternalError{Message: "Failed to load conversation", Err: err}
	}

	attachments, err := s.attachments.ListByConversation(ctx, id)
	if err != nil {
		return &InternalError{Message: "Failed to load attachments", Err: err}
	}
	for _, a := range attachments {
		s.storage.Delete(a.FilePath)
	}

	if err := s.conversations.Delete(ctx, id); err != nil {
		return &InternalError{Message: "Failed to delete conversation", Err: err}
	}
	return nil
}

// CreateConversation creates an empty conversation ahead of the first
// message.
func (s *ChatService) CreateConversation(ctx context.Context) (*models.Conversation, error) {
	title := "New Conversation"
	conversation := &models.Conversation{Title: &title, Messages: []*models.Message{}}
	if err := s.conversations.Create(ctx, conversation); err != nil {
		return nil, &InternalError{Message: "Failed to create conversation", Err: err}
	}
	return conversation, nil
}

// truncateTitle derives a conversation title from the first message text.
func truncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleMaxLen {
		return text
	}
	return string(runes[:titleMaxLen]) + "..."
}
