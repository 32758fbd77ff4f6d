package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chimera-backend/internal/models"
)

type AttachmentRepo struct {
	pool *pgxpool.Pool
}

func NewAttachmentRepo(pool *pgxpool.Pool) *AttachmentRepo {
	return &AttachmentRepo{pool: pool}
}

func (r *AttachmentRepo) Create(ctx context.Context, a *models.Attachment) error {
	a.ID = uuid.New()

	query := `INSERT INTO attachments (id, message_id, file_path, file_name, mime_type, file_size)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		a.ID, a.MessageID, a.FilePath, a.FileName, a.MimeType, a.FileSize,
	).Scan(&a.CreatedAt)
}

// ListByConversation returns every attachment owned by the conversation's
// messages, in message and upload order.
func (r *AttachmentRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*models.Attachment, error) {
	query := `SELECT a.id, a.message_id, a.file_path, a.file_name, a.mime_type, a.file_size, a.created_at
		FROM attachments a
		JOIN messages m ON m.id = a.message_id
		WHERE m.conversation_id = $1
		ORDER BY m.seq, a.seq`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAttachments(rows)
}

func scanAttachments(rows pgx.Rows) ([]*models.Attachment, error) {
	attachments := []*models.Attachment{}
	for rows.Next() {
		a := &models.Attachment{}
		if err := rows.Scan(&a.ID, &a.MessageID, &a.FilePath, &a.FileName, &a.MimeType, &a.FileSize, &a.CreatedAt); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}
