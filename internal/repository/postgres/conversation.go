package postgres

import (
	"architect/internal/apperr"
	"architect/internal/logger"
	"architect/internal/repository/db"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

const conversationColumns = `id, user_id, conversation_data, phase, last_updated, created_at`

// CreateConversation creates a new conversation for a user in phase 1
func (p *PostgresDB) CreateConversation(ctx context.Context, userID int64) (*db.Conversation, error) {
	conv := db.Conversation{
		UserID: userID,
		Data:   db.ConversationData{Messages: []db.Message{}, Answers: map[string]any{}},
		Phase:  1,
	}

	data, err := json.Marshal(conv.Data)
	if err != nil {
		return nil, fmt.Errorf("error encoding conversation data: %w", err)
	}

	query := `
	INSERT INTO conversations (user_id, conversation_data, phase)
	VALUES ($1, $2, $3)
	RETURNING id, last_updated, created_at
	`

	// lib/pq sends []byte as bytea, so JSONB goes over the wire as text
	err = p.conn.QueryRowContext(ctx, query, userID, string(data), conv.Phase).Scan(&conv.ID, &conv.LastUpdated, &conv.CreatedAt)
	if err != nil {
		return nil, classify("error creating conversation", err)
	}

	logger.Log.WithFields(logrus.Fields{"conversation_id": conv.ID, "user_id": userID}).Info("Created new conversation")

	return &conv, nil
}

// GetConversation retrieves a specific conversation
func (p *PostgresDB) GetConversation(ctx context.Context, id int64) (*db.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	conv, err := scanConversation(p.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, classify("error retrieving conversation", err)
	}
	return conv, nil
}

// GetConversationsByUser retrieves all conversations for a user, most recently updated first
func (p *PostgresDB) GetConversationsByUser(ctx context.Context, userID int64) ([]db.Conversation, error) {
	query := `
	SELECT ` + conversationColumns + `
	FROM conversations
	WHERE user_id = $1
	ORDER BY last_updated DESC
	`

	rows, err := p.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, classify("error querying conversations", err)
	}
	defer rows.Close()

	conversations := []db.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, classify("error scanning conversation", err)
		}
		conversations = append(conversations, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("error iterating conversations", err)
	}

	return conversations, nil
}

// UpdateConversation writes the provided fields and refreshes last_updated
func (p *PostgresDB) UpdateConversation(ctx context.Context, id int64, update db.ConversationUpdate) error {
	sets := []string{"last_updated = CURRENT_TIMESTAMP"}
	var args []any

	if update.Data != nil {
		data, err := json.Marshal(update.Data)
		if err != nil {
			return fmt.Errorf("error encoding conversation data: %w", err)
		}
		args = append(args, string(data))
		sets = append(sets, fmt.Sprintf("conversation_data = $%d", len(args)))
	}
	if update.Phase != nil {
		args = append(args, *update.Phase)
		sets = append(sets, fmt.Sprintf("phase = $%d", len(args)))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE conversations SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	result, err := p.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return classify("error updating conversation", err)
	}
	if err := expectOneRow(result); err != nil {
		return fmt.Errorf("error updating conversation %d: %w", id, err)
	}

	logger.Log.WithField("conversation_id", id).Debug("Updated conversation")
	return nil
}

// DeleteConversation removes a conversation. Specifications keep their reference.
func (p *PostgresDB) DeleteConversation(ctx context.Context, id int64) error {
	result, err := p.conn.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return classify("error deleting conversation", err)
	}
	if err := expectOneRow(result); err != nil {
		return fmt.Errorf("error deleting conversation %d: %w", id, err)
	}

	logger.Log.WithField("conversation_id", id).Info("Deleted conversation")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*db.Conversation, error) {
	var conv db.Conversation
	var data []byte
	if err := row.Scan(&conv.ID, &conv.UserID, &data, &conv.Phase, &conv.LastUpdated, &conv.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &conv.Data); err != nil {
		return nil, fmt.Errorf("error decoding conversation data: %w", err)
	}
	if conv.Data.Messages == nil {
		conv.Data.Messages = []db.Message{}
	}
	if conv.Data.Answers == nil {
		conv.Data.Answers = map[string]any{}
	}
	return &conv, nil
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func expectOneRow(result rowsAffecter) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
