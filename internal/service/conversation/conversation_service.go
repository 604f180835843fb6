package conversation

import (
	"architect/internal/apperr"
	"architect/internal/lock"
	"architect/internal/logger"
	"architect/internal/repository/db"
	"architect/internal/service/llm"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// saveTimeout bounds the write that follows a generation call
const saveTimeout = 10 * time.Second

// Conversation is the owner-facing view of a stored conversation
type Conversation struct {
	ID          int64
	OwnerID     int64
	Transcript  []db.Message
	Answers     map[string]any
	Phase       Phase
	LastUpdated time.Time
	CreatedAt   time.Time
}

// ConversationService owns transcripts and phase progression
type ConversationService struct {
	db           db.Database
	generator    llm.Generator
	locker       lock.Locker
	systemPrompt string
	now          func() time.Time
}

// NewConversationService creates a new ConversationService
func NewConversationService(database db.Database, generator llm.Generator, locker lock.Locker, systemPrompt string) *ConversationService {
	return &ConversationService{
		db:           database,
		generator:    generator,
		locker:       locker,
		systemPrompt: systemPrompt,
		now:          time.Now,
	}
}

// Create starts an empty conversation in the first phase
func (s *ConversationService) Create(ctx context.Context, ownerID int64) (int64, error) {
	conv, err := s.db.CreateConversation(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv.ID, nil
}

// Get returns a conversation owned by ownerID. Foreign conversations are
// reported as not found.
func (s *ConversationService) Get(ctx context.Context, id, ownerID int64) (*Conversation, error) {
	stored, err := s.load(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	return toConversation(stored)
}

// List returns the owner's conversations, most recently updated first. An
// unreachable store yields an empty list.
func (s *ConversationService) List(ctx context.Context, ownerID int64) ([]Conversation, error) {
	stored, err := s.db.GetConversationsByUser(ctx, ownerID)
	if err != nil {
		if errors.Is(err, apperr.ErrStorageUnavailable) {
			logger.Log.WithError(err).WithField("user_id", ownerID).Warn("Storage unavailable, returning empty conversation list")
			return []Conversation{}, nil
		}
		return nil, fmt.Errorf("failed to retrieve conversations: %w", err)
	}

	result := make([]Conversation, 0, len(stored))
	for i := range stored {
		conv, err := toConversation(&stored[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *conv)
	}
	return result, nil
}

// AppendAndRespond records one exchange. A failed generation is replaced by
// FallbackReply, so the transcript always grows by exactly two messages.
func (s *ConversationService) AppendAndRespond(ctx context.Context, id, ownerID int64, userText string) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return "", fmt.Errorf("message is empty: %w", apperr.ErrInvalidInput)
	}

	var reply string
	err := s.withLock(ctx, id, func() error {
		stored, err := s.load(ctx, id, ownerID)
		if err != nil {
			return err
		}
		phase, err := ParsePhase(stored.Phase)
		if err != nil {
			return fmt.Errorf("conversation %d: %w", id, err)
		}

		userAt := s.now()
		messages := buildMessages(s.systemPrompt, phase, stored.Data.Messages, userText)

		logger.Log.WithFields(logrus.Fields{
			"conversation_id": id,
			"phase":           int(phase),
			"message_count":   len(messages),
		}).Info("Generating assistant reply")

		reply, err = s.generator.Generate(ctx, llm.GenerationRequest{Messages: messages})
		if err != nil {
			logger.Log.WithError(err).WithField("conversation_id", id).Error("Generation failed, recording fallback reply")
			reply = FallbackReply
		}

		data := stored.Data
		data.Messages = append(data.Messages,
			db.Message{Role: db.RoleUser, Content: userText, Timestamp: userAt},
			db.Message{Role: db.RoleAssistant, Content: reply, Timestamp: s.now()},
		)

		// Once a reply exists it is saved even if the caller has gone away
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
		defer cancel()
		if err := s.db.UpdateConversation(saveCtx, id, db.ConversationUpdate{Data: &data}); err != nil {
			return fmt.Errorf("failed to save conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

// AdvancePhase moves to the next phase, staying put at the last one
func (s *ConversationService) AdvancePhase(ctx context.Context, id, ownerID int64) (Phase, error) {
	var next Phase
	err := s.withLock(ctx, id, func() error {
		stored, err := s.load(ctx, id, ownerID)
		if err != nil {
			return err
		}
		current, err := ParsePhase(stored.Phase)
		if err != nil {
			return fmt.Errorf("conversation %d: %w", id, err)
		}

		next = current.Next()
		value := int(next)
		if err := s.db.UpdateConversation(ctx, id, db.ConversationUpdate{Phase: &value}); err != nil {
			return fmt.Errorf("failed to save phase: %w", err)
		}

		logger.Log.WithFields(logrus.Fields{"conversation_id": id, "from": int(current), "to": value}).Info("Advanced phase")
		return nil
	})
	return next, err
}

// SetAnswer records one captured answer. Answers never feed back into prompts.
func (s *ConversationService) SetAnswer(ctx context.Context, id, ownerID int64, key string, value any) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("answer key is empty: %w", apperr.ErrInvalidInput)
	}

	return s.withLock(ctx, id, func() error {
		stored, err := s.load(ctx, id, ownerID)
		if err != nil {
			return err
		}

		data := stored.Data
		if data.Answers == nil {
			data.Answers = map[string]any{}
		}
		data.Answers[key] = value

		if err := s.db.UpdateConversation(ctx, id, db.ConversationUpdate{Data: &data}); err != nil {
			return fmt.Errorf("failed to save answer: %w", err)
		}
		return nil
	})
}

// Delete removes a conversation. Specifications synthesized from it remain.
func (s *ConversationService) Delete(ctx context.Context, id, ownerID int64) error {
	return s.withLock(ctx, id, func() error {
		if _, err := s.load(ctx, id, ownerID); err != nil {
			return err
		}
		if err := s.db.DeleteConversation(ctx, id); err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
		logger.Log.WithFields(logrus.Fields{"conversation_id": id, "user_id": ownerID}).Info("Deleted conversation")
		return nil
	})
}

func (s *ConversationService) load(ctx context.Context, id, ownerID int64) (*db.Conversation, error) {
	conv, err := s.db.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("conversation %d: %w", id, err)
	}
	if conv.UserID != ownerID {
		return nil, fmt.Errorf("conversation %d: %w", id, apperr.ErrNotFound)
	}
	return conv, nil
}

func (s *ConversationService) withLock(ctx context.Context, id int64, fn func() error) error {
	release, err := s.locker.Lock(ctx, lock.ConversationKey(id))
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func toConversation(stored *db.Conversation) (*Conversation, error) {
	phase, err := ParsePhase(stored.Phase)
	if err != nil {
		return nil, fmt.Errorf("conversation %d: %w", stored.ID, err)
	}
	return &Conversation{
		ID:          stored.ID,
		OwnerID:     stored.UserID,
		Transcript:  stored.Data.Messages,
		Answers:     stored.Data.Answers,
		Phase:       phase,
		LastUpdated: stored.LastUpdated,
		CreatedAt:   stored.CreatedAt,
	}, nil
}
