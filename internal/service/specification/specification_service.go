package specification

import (
	"architect/internal/apperr"
	"architect/internal/logger"
	"architect/internal/repository/db"
	"architect/internal/service/llm"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// saveTimeout bounds the insert that follows a generation call. The insert
// does not observe caller cancellation.
const saveTimeout = 10 * time.Second

// Patch lists the fields to change on a specification; nil fields are kept
type Patch struct {
	Document    *db.Document
	BuildPrompt *string
}

// SynthesisResult is the parsed reply together with the row it produced
type SynthesisResult struct {
	Specification *db.Specification
	Output        *Output
}

// SpecificationService synthesizes, edits and exports specifications
type SpecificationService struct {
	db           db.Database
	generator    llm.Generator
	systemPrompt string
}

// NewSpecificationService creates a new SpecificationService
func NewSpecificationService(database db.Database, generator llm.Generator, systemPrompt string) *SpecificationService {
	return &SpecificationService{
		db:           database,
		generator:    generator,
		systemPrompt: systemPrompt,
	}
}

// Synthesize turns a conversation's transcript into a new specification row
// with version 1. Nothing is stored when generation or parsing fails.
func (s *SpecificationService) Synthesize(ctx context.Context, conversationID, ownerID int64) (*SynthesisResult, error) {
	conv, err := s.db.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, err)
	}
	if conv.UserID != ownerID {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, apperr.ErrNotFound)
	}

	transcript, err := json.Marshal(conv.Data.Messages)
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}
	schema, err := OutputSchema()
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"message_count":   len(conv.Data.Messages),
		"transcript_size": len(transcript),
	}).Info("Synthesizing specification")

	reply, err := s.generator.Generate(ctx, llm.GenerationRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: s.systemPrompt},
			{Role: llm.RoleUser, Content: string(transcript)},
		},
		Schema: &llm.OutputSchema{Name: SchemaName, Schema: schema, Strict: true},
	})
	if err != nil {
		if !errors.Is(err, apperr.ErrGenerationFailed) {
			err = fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, err)
		}
		return nil, fmt.Errorf("synthesize conversation %d: %w", conversationID, err)
	}

	out, err := ParseOutput(reply)
	if err != nil {
		logger.Log.WithError(err).WithField("conversation_id", conversationID).Warn("Synthesis reply rejected")
		return nil, err
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	stored, err := s.db.CreateSpecification(saveCtx, &db.Specification{
		UserID:         ownerID,
		ConversationID: &conversationID,
		AppName:        out.AppName,
		Document:       out.Document,
		BuildPrompt:    out.BuildPrompt,
		Version:        1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save specification: %w", err)
	}

	return &SynthesisResult{Specification: stored, Output: out}, nil
}

// Get returns a specification owned by ownerID
func (s *SpecificationService) Get(ctx context.Context, id, ownerID int64) (*db.Specification, error) {
	spec, err := s.db.GetSpecification(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("specification %d: %w", id, err)
	}
	if spec.UserID != ownerID {
		return nil, fmt.Errorf("specification %d: %w", id, apperr.ErrNotFound)
	}
	return spec, nil
}

// List returns the owner's specifications, newest first. An unreachable
// store yields an empty list.
func (s *SpecificationService) List(ctx context.Context, ownerID int64) ([]db.Specification, error) {
	specs, err := s.db.GetSpecificationsByUser(ctx, ownerID)
	if err != nil {
		if errors.Is(err, apperr.ErrStorageUnavailable) {
			logger.Log.WithError(err).WithField("user_id", ownerID).Warn("Storage unavailable, returning empty specification list")
			return []db.Specification{}, nil
		}
		return nil, fmt.Errorf("failed to retrieve specifications: %w", err)
	}
	return specs, nil
}

// Update applies patch and increments the version by one, even for an empty
// patch. The document is stored as given.
func (s *SpecificationService) Update(ctx context.Context, id, ownerID int64, patch Patch) (*db.Specification, error) {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return nil, err
	}

	spec, err := s.db.UpdateSpecification(ctx, id, db.SpecificationUpdate{
		Document:    patch.Document,
		BuildPrompt: patch.BuildPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update specification %d: %w", id, err)
	}
	return spec, nil
}

// Export renders the build prompt as a markdown file
func (s *SpecificationService) Export(ctx context.Context, id, ownerID int64) (*Export, error) {
	spec, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	export := renderExport(spec.AppName, spec.BuildPrompt)
	return &export, nil
}
