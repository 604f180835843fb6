package template

import (
	"architect/internal/apperr"
	"architect/internal/config"
	"architect/internal/logger"
	"architect/internal/repository/db"
	"context"
	"errors"
	"fmt"
	"strings"
)

// TemplateService exposes the global, read-only template catalog
type TemplateService struct {
	db db.Database
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(database db.Database) *TemplateService {
	return &TemplateService{db: database}
}

// List returns every template. An unreachable store yields an empty list.
func (s *TemplateService) List(ctx context.Context) ([]db.Template, error) {
	return degrade(s.db.GetTemplates(ctx))
}

// ListByCategory returns the templates in one category
func (s *TemplateService) ListByCategory(ctx context.Context, category string) ([]db.Template, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, fmt.Errorf("category is empty: %w", apperr.ErrInvalidInput)
	}
	return degrade(s.db.GetTemplatesByCategory(ctx, category))
}

// Seed inserts the catalog when the store holds no templates yet. It returns
// the number of templates inserted.
func (s *TemplateService) Seed(ctx context.Context, catalog *config.TemplateCatalog) (int, error) {
	existing, err := s.db.CountTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count templates: %w", err)
	}
	if existing > 0 {
		logger.Log.WithField("count", existing).Info("Templates already present, skipping seed")
		return 0, nil
	}

	for _, entry := range catalog.Templates {
		_, err := s.db.CreateTemplate(ctx, entry.Category, db.TemplateData{
			Name:          entry.Name,
			Description:   entry.Description,
			Features:      entry.Features,
			TechStack:     entry.TechStack,
			Examples:      entry.Examples,
			InitialPrompt: entry.InitialPrompt,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to seed template %q: %w", entry.Name, err)
		}
	}

	logger.Log.WithField("count", len(catalog.Templates)).Info("Seeded templates")
	return len(catalog.Templates), nil
}

func degrade(templates []db.Template, err error) ([]db.Template, error) {
	if err != nil {
		if errors.Is(err, apperr.ErrStorageUnavailable) {
			logger.Log.WithError(err).Warn("Storage unavailable, returning empty template list")
			return []db.Template{}, nil
		}
		return nil, fmt.Errorf("failed to retrieve templates: %w", err)
	}
	return templates, nil
}
