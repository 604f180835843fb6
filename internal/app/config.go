package app

import (
	"architect/internal/auth"
	"architect/internal/config"
	"architect/internal/lock"
	"architect/internal/repository/db"
	conversationService "architect/internal/service/conversation"
	"architect/internal/service/llm"
	specificationService "architect/internal/service/specification"
	templateService "architect/internal/service/template"
)

// Config holds all application dependencies and configuration
type Config struct {
	// Database interface for data persistence
	DB db.Database
	// Centralized application configuration
	AppConfig *config.AppConfig

	Auth           *auth.Service
	Conversations  *conversationService.ConversationService
	Specifications *specificationService.SpecificationService
	Templates      *templateService.TemplateService
}

// NewConfig wires the services on top of the given store, generator and lock
func NewConfig(database db.Database, generator llm.Generator, locker lock.Locker, appConfig *config.AppConfig) *Config {
	return &Config{
		DB:             database,
		AppConfig:      appConfig,
		Auth:           auth.NewService(database, appConfig.Auth),
		Conversations:  conversationService.NewConversationService(database, generator, locker, appConfig.Prompts.Interview),
		Specifications: specificationService.NewSpecificationService(database, generator, appConfig.Prompts.Synthesis),
		Templates:      templateService.NewTemplateService(database),
	}
}
