package db

import "context"

// Database is the persistence contract. It is owner-agnostic: callers check
// ownership before returning or mutating data. Missing rows yield
// apperr.ErrNotFound and unreachable storage apperr.ErrStorageUnavailable.
type Database interface {
	// Users
	CreateUser(ctx context.Context, username, email, password string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// Conversations
	CreateConversation(ctx context.Context, userID int64) (*Conversation, error)
	GetConversation(ctx context.Context, id int64) (*Conversation, error)
	GetConversationsByUser(ctx context.Context, userID int64) ([]Conversation, error)
	UpdateConversation(ctx context.Context, id int64, update ConversationUpdate) error
	DeleteConversation(ctx context.Context, id int64) error

	// Specifications
	CreateSpecification(ctx context.Context, spec *Specification) (*Specification, error)
	GetSpecification(ctx context.Context, id int64) (*Specification, error)
	GetSpecificationsByUser(ctx context.Context, userID int64) ([]Specification, error)
	UpdateSpecification(ctx context.Context, id int64, update SpecificationUpdate) (*Specification, error)

	// Templates
	CreateTemplate(ctx context.Context, category string, data TemplateData) (*Template, error)
	GetTemplates(ctx context.Context) ([]Template, error)
	GetTemplatesByCategory(ctx context.Context, category string) ([]Template, error)
	CountTemplates(ctx context.Context) (int, error)

	Close() error
}
