package testutil

import (
	"architect/internal/config"
	"architect/internal/repository/db"
	"architect/internal/repository/memory"
	"architect/internal/service/llm"
	"context"
	"errors"
	"sync"
	"time"
)

// MockDatabase is a db.Database for tests. A non-nil Func field replaces the
// corresponding method; otherwise the call goes to Fallback, or fails with
// "not implemented" when Fallback is nil.
type MockDatabase struct {
	Fallback db.Database

	// User mocks
	CreateUserFunc        func(ctx context.Context, username, email, password string) (*db.User, error)
	GetUserByUsernameFunc func(ctx context.Context, username string) (*db.User, error)
	GetUserByIDFunc       func(ctx context.Context, id int64) (*db.User, error)

	// Conversation mocks
	CreateConversationFunc     func(ctx context.Context, userID int64) (*db.Conversation, error)
	GetConversationFunc        func(ctx context.Context, id int64) (*db.Conversation, error)
	GetConversationsByUserFunc func(ctx context.Context, userID int64) ([]db.Conversation, error)
	UpdateConversationFunc     func(ctx context.Context, id int64, update db.ConversationUpdate) error
	DeleteConversationFunc     func(ctx context.Context, id int64) error

	// Specification mocks
	CreateSpecificationFunc     func(ctx context.Context, spec *db.Specification) (*db.Specification, error)
	GetSpecificationFunc        func(ctx context.Context, id int64) (*db.Specification, error)
	GetSpecificationsByUserFunc func(ctx context.Context, userID int64) ([]db.Specification, error)
	UpdateSpecificationFunc     func(ctx context.Context, id int64, update db.SpecificationUpdate) (*db.Specification, error)

	// Template mocks
	CreateTemplateFunc         func(ctx context.Context, category string, data db.TemplateData) (*db.Template, error)
	GetTemplatesFunc           func(ctx context.Context) ([]db.Template, error)
	GetTemplatesByCategoryFunc func(ctx context.Context, category string) ([]db.Template, error)
	CountTemplatesFunc         func(ctx context.Context) (int, error)
}

var _ db.Database = (*MockDatabase)(nil)

var errNotImplemented = errors.New("not implemented")

// NewMockDatabase returns a MockDatabase backed by an empty in-memory store
func NewMockDatabase() *MockDatabase {
	return &MockDatabase{Fallback: memory.New()}
}

// User methods
func (m *MockDatabase) CreateUser(ctx context.Context, username, email, password string) (*db.User, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, username, email, password)
	}
	if m.Fallback != nil {
		return m.Fallback.CreateUser(ctx, username, email, password)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) GetUserByUsername(ctx context.Context, username string) (*db.User, error) {
	if m.GetUserByUsernameFunc != nil {
		return m.GetUserByUsernameFunc(ctx, username)
	}
	if m.Fallback != nil {
		return m.Fallback.GetUserByUsername(ctx, username)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) GetUserByID(ctx context.Context, id int64) (*db.User, error) {
	if m.GetUserByIDFunc != nil {
		return m.GetUserByIDFunc(ctx, id)
	}
	if m.Fallback != nil {
		return m.Fallback.GetUserByID(ctx, id)
	}
	return nil, errNotImplemented
}

// Conversation methods
func (m *MockDatabase) CreateConversation(ctx context.Context, userID int64) (*db.Conversation, error) {
	if m.CreateConversationFunc != nil {
		return m.CreateConversationFunc(ctx, userID)
	}
	if m.Fallback != nil {
		return m.Fallback.CreateConversation(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) GetConversation(ctx context.Context, id int64) (*db.Conversation, error) {
	if m.GetConversationFunc != nil {
		return m.GetConversationFunc(ctx, id)
	}
	if m.Fallback != nil {
		return m.Fallback.GetConversation(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) GetConversationsByUser(ctx context.Context, userID int64) ([]db.Conversation, error) {
	if m.GetConversationsByUserFunc != nil {
		return m.GetConversationsByUserFunc(ctx, userID)
	}
	if m.Fallback != nil {
		return m.Fallback.GetConversationsByUser(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) UpdateConversation(ctx context.Context, id int64, update db.ConversationUpdate) error {
	if m.UpdateConversationFunc != nil {
		return m.UpdateConversationFunc(ctx, id, update)
	}
	if m.Fallback != nil {
		return m.Fallback.UpdateConversation(ctx, id, update)
	}
	return errNotImplemented
}

func (m *MockDatabase) DeleteConversation(ctx context.Context, id int64) error {
	if m.DeleteConversationFunc != nil {
		return m.DeleteConversationFunc(ctx, id)
	}
	if m.Fallback != nil {
		return m.Fallback.DeleteConversation(ctx, id)
	}
	return errNotImplemented
}

// Specification methods
func (m *MockDatabase) CreateSpecification(ctx context.Context, spec *db.Specification) (*db.Specification, error) {
	if m.CreateSpecificationFunc != nil {
		return m.CreateSpecificationFunc(ctx, spec)
	}
	if m.Fallback != nil {
		return m.Fallback.CreateSpecification(ctx, spec)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) GetSpecification(ctx context.Context, id int64) (*db.Specification, error) {
	if m.GetSpecificationFunc != nil {
		return m.GetSpecificationFunc(ctx, id)
	}
	if m.Fallback != nil {
		return m.Fallback.GetSpecification(ctx, id)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) GetSpecificationsByUser(ctx context.Context, userID int64) ([]db.Specification, error) {
	if m.GetSpecificationsByUserFunc != nil {
		return m.GetSpecificationsByUserFunc(ctx, userID)
	}
	if m.Fallback != nil {
		return m.Fallback.GetSpecificationsByUser(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) UpdateSpecification(ctx context.Context, id int64, update db.SpecificationUpdate) (*db.Specification, error) {
	if m.UpdateSpecificationFunc != nil {
		return m.UpdateSpecificationFunc(ctx, id, update)
	}
	if m.Fallback != nil {
		return m.Fallback.UpdateSpecification(ctx, id, update)
	}
	return nil, errNotImplemented
}

// Template methods
func (m *MockDatabase) CreateTemplate(ctx context.Context, category string, data db.TemplateData) (*db.Template, error) {
	if m.CreateTemplateFunc != nil {
		return m.CreateTemplateFunc(ctx, category, data)
	}
	if m.Fallback != nil {
		return m.Fallback.CreateTemplate(ctx, category, data)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) GetTemplates(ctx context.Context) ([]db.Template, error) {
	if m.GetTemplatesFunc != nil {
		return m.GetTemplatesFunc(ctx)
	}
	if m.Fallback != nil {
		return m.Fallback.GetTemplates(ctx)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) GetTemplatesByCategory(ctx context.Context, category string) ([]db.Template, error) {
	if m.GetTemplatesByCategoryFunc != nil {
		return m.GetTemplatesByCategoryFunc(ctx, category)
	}
	if m.Fallback != nil {
		return m.Fallback.GetTemplatesByCategory(ctx, category)
	}
	return nil, errNotImplemented
}

func (m *MockDatabase) CountTemplates(ctx context.Context) (int, error) {
	if m.CountTemplatesFunc != nil {
		return m.CountTemplatesFunc(ctx)
	}
	if m.Fallback != nil {
		return m.Fallback.CountTemplates(ctx)
	}
	return 0, errNotImplemented
}

func (m *MockDatabase) Close() error { return nil }

// MockGenerator is an llm.Generator that records every request
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, req llm.GenerationRequest) (string, error)

	mu       sync.Mutex
	requests []llm.GenerationRequest
}

var _ llm.Generator = (*MockGenerator)(nil)

// NewStaticGenerator always replies with text
func NewStaticGenerator(text string) *MockGenerator {
	return &MockGenerator{GenerateFunc: func(context.Context, llm.GenerationRequest) (string, error) {
		return text, nil
	}}
}

// NewFailingGenerator always fails with err
func NewFailingGenerator(err error) *MockGenerator {
	return &MockGenerator{GenerateFunc: func(context.Context, llm.GenerationRequest) (string, error) {
		return "", err
	}}
}

func (m *MockGenerator) Name() string { return "mock" }

func (m *MockGenerator) Generate(ctx context.Context, req llm.GenerationRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return "", errNotImplemented
}

// Requests returns a copy of the recorded requests
func (m *MockGenerator) Requests() []llm.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.GenerationRequest(nil), m.requests...)
}

// LastRequest returns the most recent request, or a zero value
func (m *MockGenerator) LastRequest() llm.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return llm.GenerationRequest{}
	}
	return m.requests[len(m.requests)-1]
}

// NewMockConfig creates an AppConfig suitable for tests
func NewMockConfig() *config.AppConfig {
	return &config.AppConfig{
		Server:   config.ServerConfig{Port: "8080", ShutdownTimeout: 5 * time.Second},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		LLM: config.LLMConfig{
			Provider:    config.ProviderOpenRouter,
			Model:       "openai/gpt-4o-mini",
			Temperature: 0.7,
			Timeout:     5 * time.Second,
		},
		Redis: config.RedisConfig{LockWaitTimeout: 5 * time.Second},
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-key-with-at-least-32-chars",
			TokenExpiration: time.Hour,
		},
		Prompts: config.PromptsConfig{
			Interview: config.DefaultInterviewPrompt,
			Synthesis: config.DefaultSynthesisPrompt,
		},
	}
}
