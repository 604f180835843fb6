// Package memory is an in-process db.Database used for local development and
// tests. Every read returns a copy so callers cannot alias stored state.
package memory

import (
	"architect/internal/apperr"
	"architect/internal/repository/db"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var _ db.Database = (*Store)(nil)

// Store keeps every entity in maps guarded by one mutex
type Store struct {
	mu sync.RWMutex

	nextID        int64
	users         map[int64]db.User
	conversations map[int64]db.Conversation
	specs         map[int64]db.Specification
	templates     map[int64]db.Template

	now func() time.Time
}

// New returns an empty store
func New() *Store {
	return &Store{
		users:         make(map[int64]db.User),
		conversations: make(map[int64]db.Conversation),
		specs:         make(map[int64]db.Specification),
		templates:     make(map[int64]db.Template),
		now:           time.Now,
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Close is a no-op
func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(ctx context.Context, username, email, password string) (*db.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return nil, fmt.Errorf("user %q: %w", username, apperr.ErrConflict)
		}
	}

	user := db.User{ID: s.id(), Username: username, Email: email, PasswordHash: string(hash), CreatedAt: s.now()}
	s.users[user.ID] = user
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*db.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, apperr.ErrNotFound)
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*db.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, apperr.ErrNotFound)
	}
	return &u, nil
}

func (s *Store) CreateConversation(ctx context.Context, userID int64) (*db.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv := db.Conversation{
		ID:          s.id(),
		UserID:      userID,
		Data:        db.ConversationData{Messages: []db.Message{}, Answers: map[string]any{}},
		Phase:       1,
		LastUpdated: now,
		CreatedAt:   now,
	}
	s.conversations[conv.ID] = conv

	out, err := copyConversation(conv)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) GetConversation(ctx context.Context, id int64) (*db.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %d: %w", id, apperr.ErrNotFound)
	}
	out, err := copyConversation(conv)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) GetConversationsByUser(ctx context.Context, userID int64) ([]db.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []db.Conversation{}
	for _, conv := range s.conversations {
		if conv.UserID != userID {
			continue
		}
		c, err := copyConversation(conv)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastUpdated.Equal(out[j].LastUpdated) {
			return out[i].ID > out[j].ID
		}
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out, nil
}

func (s *Store) UpdateConversation(ctx context.Context, id int64, update db.ConversationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("conversation %d: %w", id, apperr.ErrNotFound)
	}
	if update.Data != nil {
		data, err := copyData(*update.Data)
		if err != nil {
			return err
		}
		conv.Data = data
	}
	if update.Phase != nil {
		if *update.Phase < 1 || *update.Phase > 5 {
			return fmt.Errorf("phase %d out of range: %w", *update.Phase, apperr.ErrInvalidInput)
		}
		conv.Phase = *update.Phase
	}
	conv.LastUpdated = s.now()
	s.conversations[id] = conv
	return nil
}

func (s *Store) DeleteConversation(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return fmt.Errorf("conversation %d: %w", id, apperr.ErrNotFound)
	}
	delete(s.conversations, id)
	return nil
}

func (s *Store) CreateSpecification(ctx context.Context, spec *db.Specification) (*db.Specification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := copySpecification(*spec)
	if err != nil {
		return nil, err
	}
	stored.ID = s.id()
	stored.CreatedAt = s.now()
	if stored.Version == 0 {
		stored.Version = 1
	}
	s.specs[stored.ID] = stored

	out, err := copySpecification(stored)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) GetSpecification(ctx context.Context, id int64) (*db.Specification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spec, ok := s.specs[id]
	if !ok {
		return nil, fmt.Errorf("specification %d: %w", id, apperr.ErrNotFound)
	}
	out, err := copySpecification(spec)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) GetSpecificationsByUser(ctx context.Context, userID int64) ([]db.Specification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []db.Specification{}
	for _, spec := range s.specs {
		if spec.UserID != userID {
			continue
		}
		c, err := copySpecification(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateSpecification(ctx context.Context, id int64, update db.SpecificationUpdate) (*db.Specification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec, ok := s.specs[id]
	if !ok {
		return nil, fmt.Errorf("specification %d: %w", id, apperr.ErrNotFound)
	}
	if update.Document != nil {
		doc, err := copyDocument(*update.Document)
		if err != nil {
			return nil, err
		}
		spec.Document = doc
	}
	if update.BuildPrompt != nil {
		spec.BuildPrompt = *update.BuildPrompt
	}
	spec.Version++
	s.specs[id] = spec

	out, err := copySpecification(spec)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) CreateTemplate(ctx context.Context, category string, data db.TemplateData) (*db.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpl := db.Template{ID: s.id(), Category: category, Data: copyTemplateData(data), CreatedAt: s.now()}
	s.templates[tmpl.ID] = tmpl

	out := tmpl
	out.Data = copyTemplateData(tmpl.Data)
	return &out, nil
}

func (s *Store) GetTemplates(ctx context.Context) ([]db.Template, error) {
	return s.filterTemplates(func(db.Template) bool { return true }), nil
}

func (s *Store) GetTemplatesByCategory(ctx context.Context, category string) ([]db.Template, error) {
	return s.filterTemplates(func(t db.Template) bool { return t.Category == category }), nil
}

func (s *Store) CountTemplates(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates), nil
}

func (s *Store) filterTemplates(keep func(db.Template) bool) []db.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []db.Template{}
	for _, t := range s.templates {
		if keep(t) {
			t.Data = copyTemplateData(t.Data)
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Deep copies go through JSON, which is also what the postgres store does
// with these payloads, so both stores hand back the same shapes.

func copyData(data db.ConversationData) (db.ConversationData, error) {
	var out db.ConversationData
	if err := roundTrip(data, &out); err != nil {
		return out, fmt.Errorf("error copying conversation data: %w", err)
	}
	if out.Messages == nil {
		out.Messages = []db.Message{}
	}
	if out.Answers == nil {
		out.Answers = map[string]any{}
	}
	return out, nil
}

func copyConversation(conv db.Conversation) (db.Conversation, error) {
	data, err := copyData(conv.Data)
	if err != nil {
		return conv, err
	}
	conv.Data = data
	return conv, nil
}

func copyDocument(doc db.Document) (db.Document, error) {
	var out db.Document
	if err := roundTrip(doc, &out); err != nil {
		return out, fmt.Errorf("error copying specification document: %w", err)
	}
	return out, nil
}

func copySpecification(spec db.Specification) (db.Specification, error) {
	doc, err := copyDocument(spec.Document)
	if err != nil {
		return spec, err
	}
	spec.Document = doc
	if spec.ConversationID != nil {
		id := *spec.ConversationID
		spec.ConversationID = &id
	}
	return spec, nil
}

func copyTemplateData(data db.TemplateData) db.TemplateData {
	data.Features = append([]string(nil), data.Features...)
	data.TechStack = append([]string(nil), data.TechStack...)
	data.Examples = append([]string(nil), data.Examples...)
	return data
}

func roundTrip(in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
