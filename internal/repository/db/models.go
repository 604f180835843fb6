package db

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Message roles stored in a transcript
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User represents a user in the database
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// VerifyPassword checks if the provided password matches the user's password hash
func (u *User) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// Message is one turn of a conversation transcript
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationData is the JSON blob holding transcript and captured answers
type ConversationData struct {
	Messages []Message     `json:"messages"`
	Answers  map[string]any `json:"answers"`
}

// Conversation represents a conversation in the database
type Conversation struct {
	ID          int64
	UserID      int64
	Data        ConversationData
	Phase       int
	LastUpdated time.Time
	CreatedAt   time.Time
}

// ConversationUpdate carries the fields to change; nil fields are left as is
type ConversationUpdate struct {
	Data  *ConversationData
	Phase *int
}

// Overview is the strictly required part of a specification document
type Overview struct {
	AppName    string `json:"appName"`
	Tagline    string `json:"tagline"`
	TargetUser string `json:"targetUser"`
	CoreValue  string `json:"coreValue"`
}

// Document is a specification document: a typed overview plus every other
// top-level key kept verbatim.
type Document struct {
	Overview Overview
	Rest     map[string]json.RawMessage
}

// MarshalJSON flattens Overview and Rest into one object
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.Rest)+1)
	for k, v := range d.Rest {
		out[k] = v
	}
	overview, err := json.Marshal(d.Overview)
	if err != nil {
		return nil, err
	}
	out["overview"] = overview
	return json.Marshal(out)
}

// UnmarshalJSON splits "overview" from the remaining keys
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Overview = Overview{}
	if overview, ok := raw["overview"]; ok {
		if err := json.Unmarshal(overview, &d.Overview); err != nil {
			return fmt.Errorf("overview: %w", err)
		}
		delete(raw, "overview")
	}

	d.Rest = nil
	if len(raw) > 0 {
		d.Rest = raw
	}
	return nil
}

// Specification represents a generated app specification
type Specification struct {
	ID             int64
	UserID         int64
	ConversationID *int64
	AppName        string
	Document       Document
	BuildPrompt    string
	Version        int
	CreatedAt      time.Time
}

// SpecificationUpdate carries the fields to change; nil fields are left as is.
// Every update increments the version.
type SpecificationUpdate struct {
	Document    *Document
	BuildPrompt *string
}

// TemplateData is the payload of an app template
type TemplateData struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Features      []string `json:"features"`
	TechStack     []string `json:"techStack"`
	Examples      []string `json:"examples"`
	InitialPrompt string   `json:"initialPrompt,omitempty"`
}

// Template is a reusable starting point for a conversation
type Template struct {
	ID        int64
	Category  string
	Data      TemplateData
	CreatedAt time.Time
}
