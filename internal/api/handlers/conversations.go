package handlers

import (
	"architect/internal/logger"
	conversationService "architect/internal/service/conversation"
	"architect/pkg/validation"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type ConversationInfo struct {
	ID           int64     `json:"id"`
	Phase        int       `json:"phase"`
	PhaseTopic   string    `json:"phase_topic"`
	MessageCount int       `json:"message_count"`
	LastUpdated  time.Time `json:"last_updated"`
	CreatedAt    time.Time `json:"created_at"`
}

type ConversationsResponse struct {
	Conversations []ConversationInfo `json:"conversations"`
}

type MessageData struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ConversationResponse struct {
	ConversationInfo
	Messages []MessageData `json:"messages"`
	Answers  map[string]any `json:"answers"`
}

type CreateConversationResponse struct {
	ID    int64 `json:"id"`
	Phase int   `json:"phase"`
}

type SendMessageResponse struct {
	Reply string `json:"reply"`
}

type AdvancePhaseResponse struct {
	Phase      int    `json:"phase"`
	PhaseTopic string `json:"phase_topic"`
}

// CreateConversation starts a new conversation for the caller
func (h *Handlers) CreateConversation(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	id, err := h.config.Conversations.Create(r.Context(), owner)
	if err != nil {
		h.sendServiceError(w, r, err, "Error creating conversation")
		return
	}

	logger.Log.WithFields(logrus.Fields{"user_id": owner, "conversation_id": id}).Info("Conversation created")
	writeJSON(w, http.StatusCreated, CreateConversationResponse{ID: id, Phase: int(conversationService.FirstPhase)})
}

// ListConversations returns all conversations of the caller
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.config.Conversations.List(r.Context(), ownerID(r))
	if err != nil {
		h.sendServiceError(w, r, err, "Error retrieving conversations")
		return
	}

	infos := make([]ConversationInfo, 0, len(conversations))
	for i := range conversations {
		infos = append(infos, toConversationInfo(&conversations[i]))
	}
	writeJSON(w, http.StatusOK, ConversationsResponse{Conversations: infos})
}

// GetConversation returns one conversation with its transcript
func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	conv, err := h.config.Conversations.Get(r.Context(), id, ownerID(r))
	if err != nil {
		h.sendServiceError(w, r, err, "Error retrieving conversation")
		return
	}

	messages := make([]MessageData, 0, len(conv.Transcript))
	for _, msg := range conv.Transcript {
		messages = append(messages, MessageData{Role: msg.Role, Content: msg.Content, Timestamp: msg.Timestamp})
	}
	answers := conv.Answers
	if answers == nil {
		answers = map[string]any{}
	}

	writeJSON(w, http.StatusOK, ConversationResponse{
		ConversationInfo: toConversationInfo(conv),
		Messages:         messages,
		Answers:          answers,
	})
}

// DeleteConversation deletes a conversation of the caller
func (h *Handlers) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.config.Conversations.Delete(r.Context(), id, ownerID(r)); err != nil {
		h.sendServiceError(w, r, err, "Error deleting conversation")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "Conversation deleted successfully"})
}

// SendMessage appends the caller's message and returns the assistant reply
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req validation.SendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	logger.Log.WithFields(logrus.Fields{"conversation_id": id, "message_chars": len(req.Message)}).Debug("Processing message")

	reply, err := h.config.Conversations.AppendAndRespond(r.Context(), id, ownerID(r), req.Message)
	if err != nil {
		h.sendServiceError(w, r, err, "Error processing message")
		return
	}

	writeJSON(w, http.StatusOK, SendMessageResponse{Reply: reply})
}

// AdvancePhase moves the conversation to its next phase
func (h *Handlers) AdvancePhase(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	phase, err := h.config.Conversations.AdvancePhase(r.Context(), id, ownerID(r))
	if err != nil {
		h.sendServiceError(w, r, err, "Error advancing phase")
		return
	}

	writeJSON(w, http.StatusOK, AdvancePhaseResponse{Phase: int(phase), PhaseTopic: phase.Topic()})
}

// SetAnswer records one captured answer on the conversation
func (h *Handlers) SetAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req validation.SetAnswerRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.config.Conversations.SetAnswer(r.Context(), id, ownerID(r), req.Key, req.Value); err != nil {
		h.sendServiceError(w, r, err, "Error saving answer")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "Answer saved"})
}

func toConversationInfo(conv *conversationService.Conversation) ConversationInfo {
	return ConversationInfo{
		ID:           conv.ID,
		Phase:        int(conv.Phase),
		PhaseTopic:   conv.Phase.Topic(),
		MessageCount: len(conv.Transcript),
		LastUpdated:  conv.LastUpdated,
		CreatedAt:    conv.CreatedAt,
	}
}
