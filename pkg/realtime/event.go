package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Client event types (sent to the agent).
const (
	EventTypeConversationItemCreate = "conversation.item.create"
	EventTypeResponseCreate         = "response.create"
)

// Server event types (received from the agent).
const (
	EventTypeError                   = "error"
	EventTypeSessionCreated          = "session.created"
	EventTypeConversationItemCreated = "conversation.item.created"
	EventTypeResponseAudioDelta      = "response.audio.delta"
	EventTypeResponseAudioDone       = "response.audio.done"
	EventTypeSpeechStarted           = "input_audio_buffer.speech_started"
	EventTypeSpeechStopped           = "input_audio_buffer.speech_stopped"
)

// ServerEvent is a structured event from the agent's control channel.
// Unknown event types parse successfully and are ignored by the session.
type ServerEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`

	// Session carries the remote session ID (session.created).
	Session *SessionResource `json:"session,omitempty"`

	// Item is the conversation item (conversation.item.created).
	Item *ConversationItem `json:"item,omitempty"`

	// Error describes a server-reported failure (error events).
	Error *EventError `json:"error,omitempty"`

	// Raw is the original JSON message.
	Raw []byte `json:"-"`
}

// SessionResource identifies the remote session.
type SessionResource struct {
	ID    string `json:"id"`
	Model string `json:"model,omitempty"`
}

// ConversationItem is one entry in the agent's conversation.
type ConversationItem struct {
	ID      string        `json:"id"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is one content fragment of a conversation item.
type ContentPart struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// Text returns the first non-empty text or transcript of the item.
func (i *ConversationItem) Text() string {
	for _, part := range i.Content {
		if part.Text != "" {
			return part.Text
		}
		if part.Transcript != "" {
			return part.Transcript
		}
	}
	return ""
}

// EventError is the error payload of an "error" server event.
type EventError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *EventError) String() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// parseEvent parses a raw control channel message.
func parseEvent(message []byte) (*ServerEvent, error) {
	var event ServerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return nil, fmt.Errorf("realtime: parse event: %w", err)
	}
	event.Raw = message
	return &event, nil
}

// generateEventID generates a unique client event ID.
func generateEventID() string {
	return "evt_" + uuid.New().String()[:12]
}

// textMessageEvent builds a conversation.item.create event for user text.
func textMessageEvent(text string) map[string]any {
	return map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeConversationItemCreate,
		"item": map[string]any{
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": text},
			},
		},
	}
}

// responseCreateEvent builds a response.create event.
func responseCreateEvent() map[string]any {
	return map[string]any{
		"event_id": generateEventID(),
		"type":     EventTypeResponseCreate,
	}
}
