package types

import "encoding/json"

// Message represents either a User or Assistant message in a conversation.
type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"sessionID"`
	Role      string      `json:"role"` // "user" | "assistant"
	ParentID  string      `json:"parentID,omitempty"`
	Time      MessageTime `json:"time"`

	// User-specific fields
	Agent  string          `json:"agent,omitempty"`
	Model  *ModelRef       `json:"model,omitempty"`
	System *string         `json:"system,omitempty"`
	Tools  map[string]bool `json:"tools,omitempty"`

	// Assistant-specific fields
	ModelID    string        `json:"modelID,omitempty"`
	ProviderID string        `json:"providerID,omitempty"`
	Mode       string        `json:"mode,omitempty"`
	Finish     *string       `json:"finish,omitempty"`
	Cost       float64       `json:"cost,omitempty"`
	Tokens     *TokenUsage   `json:"tokens,omitempty"`
	Error      *MessageError `json:"error,omitempty"`

	// The "summary" JSON field is polymorphic (SDK compatible): a user
	// message carries a structured recap object, an assistant message
	// carries `true` when it is a compaction summary. Custom JSON below.
	Summary   *UserMessageSummary `json:"-"`
	IsSummary bool                `json:"-"`
}

// UserMessageSummary is the structured recap a user message may carry.
type UserMessageSummary struct {
	Title string     `json:"title"`
	Body  string     `json:"body,omitempty"`
	Diffs []FileDiff `json:"diffs,omitempty"`
}

// messageAlias breaks MarshalJSON recursion.
type messageAlias Message

// MarshalJSON encodes the polymorphic summary field: an object on user
// messages, true on assistant compaction summaries, absent otherwise.
func (m Message) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(messageAlias(m))
	if err != nil {
		return nil, err
	}
	if m.Summary == nil && !m.IsSummary {
		return data, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if m.Summary != nil {
		s, err := json.Marshal(m.Summary)
		if err != nil {
			return nil, err
		}
		raw["summary"] = s
	} else {
		raw["summary"] = json.RawMessage("true")
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes the polymorphic summary field by inspecting its
// JSON type.
func (m *Message) UnmarshalJSON(data []byte) error {
	var alias messageAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*m = Message(alias)

	var raw struct {
		Summary json.RawMessage `json:"summary"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Summary) == 0 {
		return nil
	}
	switch raw.Summary[0] {
	case 't', 'f':
		return json.Unmarshal(raw.Summary, &m.IsSummary)
	case '{':
		m.Summary = &UserMessageSummary{}
		return json.Unmarshal(raw.Summary, m.Summary)
	}
	return nil
}

// MessageWithParts couples a message with its content parts. This is the
// shape journal entries and hook payloads carry; consumers treat it as
// shared-immutable.
type MessageWithParts struct {
	Info  *Message `json:"info"`
	Parts []Part   `json:"parts,omitempty"`
}

// Timestamp returns the message creation time in milliseconds. Zero when the
// message is absent.
func (m MessageWithParts) Timestamp() int64 {
	if m.Info == nil {
		return 0
	}
	return m.Info.Time.Created
}

// MessageTime contains timestamps for a message.
type MessageTime struct {
	Created int64  `json:"created"`
	Updated *int64 `json:"updated,omitempty"`
}

// ModelRef references a specific model from a provider.
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

// TokenUsage contains token usage statistics for a message.
type TokenUsage struct {
	Input     int        `json:"input"`
	Output    int        `json:"output"`
	Reasoning int        `json:"reasoning,omitempty"`
	Cache     CacheUsage `json:"cache,omitempty"`
}

// CacheUsage contains cache hit/write statistics.
type CacheUsage struct {
	Read  int `json:"read"`
	Write int `json:"write"`
}

// TodoInfo is one entry of a session's todo list.
type TodoInfo struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Status   string `json:"status"`   // "pending" | "in_progress" | "completed" | "cancelled"
	Priority string `json:"priority"` // "high" | "medium" | "low"
}

// MessageError represents an error that occurred during message processing.
type MessageError struct {
	Type    string `json:"type"` // "api" | "auth" | "output_length"
	Message string `json:"message"`
}
