package model

// Role represents the originator of a conversation turn.
type Role string

const (
	RoleUser     Role = "user"
	RoleAgent    Role = "agent"
	RoleFunction Role = "function"
)

// Turn is one unit of conversational context: a user utterance, an agent
// utterance, or a function result. Turns are append-only for the lifetime
// of a session.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Function-call bookkeeping, set only on function turns and on agent
	// turns that requested tool calls.
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}
