package contract

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one role-tagged message in a session's conversation sequence.
// Seq is assigned by the conversation context on append and survives window
// trimming, so observers can tell that older turns were dropped.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Seq     int    `json:"seq"`

	// ToolCalls carries the action requests of an assistant turn. The wire
	// protocol requires every tool observation to follow the assistant
	// message that requested it, so request turns are stored, not dropped.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool observation back to the model's action request.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is one action request as the model emitted it. Arguments stays
// the raw JSON string so the request replays byte-identically on the next
// inference call.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolRequest is a named action invocation the model asked for.
type ToolRequest struct {
	CallID string         `json:"call_id,omitempty"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
}

// ToolResult is the observation produced by executing (or refusing) an
// action. Recoverable failures travel in Error; they are reported back into
// the conversation, never raised.
type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
