package model

// FunctionCallStatus is the outcome class of a dispatched function call.
type FunctionCallStatus string

const (
	FunctionOK    FunctionCallStatus = "ok"
	FunctionError FunctionCallStatus = "error"
)

// FunctionCallResult is the structured result of one function dispatch.
// It is ephemeral: serialized into a function turn and not kept beyond it.
// Argument and semantic failures (bad schema, unknown info type, a full
// slot) are reported here rather than as Go errors so the conversation
// can continue.
type FunctionCallResult struct {
	Status  FunctionCallStatus `json:"status"`
	Code    string             `json:"code,omitempty"`
	Payload map[string]any     `json:"payload,omitempty"`
}
