package domain

// ConverseRequest is one conversational completion request in the shape
// shared between the orchestrator and the Bedrock integration. Temperature
// and MaxTokens are optional; unset values are omitted from the call.
type ConverseRequest struct {
	ModelID     string
	Messages    []Message
	System      string
	Temperature *float32
	MaxTokens   *int32
}
