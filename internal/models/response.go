package models

// APIResponse is the uniform envelope returned by every public entry point:
// HTTP handlers, MCP tools, and pipeline results all report success or a
// structured error instead of raising.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Success wraps data in a successful response envelope.
func Success(data any) APIResponse {
	return APIResponse{Success: true, Data: data}
}

// SuccessWithMessage wraps data with a human-readable message.
func SuccessWithMessage(message string, data any) APIResponse {
	return APIResponse{Success: true, Message: message, Data: data}
}

// Error builds a failed response envelope.
func Error(message string) APIResponse {
	return APIResponse{Success: false, Error: message}
}
