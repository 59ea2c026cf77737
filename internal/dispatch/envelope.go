// Package dispatch implements the Request Dispatcher: the single entry
// point transports hand parsed request envelopes to, session/connection
// lifecycle, authorization-by-scope, and the op routing table.
package dispatch

import "encoding/json"

// Request is one parsed request envelope. Parameter is left as raw JSON so
// each op can decode only the fields it needs.
type Request struct {
	Event     string          `json:"event"`
	UUID      string          `json:"uuid"`
	Client    string          `json:"client"`
	Parameter json.RawMessage `json:"parameter,omitempty"`
}

// Response is the reply envelope: exactly one of Response or Error is set.
type Response struct {
	Event    string    `json:"event"`
	UUID     string    `json:"uuid"`
	Response any       `json:"response,omitempty"`
	Error    *ErrorInfo `json:"error,omitempty"`
}

// ErrorCode is the fixed taxonomy delivered in error envelopes.
type ErrorCode int

const (
	ErrCodeParameter  ErrorCode = 400
	ErrCodeAuth       ErrorCode = 401
	ErrCodeProcessing ErrorCode = 500
	ErrCodeTimeout    ErrorCode = 504
)

// ErrorInfo is the error envelope payload. Details carries a per-attribute
// error map for verify/update failures, when there is one.
type ErrorInfo struct {
	Code        ErrorCode         `json:"code"`
	Description string            `json:"description"`
	Details     map[string]string `json:"details,omitempty"`
}

func success(event, uuid string, result any) Response {
	return Response{Event: event, UUID: uuid, Response: result}
}

func failure(event, uuid string, code ErrorCode, description string, details map[string]string) Response {
	return Response{Event: event, UUID: uuid, Error: &ErrorInfo{Code: code, Description: description, Details: details}}
}
