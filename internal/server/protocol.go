package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Iron-Ham/waitroom/internal/errors"
)

// MethodListTools lists tool descriptors over the websocket.
const MethodListTools = "tools/list"

// MethodProgress is the method of heartbeat notifications.
const MethodProgress = "notifications/progress"

// Request is a websocket call frame. Method is a tool name or
// MethodListTools; ID is echoed on the response and used as the progress
// token.
type Request struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers a Request. Exactly one of Result and Error is set.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// Notification is a server-initiated frame with no ID.
type Notification struct {
	Method string         `json:"method"`
	Params ProgressParams `json:"params"`
}

// ProgressParams carries one heartbeat. Progress is a fraction of Total.
type ProgressParams struct {
	ProgressToken json.RawMessage `json:"progressToken,omitempty"`
	Progress      float64         `json:"progress"`
	Total         float64         `json:"total"`
	Message       string          `json:"message"`
}

// Error codes, following JSON-RPC 2.0 where one applies.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeCanceled       = -32800
)

// RPCError is an error carried in a Response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Is maps codes back onto the sentinel errors so callers can test remote
// failures the same way as local ones.
func (e *RPCError) Is(target error) bool {
	switch e.Code {
	case CodeMethodNotFound:
		return target == errors.ErrUnknownTool
	case CodeInvalidParams:
		return target == errors.ErrInvalidInput
	case CodeCanceled:
		return target == errors.ErrCanceled
	}
	return false
}

// toRPCError classifies a service error.
func toRPCError(err error) *RPCError {
	code := CodeInternalError
	switch {
	case errors.Is(err, errors.ErrUnknownTool):
		code = CodeMethodNotFound
	case errors.Is(err, errors.ErrInvalidInput):
		code = CodeInvalidParams
	case errors.Is(err, errors.ErrCanceled):
		code = CodeCanceled
	}
	return &RPCError{Code: code, Message: err.Error()}
}

// httpStatus maps an RPC error code to the status used by the plain HTTP
// endpoints.
func httpStatus(code int) int {
	switch code {
	case CodeParseError, CodeInvalidParams:
		return http.StatusBadRequest
	case CodeMethodNotFound:
		return http.StatusNotFound
	case CodeCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// codeForStatus is the inverse of httpStatus, for the client.
func codeForStatus(status int) int {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidParams
	case http.StatusNotFound:
		return CodeMethodNotFound
	case http.StatusServiceUnavailable:
		return CodeCanceled
	default:
		return CodeInternalError
	}
}

// errorBody is the JSON body of a failed HTTP tool call.
type errorBody struct {
	Error *RPCError `json:"error"`
}
