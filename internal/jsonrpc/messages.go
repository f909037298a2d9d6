package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// ProtocolVersion is the supported JSON-RPC protocol version.
const ProtocolVersion = "2.0"

// Request represents a JSON-RPC request (with an ID) or notification (without ID).
type Request struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method"`
	Params         json.RawMessage `json:"params,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`
}

// ParseRequest decodes a request. Members are looked up by their exact key.
// Input that is not a JSON object, or whose method member is not a string,
// yields a Request whose Method is empty; id and params are still kept so
// the error reply can be correlated. The jsonrpc member is not validated.
func ParseRequest(data []byte) *Request {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil || members == nil {
		return &Request{}
	}

	req := &Request{}
	if raw, ok := members["id"]; ok && !bytes.Equal(raw, []byte("null")) {
		id := &RequestID{}
		if err := id.UnmarshalJSON(raw); err == nil {
			req.ID = id
		}
	}
	if raw, ok := members["params"]; ok {
		req.Params = raw
	}
	if raw, ok := members["jsonrpc"]; ok {
		// non-string versions are tolerated
		_ = json.Unmarshal(raw, &req.JSONRPCVersion)
	}
	if raw, ok := members["method"]; ok {
		var method string
		if err := json.Unmarshal(raw, &method); err == nil {
			req.Method = method
		}
	}
	return req
}

// IsNotification reports whether the request carries no id member.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response represents a JSON-RPC response. The id member is always emitted,
// as null when the request had none.
type Response struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	ID             *RequestID      `json:"id"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`

	// StatusHint is an advisory transport status: http.StatusOK for ordinary
	// responses, http.StatusAccepted for notification acknowledgements.
	StatusHint int `json:"-"`
}

// NewResultResponse builds a successful JSON-RPC response object.
func NewResultResponse(id *RequestID, result any) (*Response, error) {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Result:         resultBytes,
		ID:             id,
		StatusHint:     http.StatusOK,
	}, nil
}

// NewAckResponse builds the empty-result acknowledgement sent for
// notifications.
func NewAckResponse(id *RequestID) *Response {
	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Result:         json.RawMessage(`{}`),
		ID:             id,
		StatusHint:     http.StatusAccepted,
	}
}

// NewErrorResponse builds an error JSON-RPC response with the given code.
func NewErrorResponse(id *RequestID, code ErrorCode, message string, data any) *Response {
	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID:         id,
		StatusHint: http.StatusOK,
	}
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc %d: %s", e.Code, e.Message)
}
