package jsonrpc

// ErrorCode is a JSON-RPC 2.0 error code.
type ErrorCode int

const (
	// ErrorCodeParseError indicates invalid JSON was received by the server.
	ErrorCodeParseError ErrorCode = -32700
	// ErrorCodeInvalidRequest indicates the JSON sent is not a valid Request object.
	ErrorCodeInvalidRequest ErrorCode = -32600
	// ErrorCodeMethodNotFound indicates the method does not exist / is not available.
	ErrorCodeMethodNotFound ErrorCode = -32601
	// ErrorCodeInvalidParams indicates invalid method parameters.
	ErrorCodeInvalidParams ErrorCode = -32602
	// ErrorCodeInternalError indicates an internal JSON-RPC error.
	ErrorCodeInternalError ErrorCode = -32603
	// ErrorCodeServerError is the generic implementation-defined server error.
	ErrorCodeServerError ErrorCode = -32000
)

var codeNames = map[ErrorCode]string{
	ErrorCodeParseError:     "parse_error",
	ErrorCodeInvalidRequest: "invalid_request",
	ErrorCodeMethodNotFound: "method_not_found",
	ErrorCodeInvalidParams:  "invalid_params",
	ErrorCodeInternalError:  "internal_error",
	ErrorCodeServerError:    "server_error",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}
