package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ProtocolVersion is the supported JSON-RPC protocol version.
const ProtocolVersion = "2.0"

var (
	// ErrInvalidEnvelope is wrapped by every request decoding failure.
	ErrInvalidEnvelope = errors.New("invalid JSON-RPC envelope")
)

// Request represents a JSON-RPC request. ID is nil when the client omitted it
// (or sent null).
type Request struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method"`
	Params         json.RawMessage `json:"params,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`
}

// Response represents a JSON-RPC response. Exactly one of Result and Error is
// set. ID is always serialized; a nil ID renders as null.
type Response struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	ID             *RequestID      `json:"id"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
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
	}, nil
}

// NewErrorResponse builds an error JSON-RPC response with the given code.
func NewErrorResponse(id *RequestID, code ErrorCode, message string) *Response {
	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Error: &Error{
			Code:    code,
			Message: message,
		},
		ID: id,
	}
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// UnmarshalJSON decodes a request envelope. The method must be a string, the
// params (when present and non-null) must be an object and the id (when
// present and non-null) must be a string or a number. The jsonrpc member is
// optional and defaults to ProtocolVersion.
func (r *Request) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: envelope must be an object", ErrInvalidEnvelope)
	}

	out := Request{JSONRPCVersion: ProtocolVersion}

	if v, ok := raw["jsonrpc"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &out.JSONRPCVersion); err != nil {
			return fmt.Errorf("%w: jsonrpc must be a string", ErrInvalidEnvelope)
		}
	}

	m, ok := raw["method"]
	if !ok || isNull(m) {
		return fmt.Errorf("%w: method is required", ErrInvalidEnvelope)
	}
	if err := json.Unmarshal(m, &out.Method); err != nil {
		return fmt.Errorf("%w: method must be a string", ErrInvalidEnvelope)
	}

	if p, ok := raw["params"]; ok && !isNull(p) {
		if firstByte(p) != '{' {
			return fmt.Errorf("%w: params must be an object", ErrInvalidEnvelope)
		}
		out.Params = p
	}

	if v, ok := raw["id"]; ok && !isNull(v) {
		var id RequestID
		if err := id.UnmarshalJSON(v); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
		}
		out.ID = &id
	}

	*r = out
	return nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func firstByte(v json.RawMessage) byte {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return 0
	}
	return v[0]
}
