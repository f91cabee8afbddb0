package mcpservice

import (
	"errors"
	"fmt"

	"github.com/ggoodman/systemcard-mcp/internal/jsonrpc"
)

// MethodNotFoundError indicates the requested JSON-RPC method is not
// implemented. It results in a JSON-RPC "Method not found" error.
type MethodNotFoundError struct {
	Method string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("Method not found: %s", e.Method)
}

// MissingParamError indicates a required parameter was not supplied.
// It results in a JSON-RPC "Invalid params" error.
type MissingParamError struct {
	Name string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("Missing required parameter: %s", e.Name)
}

// InvalidParamsError indicates that a supplied parameter is malformed.
// It results in a JSON-RPC "Invalid params" error.
type InvalidParamsError struct {
	Field  string
	Reason string
}

func (e *InvalidParamsError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("Invalid parameter %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("Invalid parameters: %s", e.Reason)
}

// UnknownResourceError indicates a URI outside the resource catalog.
// It results in a JSON-RPC "Invalid params" error.
type UnknownResourceError struct {
	URI string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("Unknown resource URI: %s", e.URI)
}

// ResourceNotFoundError indicates a catalog URI whose section is absent (or
// null) in the loaded document. It results in a JSON-RPC "Invalid params"
// error.
type ResourceNotFoundError struct {
	URI string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("Resource not found: %s", e.URI)
}

// ErrDocumentUnavailable is returned when a request arrives before a system
// card has been loaded. It results in a JSON-RPC "Internal error".
var ErrDocumentUnavailable = errors.New("system card data not available")

const documentUnavailableMessage = "System card data not available"

// toJSONRPCError maps protocol errors to JSON-RPC error objects. ok is false
// for errors that are not part of the protocol contract.
func toJSONRPCError(err error) (rpcErr *jsonrpc.Error, ok bool) {
	var (
		methodErr   *MethodNotFoundError
		missingErr  *MissingParamError
		invalidErr  *InvalidParamsError
		unknownErr  *UnknownResourceError
		notFoundErr *ResourceNotFoundError
	)

	switch {
	case errors.As(err, &methodErr):
		return &jsonrpc.Error{Code: jsonrpc.ErrorCodeMethodNotFound, Message: methodErr.Error()}, true
	case errors.As(err, &missingErr):
		return &jsonrpc.Error{Code: jsonrpc.ErrorCodeInvalidParams, Message: missingErr.Error()}, true
	case errors.As(err, &invalidErr):
		return &jsonrpc.Error{Code: jsonrpc.ErrorCodeInvalidParams, Message: invalidErr.Error()}, true
	case errors.As(err, &unknownErr):
		return &jsonrpc.Error{Code: jsonrpc.ErrorCodeInvalidParams, Message: unknownErr.Error()}, true
	case errors.As(err, &notFoundErr):
		return &jsonrpc.Error{Code: jsonrpc.ErrorCodeInvalidParams, Message: notFoundErr.Error()}, true
	case errors.Is(err, ErrDocumentUnavailable):
		return &jsonrpc.Error{Code: jsonrpc.ErrorCodeInternalError, Message: documentUnavailableMessage}, true
	default:
		return nil, false
	}
}
