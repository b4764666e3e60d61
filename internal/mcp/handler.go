package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reservadesk/reservadesk/internal/service"
	"github.com/reservadesk/reservadesk/internal/store"
)

// --------------------------------------------------------------------------
// Parameter extraction helpers
// --------------------------------------------------------------------------

// optionalString returns a pointer to the string argument, or nil when the
// argument was not supplied.
func optionalString(request mcp.CallToolRequest, key string) *string {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	v := request.GetString(key, "")
	return &v
}

// optionalInt returns a pointer to the integer argument, or nil when the
// argument was not supplied.
func optionalInt(request mcp.CallToolRequest, key string) *int {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	v := request.GetInt(key, 0)
	return &v
}

// optionalTime parses an RFC 3339 argument.
func optionalTime(request mcp.CallToolRequest, key string) (*time.Time, error) {
	raw := optionalString(request, key)
	if raw == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, fmt.Errorf("parameter %q must be an RFC 3339 timestamp", key)
	}
	return &t, nil
}

// --------------------------------------------------------------------------
// Response builders
// --------------------------------------------------------------------------

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. Errors returned this way are
// visible to the LLM so it can self-correct; they do NOT terminate the MCP
// session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// serviceError turns a reservation service error into a tool result using
// the same wording as the HTTP API.
func serviceError(err error, fallback string) (*mcp.CallToolResult, error) {
	var verr *service.ValidationError
	var terr *service.TransitionError

	switch {
	case errors.As(err, &verr):
		b, _ := json.Marshal(verr.Fields)
		return toolError("Validation failed: %s", b)
	case errors.As(err, &terr):
		return toolError("%s", terr.Error())
	case errors.Is(err, store.ErrNotFound):
		return toolError("Reservation not found")
	case errors.Is(err, store.ErrVersionConflict):
		return toolError("Reservation was modified by another request; reload it and retry")
	default:
		return toolError("%s: %v", fallback, err)
	}
}
