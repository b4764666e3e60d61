package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/reservadesk/reservadesk/internal/model"
)

// registerTools registers the reservation tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	srv.AddTool(
		mcp.NewTool("reservadesk_list_reservations",
			mcp.WithDescription(
				"List every reservation ordered by date. Each record has id, name, email, "+
					"people, date (RFC 3339), status (pending, confirmed or cancelled) and "+
					"version. Use this first to find reservation ids.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("status",
				mcp.Description("Only return reservations in this status"),
				mcp.Enum("pending", "confirmed", "cancelled"),
			),
		),
		s.handleList,
	)

	srv.AddTool(
		mcp.NewTool("reservadesk_create_reservation",
			mcp.WithDescription("Create a reservation. Status defaults to pending."),
			mcp.WithToolAnnotation(mutatingAnnotation(false)),
			mcp.WithString("name", mcp.Required(), mcp.Description("Guest name")),
			mcp.WithString("email", mcp.Required(), mcp.Description("Guest email address")),
			mcp.WithNumber("people", mcp.Required(), mcp.Description("Party size, at least 1")),
			mcp.WithString("date", mcp.Required(), mcp.Description("Reservation time as an RFC 3339 timestamp")),
		),
		s.handleCreate,
	)

	srv.AddTool(
		mcp.NewTool("reservadesk_update_reservation",
			mcp.WithDescription(
				"Update fields of an existing reservation. Only supplied fields change. "+
					"Allowed status changes: pending to confirmed or cancelled, confirmed to "+
					"cancelled. Pass the version you last read to reject concurrent edits.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation(false)),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reservation id")),
			mcp.WithNumber("version", mcp.Description("Expected current version; omit to overwrite")),
			mcp.WithString("name", mcp.Description("New guest name")),
			mcp.WithString("email", mcp.Description("New guest email")),
			mcp.WithNumber("people", mcp.Description("New party size")),
			mcp.WithString("date", mcp.Description("New RFC 3339 timestamp")),
			mcp.WithString("status",
				mcp.Description("New status"),
				mcp.Enum("pending", "confirmed", "cancelled"),
			),
		),
		s.handleUpdate,
	)

	srv.AddTool(
		mcp.NewTool("reservadesk_delete_reservation",
			mcp.WithDescription("Permanently delete a reservation."),
			mcp.WithToolAnnotation(mutatingAnnotation(true)),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reservation id")),
			mcp.WithNumber("version", mcp.Description("Expected current version; omit to delete unconditionally")),
		),
		s.handleDelete,
	)
}

func (s *MCPServer) handleList(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	list, err := s.reservations.List(ctx)
	if err != nil {
		return toolError("Failed to fetch reservations: %v", err)
	}

	if status := request.GetString("status", ""); status != "" {
		filtered := make([]model.Reservation, 0, len(list))
		for _, r := range list {
			if string(r.Status) == status {
				filtered = append(filtered, r)
			}
		}
		list = filtered
	}

	return successJSON(list)
}

func (s *MCPServer) handleCreate(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	name, err := request.RequireString("name")
	if err != nil {
		return toolError("%v", err)
	}
	email, err := request.RequireString("email")
	if err != nil {
		return toolError("%v", err)
	}
	people, err := request.RequireInt("people")
	if err != nil {
		return toolError("%v", err)
	}
	date, err := optionalTime(request, "date")
	if err != nil {
		return toolError("%v", err)
	}
	if date == nil {
		return toolError("missing required parameter \"date\"")
	}

	r, err := s.reservations.Create(ctx, model.ReservationInput{
		Name:   name,
		Email:  email,
		People: people,
		Date:   *date,
	})
	if err != nil {
		return serviceError(err, "Failed to create reservation")
	}
	return successJSON(r)
}

func (s *MCPServer) handleUpdate(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := request.RequireString("id")
	if err != nil {
		return toolError("%v", err)
	}
	date, err := optionalTime(request, "date")
	if err != nil {
		return toolError("%v", err)
	}

	patch := model.ReservationPatch{
		ID:      id,
		Version: int64(request.GetInt("version", 0)),
		Name:    optionalString(request, "name"),
		Email:   optionalString(request, "email"),
		People:  optionalInt(request, "people"),
		Date:    date,
	}
	if status := optionalString(request, "status"); status != nil {
		st := model.Status(*status)
		patch.Status = &st
	}

	r, err := s.reservations.Update(ctx, patch)
	if err != nil {
		return serviceError(err, "Failed to update reservation")
	}
	return successJSON(r)
}

func (s *MCPServer) handleDelete(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := request.RequireString("id")
	if err != nil {
		return toolError("%v", err)
	}

	ref := model.ReservationRef{ID: id, Version: int64(request.GetInt("version", 0))}
	if err := s.reservations.Delete(ctx, ref); err != nil {
		return serviceError(err, "Failed to delete reservation")
	}
	return successJSON(model.MessageResponse{Message: "Reservation deleted successfully"})
}
