package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	reservationsURI        = "reservadesk://reservations"
	reservationURIPrefix   = "reservadesk://reservation/"
	reservationURITemplate = reservationURIPrefix + "{id}"
)

// registerResources adds read-only resources that LLM clients can load into
// their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			reservationsURI,
			"Reservations",
			mcp.WithResourceDescription("Every reservation ordered by date."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleReservationsResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			reservationURITemplate,
			"Reservation",
			mcp.WithTemplateDescription("A single reservation by id."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleReservationResource,
	)
}

func (s *MCPServer) handleReservationsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	list, err := s.reservations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return jsonResource(reservationsURI, list)
}

func (s *MCPServer) handleReservationResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	uri := request.Params.URI
	id := strings.TrimPrefix(uri, reservationURIPrefix)
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid reservation URI %q: expected %s", uri, reservationURITemplate)
	}

	r, err := s.reservations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonResource(uri, r)
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
