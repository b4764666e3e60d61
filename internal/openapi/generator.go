// Package openapi builds the OpenAPI 3.1 document describing the
// reservation API.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

const (
	errorRef       = "#/components/schemas/ErrorResponse"
	reservationRef = "#/components/schemas/Reservation"
)

// Generate returns the OpenAPI document for the HTTP API served at baseURL.
func Generate(baseURL, version string) *openapi3.T {
	if version == "" {
		version = "dev"
	}
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "reservadesk API",
			Description: "Reservation administration API. Every /api/reservations call requires an admin bearer token obtained from /api/login.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}

	doc.Components.Schemas["ErrorResponse"] = objectSchema([]string{"error"}, openapi3.Schemas{
		"error": stringSchema(""),
		"fields": &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:                 &openapi3.Types{"object"},
			AdditionalProperties: openapi3.AdditionalProperties{Schema: stringSchema("")},
		}},
	})
	doc.Components.Schemas["Reservation"] = reservationSchema()
	doc.Components.Schemas["ReservationInput"] = objectSchema([]string{"name", "email", "people", "date"}, reservationFields())
	doc.Components.Schemas["ReservationPatch"] = objectSchema([]string{"id"}, withIdentity(reservationFields()))
	doc.Components.Schemas["ReservationRef"] = objectSchema([]string{"id"}, withIdentity(openapi3.Schemas{}))

	doc.Paths = openapi3.NewPaths()
	doc.Paths.Set("/api/login", &openapi3.PathItem{Post: loginOperation()})
	doc.Paths.Set("/api/reservations", &openapi3.PathItem{
		Get:    listOperation(),
		Post:   createOperation(),
		Put:    updateOperation(),
		Delete: deleteOperation(),
	})
	doc.Paths.Set("/healthz", &openapi3.PathItem{Get: probeOperation("healthz", "Liveness probe")})
	doc.Paths.Set("/readyz", &openapi3.PathItem{Get: probeOperation("readyz", "Readiness probe; 503 when the store is unreachable")})

	return doc
}

func loginOperation() *openapi3.Operation {
	body := objectSchema([]string{"username", "password"}, openapi3.Schemas{
		"username": stringSchema(""),
		"password": stringSchema("password"),
	})
	resp := objectSchema([]string{"token", "user"}, openapi3.Schemas{
		"token": stringSchema(""),
		"user": objectSchema(nil, openapi3.Schemas{
			"id":       stringSchema(""),
			"username": stringSchema(""),
			"isAdmin":  {Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
		}),
	})

	responses := newResponses("200", "Session token", resp)
	addErrorResponse(responses, "400", "Malformed request body")
	addErrorResponse(responses, "401", "Invalid credentials")
	addErrorResponse(responses, "429", "Too many login attempts")
	addErrorResponse(responses, "500", "Internal server error")

	return &openapi3.Operation{
		Tags:        []string{"auth"},
		Summary:     "Log in",
		OperationID: "login",
		Security:    &openapi3.SecurityRequirements{},
		RequestBody: jsonBody("Credentials", body),
		Responses:   responses,
	}
}

func listOperation() *openapi3.Operation {
	responses := newResponses("200", "All reservations ordered by date", &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: openapi3.NewSchemaRef(reservationRef, nil),
		},
	})
	addErrorResponse(responses, "401", "Unauthorized")
	addErrorResponse(responses, "500", "Internal server error")

	return reservationOperation("listReservations", "List reservations", nil, responses)
}

func createOperation() *openapi3.Operation {
	responses := newResponses("201", "Created reservation", openapi3.NewSchemaRef(reservationRef, nil))
	addErrorResponse(responses, "400", "Validation failed")
	addErrorResponse(responses, "401", "Unauthorized")
	addErrorResponse(responses, "500", "Internal server error")

	return reservationOperation("createReservation", "Create a reservation",
		jsonBody("New reservation; status defaults to pending", openapi3.NewSchemaRef("#/components/schemas/ReservationInput", nil)),
		responses)
}

func updateOperation() *openapi3.Operation {
	responses := newResponses("200", "Updated reservation", openapi3.NewSchemaRef(reservationRef, nil))
	addErrorResponse(responses, "400", "Validation failed")
	addErrorResponse(responses, "401", "Unauthorized")
	addErrorResponse(responses, "404", "Reservation not found")
	addErrorResponse(responses, "409", "Version conflict")
	addErrorResponse(responses, "422", "Invalid status transition")
	addErrorResponse(responses, "500", "Internal server error")

	return reservationOperation("updateReservation", "Update a reservation",
		jsonBody("Partial update; include version for optimistic concurrency", openapi3.NewSchemaRef("#/components/schemas/ReservationPatch", nil)),
		responses)
}

func deleteOperation() *openapi3.Operation {
	responses := newResponses("200", "Reservation deleted", objectSchema([]string{"message"}, openapi3.Schemas{
		"message": stringSchema(""),
	}))
	addErrorResponse(responses, "400", "Malformed request body")
	addErrorResponse(responses, "401", "Unauthorized")
	addErrorResponse(responses, "404", "Reservation not found")
	addErrorResponse(responses, "409", "Version conflict")
	addErrorResponse(responses, "500", "Internal server error")

	return reservationOperation("deleteReservation", "Delete a reservation",
		jsonBody("Reservation to delete", openapi3.NewSchemaRef("#/components/schemas/ReservationRef", nil)),
		responses)
}

func probeOperation(id, summary string) *openapi3.Operation {
	return &openapi3.Operation{
		Tags:        []string{"system"},
		Summary:     summary,
		OperationID: id,
		Security:    &openapi3.SecurityRequirements{},
		Responses: newResponses("200", "OK", objectSchema(nil, openapi3.Schemas{
			"status": stringSchema(""),
		})),
	}
}

func reservationOperation(id, summary string, body *openapi3.RequestBodyRef, responses *openapi3.Responses) *openapi3.Operation {
	return &openapi3.Operation{
		Tags:        []string{"reservations"},
		Summary:     summary,
		OperationID: id,
		Security:    &openapi3.SecurityRequirements{{"bearerAuth": {}}},
		RequestBody: body,
		Responses:   responses,
	}
}

func reservationSchema() *openapi3.SchemaRef {
	props := withIdentity(reservationFields())
	props["createdAt"] = stringSchema("date-time")
	props["updatedAt"] = stringSchema("date-time")
	return objectSchema([]string{"id", "name", "email", "people", "date", "status", "version"}, props)
}

func reservationFields() openapi3.Schemas {
	minPeople := 1.0
	return openapi3.Schemas{
		"name":   stringSchema(""),
		"email":  stringSchema("email"),
		"people": {Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Min: &minPeople}},
		"date":   stringSchema("date-time"),
		"status": {Value: &openapi3.Schema{
			Type: &openapi3.Types{"string"},
			Enum: []interface{}{"pending", "confirmed", "cancelled"},
		}},
	}
}

func withIdentity(props openapi3.Schemas) openapi3.Schemas {
	props["id"] = stringSchema("")
	props["version"] = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}}
	return props
}

func objectSchema(required []string, props openapi3.Schemas) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Required:   required,
		Properties: props,
	}}
}

func stringSchema(format string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: format}}
}

func jsonBody(description string, schema *openapi3.SchemaRef) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Description: description,
			Required:    true,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	}
}

func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &description,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})
	return responses
}

func addErrorResponse(responses *openapi3.Responses, statusCode, description string) {
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &description,
			Content:     openapi3.NewContentWithJSONSchemaRef(openapi3.NewSchemaRef(errorRef, nil)),
		},
	})
}
