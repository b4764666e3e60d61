package model

// ErrorResponse is the body of every non-2xx API response. Fields carries
// per-field validation messages keyed by JSON field name.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// MessageResponse is returned by operations that have no record to echo back.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest is the payload of POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}
