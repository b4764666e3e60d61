package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/reservadesk/reservadesk/internal/model"
)

// maxBodySize caps request bodies; reservation payloads are tiny.
const maxBodySize = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the flat {"error": message} body. Optional per-field
// reasons are added under "fields".
func writeError(w http.ResponseWriter, code int, message string, fields ...map[string]string) {
	resp := model.ErrorResponse{Error: message}
	if len(fields) > 0 {
		resp.Fields = fields[0]
	}
	writeJSON(w, code, resp)
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}
