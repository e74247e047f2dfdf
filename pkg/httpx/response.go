package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache marks a response as uncacheable. Required on anything that
// carries a token.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// ErrorBody is the uniform JSON error envelope.
type ErrorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError writes the uniform error envelope. Internal detail never goes
// through here; callers pass short stable identifiers only.
func WriteError(w http.ResponseWriter, code int, errCode, desc string) {
	NoCache(w)
	WriteJSON(w, code, ErrorBody{Error: errCode, Description: desc})
}
