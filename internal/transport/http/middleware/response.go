package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody mirrors the handler error envelope so clients see one shape
// whether a request was rejected by middleware or by a handler.
type errorBody struct {
	Error     string `json:"error"`
	ErrorCode int    `json:"error_code"`
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg, ErrorCode: status})
}
