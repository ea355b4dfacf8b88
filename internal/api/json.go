package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Machine-readable error codes returned alongside error messages.
const (
	CodeInvalidBody   = "invalid_body"
	CodeMissingField  = "missing_field"
	CodeNotFound      = "not_found"
	CodeConflict      = "conflict"
	CodeAlreadyExists = "already_exists"
	CodeSyncFailed    = "sync_failed"
	CodeInternal      = "internal"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func errorBody(msg, code string) errResponse {
	return errResponse{Error: msg, Code: code}
}
