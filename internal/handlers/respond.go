// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the HTTP layer of the CivicDocs API. All
// handlers read and write JSON; authentication state arrives through the
// session middleware.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"civicdocs/internal/models"
)

// errorResponse is the uniform JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps domain errors onto HTTP statuses. Unexpected errors are
// logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case err == models.ErrNotFound:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case err == models.ErrUnauthorized:
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case models.IsValidation(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// decodeJSON parses the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
