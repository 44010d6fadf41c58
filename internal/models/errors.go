// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "errors"

// ErrNotFound is returned when a document, page or other entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized is returned when the acting user is not permitted to
// perform the operation, e.g. a non-admin restoring an admin-deleted
// document. The request fails with no partial effect.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError carries a user-facing message for a recoverable input
// failure. The request is re-presented rather than rejected outright.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
