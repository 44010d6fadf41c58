// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// SponsorStatus marks whether a sponsor organization is active on the platform.
type SponsorStatus string

const (
	SponsorStatusActive  SponsorStatus = "active"
	SponsorStatusPending SponsorStatus = "pending"
)

// Sponsor is an organization that owns documents. Users are linked to
// sponsors through a membership roster; membership grants full visibility
// into the sponsor's documents in every publish state.
type Sponsor struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Slug      string        `json:"slug"`
	Status    SponsorStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
