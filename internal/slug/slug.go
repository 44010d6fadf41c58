// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings,
// plus random suffixing for collision recovery when a slug is already taken.
package slug

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, or space.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// SuffixLength is the number of random characters appended to a slug when
// the plain slug is already taken.
const SuffixLength = 8

// suffixAlphabet holds the characters used for random suffixes.
const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Generate creates a URL-friendly slug from the given string.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = strings.ReplaceAll(result, " ", "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// WithRandomSuffix appends a hyphen and SuffixLength random characters to
// the given slug. Used when the plain slug collides with an existing one.
func WithRandomSuffix(s string) string {
	return s + "-" + randomString(SuffixLength)
}

// randomString returns n characters drawn from suffixAlphabet using
// crypto/rand.
func randomString(n int) string {
	max := big.NewInt(int64(len(suffixAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken.
			panic(err)
		}
		b[i] = suffixAlphabet[idx.Int64()]
	}
	return string(b)
}
