/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Tests for UUID normalizer and generator
 */

package main

import (
	"testing"
)

// Test UUID normalization
func TestUUIDNormalize(t *testing.T) {
	testData := []struct{ in, out string }{
		// Already normalized
		{
			"01234567-89ab-cdef-0123-456789abcdef",
			"01234567-89ab-cdef-0123-456789abcdef",
		},

		// Case folding and the urn:uuid: prefix
		{
			"URN:UUID:01234567-89AB-CDEF-0123-456789ABCDEF",
			"01234567-89ab-cdef-0123-456789abcdef",
		},
		{
			"uuid:0123456789abcdef0123456789abcdef",
			"01234567-89ab-cdef-0123-456789abcdef",
		},

		// Decorations are skipped
		{
			"{01234567-89ab-cdef-0123-456789abcdef}",
			"01234567-89ab-cdef-0123-456789abcdef",
		},

		// Not a UUID
		{"", ""},
		{"not a uuid", ""},
		{"01234567-89ab-cdef-0123-456789abcde", ""},
		{"01234567-89ab-cdef-0123-456789abcdef0", ""},
	}

	for _, data := range testData {
		uuid := UUIDNormalize(data.in)
		if uuid != data.out {
			t.Errorf("UUIDNormalize(%q): expected %q, got %q",
				data.in, data.out, uuid)
		}
	}
}

// Test UUID generation
func TestUUIDGenerate(t *testing.T) {
	uuid := UUIDGenerate("example.local", 631, "printer")
	expected := "f64ba323-1745-3df6-62d2-58dc67db77a4"
	if uuid != expected {
		t.Errorf("UUIDGenerate: expected %q, got %q", expected, uuid)
	}

	uuid2 := UUIDGenerate("example.local", 631, "printer2")
	expected = "eeca2c18-669f-3568-41fa-198d41a03272"
	if uuid2 != expected {
		t.Errorf("UUIDGenerate: expected %q, got %q", expected, uuid2)
	}

	// Generated UUIDs are normalized and carry the version nibble
	for _, u := range []string{uuid, uuid2} {
		if UUIDNormalize(u) != u {
			t.Errorf("UUIDGenerate: %q not in the normalized form", u)
		}

		if u[14] != '3' {
			t.Errorf("UUIDGenerate: %q is not a version 3 UUID", u)
		}
	}
}
