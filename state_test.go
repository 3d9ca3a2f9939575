/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Tests for per-printer persistent state
 */

package main

import (
	"os"
	"path/filepath"
	"testing"
)

// Test persistent state
func TestState(t *testing.T) {
	dir := t.TempDir()

	state := OpenState(dir)

	// IDs are allocated sequentially and stay stable
	if id := state.PrinterID("first"); id != 1 {
		t.Errorf("PrinterID(first): expected 1, got %d", id)
	}
	if id := state.PrinterID("second"); id != 2 {
		t.Errorf("PrinterID(second): expected 2, got %d", id)
	}
	if id := state.PrinterID("first"); id != 1 {
		t.Errorf("PrinterID(first): expected 1, got %d", id)
	}

	// A fresh printer gets its override set together with the name
	ps := state.SyncDNSSdName("first", "First Printer")
	if ps.DNSSdOverride != "First Printer" {
		t.Errorf("DNSSdOverride: expected %q, got %q",
			"First Printer", ps.DNSSdOverride)
	}

	// Pretend discovery renamed the service after a collision
	ps.DNSSdOverride = "First Printer (2)"
	ps.Save()

	// Reopen the directory; everything must survive
	state = OpenState(dir)

	if id := state.PrinterID("first"); id != 1 {
		t.Errorf("reopened PrinterID(first): expected 1, got %d", id)
	}
	if id := state.PrinterID("second"); id != 2 {
		t.Errorf("reopened PrinterID(second): expected 2, got %d", id)
	}

	if s := state.DNSSdOverride("first"); s != "First Printer (2)" {
		t.Errorf("DNSSdOverride(first): expected %q, got %q",
			"First Printer (2)", s)
	}

	// The same configured name keeps the override
	state.SyncDNSSdName("first", "First Printer")
	if s := state.DNSSdOverride("first"); s != "First Printer (2)" {
		t.Errorf("override must survive an unchanged name, got %q", s)
	}

	// A new configured name resets the stale override
	state.SyncDNSSdName("first", "Renamed Printer")
	if s := state.DNSSdOverride("first"); s != "Renamed Printer" {
		t.Errorf("override must follow a renamed printer, got %q", s)
	}

	// A new printer allocates past the loaded maximum
	if id := state.PrinterID("third"); id != 3 {
		t.Errorf("PrinterID(third): expected 3, got %d", id)
	}

	// An out-of-range printer-id is dropped and reallocated
	path := filepath.Join(dir, "corrupt.state")
	err := os.WriteFile(path, []byte("[printer]\nprinter-id = 99999\n"), 0644)
	if err != nil {
		t.Fatalf("%s", err)
	}

	state = OpenState(dir)
	if id := state.PrinterID("corrupt"); id != 4 {
		t.Errorf("PrinterID(corrupt): expected 4, got %d", id)
	}
}
