/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Tests for printer registry
 */

package main

import (
	"sort"
	"testing"
)

// Test printer registry lookup
func TestPrinterRegistry(t *testing.T) {
	reg := &PrinterRegistry{}

	if reg.Count() != 0 {
		t.Errorf("empty registry: Count() = %d", reg.Count())
	}

	if reg.Find(ResourcePrint) != nil {
		t.Errorf("empty registry: Find() must return nil")
	}

	office := &Printer{Resource: "/ipp/print/office", Name: "office"}
	lab := &Printer{Resource: "/ipp/print/lab", Name: "lab"}
	cube := &Printer{Resource: "/ipp/print3d/cube", Name: "cube", Is3D: true}

	// A single printer serves any resource path
	reg.Add(office)
	if reg.Find("/ipp/print/someplace") != office {
		t.Errorf("single printer must serve any path")
	}

	reg.Add(lab)
	reg.Add(cube)

	if reg.Count() != 3 {
		t.Errorf("Count() = %d, expected 3", reg.Count())
	}

	// Printers come out sorted by resource path
	printers := reg.Printers()
	ok := sort.SliceIsSorted(printers, func(i, j int) bool {
		return printers[i].Resource < printers[j].Resource
	})
	if !ok {
		t.Errorf("Printers() are not sorted by resource path")
	}

	// Exact lookup
	if reg.Find("/ipp/print/lab") != lab {
		t.Errorf("Find(%q): wrong printer", "/ipp/print/lab")
	}

	if reg.Find("/ipp/print3d/cube") != cube {
		t.Errorf("Find(%q): wrong printer", "/ipp/print3d/cube")
	}

	if p := reg.Find("/ipp/print/cellar"); p != nil {
		t.Errorf("Find(%q): expected nil, got %q", "/ipp/print/cellar", p.Name)
	}

	// The alias path resolves to the first printer
	if reg.Find(ResourcePrint) != lab {
		t.Errorf("Find(%q): expected the first printer", ResourcePrint)
	}
}
