/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Tests for DNS-SD TXT record handling
 */

package main

import (
	"reflect"
	"testing"
)

// TestTxtRecord tests DnsSdTxtRecord construction
func TestTxtRecord(t *testing.T) {
	var txt DnsSdTxtRecord

	txt.Add("txtvers", "1")
	if !txt.IfNotEmpty("note", "Room 101") {
		t.Errorf("IfNotEmpty: item not added")
	}
	if txt.IfNotEmpty("ty", "") {
		t.Errorf("IfNotEmpty: empty item added")
	}

	expected := DnsSdTxtRecord{
		{"txtvers", "1"},
		{"note", "Room 101"},
	}

	if !reflect.DeepEqual(txt, expected) {
		t.Errorf("expected %v, got %v", expected, txt)
	}
}

// TestTxtExport tests export into the Avahi representation
func TestTxtExport(t *testing.T) {
	txt := DnsSdTxtRecord{
		{"air", "none"},
		{"qtotal", "1"},
		{"txtvers", "1"},
	}

	// Avahi publishes strings in reverse order, export
	// compensates for that
	expected := [][]byte{
		[]byte("txtvers=1"),
		[]byte("qtotal=1"),
		[]byte("air=none"),
	}

	exported := txt.export()
	if !reflect.DeepEqual(exported, expected) {
		t.Errorf("expected %q, got %q", expected, exported)
	}
}
