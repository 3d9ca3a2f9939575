/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Tests for the configuration file reader
 */

package main

import (
	"io"
	"testing"
)

// Don't forget to update confTestData when testdata/conffile.conf changes
var confTestData = []struct {
	directive, value string
	line             int
}{
	{"Single", "value", 3},
	{"Multi", "word  value   with spaces", 4},
	{"Tabbed", "value", 5},
	{"Escape1", "job-#.prn", 6},
	{"Escape2", `C:\spool\jobs`, 7},
	{"NoValue", "", 8},
	{"NoValue2", "", 9},
	{"Indented", "yes", 10},
	{"Last", "no newline at the end", 13},
}

// Test configuration file reader
func TestConfReader(t *testing.T) {
	conf, err := ConfOpen("testdata/conffile.conf")
	if err != nil {
		t.Fatalf("%s", err)
	}

	defer conf.Close()

	// Read record by record
	var rec *ConfRecord
	current := 0
	for err == nil {
		rec, err = conf.Next()
		if err != nil {
			break
		}

		if current >= len(confTestData) {
			t.Errorf("unexpected record: %s %q at line %d",
				rec.Directive, rec.Value, rec.Line)
		} else if rec.Directive != confTestData[current].directive ||
			rec.Value != confTestData[current].value ||
			rec.Line != confTestData[current].line {
			t.Errorf("data mismatch:")
			t.Errorf("  expected: %s %q at line %d",
				confTestData[current].directive,
				confTestData[current].value,
				confTestData[current].line)
			t.Errorf("  present:  %s %q at line %d",
				rec.Directive, rec.Value, rec.Line)
		} else {
			current++
		}
	}

	if err != io.EOF {
		t.Fatalf("%s", err)
	}

	if current != len(confTestData) {
		t.Errorf("got %d records, expected %d", current, len(confTestData))
	}
}

// Test ConfError formatting
func TestConfError(t *testing.T) {
	err := &ConfError{
		File:    "/etc/ippserver/ippserver.conf",
		Line:    5,
		Message: "missing value",
	}

	expected := "/etc/ippserver/ippserver.conf:5: missing value"
	if err.Error() != expected {
		t.Errorf("ConfError: expected %q, got %q", expected, err.Error())
	}
}
