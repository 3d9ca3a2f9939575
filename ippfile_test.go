/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Tests for printer attribute file parser
 */

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OpenPrinting/goipp"
)

// ippFileTestHandler implements IppFileHandler for the tests.
// It consumes the TESTDIRECTIVE directive, rejects attributes
// listed in reject and collects recoverable errors
type ippFileTestHandler struct {
	directives []string        // TESTDIRECTIVE values seen
	errors     []error         // Recoverable errors seen
	reject     map[string]bool // Attributes to reject
}

func (h *ippFileTestHandler) ParseToken(f *IppFile, token string) (bool, error) {
	if !strings.EqualFold(token, "TESTDIRECTIVE") {
		return false, nil
	}

	value, err := f.need("TESTDIRECTIVE value")
	if err != nil {
		return true, err
	}

	h.directives = append(h.directives, value)
	return true, nil
}

func (h *ippFileTestHandler) FilterAttr(name string) bool {
	return !h.reject[name]
}

func (h *ippFileTestHandler) Error(err error) {
	h.errors = append(h.errors, err)
}

// ippFileParseString writes the content to a temporary file
// and parses it
func ippFileParseString(t *testing.T, content string,
	vars map[string]string, handler IppFileHandler) (*goipp.Message, error) {

	path := filepath.Join(t.TempDir(), "printer.conf")
	err := os.WriteFile(path, []byte(content), 0644)
	if err != nil {
		t.Fatalf("%s", err)
	}

	return IppFileParse(path, vars, handler)
}

// Compare parsed attributes against expected
func testIppFileAttrs(t *testing.T, present, expected goipp.Attributes) {
	if !present.Similar(expected) {
		f := goipp.NewFormatter()
		f.Printf("attributes mismatch:")

		f.Printf("expected:")
		f.SetIndent(4)
		f.FmtAttributes(expected)
		f.SetIndent(0)

		f.Printf("present:")
		f.SetIndent(4)
		f.FmtAttributes(present)
		f.SetIndent(0)

		t.Errorf("%s", f.String())
	}
}

// Test parsing of a complete attribute file
func TestIppFileParse(t *testing.T) {
	handler := &ippFileTestHandler{
		reject: map[string]bool{"printer-state": true},
	}

	msg, err := IppFileParse("testdata/printer.conf", nil, handler)
	if err != nil {
		t.Fatalf("%s", err)
	}

	expected := goipp.Attributes{
		goipp.MakeAttribute("charset-configured",
			goipp.TagCharset, goipp.String("utf-8")),
		goipp.MakeAttr("print-color-mode-supported", goipp.TagKeyword,
			goipp.String("auto"),
			goipp.String("monochrome"),
			goipp.String("color")),
		goipp.MakeAttribute("print-quality-default",
			goipp.TagEnum, goipp.Integer(4)),
		goipp.MakeAttribute("media-bottom-margin-supported",
			goipp.TagInteger, goipp.Integer(423)),
		goipp.MakeAttribute("color-supported",
			goipp.TagBoolean, goipp.Boolean(true)),
		goipp.MakeAttribute("copies-supported",
			goipp.TagRange, goipp.Range{Lower: 1, Upper: 99}),
		goipp.MakeAttribute("printer-resolution-default",
			goipp.TagResolution,
			goipp.Resolution{Xres: 600, Yres: 600, Units: goipp.UnitsDpi}),
		goipp.MakeAttr("printer-resolution-supported", goipp.TagResolution,
			goipp.Resolution{Xres: 300, Yres: 300, Units: goipp.UnitsDpi},
			goipp.Resolution{Xres: 600, Yres: 600, Units: goipp.UnitsDpi}),
		goipp.MakeAttr("document-format-supported", goipp.TagMimeType,
			goipp.String("application/pdf"),
			goipp.String("image/pwg-raster")),
		goipp.MakeAttribute("printer-more-info",
			goipp.TagURI, goipp.String("http://example.local/")),
		goipp.MakeAttribute("media-default",
			goipp.TagName, goipp.String("na_letter_8.5x11in")),
		goipp.MakeAttribute("printer-location",
			goipp.TagText, goipp.String(`Room 101, "The Lab"`)),
		goipp.MakeAttribute("printer-config-change-date-time",
			goipp.TagDateTime,
			goipp.Time{Time: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}),
		goipp.MakeAttribute("printer-geo-location",
			goipp.TagUnknown, goipp.Void{}),
		goipp.MakeAttr("media-supported", goipp.TagKeyword,
			goipp.String("na_letter_8.5x11in"),
			goipp.String("iso_a4_210x297mm"),
			goipp.String("{UNDEFINED}")),
		goipp.MakeAttrCollection("media-col-default",
			goipp.MakeAttribute("media-source",
				goipp.TagKeyword, goipp.String("main")),
			goipp.MakeAttrCollection("media-size",
				goipp.MakeAttribute("x-dimension",
					goipp.TagInteger, goipp.Integer(21590)),
				goipp.MakeAttribute("y-dimension",
					goipp.TagInteger, goipp.Integer(27940)))),
		goipp.MakeAttr("media-size-supported", goipp.TagBeginCollection,
			goipp.Collection{
				goipp.MakeAttribute("x-dimension", goipp.TagRange,
					goipp.Range{Lower: 7620, Upper: 21590}),
				goipp.MakeAttribute("y-dimension", goipp.TagRange,
					goipp.Range{Lower: 12700, Upper: 35560}),
			},
			goipp.Collection{
				goipp.MakeAttribute("x-dimension",
					goipp.TagInteger, goipp.Integer(21000)),
				goipp.MakeAttribute("y-dimension",
					goipp.TagInteger, goipp.Integer(29700)),
			}),
	}

	testIppFileAttrs(t, msg.Printer, expected)

	if len(handler.directives) != 1 || handler.directives[0] != "hello" {
		t.Errorf("TESTDIRECTIVE: got %v", handler.directives)
	}

	if len(handler.errors) != 0 {
		t.Errorf("unexpected parse errors: %v", handler.errors)
	}
}

// Test that a bad value is reported and drops the attribute
// without failing the whole parse
func TestIppFileBadValue(t *testing.T) {
	handler := &ippFileTestHandler{}

	msg, err := ippFileParseString(t,
		"ATTR integer copies-default 1,oops\n"+
			"ATTR boolean color-supported yes\n",
		nil, handler)
	if err != nil {
		t.Fatalf("%s", err)
	}

	if len(handler.errors) != 1 {
		t.Fatalf("expected 1 recoverable error, got %d", len(handler.errors))
	}

	expected := `Attribute "copies-default": Bad integer value "oops"`
	confErr := handler.errors[0].(*ConfError)
	if confErr.Message != expected {
		t.Errorf("error: expected %q, got %q", expected, confErr.Message)
	}

	// The bad attribute is dropped, the good one is kept
	testIppFileAttrs(t, msg.Printer, goipp.Attributes{
		goipp.MakeAttribute("color-supported",
			goipp.TagBoolean, goipp.Boolean(true)),
	})
}

// Test variable expansion and DEFINE isolation
func TestIppFileVars(t *testing.T) {
	vars := map[string]string{"PORT": "631"}
	handler := &ippFileTestHandler{}

	msg, err := ippFileParseString(t,
		"DEFINE HOST printer.local\n"+
			`ATTR uri printer-more-info "http://{HOST}:{PORT}/info"`+"\n",
		vars, handler)
	if err != nil {
		t.Fatalf("%s", err)
	}

	testIppFileAttrs(t, msg.Printer, goipp.Attributes{
		goipp.MakeAttribute("printer-more-info", goipp.TagURI,
			goipp.String("http://printer.local:631/info")),
	})

	// DEFINE must not leak into the caller's map
	if len(vars) != 1 {
		t.Errorf("DEFINE modified the caller's variables: %v", vars)
	}
}

// Test fatal parse errors
func TestIppFileErrors(t *testing.T) {
	testData := []struct{ content, message string }{
		{"ATTR", "Missing ATTR value tag"},
		{"ATTR badtag copies-default 1", `Bad ATTR value tag "badtag"`},
		{"ATTR integer", "Missing ATTR name"},
		{"ATTR integer copies-default", "Missing ATTR value"},
		{"ATTR integer copies-default {", `Unexpected '{' in "integer" value`},
		{
			"ATTR collection media-col-default { MEMBER integer x-dimension 1",
			"Missing '}'",
		},
		{
			"ATTR collection media-col-default { SIZE }",
			`Expected MEMBER or '}', got "SIZE"`,
		},
		{
			"ATTR collection media-col-default { MEMBER badtag x-dimension }",
			`Bad MEMBER value tag "badtag"`,
		},
		{
			"ATTR collection media-col-default { MEMBER integer x-dimension }",
			"Missing MEMBER value",
		},
		{
			"ATTR collection media-col-default { MEMBER collection media-size nope } }",
			`Expected '{', got "nope"`,
		},
		{"DEFINE", "Missing DEFINE name"},
		{"DEFINE MEDIA", "Missing DEFINE value"},
		{"NOSUCHDIRECTIVE foo", `Unknown directive "NOSUCHDIRECTIVE"`},
		{`ATTR text printer-location "unterminated`, "Unterminated string"},
	}

	for _, data := range testData {
		handler := &ippFileTestHandler{}
		_, err := ippFileParseString(t, data.content, nil, handler)

		confErr, ok := err.(*ConfError)
		if !ok {
			t.Errorf("%q: expected *ConfError, got %v", data.content, err)
			continue
		}

		if confErr.Message != data.message {
			t.Errorf("%q: expected %q, got %q",
				data.content, data.message, confErr.Message)
		}
	}
}
