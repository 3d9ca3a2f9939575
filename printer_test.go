/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Tests for printer object
 */

package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/OpenPrinting/goipp"
)

// printerAttr searches the printer attributes by name
func printerAttr(p *Printer, name string) (goipp.Attribute, bool) {
	for _, attr := range p.Info.Attrs.Printer {
		if attr.Name == name {
			return attr, true
		}
	}
	return goipp.Attribute{}, false
}

// Check that a printer attribute has the expected single value
func testPrinterAttr(t *testing.T, p *Printer, name, expected string) {
	attr, found := printerAttr(p, name)
	if !found {
		t.Errorf("attribute %q is missing", name)
		return
	}

	if len(attr.Values) != 1 || attr.Values[0].V.String() != expected {
		t.Errorf("attribute %q: expected %q, got %q",
			name, expected, attr.Values.String())
	}
}

// Test NewPrinter attribute generation
func TestNewPrinter(t *testing.T) {
	conf := NewConf(t.TempDir())
	conf.ServerName = "example.local"
	conf.DefaultPort = 631
	conf.State = OpenState(t.TempDir())

	// A printer with no configured attributes gets all the
	// server-generated values
	pinfo := &PrinterInfo{Attrs: &goipp.Message{}}
	p := NewPrinter(conf, "/ipp/print/test", "test", false, pinfo)

	if p.ID != 1 {
		t.Errorf("printer-id: expected 1, got %d", p.ID)
	}

	uuid := UUIDGenerate("example.local", 631, "test")
	if p.UUID != uuid {
		t.Errorf("printer-uuid: expected %q, got %q", uuid, p.UUID)
	}

	if p.DNSSdName != "test" {
		t.Errorf("DNS-SD name: expected %q, got %q", "test", p.DNSSdName)
	}

	testPrinterAttr(t, p, "printer-name", "test")
	testPrinterAttr(t, p, "printer-uuid", "urn:uuid:"+p.UUID)
	testPrinterAttr(t, p, "printer-uri-supported",
		"ipp://example.local:631/ipp/print/test")
	testPrinterAttr(t, p, "uri-authentication-supported", "none")
	testPrinterAttr(t, p, "uri-security-supported", "tls")
	testPrinterAttr(t, p, "printer-state", "3")

	if _, found := printerAttr(p, "printer-icons"); found {
		t.Errorf("printer-icons must not be generated without an icon")
	}

	// Configured attributes win over the generated ones
	attrs := &goipp.Message{}
	attrs.Printer.Add(goipp.MakeAttribute("printer-uuid",
		goipp.TagURI,
		goipp.String("urn:uuid:01234567-89AB-CDEF-0123-456789abcdef")))
	attrs.Printer.Add(goipp.MakeAttribute("printer-info",
		goipp.TagText, goipp.String("Office printer")))
	attrs.Printer.Add(goipp.MakeAttribute("printer-make-and-model",
		goipp.TagText, goipp.String("Test Printer 9000")))

	pinfo = &PrinterInfo{Attrs: attrs}
	p = NewPrinter(conf, "/ipp/print/office", "office", false, pinfo)

	if p.ID != 2 {
		t.Errorf("printer-id: expected 2, got %d", p.ID)
	}

	if p.UUID != "01234567-89ab-cdef-0123-456789abcdef" {
		t.Errorf("printer-uuid is not normalized: %q", p.UUID)
	}

	// printer-info wins over printer-make-and-model
	if p.DNSSdName != "Office printer" {
		t.Errorf("DNS-SD name: expected %q, got %q",
			"Office printer", p.DNSSdName)
	}

	// The configured value is kept as written
	testPrinterAttr(t, p, "printer-uuid",
		"urn:uuid:01234567-89AB-CDEF-0123-456789abcdef")
}

// Test the job history
func TestPrinterJobs(t *testing.T) {
	p := &Printer{maxHistory: 3}

	for i := 1; i <= 5; i++ {
		job := p.AddJob(fmt.Sprintf("job-%d", i), "user")
		if job.ID != i {
			t.Errorf("job ID: expected %d, got %d", i, job.ID)
		}
	}

	// Fresh jobs are only trimmed down to the history limit
	p.CleanJobs()

	jobs := p.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("after cleanup: %d jobs, expected 3", len(jobs))
	}

	// The oldest entries are dropped first
	if jobs[0].Name != "job-3" || jobs[2].Name != "job-5" {
		t.Errorf("wrong jobs survived: %q .. %q",
			jobs[0].Name, jobs[2].Name)
	}

	// Job IDs don't restart after cleanup
	if job := p.AddJob("one-more", "user"); job.ID != 6 {
		t.Errorf("job ID: expected 6, got %d", job.ID)
	}

	// Expired jobs are dropped regardless of the limit
	for _, job := range p.Jobs() {
		job.Completed = job.Completed.Add(-JobHistoryTimeout - time.Minute)
	}

	p.CleanJobs()
	if n := len(p.Jobs()); n != 0 {
		t.Errorf("expired jobs must be dropped, %d left", n)
	}
}
