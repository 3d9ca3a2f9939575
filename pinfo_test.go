/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Tests for printer information loading
 */

package main

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/OpenPrinting/goipp"
)

// Test printer configuration loading
func TestPrinterInfoLoad(t *testing.T) {
	// The group database differs between machines, so the
	// test uses the group this process belongs to
	group, grpErr := user.LookupGroupId(strconv.Itoa(os.Getgid()))

	content := "# Office printer\n" +
		"Make HP\n" +
		"Model \"LaserJet MFP M28\"\n" +
		"Command /usr/libexec/ippserver/print\n" +
		"DeviceURI socket://192.168.1.70:9100\n" +
		"OutputFormat application/vnd.hp-pcl\n" +
		"Strings en /usr/share/ippserver/en.strings\n" +
		"Strings de /usr/share/ippserver/de.strings\n" +
		"ATTR text printer-location \"Room 101\"\n" +
		"ATTR enum printer-state 3\n"

	if grpErr == nil {
		content += "AuthPrintGroup " + group.Name + "\n"
	}

	path := filepath.Join(t.TempDir(), "office.conf")
	err := os.WriteFile(path, []byte(content), 0644)
	if err != nil {
		t.Fatalf("%s", err)
	}

	pinfo := &PrinterInfo{}
	err = pinfo.Load(path)
	if err != nil {
		t.Fatalf("%s", err)
	}

	if pinfo.Make != "HP" {
		t.Errorf("Make: expected %q, got %q", "HP", pinfo.Make)
	}

	if pinfo.Model != "LaserJet MFP M28" {
		t.Errorf("Model: expected %q, got %q",
			"LaserJet MFP M28", pinfo.Model)
	}

	if pinfo.Command != "/usr/libexec/ippserver/print" {
		t.Errorf("Command: got %q", pinfo.Command)
	}

	if pinfo.DeviceURI != "socket://192.168.1.70:9100" {
		t.Errorf("DeviceURI: got %q", pinfo.DeviceURI)
	}

	if pinfo.OutputFormat != "application/vnd.hp-pcl" {
		t.Errorf("OutputFormat: got %q", pinfo.OutputFormat)
	}

	if grpErr == nil && pinfo.PrintGroup != group.Gid {
		t.Errorf("PrintGroup: expected %q, got %q",
			group.Gid, pinfo.PrintGroup)
	}

	// Localizations come out sorted by language
	if len(pinfo.Strings) != 2 ||
		pinfo.Strings[0].Lang != "de" || pinfo.Strings[1].Lang != "en" {
		t.Errorf("Strings: got %v", pinfo.Strings)
	}

	// Configured attributes are loaded, generated ones are dropped
	testIppFileAttrs(t, pinfo.Attrs.Printer, goipp.Attributes{
		goipp.MakeAttribute("printer-location",
			goipp.TagText, goipp.String("Room 101")),
	})
}

// Test that an unknown group rejects the whole file
func TestPrinterInfoBadGroup(t *testing.T) {
	content := "Make HP\n" +
		"AuthPrintGroup no-such-group-ippserver\n"

	path := filepath.Join(t.TempDir(), "office.conf")
	err := os.WriteFile(path, []byte(content), 0644)
	if err != nil {
		t.Fatalf("%s", err)
	}

	pinfo := &PrinterInfo{}
	err = pinfo.Load(path)
	if err == nil {
		t.Fatalf("load succeeded with unknown AuthPrintGroup")
	}

	if !strings.Contains(err.Error(), "AuthPrintGroup") {
		t.Errorf("error doesn't name the directive: %s", err)
	}

	// Attributes are only assigned on success
	if pinfo.Attrs != nil {
		t.Errorf("attributes retained after failed load")
	}
}

// Test the run-time attribute filter
func TestIppAttrIgnored(t *testing.T) {
	testData := []struct {
		name    string
		ignored bool
	}{
		{"attributes-charset", true},
		{"printer-state", true},
		{"printer-uri-supported", true},
		{"queued-job-count", true},
		{"xri-uri-scheme-supported", true},
		{"printer-location", false},
		{"media-default", false},
		{"", false},
	}

	for _, data := range testData {
		if ippAttrIgnored(data.name) != data.ignored {
			t.Errorf("ippAttrIgnored(%q): expected %v",
				data.name, data.ignored)
		}
	}
}
