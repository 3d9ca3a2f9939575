/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * PDL list truncation tests
 */

package main

import (
	"strings"
	"testing"
)

// TestAddPDL tests that overlong document format lists are
// truncated at the comma boundary
func TestAddPDL(t *testing.T) {
	// The limit for the "pdl" key is 255 - len("pdl") - 1 == 251
	tests := []struct {
		in, out string
	}{
		// Short list passes unchanged
		{
			"application/pdf,image/pwg-raster",
			"application/pdf,image/pwg-raster",
		},

		// Exactly at the limit, passes unchanged
		{
			strings.Repeat("x", 247) + ",pdf",
			strings.Repeat("x", 247) + ",pdf",
		},

		// One character over, cut back to the last comma
		{
			strings.Repeat("x", 248) + ",pdf",
			strings.Repeat("x", 248),
		},

		// A single token that doesn't fit leaves nothing
		{
			"application/" + strings.Repeat("x", 300),
			"",
		},

		// Format list of a real multifunction printer,
		// formats that come first survive
		{
			"application/vnd.hp-PCL,application/vnd.hp-PCLXL," +
				"application/postscript,application/msword," +
				"application/pdf,image/jpeg,image/urf," +
				"image/pwg-raster," +
				"application/PCLm," +
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document," +
				"application/vnd.ms-excel," +
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet," +
				"application/vnd.ms-powerpoint," +
				"application/vnd.openxmlformats-officedocument.presentationml.presentation," +
				"application/octet-stream",

			"application/vnd.hp-PCL,application/vnd.hp-PCLXL," +
				"application/postscript,application/msword," +
				"application/pdf,image/jpeg,image/urf," +
				"image/pwg-raster,application/PCLm," +
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		},
	}

	for _, test := range tests {
		var txt DnsSdTxtRecord
		txt.AddPDL("pdl", test.in)

		out := ""
		if len(txt) > 0 {
			out = txt[0].Value
		}

		if out != test.out {
			t.Errorf("AddPDL(%q):\nexpected %q\ngot      %q",
				test.in, test.out, out)
		}
	}
}
