/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Tests for privacy attribute resolution
 */

package main

import (
	"reflect"
	"testing"

	"github.com/OpenPrinting/goipp"
)

// Test privacy policy resolution
func TestResolvePrivacy(t *testing.T) {
	type testData struct {
		class   PrivacyClass // Object class
		attrs   string       // Configured selector
		summary []string     // Expected advertised summary
		hidden  []string     // Names that must be suppressed
		visible []string     // Names that must not be
	}

	tests := []testData{
		{
			// Nothing is hidden
			class:   PrivacyJob,
			attrs:   "none",
			summary: []string{"none"},
			visible: []string{
				"job-name",
				"job-originating-user-name",
				"media",
			},
		},

		{
			// Everything in the reference tables is hidden
			class:   PrivacyJob,
			attrs:   "all",
			summary: []string{"all"},
			hidden: []string{
				"job-name",
				"job-originating-user-name",
				"job-phone-number",
				"media",
			},
			visible: []string{"job-id", "job-uri"},
		},

		{
			// "default" hides both attribute groups
			class:   PrivacyJob,
			attrs:   "default",
			summary: []string{"default"},
			hidden: []string{
				"job-originating-user-name",
				"media",
			},
			visible: []string{"job-id"},
		},

		{
			// Group selector plus a literal name. The trailing
			// comma must not produce an empty summary entry
			class:   PrivacyJob,
			attrs:   "job-description,job-phone-number,",
			summary: []string{"job-description", "job-phone-number"},
			hidden:  []string{"job-name", "job-phone-number"},
			visible: []string{"media", "sides"},
		},

		{
			// "all" and "none" within a list are ignored
			class:   PrivacyJob,
			attrs:   "none,job-phone-number",
			summary: []string{"job-phone-number"},
			hidden:  []string{"job-phone-number"},
			visible: []string{"job-name"},
		},

		{
			// Group selectors follow the object class
			class:   PrivacyDocument,
			attrs:   "document-template",
			summary: []string{"document-template"},
			hidden:  []string{"copies", "sides"},
			visible: []string{"document-name", "document-uri"},
		},

		{
			// Group selector of another class is taken literally
			class:   PrivacyJob,
			attrs:   "document-template",
			summary: []string{"document-template"},
			hidden:  []string{"document-template"},
			visible: []string{"copies"},
		},

		{
			class:   PrivacySubscription,
			attrs:   "all",
			summary: []string{"all"},
			hidden: []string{
				"notify-subscriber-user-name",
				"notify-recipient-uri",
			},
			visible: []string{"notify-printer-uri"},
		},
	}

	for _, test := range tests {
		pol := ResolvePrivacy(test.class, "owner", test.attrs)

		if !reflect.DeepEqual(pol.Summary, test.summary) {
			t.Errorf("ResolvePrivacy(%s,%q): summary expected %q, got %q",
				test.class, test.attrs, test.summary, pol.Summary)
		}

		for _, name := range test.hidden {
			if !pol.Hidden(name) {
				t.Errorf("ResolvePrivacy(%s,%q): %q must be hidden",
					test.class, test.attrs, name)
			}
		}

		for _, name := range test.visible {
			if pol.Hidden(name) {
				t.Errorf("ResolvePrivacy(%s,%q): %q must not be hidden",
					test.class, test.attrs, name)
			}
		}
	}
}

// Check the advertised form of the policy
func testPrivacyAttributes(t *testing.T, pol *PrivacyPolicy,
	expected goipp.Attributes) {

	attrs := pol.Attributes()
	if !attrs.Equal(expected) {
		f := goipp.NewFormatter()
		f.Printf("privacy attributes mismatch:")

		f.Printf("expected:")
		f.SetIndent(4)
		f.FmtAttributes(expected)
		f.SetIndent(0)

		f.Printf("present:")
		f.SetIndent(4)
		f.FmtAttributes(attrs)
		f.SetIndent(0)

		t.Errorf("%s", f.String())
	}
}

// Test the advertised form of the policy
func TestPrivacyAttributes(t *testing.T) {
	pol := ResolvePrivacy(PrivacyJob, "owner", "job-description,job-phone-number")
	testPrivacyAttributes(t, pol, goipp.Attributes{
		goipp.MakeAttr("job-privacy-attributes", goipp.TagKeyword,
			goipp.String("job-description"),
			goipp.String("job-phone-number")),
		goipp.MakeAttribute("job-privacy-scope",
			goipp.TagKeyword, goipp.String("owner")),
	})

	pol = ResolvePrivacy(PrivacySubscription, "all", "none")
	testPrivacyAttributes(t, pol, goipp.Attributes{
		goipp.MakeAttribute("subscription-privacy-attributes",
			goipp.TagKeyword, goipp.String("none")),
		goipp.MakeAttribute("subscription-privacy-scope",
			goipp.TagKeyword, goipp.String("all")),
	})
}
