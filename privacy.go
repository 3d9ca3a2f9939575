/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Privacy attribute resolution
 */

package main

import (
	"strings"

	"github.com/OpenPrinting/goipp"
)

// PrivacyClass identifies an object class with its own privacy policy
type PrivacyClass int

const (
	PrivacyDocument PrivacyClass = iota
	PrivacyJob
	PrivacySubscription
)

// String returns the class name, as used in attribute names
func (class PrivacyClass) String() string {
	switch class {
	case PrivacyDocument:
		return "document"
	case PrivacyJob:
		return "job"
	case PrivacySubscription:
		return "subscription"
	}
	return "unknown"
}

// PrivacyPolicy is the resolved privacy configuration of one object
// class. It is computed once at startup and never changes
type PrivacyPolicy struct {
	Class    PrivacyClass    // Object class
	Scope    string          // "all", "default", "owner" or "none"
	Summary  []string        // Advertised <class>-privacy-attributes values
	Suppress map[string]bool // Names hidden from unauthorized callers
}

// ResolvePrivacy resolves a configured attribute selector string into
// the privacy policy of an object class.
//
// The selector is either the word "none" (nothing is hidden), the
// word "all" (everything in the class reference tables is hidden) or
// a comma-separated list of attribute names and the group selectors
// "default", "<class>-description" and "<class>-template"
func ResolvePrivacy(class PrivacyClass, scope, attrs string) *PrivacyPolicy {
	pol := &PrivacyPolicy{
		Class:    class,
		Scope:    scope,
		Suppress: make(map[string]bool),
	}

	ref := &privacyReference[class]

	switch attrs {
	case "none":
		pol.Summary = []string{"none"}

	case "all":
		pol.Summary = []string{"all"}
		pol.suppress(ref.description)
		pol.suppress(ref.template)

	default:
		tokens := strings.Split(attrs, ",")
		if n := len(tokens); tokens[n-1] == "" {
			tokens = tokens[:n-1]
		}

		for _, token := range tokens {
			if token == "all" || token == "none" {
				continue
			}

			pol.Summary = append(pol.Summary, token)

			switch token {
			case "default":
				pol.suppress(ref.description)
				pol.suppress(ref.template)
			case class.String() + "-description":
				pol.suppress(ref.description)
			case class.String() + "-template":
				pol.suppress(ref.template)
			default:
				pol.Suppress[token] = true
			}
		}
	}

	return pol
}

// Hidden reports whether the named attribute must be suppressed
// from unauthorized callers
func (pol *PrivacyPolicy) Hidden(name string) bool {
	return pol.Suppress[name]
}

// Attributes returns the advertised form of the policy: the
// multi-valued <class>-privacy-attributes summary, when there is
// one, followed by the <class>-privacy-scope keyword
func (pol *PrivacyPolicy) Attributes() goipp.Attributes {
	var attrs goipp.Attributes

	if len(pol.Summary) != 0 {
		attr := goipp.Attribute{Name: pol.Class.String() + "-privacy-attributes"}
		for _, value := range pol.Summary {
			attr.Values.Add(goipp.TagKeyword, goipp.String(value))
		}
		attrs.Add(attr)
	}

	attrs.Add(goipp.MakeAttribute(pol.Class.String()+"-privacy-scope",
		goipp.TagKeyword, goipp.String(pol.Scope)))

	return attrs
}

// suppress adds names to the suppression set
func (pol *PrivacyPolicy) suppress(names []string) {
	for _, name := range names {
		pol.Suppress[name] = true
	}
}

// privacyReference holds the per-class reference tables. The
// "description" table lists status attributes, the "template" table
// lists request-time attributes
var privacyReference = [...]struct {
	description []string
	template    []string
}{
	PrivacyDocument: {
		privacyDocumentDescription,
		privacyDocumentTemplate,
	},
	PrivacyJob: {
		privacyJobDescription,
		privacyJobTemplate,
	},
	PrivacySubscription: {
		privacySubscriptionDescription,
		privacySubscriptionTemplate,
	},
}

// document-description attributes
var privacyDocumentDescription = []string{
	"compression",
	"copies-actual",
	"cover-back-actual",
	"cover-front-actual",
	"current-page-order",
	"date-time-at-completed",
	"date-time-at-creation",
	"date-time-at-processing",
	"detailed-status-messages",
	"document-access-errors",
	"document-charset",
	"document-digital-signature",
	"document-format",
	"document-format-details",
	"document-format-detected",
	"document-format-version",
	"document-format-version-detected",
	"document-message",
	"document-metadata",
	"document-name",
	"document-natural-language",
	"document-state",
	"document-state-message",
	"document-state-reasons",
	"document-uri",
	"errors-count",
	"finishings-actual",
	"finishings-col-actual",
	"force-front-side-actual",
	"imposition-template-actual",
	"impressions",
	"impressions-col",
	"impressions-completed",
	"impressions-completed-col",
	"impressions-completed-current-copy",
	"insert-sheet-actual",
	"k-octets",
	"k-octets-processed",
	"last-document",
	"materials-col-actual",
	"media-actual",
	"media-col-actual",
	"media-input-tray-check-actual",
	"media-sheets",
	"media-sheets-col",
	"media-sheets-completed",
	"media-sheets-completed-col",
	"more-info",
	"multiple-object-handling-actual",
	"number-up-actual",
	"orientation-requested-actual",
	"output-bin-actual",
	"output-device-assigned",
	"overrides-actual",
	"page-delivery-actual",
	"page-order-received-actual",
	"page-ranges-actual",
	"pages",
	"pages-col",
	"pages-completed",
	"pages-completed-col",
	"pages-completed-current-copy",
	"platform-temperature-actual",
	"presentation-direction-number-up-actual",
	"print-accuracy-actual",
	"print-base-actual",
	"print-color-mode-actual",
	"print-content-optimize-actual",
	"print-objects-actual",
	"print-quality-actual",
	"print-rendering-intent-actual",
	"print-scaling-actual",
	"print-supports-actual",
	"printer-resolution-actual",
	"printer-up-time",
	"separator-sheets-actual",
	"sheet-completed-copy-number",
	"sides-actual",
	"time-at-completed",
	"time-at-creation",
	"time-at-processing",
	"x-image-position-actual",
	"x-image-shift-actual",
	"x-side1-image-shift-actual",
	"x-side2-image-shift-actual",
	"y-image-position-actual",
	"y-image-shift-actual",
	"y-side1-image-shift-actual",
	"y-side2-image-shift-actual",
}

// document-template attributes
var privacyDocumentTemplate = []string{
	"copies",
	"cover-back",
	"cover-front",
	"feed-orientation",
	"finishings",
	"finishings-col",
	"font-name-requested",
	"font-size-requested",
	"force-front-side",
	"imposition-template",
	"insert-sheet",
	"materials-col",
	"media",
	"media-col",
	"media-input-tray-check",
	"multiple-document-handling",
	"multiple-object-handling",
	"number-up",
	"orientation-requested",
	"overrides",
	"page-delivery",
	"page-order-received",
	"page-ranges",
	"pages-per-subset",
	"pdl-init-file",
	"platform-temperature",
	"presentation-direction-number-up",
	"print-accuracy",
	"print-base",
	"print-color-mode",
	"print-content-optimize",
	"print-objects",
	"print-quality",
	"print-rendering-intent",
	"print-scaling",
	"print-supports",
	"printer-resolution",
	"separator-sheets",
	"sheet-collate",
	"sides",
	"x-image-position",
	"x-image-shift",
	"x-side1-image-shift",
	"x-side2-image-shift",
	"y-image-position",
	"y-image-shift",
	"y-side1-image-shift",
	"y-side2-image-shift",
}

// job-description attributes
var privacyJobDescription = []string{
	"compression-supplied",
	"copies-actual",
	"cover-back-actual",
	"cover-front-actual",
	"current-page-order",
	"date-time-at-completed",
	"date-time-at-creation",
	"date-time-at-processing",
	"destination-statuses",
	"document-charset-supplied",
	"document-digital-signature-supplied",
	"document-format-details-supplied",
	"document-format-supplied",
	"document-message-supplied",
	"document-metadata",
	"document-name-supplied",
	"document-natural-language-supplied",
	"document-overrides-actual",
	"errors-count",
	"finishings-actual",
	"finishings-col-actual",
	"force-front-side-actual",
	"imposition-template-actual",
	"impressions-completed-current-copy",
	"insert-sheet-actual",
	"job-account-id-actual",
	"job-accounting-sheets-actual",
	"job-accounting-user-id-actual",
	"job-attribute-fidelity",
	"job-collation-type",
	"job-collation-type-actual",
	"job-copies-actual",
	"job-cover-back-actual",
	"job-cover-front-actual",
	"job-detailed-status-message",
	"job-document-access-errors",
	"job-error-sheet-actual",
	"job-finishings-actual",
	"job-finishings-col-actual",
	"job-hold-until-actual",
	"job-impressions",
	"job-impressions-col",
	"job-impressions-completed",
	"job-impressions-completed-col",
	"job-k-octets",
	"job-k-octets-processed",
	"job-mandatory-attributes",
	"job-media-sheets",
	"job-media-sheets-col",
	"job-media-sheets-completed",
	"job-media-sheets-completed-col",
	"job-message-from-operator",
	"job-more-info",
	"job-name",
	"job-originating-user-name",
	"job-originating-user-uri",
	"job-pages",
	"job-pages-col",
	"job-pages-completed",
	"job-pages-completed-col",
	"job-pages-completed-current-copy",
	"job-priority-actual",
	"job-save-printer-make-and-model",
	"job-sheet-message-actual",
	"job-sheets-actual",
	"job-sheets-col-actual",
	"job-state",
	"job-state-message",
	"job-state-reasons",
	"materials-col-actual",
	"media-actual",
	"media-col-actual",
	"media-check-input-tray-actual",
	"multiple-document-handling-actual",
	"multiple-object-handling-actual",
	"number-of-documents",
	"number-of-intervening-jobs",
	"number-up-actual",
	"orientation-requested-actual",
	"original-requesting-user-name",
	"output-bin-actual",
	"output-device-assigned",
	"overrides-actual",
	"page-delivery-actual",
	"page-order-received-actual",
	"page-ranges-actual",
	"platform-temperature-actual",
	"presentation-direction-number-up-actual",
	"print-accuracy-actual",
	"print-base-actual",
	"print-color-mode-actual",
	"print-content-optimize-actual",
	"print-objects-actual",
	"print-quality-actual",
	"print-rendering-intent-actual",
	"print-scaling-actual",
	"print-supports-actual",
	"printer-resolution-actual",
	"separator-sheets-actual",
	"sheet-collate-actual",
	"sheet-completed-copy-number",
	"sheet-completed-document-number",
	"sides-actual",
	"time-at-completed",
	"time-at-creation",
	"time-at-processing",
	"warnings-count",
	"x-image-position-actual",
	"x-image-shift-actual",
	"x-side1-image-shift-actual",
	"x-side2-image-shift-actual",
	"y-image-position-actual",
	"y-image-shift-actual",
	"y-side1-image-shift-actual",
	"y-side2-image-shift-actual",
}

// job-template attributes
var privacyJobTemplate = []string{
	"confirmation-sheet-print",
	"copies",
	"cover-back",
	"cover-front",
	"cover-sheet-info",
	"destination-uris",
	"feed-orientation",
	"finishings",
	"finishings-col",
	"font-name-requested",
	"font-size-requested",
	"force-front-side",
	"imposition-template",
	"insert-sheet",
	"job-account-id",
	"job-accounting-sheets",
	"job-accounting-user-id",
	"job-copies",
	"job-cover-back",
	"job-cover-front",
	"job-delay-output-until",
	"job-delay-output-until-time",
	"job-error-action",
	"job-error-sheet",
	"job-finishings",
	"job-finishings-col",
	"job-hold-until",
	"job-hold-until-time",
	"job-message-to-operator",
	"job-phone-number",
	"job-priority",
	"job-recipient-name",
	"job-save-disposition",
	"job-sheets",
	"job-sheets-col",
	"materials-col",
	"media",
	"media-col",
	"media-input-tray-check",
	"multiple-document-handling",
	"multiple-object-handling",
	"number-of-retries",
	"number-up",
	"orientation-requested",
	"output-bin",
	"output-device",
	"overrides",
	"page-delivery",
	"page-order-received",
	"page-ranges",
	"pages-per-subset",
	"pdl-init-file",
	"platform-temperature",
	"presentation-direction-number-up",
	"print-accuracy",
	"print-base",
	"print-color-mode",
	"print-content-optimize",
	"print-objects",
	"print-quality",
	"print-rendering-intent",
	"print-scaling",
	"print-supports",
	"printer-resolution",
	"proof-print",
	"retry-interval",
	"retry-timeout",
	"separator-sheets",
	"sheet-collate",
	"sides",
	"x-image-position",
	"x-image-shift",
	"x-side1-image-shift",
	"x-side2-image-shift",
	"y-image-position",
	"y-image-shift",
	"y-side1-image-shift",
	"y-side2-image-shift",
}

// subscription-description attributes
var privacySubscriptionDescription = []string{
	"notify-lease-expiration-time",
	"notify-sequence-number",
	"notify-subscriber-user-name",
}

// subscription-template attributes
var privacySubscriptionTemplate = []string{
	"notify-attributes",
	"notify-charset",
	"notify-events",
	"notify-lease-duration",
	"notify-natural-language",
	"notify-pull-method",
	"notify-recipient-uri",
	"notify-time-interval",
	"notify-user-data",
}
