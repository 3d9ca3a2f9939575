/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Printer information, loaded from a printer configuration file
 */

package main

import (
	"io"
	"os/user"
	"sort"
	"strings"

	"github.com/OpenPrinting/goipp"
)

// Localization binds a language to its localization (.strings) file
type Localization struct {
	Lang string // Language code ("en", "fr-CA", ...)
	File string // Path to the .strings file
}

// PrinterInfo collects everything learned about a printer from its
// configuration file: the static IPP attributes plus the printer
// directives that live outside the attribute space
type PrinterInfo struct {
	PrintGroup   string         // GID allowed to print, "" if anybody
	ProxyGroup   string         // GID allowed to act as proxy, "" if anybody
	Command      string         // Print command
	DeviceURI    string         // Output device URI
	OutputFormat string         // Output MIME type
	Make         string         // Manufacturer name
	Model        string         // Model name
	Icon         string         // Path to the PNG icon, "" if none
	Strings      []Localization // Localizations, sorted by language
	Attrs        *goipp.Message // Static printer attributes
}

// Load reads a printer configuration file
func (pinfo *PrinterInfo) Load(path string) error {
	msg, err := IppFileParse(path, nil, pinfo)
	if err != nil {
		return err
	}

	pinfo.Attrs = msg
	return nil
}

// ParseToken handles printer-specific configuration directives.
// It implements the IppFileHandler interface
func (pinfo *PrinterInfo) ParseToken(f *IppFile, token string) (bool, error) {
	var dest *string

	switch {
	case strings.EqualFold(token, "AuthPrintGroup"):
		return true, pinfo.parseGroup(f, token, &pinfo.PrintGroup)
	case strings.EqualFold(token, "AuthProxyGroup"):
		return true, pinfo.parseGroup(f, token, &pinfo.ProxyGroup)
	case strings.EqualFold(token, "Strings"):
		return true, pinfo.parseStrings(f)
	case strings.EqualFold(token, "Command"):
		dest = &pinfo.Command
	case strings.EqualFold(token, "DeviceURI"):
		dest = &pinfo.DeviceURI
	case strings.EqualFold(token, "OutputFormat"):
		dest = &pinfo.OutputFormat
	case strings.EqualFold(token, "Make"):
		dest = &pinfo.Make
	case strings.EqualFold(token, "Model"):
		dest = &pinfo.Model
	default:
		return false, nil
	}

	value, err := f.need(token + " value")
	if err != nil {
		return true, err
	}

	*dest = value
	return true, nil
}

// FilterAttr rejects attributes the server generates at run time.
// It implements the IppFileHandler interface
func (pinfo *PrinterInfo) FilterAttr(name string) bool {
	return !ippAttrIgnored(name)
}

// Error logs a value-level parse problem and lets parsing continue.
// It implements the IppFileHandler interface
func (pinfo *PrinterInfo) Error(err error) {
	Log.Error('!', "%s", err)
}

// parseGroup reads a directive whose value must name a group in the
// system group database and stores the group's GID
func (pinfo *PrinterInfo) parseGroup(f *IppFile, token string, gid *string) error {
	value, err := f.need(token + " value")
	if err != nil {
		return err
	}

	group, err := user.LookupGroup(value)
	if err != nil {
		return f.errorf("Unknown %s %q", token, value)
	}

	*gid = group.Gid
	return nil
}

// parseStrings reads the Strings directive:
//
//	Strings lang filename
func (pinfo *PrinterInfo) parseStrings(f *IppFile) error {
	lang, err := f.ReadToken()
	if err == io.EOF {
		return f.errorf("Missing STRINGS language")
	}
	if err != nil {
		return err
	}

	file, err := f.ReadToken()
	if err == io.EOF {
		return f.errorf("Missing STRINGS filename")
	}
	if err != nil {
		return err
	}

	pinfo.AddStrings(lang, file)
	Log.Debug(' ', "Added strings file %q for language %q", file, lang)

	return nil
}

// AddStrings binds a localization file to a language, keeping the
// list sorted by language
func (pinfo *PrinterInfo) AddStrings(lang, file string) {
	i := sort.Search(len(pinfo.Strings), func(n int) bool {
		return pinfo.Strings[n].Lang >= lang
	})

	pinfo.Strings = append(pinfo.Strings, Localization{})
	copy(pinfo.Strings[i+1:], pinfo.Strings[i:])
	pinfo.Strings[i] = Localization{Lang: lang, File: file}
}

// ippAttrsIgnored lists printer attributes the server generates
// itself. Values for these attributes never come from a printer
// configuration file. Must be sorted
var ippAttrsIgnored = []string{
	"attributes-charset",
	"attributes-natural-language",
	"charset-configured",
	"charset-supported",
	"device-service-count",
	"device-uuid",
	"document-format-varying-attributes",
	"job-settable-attributes-supported",
	"printer-alert",
	"printer-alert-description",
	"printer-camera-image-uri",
	"printer-charge-info",
	"printer-charge-info-uri",
	"printer-config-change-date-time",
	"printer-config-change-time",
	"printer-current-time",
	"printer-detailed-status-messages",
	"printer-dns-sd-name",
	"printer-fax-log-uri",
	"printer-get-attributes-supported",
	"printer-icons",
	"printer-id",
	"printer-is-accepting-jobs",
	"printer-message-date-time",
	"printer-message-from-operator",
	"printer-message-time",
	"printer-more-info",
	"printer-service-type",
	"printer-settable-attributes-supported",
	"printer-state",
	"printer-state-message",
	"printer-state-reasons",
	"printer-static-resource-directory-uri",
	"printer-static-resource-k-octets-free",
	"printer-static-resource-k-octets-supported",
	"printer-strings-languages-supported",
	"printer-strings-uri",
	"printer-supply-info-uri",
	"printer-up-time",
	"printer-uri-supported",
	"printer-xri-supported",
	"queued-job-count",
	"uri-authentication-supported",
	"uri-security-supported",
	"xri-authentication-supported",
	"xri-security-supported",
	"xri-uri-scheme-supported",
}

// ippAttrIgnored reports whether the named attribute is dropped
// when loading a printer configuration file
func ippAttrIgnored(name string) bool {
	i := sort.SearchStrings(ippAttrsIgnored, name)
	return i < len(ippAttrsIgnored) && ippAttrsIgnored[i] == name
}
