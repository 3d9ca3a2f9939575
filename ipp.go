/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * DNS-SD service information, built from printer attributes
 */

package main

import (
	"fmt"
	"strings"

	"github.com/OpenPrinting/goipp"
)

// DNSSdServices builds the DNS-SD services advertised for the
// printer.
//
// This is where information comes from:
//
//	service type: "_ipp._tcp", or "_ipp-3d._tcp" for a 3D queue;
//	regular queues are additionally advertised under the "_print"
//	subtype
//
//	TXT fields:
//	  air:              "username,password" when authentication
//	                    is configured, "none" otherwise
//	  mopria-certified: "mopria-certified"
//	  rp:               printer's resource path, without the
//	                    leading slash
//	  qtotal:           hardcoded as "1"
//	  kind:             "printer-kind"
//	  URF:              "urf-supported"
//	  UUID:             printer's UUID
//	  Color:            "color-supported"
//	  Duplex:           search "sides-supported" for strings with
//	                    prefix "one" or "two"
//	  PaperMax:         classification of the largest size in
//	                    "media-size-supported"
//	  note:             "printer-location"
//	  ty:               "printer-make-and-model"
//	  adminurl:         printer's own page on this server
//	  product:          "printer-make-and-model", in round brackets
//	  pdl:              "document-format-supported", truncated
//	                    to fit the TXT record constraints
//	  TLS:              "1.2", only when encryption is enabled
//	  txtvers:          hardcoded as "1"
//
// The embedded web console is advertised as a companion
// "_http._tcp" service under the same instance name
func (p *Printer) DNSSdServices(conf *Conf) DnsSdServices {
	attrs := newIppDecoder(p.Info.Attrs)

	svcType := "_ipp._tcp"
	if p.Is3D {
		svcType = "_ipp-3d._tcp"
	}

	info := DnsSdSvcInfo{Type: svcType, Port: conf.Port()}
	if !p.Is3D {
		// Clients browse for printers by the "_print" subtype
		info.SubTypes = []string{"_print._sub._ipp._tcp"}
	}

	air := "none"
	if conf.Authentication {
		air = "username,password"
	}

	info.Txt.Add("air", air)
	info.Txt.IfNotEmpty("mopria-certified", attrs.strSingle("mopria-certified"))
	info.Txt.Add("rp", strings.TrimPrefix(p.Resource, "/"))
	info.Txt.Add("qtotal", "1")
	info.Txt.IfNotEmpty("kind", attrs.strJoined("printer-kind"))
	info.Txt.IfNotEmpty("URF", attrs.strJoined("urf-supported"))
	info.Txt.IfNotEmpty("UUID", p.UUID)
	info.Txt.IfNotEmpty("Color", attrs.getBool("color-supported"))
	info.Txt.IfNotEmpty("Duplex", attrs.getDuplex())
	info.Txt.IfNotEmpty("PaperMax", attrs.getPaperMax())
	info.Txt.Add("note", attrs.strSingle("printer-location"))
	info.Txt.IfNotEmpty("ty", attrs.strSingle("printer-make-and-model"))
	info.Txt.Add("adminurl", fmt.Sprintf("http://%s:%d%s",
		conf.ServerName, conf.Port(), p.Resource))
	info.Txt.IfNotEmpty("product", attrs.strBrackets("printer-make-and-model"))
	info.Txt.AddPDL("pdl", attrs.strJoined("document-format-supported"))
	if conf.Encryption != EncryptionNever {
		info.Txt.Add("TLS", "1.2")
	}
	info.Txt.Add("txtvers", "1")

	Log.Debug('>', "%q: %s TXT record:", p.DNSSdName, info.Type)
	for _, txt := range info.Txt {
		Log.Debug(' ', "  %s=%s", txt.Key, txt.Value)
	}

	web := DnsSdSvcInfo{Type: "_http._tcp", Port: conf.Port()}
	web.Txt.Add("path", "/")

	return DnsSdServices{info, web}
}

// ippAttrs represents a collection of IPP printer attributes,
// enrolled into a map for convenient access
type ippAttrs map[string]goipp.Values

// Create new ippAttrs
func newIppDecoder(msg *goipp.Message) ippAttrs {
	attrs := make(ippAttrs)

	// The message is scanned backwards, so when an attribute
	// is duplicated, its first occurrence wins
	for i := len(msg.Printer) - 1; i >= 0; i-- {
		attr := msg.Printer[i]
		attrs[attr.Name] = attr.Values
	}

	return attrs
}

// getDuplex returns "T" if printer supports two-sided
// printing, "F" if not and "" if it can't tell
func (attrs ippAttrs) getDuplex() string {
	one, two := false, false
	for _, s := range attrs.getStrings("sides-supported") {
		switch {
		case strings.HasPrefix(s, "one"):
			one = true
		case strings.HasPrefix(s, "two"):
			two = true
		}
	}

	switch {
	case two:
		return "T"
	case one:
		return "F"
	}

	return ""
}

// getPaperMax returns the classification of the largest size in
// the "media-size-supported" attribute, "" if it can't tell
func (attrs ippAttrs) getPaperMax() string {
	vals, ok := attrs["media-size-supported"]
	if !ok {
		return ""
	}

	var max PaperSize
	for _, v := range vals {
		col, ok := v.V.(goipp.Collection)
		if !ok {
			continue
		}

		size := PaperSize{
			Width:  ippDimension(col, "x-dimension"),
			Height: ippDimension(col, "y-dimension"),
		}

		if size.Width > 0 && size.Height > 0 &&
			size.Width*size.Height > max.Width*max.Height {
			max = size
		}
	}

	if max == (PaperSize{}) {
		return ""
	}

	return max.Classify()
}

// ippDimension returns a dimension member of a media-size
// collection, in IPP units (1/100 mm). Either an integer value or
// the upper bound of a rangeOfInteger is accepted
func ippDimension(col goipp.Collection, name string) int {
	for _, attr := range col {
		if attr.Name != name || len(attr.Values) == 0 {
			continue
		}

		switch v := attr.Values[0].V.(type) {
		case goipp.Integer:
			return int(v)
		case goipp.Range:
			return v.Upper
		}
	}

	return 0
}

// find returns the values of the first attribute from the names
// list that is present and carries the expected value type. Extra
// names serve as fallbacks. nil is returned when nothing matches
func (attrs ippAttrs) find(t goipp.Type, names ...string) goipp.Values {
	for _, name := range names {
		vals := attrs[name]
		if len(vals) != 0 && vals[0].V.Type() == t {
			return vals
		}
	}

	return nil
}

// getStrings returns all string values of an attribute, nil if the
// attribute is missing or is not of a string type
func (attrs ippAttrs) getStrings(names ...string) []string {
	vals := attrs.find(goipp.TypeString, names...)
	if vals == nil {
		return nil
	}

	strs := make([]string, len(vals))
	for i := range vals {
		strs[i] = string(vals[i].V.(goipp.String))
	}

	return strs
}

// Get a single-string attribute
func (attrs ippAttrs) strSingle(names ...string) string {
	if strs := attrs.getStrings(names...); len(strs) > 0 {
		return strs[0]
	}

	return ""
}

// Get a multi-string attribute, represented as a comma-separated list
func (attrs ippAttrs) strJoined(names ...string) string {
	return strings.Join(attrs.getStrings(names...), ",")
}

// Get a single string, and put it into brackets
func (attrs ippAttrs) strBrackets(names ...string) string {
	s := attrs.strSingle(names...)
	if s != "" {
		s = "(" + s + ")"
	}
	return s
}

// Get boolean attribute. Returns "F" or "T" if attribute is found,
// empty string otherwise
func (attrs ippAttrs) getBool(names ...string) string {
	vals := attrs.find(goipp.TypeBoolean, names...)

	switch {
	case vals == nil:
		return ""
	case bool(vals[0].V.(goipp.Boolean)):
		return "T"
	}

	return "F"
}
