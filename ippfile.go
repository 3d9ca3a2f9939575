/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Printer attribute file parser
 */

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPrinting/goipp"
)

// IppFileHandler extends the attribute file parser with
// domain-specific processing. The parser itself understands
// only the generic syntax (comments, quoting, {name} variable
// references, DEFINE and ATTR); everything else is offered to
// the handler
type IppFileHandler interface {
	// ParseToken gives the handler a chance to consume a token
	// and its arguments. It returns true if the token was
	// consumed. Unconsumed tokens abort the parse
	ParseToken(file *IppFile, token string) (bool, error)

	// FilterAttr reports whether an ATTR of the given name
	// should be kept. Rejected attributes are parsed and
	// silently dropped
	FilterAttr(name string) bool

	// Error reports a recoverable value-level problem.
	// Parsing continues after the call
	Error(err error)
}

// IppFile represents a printer attribute file being parsed
type IppFile struct {
	path    string            // Path to the file
	file    *os.File          // Underlying file
	reader  *bufio.Reader     // Reader on a top of file
	buf     bytes.Buffer      // Token assembly buffer
	line    int               // Current line number
	vars    map[string]string // Variables for {name} expansion
	handler IppFileHandler    // Domain callbacks
	attrs   goipp.Attributes  // Attributes collected so far
}

// IppFileParse parses a printer attribute file and returns the
// collected attributes as a message, printer attributes group.
//
// The initial variables are copied; DEFINE directives seen during
// the parse don't modify the caller's map
func IppFileParse(path string, vars map[string]string,
	handler IppFileHandler) (*goipp.Message, error) {

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	f := &IppFile{
		path:    path,
		file:    file,
		reader:  bufio.NewReader(file),
		line:    1,
		vars:    make(map[string]string, len(vars)),
		handler: handler,
	}

	for name, value := range vars {
		f.vars[name] = value
	}

	err = f.parse()
	file.Close()

	if err != nil {
		return nil, err
	}

	msg := &goipp.Message{Version: goipp.DefaultVersion}
	msg.Printer = f.attrs

	return msg, nil
}

// Path returns the path of the file being parsed
func (f *IppFile) Path() string {
	return f.path
}

// Line returns the current line number
func (f *IppFile) Line() int {
	return f.line
}

// parse runs the main parse loop
func (f *IppFile) parse() error {
	for {
		token, err := f.ReadToken()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch {
		case strings.EqualFold(token, "DEFINE"):
			err = f.parseDefine()
		case strings.EqualFold(token, "ATTR"):
			err = f.parseAttr()
		default:
			var ok bool
			ok, err = f.handler.ParseToken(f, token)
			if err == nil && !ok {
				err = f.errorf("Unknown directive %q", token)
			}
		}

		if err != nil {
			return err
		}
	}
}

// parseDefine handles the DEFINE directive:
//
//	DEFINE name value
func (f *IppFile) parseDefine() error {
	name, err := f.need("DEFINE name")
	if err != nil {
		return err
	}

	value, err := f.need("DEFINE value")
	if err != nil {
		return err
	}

	f.vars[name] = value
	return nil
}

// parseAttr handles the ATTR directive:
//
//	ATTR syntax name value [value...]
//
// Values continue to the end of the line. Unquoted values split
// on commas; quoted values are taken as written. Out-of-band
// syntaxes (no-value, unknown, unsupported, ...) take no value.
// Collection values have the form
//
//	{ MEMBER syntax name value ... }
//
// and may nest, span lines and repeat (separated by a comma or
// by the next opening brace)
func (f *IppFile) parseAttr() error {
	syntax, _, ok, err := f.valueToken()
	if err != nil {
		return err
	}
	if !ok {
		return f.errorf("Missing ATTR value tag")
	}

	tag, known := ippTagByName(syntax)
	if !known {
		return f.errorf("Bad ATTR value tag %q", syntax)
	}

	name, _, ok, err := f.valueToken()
	if err != nil {
		return err
	}
	if !ok {
		return f.errorf("Missing ATTR name")
	}

	use := f.handler.FilterAttr(name)
	attr := goipp.Attribute{Name: name}

	if tag.Type() == goipp.TypeVoid {
		attr.Values.Add(tag, goipp.Void{})
		if use {
			f.attrs.Add(attr)
		}
		return nil
	}

	count := 0
	bad := false

	for {
		token, quoted, ok, err := f.valueToken()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		switch {
		case token == "{" && !quoted:
			if tag != goipp.TagBeginCollection {
				return f.errorf("Unexpected '{' in %q value", syntax)
			}

			col, err := f.parseCollection()
			if err != nil {
				return err
			}

			attr.Values.Add(tag, col)
			count++

		case token == "," && !quoted && tag == goipp.TagBeginCollection:
			// Separator between collection values

		case tag == goipp.TagBeginCollection:
			return f.errorf("Bad collection value %q", token)

		default:
			segments := []string{token}
			if !quoted {
				segments = strings.Split(token, ",")
			}

			for _, segment := range segments {
				if segment == "" && !quoted {
					continue
				}

				value, err := ippValueParse(tag, segment)
				if err != nil {
					f.handler.Error(f.errorf("Attribute %q: %s", name, err))
					bad = true
					continue
				}

				attr.Values.Add(tag, value)
				count++
			}
		}
	}

	if count == 0 && !bad {
		return f.errorf("Missing ATTR value")
	}

	// An attribute with rejected values is not loaded
	if use && !bad {
		f.attrs.Add(attr)
	}

	return nil
}

// parseCollection parses a collection body. The opening brace is
// already consumed; parsing stops after the matching '}'
func (f *IppFile) parseCollection() (goipp.Collection, error) {
	col := goipp.Collection{}

	for {
		token, err := f.ReadToken()
		if err == io.EOF {
			return nil, f.errorf("Missing '}'")
		}
		if err != nil {
			return nil, err
		}

		if token == "}" {
			return col, nil
		}

		if !strings.EqualFold(token, "MEMBER") {
			return nil, f.errorf("Expected MEMBER or '}', got %q", token)
		}

		syntax, err := f.need("MEMBER value tag")
		if err != nil {
			return nil, err
		}

		tag, known := ippTagByName(syntax)
		if !known {
			return nil, f.errorf("Bad MEMBER value tag %q", syntax)
		}

		name, err := f.need("MEMBER name")
		if err != nil {
			return nil, err
		}

		member := goipp.Attribute{Name: name}

		switch {
		case tag.Type() == goipp.TypeVoid:
			member.Values.Add(tag, goipp.Void{})

		case tag == goipp.TagBeginCollection:
			open, err := f.need("MEMBER value")
			if err != nil {
				return nil, err
			}
			if open != "{" {
				return nil, f.errorf("Expected '{', got %q", open)
			}

			nested, err := f.parseCollection()
			if err != nil {
				return nil, err
			}

			member.Values.Add(tag, nested)

		default:
			token, quoted, err := f.readToken(false)
			if err == io.EOF || (!quoted && (token == "{" || token == "}")) {
				return nil, f.errorf("Missing MEMBER value")
			}
			if err != nil {
				return nil, err
			}

			token = f.Expand(token)

			segments := []string{token}
			if !quoted {
				segments = strings.Split(token, ",")
			}

			for _, segment := range segments {
				if segment == "" && !quoted {
					continue
				}

				value, err := ippValueParse(tag, segment)
				if err != nil {
					return nil, f.errorf("Member %q: %s", name, err)
				}

				member.Values.Add(tag, value)
			}
		}

		col.Add(member)
	}
}

// ReadToken returns the next token, with variables expanded.
// io.EOF is returned at the end of the file
func (f *IppFile) ReadToken() (string, error) {
	token, _, err := f.readToken(false)
	if err != nil {
		return "", err
	}
	return f.Expand(token), nil
}

// need returns the next token, failing with a diagnostic
// naming what was expected when the file ends first
func (f *IppFile) need(what string) (string, error) {
	token, err := f.ReadToken()
	if err == io.EOF {
		return "", f.errorf("Missing %s", what)
	}
	return token, err
}

// valueToken returns the next token on the current line, with
// variables expanded. ok is false at the end of the line
func (f *IppFile) valueToken() (token string, quoted, ok bool, err error) {
	token, quoted, err = f.readToken(true)
	if err == io.EOF {
		return "", false, false, nil
	}
	if err != nil {
		return "", false, false, err
	}
	if token == "" && !quoted {
		return "", false, false, nil
	}

	return f.Expand(token), quoted, true, nil
}

// Expand substitutes {name} variable references in a string.
// References to undefined variables are left as written
func (f *IppFile) Expand(s string) string {
	if !strings.ContainsRune(s, '{') {
		return s
	}

	var out strings.Builder

	for i := 0; i < len(s); {
		if s[i] == '{' {
			if j := strings.IndexByte(s[i:], '}'); j > 1 {
				if value, ok := f.vars[s[i+1:i+j]]; ok {
					out.WriteString(value)
					i += j + 1
					continue
				}
			}
		}

		out.WriteByte(s[i])
		i++
	}

	return out.String()
}

// Tokenizer states
type ippTokState int

const (
	ippTokSkipSpace ippTokState = iota
	ippTokBody
	ippTokQuote
	ippTokQuoteBslash
	ippTokComment
)

// readToken reads a raw token. Tokens are separated by
// whitespace; single and double quotes quote; '#' comments to
// the end of the line; '{' and '}' delimit themselves. With sameLine set,
// reading stops at the end of the line and an empty unquoted
// token is returned.
//
// The returned token is not expanded
func (f *IppFile) readToken(sameLine bool) (token string, quoted bool, err error) {
	state := ippTokSkipSpace
	var quote byte

	f.buf.Reset()

	for {
		c, err := f.getc()

		if err != nil {
			switch state {
			case ippTokBody:
				return f.buf.String(), quoted, nil
			case ippTokQuote, ippTokQuoteBslash:
				return "", false, f.errorf("Unterminated string")
			}
			return "", false, io.EOF
		}

		switch state {
		case ippTokSkipSpace:
			switch {
			case c == '\n':
				if sameLine {
					return "", false, nil
				}
			case f.isspace(c):
				// Skip it
			case c == '#':
				state = ippTokComment
			case c == '{' || c == '}':
				return string(c), false, nil
			case c == '"' || c == '\'':
				state = ippTokQuote
				quote = c
				quoted = true
			default:
				state = ippTokBody
				f.buf.WriteByte(c)
			}

		case ippTokBody:
			switch {
			case c == '\n' || c == '{' || c == '}' || c == '#':
				f.ungetc(c)
				return f.buf.String(), quoted, nil
			case f.isspace(c):
				return f.buf.String(), quoted, nil
			case c == '"' || c == '\'':
				state = ippTokQuote
				quote = c
				quoted = true
			default:
				f.buf.WriteByte(c)
			}

		case ippTokQuote:
			switch c {
			case quote:
				state = ippTokBody
			case '\\':
				state = ippTokQuoteBslash
			default:
				f.buf.WriteByte(c)
			}

		case ippTokQuoteBslash:
			switch c {
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			}
			f.buf.WriteByte(c)
			state = ippTokQuote

		case ippTokComment:
			if c == '\n' {
				if sameLine {
					return "", false, nil
				}
				state = ippTokSkipSpace
			}
		}
	}
}

// errorf creates a parse error at the current position
func (f *IppFile) errorf(format string, args ...interface{}) error {
	return &ConfError{
		File:    f.path,
		Line:    f.line,
		Message: fmt.Sprintf(format, args...),
	}
}

// getc returns a next character from the input file
func (f *IppFile) getc() (byte, error) {
	c, err := f.reader.ReadByte()
	if c == '\n' {
		f.line++
	}
	return c, err
}

// ungetc pushes a character back to the input stream
// only one character can be unread this way
func (f *IppFile) ungetc(c byte) {
	if c == '\n' {
		f.line--
	}
	f.reader.UnreadByte()
}

// isspace returns true, if character is whitespace
func (f *IppFile) isspace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// ippTagByNameMap maps attribute syntax names, as written in
// attribute files, to the corresponding value tags. Lookup is
// case-insensitive; both the RFC 8010 names and the historical
// short aliases are accepted
var ippTagByNameMap = map[string]goipp.Tag{
	"integer":             goipp.TagInteger,
	"boolean":             goipp.TagBoolean,
	"enum":                goipp.TagEnum,
	"keyword":             goipp.TagKeyword,
	"uri":                 goipp.TagURI,
	"urischeme":           goipp.TagURIScheme,
	"charset":             goipp.TagCharset,
	"language":            goipp.TagLanguage,
	"naturallanguage":     goipp.TagLanguage,
	"mimetype":            goipp.TagMimeType,
	"mimemediatype":       goipp.TagMimeType,
	"name":                goipp.TagName,
	"namewithoutlanguage": goipp.TagName,
	"namewithlanguage":    goipp.TagNameLang,
	"text":                goipp.TagText,
	"textwithoutlanguage": goipp.TagText,
	"textwithlanguage":    goipp.TagTextLang,
	"datetime":            goipp.TagDateTime,
	"resolution":          goipp.TagResolution,
	"rangeofinteger":      goipp.TagRange,
	"string":              goipp.TagString,
	"octetstring":         goipp.TagString,
	"collection":          goipp.TagBeginCollection,
	"no-value":            goipp.TagNoValue,
	"novalue":             goipp.TagNoValue,
	"unknown":             goipp.TagUnknown,
	"unsupported":         goipp.TagUnsupportedValue,
	"default":             goipp.TagDefault,
	"not-settable":        goipp.TagNotSettable,
	"notsettable":         goipp.TagNotSettable,
	"delete-attribute":    goipp.TagDeleteAttr,
	"deleteattr":          goipp.TagDeleteAttr,
	"admin-define":        goipp.TagAdminDefine,
	"admindefine":         goipp.TagAdminDefine,
}

// ippTagByName returns a value tag by its syntax name
func ippTagByName(name string) (goipp.Tag, bool) {
	tag, ok := ippTagByNameMap[strings.ToLower(name)]
	return tag, ok
}

// ippValueParse converts a textual value into a goipp.Value
// according to the value tag
func ippValueParse(tag goipp.Tag, s string) (goipp.Value, error) {
	switch tag.Type() {
	case goipp.TypeInteger:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("Bad integer value %q", s)
		}
		return goipp.Integer(v), nil

	case goipp.TypeBoolean:
		switch strings.ToLower(s) {
		case "true", "yes", "on", "1":
			return goipp.Boolean(true), nil
		case "false", "no", "off", "0":
			return goipp.Boolean(false), nil
		}
		return nil, fmt.Errorf("Bad boolean value %q", s)

	case goipp.TypeString:
		return goipp.String(s), nil

	case goipp.TypeDateTime:
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("Bad dateTime value %q", s)
		}
		return goipp.Time{Time: t}, nil

	case goipp.TypeResolution:
		return ippResolutionParse(s)

	case goipp.TypeRange:
		return ippRangeParse(s)

	case goipp.TypeBinary:
		return goipp.Binary(s), nil

	case goipp.TypeVoid:
		return goipp.Void{}, nil
	}

	return nil, fmt.Errorf("Values of type %s are not supported here", tag)
}

// ippResolutionParse parses a resolution value:
//
//	"600dpi", "600x600dpi", "118dpcm"
func ippResolutionParse(s string) (goipp.Value, error) {
	body := strings.ToLower(s)
	units := goipp.UnitsDpi

	switch {
	case strings.HasSuffix(body, "dpcm"):
		units = goipp.UnitsDpcm
		body = body[:len(body)-4]
	case strings.HasSuffix(body, "dpi"):
		body = body[:len(body)-3]
	default:
		return nil, fmt.Errorf("Bad resolution value %q", s)
	}

	x, y := body, body
	if i := strings.IndexByte(body, 'x'); i >= 0 {
		x, y = body[:i], body[i+1:]
	}

	xres, err := strconv.Atoi(x)
	if err == nil {
		var yres int
		yres, err = strconv.Atoi(y)
		if err == nil {
			return goipp.Resolution{Xres: xres, Yres: yres, Units: units}, nil
		}
	}

	return nil, fmt.Errorf("Bad resolution value %q", s)
}

// ippRangeParse parses a rangeOfInteger value:
//
//	"1-999"
func ippRangeParse(s string) (goipp.Value, error) {
	if i := strings.IndexByte(s, '-'); i > 0 && i < len(s)-1 {
		lower, err := strconv.Atoi(s[:i])
		if err == nil {
			var upper int
			upper, err = strconv.Atoi(s[i+1:])
			if err == nil {
				return goipp.Range{Lower: lower, Upper: upper}, nil
			}
		}
	}

	return nil, fmt.Errorf("Bad rangeOfInteger value %q", s)
}
