/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Configuration file loader ("Directive value" format)
 */

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
)

// ConfFile represents an opened configuration file.
//
// The format is line-oriented. Every non-empty line is a directive
// name followed by a value that extends to the end of the line.
// The '#' character starts a comment that extends to the end of
// the line; "\#" produces a literal '#' within a value
type ConfFile struct {
	file   *os.File      // Underlying file
	reader *bufio.Reader // Reader on a top of file
	buf    bytes.Buffer  // Temporary buffer to speed up things
	line   int           // Current line number
	rec    ConfRecord    // Next record
}

// ConfRecord represents a single configuration file record
type ConfRecord struct {
	Directive string // Directive name, as written
	Value     string // Value with comments and spaces stripped
	File      string // Origin file
	Line      int    // Line in that file
}

// ConfError represents a configuration file read error
type ConfError struct {
	File    string // Origin file
	Line    int    // Line in that file
	Message string // Error message
}

// Error implements error interface for the ConfError
func (err *ConfError) Error() string {
	return fmt.Sprintf("%s:%d: %s", err.File, err.Line, err.Message)
}

// ConfOpen opens the configuration file for reading
func ConfOpen(path string) (conf *ConfFile, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	conf = &ConfFile{
		file:   f,
		reader: bufio.NewReader(f),
		line:   1,
		rec: ConfRecord{
			File: path,
		},
	}

	return conf, nil
}

// Close the configuration file
func (conf *ConfFile) Close() error {
	return conf.file.Close()
}

// Next returns the next ConfRecord or an error. io.EOF is
// returned after the last record.
//
// The returned record is reused by the next call to Next
// and must not be retained by the caller
func (conf *ConfFile) Next() (*ConfRecord, error) {
	for {
		// Read until next non-space character, skipping all comments
		c, err := conf.getcNonSpace()
		for err == nil && conf.iscomment(c) {
			conf.getcNl()
			c, err = conf.getcNonSpace()
		}

		if err != nil {
			return nil, err
		}

		// Parse the directive name
		conf.ungetc(c)
		line := conf.line

		directive, err := conf.word()
		if err != nil {
			return nil, err
		}

		// Parse the value, which extends to the end of the line
		value, err := conf.value()
		if err != nil {
			return nil, err
		}

		if directive != "" {
			conf.rec.Directive = directive
			conf.rec.Value = value
			conf.rec.Line = line

			return &conf.rec, nil
		}
	}
}

// word reads a run of non-space characters, stopping (without
// consuming) at a space, comment or end of line
func (conf *ConfFile) word() (string, error) {
	conf.buf.Reset()

	for {
		c, err := conf.getc()
		if err != nil {
			if conf.buf.Len() > 0 {
				return conf.buf.String(), nil
			}
			return "", err
		}

		if conf.isspace(c) || conf.iscomment(c) {
			conf.ungetc(c)
			return conf.buf.String(), nil
		}

		conf.buf.WriteByte(c)
	}
}

// value reads the rest of the line, stripping leading and
// trailing whitespace and an unescaped trailing comment
func (conf *ConfFile) value() (string, error) {
	var trailingSpace int
	leading := true

	conf.buf.Reset()

	for {
		c, err := conf.getc()
		if err != nil || c == '\n' {
			break
		}

		switch {
		case conf.isspace(c):
			if leading {
				continue
			}
			conf.buf.WriteByte(c)
			trailingSpace++

		case conf.iscomment(c):
			// Comment runs to the end of the line
			conf.getcNl()
			conf.buf.Truncate(conf.buf.Len() - trailingSpace)
			return conf.buf.String(), nil

		case c == '\\':
			c2, err2 := conf.getc()
			if err2 != nil {
				conf.buf.WriteByte(c)
				break
			}
			if !conf.iscomment(c2) {
				conf.buf.WriteByte(c)
			}
			conf.buf.WriteByte(c2)
			leading = false
			trailingSpace = 0

		default:
			conf.buf.WriteByte(c)
			leading = false
			trailingSpace = 0
		}
	}

	conf.buf.Truncate(conf.buf.Len() - trailingSpace)
	return conf.buf.String(), nil
}

// getc returns a next character from the input file
func (conf *ConfFile) getc() (byte, error) {
	c, err := conf.reader.ReadByte()
	if c == '\n' {
		conf.line++
	}
	return c, err
}

// getcNonSpace returns a next non-space character from the input file
func (conf *ConfFile) getcNonSpace() (byte, error) {
	for {
		c, err := conf.getc()
		if err != nil || !conf.isspace(c) {
			return c, err
		}
	}
}

// getcNl returns a next newline character, or reads until EOF or error
func (conf *ConfFile) getcNl() (byte, error) {
	for {
		c, err := conf.getc()
		if err != nil || c == '\n' {
			return c, err
		}
	}
}

// ungetc pushes a character back to the input stream
// only one character can be unread this way
func (conf *ConfFile) ungetc(c byte) {
	if c == '\n' {
		conf.line--
	}
	conf.reader.UnreadByte()
}

// isspace returns true, if character is whitespace
func (conf *ConfFile) isspace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// iscomment returns true, if character starts a comment
func (conf *ConfFile) iscomment(c byte) bool {
	return c == '#'
}
