/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * io.Writer that forwards complete text lines to a callback
 */

package main

import (
	"bytes"
)

// LineWriter is an io.WriteCloser that buffers written bytes and
// hands them to the callback one complete line at a time, with
// the trailing newline stripped.
//
// It adapts the line-oriented logger to interfaces that want a
// plain io.Writer, like http.Server.ErrorLog
type LineWriter struct {
	Func func([]byte) // Called for every complete line
	buf  bytes.Buffer // Bytes not yet terminated by a newline
}

// Write implements io.Writer. Complete lines are dispatched
// immediately, the unterminated remainder is kept until more
// bytes arrive
func (lw *LineWriter) Write(text []byte) (int, error) {
	lw.buf.Write(text)

	for {
		data := lw.buf.Bytes()
		eol := bytes.IndexByte(data, '\n')
		if eol < 0 {
			break
		}

		lw.Func(data[:eol])
		lw.buf.Next(eol + 1)
	}

	return len(text), nil
}

// Close implements io.Closer. A pending incomplete line, if any,
// is dispatched as if it was terminated
func (lw *LineWriter) Close() error {
	if lw.buf.Len() > 0 {
		lw.Func(lw.buf.Bytes())
		lw.buf.Reset()
	}
	return nil
}
