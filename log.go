/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Program-wide logger and logging helpers
 */

package main

import (
	"fmt"
	"net/http"
	"sort"
)

// Log is the program-wide logger. It writes to stderr until the
// LogFile configuration directive redirects it to a file
var Log = NewConsoleLogger()

// LineWriter returns an io.Writer that emits every written line
// as a separate log record with the given level and prefix
func (l *Logger) LineWriter(level LogLevel, prefix byte) *LineWriter {
	return &LineWriter{
		Func: func(line []byte) {
			switch level {
			case LogError:
				l.Error(prefix, "%s", line)
			case LogInfo:
				l.Info(prefix, "%s", line)
			default:
				l.Debug(prefix, "%s", line)
			}
		},
	}
}

// logHTTPHdr dumps a HTTP header into the log message, one
// field per line, fields sorted by name
func logHTTPHdr(msg *LogMessage, prefix byte, title string, hdr http.Header) {
	keys := []string{}
	for k := range hdr {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msg.Debug(prefix, "%s", title)
	for _, k := range keys {
		msg.Debug(prefix, "%s: %s", k, hdr.Get(k))
	}
}

// LogHTTPRequest dumps a HTTP request into the log
func LogHTTPRequest(session int32, rq *http.Request) {
	msg := Log.Begin()
	title := fmt.Sprintf("HTTP[%d]: %s %s %s", session, rq.Method, rq.URL, rq.Proto)
	logHTTPHdr(msg, '>', title, rq.Header)
	msg.Commit()
}

// LogHTTPError logs a HTTP-level error
func LogHTTPError(session int32, status int, reason string) {
	Log.Begin().
		Debug('!', "HTTP[%d]: HTTP/1.1 %d %s", session, status, http.StatusText(status)).
		Debug('!', "HTTP[%d]: %s", session, reason).
		Commit()
}
