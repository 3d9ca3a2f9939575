/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Leveled logging with file rotation
 */

package main

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	LogMaxFileSize    = 100 * 1025
	LogMaxBackupFiles = 5
)

var (
	logMessagePool = sync.Pool{New: func() interface{} { return &LogMessage{} }}
	logBufferPool  = sync.Pool{New: func() interface{} { return &bytes.Buffer{} }}
)

// LogLevel enumerates possible log levels
type LogLevel int

const (
	LogError LogLevel = iota
	LogInfo
	LogDebug
)

// logLevelByName maps the LogLevel configuration directive values
var logLevelByName = map[string]LogLevel{
	"error": LogError,
	"info":  LogInfo,
	"debug": LogDebug,
}

// LogLevelByName returns a LogLevel by its configuration name
func LogLevelByName(name string) (LogLevel, bool) {
	level, ok := logLevelByName[strings.ToLower(name)]
	return level, ok
}

// String returns the configuration name of the log level
func (level LogLevel) String() string {
	switch level {
	case LogError:
		return "error"
	case LogInfo:
		return "info"
	case LogDebug:
		return "debug"
	}
	return fmt.Sprintf("LogLevel(%d)", int(level))
}

// Logger implements logging facilities
type Logger struct {
	lock    sync.Mutex   // Write lock
	level   LogLevel     // Lines above this level are dropped
	path    string       // Path to log file
	time    bytes.Buffer // Time prefix buffer
	file    *os.File     // Output file
	console bool         // true for console logger
	tty     bool         // Console is a terminal
}

// NewConsoleLogger creates a new logger that writes to stderr
func NewConsoleLogger() *Logger {
	return &Logger{
		level:   LogInfo,
		file:    os.Stderr,
		console: true,
		tty:     logIsAtty(os.Stderr),
	}
}

// Close the logger
func (l *Logger) Close() {
	l.lock.Lock()
	defer l.lock.Unlock()

	if !l.console && l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

// SetLevel sets the level filter of the logger
func (l *Logger) SetLevel(level LogLevel) {
	l.lock.Lock()
	l.level = level
	l.lock.Unlock()
}

// ToFile redirects the logger to a file. Used when the LogFile
// configuration directive names a path rather than stderr
func (l *Logger) ToFile(path string) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if !l.console && l.file != nil {
		l.file.Close()
	}

	l.path = path
	l.file = nil
	l.console = false
	l.tty = false
}

// Begin new log message
func (l *Logger) Begin() *LogMessage {
	msg := logMessagePool.Get().(*LogMessage)
	msg.logger = l
	return msg
}

// Debug writes a LogDebug message
func (l *Logger) Debug(prefix byte, format string, args ...interface{}) {
	l.Begin().Debug(prefix, format, args...).Commit()
}

// Info writes a LogInfo message
func (l *Logger) Info(prefix byte, format string, args ...interface{}) {
	l.Begin().Info(prefix, format, args...).Commit()
}

// Error writes a LogError message
func (l *Logger) Error(prefix byte, format string, args ...interface{}) {
	l.Begin().Error(prefix, format, args...).Commit()
}

// Exit writes a LogError message and terminates the program
func (l *Logger) Exit(prefix byte, format string, args ...interface{}) {
	l.Begin().Error(prefix, format, args...).Commit()
	os.Exit(1)
}

// Check terminates the program, if err is not nil
func (l *Logger) Check(err error) {
	if err != nil {
		l.Exit('!', "%s", err)
	}
}

// Panic writes a panic message, including the stack trace,
// and terminates the program
func (l *Logger) Panic(v interface{}) {
	buf := make([]byte, 2048)
	buf = buf[:runtime.Stack(buf, false)]
	l.Begin().Error('!', "panic: %v", v).Error('!', "%s", buf).Commit()
	os.Exit(1)
}

// Dump writes a HEX dump with optional title. If title is not "",
// it is formatted, as fmt.Printf does, and prepended to the dump
func (l *Logger) Dump(data []byte, title string, args ...interface{}) {
	l.Begin().Dump(data, title, args...).Commit()
}

// Format a time prefix. Console output goes without it, the
// console has its own notion of time
func (l *Logger) fmtTime() {
	if !l.console {
		l.time.Reset()
		l.time.WriteString(time.Now().Format("02-01-2006 15:04:05: "))
	}
}

// Handle log rotation
func (l *Logger) rotate() {
	stat, err := l.file.Stat()
	if err != nil || stat.Size() <= LogMaxFileSize {
		return
	}

	// Shift the chain of compressed backups, the oldest one dies
	os.Remove(fmt.Sprintf("%s.%d.gz", l.path, LogMaxBackupFiles-1))

	for i := LogMaxBackupFiles - 1; i > 0; i-- {
		os.Rename(fmt.Sprintf("%s.%d.gz", l.path, i-1),
			fmt.Sprintf("%s.%d.gz", l.path, i))
	}

	// Compress the current log into the first backup slot
	if l.gzip(l.path, l.path+".0.gz") == nil {
		l.file.Truncate(0)
	}
}

// gzip the log file
func (l *Logger) gzip(ipath, opath string) error {
	in, err := os.Open(ipath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(opath, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return err
	}

	w := gzip.NewWriter(out)
	_, err = io.Copy(w, in)

	if err2 := w.Close(); err == nil {
		err = err2
	}
	if err2 := out.Close(); err == nil {
		err = err2
	}

	if err != nil {
		os.Remove(opath)
	}

	return err
}

// logLine is a single line of a LogMessage
type logLine struct {
	level LogLevel      // Line log level
	buf   *bytes.Buffer // Line content
}

// LogMessage represents a single (possibly multi line) log
// message, which will appear in the output log atomically,
// not interrupted in the middle by other log activity
type LogMessage struct {
	logger *Logger   // Underlying logger
	lines  []logLine // One buffer per line
}

// add formats a next line of log message, with level and prefix char
func (msg *LogMessage) add(level LogLevel, prefix byte,
	format string, args ...interface{}) *LogMessage {

	buf := logBufAlloc()
	buf.WriteByte(prefix)
	buf.WriteByte(' ')
	fmt.Fprintf(buf, format, args...)
	buf.WriteByte('\n')

	msg.lines = append(msg.lines, logLine{level, buf})
	return msg
}

// Debug appends a LogDebug line to the message
func (msg *LogMessage) Debug(prefix byte, format string, args ...interface{}) *LogMessage {
	return msg.add(LogDebug, prefix, format, args...)
}

// Info appends a LogInfo line to the message
func (msg *LogMessage) Info(prefix byte, format string, args ...interface{}) *LogMessage {
	return msg.add(LogInfo, prefix, format, args...)
}

// Error appends a LogError line to the message
func (msg *LogMessage) Error(prefix byte, format string, args ...interface{}) *LogMessage {
	return msg.add(LogError, prefix, format, args...)
}

// Write implements io.Writer interface. Text is automatically
// split into lines, each line becomes a LogDebug line
func (msg *LogMessage) Write(text []byte) (int, error) {
	n := len(text)

	for len(text) > 0 {
		line := text
		if eol := bytes.IndexByte(text, '\n'); eol >= 0 {
			line, text = text[:eol+1], text[eol+1:]
		} else {
			text = nil
		}

		// Continuation of an unterminated line goes into the
		// same buffer, fresh lines are indented by two spaces
		cnt := len(msg.lines)
		if cnt == 0 || logBufTerminated(msg.lines[cnt-1].buf) {
			msg.lines = append(msg.lines, logLine{LogDebug, logBufAlloc()})
			cnt++
		}

		buf := msg.lines[cnt-1].buf
		if buf.Len() == 0 && len(line) != 0 {
			buf.WriteString("  ")
		}
		buf.Write(line)
	}

	return n, nil
}

// Dump appends a HEX dump to the message, with optional title.
// If title is not "", it is formatted, as fmt.Printf does, and
// prepended to the dump
func (msg *LogMessage) Dump(data []byte, title string, args ...interface{}) *LogMessage {
	if title != "" {
		msg.Debug(' ', title, args...)
	}

	hex := logBufAlloc()
	chr := logBufAlloc()

	defer logBufFree(hex)
	defer logBufFree(chr)

	for off := 0; off < len(data); off += 16 {
		hex.Reset()
		chr.Reset()

		row := data[off:]
		if len(row) > 16 {
			row = row[:16]
		}

		for i := 0; i < 16; i++ {
			if i >= len(row) {
				hex.WriteString("   ")
				continue
			}

			sep := byte(' ')
			if i%4 == 3 {
				sep = ':'
			}

			c := row[i]
			fmt.Fprintf(hex, "%2.2x%c", c, sep)

			if 0x20 <= c && c < 0x80 {
				chr.WriteByte(c)
			} else {
				chr.WriteByte('.')
			}
		}

		msg.Debug(' ', "%4.4x: %s %s", off, hex, chr)
	}

	return msg
}

// Commit message to the log
func (msg *LogMessage) Commit() {
	defer msg.free()

	// Ignore empty messages
	if len(msg.lines) == 0 {
		return
	}

	msg.logger.lock.Lock()
	defer msg.logger.lock.Unlock()

	// Open log file on demand
	if msg.logger.file == nil && !msg.logger.console {
		os.MkdirAll(filepath.Dir(msg.logger.path), 0755)
		msg.logger.file, _ = os.OpenFile(msg.logger.path,
			os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	}

	if msg.logger.file == nil {
		return
	}

	// Rotate now
	if !msg.logger.console {
		msg.logger.rotate()
	}

	// Send message content to the logger
	msg.logger.fmtTime()
	for _, line := range msg.lines {
		if line.level > msg.logger.level {
			continue
		}

		if !logBufTerminated(line.buf) {
			line.buf.WriteByte('\n')
		}

		if msg.logger.tty {
			logColorWrite(msg.logger.file, line.level, line.buf.Bytes())
		} else {
			msg.logger.file.Write(msg.logger.time.Bytes())
			msg.logger.file.Write(line.buf.Bytes())
		}
	}
}

// Return message to the logMessagePool
func (msg *LogMessage) free() {
	for _, line := range msg.lines {
		logBufFree(line.buf)
	}

	// Keep the lines slice, unless it has grown too much
	if len(msg.lines) < 16 {
		msg.lines = msg.lines[:0]
	} else {
		msg.lines = nil
	}

	msg.logger = nil

	logMessagePool.Put(msg)
}

// Check if line buffer is '\n'-terminated
func logBufTerminated(buf *bytes.Buffer) bool {
	b := buf.Bytes()
	return len(b) > 0 && b[len(b)-1] == '\n'
}

// Allocate a buffer
func logBufAlloc() *bytes.Buffer {
	return logBufferPool.Get().(*bytes.Buffer)
}

// Free a buffer
func logBufFree(buf *bytes.Buffer) {
	if buf.Cap() <= 256 {
		buf.Reset()
		logBufferPool.Put(buf)
	}
}

// logIsAtty returns true, if os.File refers to a terminal
func logIsAtty(file *os.File) bool {
	stat, err := file.Stat()
	return err == nil && (stat.Mode()&os.ModeCharDevice) != 0
}

// logColorWrite writes a colorized line to console
func logColorWrite(out io.Writer, level LogLevel, line []byte) {
	var color string

	switch level {
	case LogError:
		color = "\033[31;1m" // Red
	case LogInfo:
		color = "\033[32;1m" // Green
	case LogDebug:
		color = "\033[37;1m" // White
	}

	out.Write([]byte(color))
	out.Write(line)
	out.Write([]byte("\033[0m"))
}
