/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Network listeners
 */

package main

import (
	"log"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Listener is a single listening network endpoint. It is bound when
// the Listen directive is parsed, so a busy or unavailable address
// fails the configuration load, and served after bootstrap completes
type Listener struct {
	Host string       // Host or address, "" binds all interfaces
	Port int          // TCP port
	nl   net.Listener // Underlying net.Listener
}

// NewListener binds a new listener
func NewListener(host string, port int) (*Listener, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	nl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	Log.Debug(' ', "Listening on %q", addr)

	return &Listener{
		Host: host,
		Port: port,
		nl:   nl,
	}, nil
}

// Addr returns the bound network address
func (l *Listener) Addr() net.Addr {
	return l.nl.Addr()
}

// Accept accepts the next connection, setting up TCP keep-alive
func (l *Listener) Accept() (net.Conn, error) {
	conn, err := l.nl.Accept()
	if err != nil {
		return nil, err
	}

	if tcpconn, ok := conn.(*net.TCPConn); ok {
		tcpconn.SetKeepAlive(true)
		tcpconn.SetKeepAlivePeriod(20 * time.Second)
	}

	return conn, nil
}

// Serve runs an HTTP server on the listener. It returns when the
// listener is closed
func (l *Listener) Serve(handler http.Handler) error {
	srv := &http.Server{
		Handler:  handler,
		ErrorLog: log.New(Log.LineWriter(LogError, '!'), "", 0),
	}

	return srv.Serve(l)
}

// Close closes the listener
func (l *Listener) Close() error {
	return l.nl.Close()
}
