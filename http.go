/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * HTTP request handling
 */

package main

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

var (
	httpSessionId int32
)

// Server dispatches HTTP requests arriving on the network listeners.
//
// This layer serves the status page, printer resource probes and
// printer icons. IPP requests are recognized by content type but not
// interpreted; the protocol engine sits behind its own contract
type Server struct {
	conf *Conf // Server configuration
}

// NewServer creates a new Server on top of a loaded configuration
func NewServer(conf *Conf) *Server {
	return &Server{conf: conf}
}

// Serve runs the server on all configured listeners. It returns
// after the first listener failure
func (srv *Server) Serve() error {
	errchan := make(chan error, len(srv.conf.Listeners))

	for _, l := range srv.conf.Listeners {
		go func(l *Listener) {
			errchan <- l.Serve(srv)
		}(l)
	}

	return <-errchan
}

// ServeHTTP implements the http.Handler interface
func (srv *Server) ServeHTTP(w http.ResponseWriter, rq *http.Request) {
	session := atomic.AddInt32(&httpSessionId, 1) - 1
	defer atomic.AddInt32(&httpSessionId, -1)

	LogHTTPRequest(session, rq)

	if srv.conf.Authentication && !srv.authorize(session, w, rq) {
		return
	}

	switch rq.Method {
	case "GET":
		srv.serveGET(session, w, rq)
	case "POST":
		srv.servePOST(session, w, rq)
	default:
		httpError(session, w, http.StatusMethodNotAllowed,
			"%s not allowed", rq.Method)
	}
}

// authorize checks the client's permission to access the server.
// When the check fails, the error response is already written
func (srv *Server) authorize(session int32, w http.ResponseWriter,
	rq *http.Request) bool {

	client, err := net.ResolveTCPAddr("tcp", rq.RemoteAddr)
	if err != nil {
		httpError(session, w, http.StatusInternalServerError, "%s", err)
		return false
	}

	server, ok := rq.Context().Value(http.LocalAddrContextKey).(*net.TCPAddr)
	if !ok {
		httpError(session, w, http.StatusInternalServerError,
			"Unable to resolve local address")
		return false
	}

	status, err := AuthHTTPRequest(srv.conf, client, server, rq)
	if status == http.StatusOK {
		return true
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate",
			fmt.Sprintf("%s realm=%q", srv.conf.AuthType, srv.conf.AuthName))
	}

	httpError(session, w, status, "%s", err)
	return false
}

// serveGET handles GET requests: the status page, printer resource
// probes and printer icons
func (srv *Server) serveGET(session int32, w http.ResponseWriter,
	rq *http.Request) {

	path := rq.URL.Path

	if path == "/" {
		httpNoCache(w)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(StatusFormat(srv.conf)))
		return
	}

	if strings.HasSuffix(path, "/icon.png") {
		resource := strings.TrimSuffix(path, "/icon.png")
		if p := srv.conf.Registry.Find(resource); p != nil && p.Info.Icon != "" {
			http.ServeFile(w, rq, p.Info.Icon)
			return
		}
	} else if p := srv.conf.Registry.Find(path); p != nil {
		httpNoCache(w)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		statusPrinter(w, p)
		return
	}

	httpError(session, w, http.StatusNotFound, "%s not found", path)
}

// servePOST handles POST requests. The only expected POST users are
// IPP clients; their requests are answered with 501
func (srv *Server) servePOST(session int32, w http.ResponseWriter,
	rq *http.Request) {

	if rq.Header.Get("Content-Type") != "application/ipp" {
		httpError(session, w, http.StatusUnsupportedMediaType,
			"Expected application/ipp content")
		return
	}

	if srv.conf.Registry.Find(rq.URL.Path) == nil {
		httpError(session, w, http.StatusNotFound,
			"%s not found", rq.URL.Path)
		return
	}

	httpError(session, w, http.StatusNotImplemented,
		"IPP service not implemented")
}

// Reject request with a error
func httpError(session int32, w http.ResponseWriter,
	status int, format string, args ...interface{}) {

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	httpNoCache(w)
	w.WriteHeader(status)

	msg := fmt.Sprintf(format, args...)
	msg += "\n"

	w.Write([]byte(msg))

	LogHTTPError(session, status, msg)
}

// Set response headers to disable cacheing
func httpNoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}
