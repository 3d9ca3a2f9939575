/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Control socket handler
 *
 * The running daemon exposes its status over a unix domain socket,
 * wrapped into HTTP. HTTP may look excessive here, but it comes
 * almost for free with the net/http machinery and leaves the room
 * for future extensions
 */

package main

import (
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"syscall"
)

var (
	// CtrlsockAddr contains control socket address in
	// a form of the net.UnixAddr structure
	CtrlsockAddr = &net.UnixAddr{Name: PathControlSocket, Net: "unix"}

	// ctrlsockServer is the HTTP server behind the control
	// socket. nil until the server is started
	ctrlsockServer *http.Server
)

// ctrlsockStatus responds to the status request
func ctrlsockStatus(conf *Conf, w http.ResponseWriter, r *http.Request) {
	Log.Debug(' ', "ctrlsock: %s %s", r.Method, r.URL)

	// Panics here must be logged, not swallowed by net/http
	defer func() {
		if v := recover(); v != nil {
			Log.Panic(v)
		}
	}()

	if r.Method != "GET" {
		http.Error(w, r.Method+": method not supported",
			http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	httpNoCache(w)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(StatusFormat(conf)))
}

// CtrlsockStart starts control socket server
func CtrlsockStart(conf *Conf) error {
	Log.Debug(' ', "ctrlsock: listening at %q", PathControlSocket)

	// A leftover socket from a dead daemon prevents bind
	os.Remove(PathControlSocket)

	listener, err := net.ListenUnix("unix", CtrlsockAddr)
	if err != nil {
		return err
	}

	// The daemon may run as root while its status is everyone's
	// business. Chmod failure is not a reason to abort
	os.Chmod(PathControlSocket, 0777)

	mux := http.NewServeMux()
	mux.HandleFunc("/status",
		func(w http.ResponseWriter, r *http.Request) {
			ctrlsockStatus(conf, w, r)
		})

	ctrlsockServer = &http.Server{
		Handler:  mux,
		ErrorLog: log.New(Log.LineWriter(LogError, '!'), "", 0),
	}

	go ctrlsockServer.Serve(listener)

	return nil
}

// CtrlsockStop stops the control socket server
func CtrlsockStop() {
	if ctrlsockServer != nil {
		Log.Debug(' ', "ctrlsock: shutdown")
		ctrlsockServer.Close()
		ctrlsockServer = nil
	}
}

// CtrlsockDial connects to the control socket of the running
// ippserver daemon
func CtrlsockDial() (net.Conn, error) {
	conn, err := net.DialUnix("unix", nil, CtrlsockAddr)

	switch {
	case err == nil:
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ENOENT):
		err = ErrNoServer
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		err = ErrAccess
	}

	return conn, err
}
