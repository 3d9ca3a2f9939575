//go:build !linux
// +build !linux

/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Peer UID lookup for loopback TCP connections, stub for
 * platforms without an implementation
 */

package main

import (
	"net"
)

// TCPClientUIDSupported reports whether TCPClientUID works on
// this platform. When it returns false the UID authorization
// path is skipped entirely
func TCPClientUIDSupported() bool {
	return false
}

// TCPClientUID returns the UID of the process behind the client
// side of a loopback TCP connection.
//
// Unreachable here, the callers check TCPClientUIDSupported first
func TCPClientUID(client, server *net.TCPAddr) (int, error) {
	panic("TCPClientUID not supported")
}
