/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * UID discovery for TCP connection over loopback -- Linux version
 */

package main

import (
	"encoding/binary"
	"fmt"
	"net"
	"syscall"
)

// Constants for the NETLINK_SOCK_DIAG query, from the Linux UAPI
const (
	netlinkSockDiag  = 4          // NETLINK_SOCK_DIAG protocol
	sockDiagByFamily = 20         // SOCK_DIAG_BY_FAMILY message type
	tcpEstablished   = 1          // TCP_ESTABLISHED state
	inetDiagNoCookie = ^uint32(0) // INET_DIAG_NOCOOKIE

	// Sizes of struct nlmsghdr, struct inet_diag_req_v2
	// and struct inet_diag_msg
	nlMsgHdrSize    = 16
	inetDiagReqSize = 56
	inetDiagMsgSize = 72
)

// TCPClientUIDSupported tells if TCPClientUID supported on this platform
func TCPClientUIDSupported() bool {
	return true
}

// TCPClientUID obtains UID of client process that created
// TCP connection over the loopback interface
func TCPClientUID(client, server *net.TCPAddr) (int, error) {
	sock, err := sockDiagOpen()
	if err != nil {
		return -1, err
	}

	defer syscall.Close(sock)

	// Prepare request: struct nlmsghdr followed by struct
	// inet_diag_req_v2.
	//
	// The request always uses the AF_INET6 family; IPv4 addresses
	// are passed in the v4-mapped form, which the kernel socket
	// lookup resolves to plain IPv4 sockets as well
	ne := binary.NativeEndian
	rq := make([]byte, nlMsgHdrSize+inetDiagReqSize)

	ne.PutUint32(rq[0:], uint32(len(rq)))       // nlmsg_len
	ne.PutUint16(rq[4:], sockDiagByFamily)      // nlmsg_type
	ne.PutUint16(rq[6:], syscall.NLM_F_REQUEST) // nlmsg_flags

	rq[16] = syscall.AF_INET6                // sdiag_family
	rq[17] = syscall.IPPROTO_TCP             // sdiag_protocol
	ne.PutUint32(rq[20:], 1<<tcpEstablished) // idiag_states

	binary.BigEndian.PutUint16(rq[24:], uint16(client.Port)) // idiag_sport
	binary.BigEndian.PutUint16(rq[26:], uint16(server.Port)) // idiag_dport
	copy(rq[28:44], client.IP.To16())                        // idiag_src
	copy(rq[44:60], server.IP.To16())                        // idiag_dst
	ne.PutUint32(rq[64:], inetDiagNoCookie)                  // idiag_cookie[0]
	ne.PutUint32(rq[68:], inetDiagNoCookie)                  // idiag_cookie[1]

	// Send request
	rqAddr := &syscall.SockaddrNetlink{Family: syscall.AF_NETLINK}
	err = syscall.Sendto(sock, rq, 0, rqAddr)
	if err != nil {
		return -1, fmt.Errorf("sock_diag: sendto(): %s", err)
	}

	// Receive responses
	buf := make([]byte, syscall.Getpagesize())
	for {
		num, _, err := syscall.Recvfrom(sock, buf, 0)
		if err != nil {
			return -1, fmt.Errorf("sock_diag: recvfrom(): %s", err)
		}

		msgs, err := syscall.ParseNetlinkMessage(buf[:num])
		if err != nil {
			return -1, fmt.Errorf("sock_diag: can't parse response")
		}

		for _, msg := range msgs {
			switch msg.Header.Type {
			case syscall.NLMSG_ERROR:
				if len(msg.Data) < 4 {
					return -1, fmt.Errorf("sock_diag: truncated error")
				}

				// struct nlmsgerr begins with the negated errno
				errno := int32(ne.Uint32(msg.Data))
				return -1, syscall.Errno(-errno)

			case sockDiagByFamily:
				if len(msg.Data) < inetDiagMsgSize {
					return -1, fmt.Errorf("sock_diag: truncated response")
				}

				// idiag_uid of the struct inet_diag_msg
				return int(ne.Uint32(msg.Data[64:])), nil
			}
		}
	}
}

// sockDiagOpen opens NETLINK_SOCK_DIAG socket
func sockDiagOpen() (int, error) {
	const stype = syscall.SOCK_DGRAM | syscall.SOCK_CLOEXEC

	sock, err := syscall.Socket(syscall.AF_NETLINK, stype, netlinkSockDiag)
	if err != nil {
		return -1, fmt.Errorf("sock_diag: socket(): %s", err)
	}

	sa := &syscall.SockaddrNetlink{Family: syscall.AF_NETLINK}
	err = syscall.Bind(sock, sa)
	if err != nil {
		syscall.Close(sock)
		return -1, fmt.Errorf("sock_diag: bind(): %s", err)
	}

	return sock, nil
}
