/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Authentication and authorization
 */

package main

import (
	"errors"
	"net"
	"net/http"
	"os/user"
	"strconv"
	"sync"
	"time"
)

// AuthRole is a bitmask of the access roles of a client
type AuthRole int

// AuthRole values
const (
	AuthRoleOperator AuthRole = 1 << iota // May view printers and jobs
	AuthRoleAdmin                         // May administer the server

	AuthRoleNone AuthRole = 0
)

// authUserInfo is the resolved and cached user info, for matching
type authUserInfo struct {
	uid     int       // User ID, -1 when resolved from a name
	name    string    // User name
	groups  []string  // Group IDs the user belongs to, numeric
	expires time.Time // Expiration time
}

var (
	// authUserInfoCache contains authUserInfo cache, indexed by UID
	authUserInfoCache = make(map[int]*authUserInfo)

	// authUserInfoLock protects access to authUserInfoCache
	authUserInfoLock sync.Mutex
)

// authUserInfoCacheTTL is the expiration timeout for authUserInfoCache
const authUserInfoCacheTTL = 2 * time.Second

// authUserInfoByUID resolves the group membership of an UID, with
// a short-lived cache in front of the user database
func authUserInfoByUID(uid int) (*authUserInfo, error) {
	authUserInfoLock.Lock()
	info := authUserInfoCache[uid]
	authUserInfoLock.Unlock()

	if info != nil && info.expires.After(time.Now()) {
		return info, nil
	}

	usr, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		return nil, err
	}

	info, err = authUserInfoFromUser(usr)
	if err != nil {
		return nil, err
	}

	info.uid = uid

	authUserInfoLock.Lock()
	authUserInfoCache[uid] = info
	authUserInfoLock.Unlock()

	return info, nil
}

// authUserInfoFromUser builds authUserInfo from the user
// database entry
func authUserInfoFromUser(usr *user.User) (*authUserInfo, error) {
	groups, err := usr.GroupIds()
	if err != nil {
		return nil, err
	}

	return &authUserInfo{
		uid:     -1,
		name:    usr.Username,
		groups:  append([]string{usr.Gid}, groups...),
		expires: time.Now().Add(authUserInfoCacheTTL),
	}, nil
}

// memberOf tells if the user belongs to the group, given as a
// numeric group ID
func (info *authUserInfo) memberOf(gid string) bool {
	for _, g := range info.groups {
		if g == gid {
			return true
		}
	}

	return false
}

// authRoles returns the access roles of the user.
//
// Root and members of the admin group hold both roles, members
// of the operator group only the operator role
func authRoles(conf *Conf, info *authUserInfo) AuthRole {
	roles := AuthRoleNone

	if info.uid == 0 || info.memberOf(conf.AuthAdminGroup) {
		roles |= AuthRoleAdmin | AuthRoleOperator
	}

	if info.memberOf(conf.AuthOperatorGroup) {
		roles |= AuthRoleOperator
	}

	return roles
}

// AuthHTTPRequest performs authorization of the incoming
// HTTP request.
//
// Local clients are authorized by the UID behind the connection,
// which must belong to the configured admin or operator group.
// Other clients must present Basic credentials; these are only
// accepted when AuthTestPassword is configured.
//
// On success, status is http.StatusOK and err is nil.
// Otherwise, status is appropriate for HTTP error response,
// and err explains the reason
func AuthHTTPRequest(conf *Conf, client, server *net.TCPAddr,
	rq *http.Request) (status int, err error) {

	// All the surfaces this server exposes are read-only,
	// so the operator role is enough for everything
	need := AuthRoleOperator

	// Try the UID behind a local connection first
	if TCPClientUIDSupported() && authIsLocal(client, server) {
		uid, err := TCPClientUID(client, server)
		if err == nil {
			info, err := authUserInfoByUID(uid)
			if err != nil {
				return http.StatusInternalServerError, err
			}

			if authRoles(conf, info)&need != AuthRoleNone {
				return http.StatusOK, nil
			}

			return http.StatusForbidden,
				errors.New("Operation not allowed")
		}
	}

	// Fall back to Basic credentials
	usrname, password, ok := rq.BasicAuth()
	if !ok {
		return http.StatusUnauthorized,
			errors.New("Authentication required")
	}

	if conf.AuthTestPassword == "" || password != conf.AuthTestPassword {
		return http.StatusUnauthorized,
			errors.New("Invalid credentials")
	}

	usr, err := user.Lookup(usrname)
	if err != nil {
		return http.StatusUnauthorized,
			errors.New("Invalid credentials")
	}

	info, err := authUserInfoFromUser(usr)
	if err != nil {
		return http.StatusInternalServerError, err
	}

	if authRoles(conf, info)&need != AuthRoleNone {
		return http.StatusOK, nil
	}

	return http.StatusForbidden, errors.New("Operation not allowed")
}

// authIsLocal tells if both ends of the connection belong to
// this machine
func authIsLocal(client, server *net.TCPAddr) bool {
	if client.IP.IsLoopback() && server.IP.IsLoopback() {
		return true
	}

	// Non-loopback addresses still count as local when they
	// sit on one of our own interfaces
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return false
	}

	hosted := func(ip net.IP) bool {
		if ip.IsLoopback() {
			return true
		}

		for _, addr := range addrs {
			if ifnet, ok := addr.(*net.IPNet); ok && ip.Equal(ifnet.IP) {
				return true
			}
		}

		return false
	}

	return hosted(client.IP) && hosted(server.IP)
}
