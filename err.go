/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Common errors
 */

package main

import (
	"errors"
)

// Error values for ippserver
var (
	ErrLockIsBusy = errors.New("Lock is busy")
	ErrNoServer   = errors.New("ippserver daemon not running")
	ErrAccess     = errors.New("Access denied")
)
