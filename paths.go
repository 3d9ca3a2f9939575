/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Common paths
 */

package main

const (
	// PathConfDir defines the default path to the configuration
	// directory (system.conf plus the print/ and print3d/ queues)
	PathConfDir = "/etc/ippserver"

	// PathProgState defines path to program state directory
	PathProgState = "/var/ippserver"

	// PathLockDir defines path to directory that contains lock files
	PathLockDir = PathProgState + "/lock"

	// PathLockFile defines path to lock file
	PathLockFile = PathLockDir + "/ippserver.lock"

	// PathProgStatePrinter defines path to directory where per-printer
	// state files are saved to
	PathProgStatePrinter = PathProgState + "/printer"

	// PathControlSocket defines path to the control socket
	PathControlSocket = PathProgState + "/ctrl"

	// PathLogDir defines path to log directory
	PathLogDir = "/var/log/ippserver"
)
