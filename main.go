/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * The main function
 */

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const usageText = `Usage:
    %s [options]

Options are:
    -c dir      - configuration directory (default: %s)
    -n name     - network name of the server
    -p port     - port number for the default listeners
    -check      - load configuration, check printer devices and exit
    -status     - print status of the running daemon and exit
    -bg         - run in background
    -d          - log to console, not to the log file
    -v          - info log level
    -vv         - debug log level
`

// Version is the program version
const Version = "1.0"

// RunMode represents the program run mode
type RunMode int

// Run modes:
//
//	RunDefault - load configuration and serve the printers forever
//	RunCheck   - load configuration, check printer devices and exit
//	RunStatus  - print status of the running daemon and exit
const (
	RunDefault RunMode = iota
	RunCheck
	RunStatus
)

// String returns RunMode name
func (m RunMode) String() string {
	names := []string{"default", "check", "status"}
	if m >= 0 && int(m) < len(names) {
		return names[m]
	}

	return fmt.Sprintf("unknown (%d)", int(m))
}

// RunParameters represents the program run parameters
type RunParameters struct {
	Mode        RunMode  // Run mode
	Background  bool     // Run in background
	Debug       bool     // Log to console
	ConfDir     string   // Configuration directory
	ServerName  string   // Network name of the server, "" for default
	Port        int      // Default listen port, 0 for default
	LogLevel    LogLevel // Log level from the command line
	LogLevelSet bool     // LogLevel was given
}

// usage prints detailed usage and exits
func usage() {
	fmt.Printf(usageText, os.Args[0], PathConfDir)
	os.Exit(0)
}

// usageError prints usage error and exits
func usageError(format string, args ...interface{}) {
	if format != "" {
		fmt.Printf(format+"\n", args...)
	}

	fmt.Printf("Try %s -h for more information\n", os.Args[0])
	os.Exit(1)
}

// parseArgv parses program parameters. In a case of usage error,
// it prints a error message and exits
func parseArgv() (params RunParameters) {
	params.ConfDir = PathConfDir

	argv := os.Args[1:]
	modes := 0

	// Fetch the value of an option that requires one
	next := func(i *int) string {
		*i++
		if *i == len(argv) {
			usageError("Option %s requires an argument", argv[*i-1])
		}
		return argv[*i]
	}

	for i := 0; i < len(argv); i++ {
		switch arg := argv[i]; arg {
		case "-h", "-help", "--help":
			usage()
		case "-c":
			params.ConfDir = next(&i)
		case "-n":
			params.ServerName = next(&i)
		case "-p":
			port, err := strconv.Atoi(next(&i))
			if err != nil || port < 1 || port > 65535 {
				usageError("Option -p: port must be in range 1...65535")
			}
			params.Port = port
		case "-check":
			params.Mode = RunCheck
			modes++
		case "-status":
			params.Mode = RunStatus
			modes++
		case "-bg":
			params.Background = true
		case "-d":
			params.Debug = true
		case "-v":
			params.LogLevel, params.LogLevelSet = LogInfo, true
		case "-vv":
			params.LogLevel, params.LogLevelSet = LogDebug, true
		default:
			usageError("Invalid argument %s", arg)
		}
	}

	if modes > 1 {
		usageError("Conflicting run modes")
	}

	if params.Mode != RunDefault {
		params.Background = false
	}

	return
}

// printStatus prints status of the running ippserver daemon, if any
func printStatus() {
	text, err := StatusRetrieve()
	if err != nil {
		fmt.Printf("%s\n", err)
		os.Exit(1)
	}

	os.Stdout.Write(text)
}

// The main function
func main() {
	var err error

	// Parse arguments
	params := parseArgv()

	// In -status mode, query the running daemon, and we are done
	if params.Mode == RunStatus {
		printStatus()
		os.Exit(0)
	}

	// If background run is requested, it's time to fork.
	//
	// This happens before the configuration is loaded, so the
	// listening sockets are only ever bound in the child; the
	// child's initialization errors come back through the
	// stderr pipe
	if params.Background {
		err = Daemon()
		Log.Check(err)
		os.Exit(0)
	}

	// Prevent multiple copies of ippserver from being running
	// in a same time
	if params.Mode == RunDefault {
		os.MkdirAll(PathLockDir, 0755)

		lock, err := os.OpenFile(PathLockFile,
			os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
		Log.Check(err)
		defer lock.Close()

		err = FileLock(lock)
		if err == ErrLockIsBusy {
			Log.Exit('!', "ippserver already running")
		}
		Log.Check(err)
	}

	// Load configuration
	conf := NewConf(params.ConfDir)
	conf.ServerName = params.ServerName
	conf.DefaultPort = params.Port

	err = conf.Load()
	Log.Check(err)

	// In -check mode, verify the printer devices, and we are done
	if params.Mode == RunCheck {
		// If we are here, configuration is OK
		Log.Info(' ', "Configuration files: OK")

		if missed := CheckPrinters(conf); missed != 0 {
			Log.Exit('!', "%d printer device(s) missing", missed)
		}

		os.Exit(0)
	}

	// Setup logging. A daemonized server has nowhere to write
	// stderr to, so unless the configuration names a log file,
	// it gets one in the log directory
	if params.LogLevelSet {
		conf.LogLevel = params.LogLevel
	}
	Log.SetLevel(conf.LogLevel)

	logfile := conf.LogFile
	if logfile == "" && Daemonized() {
		logfile = filepath.Join(PathLogDir, "ippserver.log")
	}

	if logfile != "" && !params.Debug {
		Log.ToFile(logfile)
	}

	// Write to log that we are here
	Log.Info(' ', "===============================")
	Log.Info(' ', "ippserver started, pid=%d", os.Getpid())
	defer Log.Info(' ', "ippserver finished")

	// Start control socket server
	err = CtrlsockStart(conf)
	Log.Check(err)
	defer CtrlsockStop()

	// Publish DNS-SD services, one publisher per printer. The
	// connection to the DNS-SD daemon was established by conf.Load,
	// so only per-printer failures are possible here. They are
	// logged and skipped, the printer is still reachable by its URL
	var publishers []*DnsSdPublisher
	for _, p := range conf.Registry.Printers() {
		state := conf.State.Printer(p.Name)
		publisher := NewDnsSdPublisher(Log, state, p.DNSSdServices(conf))

		err = publisher.Publish()
		if err != nil {
			Log.Error('!', "DNS-SD: %s: %s", p.DNSSdName, err)
			continue
		}

		publishers = append(publishers, publisher)
	}

	defer func() {
		for _, publisher := range publishers {
			publisher.Unpublish()
		}
	}()

	// Sweep expired jobs in background
	go func() {
		for range time.Tick(JobHistoryInterval) {
			Log.Debug(' ', "Cleaning old jobs")
			conf.Registry.CleanJobs()
		}
	}()

	// Close stdin/stdout/stderr, unless logging to console.
	// This also tells the parent that initialization is done,
	// when running in background
	if !params.Debug {
		err = CloseStdInOutErr()
		Log.Check(err)
	}

	// Serve HTTP on all listeners
	srv := NewServer(conf)
	err = srv.Serve()
	Log.Check(err)
}
